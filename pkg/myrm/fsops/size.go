package fsops

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/jamesainslie/myrm/pkg/myrm/errs"
)

// Size returns the number of bytes held by path. A regular file reports its
// own size without walking. A directory reports the sum of every regular
// file below it; symlinks are neither followed nor counted.
func Size(ctx context.Context, path string) (int64, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return 0, notFound(path, err)
	}

	switch {
	case info.Mode().IsRegular():
		return info.Size(), nil
	case !info.IsDir():
		return 0, nil
	}

	var total atomic.Int64
	conf := fastwalk.Config{Follow: false}

	err = fastwalk.Walk(&conf, path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return notFound(p, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errs.ErrSizeUnavailable, p, err)
		}
		total.Add(fi.Size())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measuring %s: %w", path, err)
	}

	return total.Load(), nil
}
