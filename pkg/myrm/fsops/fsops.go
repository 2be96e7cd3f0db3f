// Package fsops provides the filesystem primitives myrm builds on: directory
// creation, recursive deletion, and moves that survive crossing devices.
//
// Every mutating operation honours dry-run mode. In dry-run no mutating
// syscall is made, the operation reports success, and the intended effect is
// logged at info level. Read-only traversal still happens so that a dry run
// reports the same "not found" failures a real run would.
package fsops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jamesainslie/myrm/pkg/myrm/errs"
	"github.com/jamesainslie/myrm/pkg/myrm/logging"
	"golang.org/x/sys/unix"
)

// Ops performs filesystem mutations.
type Ops struct {
	dryRun bool
	log    *logging.Logger
}

// Option configures Ops.
type Option func(*Ops)

// WithDryRun toggles dry-run mode.
func WithDryRun(dryRun bool) Option {
	return func(o *Ops) { o.dryRun = dryRun }
}

// WithLogger sets the logger. The default is the "fsops" component logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Ops) {
		if l != nil {
			o.log = l
		}
	}
}

// New returns Ops configured by opts.
func New(opts ...Option) *Ops {
	o := &Ops{log: logging.Get("fsops")}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DryRun reports whether mutations are suppressed.
func (o *Ops) DryRun() bool {
	return o.dryRun
}

// Mkdir creates path and any missing parents. An existing directory is not an
// error; an existing non-directory is.
func (o *Ops) Mkdir(path string) error {
	if !o.dryRun {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("%w: creating directory %s: %w", errs.ErrOperationFailed, path, err)
		}
	}
	o.log.Info("directory created", "path", path, "dry_run", o.dryRun)
	return nil
}

// RemoveFile deletes a single file or symlink.
func (o *Ops) RemoveFile(path string) error {
	if !o.dryRun {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("%w: deleting %s: %w", errs.ErrOperationFailed, path, err)
		}
	}
	o.log.Info("item deleted", "path", path, "dry_run", o.dryRun)
	return nil
}

// RemoveTree deletes the directory at path bottom-up: every non-directory in
// the subtree first, then the subdirectories deepest first, then path itself.
// The whole tree is traversed before anything is deleted, so an unreadable
// subtree fails with errs.ErrNotFound without touching the disk.
func (o *Ops) RemoveTree(ctx context.Context, path string) error {
	t, err := traverse(path)
	if err != nil {
		return err
	}

	for _, rel := range t.files {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("deleting %s: %w", path, err)
		}
		if err := o.RemoveFile(filepath.Join(path, rel)); err != nil {
			return err
		}
	}

	// Pre-order reversed puts every directory before its parent.
	for i := len(t.dirs) - 1; i >= 1; i-- {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("deleting %s: %w", path, err)
		}
		if err := o.removeDir(filepath.Join(path, t.dirs[i])); err != nil {
			return err
		}
	}

	if err := o.removeDir(path); err != nil {
		return err
	}
	o.log.Info("directory tree deleted", "path", path, "dry_run", o.dryRun)
	return nil
}

// Remove deletes path permanently, as a tree when it is a directory.
func (o *Ops) Remove(ctx context.Context, path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return notFound(path, err)
	}
	if info.IsDir() {
		return o.RemoveTree(ctx, path)
	}
	return o.RemoveFile(path)
}

func (o *Ops) removeDir(path string) error {
	if o.dryRun {
		return nil
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: deleting directory %s: %w", errs.ErrOperationFailed, path, err)
	}
	return nil
}

// Move renames src to dst. When the rename crosses a device boundary the
// file is copied, keeping its mode and modification time, and src is removed.
func (o *Ops) Move(src, dst string) error {
	if !o.dryRun {
		if err := move(src, dst); err != nil {
			return fmt.Errorf("%w: moving %s to %s: %w", errs.ErrOperationFailed, src, dst, err)
		}
	}
	o.log.Info("item moved", "from", src, "to", dst, "dry_run", o.dryRun)
	return nil
}

// MoveTree recreates the directory structure of src under dst, moves every
// non-directory into place, and then deletes the emptied src tree. Directory
// permissions and modification times are carried over once the files are in
// place.
func (o *Ops) MoveTree(ctx context.Context, src, dst string) error {
	t, err := traverse(src)
	if err != nil {
		return err
	}

	if o.dryRun {
		o.log.Info("directory tree moved", "from", src, "to", dst, "dry_run", true)
		return nil
	}

	for _, rel := range t.dirs {
		if err := o.Mkdir(filepath.Join(dst, rel)); err != nil {
			return err
		}
	}

	for _, rel := range t.files {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("moving %s: %w", src, err)
		}
		if err := o.Move(filepath.Join(src, rel), filepath.Join(dst, rel)); err != nil {
			return err
		}
	}

	for i := len(t.dirs) - 1; i >= 0; i-- {
		info := t.dirInfo[i]
		target := filepath.Join(dst, t.dirs[i])
		if err := os.Chmod(target, info.Mode().Perm()); err != nil {
			return fmt.Errorf("%w: restoring mode of %s: %w", errs.ErrOperationFailed, target, err)
		}
		if err := os.Chtimes(target, info.ModTime(), info.ModTime()); err != nil {
			return fmt.Errorf("%w: restoring times of %s: %w", errs.ErrOperationFailed, target, err)
		}
	}

	if err := o.RemoveTree(ctx, src); err != nil {
		return err
	}
	o.log.Info("directory tree moved", "from", src, "to", dst, "dry_run", false)
	return nil
}

// Relocate moves path to dst, as a tree when it is a directory.
func (o *Ops) Relocate(ctx context.Context, src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return notFound(src, err)
	}
	if info.IsDir() {
		return o.MoveTree(ctx, src, dst)
	}
	return o.Move(src, dst)
}

// tree is the result of walking a directory. Paths are relative to the root;
// dirs is in pre-order and starts with ".".
type tree struct {
	dirs    []string
	dirInfo []fs.FileInfo
	files   []string
}

// traverse walks root without following symlinks. Any walk failure is
// reported as errs.ErrNotFound.
func traverse(root string) (*tree, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, notFound(root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrOperationFailed, root, unix.ENOTDIR)
	}

	t := &tree{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			t.dirs = append(t.dirs, rel)
			t.dirInfo = append(t.dirInfo, info)
			return nil
		}
		t.files = append(t.files, rel)
		return nil
	})
	if err != nil {
		return nil, notFound(root, err)
	}
	return t, nil
}

func notFound(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", errs.ErrNotFound, path, err)
}

func move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, unix.EXDEV) {
		return err
	}

	info, err := os.Lstat(src)
	if err != nil {
		return err
	}

	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		if err := os.Symlink(target, dst); err != nil {
			return err
		}
	case info.Mode().IsRegular():
		if err := copyFile(src, dst, info); err != nil {
			_ = os.Remove(dst)
			return err
		}
	default:
		return fmt.Errorf("cannot copy %s across devices: %w", src, unix.EXDEV)
	}

	return os.Remove(src)
}

func copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(out, in)
	syncErr := out.Sync()
	closeErr := out.Close()
	if copyErr != nil {
		return copyErr
	}
	if syncErr != nil {
		return syncErr
	}
	if closeErr != nil {
		return closeErr
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
