package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/myrm/pkg/myrm/errs"
	"github.com/jamesainslie/myrm/pkg/myrm/types"
)

// Settings is the validated bucket configuration.
type Settings struct {
	// BucketPath is the absolute bucket directory.
	BucketPath string

	// HistoryPath is the absolute ledger location.
	HistoryPath string

	// HistoryBackend is "file" or "badger". Empty means "file".
	HistoryBackend string

	// MaxSize is the bucket size cap in bytes.
	MaxSize int64

	// Retention is how long items stay in the bucket.
	Retention time.Duration
}

// NewSettings validates and normalizes the bucket settings. Paths must be
// non-empty; they are ~-expanded and made absolute. The history must not live
// inside the bucket. MaxSize and retention must not be negative.
func NewSettings(bucketPath, historyPath string, maxSize int64, retention time.Duration) (Settings, error) {
	bucket, err := absPath("bucket path", bucketPath)
	if err != nil {
		return Settings{}, err
	}
	hist, err := absPath("history path", historyPath)
	if err != nil {
		return Settings{}, err
	}

	if hist == bucket || strings.HasPrefix(hist, bucket+string(filepath.Separator)) {
		return Settings{}, fmt.Errorf("%w: history path %s is inside the bucket %s", errs.ErrValidation, hist, bucket)
	}
	if maxSize < 0 {
		return Settings{}, fmt.Errorf("%w: max size must not be negative, got %d", errs.ErrValidation, maxSize)
	}
	if retention < 0 {
		return Settings{}, fmt.Errorf("%w: retention must not be negative, got %s", errs.ErrValidation, retention)
	}

	return Settings{
		BucketPath:  bucket,
		HistoryPath: hist,
		MaxSize:     maxSize,
		Retention:   retention,
	}, nil
}

// Days converts a day count to a duration.
func Days(n int) time.Duration {
	return time.Duration(n) * types.Day
}

func absPath(what, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: %s must not be empty", errs.ErrValidation, what)
	}

	expanded, err := ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errs.ErrValidation, what, err)
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errs.ErrValidation, what, err)
	}
	return abs, nil
}
