// Package errs defines the failure kinds reported by myrm and maps them to
// POSIX errno-style process exit codes.
//
// Components wrap one of the sentinels below with fmt.Errorf and %w. When a
// syscall is the root cause, the OS error is wrapped as well so that ExitCode
// can report the real errno:
//
//	return fmt.Errorf("%w: removing %s: %w", errs.ErrOperationFailed, path, err)
package errs

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"
)

// Failure kinds.
var (
	// ErrNotFound means a required path does not exist or cannot be listed/walked.
	ErrNotFound = errors.New("path not found")

	// ErrOperationFailed means a create, delete or move failed.
	ErrOperationFailed = errors.New("operation failed")

	// ErrSizeUnavailable means the size of an item could not be computed.
	ErrSizeUnavailable = errors.New("size unavailable")

	// ErrCapacityExceeded means a removal would push the bucket over its size cap.
	ErrCapacityExceeded = errors.New("maximum bucket size exceeded")

	// ErrBinEmpty means a restore was requested while the ledger holds no entries.
	ErrBinEmpty = errors.New("bin is empty")

	// ErrIndexNotFound means no live ledger entry carries the requested index.
	ErrIndexNotFound = errors.New("index not found")

	// ErrUnknownOrigin means the entry was discovered in the bucket and has no
	// recorded original location.
	ErrUnknownOrigin = errors.New("original location unknown")

	// ErrDestinationConflict means the restore target already exists.
	ErrDestinationConflict = errors.New("destination exists")

	// ErrTrashedTimeUnknown means an item in the bucket has no ledger entry to
	// read its trashed time from.
	ErrTrashedTimeUnknown = errors.New("can't detect trashed time")

	// ErrLedgerIO means the history backing store could not be read or written.
	ErrLedgerIO = errors.New("history i/o failure")

	// ErrValidation means a settings value violates its constraints.
	ErrValidation = errors.New("validation failed")

	// ErrEmpty means a page was requested from an empty ledger.
	ErrEmpty = errors.New("bucket is empty")

	// ErrPageOutOfRange means the requested page does not exist.
	ErrPageOutOfRange = errors.New("page out of range")
)

// ExitCode returns the process exit status for err. A nil error maps to 0 and
// an error of no known kind maps to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, context.Canceled) {
		return int(unix.EINTR)
	}

	switch {
	case errors.Is(err, ErrValidation):
		return int(unix.EINVAL)
	case errors.Is(err, ErrLedgerIO):
		return int(unix.EIO)
	case errors.Is(err, ErrDestinationConflict):
		return int(unix.EEXIST)
	case errors.Is(err, ErrNotFound):
		return int(unix.ENOENT)
	case errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrBinEmpty),
		errors.Is(err, ErrIndexNotFound),
		errors.Is(err, ErrUnknownOrigin),
		errors.Is(err, ErrTrashedTimeUnknown),
		errors.Is(err, ErrEmpty),
		errors.Is(err, ErrPageOutOfRange):
		return int(unix.EPERM)
	case errors.Is(err, ErrOperationFailed), errors.Is(err, ErrSizeUnavailable):
		var errno unix.Errno
		if errors.As(err, &errno) && errno != 0 {
			return int(errno)
		}
		return int(unix.EPERM)
	}

	return 1
}
