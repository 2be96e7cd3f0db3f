// Package config provides configuration management for myrm.
package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values for myrm.
const (
	// DefaultMaxSize is the bucket size cap.
	DefaultMaxSize = "1GiB"

	// DefaultRetentionDays is how long items stay in the bucket.
	DefaultRetentionDays = 7

	// DefaultHistoryBackend stores the ledger as a JSON file.
	DefaultHistoryBackend = "file"

	// DefaultLogLevel is the log file level.
	DefaultLogLevel = "info"

	// DefaultLogMaxSize is the size at which the log file is rotated.
	DefaultLogMaxSize = "10MiB"

	// DefaultLogMaxBackups is the number of rotated log files kept.
	DefaultLogMaxBackups = 3

	// DefaultConfigDir is the default configuration directory path.
	DefaultConfigDir = "~/.config/myrm"
)

// DataDir returns $XDG_DATA_HOME/myrm/ for the bucket and its history.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "myrm")
}

// StateDir returns $XDG_STATE_HOME/myrm/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "myrm")
}

// DefaultBucketPath returns the default bucket directory.
func DefaultBucketPath() string {
	return filepath.Join(DataDir(), "trash_bin")
}

// DefaultHistoryPath returns the default history location.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history.json")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "myrm.log")
}
