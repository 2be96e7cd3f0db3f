package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/myrm/pkg/myrm/errs"
	"github.com/jamesainslie/myrm/pkg/myrm/history"
	"github.com/jamesainslie/myrm/pkg/myrm/logging"
	"github.com/jamesainslie/myrm/pkg/myrm/types"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level    string         `mapstructure:"level" yaml:"level"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// BucketConfig configures the bucket.
type BucketConfig struct {
	Path        string `mapstructure:"path" yaml:"path"`
	HistoryPath string `mapstructure:"history_path" yaml:"history_path"`
	MaxSize     string `mapstructure:"max_size" yaml:"max_size"`

	// Retention is in days.
	Retention int `mapstructure:"retention" yaml:"retention"`
}

// HistoryConfig selects the ledger storage.
type HistoryConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
}

// Config represents the application configuration.
type Config struct {
	Bucket  BucketConfig  `mapstructure:"bucket" yaml:"bucket"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Bucket: BucketConfig{
			Path:        DefaultBucketPath(),
			HistoryPath: DefaultHistoryPath(),
			MaxSize:     DefaultMaxSize,
			Retention:   DefaultRetentionDays,
		},
		History: HistoryConfig{Backend: DefaultHistoryBackend},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
			Rotation: RotationConfig{
				MaxSize:    DefaultLogMaxSize,
				MaxBackups: DefaultLogMaxBackups,
			},
		},
	}
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("bucket.path", d.Bucket.Path)
	v.SetDefault("bucket.history_path", d.Bucket.HistoryPath)
	v.SetDefault("bucket.max_size", d.Bucket.MaxSize)
	v.SetDefault("bucket.retention", d.Bucket.Retention)
	v.SetDefault("history.backend", d.History.Backend)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", d.Logging.Rotation.MaxSize)
	v.SetDefault("logging.rotation.max_backups", d.Logging.Rotation.MaxBackups)
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - path, when non-empty
//   - $XDG_CONFIG_HOME/myrm/config.yaml
//   - $HOME/.config/myrm/config.yaml
//
// Environment variables are prefixed with MYRM_ (e.g., MYRM_BUCKET_MAX_SIZE).
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-supplied viper instance, typically one with
// command-line flags already bound to it.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		// The extension decides between YAML and JSON.
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("MYRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		notFound := errors.As(err, &configFileNotFoundError)
		switch {
		case path != "" && (notFound || errors.Is(err, os.ErrNotExist)):
			return nil, fmt.Errorf("%w: config file %s: %w", errs.ErrNotFound, path, err)
		case notFound:
			// Config file not found is acceptable; we use defaults
		default:
			return nil, fmt.Errorf("%w: reading config file: %w", errs.ErrValidation, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding config: %w", errs.ErrValidation, err)
	}

	return &cfg, nil
}

// Settings validates the bucket section and converts it to Settings.
func (c *Config) Settings() (Settings, error) {
	maxSize, err := types.ParseSize(c.Bucket.MaxSize)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: bucket.max_size: %w", errs.ErrValidation, err)
	}

	switch c.History.Backend {
	case history.BackendFile, history.BackendBadger:
	default:
		return Settings{}, fmt.Errorf("%w: history.backend must be %q or %q, got %q",
			errs.ErrValidation, history.BackendFile, history.BackendBadger, c.History.Backend)
	}

	s, err := NewSettings(c.Bucket.Path, c.Bucket.HistoryPath, maxSize, Days(c.Bucket.Retention))
	if err != nil {
		return Settings{}, err
	}
	s.HistoryBackend = c.History.Backend
	return s, nil
}

// LoggingFor converts the logging section into a logging.Config writing to
// the console at consoleLevel. An empty consoleLevel disables the console.
func (c *Config) LoggingFor(consoleLevel string) (logging.Config, error) {
	rotation := logging.DefaultRotationConfig()
	if c.Logging.Rotation.MaxSize != "" {
		size, err := types.ParseSize(c.Logging.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("%w: logging.rotation.max_size: %w", errs.ErrValidation, err)
		}
		rotation.MaxSize = size
	}
	rotation.MaxBackups = c.Logging.Rotation.MaxBackups

	path, err := ExpandPath(c.Logging.Path)
	if err != nil {
		return logging.Config{}, err
	}
	if path == "" {
		path = DefaultLogPath()
	}

	return logging.Config{
		Level:        c.Logging.Level,
		Path:         path,
		Rotation:     rotation,
		ConsoleLevel: consoleLevel,
	}, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "myrm"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "myrm"), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}
