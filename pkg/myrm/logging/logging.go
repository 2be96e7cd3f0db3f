// Package logging provides component loggers for myrm backed by
// charmbracelet/log. Every logger writes to a rotating log file and,
// optionally, to the console at its own verbosity.
//
// Before Init is called every logger discards its output, so library code and
// tests can log freely without any setup:
//
//	if err := logging.Init(logging.Config{Level: "info", ConsoleLevel: "warn"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	log := logging.Get("bucket")
//	log.Info("item moved to bucket", "origin", "/tmp/a.txt")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the file log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// ConsoleLevel enables stderr output at the given level.
	// Empty disables console output.
	ConsoleLevel string

	// Console overrides the console destination. Nil means os.Stderr.
	Console io.Writer
}

// Logger wraps charmbracelet/log with a component prefix.
type Logger struct {
	file    *log.Logger
	console *log.Logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.file.Debug(msg, args...)
	if l.console != nil {
		l.console.Debug(msg, args...)
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.file.Info(msg, args...)
	if l.console != nil {
		l.console.Info(msg, args...)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.file.Warn(msg, args...)
	if l.console != nil {
		l.console.Warn(msg, args...)
	}
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.file.Error(msg, args...)
	if l.console != nil {
		l.console.Error(msg, args...)
	}
}

// With returns a new logger with additional key/value context.
func (l *Logger) With(args ...interface{}) *Logger {
	next := &Logger{file: l.file.With(args...)}
	if l.console != nil {
		next.console = l.console.With(args...)
	}
	return next
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{file: log.NewWithOptions(io.Discard, log.Options{})}
}

type state struct {
	mu          sync.Mutex
	initialized bool
	writer      *RotatingWriter
	level       Level
	console     io.Writer
	consoleOn   bool
	consoleLvl  Level
	loggers     map[string]*Logger
}

var global = &state{loggers: make(map[string]*Logger)}

// Init configures the logging system. Loggers obtained from Get before Init
// are rebuilt in place, so package-level loggers pick up the configuration.
func Init(cfg Config) error {
	global.mu.Lock()
	defer global.mu.Unlock()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	global.consoleOn = false
	if cfg.ConsoleLevel != "" {
		consoleLevel, err := ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		global.consoleLvl = consoleLevel
		global.consoleOn = true
	}
	global.console = cfg.Console
	if global.console == nil {
		global.console = os.Stderr
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}

	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	if global.writer != nil {
		_ = global.writer.Close()
	}
	global.writer = writer
	global.level = level
	global.initialized = true

	for component, logger := range global.loggers {
		*logger = *build(component)
	}

	return nil
}

// Get returns the logger for component, creating it on first use.
func Get(component string) *Logger {
	global.mu.Lock()
	defer global.mu.Unlock()

	if logger, ok := global.loggers[component]; ok {
		return logger
	}

	logger := build(component)
	global.loggers[component] = logger
	return logger
}

// build creates a logger for component. Must be called with global.mu held.
func build(component string) *Logger {
	if !global.initialized {
		return &Logger{file: log.NewWithOptions(io.Discard, log.Options{Prefix: component})}
	}

	logger := &Logger{
		file: log.NewWithOptions(global.writer, log.Options{
			Level:           global.level.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
	}

	if global.consoleOn {
		logger.console = log.NewWithOptions(global.console, log.Options{
			Level:  global.consoleLvl.charm(),
			Prefix: component,
		})
	}

	return logger
}

// Close flushes and closes the log file and returns every logger to the
// silent pre-Init state.
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if !global.initialized {
		return nil
	}

	var err error
	if global.writer != nil {
		err = global.writer.Close()
		global.writer = nil
	}
	global.initialized = false
	global.consoleOn = false

	for component, logger := range global.loggers {
		*logger = *build(component)
	}

	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/myrm/myrm.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "myrm", "myrm.log")
}
