// Package logger is the leveled file logger shared by every agriwizard front
// end. Output is discarded until Configure names a log file, so the TUI keeps
// the terminal to itself.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents a log level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses the log_level config value.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// Logger writes "[LEVEL] message" lines at or above its level.
type Logger struct {
	mu    sync.Mutex
	level Level
	out   *log.Logger
	file  *os.File
}

var std = newLogger(io.Discard)

func newLogger(w io.Writer) *Logger {
	return &Logger{level: LevelInfo, out: log.New(w, "", log.LstdFlags)}
}

// Configure applies log_level and log_file. An empty level or path leaves
// that setting untouched; an invalid level changes nothing.
func (l *Logger) Configure(level, path string) error {
	lvl := LevelInfo
	if level != "" {
		var err error
		if lvl, err = ParseLevel(level); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if level != "" {
		l.level = lvl
	}
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	l.closeFileLocked()
	l.file = f
	l.out.SetOutput(f)
	return nil
}

// Close closes the log file, if any, and goes back to discarding output.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeFileLocked()
}

func (l *Logger) closeFileLocked() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.out.SetOutput(io.Discard)
	return err
}

func (l *Logger) logf(level Level, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}
	l.out.Printf("[%s] %s", level, fmt.Sprintf(format, v...))
}

func (l *Logger) Debug(format string, v ...any) { l.logf(LevelDebug, format, v...) }
func (l *Logger) Info(format string, v ...any)  { l.logf(LevelInfo, format, v...) }
func (l *Logger) Warn(format string, v ...any)  { l.logf(LevelWarn, format, v...) }
func (l *Logger) Error(format string, v ...any) { l.logf(LevelError, format, v...) }

func Debug(format string, v ...any) { std.Debug(format, v...) }
func Info(format string, v ...any)  { std.Info(format, v...) }
func Warn(format string, v ...any)  { std.Warn(format, v...) }
func Error(format string, v ...any) { std.Error(format, v...) }

// Configure configures the process-wide logger from loaded config.
func Configure(level, path string) error {
	return std.Configure(level, path)
}

// Close closes the process-wide logger's file.
func Close() error {
	return std.Close()
}
