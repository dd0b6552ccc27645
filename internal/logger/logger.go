// Package logger provides leveled logging for Quarry.
// Messages are written to stderr through a slog text handler. Debug output is
// only emitted when verbose mode is enabled via the --verbose flag, which helps
// users follow the ingestion and query pipelines.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	level             = new(slog.LevelVar)
	log               = newLogger(os.Stderr)
)

func init() {
	level.Set(slog.LevelInfo)
	if os.Getenv("QUARRY_DEBUG") == "true" {
		verbose = true
		level.Set(slog.LevelDebug)
	}
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	log = newLogger(w)
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...any) {
	current().Debug(fmt.Sprintf(format, args...))
}

// Info logs a formatted message at info level.
func Info(format string, args ...any) {
	current().Info(fmt.Sprintf(format, args...))
}

// Warn logs a formatted message at warn level.
func Warn(format string, args ...any) {
	current().Warn(fmt.Sprintf(format, args...))
}

// Error logs a formatted message at error level.
func Error(format string, args ...any) {
	current().Error(fmt.Sprintf(format, args...))
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// With returns a structured logger carrying the given attributes, for
// components that log many lines about one subject (a worker, a source).
func With(args ...any) *slog.Logger {
	return current().With(args...)
}
