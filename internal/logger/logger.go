// Package logger provides process-wide logging for procrag.
// By default nothing is printed. The --verbose flag enables debug output on
// stderr so users can follow classification, gating and retrieval; the
// --log-level flag enables leveled logs for long-running servers.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the log level and encoding.
type Config struct {
	// Level is a zerolog level name. Empty disables logging unless verbose.
	Level string

	// Pretty renders colourised console output with timestamps.
	Pretty bool

	// JSON renders one JSON object per line. Takes precedence over Pretty.
	JSON bool
}

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	cfg     Config
	base    = build()
)

// Setup applies a configuration. Verbose mode still forces debug level.
func Setup(c Config) {
	mu.Lock()
	defer mu.Unlock()
	cfg = c
	base = build()
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	base = build()
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
	base = build()
}

// Logger returns the underlying logger for structured fields.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// With returns a child logger carrying one extra field.
func With(key string, value any) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Interface(key, value).Logger()
}

// Debug prints a message at debug level.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	base.Debug().Msgf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	base.Info().Msgf(format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	base.Warn().Msgf(format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	base.Error().Msgf(format, args...)
}

// build must be called with mu held for writing.
func build() zerolog.Logger {
	var w io.Writer
	switch {
	case cfg.JSON:
		w = output
	case cfg.Pretty:
		w = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	default:
		w = zerolog.ConsoleWriter{
			Out:         output,
			NoColor:     true,
			PartsOrder:  []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
			FormatLevel: bracketLevel,
		}
	}

	l := zerolog.New(w).Level(level())
	if cfg.JSON || cfg.Pretty {
		l = l.With().Timestamp().Logger()
	}
	return l
}

func level() zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	if cfg.Level == "" {
		return zerolog.Disabled
	}
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func bracketLevel(i any) string {
	s, _ := i.(string)
	return "[" + strings.ToUpper(s) + "]"
}
