// Package logger provides process logging for the Stache CLI.
// Messages go to stderr through zerolog. When verbose mode is enabled via
// the --verbose flag, debug messages are printed as well, which helps users
// follow transport selection, retries and loader choices.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Options configures the logger.
type Options struct {
	// Level is a zerolog level name (debug, info, warn, error). Defaults to warn.
	Level string

	// Format is "console" (default) or "json".
	Format string

	// Writer receives log output. Defaults to os.Stderr.
	Writer io.Writer
}

var (
	mu        sync.RWMutex
	verbose   bool
	level     = zerolog.WarnLevel
	logFormat = "console"
	output    io.Writer = os.Stderr
	log       = build()
)

// Configure applies options. Unknown levels fall back to warn.
func Configure(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	var err error
	level = zerolog.WarnLevel
	if opts.Level != "" {
		parsed, parseErr := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if parseErr != nil {
			err = fmt.Errorf("parse log level %q: %w", opts.Level, parseErr)
		} else {
			level = parsed
		}
	}
	if opts.Format != "" {
		logFormat = opts.Format
	}
	if opts.Writer != nil {
		output = opts.Writer
	}
	log = build()
	return err
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	log = build()
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
	log = build()
}

// Logger returns the current zerolog logger for structured events.
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	Logger().Debug().Msgf(format, args...)
}

// Info prints an informational message.
func Info(format string, args ...any) {
	Logger().Info().Msgf(format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	Logger().Warn().Msgf(format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	Logger().Error().Msgf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// build creates the zerolog logger from the current settings (caller holds the lock).
func build() zerolog.Logger {
	lvl := level
	if verbose {
		lvl = zerolog.DebugLevel
	}

	if logFormat == "json" {
		return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
	}

	console := zerolog.ConsoleWriter{
		Out:        output,
		NoColor:    true,
		PartsOrder: []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: func(i any) string {
			return "[" + strings.ToUpper(fmt.Sprint(i)) + "]"
		},
	}
	return zerolog.New(console).Level(lvl)
}
