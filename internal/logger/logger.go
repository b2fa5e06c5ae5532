// Package logger provides a lightweight, centralized logging facility
// with configurable verbosity levels.
//
// The call-site API stays printf-style (Errorf, Infof, Debugf, Tracef);
// records are emitted through zerolog, either as JSON or through the
// console writer, optionally into a rotating file.
//
// Verbosity levels (in increasing order):
//
//	Error < Info < Debug < Trace
//
// Example usage:
//
//	logger.SetVerbosity(2) // Debug
//	logger.Infof("starting engine")
//	logger.Debugf("spot=%f vol=%f", spot, vol)
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents a logging verbosity level.
// Higher values mean more verbose logging.
type Level int

const (
	Error Level = iota // Error logs only critical failures.
	Info               // Info logs high-level application progress.
	Debug              // Debug logs detailed diagnostic information.
	Trace              // Trace logs very fine-grained execution details.
)

// ParseLevel maps "error", "info", "debug" and "trace" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return Error, nil
	case "info", "":
		return Info, nil
	case "debug":
		return Debug, nil
	case "trace":
		return Trace, nil
	}
	return Info, fmt.Errorf("unknown log level %q", s)
}

func (l Level) zerolog() zerolog.Level {
	switch {
	case l <= Error:
		return zerolog.ErrorLevel
	case l == Info:
		return zerolog.InfoLevel
	case l == Debug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// Options configures the process-wide logger.
type Options struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "console" or "json"
	File       string `yaml:"file"`   // empty writes to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

var (
	mu      sync.RWMutex
	current = Info
	base    = newConsole(os.Stderr)
	closer  io.Closer
)

// Verbosity gating happens in logf; zerolog's own filter must let trace through.
func init() {
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

func newConsole(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// Configure replaces the output sink and verbosity. A previously opened log
// file is closed.
func Configure(o Options) error {
	lvl, err := ParseLevel(o.Level)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stderr
	var c io.Closer
	if o.File != "" {
		lj := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
		}
		out, c = lj, lj
	}

	var l zerolog.Logger
	switch strings.ToLower(o.Format) {
	case "json":
		l = zerolog.New(out).With().Timestamp().Logger()
	case "console", "":
		l = newConsole(out)
	default:
		return fmt.Errorf("unknown log format %q", o.Format)
	}

	mu.Lock()
	defer mu.Unlock()
	if closer != nil {
		_ = closer.Close()
	}
	base, closer, current = l, c, lvl
	return nil
}

// SetOutput sends JSON records to w. Used by tests to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = zerolog.New(w)
}

// SetVerbosity sets the global logging verbosity.
// Typically called once during application startup
// (e.g. after parsing CLI flags).
func SetVerbosity(v int) {
	mu.Lock()
	defer mu.Unlock()
	current = Level(v)
}

// Verbosity returns the active level.
func Verbosity() Level {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// logf checks verbosity and hands the formatted message to zerolog.
func logf(l Level, format string, args ...any) {
	mu.RLock()
	lg, cur := base, current
	mu.RUnlock()
	if cur < l {
		return
	}
	lg.WithLevel(l.zerolog()).Msgf(format, args...)
}

// Errorf logs an error-level message.
// Use this for failures that require attention.
func Errorf(format string, args ...any) {
	logf(Error, format, args...)
}

// Infof logs an informational message.
// Use this for major lifecycle events.
func Infof(format string, args ...any) {
	logf(Info, format, args...)
}

// Debugf logs debugging information.
func Debugf(format string, args ...any) {
	logf(Debug, format, args...)
}

// Tracef logs very detailed execution traces.
// Use this sparingly due to high volume.
func Tracef(format string, args ...any) {
	logf(Trace, format, args...)
}
