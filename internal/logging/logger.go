// Package logging wraps zerolog with subsystem-scoped child loggers.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog to provide subsystem-scoped child loggers.
type Logger struct {
	zl zerolog.Logger
}

// New creates a root logger writing to the given writer at the specified level.
// If w is nil, defaults to pretty console output on stderr.
func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).With().Timestamp().Logger()
	zl = zl.Level(parseLevel(level))
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Writer builds the output for a console style ("pretty" or "json") and an
// optional log file that receives JSON lines in addition to the console.
// The returned closer releases the file, if any.
func Writer(style, file string) (io.Writer, io.Closer, error) {
	var console io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if style == "json" {
		console = os.Stderr
	}
	if file == "" {
		return console, io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return zerolog.MultiLevelWriter(console, f), f, nil
}

// Sub returns a child logger tagged with a subsystem name.
func (l *Logger) Sub(subsystem string) *Logger {
	return &Logger{zl: l.zl.With().Str("subsystem", subsystem).Logger()}
}

// Trace logs at trace level.
func (l *Logger) Trace() *zerolog.Event { return l.zl.Trace() }

// Debug logs at debug level.
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }

// Info logs at info level.
func (l *Logger) Info() *zerolog.Event { return l.zl.Info() }

// Warn logs at warn level.
func (l *Logger) Warn() *zerolog.Event { return l.zl.Warn() }

// Error logs at error level.
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// Levels are the accepted level names, quietest first.
var Levels = []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}

// Styles are the accepted console styles.
var Styles = []string{"pretty", "json"}

var levels = map[string]zerolog.Level{
	"silent": zerolog.Disabled,
	"fatal":  zerolog.FatalLevel,
	"error":  zerolog.ErrorLevel,
	"warn":   zerolog.WarnLevel,
	"info":   zerolog.InfoLevel,
	"debug":  zerolog.DebugLevel,
	"trace":  zerolog.TraceLevel,
}

// ValidLevel reports whether s names a level.
func ValidLevel(s string) bool {
	_, ok := levels[s]
	return ok
}

// parseLevel maps a level name; unknown names log at info.
func parseLevel(s string) zerolog.Level {
	if l, ok := levels[s]; ok {
		return l
	}
	return zerolog.InfoLevel
}
