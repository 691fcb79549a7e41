// Package logger provides the logging interface used across clovertg.
// The default implementation is backed by zerolog; any structured logger can
// be plugged in by implementing Logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// Silent suppresses all log output.
	Silent LogLevel = iota + 1
	// Error only logs error messages.
	Error
	// Warn logs warnings and errors.
	Warn
	// Info logs informational messages, warnings, and errors.
	Info
	// Debug logs all messages including debug information.
	Debug
)

// Logger is the interface that wraps the basic logging methods.
// Arguments after msg are alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// With returns a logger that adds the given key/value pairs to every entry.
	With(keysAndValues ...any) Logger
}

// ParseLevel parses a level name. An empty name yields Warn.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return Warn, nil
	case "silent", "off", "none":
		return Silent, nil
	case "error":
		return Error, nil
	case "warn", "warning":
		return Warn, nil
	case "info":
		return Info, nil
	case "debug", "trace":
		return Debug, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case Silent:
		return zerolog.Disabled
	case Error:
		return zerolog.ErrorLevel
	case Warn:
		return zerolog.WarnLevel
	case Info:
		return zerolog.InfoLevel
	case Debug:
		return zerolog.DebugLevel
	default:
		return zerolog.WarnLevel
	}
}

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ZerologLogger adapts a zerolog.Logger to Logger.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerolog wraps an existing zerolog.Logger.
func NewZerolog(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

// NewConsole creates a human-readable logger writing to w.
func NewConsole(w io.Writer, level LogLevel) *ZerologLogger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	zl := zerolog.New(cw).Level(level.zerolog()).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

// NewJSON creates a logger writing one JSON object per entry to w.
func NewJSON(w io.Writer, level LogLevel) *ZerologLogger {
	zl := zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

// New returns the default console logger on stderr at Warn level.
func New() Logger {
	return NewConsole(os.Stderr, Warn)
}

// Debug logs a debug message.
func (l *ZerologLogger) Debug(msg string, keysAndValues ...any) {
	l.log(l.zl.Debug(), msg, keysAndValues)
}

// Info logs an informational message.
func (l *ZerologLogger) Info(msg string, keysAndValues ...any) {
	l.log(l.zl.Info(), msg, keysAndValues)
}

// Warn logs a warning message.
func (l *ZerologLogger) Warn(msg string, keysAndValues ...any) {
	l.log(l.zl.Warn(), msg, keysAndValues)
}

// Error logs an error message.
func (l *ZerologLogger) Error(msg string, keysAndValues ...any) {
	l.log(l.zl.Error(), msg, keysAndValues)
}

// With returns a derived logger with fixed fields.
func (l *ZerologLogger) With(keysAndValues ...any) Logger {
	if len(keysAndValues) == 0 {
		return l
	}
	ctx := l.zl.With()
	for i := 0; i < len(keysAndValues); i += 2 {
		key, val := pair(keysAndValues, i)
		ctx = ctx.Interface(key, val)
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

func (l *ZerologLogger) log(e *zerolog.Event, msg string, keysAndValues []any) {
	if e == nil {
		return
	}
	for i := 0; i < len(keysAndValues); i += 2 {
		key, val := pair(keysAndValues, i)
		switch v := val.(type) {
		case error:
			e.AnErr(key, v)
		case string:
			e.Str(key, v)
		case int:
			e.Int(key, v)
		case time.Duration:
			e.Dur(key, v)
		default:
			e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

func pair(keysAndValues []any, i int) (string, any) {
	key := fmt.Sprint(keysAndValues[i])
	var val any = "(no value)"
	if i+1 < len(keysAndValues) {
		val = keysAndValues[i+1]
	}
	return key, val
}

// discardLogger is a logger that discards all output.
type discardLogger struct{}

func (d *discardLogger) Debug(string, ...any) {}
func (d *discardLogger) Info(string, ...any) {}
func (d *discardLogger) Warn(string, ...any) {}
func (d *discardLogger) Error(string, ...any) {}
func (d *discardLogger) With(...any) Logger { return d }

// Discard is a logger that discards all output.
var Discard Logger = &discardLogger{}
