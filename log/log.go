// Package log implements support for structured logging.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// log.DefaultCaller + 2 for this module's leveling wrappers (Debug/Info/... and log).
const defaultCallerUnwind = 5

// Logger is a structured logger.
type Logger struct {
	// base has no caller/timestamp prefix, so the prefix can be rebuilt
	// with a different caller depth.
	base         log.Logger
	context      []interface{}
	logger       log.Logger
	level        Level
	module       string
	callerUnwind int
}

// NewDefaultLogger initializes a new logger instance with default settings.
// For usage outside tests, prefer RootLogger() from package `cmd/common`.
func NewDefaultLogger(module string) *Logger {
	logger, err := NewLogger(module, os.Stdout, FmtJSON, LevelInfo)
	if err != nil {
		// Shouldn't happen as NewLogger can only fail if an invalid format is provided.
		panic(err)
	}
	return logger
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{
		base:         log.NewNopLogger(),
		logger:       log.NewNopLogger(),
		level:        LevelError + 1,
		module:       "nop",
		callerUnwind: defaultCallerUnwind,
	}
}

// NewLogger initializes a new logger instance.
func NewLogger(module string, w io.Writer, format Format, lvl Level) (*Logger, error) {
	var base log.Logger
	switch format {
	case FmtLogfmt:
		base = log.NewLogfmtLogger(log.NewSyncWriter(w))
	case FmtJSON:
		base = log.NewJSONLogger(log.NewSyncWriter(w))
	default:
		return nil, fmt.Errorf("log: unsupported log format: %v", format)
	}

	l := &Logger{
		base:         base,
		level:        lvl,
		module:       module,
		callerUnwind: defaultCallerUnwind,
	}
	l.logger = l.build()
	return l, nil
}

func (l *Logger) build() log.Logger {
	prefixes := []interface{}{
		"ts", log.DefaultTimestampUTC,
		"caller", log.Caller(l.callerUnwind),
	}
	logger := log.WithPrefix(l.base, prefixes...)
	if len(l.context) > 0 {
		logger = log.With(logger, l.context...)
	}
	return logger
}

func (l *Logger) clone() *Logger {
	c := *l
	c.context = append([]interface{}{}, l.context...)
	return &c
}

func (l *Logger) log(lvl Level, msg string, keyvals []interface{}) {
	if l.level > lvl {
		return
	}
	keyvals = append([]interface{}{"module", l.module, "msg", msg}, keyvals...)
	switch lvl {
	case LevelDebug:
		_ = level.Debug(l.logger).Log(keyvals...)
	case LevelInfo:
		_ = level.Info(l.logger).Log(keyvals...)
	case LevelWarn:
		_ = level.Warn(l.logger).Log(keyvals...)
	default:
		_ = level.Error(l.logger).Log(keyvals...)
	}
}

// Debug logs the message and key value pairs at the Debug log level.
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.log(LevelDebug, msg, keyvals)
}

// Info logs the message and key value pairs at the Info log level.
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.log(LevelInfo, msg, keyvals)
}

// Warn logs the message and key value pairs at the Warn log level.
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.log(LevelWarn, msg, keyvals)
}

// Error logs the message and key value pairs at the Error log level.
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.log(LevelError, msg, keyvals)
}

// With returns a clone of the logger with the provided key/value pairs
// added as context for all subsequent logs.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	c := l.clone()
	c.context = append(c.context, keyvals...)
	c.logger = c.build()
	return c
}

// WithModule returns a clone of the logger with the provided module
// added as context for all subsequent logs.
func (l *Logger) WithModule(module string) *Logger {
	c := l.clone()
	c.module = module
	return c
}

// WithCallerUnwind returns a clone of the logger that reports the caller
// `unwind` frames up the stack. Needed when the logger is called through
// adapters such as WriterIntoLogger.
func (l *Logger) WithCallerUnwind(unwind int) *Logger {
	c := l.clone()
	c.callerUnwind = unwind
	c.logger = c.build()
	return c
}

// Level is the logging level.
func (l *Logger) Level() Level {
	return l.level
}

type loggerWriter struct {
	logger Logger
}

func (w loggerWriter) Write(p []byte) (int, error) {
	w.logger.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// WriterIntoLogger returns an io.Writer that logs every write as an Info
// message. Used to plug libraries that want a stdlib *log.Logger.
func WriterIntoLogger(logger Logger) io.Writer {
	return loggerWriter{logger: logger}
}
