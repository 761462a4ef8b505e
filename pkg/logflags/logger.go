package logflags

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is what the unwind layers log through. The loggers returned by
// UnwindLogger, EngineLogger and BacktraceLogger carry a "layer" field.
type Logger interface {
	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	// WithError adds err under logrus' "error" key.
	WithError(err error) Logger

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

// LoggerFactory builds the logger of one layer. level is DebugLevel when
// the layer was enabled by Setup and ErrorLevel otherwise; out is the
// destination given with --log-dest, or nil for standard error.
type LoggerFactory func(level logrus.Level, fields Fields, out io.Writer) Logger

var loggerFactory LoggerFactory

// SetLoggerFactory replaces the logrus logger with textFormatter output
// that the layer loggers use by default. A nil factory restores it.
func SetLoggerFactory(lf LoggerFactory) {
	loggerFactory = lf
}

// Fields are structured values attached to log entries.
type Fields map[string]interface{}

type logrusLogger struct {
	*logrus.Entry
}

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{l.Entry.WithField(key, value)}
}

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &logrusLogger{l.Entry.WithFields(logrus.Fields(fields))}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &logrusLogger{l.Entry.WithError(err)}
}
