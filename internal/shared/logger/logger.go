package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"mongodb-rest/internal/shared/contextkeys"

	"github.com/sirupsen/logrus"
)

const (
	logFormatJSON = "json"

	backendLogrus = "logrus"
	backendZap    = "zap"

	timestampFormat = "2006-01-02T15:04:05.000Z07:00"
)

// Logger defines the interface for structured logging operations
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger
	WithComponent(component string) Logger
}

// contextFields maps request-scoped context keys to log field names.
// Both backends log the same set.
var contextFields = []struct {
	key  interface{}
	name string
}{
	{contextkeys.RequestIDKey, "request_id"},
	{contextkeys.DatabaseKey, "database"},
	{contextkeys.CollectionKey, "collection"},
	{contextkeys.OperationKey, "operation"},
}

// fieldsFromContext returns the non-empty request-scoped values in ctx
func fieldsFromContext(ctx context.Context) map[string]interface{} {
	fields := make(map[string]interface{}, len(contextFields))
	for _, f := range contextFields {
		if v, ok := ctx.Value(f.key).(string); ok && v != "" {
			fields[f.name] = v
		}
	}
	return fields
}

// NewLogger creates a logger from LOG_BACKEND, LOG_LEVEL and LOG_FORMAT
func NewLogger() Logger {
	return NewLoggerForBackend(os.Getenv("LOG_BACKEND"), os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// NewLoggerForBackend creates a logger backed by logrus (default) or zap
func NewLoggerForBackend(backend, level, format string) Logger {
	switch strings.ToLower(backend) {
	case backendZap:
		return NewZapLogger(level, format)
	default:
		return NewLoggerWithConfig(level, format)
	}
}

// LogrusLogger implements the Logger interface using logrus
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLoggerWithConfig creates a logrus logger. Unknown levels fall back to
// info; format "json" selects the JSON formatter.
func NewLoggerWithConfig(level string, format string) Logger {
	base := logrus.New()
	base.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	base.SetLevel(parsed)

	if strings.EqualFold(format, logFormatJSON) {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	}

	return &LogrusLogger{entry: logrus.NewEntry(base)}
}

func (l *LogrusLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *LogrusLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *LogrusLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *LogrusLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *LogrusLogger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }

func (l *LogrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *LogrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *LogrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *LogrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *LogrusLogger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

// WithFields adds structured fields to the logger
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithContext adds request-scoped values found in ctx
func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(fieldsFromContext(ctx))}
}

// WithComponent adds component name to the logger
func (l *LogrusLogger) WithComponent(component string) Logger {
	return &LogrusLogger{entry: l.entry.WithField("component", component)}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &LogrusLogger{entry: logrus.NewEntry(base)}
}
