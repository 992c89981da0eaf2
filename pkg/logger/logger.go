package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus to provide structured logging with pipeline context
// (component name and run ID) attached to every entry.
type Logger struct {
	entry *logrus.Entry
}

// Init configures the global logrus instance. Output is JSON so run logs can
// be collected and queried downstream.
func Init(level logrus.Level) {
	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(level)
}

// ParseLevel maps a config string ("debug", "info", "warn", "error") to a
// logrus level, defaulting to info for anything unrecognized.
func ParseLevel(s string) logrus.Level {
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// New creates a Logger bound to a component and, optionally, a pipeline run ID.
func New(component, runID string) *Logger {
	fields := logrus.Fields{"component": component}
	if runID != "" {
		fields["run_id"] = runID
	}
	return &Logger{entry: logrus.WithFields(fields)}
}

// WithMetric returns a Logger with the metric name attached. Metric workers
// use this so per-metric log lines are filterable.
func (l *Logger) WithMetric(name string) *Logger {
	return &Logger{entry: l.entry.WithField("metric", name)}
}

// WithSource returns a Logger with the source document name attached.
func (l *Logger) WithSource(name string) *Logger {
	return &Logger{entry: l.entry.WithField("source", name)}
}

// WithError returns a Logger with the error attached.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

// WithPayload returns a Logger with arbitrary business data attached.
func (l *Logger) WithPayload(payload map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithField("payload", payload)}
}

// Info logs at info level.
func (l *Logger) Info(message string) {
	l.entry.Info(message)
}

// Warn logs at warning level.
func (l *Logger) Warn(message string) {
	l.entry.Warn(message)
}

// Error logs at error level.
func (l *Logger) Error(message string) {
	l.entry.Error(message)
}

// Debug logs at debug level.
func (l *Logger) Debug(message string) {
	l.entry.Debug(message)
}

// Fatal logs at fatal level and terminates the process.
func (l *Logger) Fatal(message string) {
	l.entry.Fatal(message)
}
