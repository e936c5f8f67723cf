package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"namewise/internal/errors"
)

var (
	isDebug atomic.Bool
	logger  = NewLogger()
)

// Field is a single structured key/value attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// F creates a field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logging is the logger surface accepted by library packages.
type Logging interface {
	Debug(msg string, args ...interface{})
	Debugf(format string, args ...interface{})
	Info(msg string, args ...interface{})
	Infof(format string, args ...interface{})
	Warn(msg string, args ...interface{})
	Warnf(format string, args ...interface{})
	Error(msg string, args ...interface{})
	Errorf(format string, args ...interface{})
	With(fields ...Field) Logging
	WithContext(ctx context.Context) Logging
}

// Logger writes leveled, structured lines through logrus.
type Logger struct {
	entry *logrus.Entry
	file  *os.File
}

type options struct {
	out   io.Writer
	json  bool
	file  string
	level string
}

// Option configures a Logger
type Option func(*options)

// WithOutput sends log lines to w instead of stdout
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithJSON switches to one JSON object per line
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// WithFile appends log lines to path in addition to the output writer
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// WithLevel sets the minimum level: debug, info, warn or error
func WithLevel(level string) Option {
	return func(o *options) { o.level = level }
}

// NewLogger creates a logger. Without options it writes text lines to stdout.
func NewLogger(opts ...Option) *Logger {
	o := &options{out: os.Stdout, level: "debug"}
	for _, opt := range opts {
		opt(o)
	}

	base := logrus.New()
	// Debug output is gated by SetDebug, so logrus itself lets everything through.
	base.SetLevel(logrus.DebugLevel)
	if lvl, err := logrus.ParseLevel(o.level); err == nil && lvl < logrus.DebugLevel {
		base.SetLevel(lvl)
	}

	if o.json {
		base.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg:  "message",
				logrus.FieldKeyTime: "timestamp",
			},
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	l := &Logger{}
	out := o.out
	if o.file != "" {
		f, err := os.OpenFile(o.file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			l.file = f
			out = io.MultiWriter(out, f)
		} else {
			fmt.Fprintf(os.Stderr, "log: cannot open %s: %v\n", o.file, err)
		}
	}
	base.SetOutput(out)
	l.entry = logrus.NewEntry(base)
	return l
}

// Configure replaces the package-level logger
func Configure(opts ...Option) {
	logger = NewLogger(opts...)
}

// Default returns the package-level logger
func Default() *Logger {
	return logger
}

// SetDebug toggles debug output for every logger
func SetDebug(debug bool) {
	isDebug.Store(debug)
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func format(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if isDebug.Load() {
		l.entry.Debug(format(msg, args))
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if isDebug.Load() {
		l.entry.Debugf(format, args...)
	}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.entry.Info(format(msg, args))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.entry.Warn(format(msg, args))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.entry.Error(format(msg, args))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// With returns a child logger carrying the given fields
func (l *Logger) With(fields ...Field) Logging {
	return l.with(fields...)
}

func (l *Logger) with(fields ...Field) *Logger {
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return &Logger{entry: l.entry.WithFields(data), file: l.file}
}

// WithContext attaches ctx to the underlying entry.
func (l *Logger) WithContext(ctx context.Context) Logging {
	if ctx == nil {
		return l
	}
	return &Logger{entry: l.entry.WithContext(ctx), file: l.file}
}

// errorFields extracts structured fields from application errors.
func errorFields(err error) []Field {
	if err == nil {
		return []Field{F("error", "<nil>")}
	}
	fields := []Field{F("error", err.Error())}

	var fileErr *errors.FileError
	var renameErr *errors.RenameError
	var configErr *errors.ConfigError
	var analysisErr *errors.AnalysisError
	var dbErr *errors.DatabaseError
	var appErr *errors.ApplicationError

	switch {
	case errors.As(err, &configErr):
		fields = append(fields, F("error_kind", int(configErr.Kind())), F("param", configErr.Param()))
	case errors.As(err, &renameErr):
		fields = append(fields, F("error_kind", int(renameErr.Kind())), F("path", renameErr.Path()), F("target", renameErr.Target()))
	case errors.As(err, &fileErr):
		fields = append(fields, F("error_kind", int(fileErr.Kind())), F("path", fileErr.Path()))
	case errors.As(err, &analysisErr):
		fields = append(fields, F("error_kind", int(analysisErr.Kind())), F("path", analysisErr.Path()))
	case errors.As(err, &dbErr):
		fields = append(fields, F("error_kind", int(dbErr.Kind())))
		if op := dbErr.Operation(); op != "" {
			fields = append(fields, F("operation", op))
		}
	case errors.As(err, &appErr):
		fields = append(fields, F("error_kind", int(appErr.Kind())))
	}
	return fields
}

// WithError returns a child logger describing err
func (l *Logger) WithError(err error) Logging {
	return l.with(errorFields(err)...)
}

// Info logs through the package-level logger
func Info(msg string, args ...interface{}) {
	logger.Info(msg, args...)
}

// Infof logs a formatted message
func Infof(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// Debug logs a message when debug output is enabled
func Debug(msg string, args ...interface{}) {
	logger.Debug(msg, args...)
}

// Debugf logs a formatted message when debug output is enabled
func Debugf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...interface{}) {
	logger.Warn(msg, args...)
}

// Warnf logs a formatted warning message
func Warnf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// Error logs an error message
func Error(msg string, args ...interface{}) {
	logger.Error(msg, args...)
}

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

// LogWithFields returns the package-level logger carrying fields
func LogWithFields(fields ...Field) Logging {
	return logger.With(fields...)
}

// LogWithError returns the package-level logger describing err
func LogWithError(err error) Logging {
	return logger.WithError(err)
}

// LogError logs err with msg at error level
func LogError(err error, msg string) {
	logger.WithError(err).Error(msg)
}

// ParseLevel normalizes a level name, defaulting to info.
func ParseLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "error":
		return strings.ToLower(strings.TrimSpace(level))
	case "warning":
		return "warn"
	default:
		return "info"
	}
}
