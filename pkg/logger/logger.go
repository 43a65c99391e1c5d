package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger is a key/value logger. Derived loggers share the underlying
// logrus output but keep their own fields, level and mode.
type Logger struct {
	level  LogLevel
	base   *logrus.Logger
	fields logrus.Fields
	mode   string // "plan", "create", "submit", ...
}

type Config struct {
	Level  LogLevel
	Output io.Writer
	Format string // "json" or "text" (default)
	Mode   string
}

func New() *Logger {
	return NewWithConfig(Config{
		Level:  INFO,
		Output: os.Stderr,
		Format: "text",
	})
}

func NewWithConfig(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	base := logrus.New()
	base.SetOutput(config.Output)
	// filtering happens per Logger so derived loggers can differ in level
	base.SetLevel(logrus.DebugLevel)
	base.SetFormatter(formatterFor(config.Format))

	return &Logger{
		level:  config.Level,
		base:   base,
		fields: logrus.Fields{},
		mode:   config.Mode,
	}
}

func formatterFor(format string) logrus.Formatter {
	if strings.EqualFold(format, "json") {
		return &logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		}
	}
	return &logrus.TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02T15:04:05.000Z07:00",
		DisableColors:    true,
		QuoteEmptyFields: true,
	}
}

// SetMode sets the mode for the logger (e.g., "plan", "submit")
func (l *Logger) SetMode(mode string) {
	l.mode = mode
}

func (l *Logger) GetMode() string {
	return l.mode
}

// SetFormat switches between text and json output for every logger
// sharing this logger's output.
func (l *Logger) SetFormat(format string) {
	l.base.SetFormatter(formatterFor(format))
}

// SetOutput redirects every logger sharing this logger's output.
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

func (l *Logger) clone() *Logger {
	fields := make(logrus.Fields, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{
		level:  l.level,
		base:   l.base,
		fields: fields,
		mode:   l.mode,
	}
}

func (l *Logger) WithFields(keyVals ...interface{}) *Logger {
	newLogger := l.clone()
	for i := 0; i+1 < len(keyVals); i += 2 {
		newLogger.fields[fmt.Sprintf("%v", keyVals[i])] = keyVals[i+1]
	}
	return newLogger
}

// WithField creates a new logger that includes an extra bit of context,
// typically "component=placement-planner".
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(key, value)
}

func (l *Logger) WithMode(mode string) *Logger {
	newLogger := l.clone()
	newLogger.mode = mode
	return newLogger
}

func (l *Logger) Debug(msg string, keyVals ...interface{}) {
	l.log(DEBUG, msg, keyVals...)
}

func (l *Logger) Info(msg string, kv ...interface{}) {
	l.log(INFO, msg, kv...)
}

func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.log(WARN, msg, kv...)
}

func (l *Logger) Error(msg string, kv ...interface{}) {
	l.log(ERROR, msg, kv...)
}

func (l *Logger) Fatal(msg string, kv ...interface{}) {
	l.log(ERROR, msg, kv...)
	os.Exit(1)
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(ERROR, fmt.Sprintf(format, args...))
	os.Exit(1)
}

func (l *Logger) log(level LogLevel, msg string, kv ...interface{}) {
	if level < l.level {
		return
	}

	fields := make(logrus.Fields, len(l.fields)+len(kv)/2+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprintf("%v", kv[i])] = normalizeValue(kv[i+1])
	}
	if l.mode != "" {
		fields["mode"] = l.mode
	}

	l.base.WithFields(fields).Log(level.logrusLevel(), msg)
}

// errors do not survive the json formatter as values
func normalizeValue(value interface{}) interface{} {
	if err, ok := value.(error); ok && err != nil {
		return err.Error()
	}
	return value
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *Logger) GetLevel() LogLevel {
	return l.level
}

func (l *Logger) IsDebugEnabled() bool {
	return l.level <= DEBUG
}

func (l *Logger) IsInfoEnabled() bool {
	return l.level <= INFO
}

// global logger instance for the convenience
var globalLogger = New()

// Configure replaces the global logger's level, format and output.
func Configure(config Config) {
	next := NewWithConfig(config)
	globalLogger.level = next.level
	globalLogger.base.SetOutput(next.base.Out)
	globalLogger.base.SetFormatter(next.base.Formatter)
	globalLogger.mode = next.mode
}

// Global returns the process-wide logger.
func Global() *Logger {
	return globalLogger
}

func SetGlobalMode(mode string) {
	globalLogger.SetMode(mode)
}

func Debug(msg string, keyvals ...interface{}) {
	globalLogger.Debug(msg, keyvals...)
}

func Info(msg string, keyvals ...interface{}) {
	globalLogger.Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...interface{}) {
	globalLogger.Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	globalLogger.Error(msg, keyvals...)
}

func Fatal(msg string, keyvals ...interface{}) {
	globalLogger.Fatal(msg, keyvals...)
}

func Fatalf(format string, args ...interface{}) {
	globalLogger.Fatalf(format, args...)
}

func WithFields(keyvals ...interface{}) *Logger {
	return globalLogger.WithFields(keyvals...)
}

func WithField(key string, value interface{}) *Logger {
	return globalLogger.WithField(key, value)
}

func WithMode(mode string) *Logger {
	return globalLogger.WithMode(mode)
}

func SetLevel(level LogLevel) {
	globalLogger.SetLevel(level)
}

func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", level)
	}
}
