package logging

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// LogLevel is the minimum severity a logger emits
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

// ParseLevel maps a config value to a LogLevel.
// Accepts both level names and the verbosity words used in config files.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "verbose":
		return DEBUG, nil
	case "info", "normal", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error", "quiet":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("unknown log level: %q", s)
}

// Field is a structured key/value attached to a log line
type Field struct {
	Key   string
	Value interface{}
}

// F creates a Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// LogEntry is the JSON shape written by FileLogger
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	TraceID   string                 `json:"traceId,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger is the structured logger used across driveshelf
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithTraceID(traceID string) Logger
	WithContext(ctx context.Context) Logger
	SetLevel(level LogLevel)
	Close() error
}

type traceIDKey struct{}

// ContextWithTraceID stores a trace ID on ctx
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext returns the trace ID stored on ctx, or ""
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(traceIDKey{}).(string); ok {
		return v
	}
	return ""
}

// NoOpLogger discards everything
type NoOpLogger struct{}

// NewNoOpLogger creates a logger that discards all output
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field)      {}
func (l *NoOpLogger) Info(msg string, fields ...Field)       {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)       {}
func (l *NoOpLogger) Error(msg string, fields ...Field)      {}
func (l *NoOpLogger) WithTraceID(traceID string) Logger      { return l }
func (l *NoOpLogger) WithContext(ctx context.Context) Logger { return l }
func (l *NoOpLogger) SetLevel(level LogLevel)                {}
func (l *NoOpLogger) Close() error                           { return nil }

// MultiLogger fans out every call to several loggers
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger writing to all of loggers
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Debug(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Debug(msg, fields...)
	}
}

func (m *MultiLogger) Info(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Info(msg, fields...)
	}
}

func (m *MultiLogger) Warn(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Warn(msg, fields...)
	}
}

func (m *MultiLogger) Error(msg string, fields ...Field) {
	for _, l := range m.loggers {
		l.Error(msg, fields...)
	}
}

// WithTraceID returns a MultiLogger whose children all carry traceID
func (m *MultiLogger) WithTraceID(traceID string) Logger {
	children := make([]Logger, len(m.loggers))
	for i, l := range m.loggers {
		children[i] = l.WithTraceID(traceID)
	}
	return &MultiLogger{loggers: children}
}

// WithContext returns a new logger that extracts trace ID from context
func (m *MultiLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return m
	}
	return m.WithTraceID(traceID)
}

func (m *MultiLogger) SetLevel(level LogLevel) {
	for _, l := range m.loggers {
		l.SetLevel(level)
	}
}

// Close closes every child and returns the first error
func (m *MultiLogger) Close() error {
	var first error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LogConfig configures NewLogger
type LogConfig struct {
	Level           LogLevel
	OutputFile      string
	MaxFileSize     int64
	EnableConsole   bool
	EnableDebug     bool
	RedactSensitive bool
	EnableColor     bool
	EnableTimestamp bool
}

// DefaultLogConfig returns the configuration used when nothing is set
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:           INFO,
		MaxFileSize:     100 * 1024 * 1024,
		EnableConsole:   true,
		RedactSensitive: true,
		EnableColor:     true,
		EnableTimestamp: true,
	}
}

// NewLogger builds a console logger, a file logger, both, or a no-op
// logger depending on config
func NewLogger(config LogConfig) (Logger, error) {
	var loggers []Logger

	if config.EnableConsole {
		loggers = append(loggers, NewConsoleLogger(ConsoleLoggerConfig{
			Level:            config.Level,
			ColorEnabled:     config.EnableColor,
			TimestampEnabled: config.EnableTimestamp,
			RedactSensitive:  config.RedactSensitive,
		}))
	}

	if config.OutputFile != "" {
		fileLogger, err := NewFileLogger(FileLoggerConfig{
			FilePath:      config.OutputFile,
			Level:         config.Level,
			MaxFileSize:   config.MaxFileSize,
			RotateEnabled: config.MaxFileSize > 0,
		})
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, fileLogger)
	}

	switch len(loggers) {
	case 0:
		return NewNoOpLogger(), nil
	case 1:
		return loggers[0], nil
	default:
		return NewMultiLogger(loggers...), nil
	}
}

// NewDebugLoggerWithTransport is NewLogger plus, when debug is enabled, an
// HTTP transport that logs every Drive request and response status
func NewDebugLoggerWithTransport(config LogConfig) (Logger, *DebugTransport, error) {
	if config.EnableDebug {
		config.Level = DEBUG
	}
	logger, err := NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	if !config.EnableDebug {
		return logger, nil, nil
	}
	return logger, NewDebugTransport(nil, logger), nil
}
