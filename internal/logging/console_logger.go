package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// ConsoleLogger writes human-readable lines through zerolog's console
// writer. Output goes to stderr unless configured otherwise, so stdout stays
// reserved for command output.
type ConsoleLogger struct {
	mu      sync.Mutex
	zl      zerolog.Logger
	level   LogLevel
	traceID string
}

// ConsoleLoggerConfig contains configuration for console logger
type ConsoleLoggerConfig struct {
	Writer           io.Writer
	Level            LogLevel
	ColorEnabled     bool
	TimestampEnabled bool
	RedactSensitive  bool
}

// NewConsoleLogger creates a new console logger
func NewConsoleLogger(config ConsoleLoggerConfig) *ConsoleLogger {
	if config.Writer == nil {
		config.Writer = os.Stderr
	}

	cw := zerolog.ConsoleWriter{
		Out:        zerolog.SyncWriter(config.Writer),
		NoColor:    !config.ColorEnabled,
		TimeFormat: "15:04:05",
	}
	if !config.TimestampEnabled {
		cw.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	if config.RedactSensitive {
		cw.FormatMessage = func(i interface{}) string {
			if i == nil {
				return ""
			}
			return redactSensitiveData(fmt.Sprint(i))
		}
		cw.FormatFieldValue = func(i interface{}) string {
			return redactSensitiveData(fmt.Sprint(i))
		}
	}

	ctx := zerolog.New(cw).With()
	if config.TimestampEnabled {
		ctx = ctx.Timestamp()
	}

	return &ConsoleLogger{
		zl:    ctx.Logger(),
		level: config.Level,
	}
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// shortTraceID keeps console lines narrow; full IDs go to the file log
func shortTraceID(traceID string) string {
	if len(traceID) > 8 {
		return traceID[:8]
	}
	return traceID
}

func (l *ConsoleLogger) log(level LogLevel, msg string, fields ...Field) {
	l.mu.Lock()
	enabled := level >= l.level
	l.mu.Unlock()
	if !enabled {
		return
	}

	event := l.zl.WithLevel(zerologLevel(level))
	if l.traceID != "" {
		event = event.Str("trace", shortTraceID(l.traceID))
	}
	for _, field := range fields {
		event = event.Interface(field.Key, field.Value)
	}
	event.Msg(msg)
}

func (l *ConsoleLogger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields...) }
func (l *ConsoleLogger) Info(msg string, fields ...Field)  { l.log(INFO, msg, fields...) }
func (l *ConsoleLogger) Warn(msg string, fields ...Field)  { l.log(WARN, msg, fields...) }
func (l *ConsoleLogger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields...) }

// WithTraceID returns a logger sharing the writer that tags every line
// with traceID
func (l *ConsoleLogger) WithTraceID(traceID string) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &ConsoleLogger{zl: l.zl, level: l.level, traceID: traceID}
}

// WithContext returns a new logger that extracts trace ID from context
func (l *ConsoleLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	return l.WithTraceID(traceID)
}

// SetLevel sets the minimum log level
func (l *ConsoleLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Close is a no-op; the writer belongs to the caller
func (l *ConsoleLogger) Close() error {
	return nil
}
