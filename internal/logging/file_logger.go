package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// fileSink is the rotating file shared by a FileLogger and every logger
// derived from it through WithTraceID
type fileSink struct {
	mu            sync.Mutex
	file          *os.File
	filePath      string
	maxFileSize   int64
	currentSize   int64
	rotateEnabled bool
}

// Write implements io.Writer for zerolog; zerolog emits one event per call.
// Callers must hold s.mu.
func (s *fileSink) Write(p []byte) (int, error) {
	n, err := s.file.Write(p)
	s.currentSize += int64(n)
	return n, err
}

// FileLogger implements Logger as JSON lines, one LogEntry per line
type FileLogger struct {
	sink    *fileSink
	mu      sync.Mutex
	level   LogLevel
	traceID string
}

// FileLoggerConfig contains configuration for file logger
type FileLoggerConfig struct {
	FilePath      string
	Level         LogLevel
	MaxFileSize   int64 // in bytes, 0 means no rotation
	RotateEnabled bool
}

// NewFileLogger creates a new file logger
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		if closeErr := file.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to close log file after stat error: %w", closeErr)
		}
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &FileLogger{
		sink: &fileSink{
			file:          file,
			filePath:      config.FilePath,
			maxFileSize:   config.MaxFileSize,
			currentSize:   info.Size(),
			rotateEnabled: config.RotateEnabled && config.MaxFileSize > 0,
		},
		level: config.Level,
	}, nil
}

func (l *FileLogger) enabled(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

func (l *FileLogger) log(level LogLevel, msg string, fields ...Field) {
	if !l.enabled(level) {
		return
	}

	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return
	}

	if s.rotateEnabled && s.currentSize >= s.maxFileSize {
		if err := s.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to rotate log file: %v\n", err)
		}
	}

	zl := zerolog.New(s)
	event := zl.Log().
		Str("level", level.String()).
		Time("timestamp", time.Now().UTC())
	if l.traceID != "" {
		event = event.Str("traceId", l.traceID)
	}
	if len(fields) > 0 {
		values := make(map[string]interface{}, len(fields))
		for _, field := range fields {
			values[field.Key] = field.Value
		}
		event = event.Dict("fields", zerolog.Dict().Fields(values))
	}
	event.Msg(msg)
}

// rotate moves the current file aside with a timestamp suffix and reopens
func (s *fileSink) rotate() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}

	timestamp := time.Now().UTC().Format("20060102-150405.000000")
	rotatedPath := fmt.Sprintf("%s.%s", s.filePath, timestamp)
	if err := os.Rename(s.filePath, rotatedPath); err != nil {
		file, _ := os.OpenFile(s.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		s.file = file
		return fmt.Errorf("failed to rename log file: %w", err)
	}

	file, err := os.OpenFile(s.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		s.file = nil
		return fmt.Errorf("failed to create new log file: %w", err)
	}

	s.file = file
	s.currentSize = 0
	return nil
}

func (l *FileLogger) Debug(msg string, fields ...Field) {
	l.log(DEBUG, msg, fields...)
}

func (l *FileLogger) Info(msg string, fields ...Field) {
	l.log(INFO, msg, fields...)
}

func (l *FileLogger) Warn(msg string, fields ...Field) {
	l.log(WARN, msg, fields...)
}

func (l *FileLogger) Error(msg string, fields ...Field) {
	l.log(ERROR, msg, fields...)
}

// WithTraceID returns a logger writing to the same file with traceID attached
func (l *FileLogger) WithTraceID(traceID string) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &FileLogger{
		sink:    l.sink,
		level:   l.level,
		traceID: traceID,
	}
}

// WithContext returns a new logger that extracts trace ID from context
func (l *FileLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	return l.WithTraceID(traceID)
}

func (l *FileLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Close closes the underlying file. Derived loggers share it.
func (l *FileLogger) Close() error {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
