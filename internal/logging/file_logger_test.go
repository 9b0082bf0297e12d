package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func newTestFileLogger(t *testing.T, level LogLevel, maxSize int64) (*FileLogger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "sync.log")
	logger, err := NewFileLogger(FileLoggerConfig{
		FilePath:      logPath,
		Level:         level,
		MaxFileSize:   maxSize,
		RotateEnabled: maxSize > 0,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	return logger, logPath
}

func readEntries(t *testing.T, path string) []LogEntry {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	var entries []LogEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("Failed to parse log entry %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestFileLogger_CreatesMissingDirectory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "logs", "sync.log")
	logger, err := NewFileLogger(FileLoggerConfig{FilePath: logPath, Level: INFO})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestFileLogger_WritesJSONEntries(t *testing.T) {
	logger, logPath := newTestFileLogger(t, DEBUG, 0)

	logger.Debug("listing folder", F("folderId", "F1"), F("page", 2))
	logger.Warn("listing failed")
	logger.Close()

	entries := readEntries(t, logPath)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != "DEBUG" {
		t.Errorf("Level = %v, want DEBUG", entries[0].Level)
	}
	if entries[0].Message != "listing folder" {
		t.Errorf("Message = %v, want 'listing folder'", entries[0].Message)
	}
	if entries[0].Fields["folderId"] != "F1" {
		t.Errorf("Fields[folderId] = %v, want F1", entries[0].Fields["folderId"])
	}
	if entries[0].Fields["page"] != float64(2) {
		t.Errorf("Fields[page] = %v, want 2", entries[0].Fields["page"])
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
	if entries[1].Fields != nil {
		t.Errorf("Expected no fields on second entry, got %v", entries[1].Fields)
	}
}

func TestFileLogger_TraceIDs(t *testing.T) {
	logger, logPath := newTestFileLogger(t, INFO, 0)

	logger.WithTraceID("run-123").Info("from trace id")
	ctx := ContextWithTraceID(context.Background(), "run-456")
	logger.WithContext(ctx).Info("from context")
	logger.WithContext(context.Background()).Info("no trace")
	logger.Close()

	entries := readEntries(t, logPath)
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	want := []string{"run-123", "run-456", ""}
	for i, w := range want {
		if entries[i].TraceID != w {
			t.Errorf("entry %d TraceID = %q, want %q", i, entries[i].TraceID, w)
		}
	}
}

func TestFileLogger_LevelFilteringAndSetLevel(t *testing.T) {
	logger, logPath := newTestFileLogger(t, DEBUG, 0)

	logger.Debug("kept")
	logger.SetLevel(ERROR)
	logger.Debug("dropped")
	logger.Warn("dropped")
	logger.Error("kept")
	logger.Close()

	if got := len(readEntries(t, logPath)); got != 2 {
		t.Errorf("Expected 2 entries, got %d", got)
	}
}

func TestFileLogger_Rotation(t *testing.T) {
	logger, logPath := newTestFileLogger(t, INFO, 100)

	for i := 0; i < 20; i++ {
		logger.Info("folder rescanned with a message long enough to rotate")
	}
	logger.Close()

	files, err := filepath.Glob(logPath + "*")
	if err != nil {
		t.Fatalf("Failed to glob log files: %v", err)
	}
	if len(files) < 2 {
		t.Errorf("Expected at least 2 log files (original + rotated), got %d", len(files))
	}
}

func TestFileLogger_CloseIsIdempotent(t *testing.T) {
	logger, _ := newTestFileLogger(t, INFO, 0)
	derived := logger.WithTraceID("abc")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := derived.Close(); err != nil {
		t.Errorf("Close() on derived logger error = %v", err)
	}
	// Writing after close must not panic.
	derived.Info("after close")
}
