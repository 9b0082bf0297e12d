package logging

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"verbose", DEBUG, false},
		{"", INFO, false},
		{"normal", INFO, false},
		{"WARN", WARN, false},
		{"quiet", ERROR, false},
		{"loud", INFO, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLogger_Selection(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		config LogConfig
		check  func(Logger) bool
	}{
		{"console only", LogConfig{Level: INFO, EnableConsole: true}, func(l Logger) bool { _, ok := l.(*ConsoleLogger); return ok }},
		{"file only", LogConfig{Level: INFO, OutputFile: filepath.Join(dir, "a.log")}, func(l Logger) bool { _, ok := l.(*FileLogger); return ok }},
		{"both", LogConfig{Level: INFO, EnableConsole: true, OutputFile: filepath.Join(dir, "b.log")}, func(l Logger) bool { _, ok := l.(*MultiLogger); return ok }},
		{"neither", LogConfig{Level: INFO}, func(l Logger) bool { _, ok := l.(*NoOpLogger); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config)
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			t.Cleanup(func() { logger.Close() })
			if !tt.check(logger) {
				t.Errorf("unexpected logger type %T", logger)
			}
		})
	}
}

func TestNewLogger_InvalidPath(t *testing.T) {
	invalidPath := "/invalid/path/that/does/not/exist/test.log"
	if runtime.GOOS == "windows" {
		invalidPath = `Z:\nonexistent\path\test.log`
	}
	if _, err := NewLogger(LogConfig{Level: INFO, OutputFile: invalidPath}); err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestNewDebugLoggerWithTransport(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")

	logger, transport, err := NewDebugLoggerWithTransport(LogConfig{Level: INFO, OutputFile: logPath, EnableDebug: true})
	if err != nil {
		t.Fatalf("NewDebugLoggerWithTransport() error = %v", err)
	}
	if transport == nil {
		t.Fatal("Expected a transport when debug is enabled")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := &http.Client{Transport: transport}
	resp, err := client.Get(srv.URL + "/files")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	logger.Close()

	entries := readEntries(t, logPath)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Fields["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v, want %d", entries[0].Fields["status"], http.StatusTeapot)
	}
}

func TestNewDebugLoggerWithTransport_NoDebug(t *testing.T) {
	logger, transport, err := NewDebugLoggerWithTransport(LogConfig{Level: INFO})
	if err != nil {
		t.Fatalf("NewDebugLoggerWithTransport() error = %v", err)
	}
	defer logger.Close()
	if transport != nil {
		t.Error("Expected nil transport without debug")
	}
}

func TestMultiLogger_FanOutAndTrace(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	l1 := NewConsoleLogger(ConsoleLoggerConfig{Writer: &buf1, Level: INFO})
	l2 := NewConsoleLogger(ConsoleLoggerConfig{Writer: &buf2, Level: INFO})

	multi := NewMultiLogger(l1, l2)
	multi.WithContext(ContextWithTraceID(context.Background(), "abcdef0123456789")).Info("folder skipped")

	if buf1.String() == "" || buf1.String() != buf2.String() {
		t.Fatalf("Loggers produced different output:\n%s\n%s", buf1.String(), buf2.String())
	}
	if !strings.Contains(buf1.String(), "trace=abcdef01") {
		t.Errorf("expected short trace id in %q", buf1.String())
	}

	multi.SetLevel(ERROR)
	buf1.Reset()
	multi.Warn("filtered")
	if buf1.Len() != 0 {
		t.Errorf("expected WARN to be filtered, got %q", buf1.String())
	}
	if err := multi.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NewNoOpLogger()
	l.Info("ignored")
	if l.WithTraceID("x") != l {
		t.Error("WithTraceID should return the same no-op logger")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
