package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dl-alexandre/driveshelf/internal/types"
	"github.com/dl-alexandre/driveshelf/internal/utils"
)

type stubTable struct {
	rows [][]string
}

func (s *stubTable) Headers() []string    { return []string{"ID", "Name"} }
func (s *stubTable) Rows() [][]string     { return s.rows }
func (s *stubTable) EmptyMessage() string { return "Nothing here" }

func newTestWriter(format types.OutputFormat, quiet bool) (*OutputWriter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	w := NewOutputWriter(format, quiet)
	w.SetOutput(&out, &errOut)
	return w, &out, &errOut
}

func TestWriteSuccess_JSONEnvelope(t *testing.T) {
	w, out, _ := newTestWriter(types.OutputFormatJSON, false)
	w.WithTraceID("run-1")
	w.AddWarning(utils.ErrCodeListingIncomplete, "1 listing(s) failed", "warning")

	if err := w.WriteSuccess("sync", map[string]int{"rescanned": 2}); err != nil {
		t.Fatalf("WriteSuccess: %v", err)
	}

	var env types.CLIOutput
	if err := json.Unmarshal(out.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if env.SchemaVersion != utils.SchemaVersion || env.TraceID != "run-1" || env.Command != "sync" {
		t.Errorf("unexpected envelope header %+v", env)
	}
	if len(env.Warnings) != 1 || env.Warnings[0].Code != utils.ErrCodeListingIncomplete {
		t.Errorf("warnings = %+v", env.Warnings)
	}
	if env.Errors == nil || len(env.Errors) != 0 {
		t.Errorf("errors should be an empty list, got %+v", env.Errors)
	}
}

func TestWithTraceID_EmptyKeepsGenerated(t *testing.T) {
	w, _, _ := newTestWriter(types.OutputFormatJSON, false)
	before := w.traceID
	w.WithTraceID("")
	if w.traceID != before || before == "" {
		t.Errorf("trace id changed from %q to %q", before, w.traceID)
	}
}

func TestWriteSuccess_Table(t *testing.T) {
	w, out, _ := newTestWriter(types.OutputFormatTable, false)

	err := w.WriteSuccess("cache.list", &stubTable{rows: [][]string{{"F1", "Project"}}})
	if err != nil {
		t.Fatalf("WriteSuccess: %v", err)
	}
	got := out.String()
	for _, want := range []string{"ID", "NAME", "F1", "Project"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output %q missing %q", got, want)
		}
	}
}

func TestWriteSuccess_TableEmpty(t *testing.T) {
	w, out, _ := newTestWriter(types.OutputFormatTable, false)
	if err := w.WriteSuccess("cache.list", &stubTable{}); err != nil {
		t.Fatalf("WriteSuccess: %v", err)
	}
	if strings.TrimSpace(out.String()) != "Nothing here" {
		t.Errorf("got %q", out.String())
	}

	quiet, quietOut, _ := newTestWriter(types.OutputFormatTable, true)
	if err := quiet.WriteSuccess("cache.list", &stubTable{}); err != nil {
		t.Fatalf("WriteSuccess: %v", err)
	}
	if quietOut.Len() != 0 {
		t.Errorf("quiet mode printed %q", quietOut.String())
	}
}

func TestWriteSuccess_TableFallsBackToJSON(t *testing.T) {
	w, out, _ := newTestWriter(types.OutputFormatTable, false)
	if err := w.WriteSuccess("version", map[string]string{"version": "1.0"}); err != nil {
		t.Fatalf("WriteSuccess: %v", err)
	}
	if !strings.Contains(out.String(), `"schemaVersion"`) {
		t.Errorf("expected JSON envelope, got %q", out.String())
	}
}

func TestWriteError(t *testing.T) {
	cliErr := utils.NewCLIError(utils.ErrCodeInvalidConfig, "root folder id is required").Build()

	w, out, errOut := newTestWriter(types.OutputFormatTable, false)
	if err := w.WriteError("sync", cliErr); err != nil {
		t.Fatalf("WriteError: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("table errors belong on stderr, stdout got %q", out.String())
	}
	if got := errOut.String(); got != "Error [INVALID_CONFIG]: root folder id is required\n" {
		t.Errorf("stderr = %q", got)
	}

	w, out, _ = newTestWriter(types.OutputFormatJSON, false)
	if err := w.WriteError("sync", cliErr); err != nil {
		t.Fatalf("WriteError: %v", err)
	}
	var env types.CLIOutput
	if err := json.Unmarshal(out.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(env.Errors) != 1 || env.Errors[0].Code != utils.ErrCodeInvalidConfig || env.Data != nil {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestHandleError_ExitCode(t *testing.T) {
	w, _, _ := newTestWriter(types.OutputFormatJSON, false)

	err := handleError(w, "sync", utils.NewAppError(utils.NewCLIError(utils.ErrCodeCacheWriteFailed, "disk full").Build()))
	exitErr, ok := err.(*exitError)
	if !ok {
		t.Fatalf("expected *exitError, got %T", err)
	}
	if exitErr.code != utils.ExitCacheWriteFailed {
		t.Errorf("code = %d, want %d", exitErr.code, utils.ExitCacheWriteFailed)
	}

	err = handleError(w, "sync", utils.NewAppError(utils.NewCLIError(utils.ErrCodeCancelled, "interrupted").Build()))
	if exitErr, ok := err.(*exitError); !ok || exitErr.code != utils.ExitCancelled {
		t.Errorf("cancelled runs should exit %d, got %v", utils.ExitCancelled, err)
	}

	err = handleError(w, "sync", errPlain("boom"))
	if exitErr, ok := err.(*exitError); !ok || exitErr.code != utils.ExitUnknown {
		t.Errorf("plain errors should map to ExitUnknown, got %v", err)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a much longer folder name", 10, "a much ..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
