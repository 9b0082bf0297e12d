package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dl-alexandre/driveshelf/internal/types"
	"github.com/dl-alexandre/driveshelf/internal/utils"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
)

// OutputWriter handles CLI output formatting
type OutputWriter struct {
	format   types.OutputFormat
	quiet    bool
	traceID  string
	out      io.Writer
	errOut   io.Writer
	warnings []types.CLIWarning
}

// NewOutputWriter creates a new output writer on stdout/stderr
func NewOutputWriter(format types.OutputFormat, quiet bool) *OutputWriter {
	return &OutputWriter{
		format:   format,
		quiet:    quiet,
		traceID:  uuid.New().String(),
		out:      os.Stdout,
		errOut:   os.Stderr,
		warnings: []types.CLIWarning{},
	}
}

// SetOutput redirects result and log output
func (w *OutputWriter) SetOutput(out, errOut io.Writer) {
	w.out = out
	w.errOut = errOut
}

// WithTraceID makes the envelope carry traceID instead of a fresh one
func (w *OutputWriter) WithTraceID(traceID string) *OutputWriter {
	if traceID != "" {
		w.traceID = traceID
	}
	return w
}

// AddWarning adds a warning to the output
func (w *OutputWriter) AddWarning(code, message, severity string) {
	w.warnings = append(w.warnings, types.CLIWarning{
		Code:     code,
		Message:  message,
		Severity: severity,
	})
}

// WriteSuccess writes a successful result
func (w *OutputWriter) WriteSuccess(command string, data interface{}) error {
	output := types.CLIOutput{
		SchemaVersion: utils.SchemaVersion,
		TraceID:       w.traceID,
		Command:       command,
		Data:          data,
		Warnings:      w.warnings,
		Errors:        []types.CLIError{},
	}

	if w.format == types.OutputFormatJSON {
		return w.writeJSON(output)
	}
	return w.writeTable(output)
}

// WriteError writes an error result
func (w *OutputWriter) WriteError(command string, cliErr types.CLIError) error {
	output := types.CLIOutput{
		SchemaVersion: utils.SchemaVersion,
		TraceID:       w.traceID,
		Command:       command,
		Data:          nil,
		Warnings:      w.warnings,
		Errors:        []types.CLIError{cliErr},
	}

	if w.format == types.OutputFormatTable {
		fmt.Fprintf(w.errOut, "Error [%s]: %s\n", cliErr.Code, cliErr.Message)
		return nil
	}
	return w.writeJSON(output)
}

func (w *OutputWriter) writeJSON(output types.CLIOutput) error {
	encoder := json.NewEncoder(w.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (w *OutputWriter) writeTable(output types.CLIOutput) error {
	if renderable, ok := output.Data.(types.TableRenderable); ok {
		return w.renderTable(renderable.AsTableRenderer())
	}
	if renderer, ok := output.Data.(types.TableRenderer); ok {
		return w.renderTable(renderer)
	}
	// no table form; fall back to JSON
	return w.writeJSON(output)
}

func (w *OutputWriter) renderTable(renderer types.TableRenderer) error {
	rows := renderer.Rows()
	if len(rows) == 0 {
		if !w.quiet {
			fmt.Fprintln(w.out, renderer.EmptyMessage())
		}
		return nil
	}

	table := tablewriter.NewWriter(w.out)
	table.SetHeader(renderer.Headers())
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, row := range rows {
		table.Append(row)
	}

	table.Render()
	return nil
}

// Log writes to stderr if not quiet
func (w *OutputWriter) Log(format string, args ...interface{}) {
	if !w.quiet {
		fmt.Fprintf(w.errOut, format+"\n", args...)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
