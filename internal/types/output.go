package types

// OutputFormat selects how CLI results are printed
type OutputFormat string

const (
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatTable OutputFormat = "table"
)

// CLIOutput is the JSON envelope written by every command
type CLIOutput struct {
	SchemaVersion string       `json:"schemaVersion"`
	TraceID       string       `json:"traceId"`
	Command       string       `json:"command"`
	Data          interface{}  `json:"data"`
	Warnings      []CLIWarning `json:"warnings"`
	Errors        []CLIError   `json:"errors"`
}

// CLIError is a stable, machine-readable error
type CLIError struct {
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	HTTPStatus  int                    `json:"httpStatus,omitempty"`
	DriveReason string                 `json:"driveReason,omitempty"`
	Retryable   bool                   `json:"retryable"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

type CLIWarning struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// GlobalFlags holds persistent flags shared by all commands
type GlobalFlags struct {
	Config       string
	OutputFormat OutputFormat
	Quiet        bool
	Verbose      bool
	Debug        bool
	LogFile      string
	JSON         bool
}

type TableRenderer interface {
	Headers() []string
	Rows() [][]string
	EmptyMessage() string
}

type TableRenderable interface {
	AsTableRenderer() TableRenderer
}
