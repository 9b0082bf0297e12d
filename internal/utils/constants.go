package utils

// OAuth scopes
const (
	ScopeReadonly         = "https://www.googleapis.com/auth/drive.readonly"
	ScopeMetadataReadonly = "https://www.googleapis.com/auth/drive.metadata.readonly"
)

// ScopesSync is what a sync run needs: folder metadata plus summary.txt bodies.
var ScopesSync = []string{ScopeReadonly}

// Retry configuration
const (
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
	MaxRetryDelayMs     = 32000
)

// Listing
const (
	ListPageSize = 1000
	// MaxTextContentBytes guards memory against a mislabeled binary named
	// summary.txt; real summaries are a few KiB.
	MaxTextContentBytes = 64 * 1024 * 1024 // 64 MiB
)

// Schema version of the CLI output envelope
const SchemaVersion = "1.0"

// Reserved names given special handling during a sync pass
const (
	DefaultExcludedFolderName = "Writing Samples"
	ThumbnailNamePrefix       = "thumbnail"
	SummaryFileName           = "summary.txt"
)

// MIME types
const (
	MimeTypeFolder = "application/vnd.google-apps.folder"
	MimeTypePDF    = "application/pdf"
)
