package types

// RemoteFolder is a folder as reported by a Drive listing
type RemoteFolder struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ModifiedTime string `json:"modifiedTime"`
}

// RemoteFile is a file directly under a RemoteFolder
type RemoteFile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	MimeType      string `json:"mimeType"`
	ModifiedTime  string `json:"modifiedTime"`
	ThumbnailLink string `json:"thumbnailLink,omitempty"`
	WebViewLink   string `json:"webViewLink,omitempty"`
	ResourceKey   string `json:"resourceKey,omitempty"`
}

// RequestType classifies a Drive API call for logging
type RequestType string

const (
	RequestTypeListOrSearch RequestType = "list_or_search"
	RequestTypeGetByID      RequestType = "get_by_id"
	RequestTypeDownload     RequestType = "download"
)

// RequestContext carries per-call metadata through the API client
type RequestContext struct {
	DriveID           string
	InvolvedFileIDs   []string
	InvolvedParentIDs []string
	RequestType       RequestType
	TraceID           string
}
