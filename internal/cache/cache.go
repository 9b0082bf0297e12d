package cache

import (
	"bytes"
	"encoding/json"

	"golang.org/x/exp/slices"
)

// Cache is the persisted folder index, keyed by folder id
type Cache map[string]*Entry

// Entry is the cached record for one subfolder of the root folder.
// ModifiedTime is the folder fingerprint: when it matches the remote value
// the folder is not rescanned, even if files inside it changed.
// Fields this program does not know are kept in Extra and written back
// unchanged, so an untouched entry survives a save.
type Entry struct {
	Name         string           `json:"name"`
	ModifiedTime string           `json:"modifiedTime"`
	Files        map[string]*File `json:"files"`

	Extra map[string]json.RawMessage `json:"-"`
}

// File is the cached record for one file inside a folder.
// ThumbnailLink is the folder-level preview link shared by every file
// recorded in the same pass. Content is only set for summary files.
type File struct {
	Name          string  `json:"name"`
	MimeType      string  `json:"mimeType"`
	ModifiedTime  string  `json:"modifiedTime"`
	ThumbnailLink *string `json:"thumbnailLink"`
	WebViewLink   *string `json:"webViewLink"`
	Content       *string `json:"content,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// entryFields and fileFields carry the declared fields without the
// marshal methods
type entryFields struct {
	Name         string           `json:"name"`
	ModifiedTime string           `json:"modifiedTime"`
	Files        map[string]*File `json:"files"`
}

type fileFields struct {
	Name          string  `json:"name"`
	MimeType      string  `json:"mimeType"`
	ModifiedTime  string  `json:"modifiedTime"`
	ThumbnailLink *string `json:"thumbnailLink"`
	WebViewLink   *string `json:"webViewLink"`
	Content       *string `json:"content,omitempty"`
}

var (
	entryKeys = []string{"name", "modifiedTime", "files"}
	fileKeys  = []string{"name", "mimeType", "modifiedTime", "thumbnailLink", "webViewLink", "content"}
)

func (e Entry) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(entryFields{
		Name:         e.Name,
		ModifiedTime: e.ModifiedTime,
		Files:        e.Files,
	}, e.Extra)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var known entryFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	extra, err := extraFields(data, entryKeys)
	if err != nil {
		return err
	}
	*e = Entry{
		Name:         known.Name,
		ModifiedTime: known.ModifiedTime,
		Files:        known.Files,
		Extra:        extra,
	}
	return nil
}

func (f File) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(fileFields{
		Name:          f.Name,
		MimeType:      f.MimeType,
		ModifiedTime:  f.ModifiedTime,
		ThumbnailLink: f.ThumbnailLink,
		WebViewLink:   f.WebViewLink,
		Content:       f.Content,
	}, f.Extra)
}

func (f *File) UnmarshalJSON(data []byte) error {
	var known fileFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	extra, err := extraFields(data, fileKeys)
	if err != nil {
		return err
	}
	*f = File{
		Name:          known.Name,
		MimeType:      known.MimeType,
		ModifiedTime:  known.ModifiedTime,
		ThumbnailLink: known.ThumbnailLink,
		WebViewLink:   known.WebViewLink,
		Content:       known.Content,
		Extra:         extra,
	}
	return nil
}

// marshalWithExtra writes the declared fields in struct order followed by
// the extra fields in key order
func marshalWithExtra(known any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := marshalUnescaped(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for i, k := range keys {
		if i > 0 || len(data) > 2 {
			buf.WriteByte(',')
		}
		name, err := marshalUnescaped(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func extraFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// marshalUnescaped is json.Marshal without HTML escaping, so '&' in links
// stays readable
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// NewEntry returns an entry with an empty file mapping
func NewEntry(name, modifiedTime string) *Entry {
	return &Entry{
		Name:         name,
		ModifiedTime: modifiedTime,
		Files:        make(map[string]*File),
	}
}

// IsCurrent reports whether the cached entry for folderID carries the
// given modified time
func (c Cache) IsCurrent(folderID, modifiedTime string) bool {
	entry, ok := c[folderID]
	return ok && entry != nil && entry.ModifiedTime == modifiedTime
}

// AddFile records f under fileID unless the id is already present.
// It reports whether the file was added.
func (e *Entry) AddFile(fileID string, f *File) bool {
	if e.Files == nil {
		e.Files = make(map[string]*File)
	}
	if _, exists := e.Files[fileID]; exists {
		return false
	}
	e.Files[fileID] = f
	return true
}

// FileCount returns the total number of cached files across all folders
func (c Cache) FileCount() int {
	n := 0
	for _, entry := range c {
		if entry != nil {
			n += len(entry.Files)
		}
	}
	return n
}

// StringPtr returns nil for an empty string, otherwise a pointer to s
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
