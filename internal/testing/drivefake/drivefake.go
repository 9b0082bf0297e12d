// Package drivefake is an in-memory Drive v3 endpoint for tests. It answers
// files.list queries of the form "'<parent>' in parents ..." and media
// downloads, which is all the sync path issues.
package drivefake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/dl-alexandre/driveshelf/internal/api"
	"github.com/dl-alexandre/driveshelf/internal/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Request is one call observed by the fake.
type Request struct {
	// Set for listings
	Query     string
	Fields    string
	PageToken string

	// Set for media downloads
	FileID      string
	ResourceKey string
}

// Server holds folder children, media bodies and injected failures.
type Server struct {
	mu       sync.Mutex
	children map[string][]*drive.File
	media    map[string]string
	status   map[string]int
	pageSize int
	requests []Request

	srv *httptest.Server
}

// New starts a fake closed at test cleanup.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		children: make(map[string][]*drive.File),
		media:    make(map[string]string),
		status:   make(map[string]int),
	}
	s.srv = httptest.NewServer(s)
	t.Cleanup(s.srv.Close)
	return s
}

// Service returns a Drive client pointed at the fake.
func (s *Server) Service(t testing.TB) *drive.Service {
	t.Helper()
	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(s.srv.URL+"/"),
		option.WithHTTPClient(s.srv.Client()),
	)
	if err != nil {
		t.Fatalf("drivefake: creating service: %v", err)
	}
	return svc
}

// SetPageSize caps the number of files per listing page. Zero means no cap.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// Add appends children to parentID in listing order.
func (s *Server) Add(parentID string, files ...*drive.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[parentID] = append(s.children[parentID], files...)
}

// SetContent sets the media body returned for id.
func (s *Server) SetContent(id, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media[id] = body
}

// Fail makes listings of parent id, or downloads of file id, answer with
// the given HTTP status.
func (s *Server) Fail(id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = status
}

// Requests returns a copy of the calls seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Listings returns only the listing calls.
func (s *Server) Listings() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.FileID == "" {
			out = append(out, r)
		}
	}
	return out
}

// Downloads returns only the media calls.
func (s *Server) Downloads() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.FileID != "" {
			out = append(out, r)
		}
	}
	return out
}

type listResponse struct {
	Files         []*drive.File `json:"files"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := r.URL.Query()
	if query.Get("alt") == "media" {
		s.serveMedia(w, r)
		return
	}

	q := query.Get("q")
	s.requests = append(s.requests, Request{
		Query:     q,
		Fields:    query.Get("fields"),
		PageToken: query.Get("pageToken"),
	})

	parent, ok := parentFromQuery(q)
	if !ok {
		writeError(w, http.StatusBadRequest)
		return
	}
	if code, ok := s.status[parent]; ok {
		writeError(w, code)
		return
	}

	foldersOnly := strings.Contains(q, "mimeType='"+utils.MimeTypeFolder+"'")
	var matched []*drive.File
	for _, f := range s.children[parent] {
		if foldersOnly && f.MimeType != utils.MimeTypeFolder {
			continue
		}
		matched = append(matched, f)
	}

	start := 0
	if tok := query.Get("pageToken"); tok != "" {
		n, err := strconv.Atoi(tok)
		if err != nil || n < 0 || n > len(matched) {
			writeError(w, http.StatusBadRequest)
			return
		}
		start = n
	}
	end := len(matched)
	if s.pageSize > 0 && start+s.pageSize < end {
		end = start + s.pageSize
	}

	resp := listResponse{Files: matched[start:end]}
	if resp.Files == nil {
		resp.Files = []*drive.File{}
	}
	if end < len(matched) {
		resp.NextPageToken = strconv.Itoa(end)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) serveMedia(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	s.requests = append(s.requests, Request{
		FileID:      id,
		ResourceKey: r.Header.Get(api.ResourceKeyHeader),
	})

	if code, ok := s.status[id]; ok {
		writeError(w, code)
		return
	}
	body, ok := s.media[id]
	if !ok {
		writeError(w, http.StatusNotFound)
		return
	}
	_, _ = w.Write([]byte(body))
}

func parentFromQuery(q string) (string, bool) {
	if !strings.HasPrefix(q, "'") {
		return "", false
	}
	end := strings.Index(q, "' in parents")
	if end < 1 {
		return "", false
	}
	return q[1:end], true
}

func writeError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":"%s","errors":[{"reason":"fake"}]}}`,
		code, http.StatusText(code))
}

// Folder builds a folder entry.
func Folder(id, name, modifiedTime string) *drive.File {
	return &drive.File{
		Id:           id,
		Name:         name,
		MimeType:     utils.MimeTypeFolder,
		ModifiedTime: modifiedTime,
	}
}

// File builds a plain file entry. Links and resource keys are set by the
// caller on the returned value.
func File(id, name, mimeType, modifiedTime string) *drive.File {
	return &drive.File{
		Id:           id,
		Name:         name,
		MimeType:     mimeType,
		ModifiedTime: modifiedTime,
	}
}
