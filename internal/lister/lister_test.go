package lister

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/dl-alexandre/driveshelf/internal/api"
	"github.com/dl-alexandre/driveshelf/internal/testing/drivefake"
	"github.com/dl-alexandre/driveshelf/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLister(t *testing.T, fake *drivefake.Server) *Lister {
	t.Helper()
	return New(api.NewClient(fake.Service(t), 0, 1, nil))
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr), "expected *utils.AppError, got %T", err)
	assert.Equal(t, code, appErr.CLIError.Code)
}

func TestListFolders_Pagination(t *testing.T) {
	fake := drivefake.New(t)
	fake.SetPageSize(2)
	fake.Add("root",
		drivefake.Folder("F2", "Zeta", "2024-01-02T00:00:00Z"),
		drivefake.Folder("F1", "Alpha", "2024-01-01T00:00:00Z"),
		drivefake.File("x", "loose.txt", "text/plain", "2024-01-01T00:00:00Z"),
		drivefake.Folder("F3", "Mid", "2024-01-03T00:00:00Z"),
	)
	l := newTestLister(t, fake)

	folders, err := l.ListFolders(context.Background(), "root")
	require.NoError(t, err)
	require.Len(t, folders, 3)
	assert.Equal(t, []string{"F2", "F1", "F3"}, []string{folders[0].ID, folders[1].ID, folders[2].ID})
	assert.Equal(t, "Alpha", folders[1].Name)
	assert.Equal(t, "2024-01-03T00:00:00Z", folders[2].ModifiedTime)

	calls := fake.Listings()
	require.Len(t, calls, 2)
	assert.Equal(t, "'root' in parents and mimeType='application/vnd.google-apps.folder' and trashed=false", calls[0].Query)
	assert.Contains(t, calls[0].Fields, "files(id, name, modifiedTime)")
	assert.Empty(t, calls[0].PageToken)
	assert.Equal(t, "2", calls[1].PageToken)
}

func TestListFiles(t *testing.T) {
	fake := drivefake.New(t)
	thumb := drivefake.File("t1", "thumbnail.png", "image/png", "2024-01-01T00:00:00Z")
	thumb.ThumbnailLink = "https://thumb/t1"
	summary := drivefake.File("s1", "summary.txt", "text/plain", "2024-01-01T00:00:00Z")
	summary.WebViewLink = "https://view/s1"
	summary.ResourceKey = "0-abc"
	fake.Add("F1", thumb, summary)
	l := newTestLister(t, fake)

	files, err := l.ListFiles(context.Background(), "F1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "https://thumb/t1", files[0].ThumbnailLink)
	assert.Empty(t, files[0].WebViewLink)
	assert.Equal(t, "image/png", files[0].MimeType)
	assert.Equal(t, "https://view/s1", files[1].WebViewLink)
	assert.Equal(t, "0-abc", files[1].ResourceKey)

	calls := fake.Listings()
	require.Len(t, calls, 1)
	assert.Equal(t, "'F1' in parents and trashed=false", calls[0].Query)
	assert.Contains(t, calls[0].Fields, "resourceKey")

	key, ok := l.client.ResourceKeys().GetKey("s1")
	assert.True(t, ok)
	assert.Equal(t, "0-abc", key)
}

func TestListFiles_Empty(t *testing.T) {
	l := newTestLister(t, drivefake.New(t))
	files, err := l.ListFiles(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListFolders_ErrorClassified(t *testing.T) {
	fake := drivefake.New(t)
	fake.Fail("root", http.StatusNotFound)
	l := newTestLister(t, fake)

	_, err := l.ListFolders(context.Background(), "root")
	requireCode(t, err, utils.ErrCodeFileNotFound)
}

func TestReadTextContent(t *testing.T) {
	fake := drivefake.New(t)
	summary := drivefake.File("s1", "summary.txt", "text/plain", "2024-01-01T00:00:00Z")
	summary.ResourceKey = "0-abc"
	fake.Add("F1", summary)
	fake.SetContent("s1", "hello")
	fake.SetContent("plain", "héllo wörld")
	l := newTestLister(t, fake)

	_, err := l.ListFiles(context.Background(), "F1")
	require.NoError(t, err)

	text, err := l.ReadTextContent(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	text, err = l.ReadTextContent(context.Background(), "plain")
	require.NoError(t, err)
	assert.Equal(t, "héllo wörld", text)

	downloads := fake.Downloads()
	require.Len(t, downloads, 2)
	assert.Equal(t, "s1", downloads[0].FileID)
	assert.Equal(t, "s1/0-abc", downloads[0].ResourceKey)
	assert.Empty(t, downloads[1].ResourceKey)
}

func TestReadTextContent_Errors(t *testing.T) {
	fake := drivefake.New(t)
	fake.SetContent("bin", string([]byte{0xff, 0xfe, 0x00}))
	fake.SetContent("big", strings.Repeat("a", 64))
	fake.Fail("denied", http.StatusForbidden)
	l := newTestLister(t, fake)
	l.maxBodySize = 32

	tests := []struct {
		id   string
		code string
	}{
		{"bin", utils.ErrCodeInvalidEncoding},
		{"big", utils.ErrCodeContentTooLarge},
		{"denied", utils.ErrCodePermissionDenied},
		{"missing", utils.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := l.ReadTextContent(context.Background(), tt.id)
			requireCode(t, err, tt.code)
		})
	}
}

func TestReadTextContent_LargeSummaryWithinDefaultCap(t *testing.T) {
	fake := drivefake.New(t)
	body := strings.Repeat("summary line\n", 200_000)
	fake.SetContent("big", body)
	l := newTestLister(t, fake)

	text, err := l.ReadTextContent(context.Background(), "big")
	require.NoError(t, err)
	assert.Len(t, text, len(body))
	assert.Greater(t, len(text), 2*1024*1024)
}
