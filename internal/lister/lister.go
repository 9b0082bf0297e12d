package lister

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/dl-alexandre/driveshelf/internal/api"
	"github.com/dl-alexandre/driveshelf/internal/logging"
	"github.com/dl-alexandre/driveshelf/internal/types"
	"github.com/dl-alexandre/driveshelf/internal/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const (
	folderFields googleapi.Field = "nextPageToken, files(id, name, modifiedTime)"
	fileFields   googleapi.Field = "nextPageToken, files(id, name, mimeType, thumbnailLink, webViewLink, modifiedTime, resourceKey)"
)

// Lister enumerates one level of a Drive folder tree
type Lister struct {
	client      *api.Client
	maxBodySize int64
	logger      logging.Logger
}

// New creates a lister over client
func New(client *api.Client) *Lister {
	return &Lister{
		client:      client,
		maxBodySize: utils.MaxTextContentBytes,
		logger:      client.Logger(),
	}
}

// ListFolders returns the non-trashed folders directly under parentID, in
// the order the service reports them
func (l *Lister) ListFolders(ctx context.Context, parentID string) ([]types.RemoteFolder, error) {
	reqCtx := api.NewRequestContext(types.RequestTypeListOrSearch)
	reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, parentID)

	query := fmt.Sprintf("'%s' in parents and mimeType='%s' and trashed=false", parentID, utils.MimeTypeFolder)

	var folders []types.RemoteFolder
	err := l.eachPage(ctx, reqCtx, query, folderFields, func(f *drive.File) {
		folders = append(folders, types.RemoteFolder{
			ID:           f.Id,
			Name:         f.Name,
			ModifiedTime: f.ModifiedTime,
		})
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// ListFiles returns the non-trashed items directly under folderID.
// Resource keys seen here are remembered for later content reads.
func (l *Lister) ListFiles(ctx context.Context, folderID string) ([]types.RemoteFile, error) {
	reqCtx := api.NewRequestContext(types.RequestTypeListOrSearch)
	reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, folderID)

	query := fmt.Sprintf("'%s' in parents and trashed=false", folderID)

	var files []types.RemoteFile
	err := l.eachPage(ctx, reqCtx, query, fileFields, func(f *drive.File) {
		files = append(files, types.RemoteFile{
			ID:            f.Id,
			Name:          f.Name,
			MimeType:      f.MimeType,
			ModifiedTime:  f.ModifiedTime,
			ThumbnailLink: f.ThumbnailLink,
			WebViewLink:   f.WebViewLink,
			ResourceKey:   f.ResourceKey,
		})
		l.client.ResourceKeys().UpdateFromAPIResponse(f.Id, f.ResourceKey)
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (l *Lister) eachPage(ctx context.Context, reqCtx *types.RequestContext, query string, fields googleapi.Field, visit func(*drive.File)) error {
	call := l.client.Service().Files.List().
		Q(query).
		PageSize(utils.ListPageSize).
		Fields(fields).
		Context(ctx)

	pages := 0
	for {
		list, err := api.ExecuteWithRetry(ctx, l.client, reqCtx, func() (*drive.FileList, error) {
			return call.Do()
		})
		if err != nil {
			return err
		}
		pages++
		for _, f := range list.Files {
			visit(f)
		}
		if list.NextPageToken == "" {
			break
		}
		call = call.PageToken(list.NextPageToken)
	}

	l.logger.Debug("Listing complete",
		logging.F("parentIds", reqCtx.InvolvedParentIDs),
		logging.F("pages", pages),
	)
	return nil
}

// ReadTextContent downloads fileID and returns its body as text. Bodies
// that are not valid UTF-8 or exceed the size cap are errors.
func (l *Lister) ReadTextContent(ctx context.Context, fileID string) (string, error) {
	reqCtx := api.NewRequestContext(types.RequestTypeDownload)
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)

	data, err := api.ExecuteWithRetry(ctx, l.client, reqCtx, func() ([]byte, error) {
		call := l.client.Service().Files.Get(fileID).Context(ctx)
		if header := l.client.ResourceKeys().BuildHeader(reqCtx.InvolvedFileIDs); header != "" {
			call.Header().Set(api.ResourceKeyHeader, header)
		}

		resp, err := call.Download()
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBodySize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read content of %s: %w", fileID, err)
		}
		return body, nil
	})
	if err != nil {
		return "", err
	}

	if int64(len(data)) > l.maxBodySize {
		return "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeContentTooLarge, "file content exceeds size limit").
			WithContext("fileId", fileID).
			WithContext("limit", l.maxBodySize).
			WithContext("traceId", reqCtx.TraceID).
			Build())
	}

	if !utf8.Valid(data) {
		return "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidEncoding, "file content is not valid UTF-8").
			WithContext("fileId", fileID).
			WithContext("traceId", reqCtx.TraceID).
			Build())
	}

	return string(data), nil
}
