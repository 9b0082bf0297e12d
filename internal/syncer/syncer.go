// Package syncer merges the remote folder listing into the on-disk cache.
//
// Staleness is decided per folder: a folder whose modifiedTime equals the
// cached value is skipped entirely, so a file changed without bumping its
// parent folder's modifiedTime is not picked up. That limitation is kept
// intentionally and covered by tests.
package syncer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dl-alexandre/driveshelf/internal/cache"
	"github.com/dl-alexandre/driveshelf/internal/logging"
	"github.com/dl-alexandre/driveshelf/internal/types"
	"github.com/dl-alexandre/driveshelf/internal/utils"
	"github.com/google/uuid"
)

// Lister is the remote side of a sync pass
type Lister interface {
	ListFolders(ctx context.Context, parentID string) ([]types.RemoteFolder, error)
	ListFiles(ctx context.Context, folderID string) ([]types.RemoteFile, error)
	ReadTextContent(ctx context.Context, fileID string) (string, error)
}

// Options configures a Synchronizer
type Options struct {
	RootFolderID  string
	ExcludeFolder string
}

// Report summarizes one sync run
type Report struct {
	RunID         string    `json:"runId"`
	RootFolderID  string    `json:"rootFolderId"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	FoldersSeen   int       `json:"foldersSeen"`
	Excluded      int       `json:"excluded"`
	Unchanged     int       `json:"unchanged"`
	Rescanned     int       `json:"rescanned"`
	FilesRecorded int       `json:"filesRecorded"`
	SummariesRead int       `json:"summariesRead"`
	ListingErrors int       `json:"listingErrors"`
	ContentErrors int       `json:"contentErrors"`
	CachePath     string    `json:"cachePath"`
	CachedFolders int       `json:"cachedFolders"`
}

// Duration returns how long the run took
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Synchronizer runs incremental sync passes
type Synchronizer struct {
	lister Lister
	store  *cache.Store
	opts   Options
	logger logging.Logger
	now    func() time.Time
}

// New creates a synchronizer
func New(lister Lister, store *cache.Store, opts Options, logger logging.Logger) *Synchronizer {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if opts.ExcludeFolder == "" {
		opts.ExcludeFolder = utils.DefaultExcludedFolderName
	}
	return &Synchronizer{
		lister: lister,
		store:  store,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Run performs one pass: load the cache, rebuild every changed folder,
// and save. Listing and content failures are logged and degrade to empty
// or absent data. A failed save is returned as an error, and so is a
// cancelled ctx, in which case nothing is written.
func (s *Synchronizer) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:        uuid.New().String(),
		RootFolderID: s.opts.RootFolderID,
		StartedAt:    s.now().UTC(),
		CachePath:    s.store.Path(),
	}
	logger := s.logger.WithTraceID(report.RunID)
	ctx = logging.ContextWithTraceID(ctx, report.RunID)

	logger.Info("Sync started",
		logging.F("utcTime", report.StartedAt.Format(time.RFC3339Nano)),
		logging.F("rootFolderId", s.opts.RootFolderID),
	)

	c := s.store.Load()

	folders, err := s.lister.ListFolders(ctx, s.opts.RootFolderID)
	if err != nil {
		report.ListingErrors++
		logger.Error("Listing folders failed, treating as empty",
			logging.F("rootFolderId", s.opts.RootFolderID),
			logging.F("error", err.Error()),
		)
		folders = nil
	}

	for _, folder := range folders {
		if ctx.Err() != nil {
			break
		}
		report.FoldersSeen++
		s.syncFolder(ctx, logger, c, folder, report)
	}

	// failures caused by cancellation look like empty listings; saving them
	// would stamp rebuilt folders as current with their files missing
	if err := ctx.Err(); err != nil {
		report.FinishedAt = s.now().UTC()
		logger.Warn("Sync cancelled, cache left unchanged",
			logging.F("path", s.store.Path()),
			logging.F("error", err.Error()),
		)
		return report, cancelledError(err)
	}

	report.CachedFolders = len(c)
	if err := s.store.Save(c); err != nil {
		report.FinishedAt = s.now().UTC()
		logger.Error("Saving cache failed",
			logging.F("path", s.store.Path()),
			logging.F("error", err.Error()),
		)
		return report, err
	}

	report.FinishedAt = s.now().UTC()
	logger.Info("Sync finished",
		logging.F("foldersSeen", report.FoldersSeen),
		logging.F("rescanned", report.Rescanned),
		logging.F("unchanged", report.Unchanged),
		logging.F("excluded", report.Excluded),
		logging.F("filesRecorded", report.FilesRecorded),
		logging.F("duration_ms", report.Duration().Milliseconds()),
	)
	return report, nil
}

func (s *Synchronizer) syncFolder(ctx context.Context, logger logging.Logger, c cache.Cache, folder types.RemoteFolder, report *Report) {
	if folder.Name == s.opts.ExcludeFolder {
		report.Excluded++
		logger.Info("Skipping folder", logging.F("folder", folder.Name))
		return
	}

	if c.IsCurrent(folder.ID, folder.ModifiedTime) {
		report.Unchanged++
		logger.Info("Skipping unmodified folder", logging.F("folder", folder.Name))
		return
	}

	report.Rescanned++
	logger.Info("Processing folder",
		logging.F("folder", folder.Name),
		logging.F("folderId", folder.ID),
	)

	entry := cache.NewEntry(folder.Name, folder.ModifiedTime)
	c[folder.ID] = entry

	files, err := s.lister.ListFiles(ctx, folder.ID)
	if err != nil {
		report.ListingErrors++
		logger.Error("Listing files failed, treating folder as empty",
			logging.F("folderId", folder.ID),
			logging.F("error", err.Error()),
		)
		files = nil
	}

	thumbnail := findThumbnailLink(files)

	for _, f := range files {
		record := &cache.File{
			Name:          f.Name,
			MimeType:      f.MimeType,
			ModifiedTime:  f.ModifiedTime,
			ThumbnailLink: thumbnail,
			WebViewLink:   cache.StringPtr(f.WebViewLink),
		}

		switch {
		case f.Name == utils.SummaryFileName:
			s.attachSummary(ctx, logger, folder, f, record, report)
		case f.MimeType == utils.MimeTypePDF:
			logger.Info("Found PDF",
				logging.F("folder", folder.Name),
				logging.F("fileId", f.ID),
				logging.F("name", f.Name),
				logging.F("previewImage", derefOr(thumbnail, "none")),
				logging.F("webViewLink", derefOr(record.WebViewLink, "none")),
			)
		}

		if entry.AddFile(f.ID, record) {
			report.FilesRecorded++
		}
	}
}

func (s *Synchronizer) attachSummary(ctx context.Context, logger logging.Logger, folder types.RemoteFolder, f types.RemoteFile, record *cache.File, report *Report) {
	logger.Info("Found summary", logging.F("folder", folder.Name), logging.F("fileId", f.ID))

	content, err := s.lister.ReadTextContent(ctx, f.ID)
	if err != nil {
		report.ContentErrors++
		logger.Warn("Reading summary failed, leaving content absent",
			logging.F("folder", folder.Name),
			logging.F("fileId", f.ID),
			logging.F("error", err.Error()),
		)
		return
	}
	if content == "" {
		logger.Warn("Summary is empty, leaving content absent",
			logging.F("folder", folder.Name),
			logging.F("fileId", f.ID),
		)
		return
	}

	report.SummariesRead++
	record.Content = &content
	logger.Debug("Summary read",
		logging.F("folder", folder.Name),
		logging.F("bytes", len(content)),
	)
}

// findThumbnailLink returns the preview link of the first file whose name
// starts with "thumbnail". The link may be absent even when such a file
// exists.
func findThumbnailLink(files []types.RemoteFile) *string {
	for _, f := range files {
		if strings.HasPrefix(f.Name, utils.ThumbnailNamePrefix) {
			return cache.StringPtr(f.ThumbnailLink)
		}
	}
	return nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func cancelledError(err error) error {
	code := utils.ErrCodeCancelled
	if errors.Is(err, context.DeadlineExceeded) {
		code = utils.ErrCodeTimeout
	}
	return utils.WrapAppError(utils.NewCLIError(code, "sync interrupted before the cache was saved").Build(), err)
}
