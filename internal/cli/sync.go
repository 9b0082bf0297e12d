package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dl-alexandre/driveshelf/internal/cache"
	"github.com/dl-alexandre/driveshelf/internal/history"
	"github.com/dl-alexandre/driveshelf/internal/lister"
	"github.com/dl-alexandre/driveshelf/internal/logging"
	"github.com/dl-alexandre/driveshelf/internal/syncer"
	"github.com/dl-alexandre/driveshelf/internal/types"
	"github.com/dl-alexandre/driveshelf/internal/utils"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the cache from Drive",
	Long: `Lists the subfolders of the root folder and rebuilds the cache entry of
every folder whose modifiedTime changed since the last run. Folders with an
unchanged modifiedTime are skipped, even if files inside them changed.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	flags := syncCmd.Flags()
	flags.String("root-folder", "", "Drive folder whose subfolders are indexed")
	flags.String("cache", "", "Path to the JSON cache file")
	flags.String("exclude-folder", "", "Subfolder name to skip")
	flags.String("history", "", "Path to the sqlite run history (empty disables it)")
	flags.String("credentials", "", "Path to the service account key file")
	flags.String("credentials-source", "", "Where to read the key from (file, keyring)")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := newOutputWriter(cmd)
	cfg := appConfig

	if err := cfg.ValidateForSync(); err != nil {
		return handleError(out, "sync", err)
	}

	client, err := driveClientFactory(ctx, cfg)
	if err != nil {
		return handleError(out, "sync", err)
	}

	store := cache.NewStore(cfg.CachePath, logger)
	s := syncer.New(lister.New(client), store, syncer.Options{
		RootFolderID:  cfg.RootFolderID,
		ExcludeFolder: cfg.ExcludeFolder,
	}, logger)

	report, runErr := s.Run(ctx)
	recordRun(ctx, cfg.HistoryPath, report, runErr)

	out.WithTraceID(report.RunID)
	if runErr != nil {
		return handleError(out, "sync", runErr)
	}
	if report.ListingErrors > 0 {
		out.AddWarning(utils.ErrCodeListingIncomplete,
			fmt.Sprintf("%d listing(s) failed; folders whose files could not be listed were cached with no files and are rescanned only after their modifiedTime changes", report.ListingErrors), "warning")
	}
	if report.ContentErrors > 0 {
		out.AddWarning(utils.ErrCodeSummaryUnreadable,
			fmt.Sprintf("%d summary file(s) could not be read; cached without content", report.ContentErrors), "warning")
	}
	out.Log("Cache written to %s (%d folders)", report.CachePath, report.CachedFolders)
	return out.WriteSuccess("sync", &syncReportView{report})
}

// recordRun appends the run to the history database. Failures are logged
// and never fail the sync.
func recordRun(ctx context.Context, path string, report *syncer.Report, runErr error) {
	if path == "" || report == nil {
		return
	}

	db, err := history.Open(path)
	if err != nil {
		logger.Warn("Opening run history failed", logging.F("path", path), logging.F("error", err.Error()))
		return
	}
	defer db.Close()

	run := history.Run{
		ID:            report.RunID,
		RootFolderID:  report.RootFolderID,
		StartedAt:     report.StartedAt,
		FinishedAt:    report.FinishedAt,
		FoldersSeen:   report.FoldersSeen,
		Excluded:      report.Excluded,
		Unchanged:     report.Unchanged,
		Rescanned:     report.Rescanned,
		FilesRecorded: report.FilesRecorded,
		SummariesRead: report.SummariesRead,
		ListingErrors: report.ListingErrors,
		ContentErrors: report.ContentErrors,
		Status:        history.StatusOK,
	}
	if runErr != nil {
		run.Status = history.StatusFailed
		run.Error = runErr.Error()
	}

	// the run is recorded even if the command context was cancelled
	if err := db.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("Recording run history failed", logging.F("path", path), logging.F("error", err.Error()))
	}
}

type syncReportView struct {
	*syncer.Report
}

func (v *syncReportView) AsTableRenderer() types.TableRenderer {
	return &syncReportTable{v.Report}
}

type syncReportTable struct {
	r *syncer.Report
}

func (t *syncReportTable) Headers() []string {
	return []string{"Metric", "Value"}
}

func (t *syncReportTable) Rows() [][]string {
	r := t.r
	return [][]string{
		{"Run ID", r.RunID},
		{"Cache", r.CachePath},
		{"Folders seen", strconv.Itoa(r.FoldersSeen)},
		{"Rescanned", strconv.Itoa(r.Rescanned)},
		{"Unchanged", strconv.Itoa(r.Unchanged)},
		{"Excluded", strconv.Itoa(r.Excluded)},
		{"Files recorded", strconv.Itoa(r.FilesRecorded)},
		{"Summaries read", strconv.Itoa(r.SummariesRead)},
		{"Listing errors", strconv.Itoa(r.ListingErrors)},
		{"Content errors", strconv.Itoa(r.ContentErrors)},
		{"Cached folders", strconv.Itoa(r.CachedFolders)},
		{"Duration", fmt.Sprintf("%dms", r.Duration().Milliseconds())},
	}
}

func (t *syncReportTable) EmptyMessage() string {
	return "No sync report"
}
