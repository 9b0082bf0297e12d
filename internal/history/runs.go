package history

import (
	"context"
	"database/sql"
	"time"
)

// Run statuses
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one recorded sync pass
type Run struct {
	ID            string    `json:"id"`
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
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
}

func (d *DB) Record(ctx context.Context, run Run) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO sync_runs (
			id, root_folder_id, started_at, finished_at, folders_seen, excluded, unchanged, rescanned,
			files_recorded, summaries_read, listing_errors, content_errors, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.RootFolderID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.FoldersSeen, run.Excluded, run.Unchanged, run.Rescanned,
		run.FilesRecorded, run.SummariesRead, run.ListingErrors, run.ContentErrors,
		run.Status, nullString(run.Error))
	return err
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (d *DB) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, root_folder_id, started_at, finished_at, folders_seen, excluded, unchanged, rescanned,
			files_recorded, summaries_read, listing_errors, content_errors, status, error
		FROM sync_runs ORDER BY started_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished int64
		var errText sql.NullString
		if err := rows.Scan(&run.ID, &run.RootFolderID, &started, &finished,
			&run.FoldersSeen, &run.Excluded, &run.Unchanged, &run.Rescanned,
			&run.FilesRecorded, &run.SummariesRead, &run.ListingErrors, &run.ContentErrors,
			&run.Status, &errText); err != nil {
			return nil, err
		}
		run.StartedAt = time.UnixMilli(started).UTC()
		run.FinishedAt = time.UnixMilli(finished).UTC()
		run.Error = errText.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
