package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is the sync run log
type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	instance := &DB{db: db}
	if err := instance.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return instance, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	root_folder_id TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	folders_seen INTEGER NOT NULL DEFAULT 0,
	excluded INTEGER NOT NULL DEFAULT 0,
	unchanged INTEGER NOT NULL DEFAULT 0,
	rescanned INTEGER NOT NULL DEFAULT 0,
	files_recorded INTEGER NOT NULL DEFAULT 0,
	summaries_read INTEGER NOT NULL DEFAULT 0,
	listing_errors INTEGER NOT NULL DEFAULT 0,
	content_errors INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON sync_runs(started_at);
`
