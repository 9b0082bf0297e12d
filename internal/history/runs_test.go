package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecordAndList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	first := Run{
		ID: "run-1", RootFolderID: "root", StartedAt: base, FinishedAt: base.Add(2 * time.Second),
		FoldersSeen: 3, Rescanned: 2, Unchanged: 1, FilesRecorded: 7, SummariesRead: 2, Status: StatusOK,
	}
	second := Run{
		ID: "run-2", RootFolderID: "root", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Second),
		ListingErrors: 1, Status: StatusFailed, Error: "cache write failed",
	}
	require.NoError(t, db.Record(ctx, first))
	require.NoError(t, db.Record(ctx, second))

	runs, err := db.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, second, runs[0])
	assert.Equal(t, first, runs[1])

	limited, err := db.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-2", limited[0].ID)
}

func TestRecord_DuplicateID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	run := Run{ID: "dup", RootFolderID: "root", StartedAt: time.Now(), FinishedAt: time.Now(), Status: StatusOK}

	require.NoError(t, db.Record(ctx, run))
	assert.Error(t, db.Record(ctx, run))
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	db, err := Open(path)
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, db.Record(ctx, Run{ID: "r", RootFolderID: "root", StartedAt: now, FinishedAt: now, Status: StatusOK}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	runs, err := db.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, now.Equal(runs[0].StartedAt))
}

func TestListEmpty(t *testing.T) {
	runs, err := openTestDB(t).List(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
