package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupSnapshotTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS dataset_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			last_modified DATETIME NOT NULL,
			payload BLOB NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (run_id, kind)
		)
	`)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createSnapshot(t *testing.T, repo SnapshotRepository, runID, kind string, created time.Time) *DatasetSnapshot {
	t.Helper()
	s := &DatasetSnapshot{
		RunID:        runID,
		Kind:         kind,
		LastModified: created.Add(-time.Minute),
		Payload:      []byte(`{"run":"` + runID + `"}`),
		CreatedAt:    created,
	}
	require.NoError(t, repo.Create(context.Background(), s))
	return s
}

func TestSnapshotRepository_CreateAndLatest(t *testing.T) {
	repo := NewSnapshotRepository(setupSnapshotTestDB(t))
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := createSnapshot(t, repo, "run-1", KindAuctions, base)
	assert.NotZero(t, first.ID)
	createSnapshot(t, repo, "run-2", KindAuctions, base.Add(time.Hour))
	createSnapshot(t, repo, "run-2", KindData, base.Add(time.Hour))

	latest, err := repo.Latest(context.Background(), KindAuctions)
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.RunID)
	assert.Equal(t, KindAuctions, latest.Kind)
	assert.Equal(t, `{"run":"run-2"}`, string(latest.Payload))
	assert.True(t, latest.LastModified.Equal(base.Add(59*time.Minute)))
}

func TestSnapshotRepository_LatestMissing(t *testing.T) {
	repo := NewSnapshotRepository(setupSnapshotTestDB(t))

	_, err := repo.Latest(context.Background(), KindData)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotRepository_LatestRunID_RequiresAllKinds(t *testing.T) {
	repo := NewSnapshotRepository(setupSnapshotTestDB(t))
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	createSnapshot(t, repo, "complete", KindAuctions, base)
	createSnapshot(t, repo, "complete", KindData, base)
	// A newer run that only stored auctions is not a complete snapshot.
	createSnapshot(t, repo, "partial", KindAuctions, base.Add(time.Hour))

	runID, err := repo.LatestRunID(ctx, KindAuctions, KindData)
	require.NoError(t, err)
	assert.Equal(t, "complete", runID)

	data, err := repo.GetByRun(ctx, runID, KindData)
	require.NoError(t, err)
	assert.Equal(t, "complete", data.RunID)

	_, err = repo.GetByRun(ctx, "partial", KindData)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshotRepository_Prune(t *testing.T) {
	repo := NewSnapshotRepository(setupSnapshotTestDB(t))
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c", "d"} {
		createSnapshot(t, repo, id, KindAuctions, base.Add(time.Duration(i)*time.Hour))
	}
	createSnapshot(t, repo, "a", KindData, base)

	deleted, err := repo.Prune(ctx, KindAuctions, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := repo.Count(ctx, KindAuctions)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	latest, err := repo.Latest(ctx, KindAuctions)
	require.NoError(t, err)
	assert.Equal(t, "d", latest.RunID)

	// Other kinds are untouched.
	count, err = repo.Count(ctx, KindData)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSnapshotRepository_WithTxRollback(t *testing.T) {
	db := setupSnapshotTestDB(t)
	repo := NewSnapshotRepository(db)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	createSnapshot(t, repo.WithTx(tx), "run-1", KindAuctions, time.Now())
	require.NoError(t, tx.Rollback())

	count, err := repo.Count(ctx, KindAuctions)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
