package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Snapshot kinds
const (
	KindAuctions = "auctions"
	KindData     = "data"
)

// DatasetSnapshot is one raw upstream payload captured by a refresh run.
type DatasetSnapshot struct {
	ID           int64
	RunID        string
	Kind         string
	LastModified time.Time
	Payload      []byte
	CreatedAt    time.Time
}

// SnapshotRepository stores raw dataset payloads so the last good ranking
// can be rebuilt after a restart.
type SnapshotRepository interface {
	// Create stores a snapshot. CreatedAt defaults to now.
	Create(ctx context.Context, s *DatasetSnapshot) error

	// Latest returns the newest snapshot of kind, or ErrNotFound.
	Latest(ctx context.Context, kind string) (*DatasetSnapshot, error)

	// GetByRun returns the snapshot of kind written by runID, or ErrNotFound.
	GetByRun(ctx context.Context, runID, kind string) (*DatasetSnapshot, error)

	// LatestRunID returns the newest run that stored every given kind.
	LatestRunID(ctx context.Context, kinds ...string) (string, error)

	// Prune deletes all but the newest keep snapshots of kind.
	Prune(ctx context.Context, kind string, keep int) (int64, error)

	// Count returns the number of stored snapshots of kind.
	Count(ctx context.Context, kind string) (int, error)

	// WithTx returns a repository bound to tx.
	WithTx(tx *sql.Tx) SnapshotRepository
}

type snapshotRepository struct {
	db DBTX
}

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(db *sql.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) WithTx(tx *sql.Tx) SnapshotRepository {
	return &snapshotRepository{db: tx}
}

func (r *snapshotRepository) Create(ctx context.Context, s *DatasetSnapshot) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO dataset_snapshots (run_id, kind, last_modified, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, s.RunID, s.Kind, s.LastModified.UTC(), s.Payload, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create %s snapshot: %w", s.Kind, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get snapshot id: %w", err)
	}
	s.ID = id
	return nil
}

const selectSnapshot = `
	SELECT id, run_id, kind, last_modified, payload, created_at
	FROM dataset_snapshots
`

func (r *snapshotRepository) Latest(ctx context.Context, kind string) (*DatasetSnapshot, error) {
	row := r.db.QueryRowContext(ctx, selectSnapshot+`
		WHERE kind = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, kind)
	return scanSnapshot(row, kind)
}

func (r *snapshotRepository) GetByRun(ctx context.Context, runID, kind string) (*DatasetSnapshot, error) {
	row := r.db.QueryRowContext(ctx, selectSnapshot+`
		WHERE run_id = ? AND kind = ?
	`, runID, kind)
	return scanSnapshot(row, kind)
}

func scanSnapshot(row *sql.Row, kind string) (*DatasetSnapshot, error) {
	s := &DatasetSnapshot{}
	err := row.Scan(&s.ID, &s.RunID, &s.Kind, &s.LastModified, &s.Payload, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s snapshot: %w", kind, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s snapshot: %w", kind, err)
	}
	return s, nil
}

func (r *snapshotRepository) LatestRunID(ctx context.Context, kinds ...string) (string, error) {
	if len(kinds) == 0 {
		return "", fmt.Errorf("at least one kind is required")
	}

	query := `
		SELECT run_id FROM dataset_snapshots
		WHERE kind IN (?` + strings.Repeat(", ?", len(kinds)-1) + `)
		GROUP BY run_id
		HAVING COUNT(DISTINCT kind) = ?
		ORDER BY MAX(created_at) DESC, MAX(id) DESC
		LIMIT 1
	`
	args := make([]interface{}, 0, len(kinds)+1)
	for _, k := range kinds {
		args = append(args, k)
	}
	args = append(args, len(kinds))

	var runID string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("complete run: %w", ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to find latest run: %w", err)
	}
	return runID, nil
}

func (r *snapshotRepository) Prune(ctx context.Context, kind string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM dataset_snapshots
		WHERE kind = ? AND id NOT IN (
			SELECT id FROM dataset_snapshots
			WHERE kind = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
	`, kind, kind, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune %s snapshots: %w", kind, err)
	}
	return result.RowsAffected()
}

func (r *snapshotRepository) Count(ctx context.Context, kind string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dataset_snapshots WHERE kind = ?", kind).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s snapshots: %w", kind, err)
	}
	return n, nil
}
