package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ramonehamilton/crafting-profit/internal/storage/repository"
)

// ErrNoSnapshot is returned when no complete dataset snapshot has been stored.
var ErrNoSnapshot = errors.New("no stored snapshot")

// Setting keys
const (
	KeyTheme            = "theme"
	KeyAutomaticRefresh = "automaticRefresh"
	KeyCraftsPrice      = "craftsPrice"
	KeyCostPrice        = "costPrice"
)

// Preferences are the user choices that survive a restart.
type Preferences struct {
	Theme            string `json:"theme"`
	AutomaticRefresh bool   `json:"automaticRefresh"`
	CraftsPrice      string `json:"craftsPrice"`
	CostPrice        string `json:"costPrice"`
}

// Snapshot is the pair of raw payloads written by one refresh run.
type Snapshot struct {
	RunID        string
	LastModified time.Time
	CreatedAt    time.Time
	Auctions     []byte
	Data         []byte
}

// Service provides high-level persistence operations.
type Service struct {
	db        *DB
	settings  repository.SettingsRepository
	snapshots repository.SnapshotRepository
	retention int
}

// NewService creates a storage service keeping retention snapshots per kind.
func NewService(db *DB, retention int) *Service {
	if retention < 1 {
		retention = 1
	}
	return &Service{
		db:        db,
		settings:  repository.NewSettingsRepository(db.Conn()),
		snapshots: repository.NewSnapshotRepository(db.Conn()),
		retention: retention,
	}
}

// Settings returns the settings repository.
func (s *Service) Settings() repository.SettingsRepository {
	return s.settings
}

// LoadPreferences returns defaults overlaid with every stored preference.
func (s *Service) LoadPreferences(ctx context.Context, defaults Preferences) (Preferences, error) {
	p := defaults
	targets := map[string]interface{}{
		KeyTheme:            &p.Theme,
		KeyAutomaticRefresh: &p.AutomaticRefresh,
		KeyCraftsPrice:      &p.CraftsPrice,
		KeyCostPrice:        &p.CostPrice,
	}
	for key, target := range targets {
		err := s.settings.Get(ctx, key, target)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return defaults, err
		}
	}
	return p, nil
}

// SavePreferences stores every preference in one transaction.
func (s *Service) SavePreferences(ctx context.Context, p Preferences) error {
	return s.settings.SetMany(ctx, map[string]interface{}{
		KeyTheme:            p.Theme,
		KeyAutomaticRefresh: p.AutomaticRefresh,
		KeyCraftsPrice:      p.CraftsPrice,
		KeyCostPrice:        p.CostPrice,
	})
}

// SaveSnapshot stores both payloads of a refresh run atomically and prunes
// old runs beyond the retention limit.
func (s *Service) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		repo := s.snapshots.WithTx(tx)
		payloads := map[string][]byte{
			repository.KindAuctions: snap.Auctions,
			repository.KindData:     snap.Data,
		}
		for kind, payload := range payloads {
			err := repo.Create(ctx, &repository.DatasetSnapshot{
				RunID:        snap.RunID,
				Kind:         kind,
				LastModified: snap.LastModified,
				Payload:      payload,
				CreatedAt:    snap.CreatedAt,
			})
			if err != nil {
				return err
			}
			if _, err := repo.Prune(ctx, kind, s.retention); err != nil {
				return err
			}
		}
		return nil
	})
}

// LatestSnapshot returns the newest run that stored both payloads.
func (s *Service) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	runID, err := s.snapshots.LatestRunID(ctx, repository.KindAuctions, repository.KindData)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	auctions, err := s.snapshots.GetByRun(ctx, runID, repository.KindAuctions)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	data, err := s.snapshots.GetByRun(ctx, runID, repository.KindData)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	return &Snapshot{
		RunID:        runID,
		LastModified: auctions.LastModified,
		CreatedAt:    auctions.CreatedAt,
		Auctions:     auctions.Payload,
		Data:         data.Payload,
	}, nil
}

// Close closes the underlying database.
func (s *Service) Close() error {
	return s.db.Close()
}
