package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SettingsRepository stores user settings as JSON values keyed by name.
type SettingsRepository interface {
	// Get unmarshals the value stored under key into target.
	// Returns ErrNotFound if the key was never set.
	Get(ctx context.Context, key string, target interface{}) error

	// Set JSON-encodes value and stores it under key.
	Set(ctx context.Context, key string, value interface{}) error

	// SetMany stores several settings in one transaction.
	SetMany(ctx context.Context, settings map[string]interface{}) error

	// All returns every stored setting as raw JSON.
	All(ctx context.Context) (map[string]json.RawMessage, error)

	// Delete removes a setting.
	Delete(ctx context.Context, key string) error
}

const upsertSetting = `
	INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, key string, target interface{}) error {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), target); err != nil {
		return fmt.Errorf("failed to unmarshal setting %s: %w", key, err)
	}
	return nil
}

func (r *settingsRepository) Set(ctx context.Context, key string, value interface{}) error {
	return setSetting(ctx, r.db, key, value, time.Now())
}

func (r *settingsRepository) SetMany(ctx context.Context, settings map[string]interface{}) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after Commit
	}()

	now := time.Now()
	for key, value := range settings {
		if err := setSetting(ctx, tx, key, value, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func setSetting(ctx context.Context, db DBTX, key string, value interface{}, now time.Time) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal setting %s: %w", key, err)
	}
	if _, err := db.ExecContext(ctx, upsertSetting, key, string(jsonValue), now); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

func (r *settingsRepository) All(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	settings := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}
	return settings, nil
}

func (r *settingsRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}
