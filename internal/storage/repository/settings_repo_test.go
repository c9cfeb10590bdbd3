package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func setupSettingsTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		t.Fatalf("Failed to create settings table: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSettingsRepository_SetAndGet(t *testing.T) {
	repo := NewSettingsRepository(setupSettingsTestDB(t))
	ctx := context.Background()

	if err := repo.Set(ctx, "theme", "https://example.test/dark.css"); err != nil {
		t.Fatalf("Failed to set string value: %v", err)
	}

	var theme string
	if err := repo.Get(ctx, "theme", &theme); err != nil {
		t.Fatalf("Failed to get string value: %v", err)
	}
	if theme != "https://example.test/dark.css" {
		t.Errorf("Expected dark theme, got '%s'", theme)
	}
}

func TestSettingsRepository_Overwrite(t *testing.T) {
	repo := NewSettingsRepository(setupSettingsTestDB(t))
	ctx := context.Background()

	if err := repo.Set(ctx, "automaticRefresh", false); err != nil {
		t.Fatal(err)
	}
	if err := repo.Set(ctx, "automaticRefresh", true); err != nil {
		t.Fatal(err)
	}

	var automatic bool
	if err := repo.Get(ctx, "automaticRefresh", &automatic); err != nil {
		t.Fatal(err)
	}
	if !automatic {
		t.Error("Expected overwritten value true")
	}
}

func TestSettingsRepository_GetMissing(t *testing.T) {
	repo := NewSettingsRepository(setupSettingsTestDB(t))

	var v string
	err := repo.Get(context.Background(), "missing", &v)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSettingsRepository_SetManyAndAll(t *testing.T) {
	repo := NewSettingsRepository(setupSettingsTestDB(t))
	ctx := context.Background()

	err := repo.SetMany(ctx, map[string]interface{}{
		"craftsPrice": "mean",
		"costPrice":   "lowest",
		"fee":         500,
	})
	if err != nil {
		t.Fatalf("SetMany failed: %v", err)
	}

	all, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 settings, got %d", len(all))
	}
	if string(all["craftsPrice"]) != `"mean"` {
		t.Errorf("Expected raw JSON \"mean\", got %s", all["craftsPrice"])
	}
	if string(all["fee"]) != "500" {
		t.Errorf("Expected raw JSON 500, got %s", all["fee"])
	}
}

func TestSettingsRepository_Delete(t *testing.T) {
	repo := NewSettingsRepository(setupSettingsTestDB(t))
	ctx := context.Background()

	if err := repo.Set(ctx, "theme", "x"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, "theme"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var theme string
	if err := repo.Get(ctx, "theme", &theme); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
