package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBackup(t *testing.T) {
	service := setupTestService(t, 3)
	ctx := context.Background()

	err := service.SaveSnapshot(ctx, &Snapshot{
		RunID:        "run-1",
		LastModified: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		CreatedAt:    time.Now().UTC(),
		Auctions:     []byte(`{"auctions":[]}`),
		Data:         []byte(`{"items":{},"recipes":{}}`),
	})
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "backups")
	info, err := service.Backup(ctx, dir, 0)
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	if _, err := os.Stat(info.Path); err != nil {
		t.Fatalf("Backup file was not created: %v", err)
	}
	if info.Size == 0 {
		t.Error("Expected a non-empty backup")
	}
	if len(info.Checksum) != 64 {
		t.Errorf("Expected a SHA-256 checksum, got %q", info.Checksum)
	}

	// The copy must contain the stored snapshot.
	db, err := Open(&Config{Path: info.Path, MaxOpenConns: 1, BusyTimeout: time.Second, JournalMode: "DELETE"})
	if err != nil {
		t.Fatalf("Failed to open backup: %v", err)
	}
	restored := NewService(db, 3)
	defer func() { _ = restored.Close() }()

	snap, err := restored.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot on backup failed: %v", err)
	}
	if snap.RunID != "run-1" {
		t.Errorf("Expected run-1 in backup, got %s", snap.RunID)
	}
}

func TestBackup_PrunesOldest(t *testing.T) {
	service := setupTestService(t, 3)
	ctx := context.Background()
	dir := t.TempDir()

	var names []string
	for i := 0; i < 3; i++ {
		info, err := service.Backup(ctx, dir, 2)
		if err != nil {
			t.Fatalf("Backup %d failed: %v", i, err)
		}
		names = append(names, info.Name)
		time.Sleep(5 * time.Millisecond)
	}

	backups, err := ListBackups(dir)
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("Expected 2 backups after pruning, got %d", len(backups))
	}
	if backups[0].Name != names[1] || backups[1].Name != names[2] {
		t.Errorf("Expected the newest backups %v, got %s and %s", names[1:], backups[0].Name, backups[1].Name)
	}
}

func TestListBackups_MissingDir(t *testing.T) {
	backups, err := ListBackups(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("Expected no backups, got %d", len(backups))
	}
}

func TestListBackups_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "other.db"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	backups, err := ListBackups(dir)
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("Expected unrelated files to be ignored, got %d", len(backups))
	}
}

func TestVerifyBackup_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup_bad.db")
	if err := os.WriteFile(path, []byte("not a database"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := VerifyBackup(path); err == nil {
		t.Error("Expected verification of a non-database file to fail")
	}
}
