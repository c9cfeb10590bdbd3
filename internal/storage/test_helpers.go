package storage

import (
	"path/filepath"
	"testing"
)

// setupTestService creates a migrated service backed by a temporary file.
func setupTestService(t *testing.T, retention int) *Service {
	t.Helper()

	db, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	service := NewService(db, retention)
	t.Cleanup(func() {
		_ = service.Close()
	})

	return service
}
