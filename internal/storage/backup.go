package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const backupPrefix = "backup_"

// BackupInfo contains information about a backup file.
type BackupInfo struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modTime"`
	Checksum string    `json:"checksum"`
}

// Backup writes a consistent copy of the database into dir and removes the
// oldest backups beyond keep. keep < 1 keeps everything.
// VACUUM INTO copies a live WAL database without an exclusive lock.
func (s *Service) Backup(ctx context.Context, dir string, keep int) (*BackupInfo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := backupPrefix + time.Now().UTC().Format("20060102_150405.000") + ".db"
	path := filepath.Join(dir, name)

	if _, err := s.db.Conn().ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return nil, fmt.Errorf("failed to back up database: %w", err)
	}
	if err := VerifyBackup(path); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("backup verification failed: %w", err)
	}

	if keep > 0 {
		if err := pruneBackups(dir, keep); err != nil {
			return nil, err
		}
	}

	return backupInfo(path)
}

// VerifyBackup checks that path is a readable database with our schema.
func VerifyBackup(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open backup as database: %w", err)
	}
	defer func() { _ = db.Close() }()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM dataset_snapshots").Scan(&count); err != nil {
		return fmt.Errorf("failed to query backup database: %w", err)
	}
	return nil
}

// ListBackups returns the backups in dir, oldest first.
func ListBackups(dir string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !isBackupName(entry.Name()) {
			continue
		}
		info, err := backupInfo(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		backups = append(backups, *info)
	}

	// Names embed the UTC timestamp, so lexical order is chronological.
	sort.Slice(backups, func(i, j int) bool { return backups[i].Name < backups[j].Name })
	return backups, nil
}

func isBackupName(name string) bool {
	return strings.HasPrefix(name, backupPrefix) && filepath.Ext(name) == ".db"
}

func pruneBackups(dir string, keep int) error {
	backups, err := ListBackups(dir)
	if err != nil {
		return err
	}
	for i := 0; i < len(backups)-keep; i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Name, err)
		}
	}
	return nil
}

func backupInfo(path string) (*BackupInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	checksum, err := calculateChecksum(path)
	if err != nil {
		checksum = "unknown"
	}
	return &BackupInfo{
		Path:     path,
		Name:     filepath.Base(path),
		Size:     stat.Size(),
		ModTime:  stat.ModTime(),
		Checksum: checksum,
	}, nil
}

// calculateChecksum calculates the SHA-256 checksum of a file.
func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
