package database

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"villastay/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSourceDB(t *testing.T, dir string) string {
	t.Helper()
	dbPath := filepath.Join(dir, "source.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE bookings (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return dbPath
}

func TestBackupService(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := createSourceDB(t, tempDir)
	storagePath := filepath.Join(tempDir, "backups")

	cfg := config.BackupConfig{Enabled: true, StoragePath: storagePath, RetentionDays: 1}
	logger := zerolog.New(io.Discard)
	s := NewBackupService(dbPath, cfg, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(context.Background())
		require.NoError(t, err)
		assert.FileExists(t, path)

		files, err := os.ReadDir(storagePath)
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, "villastay_20000101_000000.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

		unrelated := filepath.Join(storagePath, "notes.txt")
		require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))
		require.NoError(t, os.Chtimes(unrelated, oldTime, oldTime))

		assert.Equal(t, 1, s.CleanupOldBackups())
		assert.NoFileExists(t, oldFile)
		assert.FileExists(t, unrelated)
	})
}

func TestBackupService_Fallback(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := createSourceDB(t, tempDir)
	logger := zerolog.New(io.Discard)
	s := NewBackupService(dbPath, config.BackupConfig{StoragePath: tempDir}, &logger)

	backupPath := filepath.Join(tempDir, "copy.db")
	require.NoError(t, s.copyFile(backupPath))
	assert.FileExists(t, backupPath)
}

func TestBackupService_Loop(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := createSourceDB(t, tempDir)
	storagePath := filepath.Join(tempDir, "loop")
	logger := zerolog.New(io.Discard)

	s := NewBackupService(dbPath, config.BackupConfig{Enabled: true, Schedule: "1h", StoragePath: storagePath}, &logger)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	files, err := os.ReadDir(storagePath)
	require.NoError(t, err)
	assert.NotEmpty(t, files)
}

func TestBackupService_Disabled(t *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService("any", config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
	assert.NoDirExists(t, "any")
}

func TestBackupService_BadStoragePath(t *testing.T) {
	tmpFile, err := os.CreateTemp(t.TempDir(), "notadir")
	require.NoError(t, err)
	tmpFile.Close()

	logger := zerolog.New(io.Discard)
	bs := NewBackupService(":memory:", config.BackupConfig{Enabled: true, StoragePath: filepath.Join(tmpFile.Name(), "sub")}, &logger)

	_, err = bs.PerformBackup(context.Background())
	assert.Error(t, err)
}

func TestBackupService_Interval(t *testing.T) {
	logger := zerolog.New(io.Discard)

	assert.Equal(t, 24*time.Hour, NewBackupService("", config.BackupConfig{}, &logger).interval())
	assert.Equal(t, 6*time.Hour, NewBackupService("", config.BackupConfig{Schedule: "6h"}, &logger).interval())
	assert.Equal(t, 24*time.Hour, NewBackupService("", config.BackupConfig{Schedule: "nightly"}, &logger).interval())
}

func TestBackupService_CleanupUsesNameStamp(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.Nop()
	s := NewBackupService("", config.BackupConfig{StoragePath: dir, RetentionDays: 7}, &logger)
	s.now = func() time.Time { return time.Date(2024, 6, 20, 12, 0, 0, 0, time.Local) }

	old := filepath.Join(dir, backupName(time.Date(2024, 6, 1, 3, 0, 0, 0, time.Local)))
	recent := filepath.Join(dir, backupName(time.Date(2024, 6, 18, 3, 0, 0, 0, time.Local)))
	for _, p := range []string{old, recent} {
		require.NoError(t, os.WriteFile(p, []byte("db"), 0o644))
	}

	assert.Equal(t, 1, s.CleanupOldBackups())
	assert.NoFileExists(t, old)
	assert.FileExists(t, recent)
}
