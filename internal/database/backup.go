package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"villastay/internal/config"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

const (
	backupPrefix     = "villastay_"
	backupStampFmt   = "20060102_150405"
	defaultBackupGap = 24 * time.Hour
)

// BackupService snapshots the booking database on a schedule and prunes old
// snapshots.
type BackupService struct {
	dbPath string
	config config.BackupConfig
	logger *zerolog.Logger
	now    func() time.Time
}

func NewBackupService(dbPath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{dbPath: dbPath, config: cfg, logger: logger, now: time.Now}
}

func (s *BackupService) interval() time.Duration {
	if s.config.Schedule == "" {
		return defaultBackupGap
	}
	d, err := time.ParseDuration(s.config.Schedule)
	if err != nil || d <= 0 {
		s.logger.Warn().Err(err).Str("schedule", s.config.Schedule).Msg("bad backup schedule, using 24h")
		return defaultBackupGap
	}
	return d
}

// Start backs up once right away, then on every interval until ctx is done.
func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("backups disabled")
		return
	}

	interval := s.interval()
	s.logger.Info().Dur("interval", interval).Str("storage", s.config.StoragePath).Msg("backup service started")

	s.runOnce(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *BackupService) runOnce(ctx context.Context) {
	path, err := s.PerformBackup(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("backup failed")
		return
	}
	removed := s.CleanupOldBackups()
	s.logger.Info().Str("path", path).Int("pruned", removed).Msg("backup written")
}

func backupName(at time.Time) string {
	return backupPrefix + at.Format(backupStampFmt) + ".db"
}

// PerformBackup writes a consistent copy of the database and returns its path.
// VACUUM INTO is preferred; a plain file copy is the fallback.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	dst := filepath.Join(s.config.StoragePath, backupName(s.now()))

	if err := s.vacuumInto(ctx, dst); err != nil {
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, copying the file instead")
		if err := s.copyFile(dst); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func (s *BackupService) vacuumInto(ctx context.Context, dst string) error {
	src, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("open source database: %w", err)
	}
	defer src.Close()

	_, err = src.ExecContext(ctx, "VACUUM INTO '"+strings.ReplaceAll(dst, "'", "''")+"'")
	return err
}

// copyFile may capture a torn write if a transaction is in flight.
func (s *BackupService) copyFile(dst string) error {
	in, err := os.Open(s.dbPath)
	if err != nil {
		return fmt.Errorf("open database file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy database: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("sync backup file: %w", err)
	}
	return out.Close()
}

// CleanupOldBackups removes snapshots older than the retention window and
// returns how many went. Age comes from the name stamp, or the file time when
// the name carries none.
func (s *BackupService) CleanupOldBackups() int {
	if s.config.RetentionDays <= 0 {
		return 0
	}

	matches, err := filepath.Glob(filepath.Join(s.config.StoragePath, backupPrefix+"*.db"))
	if err != nil {
		s.logger.Error().Err(err).Msg("list backups")
		return 0
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)
	removed := 0
	for _, path := range matches {
		taken, ok := s.takenAt(path)
		if !ok || !taken.Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.logger.Warn().Err(err).Str("file", path).Msg("remove old backup")
			continue
		}
		removed++
	}
	return removed
}

func (s *BackupService) takenAt(path string) (time.Time, bool) {
	stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), backupPrefix), ".db")
	if t, err := time.ParseInLocation(backupStampFmt, stamp, s.now().Location()); err == nil {
		return t, true
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
