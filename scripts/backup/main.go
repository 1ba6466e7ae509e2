package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"villastay/internal/config"
	"villastay/internal/database"
	"villastay/internal/docs"
	"villastay/internal/logging"
	"villastay/internal/models"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to config.yaml")
		ledger     = flag.Bool("ledger", false, "also write the bookings ledger to the exports directory")
		days       = flag.Int("days", models.DefaultExportRangeDays, "ledger range in days ending today")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	backups := database.NewBackupService(cfg.Database.Path, cfg.Backup, logger)
	path, err := backups.PerformBackup(ctx)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	removed := backups.CleanupOldBackups()
	fmt.Printf("backup: %s (removed %d old)\n", path, removed)

	if !*ledger {
		return nil
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	db.SetLocation(cfg.Location())

	now := time.Now().In(cfg.Location())
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, cfg.Location())
	from := to.AddDate(0, 0, -*days)

	bookings, err := db.GetBookingsByDateRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("load bookings: %w", err)
	}

	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		return fmt.Errorf("create exports directory: %w", err)
	}
	out := filepath.Join(cfg.Exports.Path, docs.LedgerFilename(from, to))
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	defer f.Close()

	if err := docs.WriteBookingsXLSX(f, bookings, from, to); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	fmt.Printf("ledger: %s (%d bookings)\n", out, len(bookings))
	return nil
}
