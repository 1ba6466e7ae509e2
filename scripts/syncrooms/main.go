package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"villastay/internal/config"
	"villastay/internal/database"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to config.yaml")
		dbPath     = flag.String("db", "", "path to sqlite db (defaults to the configured one)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Rooms) == 0 {
		return fmt.Errorf("no rooms in config")
	}
	path := cfg.Database.Path
	if *dbPath != "" {
		path = *dbPath
	}

	db, err := database.NewDB(path, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.SyncRooms(ctx, cfg.Rooms); err != nil {
		return fmt.Errorf("sync rooms: %w", err)
	}

	active, err := db.GetActiveRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	fmt.Printf("done: configured=%d active=%d\n", len(cfg.Rooms), len(active))
	return nil
}
