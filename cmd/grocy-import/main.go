package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/grocyhq/grocy-pos/internal/config"
	"github.com/grocyhq/grocy-pos/internal/log"
	"github.com/grocyhq/grocy-pos/internal/service"
	"github.com/grocyhq/grocy-pos/internal/storage/csvfile"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running import application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	filePath := flag.String("file", "", "path to the inventory CSV file to import")
	flag.Parse()

	if *filePath == "" {
		return fmt.Errorf("missing required -file flag")
	}

	type Config struct {
		Log     config.Log
		Storage config.Storage
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("error creating data dir: %w", err)
	}

	inventoryStore := csvfile.NewInventoryStore(
		filepath.Join(cfg.Storage.DataDir, cfg.Storage.InventoryFile), logger)
	saleLedger := csvfile.NewSaleLedger(
		filepath.Join(cfg.Storage.DataDir, cfg.Storage.SalesFile), logger)

	inventoryService := service.NewInventoryService(logger, inventoryStore, saleLedger)

	f, err := os.Open(*filePath)
	if err != nil {
		return fmt.Errorf("error opening import file: %w", err)
	}
	defer f.Close()

	logger.InfoContext(ctx, "starting inventory import", slog.String("file", *filePath))

	result, err := inventoryService.Import(ctx, f)
	if err != nil {
		return fmt.Errorf("error importing inventory: %w", err)
	}

	logger.InfoContext(ctx, "inventory import completed",
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
	)

	return nil
}
