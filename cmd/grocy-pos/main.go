package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grocyhq/grocy-pos/internal/backup"
	"github.com/grocyhq/grocy-pos/internal/config"
	"github.com/grocyhq/grocy-pos/internal/http"
	"github.com/grocyhq/grocy-pos/internal/log"
	"github.com/grocyhq/grocy-pos/internal/service"
	"github.com/grocyhq/grocy-pos/internal/storage/csvfile"
	"github.com/grocyhq/grocy-pos/internal/telemetry"
	"github.com/grocyhq/grocy-pos/pkg/cmdutil"
	"github.com/grocyhq/grocy-pos/pkg/validator"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running grocy-pos application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log     config.Log
		HTTP    config.HTTP
		Storage config.Storage
		Backup  config.Backup
		Otel    config.Otel
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("error creating data dir: %w", err)
	}

	inventoryPath := filepath.Join(cfg.Storage.DataDir, cfg.Storage.InventoryFile)
	salesPath := filepath.Join(cfg.Storage.DataDir, cfg.Storage.SalesFile)

	inventoryStore := csvfile.NewInventoryStore(inventoryPath, logger)
	saleLedger := csvfile.NewSaleLedger(salesPath, logger)

	v, err := validator.NewDefaultValidator()
	if err != nil {
		return fmt.Errorf("error creating validator: %w", err)
	}

	inventoryService := service.NewInventoryService(logger, inventoryStore, saleLedger)
	saleProcessor := service.NewSaleProcessor(logger, inventoryStore, saleLedger)

	interruptChan := cmdutil.InterruptChan()
	var wg sync.WaitGroup

	wg.Go(func() {
		svc := http.New(cfg.HTTP, logger, v, inventoryService, saleProcessor)
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running http service: %w", err))
		}

		logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

		<-interruptChan

		logger.InfoContext(ctx, "http service is shutting down")
		if err := cleanup(ctx); err != nil {
			logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
		}

		logger.InfoContext(ctx, "http service is stopped")
	})

	if cfg.Backup.Enabled {
		wg.Go(func() {
			svc := backup.NewService(cfg.Backup, logger, inventoryPath, salesPath)
			cleanup := svc.Run(ctx)
			logger.InfoContext(ctx, "backup service started")

			<-interruptChan

			logger.InfoContext(ctx, "backup service is shutting down")
			cleanup()

			logger.InfoContext(ctx, "backup service is stopped")
		})
	}

	wg.Wait()

	return nil
}
