package main

import (
	"context"
	"errors"
	"os"
	"time"

	"rewards/internal/amqp"
	"rewards/internal/backend"
	"rewards/internal/cli"
	"rewards/internal/log"
	"rewards/internal/sheets"
	gsheet "rewards/internal/sheets/google"
	sheetsmem "rewards/internal/sheets/memory"
	"rewards/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)

	logger.Info("Starting rewards-worker")

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldOperation, log.OpValidate, log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if backend.BackendType(cfg.DataBackend) == backend.MemoryBackend {
		logger.Warn("Memory backend is private to this process, the worker will not see API transactions")
	}

	// Setup graceful shutdown
	startCtx := context.Background()

	res, err := cli.OpenBackend(startCtx, cfg, logger.WithComponent(log.ComponentBackend).Logger)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Close()

	svc, err := cli.NewRewardsService(cfg, res)
	if err != nil {
		logger.Error("Failed to build rewards service", log.FieldError, err)
		os.Exit(1)
	}

	// The Google Sheet is the projection when configured, otherwise rows stay in memory
	var writer sheets.RewardsWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(startCtx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = sheetsmem.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, projecting in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(svc, writer, cfg.SyncBatchSize)
	processor := worker.NewResyncProcessor(syncWorker, cfg.SyncInterval)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(shutdownCtx context.Context) {
		logger.Info("Shutting down worker...")
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Warn("Resync processor did not stop cleanly", log.FieldError, err)
		}
	})

	// Periodic full resync covers messages missed while the worker was down
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start resync processor", log.FieldError, err)
		os.Exit(1)
	}

	go func() {
		err := amqpClient.ConsumeTransactionRecorded(ctx, syncWorker.HandleTransactionRecorded)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
