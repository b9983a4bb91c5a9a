package main

import (
	"context"
	"errors"
	"os"
	"time"

	"networth/internal/amqp"
	"networth/internal/backend"
	"networth/internal/cli"
	"networth/internal/log"
	"networth/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	tables := cli.LoadClassification(logger, cfg)

	logger.Info("Starting networth-sync")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// The import source is the spreadsheet, or the CSV directory when no
	// spreadsheet is configured. Refresh publishing is not needed here.
	bcfg, err := backend.FromAppConfig(cfg, tables)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	bcfg.Type = backend.MemoryBackend
	if cfg.GoogleSpreadsheetID != "" {
		bcfg.Type = backend.SheetsBackend
	}
	bcfg.AMQPURL = ""
	source := cli.InitBackend(context.Background(), logger, bcfg)

	importer := worker.NewImportWorker(source.Backend, repo, repo, cfg.SheetsTimeout, logger)

	var consumer *amqp.Client
	if cfg.AMQPURL != "" {
		consumer, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
	} else {
		logger.Info("AMQP disabled, refresh requests will not be consumed")
	}

	var scheduler *worker.Scheduler
	ctx, stop, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if scheduler != nil {
			scheduler.Stop()
		}
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err.Error())
			}
		}
		_ = source.Close()
		if err := repo.Close(); err != nil {
			logger.Warn("SQLite close error", log.FieldError, err.Error())
		}
	})

	if err := importer.StartupImportCheck(ctx); err != nil {
		// the schedule retries; the server keeps reading through its fallback
		logger.Error("Startup import failed", log.FieldError, err.Error())
	}

	scheduler = worker.NewScheduler(ctx, logger)
	if err := scheduler.AddJob(cfg.SyncSchedule, worker.ImportJob{Worker: importer}); err != nil {
		logger.Error("Invalid SYNC_SCHEDULE", log.FieldError, err.Error(), "schedule", cfg.SyncSchedule)
		stop()
	} else {
		scheduler.Start()
	}

	if consumer != nil {
		go func() {
			err := consumer.ConsumeRefresh(ctx, importer.HandleRefreshMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Refresh consumption failed", log.FieldError, err.Error())
				stop()
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
}
