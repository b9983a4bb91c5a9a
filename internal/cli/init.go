// Package cli holds the start-up steps shared by cmd/networth,
// cmd/networth-sync and cmd/networth-report.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"networth/internal/backend"
	"networth/internal/classify"
	"networth/internal/config"
	"networth/internal/log"
	"networth/internal/services"
	"networth/internal/storage"
)

// SetupLogger builds the process logger at the given LOG_LEVEL and makes it
// the slog default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// LoadClassification returns the mapping tables, from CLASSIFICATION_FILE
// when set. A broken file is fatal: silently falling back would misclassify.
func LoadClassification(logger *log.Logger, cfg *config.Config) *config.Classification {
	if cfg.ClassificationFile == "" {
		return config.DefaultClassification()
	}
	tables, err := config.LoadClassification(cfg.ClassificationFile)
	if err != nil {
		logger.Error("Failed to load classification file", log.FieldError, err.Error(), "path", cfg.ClassificationFile)
		os.Exit(1)
	}
	logger.Info("Loaded classification tables", "path", cfg.ClassificationFile, "platforms", len(tables.PlatformNames()))
	return tables
}

// InitBackend creates the configured data backend or exits.
func InitBackend(ctx context.Context, logger *log.Logger, bcfg backend.Config) *backend.BackendResult {
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error(), log.FieldBackend, bcfg.Type.String())
		os.Exit(1)
	}
	logger.Info("Backend ready", log.FieldBackend, bcfg.Type.String())
	return res
}

// InitSQLite opens the SQLite mirror or exits.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err.Error(), "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// NewDashboard wires a dashboard over res with the configured analysis constants.
func NewDashboard(cfg *config.Config, tables *config.Classification, res *backend.BackendResult, logger *log.Logger) *services.Dashboard {
	opts := services.Options{
		Classifier: classify.New(tables),
		Analysis:   cfg.Analysis,
		Timeout:    cfg.SheetsTimeout,
		Logger:     logger,
	}
	if res.Refresher != nil {
		opts.Refresher = res.Refresher
	}
	return services.NewDashboard(res.Backend, opts)
}

// GracefulShutdown returns a context cancelled on SIGINT, SIGTERM or a call
// to stop. After cancellation cleanup runs with a deadline of timeout, then
// done is closed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (ctx context.Context, stop context.CancelFunc, done <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(finished)
	}()

	return ctx, cancel, finished
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
