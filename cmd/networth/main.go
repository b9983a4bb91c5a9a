package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"networth/internal/backend"
	"networth/internal/cli"
	apphttp "networth/internal/http"
	"networth/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	tables := cli.LoadClassification(logger, cfg)

	bcfg, err := backend.FromAppConfig(cfg, tables)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	res := cli.InitBackend(context.Background(), logger, bcfg)

	dashboard := cli.NewDashboard(cfg, tables, res, logger)
	srv := apphttp.NewServer(":"+cfg.Port, dashboard, apphttp.Options{
		CORSOrigins: cfg.CORSOrigins,
		Currency:    cfg.Analysis.CurrencyCode,
		Logger:      logger,
	})
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err.Error())
		}
	})

	go func() {
		logger.Info("Starting networth server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
			stop()
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped")
}
