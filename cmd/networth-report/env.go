package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"networth/internal/backend"
	"networth/internal/cli"
	"networth/internal/config"
	"networth/internal/log"
	"networth/internal/services"
	"networth/internal/storage"
)

// environment builds the configured dashboard on first use so that
// help and flags work without a data source.
type environment struct {
	logger    *log.Logger
	cfg       *config.Config
	res       *backend.BackendResult
	dashboard *services.Dashboard
	repo      *storage.SQLiteRepository
	out       io.Writer
}

func (e *environment) init() {
	if e.cfg != nil {
		return
	}
	cli.LoadEnvFile()
	lcfg := log.DefaultConfig()
	lcfg.Level = log.ParseLevel(envOr("LOG_LEVEL", "warn"))
	lcfg.Output = os.Stderr
	e.logger = log.New(lcfg)
	log.SetDefault(e.logger)
	e.cfg = cli.LoadAndValidateConfig(e.logger)
	if e.out == nil {
		e.out = os.Stdout
	}
}

func (e *environment) Dashboard(ctx context.Context) (*services.Dashboard, error) {
	e.init()
	if e.dashboard != nil {
		return e.dashboard, nil
	}
	tables := cli.LoadClassification(e.logger, e.cfg)
	bcfg, err := backend.FromAppConfig(e.cfg, tables)
	if err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}
	// a report never asks the worker for a refresh
	bcfg.AMQPURL = ""
	e.res = cli.InitBackend(ctx, e.logger, bcfg)
	e.dashboard = cli.NewDashboard(e.cfg, tables, e.res, e.logger)
	return e.dashboard, nil
}

func (e *environment) Repository() *storage.SQLiteRepository {
	e.init()
	if e.repo == nil {
		e.repo = cli.InitSQLite(e.logger, e.cfg.SQLiteDBPath)
	}
	return e.repo
}

func (e *environment) Currency() string {
	e.init()
	return e.cfg.Analysis.CurrencyCode
}

func (e *environment) table() *tabwriter.Writer {
	e.init()
	return tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
}

func (e *environment) printJSON(v any) error {
	e.init()
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (e *environment) close() {
	if e.res != nil {
		_ = e.res.Close()
	}
	if e.repo != nil {
		_ = e.repo.Close()
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
