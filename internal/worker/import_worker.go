// Package worker mirrors the spreadsheet into the local SQLite store, on a
// schedule and on demand.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"networth/internal/amqp"
	"networth/internal/core"
	"networth/internal/log"
	"networth/internal/sheets"
	"networth/internal/storage"
)

// Import sources recorded on each run.
const (
	SourceStartup = "startup"
	SourceCron    = "cron"
)

// RunRecorder keeps the history of import runs.
type RunRecorder interface {
	StartImport(ctx context.Context, source string) (string, error)
	FinishImport(ctx context.Context, id string, counts storage.ImportCounts, runErr error) error
}

// Mirror is the store imports are written to.
type Mirror interface {
	sheets.LedgerReader
	sheets.LedgerWriter
	sheets.VehicleWriter
}

// ImportWorker copies the ledger, pension cashflows and vehicle workbook
// from a source into the mirror. Runs are serialized.
type ImportWorker struct {
	source  sheets.Source
	mirror  Mirror
	runs    RunRecorder
	timeout time.Duration
	logger  *log.Logger

	mu sync.Mutex
}

func NewImportWorker(source sheets.Source, mirror Mirror, runs RunRecorder, timeout time.Duration, logger *log.Logger) *ImportWorker {
	if logger == nil {
		logger = log.Nop()
	}
	return &ImportWorker{
		source:  source,
		mirror:  mirror,
		runs:    runs,
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// Import runs one full import. Vehicle data is optional: a workbook without
// cars leaves the previous vehicle snapshot in place.
func (w *ImportWorker) Import(ctx context.Context, source string) (counts storage.ImportCounts, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	runID := ""
	if w.runs != nil {
		if runID, err = w.runs.StartImport(ctx, source); err != nil {
			return counts, err
		}
		defer func() {
			if ferr := w.runs.FinishImport(context.WithoutCancel(ctx), runID, counts, err); ferr != nil {
				w.logger.ErrorContext(ctx, "Failed to record import run", log.FieldRunID, runID, log.FieldError, ferr.Error())
			}
		}()
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	w.logger.InfoContext(ctx, "Import started", log.FieldRunID, runID, "source", source)

	entries, err := w.source.ReadLedger(ctx)
	if err != nil {
		return counts, fmt.Errorf("read ledger: %w", err)
	}
	flows, err := w.source.ReadCashflows(ctx)
	if err != nil {
		return counts, fmt.Errorf("read cashflows: %w", err)
	}
	if err := w.mirror.ReplaceLedger(ctx, entries, flows); err != nil {
		return counts, fmt.Errorf("write ledger: %w", err)
	}
	counts.Entries, counts.Cashflows = len(entries), len(flows)

	d, verr := w.source.ReadVehicles(ctx)
	switch {
	case errors.Is(verr, core.ErrNoData):
		w.logger.InfoContext(ctx, "No vehicle data to import", log.FieldRunID, runID)
	case verr != nil:
		return counts, fmt.Errorf("read vehicles: %w", verr)
	default:
		if err := w.mirror.ReplaceVehicles(ctx, d); err != nil {
			return counts, fmt.Errorf("write vehicles: %w", err)
		}
		counts.Cars = len(d.Cars)
	}

	w.logger.InfoContext(ctx, "Import completed",
		log.FieldRunID, runID,
		"entries", counts.Entries,
		"cashflows", counts.Cashflows,
		"cars", counts.Cars,
		log.FieldDuration, time.Since(start).Milliseconds())
	return counts, nil
}

// HandleRefreshMessage processes a refresh request from AMQP.
func (w *ImportWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	w.logger.InfoContext(ctx, "Processing refresh message", "id", msg.ID, "requested_by", msg.Source)
	_, err := w.Import(ctx, "amqp:"+msg.Source)
	return err
}

// StartupImportCheck imports immediately when the mirror holds no ledger,
// so the dashboard has data before the first scheduled run.
func (w *ImportWorker) StartupImportCheck(ctx context.Context) error {
	_, err := w.mirror.ReadLedger(ctx)
	if err == nil {
		w.logger.InfoContext(ctx, "Mirror already populated, skipping startup import")
		return nil
	}
	if !errors.Is(err, core.ErrNoData) {
		return fmt.Errorf("check mirror: %w", err)
	}
	_, err = w.Import(ctx, SourceStartup)
	return err
}
