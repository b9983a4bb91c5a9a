package adapters

import (
	"context"
	"errors"
	"sync/atomic"

	"networth/internal/core"
	"networth/internal/log"
	"networth/internal/sheets"
	"networth/internal/vehicle"
)

// FallbackSource serves reads from a primary source (the SQLite mirror) and
// falls back to a secondary one (the live sheet) when the primary holds no
// data yet or fails. After PreferLive the next read of each dataset goes to
// the secondary first, so a reload does not re-cache a mirror that an
// import is about to overwrite.
type FallbackSource struct {
	primary   sheets.Source
	secondary sheets.Source
	logger    *log.Logger

	liveLedger   atomic.Bool
	liveFlows    atomic.Bool
	liveVehicles atomic.Bool
}

// Ensure interface conformance
var _ sheets.Source = (*FallbackSource)(nil)

func NewFallbackSource(primary, secondary sheets.Source, logger *log.Logger) *FallbackSource {
	if logger == nil {
		logger = log.Nop()
	}
	return &FallbackSource{
		primary:   primary,
		secondary: secondary,
		logger:    logger.WithComponent(log.ComponentBackend),
	}
}

// PreferLive routes the next read of every dataset to the secondary source.
// It is a no-op without one.
func (f *FallbackSource) PreferLive() {
	if f.secondary == nil {
		return
	}
	f.liveLedger.Store(true)
	f.liveFlows.Store(true)
	f.liveVehicles.Store(true)
}

func fallback[T any](ctx context.Context, f *FallbackSource, what string, live *atomic.Bool,
	primary, secondary func(context.Context) (T, error)) (T, error) {
	if f.secondary == nil {
		return primary(ctx)
	}

	if live.CompareAndSwap(true, false) {
		v, err := secondary(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return v, err
		}
		f.logger.WarnContext(ctx, "Live source failed, reading mirror", "data", what, log.FieldError, err.Error())
		return primary(ctx)
	}

	v, err := primary(ctx)
	if err == nil || ctx.Err() != nil {
		return v, err
	}
	if errors.Is(err, core.ErrNoData) {
		f.logger.InfoContext(ctx, "Primary source empty, using fallback", "data", what)
	} else {
		f.logger.WarnContext(ctx, "Primary source failed, using fallback", "data", what, log.FieldError, err.Error())
	}
	return secondary(ctx)
}

// ReadLedger implements sheets.LedgerReader
func (f *FallbackSource) ReadLedger(ctx context.Context) ([]core.Entry, error) {
	return fallback(ctx, f, "ledger", &f.liveLedger, f.primary.ReadLedger, f.secondaryLedger)
}

// ReadCashflows implements sheets.CashflowReader.
func (f *FallbackSource) ReadCashflows(ctx context.Context) ([]core.Cashflow, error) {
	return fallback(ctx, f, "cashflows", &f.liveFlows, f.primaryCashflows, f.secondaryCashflows)
}

// ReadVehicles implements sheets.VehicleReader
func (f *FallbackSource) ReadVehicles(ctx context.Context) (vehicle.Dataset, error) {
	return fallback(ctx, f, "vehicles", &f.liveVehicles, f.primary.ReadVehicles, f.secondaryVehicles)
}

// primaryCashflows treats an empty cashflow table as missing only when the
// primary has no ledger either; next to a ledger it is a valid empty table.
func (f *FallbackSource) primaryCashflows(ctx context.Context) ([]core.Cashflow, error) {
	flows, err := f.primary.ReadCashflows(ctx)
	if err != nil || len(flows) > 0 {
		return flows, err
	}
	if _, lerr := f.primary.ReadLedger(ctx); errors.Is(lerr, core.ErrNoData) {
		return nil, lerr
	}
	return flows, nil
}

func (f *FallbackSource) secondaryLedger(ctx context.Context) ([]core.Entry, error) {
	return f.secondary.ReadLedger(ctx)
}

func (f *FallbackSource) secondaryCashflows(ctx context.Context) ([]core.Cashflow, error) {
	return f.secondary.ReadCashflows(ctx)
}

func (f *FallbackSource) secondaryVehicles(ctx context.Context) (vehicle.Dataset, error) {
	return f.secondary.ReadVehicles(ctx)
}
