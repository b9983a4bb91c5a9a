package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/core"
	"networth/internal/sheets/memory"
	"networth/internal/vehicle"
)

func TestFallbackSource_UsesSecondaryWhenPrimaryEmpty(t *testing.T) {
	primary := memory.New(nil, nil, vehicle.Dataset{})
	entries, flows := memory.DemoLedger()
	secondary := memory.New(entries, flows, memory.DemoVehicles())
	f := NewFallbackSource(primary, secondary, nil)
	ctx := context.Background()

	got, err := f.ReadLedger(ctx)
	if err != nil || len(got) != len(entries) {
		t.Fatalf("ReadLedger = %d entries, %v", len(got), err)
	}
	gotFlows, err := f.ReadCashflows(ctx)
	if err != nil || len(gotFlows) != len(flows) {
		t.Fatalf("ReadCashflows = %d flows, %v", len(gotFlows), err)
	}
	d, err := f.ReadVehicles(ctx)
	if err != nil || len(d.Cars) != 1 {
		t.Fatalf("ReadVehicles = %+v, %v", d.Cars, err)
	}
}

func TestFallbackSource_PrefersPrimary(t *testing.T) {
	jan := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	primary := memory.New([]core.Entry{
		core.NewEntry("HSBC", "Savings", decimal.NewFromInt(1000), jan),
	}, nil, vehicle.Dataset{})
	entries, flows := memory.DemoLedger()
	f := NewFallbackSource(primary, memory.New(entries, flows, vehicle.Dataset{}), nil)
	ctx := context.Background()

	got, err := f.ReadLedger(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("ReadLedger = %d entries, %v", len(got), err)
	}
	// The primary ledger exists, so its empty cashflow table is authoritative.
	gotFlows, err := f.ReadCashflows(ctx)
	if err != nil || len(gotFlows) != 0 {
		t.Fatalf("ReadCashflows = %d flows, %v", len(gotFlows), err)
	}
}

func TestFallbackSource_NoSecondary(t *testing.T) {
	f := NewFallbackSource(memory.New(nil, nil, vehicle.Dataset{}), nil, nil)

	if _, err := f.ReadLedger(context.Background()); !errors.Is(err, core.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

type failingSource struct{ err error }

func (s failingSource) ReadLedger(context.Context) ([]core.Entry, error) {
	return nil, s.err
}

func (s failingSource) ReadCashflows(context.Context) ([]core.Cashflow, error) {
	return nil, s.err
}

func (s failingSource) ReadVehicles(context.Context) (vehicle.Dataset, error) {
	return vehicle.Dataset{}, s.err
}

func TestFallbackSource_UsesSecondaryWhenPrimaryFails(t *testing.T) {
	entries, flows := memory.DemoLedger()
	secondary := memory.New(entries, flows, memory.DemoVehicles())
	f := NewFallbackSource(failingSource{err: errors.New("database is locked")}, secondary, nil)
	ctx := context.Background()

	got, err := f.ReadLedger(ctx)
	if err != nil || len(got) != len(entries) {
		t.Fatalf("ReadLedger = %d entries, %v", len(got), err)
	}
	gotFlows, err := f.ReadCashflows(ctx)
	if err != nil || len(gotFlows) != len(flows) {
		t.Fatalf("ReadCashflows = %d flows, %v", len(gotFlows), err)
	}
	if d, err := f.ReadVehicles(ctx); err != nil || len(d.Cars) != 1 {
		t.Fatalf("ReadVehicles = %+v, %v", d.Cars, err)
	}
}

func TestFallbackSource_PreferLiveReadsSecondaryOnce(t *testing.T) {
	jan := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	primary := memory.New([]core.Entry{
		core.NewEntry("HSBC", "Savings", decimal.NewFromInt(1000), jan),
	}, nil, vehicle.Dataset{})
	entries, flows := memory.DemoLedger()
	f := NewFallbackSource(primary, memory.New(entries, flows, vehicle.Dataset{}), nil)
	ctx := context.Background()

	f.PreferLive()
	got, err := f.ReadLedger(ctx)
	if err != nil || len(got) != len(entries) {
		t.Fatalf("live ReadLedger = %d entries, %v", len(got), err)
	}
	got, err = f.ReadLedger(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("second ReadLedger = %d entries, %v, want the mirror again", len(got), err)
	}
}

func TestFallbackSource_PreferLiveFallsBackToMirror(t *testing.T) {
	jan := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	primary := memory.New([]core.Entry{
		core.NewEntry("HSBC", "Savings", decimal.NewFromInt(1000), jan),
	}, nil, vehicle.Dataset{})
	f := NewFallbackSource(primary, failingSource{err: errors.New("quota exceeded")}, nil)

	f.PreferLive()
	got, err := f.ReadLedger(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("ReadLedger = %d entries, %v", len(got), err)
	}
}
