package sheets

import (
	"context"

	"networth/internal/core"
	"networth/internal/vehicle"
)

// Ports for the data sources. Implementations return rows already coerced
// and cleaned; classification happens downstream.
type (
	LedgerReader interface {
		// ReadLedger returns every balance snapshot in the source.
		ReadLedger(ctx context.Context) ([]core.Entry, error)
	}

	CashflowReader interface {
		// ReadCashflows returns the pension cashflow ledger.
		ReadCashflows(ctx context.Context) ([]core.Cashflow, error)
	}

	VehicleReader interface {
		// ReadVehicles returns the six vehicle tables.
		ReadVehicles(ctx context.Context) (vehicle.Dataset, error)
	}

	// Source is a backend that can serve every dashboard section.
	Source interface {
		LedgerReader
		CashflowReader
		VehicleReader
	}

	// LedgerWriter persists a snapshot of the ledger, replacing what was
	// stored before.
	LedgerWriter interface {
		ReplaceLedger(ctx context.Context, entries []core.Entry, flows []core.Cashflow) error
	}

	// VehicleWriter persists a snapshot of the vehicle workbook.
	VehicleWriter interface {
		ReplaceVehicles(ctx context.Context, d vehicle.Dataset) error
	}
)
