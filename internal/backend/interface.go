package backend

import (
	"context"

	"networth/internal/sheets"
)

// Backend serves the ledger, pension cashflows and vehicle workbook.
type Backend interface {
	sheets.Source
}

// Refresher requests an out-of-band re-import of the source.
type Refresher interface {
	PublishRefresh(ctx context.Context, source string) (string, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	// Refresher is set when an AMQP broker is configured.
	Refresher Refresher
	Cleanup   CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID        string
	GoogleVehicleSpreadsheetID string
	BalanceSheet               string
	CashflowSheet              string

	// Memory backend specific
	DataDirectory string

	// Expected column values, used for load warnings
	LedgerExpected   sheets.Expected
	CashflowExpected sheets.Expected
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
