package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"networth/internal/core"
	"networth/internal/log"
	"networth/internal/sheets"
	"networth/internal/vehicle"

	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Import run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

// Ensure interface conformance
var (
	_ sheets.Source        = (*SQLiteRepository)(nil)
	_ sheets.LedgerWriter  = (*SQLiteRepository)(nil)
	_ sheets.VehicleWriter = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateUp(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentStorage)
	logger.Debug("Ledger schema ready", "path", dbPath, "version", version)
	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
	}
	return t, nil
}

// ReadLedger implements sheets.LedgerReader
func (r *SQLiteRepository) ReadLedger(ctx context.Context) ([]core.Entry, error) {
	rows, err := r.queries.ListLedgerEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sqlite ledger: %w", core.ErrNoData)
	}

	entries := make([]core.Entry, 0, len(rows))
	for _, row := range rows {
		value, err := decimal.NewFromString(row.Value)
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: %w: %q", row.ID, core.ErrInvalidValue, row.Value)
		}
		ts, err := parseTime(row.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: %w", row.ID, err)
		}
		e := core.NewEntry(row.Platform, row.Asset, value, ts)
		if row.TokenAmount.Valid {
			if tok, err := decimal.NewFromString(row.TokenAmount.String); err == nil {
				e.TokenAmount = decimal.NewNullDecimal(tok)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ReadCashflows implements sheets.CashflowReader
func (r *SQLiteRepository) ReadCashflows(ctx context.Context) ([]core.Cashflow, error) {
	rows, err := r.queries.ListCashflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cashflows: %w", err)
	}

	flows := make([]core.Cashflow, 0, len(rows))
	for _, row := range rows {
		value, err := decimal.NewFromString(row.Value)
		if err != nil {
			return nil, fmt.Errorf("cashflow row %d: %w: %q", row.ID, core.ErrInvalidValue, row.Value)
		}
		ts, err := parseTime(row.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("cashflow row %d: %w", row.ID, err)
		}
		kind, err := core.ParseCashflowType(row.CashflowType)
		if err != nil {
			return nil, fmt.Errorf("cashflow row %d: %w", row.ID, err)
		}
		flows = append(flows, core.Cashflow{
			Platform:    row.Platform,
			Asset:       row.Asset,
			Value:       value,
			Timestamp:   ts,
			Type:        kind,
			Description: row.Description,
			Notes:       row.Notes,
		})
	}
	return flows, nil
}

// ReadVehicles implements sheets.VehicleReader
func (r *SQLiteRepository) ReadVehicles(ctx context.Context) (vehicle.Dataset, error) {
	data, err := r.queries.GetVehicleSnapshot(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return vehicle.Dataset{}, fmt.Errorf("vehicle snapshot: %w", core.ErrNoData)
	}
	if err != nil {
		return vehicle.Dataset{}, fmt.Errorf("get vehicle snapshot: %w", err)
	}
	var d vehicle.Dataset
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return vehicle.Dataset{}, fmt.Errorf("decode vehicle snapshot: %w", err)
	}
	if len(d.Cars) == 0 {
		return vehicle.Dataset{}, fmt.Errorf("%s: %w", vehicle.SheetCars, core.ErrNoData)
	}
	return d, nil
}

// ReplaceLedger implements sheets.LedgerWriter. The swap is atomic: readers
// see either the previous snapshot or the new one.
func (r *SQLiteRepository) ReplaceLedger(ctx context.Context, entries []core.Entry, flows []core.Cashflow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteLedgerEntries(ctx); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	if err := q.DeleteCashflows(ctx); err != nil {
		return fmt.Errorf("clear cashflows: %w", err)
	}

	skipped := 0
	for _, e := range entries {
		if !e.Value.Valid {
			skipped++
			continue
		}
		var tok sql.NullString
		if e.TokenAmount.Valid {
			tok = sql.NullString{String: e.TokenAmount.Decimal.String(), Valid: true}
		}
		if err := q.InsertLedgerEntry(ctx, InsertLedgerEntryParams{
			Platform:    e.Platform,
			Asset:       e.Asset,
			Value:       e.Value.Decimal.String(),
			TokenAmount: tok,
			RecordedAt:  formatTime(e.Timestamp),
		}); err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	for _, f := range flows {
		if err := q.InsertCashflow(ctx, InsertCashflowParams{
			Platform:     f.Platform,
			Asset:        f.Asset,
			Value:        f.Value.String(),
			RecordedAt:   formatTime(f.Timestamp),
			CashflowType: string(f.Type),
			Description:  f.Description,
			Notes:        f.Notes,
		}); err != nil {
			return fmt.Errorf("insert cashflow: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger: %w", err)
	}

	r.logger.InfoContext(ctx, "Ledger replaced",
		"entries", len(entries)-skipped,
		"cashflows", len(flows),
		"skipped", skipped)
	return nil
}

// ReplaceVehicles implements sheets.VehicleWriter
func (r *SQLiteRepository) ReplaceVehicles(ctx context.Context, d vehicle.Dataset) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode vehicle snapshot: %w", err)
	}
	if err := r.queries.UpsertVehicleSnapshot(ctx, string(data), formatTime(r.now())); err != nil {
		return fmt.Errorf("upsert vehicle snapshot: %w", err)
	}
	r.logger.InfoContext(ctx, "Vehicle snapshot replaced", "cars", len(d.Cars))
	return nil
}

// ImportRun is one execution of the sheet to SQLite import.
type ImportRun struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	Entries    int        `json:"entries"`
	Cashflows  int        `json:"cashflows"`
	Cars       int        `json:"cars"`
	Error      string     `json:"error,omitempty"`
}

// ImportCounts is what a finished import wrote.
type ImportCounts struct {
	Entries   int
	Cashflows int
	Cars      int
}

// StartImport records a running import and returns its id.
func (r *SQLiteRepository) StartImport(ctx context.Context, source string) (string, error) {
	id := uuid.NewString()
	if err := r.queries.CreateImportRun(ctx, id, source, formatTime(r.now())); err != nil {
		return "", fmt.Errorf("create import run: %w", err)
	}
	return id, nil
}

// FinishImport closes an import run. A non-nil runErr marks it failed.
func (r *SQLiteRepository) FinishImport(ctx context.Context, id string, counts ImportCounts, runErr error) error {
	params := FinishImportRunParams{
		ID:         id,
		FinishedAt: formatTime(r.now()),
		Status:     StatusSucceeded,
		Entries:    int64(counts.Entries),
		Cashflows:  int64(counts.Cashflows),
		Cars:       int64(counts.Cars),
	}
	if runErr != nil {
		params.Status = StatusFailed
		params.Error = runErr.Error()
	}
	if err := r.queries.FinishImportRun(ctx, params); err != nil {
		return fmt.Errorf("finish import run: %w", err)
	}
	return nil
}

// ImportRuns returns the most recent runs, newest first.
func (r *SQLiteRepository) ImportRuns(ctx context.Context, limit int) ([]ImportRun, error) {
	rows, err := r.queries.ListImportRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	runs := make([]ImportRun, 0, len(rows))
	for _, row := range rows {
		started, err := parseTime(row.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("import run %s: %w", row.ID, err)
		}
		run := ImportRun{
			ID:        row.ID,
			Source:    row.Source,
			StartedAt: started,
			Status:    row.Status,
			Entries:   int(row.Entries),
			Cashflows: int(row.Cashflows),
			Cars:      int(row.Cars),
			Error:     row.Error,
		}
		if row.FinishedAt.Valid {
			if t, err := parseTime(row.FinishedAt.String); err == nil {
				run.FinishedAt = &t
			}
		}
		runs = append(runs, run)
	}
	return runs, nil
}
