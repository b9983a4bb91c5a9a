package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type LedgerRow struct {
	ID          int64
	Platform    string
	Asset       string
	Value       string
	TokenAmount sql.NullString
	RecordedAt  string
}

type CashflowRow struct {
	ID           int64
	Platform     string
	Asset        string
	Value        string
	RecordedAt   string
	CashflowType string
	Description  string
	Notes        string
}

type ImportRunRow struct {
	ID         string
	Source     string
	StartedAt  string
	FinishedAt sql.NullString
	Status     string
	Entries    int64
	Cashflows  int64
	Cars       int64
	Error      string
}

const listLedgerEntries = `
SELECT id, platform, asset, value, token_amount, recorded_at
FROM ledger_entries
ORDER BY recorded_at, platform, asset, id`

func (q *Queries) ListLedgerEntries(ctx context.Context) ([]LedgerRow, error) {
	rows, err := q.db.QueryContext(ctx, listLedgerEntries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LedgerRow
	for rows.Next() {
		var i LedgerRow
		if err := rows.Scan(&i.ID, &i.Platform, &i.Asset, &i.Value, &i.TokenAmount, &i.RecordedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertLedgerEntry = `
INSERT INTO ledger_entries (platform, asset, value, token_amount, recorded_at)
VALUES (?, ?, ?, ?, ?)`

type InsertLedgerEntryParams struct {
	Platform    string
	Asset       string
	Value       string
	TokenAmount sql.NullString
	RecordedAt  string
}

func (q *Queries) InsertLedgerEntry(ctx context.Context, arg InsertLedgerEntryParams) error {
	_, err := q.db.ExecContext(ctx, insertLedgerEntry,
		arg.Platform, arg.Asset, arg.Value, arg.TokenAmount, arg.RecordedAt)
	return err
}

func (q *Queries) DeleteLedgerEntries(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM ledger_entries`)
	return err
}

const listCashflows = `
SELECT id, platform, asset, value, recorded_at, cashflow_type, description, notes
FROM pension_cashflows
ORDER BY recorded_at, platform, asset, id`

func (q *Queries) ListCashflows(ctx context.Context) ([]CashflowRow, error) {
	rows, err := q.db.QueryContext(ctx, listCashflows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CashflowRow
	for rows.Next() {
		var i CashflowRow
		if err := rows.Scan(&i.ID, &i.Platform, &i.Asset, &i.Value, &i.RecordedAt,
			&i.CashflowType, &i.Description, &i.Notes); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertCashflow = `
INSERT INTO pension_cashflows (platform, asset, value, recorded_at, cashflow_type, description, notes)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type InsertCashflowParams struct {
	Platform     string
	Asset        string
	Value        string
	RecordedAt   string
	CashflowType string
	Description  string
	Notes        string
}

func (q *Queries) InsertCashflow(ctx context.Context, arg InsertCashflowParams) error {
	_, err := q.db.ExecContext(ctx, insertCashflow,
		arg.Platform, arg.Asset, arg.Value, arg.RecordedAt, arg.CashflowType, arg.Description, arg.Notes)
	return err
}

func (q *Queries) DeleteCashflows(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM pension_cashflows`)
	return err
}

func (q *Queries) GetVehicleSnapshot(ctx context.Context) (string, error) {
	var data string
	err := q.db.QueryRowContext(ctx, `SELECT data FROM vehicle_snapshot WHERE id = 1`).Scan(&data)
	return data, err
}

const upsertVehicleSnapshot = `
INSERT INTO vehicle_snapshot (id, data, updated_at) VALUES (1, ?, ?)
ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`

func (q *Queries) UpsertVehicleSnapshot(ctx context.Context, data, updatedAt string) error {
	_, err := q.db.ExecContext(ctx, upsertVehicleSnapshot, data, updatedAt)
	return err
}

const createImportRun = `
INSERT INTO import_runs (id, source, started_at, status)
VALUES (?, ?, ?, 'running')`

func (q *Queries) CreateImportRun(ctx context.Context, id, source, startedAt string) error {
	_, err := q.db.ExecContext(ctx, createImportRun, id, source, startedAt)
	return err
}

const finishImportRun = `
UPDATE import_runs
SET finished_at = ?, status = ?, entries = ?, cashflows = ?, cars = ?, error = ?
WHERE id = ?`

type FinishImportRunParams struct {
	ID         string
	FinishedAt string
	Status     string
	Entries    int64
	Cashflows  int64
	Cars       int64
	Error      string
}

func (q *Queries) FinishImportRun(ctx context.Context, arg FinishImportRunParams) error {
	_, err := q.db.ExecContext(ctx, finishImportRun,
		arg.FinishedAt, arg.Status, arg.Entries, arg.Cashflows, arg.Cars, arg.Error, arg.ID)
	return err
}

const listImportRuns = `
SELECT id, source, started_at, finished_at, status, entries, cashflows, cars, error
FROM import_runs
ORDER BY started_at DESC
LIMIT ?`

func (q *Queries) ListImportRuns(ctx context.Context, limit int64) ([]ImportRunRow, error) {
	rows, err := q.db.QueryContext(ctx, listImportRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ImportRunRow
	for rows.Next() {
		var i ImportRunRow
		if err := rows.Scan(&i.ID, &i.Source, &i.StartedAt, &i.FinishedAt, &i.Status,
			&i.Entries, &i.Cashflows, &i.Cars, &i.Error); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
