package sheets

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/core"
	"networth/internal/vehicle"
)

// Sheet and column names of the balance workbook.
const (
	BalanceSheet          = "Balance Sheet"
	PensionCashflowsSheet = "Pension Cashflows"

	ColPlatform     = "Platform"
	ColAsset        = "Asset"
	ColValue        = "Value"
	ColTimestamp    = "Timestamp"
	ColTokenAmount  = "Token Amount"
	ColCashflowType = "Cashflow Type"
	ColDescription  = "Description"
	ColNotes        = "Notes"
)

var (
	LedgerColumns   = []string{ColPlatform, ColAsset, ColValue, ColTimestamp}
	CashflowColumns = []string{ColPlatform, ColAsset, ColValue, ColTimestamp, ColCashflowType}
)

// Report describes what a parse kept and dropped.
type Report struct {
	Sheet    string   `json:"sheet"`
	Rows     int      `json:"rows"`
	Dropped  int      `json:"dropped"`
	Warnings []string `json:"warnings,omitempty"`
}

// Expected lists the values a column is expected to hold. Values outside the
// set raise a warning but the row is kept.
type Expected map[string][]string

// Table is a header row plus data rows, as read from a sheet or CSV.
type Table struct {
	header []string
	rows   [][]string
}

// NewTable splits raw values into header and data rows. Blank rows are
// skipped.
func NewTable(values [][]string) Table {
	var t Table
	for _, row := range values {
		if t.header == nil {
			t.header = trimAll(row)
			continue
		}
		if isBlank(row) {
			continue
		}
		t.rows = append(t.rows, row)
	}
	return t
}

// Len is the number of data rows.
func (t Table) Len() int { return len(t.rows) }

// Require checks that every column is present.
func (t Table) Require(sheet string, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if t.index(c) < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: %w: %s", sheet, core.ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

func (t Table) index(col string) int {
	return indexOf(t.header, col)
}

// Get returns the trimmed cell of row i in column col, or "" when absent.
func (t Table) Get(i int, col string) string {
	return strings.TrimSpace(safeGet(t.rows[i], t.index(col)))
}

// ToStrings converts a row of API values to trimmed strings.
func ToStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// ParseLedger coerces Balance Sheet rows into entries. Rows missing a
// required value, or whose value or timestamp does not parse, are dropped.
func ParseLedger(values [][]string, expected Expected) ([]core.Entry, Report, error) {
	t := NewTable(values)
	rep := Report{Sheet: BalanceSheet}
	if err := t.Require(BalanceSheet, LedgerColumns...); err != nil {
		return nil, rep, err
	}

	out := make([]core.Entry, 0, t.Len())
	for i := range t.Len() {
		platform, asset := t.Get(i, ColPlatform), t.Get(i, ColAsset)
		value, verr := core.ParseCurrency(t.Get(i, ColValue))
		ts, terr := core.ParseDayFirst(t.Get(i, ColTimestamp))
		if platform == "" || asset == "" || verr != nil || terr != nil {
			rep.Dropped++
			continue
		}
		e := core.NewEntry(platform, asset, value, ts)
		if raw := t.Get(i, ColTokenAmount); raw != "" {
			if tok, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "")); err == nil {
				e.TokenAmount = decimal.NewNullDecimal(tok)
			}
		}
		out = append(out, e)
	}
	rep.Rows = len(out)
	rep.Warnings = unexpected(t, expected)
	if len(out) == 0 {
		return nil, rep, fmt.Errorf("%s: %w", BalanceSheet, core.ErrNoData)
	}
	return out, rep, nil
}

// ParseCashflows coerces Pension Cashflows rows. An unknown cashflow type
// drops the row.
func ParseCashflows(values [][]string, expected Expected) ([]core.Cashflow, Report, error) {
	t := NewTable(values)
	rep := Report{Sheet: PensionCashflowsSheet}
	if err := t.Require(PensionCashflowsSheet, CashflowColumns...); err != nil {
		return nil, rep, err
	}

	out := make([]core.Cashflow, 0, t.Len())
	for i := range t.Len() {
		platform, asset := t.Get(i, ColPlatform), t.Get(i, ColAsset)
		value, verr := core.ParseCurrency(t.Get(i, ColValue))
		ts, terr := core.ParseDayFirst(t.Get(i, ColTimestamp))
		kind, kerr := core.ParseCashflowType(t.Get(i, ColCashflowType))
		if platform == "" || asset == "" || errors.Join(verr, terr, kerr) != nil {
			rep.Dropped++
			continue
		}
		out = append(out, core.Cashflow{
			Platform:    platform,
			Asset:       asset,
			Value:       value,
			Timestamp:   ts,
			Type:        kind,
			Description: t.Get(i, ColDescription),
			Notes:       t.Get(i, ColNotes),
		})
	}
	rep.Rows = len(out)
	rep.Warnings = unexpected(t, expected)
	return out, rep, nil
}

func unexpected(t Table, expected Expected) []string {
	var warnings []string
	cols := make([]string, 0, len(expected))
	for c := range expected {
		cols = append(cols, c)
	}
	slices.Sort(cols)
	for _, col := range cols {
		allowed := expected[col]
		if len(allowed) == 0 || t.index(col) < 0 {
			continue
		}
		seen := make(map[string]bool)
		var odd []string
		for i := range t.Len() {
			v := t.Get(i, col)
			if v == "" || seen[v] || indexOf(allowed, v) >= 0 {
				continue
			}
			seen[v] = true
			odd = append(odd, v)
		}
		if len(odd) > 0 {
			warnings = append(warnings, fmt.Sprintf("unexpected values in column %q: %s", col, strings.Join(odd, ", ")))
		}
	}
	return warnings
}

// ParseVehicles coerces the six vehicle sheets. Cars is required; a missing
// secondary sheet yields an empty table and a warning. Rows whose id columns
// do not parse are dropped.
func ParseVehicles(sheets map[string][][]string) (vehicle.Dataset, []Report, error) {
	var (
		d       vehicle.Dataset
		reports []Report
	)
	for _, name := range vehicle.SheetNames() {
		values, ok := sheets[name]
		rep := Report{Sheet: name}
		if !ok || len(values) == 0 {
			if name == vehicle.SheetCars {
				return d, reports, fmt.Errorf("%s: %w", name, core.ErrNoData)
			}
			rep.Warnings = append(rep.Warnings, "sheet not found")
			reports = append(reports, rep)
			continue
		}
		t := NewTable(values)
		if err := t.Require(name, vehicleKeys[name]...); err != nil {
			return d, reports, err
		}
		for i := range t.Len() {
			if !parseVehicleRow(&d, name, t, i) {
				rep.Dropped++
				continue
			}
			rep.Rows++
		}
		reports = append(reports, rep)
	}
	return d, reports, nil
}

// vehicleKeys are the columns a row cannot do without.
var vehicleKeys = map[string][]string{
	vehicle.SheetCars:       {"CarID", "Make", "Model"},
	vehicle.SheetFinance:    {"FinanceID", "CarID", "AmountFinanced"},
	vehicle.SheetValuations: {"ValuationID", "CarID", "Date", "Value"},
	vehicle.SheetExpenses:   {"ExpenseID", "CarID", "Date", "Cost"},
	vehicle.SheetPayments:   {"PaymentID", "FinanceID", "PaymentDate", "Amount"},
	vehicle.SheetKeyDates:   {"KeyDateID", "CarID", "DateType", "ExpiryDate"},
}

func parseVehicleRow(d *vehicle.Dataset, sheet string, t Table, i int) bool {
	p := rowParser{t: t, i: i}
	switch sheet {
	case vehicle.SheetCars:
		c := vehicle.Car{
			ID:             p.id("CarID"),
			Make:           t.Get(i, "Make"),
			Model:          t.Get(i, "Model"),
			Year:           p.num("Year"),
			VIN:            t.Get(i, "VIN"),
			PurchaseDate:   p.date("PurchaseDate", false),
			PurchasePrice:  p.money("PurchasePrice", false),
			InitialMileage: p.num("InitialMileage"),
		}
		if p.err != nil {
			return false
		}
		d.Cars = append(d.Cars, c)
	case vehicle.SheetFinance:
		f := vehicle.FinanceAgreement{
			ID:             p.id("FinanceID"),
			CarID:          p.id("CarID"),
			Provider:       t.Get(i, "Provider"),
			Type:           t.Get(i, "Type"),
			StartDate:      p.date("StartDate", false),
			EndDate:        p.date("EndDate", false),
			AmountFinanced: p.money("AmountFinanced", true),
			APR:            p.money("InterestRate_APR", false),
			Deposit:        p.money("DepositAmount", false),
			PartExchange:   p.money("PartExchangeValue", false),
			MonthlyPayment: p.money("MonthlyPayment", false),
			BalloonPayment: p.money("BalloonPayment", false),
		}
		if p.err != nil {
			return false
		}
		d.Finance = append(d.Finance, f)
	case vehicle.SheetValuations:
		v := vehicle.Valuation{
			ID:      p.id("ValuationID"),
			CarID:   p.id("CarID"),
			Date:    p.date("Date", true),
			Value:   p.money("Value", true),
			Mileage: p.num("Mileage"),
			Source:  t.Get(i, "Source"),
		}
		if p.err != nil {
			return false
		}
		d.Valuations = append(d.Valuations, v)
	case vehicle.SheetExpenses:
		e := vehicle.Expense{
			ID:          p.id("ExpenseID"),
			CarID:       p.id("CarID"),
			Date:        p.date("Date", true),
			Category:    t.Get(i, "Category"),
			Description: t.Get(i, "Description"),
			Cost:        p.money("Cost", true),
			Mileage:     p.num("Mileage"),
		}
		if p.err != nil {
			return false
		}
		d.Expenses = append(d.Expenses, e)
	case vehicle.SheetPayments:
		pay := vehicle.Payment{
			ID:        p.id("PaymentID"),
			FinanceID: p.id("FinanceID"),
			Date:      p.date("PaymentDate", true),
			Amount:    p.money("Amount", true),
		}
		if p.err != nil {
			return false
		}
		d.Payments = append(d.Payments, pay)
	case vehicle.SheetKeyDates:
		k := vehicle.KeyDate{
			ID:     p.id("KeyDateID"),
			CarID:  p.id("CarID"),
			Type:   t.Get(i, "DateType"),
			Expiry: p.date("ExpiryDate", true),
			Notes:  t.Get(i, "Notes"),
		}
		if p.err != nil {
			return false
		}
		d.KeyDates = append(d.KeyDates, k)
	}
	return true
}

// rowParser reads typed cells and remembers the first failure.
type rowParser struct {
	t   Table
	i   int
	err error
}

func (p *rowParser) fail(col string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: %w", col, err)
	}
}

// id parses an integer key. Sheets may render integers as "3.0".
func (p *rowParser) id(col string) int {
	n, err := parseInt(p.t.Get(p.i, col))
	if err != nil {
		p.fail(col, err)
	}
	return n
}

// num parses an optional integer; blanks and garbage read as 0.
func (p *rowParser) num(col string) int {
	n, _ := parseInt(p.t.Get(p.i, col))
	return n
}

func (p *rowParser) money(col string, required bool) decimal.Decimal {
	raw := p.t.Get(p.i, col)
	if raw == "" && !required {
		return decimal.Zero
	}
	v, err := core.ParseCurrency(raw)
	if err != nil {
		if required {
			p.fail(col, err)
		}
		return decimal.Zero
	}
	return v
}

func (p *rowParser) date(col string, required bool) time.Time {
	raw := p.t.Get(p.i, col)
	if raw == "" && !required {
		return time.Time{}
	}
	ts, err := core.ParseDayFirst(raw)
	if err != nil && required {
		p.fail(col, err)
	}
	return ts
}

func parseInt(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidValue, s)
	}
	return int(d.IntPart()), nil
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
