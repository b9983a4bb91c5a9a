package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"networth/internal/core"
	ports "networth/internal/sheets"
	"networth/internal/vehicle"
)

const (
	LedgerFile    = "balance_sheet.csv"
	CashflowFile  = "pension_cashflows.csv"
	VehiclesDir   = "vehicles"
	vehicleSuffix = ".csv"
)

// Store keeps the ledger, cashflows and vehicle workbook in process.
type Store struct {
	mu       sync.Mutex
	entries  []core.Entry
	flows    []core.Cashflow
	vehicles vehicle.Dataset
	reports  []ports.Report
}

// Ensure interface conformance
var (
	_ ports.Source        = (*Store)(nil)
	_ ports.LedgerWriter  = (*Store)(nil)
	_ ports.VehicleWriter = (*Store)(nil)
)

func New(entries []core.Entry, flows []core.Cashflow, vehicles vehicle.Dataset) *Store {
	return &Store{
		entries:  slices.Clone(entries),
		flows:    slices.Clone(flows),
		vehicles: vehicles,
	}
}

// NewFromDir seeds a store from CSV exports of the workbook. Missing files
// fall back to the demo data set; a file that exists but does not parse is
// an error.
func NewFromDir(base string, expected ports.Expected) (*Store, error) {
	s := &Store{}

	values, err := readCSV(filepath.Join(base, LedgerFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.entries, s.flows = DemoLedger()
	case err != nil:
		return nil, err
	default:
		entries, rep, err := ports.ParseLedger(values, expected)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", LedgerFile, err)
		}
		s.entries = entries
		s.reports = append(s.reports, rep)

		values, err := readCSV(filepath.Join(base, CashflowFile))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			flows, rep, err := ports.ParseCashflows(values, nil)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", CashflowFile, err)
			}
			s.flows = flows
			s.reports = append(s.reports, rep)
		}
	}

	sheets := make(map[string][][]string)
	for _, name := range vehicle.SheetNames() {
		values, err := readCSV(filepath.Join(base, VehiclesDir, name+vehicleSuffix))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sheets[name] = values
	}
	if len(sheets) == 0 {
		s.vehicles = DemoVehicles()
		return s, nil
	}
	d, reps, err := ports.ParseVehicles(sheets)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", VehiclesDir, err)
	}
	s.vehicles = d
	s.reports = append(s.reports, reps...)
	return s, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	values, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return values, nil
}

// Reports returns the load reports of the seeded files.
func (s *Store) Reports() []ports.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.reports)
}

func (s *Store) ReadLedger(_ context.Context) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil, fmt.Errorf("memory ledger: %w", core.ErrNoData)
	}
	return slices.Clone(s.entries), nil
}

func (s *Store) ReadCashflows(_ context.Context) ([]core.Cashflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.flows), nil
}

func (s *Store) ReadVehicles(_ context.Context) (vehicle.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.vehicles.Cars) == 0 {
		return vehicle.Dataset{}, fmt.Errorf("%s: %w", vehicle.SheetCars, core.ErrNoData)
	}
	return s.vehicles, nil
}

// ReplaceLedger swaps the stored ledger and cashflows wholesale.
func (s *Store) ReplaceLedger(_ context.Context, entries []core.Entry, flows []core.Cashflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = slices.Clone(entries)
	s.flows = slices.Clone(flows)
	return nil
}

// ReplaceVehicles swaps the stored vehicle workbook.
func (s *Store) ReplaceVehicles(_ context.Context, d vehicle.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles = d
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func gbp(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// DemoLedger is a two-year ledger across every asset type, with a pension
// contribution each month.
func DemoLedger() ([]core.Entry, []core.Cashflow) {
	type holding struct {
		platform, asset string
		start, step     float64
		swing           float64
	}
	holdings := []holding{
		{"HSBC", "ON BNS SAVER", 3200, 40, 250},
		{"Wise", "Wise Savings", 12000, 150, 0},
		{"IBKR", "IBKR Total Portfolio", 24000, 600, 900},
		{"Coinbase", "BTC", 2800, 60, 600},
		{"Wahed", "Wahed SIPP", 41000, 700, 1100},
		{"Standard Life", "SL Pension", 18500, 120, 400},
		{"Zoopla", "House", 310000, 500, 0},
		{"Owned", "Porsche Taycan 4S", 78000, -900, 0},
		{"NS&I", "Premium Bonds", 5000, 0, 0},
	}

	var entries []core.Entry
	var flows []core.Cashflow
	for i := range 24 {
		y, m := 2023+i/12, time.Month(i%12+1)
		for h, hd := range holdings {
			// Alternate the swing sign so the series has drawdowns to find.
			sign := 1.0
			if (i+h)%3 == 2 {
				sign = -1.0
			}
			v := hd.start + hd.step*float64(i) + sign*hd.swing
			entries = append(entries, core.NewEntry(hd.platform, hd.asset, gbp(v), date(y, m, 28)))
		}
		flows = append(flows, core.Cashflow{
			Platform:  "Wahed",
			Asset:     "Wahed SIPP",
			Value:     gbp(450),
			Timestamp: date(y, m, 25),
			Type:      core.Contribution,
		})
		if m == time.April {
			flows = append(flows, core.Cashflow{
				Platform:    "Wahed",
				Asset:       "Wahed SIPP",
				Value:       gbp(85),
				Timestamp:   date(y, m, 30),
				Type:        core.Fee,
				Description: "Annual management charge",
			})
		}
	}
	return entries, flows
}

// DemoVehicles is a single financed car with a year of history.
func DemoVehicles() vehicle.Dataset {
	d := vehicle.Dataset{
		Cars: []vehicle.Car{{
			ID: 1, Make: "Volkswagen", Model: "Golf", Year: 2021,
			PurchaseDate: date(2023, time.March, 1), PurchasePrice: gbp(24000), InitialMileage: 12000,
		}},
		Finance: []vehicle.FinanceAgreement{{
			ID: 1, CarID: 1, Provider: "VW Finance", Type: "PCP",
			StartDate: date(2023, time.March, 1), EndDate: date(2027, time.March, 1),
			AmountFinanced: gbp(18000), APR: gbp(6.9), Deposit: gbp(4000), PartExchange: gbp(2000),
			MonthlyPayment: gbp(310), BalloonPayment: gbp(9500),
		}},
		KeyDates: []vehicle.KeyDate{
			{ID: 1, CarID: 1, Type: "MOT", Expiry: date(2027, time.March, 1)},
			{ID: 2, CarID: 1, Type: "Insurance", Expiry: date(2026, time.November, 1)},
		},
	}
	for i := range 12 {
		on := date(2023, time.April+time.Month(i), 1)
		d.Payments = append(d.Payments, vehicle.Payment{ID: i + 1, FinanceID: 1, Date: on, Amount: gbp(310)})
		if i%3 == 0 {
			d.Valuations = append(d.Valuations, vehicle.Valuation{
				ID: len(d.Valuations) + 1, CarID: 1, Date: on,
				Value: gbp(23000 - 550*float64(i)), Mileage: 12000 + 800*i, Source: "Online estimate",
			})
		}
	}
	d.Expenses = []vehicle.Expense{
		{ID: 1, CarID: 1, Date: date(2023, time.May, 12), Category: "Fuel", Cost: gbp(68.40), Mileage: 12900},
		{ID: 2, CarID: 1, Date: date(2023, time.September, 3), Category: "Servicing", Description: "Annual service", Cost: gbp(289), Mileage: 15100},
		{ID: 3, CarID: 1, Date: date(2024, time.January, 20), Category: "Insurance", Cost: gbp(540), Mileage: 18400},
	}
	return d
}
