package vehicle

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// DueSoonDays is the horizon within which a key date is flagged.
const DueSoonDays = 30

type KeyDateStatus string

const (
	StatusExpired KeyDateStatus = "expired"
	StatusDueSoon KeyDateStatus = "due_soon"
	StatusOK      KeyDateStatus = "ok"
)

// KeyDateView is a key date with its countdown relative to a reference day.
type KeyDateView struct {
	KeyDate
	DaysRemaining int           `json:"days_remaining"`
	Status        KeyDateStatus `json:"status"`
}

// CategoryCost is the running cost total of one expense category.
type CategoryCost struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Metrics is the full per-car position.
type Metrics struct {
	Car             Car               `json:"details"`
	Finance         *FinanceAgreement `json:"finance,omitempty"`
	LatestValuation decimal.Decimal   `json:"latest_valuation"`
	LatestMileage   int               `json:"latest_mileage"`
	Outstanding     decimal.Decimal   `json:"outstanding_finance"`
	Equity          decimal.Decimal   `json:"equity"`
	RunningCosts    decimal.Decimal   `json:"running_costs"`
	CostsByCategory []CategoryCost    `json:"costs_by_category"`
	Contribution    decimal.Decimal   `json:"total_contribution"`
	TotalCost       decimal.Decimal   `json:"total_cost_of_ownership"`
	NetPosition     decimal.Decimal   `json:"net_position"`
	Depreciation    decimal.Decimal   `json:"depreciation"`
	InterestPaid    decimal.Decimal   `json:"total_interest_paid"`
	CostPerMile     decimal.Decimal   `json:"cost_per_mile"`
	EquityPct       decimal.Decimal   `json:"equity_pct"`
	KeyDates        []KeyDateView     `json:"key_dates"`
	Outlay          []OutlayPoint     `json:"cumulative_outlay"`
}

var hundred = decimal.NewFromInt(100)

// Compute derives the position of car id as of now.
func Compute(d Dataset, id int, now time.Time) (Metrics, error) {
	car, ok := d.Car(id)
	if !ok {
		return Metrics{}, fmt.Errorf("%w: %d", ErrCarNotFound, id)
	}
	m := Metrics{Car: car, LatestMileage: car.InitialMileage}

	var payments []Payment
	agreement, hasFinance := d.Agreement(id)
	if hasFinance {
		m.Finance = &agreement
		payments = d.paymentsOf(agreement.ID)
	}
	paid := sumPayments(payments)

	if v, ok := LatestValuation(d.valuationsOf(id)); ok {
		m.LatestValuation = v.Value
		m.LatestMileage = v.Mileage
	}

	if hasFinance {
		m.Outstanding = decimal.Max(agreement.AmountFinanced.Sub(paid), decimal.Zero)
		m.Contribution = agreement.Deposit.Add(agreement.PartExchange).Add(paid)
		principal := agreement.AmountFinanced.Sub(m.Outstanding)
		if paid.GreaterThan(principal) {
			m.InterestPaid = paid.Sub(principal)
		}
	}
	m.Equity = m.LatestValuation.Sub(m.Outstanding)

	expenses := d.expensesOf(id)
	m.RunningCosts, m.CostsByCategory = costs(expenses)
	m.TotalCost = m.Contribution.Add(m.RunningCosts)
	m.NetPosition = m.Equity.Sub(m.Contribution)

	if m.LatestValuation.IsPositive() {
		m.Depreciation = car.PurchasePrice.Sub(m.LatestValuation)
		m.EquityPct = m.Equity.Div(m.LatestValuation).Mul(hundred)
	}
	if miles := m.LatestMileage - car.InitialMileage; miles > 0 {
		m.CostPerMile = m.TotalCost.Div(decimal.NewFromInt(int64(miles)))
	}

	m.KeyDates = KeyDates(d.keyDatesOf(id), now)
	m.Outlay = CumulativeOutlay(m.Finance, payments, expenses)
	return m, nil
}

// LatestValuation picks the valuation with the latest date.
func LatestValuation(vals []Valuation) (Valuation, bool) {
	if len(vals) == 0 {
		return Valuation{}, false
	}
	latest := vals[0]
	for _, v := range vals[1:] {
		if v.Date.After(latest.Date) {
			latest = v
		}
	}
	return latest, true
}

func sumPayments(ps []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range ps {
		total = total.Add(p.Amount)
	}
	return total
}

func costs(es []Expense) (decimal.Decimal, []CategoryCost) {
	total := decimal.Zero
	byCat := make(map[string]decimal.Decimal)
	for _, e := range es {
		total = total.Add(e.Cost)
		byCat[e.Category] = byCat[e.Category].Add(e.Cost)
	}
	out := make([]CategoryCost, 0, len(byCat))
	for c, v := range byCat {
		out = append(out, CategoryCost{Category: c, Total: v})
	}
	slices.SortFunc(out, func(a, b CategoryCost) int {
		return cmp.Or(b.Total.Cmp(a.Total), cmp.Compare(a.Category, b.Category))
	})
	return total, out
}

// KeyDates attaches whole days remaining from now's calendar day. Negative
// is expired, up to DueSoonDays is due soon. Sorted by expiry.
func KeyDates(kds []KeyDate, now time.Time) []KeyDateView {
	today := civil(now)
	out := make([]KeyDateView, 0, len(kds))
	for _, k := range kds {
		days := int(civil(k.Expiry).Sub(today).Hours() / 24)
		v := KeyDateView{KeyDate: k, DaysRemaining: days, Status: StatusOK}
		switch {
		case days < 0:
			v.Status = StatusExpired
		case days <= DueSoonDays:
			v.Status = StatusDueSoon
		}
		out = append(out, v)
	}
	slices.SortStableFunc(out, func(a, b KeyDateView) int { return a.Expiry.Compare(b.Expiry) })
	return out
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// OutlayPoint is the running total of money put into a car after one
// transaction.
type OutlayPoint struct {
	Date          time.Time `json:"date"`
	Contributions float64   `json:"contributions"`
	RunningCosts  float64   `json:"running_costs"`
	Total         float64   `json:"total"`
}

type outlay struct {
	date         time.Time
	amount       decimal.Decimal
	contribution bool
}

// CumulativeOutlay merges the deposit and part exchange (at the agreement
// start), finance payments and running costs into one chronological
// running-total series.
func CumulativeOutlay(fa *FinanceAgreement, payments []Payment, expenses []Expense) []OutlayPoint {
	var txs []outlay
	if fa != nil && !fa.StartDate.IsZero() {
		if fa.Deposit.IsPositive() {
			txs = append(txs, outlay{date: fa.StartDate, amount: fa.Deposit, contribution: true})
		}
		if fa.PartExchange.IsPositive() {
			txs = append(txs, outlay{date: fa.StartDate, amount: fa.PartExchange, contribution: true})
		}
	}
	for _, p := range payments {
		txs = append(txs, outlay{date: p.Date, amount: p.Amount, contribution: true})
	}
	for _, e := range expenses {
		txs = append(txs, outlay{date: e.Date, amount: e.Cost})
	}
	slices.SortStableFunc(txs, func(a, b outlay) int { return a.date.Compare(b.date) })

	out := make([]OutlayPoint, 0, len(txs))
	contrib, running := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.contribution {
			contrib = contrib.Add(tx.amount)
		} else {
			running = running.Add(tx.amount)
		}
		out = append(out, OutlayPoint{
			Date:          tx.date,
			Contributions: contrib.InexactFloat64(),
			RunningCosts:  running.InexactFloat64(),
			Total:         contrib.Add(running).InexactFloat64(),
		})
	}
	return out
}

// Summary is the fleet-level roll-up across every car.
type Summary struct {
	Cars         int             `json:"cars"`
	Valuation    decimal.Decimal `json:"total_valuation"`
	Outstanding  decimal.Decimal `json:"total_outstanding"`
	Equity       decimal.Decimal `json:"total_equity"`
	Contribution decimal.Decimal `json:"total_contribution"`
	RunningCosts decimal.Decimal `json:"total_running_costs"`
	DueSoon      int             `json:"key_dates_due_soon"`
	Expired      int             `json:"key_dates_expired"`
}

// ComputeAll returns the metrics of every car plus the roll-up.
func ComputeAll(d Dataset, now time.Time) ([]Metrics, Summary) {
	var (
		all []Metrics
		sum Summary
	)
	for _, c := range d.Cars {
		m, err := Compute(d, c.ID, now)
		if err != nil {
			continue
		}
		all = append(all, m)
		sum.Cars++
		sum.Valuation = sum.Valuation.Add(m.LatestValuation)
		sum.Outstanding = sum.Outstanding.Add(m.Outstanding)
		sum.Equity = sum.Equity.Add(m.Equity)
		sum.Contribution = sum.Contribution.Add(m.Contribution)
		sum.RunningCosts = sum.RunningCosts.Add(m.RunningCosts)
		for _, k := range m.KeyDates {
			switch k.Status {
			case StatusDueSoon:
				sum.DueSoon++
			case StatusExpired:
				sum.Expired++
			}
		}
	}
	return all, sum
}
