package vehicle

import (
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"networth/internal/core"
)

// ForecastPoint is one projected month.
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

const hoursPerDay = 24

// ForecastDepreciation fits value against days since the first valuation by
// ordinary least squares and projects it monthly for periods months after the
// last valuation. Fewer than two valuations give no forecast.
func ForecastDepreciation(vals []Valuation, periods int) ([]ForecastPoint, bool) {
	if len(vals) < 2 || periods < 1 {
		return nil, false
	}
	sorted := slices.Clone(vals)
	slices.SortStableFunc(sorted, func(a, b Valuation) int { return a.Date.Compare(b.Date) })

	start := sorted[0].Date
	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, v := range sorted {
		xs[i] = daysBetween(start, v.Date)
		ys[i] = v.Value.InexactFloat64()
	}
	if xs[len(xs)-1] == xs[0] {
		// all valuations on one day: the slope is undefined
		return nil, false
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	last := sorted[len(sorted)-1].Date
	out := make([]ForecastPoint, periods)
	for i := range periods {
		d := last.AddDate(0, i+1, 0)
		out[i] = ForecastPoint{Date: d, Value: alpha + beta*daysBetween(start, d)}
	}
	return out, true
}

func daysBetween(from, to time.Time) float64 {
	return float64(int(civil(to).Sub(civil(from)).Hours() / hoursPerDay))
}

// ForecastCosts repeats the mean monthly running cost for periods months
// after the last expense. Months between the first and last expense with no
// spend count as zero. No expenses give no forecast.
func ForecastCosts(expenses []Expense, periods int) ([]ForecastPoint, bool) {
	if len(expenses) == 0 || periods < 1 {
		return nil, false
	}
	first, last := expenses[0].Date, expenses[0].Date
	var total float64
	for _, e := range expenses {
		total += e.Cost.InexactFloat64()
		if e.Date.Before(first) {
			first = e.Date
		}
		if e.Date.After(last) {
			last = e.Date
		}
	}
	from, to := core.MonthOf(first), core.MonthOf(last)
	months := (to.Year-from.Year)*12 + int(to.Month-from.Month) + 1
	avg := total / float64(months)

	out := make([]ForecastPoint, periods)
	for i := range periods {
		out[i] = ForecastPoint{Date: last.AddDate(0, i+1, 0), Value: avg}
	}
	return out, true
}

// Forecast bundles both projections for one car.
type Forecast struct {
	Depreciation []ForecastPoint `json:"depreciation,omitempty"`
	Costs        []ForecastPoint `json:"costs,omitempty"`
}

// ForecastCar projects car id's value and running costs.
func ForecastCar(d Dataset, id, periods int) Forecast {
	var f Forecast
	f.Depreciation, _ = ForecastDepreciation(d.valuationsOf(id), periods)
	f.Costs, _ = ForecastCosts(d.expensesOf(id), periods)
	return f
}
