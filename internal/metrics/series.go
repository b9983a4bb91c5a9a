package metrics

import (
	"networth/internal/aggregate"
	"networth/internal/core"
	"networth/internal/stats"
)

// SeriesPoint is one month of an asset-type chart.
type SeriesPoint struct {
	Month      core.Month `json:"month"`
	Value      float64    `json:"value"`
	RollingAvg core.Opt   `json:"rolling_avg"`
	RollingStd core.Opt   `json:"rolling_std"`
	Drawdown   float64    `json:"drawdown"`
}

// TypeSeries is the monthly value of asset type t with its rolling bands and
// drawdown. A zero t selects the whole ledger.
func TypeSeries(entries []core.Entry, t core.AssetType, window int) []SeriesPoint {
	rows := entries
	if t != "" {
		rows = aggregate.Filter(entries, t)
	}
	series := aggregate.Totals(rows)
	values := valuesOf(series)
	avg := stats.RollingMean(values, window)
	std := stats.RollingStdDev(values, window)
	dd := stats.Drawdown(values)

	out := make([]SeriesPoint, len(series))
	for i, p := range series {
		out[i] = SeriesPoint{
			Month:      p.Month,
			Value:      p.Value,
			RollingAvg: avg[i],
			RollingStd: std[i],
			Drawdown:   dd[i],
		}
	}
	return out
}

// MonthBreakdown is one month of a stacked chart keyed by series name. In
// allocation series the values are shares summing to 1, or all 0 when the
// month total is 0.
type MonthBreakdown struct {
	Month  core.Month         `json:"month"`
	Total  float64            `json:"total"`
	Values map[string]float64 `json:"values"`
}

// AllocationSeries is the share of each asset type per month.
func AllocationSeries(entries []core.Entry) []MonthBreakdown {
	return shareSeries(aggregate.Monthly(entries, aggregate.ByAssetType), func(k aggregate.Key) string {
		return string(k.AssetType)
	})
}

// PlatformAllocationSeries is the share of each platform within asset type t
// per month.
func PlatformAllocationSeries(entries []core.Entry, t core.AssetType) []MonthBreakdown {
	return shareSeries(aggregate.Monthly(aggregate.Filter(entries, t), aggregate.ByPlatform), func(k aggregate.Key) string {
		return k.Platform
	})
}

// PlatformTrends is the monthly value of each platform within asset type t.
func PlatformTrends(entries []core.Entry, t core.AssetType) []MonthBreakdown {
	groups := aggregate.Monthly(aggregate.Filter(entries, t), aggregate.ByPlatform)
	months, keys, cells := aggregate.Pivot(groups)
	out := make([]MonthBreakdown, len(months))
	for i, m := range months {
		p := MonthBreakdown{Month: m, Values: make(map[string]float64, len(keys))}
		for _, k := range keys {
			v := cells[m][k]
			p.Values[k.Platform] = v
			p.Total += v
		}
		out[i] = p
	}
	return out
}

func shareSeries(groups []aggregate.Group, name func(aggregate.Key) string) []MonthBreakdown {
	months, keys, cells := aggregate.Pivot(groups)
	out := make([]MonthBreakdown, len(months))
	for i, m := range months {
		p := MonthBreakdown{Month: m, Values: make(map[string]float64, len(keys))}
		for _, k := range keys {
			p.Total += cells[m][k]
		}
		for _, k := range keys {
			p.Values[name(k)] = share(cells[m][k], p.Total)
		}
		out[i] = p
	}
	return out
}
