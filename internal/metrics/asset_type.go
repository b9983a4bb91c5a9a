package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"networth/internal/aggregate"
	"networth/internal/core"
	"networth/internal/stats"
)

// AssetTypeMetrics is the card bundle for one asset type, computed against
// the asset type's own reference months.
type AssetTypeMetrics struct {
	AssetType     core.AssetType `json:"asset_type"`
	Refs          RefMonths      `json:"months"`
	LatestValue   float64        `json:"latest_value"`
	PreviousValue core.Opt       `json:"previous_value"`
	MoMChange     core.Opt       `json:"mom_change_pct"`
	YTDChange     core.Opt       `json:"ytd_change_pct"`
	AllocationPct float64        `json:"allocation_pct"`
	PlatformCount int            `json:"platform_count"`
	AssetCount    int            `json:"asset_count"`
	MonthsTracked int            `json:"months_tracked"`
	RollingAvg    core.Opt       `json:"rolling_avg"`
	RollingStd    core.Opt       `json:"rolling_std"`
	MaxDrawdown   core.Opt       `json:"max_drawdown"`
	AvgMonthly    core.Opt       `json:"avg_monthly_value"`
	MaxValue      core.Opt       `json:"max_value"`
	MinValue      core.Opt       `json:"min_value"`
	Volatility    core.Opt       `json:"volatility"`
}

// ForAssetType computes the bundle for t. An asset type with no rows yields
// zero counts and undefined figures. AllocationPct is the share of the
// ledger total in the asset type's latest month.
func ForAssetType(entries []core.Entry, t core.AssetType, window int) AssetTypeMetrics {
	m := AssetTypeMetrics{AssetType: t}
	rows := aggregate.Filter(entries, t)
	series := aggregate.Totals(rows)
	refs, ok := ReferenceMonths(months(series))
	if !ok {
		return m
	}
	m.Refs = refs

	byMonth := indexSeries(series)
	d := newDelta(byMonth, refs)
	m.LatestValue = d.Current
	m.PreviousValue = d.Previous
	m.MoMChange = d.MoM
	m.YTDChange = d.YTD

	ledgerTotal := indexSeries(aggregate.Totals(entries))[refs.Latest]
	m.AllocationPct = share(m.LatestValue, ledgerTotal)

	platforms := make(map[string]bool)
	assets := make(map[string]bool)
	for _, e := range aggregate.InMonth(rows, refs.Latest) {
		platforms[e.Platform] = true
		assets[e.Asset] = true
	}
	m.PlatformCount = len(platforms)
	m.AssetCount = len(assets)
	m.MonthsTracked = len(series)

	values := valuesOf(series)
	m.RollingAvg = stats.Last(stats.RollingMean(values, window))
	m.RollingStd = stats.Last(stats.RollingStdDev(values, window))
	m.MaxDrawdown = stats.MaxDrawdown(values)
	m.AvgMonthly = core.Some(stat.Mean(values, nil))
	m.MaxValue = core.Some(floats.Max(values))
	m.MinValue = core.Some(floats.Min(values))
	if len(values) > 1 {
		m.Volatility = core.Some(stat.StdDev(values, nil))
	}
	return m
}

// ForAllAssetTypes computes the bundle for every asset type present.
func ForAllAssetTypes(entries []core.Entry, window int) []AssetTypeMetrics {
	present := make(map[core.AssetType]bool)
	for _, e := range entries {
		present[e.AssetType] = true
	}
	var out []AssetTypeMetrics
	for _, t := range core.AssetTypes() {
		if present[t] {
			out = append(out, ForAssetType(entries, t, window))
		}
	}
	return out
}
