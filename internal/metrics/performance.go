package metrics

import (
	"networth/internal/aggregate"
	"networth/internal/core"
	"networth/internal/stats"
)

// PerformanceRow is one month of the portfolio performance table.
type PerformanceRow struct {
	Month       core.Month `json:"month"`
	Value       float64    `json:"value"`
	Return      core.Opt   `json:"monthly_return"`
	Cumulative  core.Opt   `json:"cumulative_return"`
	Return3M    core.Opt   `json:"rolling_3m_return"`
	Return6M    core.Opt   `json:"rolling_6m_return"`
	Return12M   core.Opt   `json:"rolling_12m_return"`
	Volatility  core.Opt   `json:"rolling_volatility"`
	Drawdown    float64    `json:"drawdown"`
	MaxDrawdown float64    `json:"max_drawdown"`
}

// Performance builds the monthly table for a chronologically sorted series.
// Volatility uses volWindow months of returns.
func Performance(series []aggregate.Point, volWindow int) []PerformanceRow {
	values := valuesOf(series)
	returns := stats.PctChange(values)
	cum := stats.CumulativeReturn(returns)
	r3 := stats.PctChangeN(values, 3)
	r6 := stats.PctChangeN(values, 6)
	r12 := stats.PctChangeN(values, 12)
	vol := stats.RollingVolatility(returns, volWindow)
	dd := stats.Drawdown(values)
	maxDD := stats.RunningMaxDrawdown(values)

	out := make([]PerformanceRow, len(series))
	for i, p := range series {
		out[i] = PerformanceRow{
			Month:       p.Month,
			Value:       p.Value,
			Return:      returns[i],
			Cumulative:  cum[i],
			Return3M:    r3[i],
			Return6M:    r6[i],
			Return12M:   r12[i],
			Volatility:  vol[i],
			Drawdown:    dd[i],
			MaxDrawdown: maxDD[i],
		}
	}
	return out
}

// RollingRiskRow is a stats.RollingRisk pinned to the month it describes.
type RollingRiskRow struct {
	Month core.Month `json:"month"`
	stats.RollingRisk
}

// RiskProfile is the headline risk summary plus its trailing-window history.
type RiskProfile struct {
	Summary stats.RiskSummary `json:"summary"`
	Rolling []RollingRiskRow  `json:"rolling"`
}

// Risk evaluates monthly returns of series. Months whose return is undefined
// (the first month, or one following a zero balance) are skipped.
func Risk(series []aggregate.Point, window int, riskFree float64) RiskProfile {
	returns := stats.PctChange(valuesOf(series))
	var (
		defined []float64
		at      []core.Month
	)
	for i, r := range returns {
		if v, ok := r.Get(); ok {
			defined = append(defined, v)
			at = append(at, series[i].Month)
		}
	}

	p := RiskProfile{Summary: stats.Summarize(defined, riskFree)}
	for _, rr := range stats.RollingRiskTable(defined, window, riskFree) {
		p.Rolling = append(p.Rolling, RollingRiskRow{Month: at[rr.Index], RollingRisk: rr})
	}
	return p
}
