package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"networth/internal/core"
)

var sqrtPeriods = math.Sqrt(PeriodsPerYear)

const (
	// VaRLevel is the tail probability used for VaR and CVaR.
	VaRLevel = 0.05
	// UlcerWindow is the trailing window of the Ulcer index.
	UlcerWindow = 14
	// CalmarMinPeriods is the shortest history a Calmar ratio is reported for.
	CalmarMinPeriods = 12
)

// AnnualizedReturn is the mean monthly return times 12.
func AnnualizedReturn(returns []float64) core.Opt {
	if len(returns) == 0 {
		return core.None
	}
	return core.Some(stat.Mean(returns, nil) * PeriodsPerYear)
}

// Volatility is the sample standard deviation of returns annualised by sqrt(12).
func Volatility(returns []float64) core.Opt {
	if len(returns) < 2 {
		return core.None
	}
	return core.Some(stat.StdDev(returns, nil) * sqrtPeriods)
}

// TotalReturn is prod(1+r) - 1.
func TotalReturn(returns []float64) core.Opt {
	if len(returns) == 0 {
		return core.None
	}
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return core.Some(growth - 1)
}

// Sharpe is (annualised mean - rf) / annualised volatility.
func Sharpe(returns []float64, riskFree float64) core.Opt {
	mean := AnnualizedReturn(returns)
	vol := Volatility(returns)
	m, ok1 := mean.Get()
	v, ok2 := vol.Get()
	if !ok1 || !ok2 || v <= 0 {
		return core.None
	}
	return core.Some((m - riskFree) / v)
}

// Sortino divides the annualised mean excess return by the annualised sample
// deviation of the negative returns. Undefined without at least two losing
// periods or when their deviation is zero.
func Sortino(returns []float64, riskFree float64) core.Opt {
	if len(returns) == 0 {
		return core.None
	}
	var negative []float64
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	if len(negative) < 2 {
		return core.None
	}
	downside := stat.StdDev(negative, nil) * sqrtPeriods
	if downside == 0 {
		return core.None
	}
	excess := stat.Mean(returns, nil) - riskFree/PeriodsPerYear
	return core.Some(excess * PeriodsPerYear / downside)
}

// VaR is the empirical level quantile of returns.
func VaR(returns []float64, level float64) core.Opt {
	if len(returns) == 0 {
		return core.None
	}
	sorted := slices.Clone(returns)
	slices.Sort(sorted)
	return core.Some(stat.Quantile(level, stat.Empirical, sorted, nil))
}

// CVaR is the mean of returns at or below VaR.
func CVaR(returns []float64, level float64) core.Opt {
	v, ok := VaR(returns, level).Get()
	if !ok {
		return core.None
	}
	var tail []float64
	for _, r := range returns {
		if r <= v {
			tail = append(tail, r)
		}
	}
	return core.Some(stat.Mean(tail, nil))
}

// growthIndex turns returns into a wealth index starting at 1+r0.
func growthIndex(returns []float64) []float64 {
	out := make([]float64, len(returns))
	g := 1.0
	for i, r := range returns {
		g *= 1 + r
		out[i] = g
	}
	return out
}

// ReturnsMaxDrawdown is the max drawdown of the wealth index built from returns.
func ReturnsMaxDrawdown(returns []float64) core.Opt {
	return MaxDrawdown(growthIndex(returns))
}

// UlcerIndex is sqrt(mean(drawdown^2)) over the last UlcerWindow points of
// the wealth index. Undefined for shorter histories.
func UlcerIndex(returns []float64) core.Opt {
	if len(returns) < UlcerWindow {
		return core.None
	}
	dd := Drawdown(growthIndex(returns))
	tail := dd[len(dd)-UlcerWindow:]
	return core.Some(math.Sqrt(floats.Dot(tail, tail) / float64(len(tail))))
}

// GainToPain is the sum of gains over the absolute sum of losses. Undefined
// when there are no losses.
func GainToPain(returns []float64) core.Opt {
	var gains, losses float64
	for _, r := range returns {
		switch {
		case r > 0:
			gains += r
		case r < 0:
			losses += r
		}
	}
	return core.Ratio(gains, math.Abs(losses))
}

// Calmar is the annualised mean return over the absolute max drawdown.
func Calmar(returns []float64) core.Opt {
	if len(returns) < CalmarMinPeriods {
		return core.None
	}
	dd, ok := ReturnsMaxDrawdown(returns).Get()
	if !ok {
		return core.None
	}
	return core.Ratio(stat.Mean(returns, nil)*PeriodsPerYear, math.Abs(dd))
}

// Skewness is the sample skewness, undefined below three points.
func Skewness(returns []float64) core.Opt {
	if len(returns) < 3 {
		return core.None
	}
	return core.Some(stat.Skew(returns, nil))
}

// Kurtosis is the sample excess kurtosis, undefined below four points.
func Kurtosis(returns []float64) core.Opt {
	if len(returns) < 4 {
		return core.None
	}
	return core.Some(stat.ExKurtosis(returns, nil))
}

// RiskSummary bundles the headline risk figures of a return series.
type RiskSummary struct {
	MeanReturn  core.Opt `json:"mean_return"`
	Volatility  core.Opt `json:"volatility"`
	Sharpe      core.Opt `json:"sharpe_ratio"`
	Sortino     core.Opt `json:"sortino_ratio"`
	VaR95       core.Opt `json:"var_95"`
	CVaR95      core.Opt `json:"cvar_95"`
	MaxDrawdown core.Opt `json:"max_drawdown"`
	Calmar      core.Opt `json:"calmar_ratio"`
	Ulcer       core.Opt `json:"ulcer_index"`
	GainToPain  core.Opt `json:"gain_to_pain_ratio"`
	Skewness    core.Opt `json:"skewness"`
	Kurtosis    core.Opt `json:"kurtosis"`
	TotalReturn core.Opt `json:"total_return"`
	Positive    int      `json:"positive_periods"`
	Negative    int      `json:"negative_periods"`
	Periods     int      `json:"total_periods"`
}

// Summarize computes a RiskSummary. An empty series yields all fields undefined.
func Summarize(returns []float64, riskFree float64) RiskSummary {
	s := RiskSummary{
		MeanReturn:  AnnualizedReturn(returns),
		Volatility:  Volatility(returns),
		Sharpe:      Sharpe(returns, riskFree),
		Sortino:     Sortino(returns, riskFree),
		VaR95:       VaR(returns, VaRLevel),
		CVaR95:      CVaR(returns, VaRLevel),
		MaxDrawdown: ReturnsMaxDrawdown(returns),
		Calmar:      Calmar(returns),
		Ulcer:       UlcerIndex(returns),
		GainToPain:  GainToPain(returns),
		Skewness:    Skewness(returns),
		Kurtosis:    Kurtosis(returns),
		TotalReturn: TotalReturn(returns),
		Periods:     len(returns),
	}
	for _, r := range returns {
		switch {
		case r > 0:
			s.Positive++
		case r < 0:
			s.Negative++
		}
	}
	return s
}

// RollingRisk is one point of the trailing-window risk table.
type RollingRisk struct {
	Index       int      `json:"index"`
	Volatility  core.Opt `json:"volatility"`
	Sharpe      core.Opt `json:"sharpe_ratio"`
	Sortino     core.Opt `json:"sortino_ratio"`
	VaR95       core.Opt `json:"var_95"`
	CVaR95      core.Opt `json:"cvar_95"`
	MaxDrawdown core.Opt `json:"max_drawdown"`
}

// RollingRiskTable evaluates the risk figures over the window returns
// preceding each index from window onwards. Shorter series yield nothing.
func RollingRiskTable(returns []float64, window int, riskFree float64) []RollingRisk {
	if window < 2 || len(returns) <= window {
		return nil
	}
	out := make([]RollingRisk, 0, len(returns)-window)
	for i := window; i < len(returns); i++ {
		w := returns[i-window : i]
		out = append(out, RollingRisk{
			Index:       i,
			Volatility:  Volatility(w),
			Sharpe:      Sharpe(w, riskFree),
			Sortino:     Sortino(w, riskFree),
			VaR95:       VaR(w, VaRLevel),
			CVaR95:      CVaR(w, VaRLevel),
			MaxDrawdown: ReturnsMaxDrawdown(w),
		})
	}
	return out
}
