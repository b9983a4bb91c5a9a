// Package stats holds the pure series functions behind the dashboard metrics.
// Inputs are chronologically ordered monthly values; outputs align with the
// input index and use core.None for points that are undefined.
package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"networth/internal/core"
)

// PeriodsPerYear annualises monthly figures.
const PeriodsPerYear = 12

// RollingMean is the trailing mean over window points. The first window-1
// points are undefined.
func RollingMean(xs []float64, window int) []core.Opt {
	return rolling(xs, window, func(w []float64) core.Opt {
		return core.Some(stat.Mean(w, nil))
	})
}

// RollingStdDev is the trailing sample standard deviation (n-1). A window of
// 1 has no spread and is undefined.
func RollingStdDev(xs []float64, window int) []core.Opt {
	return rolling(xs, window, func(w []float64) core.Opt {
		if len(w) < 2 {
			return core.None
		}
		return core.Some(stat.StdDev(w, nil))
	})
}

func rolling(xs []float64, window int, f func([]float64) core.Opt) []core.Opt {
	out := make([]core.Opt, len(xs))
	if window < 1 {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		out[i] = f(xs[i-window+1 : i+1])
	}
	return out
}

// rollingOpt is rolling over a series with gaps: a window containing an
// undefined point is itself undefined.
func rollingOpt(xs []core.Opt, window int, f func([]float64) core.Opt) []core.Opt {
	out := make([]core.Opt, len(xs))
	if window < 1 {
		return out
	}
	buf := make([]float64, window)
	for i := window - 1; i < len(xs); i++ {
		ok := true
		for j := range window {
			v, valid := xs[i-window+1+j].Get()
			if !valid {
				ok = false
				break
			}
			buf[j] = v
		}
		if ok {
			out[i] = f(buf)
		}
	}
	return out
}

// Drawdown is (v - runningMax) / runningMax with an inclusive running max.
// A running max at or below zero (an empty or overdrawn balance) has no
// meaningful relative drop and yields 0, so every point is <= 0.
func Drawdown(xs []float64) []float64 {
	out := make([]float64, len(xs))
	var peak float64
	for i, v := range xs {
		if i == 0 || v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		out[i] = (v - peak) / peak
	}
	return out
}

// MaxDrawdown is the deepest drawdown, undefined for an empty series.
func MaxDrawdown(xs []float64) core.Opt {
	if len(xs) == 0 {
		return core.None
	}
	return core.Some(floats.Min(Drawdown(xs)))
}

// RunningMaxDrawdown is the expanding minimum of Drawdown.
func RunningMaxDrawdown(xs []float64) []float64 {
	dd := Drawdown(xs)
	out := make([]float64, len(dd))
	for i, v := range dd {
		if i == 0 || v < out[i-1] {
			out[i] = v
			continue
		}
		out[i] = out[i-1]
	}
	return out
}

// PctChange is the period-over-period change. The first point, and any point
// whose previous value is zero, is undefined.
func PctChange(xs []float64) []core.Opt {
	return PctChangeN(xs, 1)
}

// PctChangeN compares each point with the one n periods earlier.
func PctChangeN(xs []float64, n int) []core.Opt {
	out := make([]core.Opt, len(xs))
	if n < 1 {
		return out
	}
	for i := n; i < len(xs); i++ {
		out[i] = core.Ratio(xs[i]-xs[i-n], xs[i-n])
	}
	return out
}

// CumulativeReturn compounds returns: prod(1+r) - 1 up to each point.
// Undefined returns stay undefined and are skipped by the product.
func CumulativeReturn(returns []core.Opt) []core.Opt {
	out := make([]core.Opt, len(returns))
	growth := 1.0
	for i, r := range returns {
		v, ok := r.Get()
		if !ok {
			continue
		}
		growth *= 1 + v
		out[i] = core.Some(growth - 1)
	}
	return out
}

// RollingVolatility is the trailing sample standard deviation of returns
// annualised by sqrt(12).
func RollingVolatility(returns []core.Opt, window int) []core.Opt {
	return rollingOpt(returns, window, func(w []float64) core.Opt {
		if len(w) < 2 {
			return core.None
		}
		return core.Some(stat.StdDev(w, nil) * sqrtPeriods)
	})
}

// Defined drops undefined points.
func Defined(xs []core.Opt) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if v, ok := x.Get(); ok {
			out = append(out, v)
		}
	}
	return out
}

// Last returns the final point, undefined for an empty series.
func Last(xs []core.Opt) core.Opt {
	if len(xs) == 0 {
		return core.None
	}
	return xs[len(xs)-1]
}
