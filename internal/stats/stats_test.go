package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth/internal/core"
)

func values(t *testing.T, xs []core.Opt) []float64 {
	t.Helper()
	out := make([]float64, len(xs))
	for i, x := range xs {
		v, ok := x.Get()
		require.True(t, ok, "point %d undefined", i)
		out[i] = v
	}
	return out
}

func TestRollingMeanPrefixUndefined(t *testing.T) {
	got := RollingMean([]float64{1, 2, 3, 4}, 3)

	require.Len(t, got, 4)
	assert.False(t, got[0].Valid())
	assert.False(t, got[1].Valid())
	assert.Equal(t, []float64{2, 3}, values(t, got[2:]))
}

func TestRollingStdDevIsSample(t *testing.T) {
	got := RollingStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)

	v, ok := got[7].Get()
	require.True(t, ok)
	assert.InDelta(t, math.Sqrt(32.0/7.0), v, 1e-12)
}

func TestRollingWindowLongerThanSeries(t *testing.T) {
	for _, o := range RollingMean([]float64{1, 2}, 12) {
		assert.False(t, o.Valid())
	}
	assert.Empty(t, RollingStdDev(nil, 3))
}

func TestDrawdown(t *testing.T) {
	xs := []float64{100, 120, 90, 130, 65}

	dd := Drawdown(xs)

	assert.Equal(t, 0.0, dd[0])
	assert.Equal(t, 0.0, dd[1])
	assert.InDelta(t, -0.25, dd[2], 1e-12)
	assert.Equal(t, 0.0, dd[3])
	assert.InDelta(t, -0.5, dd[4], 1e-12)
	for _, v := range dd {
		assert.LessOrEqual(t, v, 0.0)
	}

	maxDD, ok := MaxDrawdown(xs).Get()
	require.True(t, ok)
	assert.InDelta(t, -0.5, maxDD, 1e-12)
	assert.Equal(t, []float64{0, 0, -0.25, -0.25, -0.5}, RunningMaxDrawdown(xs))
}

func TestDrawdownZeroPeak(t *testing.T) {
	assert.Equal(t, []float64{0, 0}, Drawdown([]float64{0, 0}))
	assert.False(t, MaxDrawdown(nil).Valid())
}

func TestDrawdownNegativeBalance(t *testing.T) {
	// an overdraft that deepens, then recovers into credit and falls back
	dd := Drawdown([]float64{-50, -100, 200, 100})

	assert.Equal(t, 0.0, dd[0])
	assert.Equal(t, 0.0, dd[1])
	assert.Equal(t, 0.0, dd[2])
	assert.InDelta(t, -0.5, dd[3], 1e-12)
	for i, v := range dd {
		assert.LessOrEqual(t, v, 0.0, "drawdown[%d]", i)
	}

	maxDD, ok := MaxDrawdown([]float64{-50, -100}).Get()
	require.True(t, ok)
	assert.LessOrEqual(t, maxDD, 0.0)
}

func TestPctChange(t *testing.T) {
	got := PctChange([]float64{1000, 1100, 0, 50})

	assert.False(t, got[0].Valid())
	v, _ := got[1].Get()
	assert.InDelta(t, 0.10, v, 1e-12)
	v, _ = got[2].Get()
	assert.InDelta(t, -1.0, v, 1e-12)
	assert.False(t, got[3].Valid(), "zero previous value")
}

func TestPctChangeNDoesNotMutate(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	got := PctChangeN(xs, 3)

	assert.Equal(t, []float64{1, 2, 3, 4}, xs)
	v, ok := got[3].Get()
	require.True(t, ok)
	assert.InDelta(t, 3.0, v, 1e-12)
}

func TestCumulativeReturnSkipsUndefined(t *testing.T) {
	got := CumulativeReturn([]core.Opt{core.None, core.Some(0.1), core.Some(-0.1)})

	assert.False(t, got[0].Valid())
	v, _ := got[2].Get()
	assert.InDelta(t, 1.1*0.9-1, v, 1e-12)
}

func TestRollingVolatilityNeedsFullWindow(t *testing.T) {
	returns := []core.Opt{core.None, core.Some(0.01), core.Some(0.03), core.Some(0.02)}

	got := RollingVolatility(returns, 3)

	assert.False(t, got[2].Valid())
	v, ok := got[3].Get()
	require.True(t, ok)
	assert.InDelta(t, 0.01*math.Sqrt(12), v, 1e-12)
}

func TestRiskRatios(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.02, 0.01, 0.00, 0.02, -0.03, 0.04, 0.01, -0.01, 0.02}

	sharpe := Sharpe(returns, 0.02)
	assert.True(t, sharpe.Valid())

	sortino := Sortino(returns, 0.02)
	assert.True(t, sortino.Valid())

	g2p, ok := GainToPain(returns).Get()
	require.True(t, ok)
	assert.InDelta(t, 0.15/0.07, g2p, 1e-9)

	calmar := Calmar(returns)
	assert.True(t, calmar.Valid())
	assert.False(t, Calmar(returns[:11]).Valid())
}

func TestVaRAndCVaR(t *testing.T) {
	returns := make([]float64, 10)
	for i := range returns {
		returns[i] = float64(i-5) / 100
	}

	v, ok := VaR(returns, VaRLevel).Get()
	require.True(t, ok)
	assert.InDelta(t, -0.05, v, 1e-12)

	c, ok := CVaR(returns, VaRLevel).Get()
	require.True(t, ok)
	assert.LessOrEqual(t, c, v)
}

func TestUndefinedRiskFigures(t *testing.T) {
	gains := []float64{0.01, 0.02, 0.03}

	assert.False(t, GainToPain(gains).Valid(), "no losses")
	assert.False(t, Sortino(gains, 0.02).Valid(), "no negative returns")
	assert.False(t, UlcerIndex(gains).Valid(), "short history")
	assert.False(t, Sharpe([]float64{0.01, 0.01}, 0.02).Valid(), "zero volatility")
	assert.False(t, VaR(nil, VaRLevel).Valid())
}

func TestUlcerIndexOfRisingSeriesIsZero(t *testing.T) {
	returns := make([]float64, UlcerWindow+2)
	for i := range returns {
		returns[i] = 0.01
	}

	u, ok := UlcerIndex(returns).Get()
	require.True(t, ok)
	assert.Equal(t, 0.0, u)
}

func TestSummarizeCounts(t *testing.T) {
	s := Summarize([]float64{0.01, -0.02, 0, 0.03}, 0.02)

	assert.Equal(t, 4, s.Periods)
	assert.Equal(t, 2, s.Positive)
	assert.Equal(t, 1, s.Negative)
	tr, _ := s.TotalReturn.Get()
	assert.InDelta(t, 1.01*0.98*1.03-1, tr, 1e-12)
}

func TestRollingRiskTable(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.03, 0.01, -0.01}

	table := RollingRiskTable(returns, 3, 0.02)

	require.Len(t, table, 2)
	assert.Equal(t, 3, table[0].Index)
	assert.True(t, table[0].Volatility.Valid())
	assert.Nil(t, RollingRiskTable(returns, 5, 0.02))
}
