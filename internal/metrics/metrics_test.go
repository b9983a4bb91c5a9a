package metrics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth/internal/aggregate"
	"networth/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func row(platform, asset string, t core.AssetType, v int64, ts time.Time) core.Entry {
	e := core.NewEntry(platform, asset, decimal.NewFromInt(v), ts)
	e.AssetType = t
	return e
}

func mustGet(t *testing.T, o core.Opt) float64 {
	t.Helper()
	v, ok := o.Get()
	require.True(t, ok, "value is undefined")
	return v
}

func TestReferenceMonths(t *testing.T) {
	tests := []struct {
		name     string
		months   []core.Month
		latest   core.Month
		previous *core.Month
		ytd      *core.Month
	}{
		{
			name:   "single month",
			months: []core.Month{core.NewMonth(2024, 5)},
			latest: core.NewMonth(2024, 5),
		},
		{
			name:     "january has no ytd start",
			months:   []core.Month{core.NewMonth(2023, 12), core.NewMonth(2024, 1)},
			latest:   core.NewMonth(2024, 1),
			previous: ptr(core.NewMonth(2023, 12)),
		},
		{
			name:     "gaps and unsorted input",
			months:   []core.Month{core.NewMonth(2024, 6), core.NewMonth(2024, 2), core.NewMonth(2023, 11), core.NewMonth(2024, 4)},
			latest:   core.NewMonth(2024, 6),
			previous: ptr(core.NewMonth(2024, 4)),
			ytd:      ptr(core.NewMonth(2024, 2)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs, ok := ReferenceMonths(tt.months)
			require.True(t, ok)
			assert.Equal(t, tt.latest, refs.Latest)
			assert.Equal(t, tt.previous, refs.Previous)
			assert.Equal(t, tt.ytd, refs.YTDStart)
		})
	}

	_, ok := ReferenceMonths(nil)
	assert.False(t, ok)
}

func ptr(m core.Month) *core.Month { return &m }

func TestAllocateRoundTrip(t *testing.T) {
	entries := []core.Entry{
		row("HSBC", "Savings", core.Cash, 1000, day(2024, 1, 15)),
		row("HSBC", "Savings", core.Cash, 1100, day(2024, 2, 15)),
	}

	a, err := Allocate(entries)
	require.NoError(t, err)

	cash, ok := a.Type(core.Cash)
	require.True(t, ok)
	assert.Equal(t, 1100.0, cash.Current)
	assert.InDelta(t, 0.10, mustGet(t, cash.MoM), 1e-12)
	assert.InDelta(t, 0.10, mustGet(t, cash.YTD), 1e-12)
	assert.Equal(t, 1.0, cash.Allocation)
	assert.InDelta(t, 100.0, mustGet(t, a.Total.MoMAmount), 1e-9)
}

func TestAllocateSingleMonthIsUndefined(t *testing.T) {
	a, err := Allocate([]core.Entry{row("HSBC", "Savings", core.Cash, 1000, day(2024, 3, 1))})
	require.NoError(t, err)

	assert.False(t, a.Total.MoM.Valid())
	assert.False(t, a.Total.YTD.Valid())
	assert.False(t, a.Types[0].AllocationChange.Valid())
}

func TestAllocateZeroTotal(t *testing.T) {
	entries := []core.Entry{
		row("HSBC", "Savings", core.Cash, 0, day(2024, 1, 1)),
		row("Vanguard", "ISA", core.Investments, 0, day(2024, 1, 1)),
	}

	a, err := Allocate(entries)
	require.NoError(t, err)

	for _, ta := range a.Types {
		assert.Equal(t, 0.0, ta.Allocation)
	}
}

func TestAllocateTypeMissingFromPreviousMonth(t *testing.T) {
	entries := []core.Entry{
		row("HSBC", "Savings", core.Cash, 1000, day(2024, 1, 1)),
		row("HSBC", "Savings", core.Cash, 1000, day(2024, 2, 1)),
		row("Vanguard", "ISA", core.Investments, 1000, day(2024, 2, 1)),
	}

	a, err := Allocate(entries)
	require.NoError(t, err)

	inv, ok := a.Type(core.Investments)
	require.True(t, ok)
	assert.Equal(t, 0.0, mustGet(t, inv.Previous))
	assert.False(t, inv.MoM.Valid(), "zero base")
	assert.InDelta(t, 0.5, mustGet(t, inv.AllocationChange), 1e-12)
}

func TestAllocateEmpty(t *testing.T) {
	_, err := Allocate(nil)
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestForAssetType(t *testing.T) {
	entries := []core.Entry{
		row("Aviva", "Workplace", core.Pensions, 100, day(2023, 12, 1)),
		row("Aviva", "Workplace", core.Pensions, 120, day(2024, 1, 1)),
		row("Aviva", "Workplace", core.Pensions, 90, day(2024, 2, 1)),
		row("Aviva", "SIPP", core.Pensions, 10, day(2024, 2, 1)),
		row("HSBC", "Savings", core.Cash, 100, day(2024, 2, 1)),
	}

	m := ForAssetType(entries, core.Pensions, 2)

	assert.Equal(t, 100.0, m.LatestValue)
	assert.Equal(t, 120.0, mustGet(t, m.PreviousValue))
	assert.InDelta(t, -1.0/6.0, mustGet(t, m.MoMChange), 1e-12)
	assert.InDelta(t, -1.0/6.0, mustGet(t, m.YTDChange), 1e-12)
	assert.InDelta(t, 0.5, m.AllocationPct, 1e-12)
	assert.Equal(t, 1, m.PlatformCount)
	assert.Equal(t, 2, m.AssetCount)
	assert.Equal(t, 3, m.MonthsTracked)
	assert.InDelta(t, 110.0, mustGet(t, m.RollingAvg), 1e-12)
	assert.InDelta(t, -1.0/6.0, mustGet(t, m.MaxDrawdown), 1e-12)
}

func TestForAssetTypeAbsent(t *testing.T) {
	m := ForAssetType([]core.Entry{row("HSBC", "Savings", core.Cash, 100, day(2024, 2, 1))}, core.Vehicles, 12)

	assert.Equal(t, 0, m.MonthsTracked)
	assert.False(t, m.MoMChange.Valid())
	assert.False(t, m.MaxDrawdown.Valid())
}

func TestAllocationSeriesSharesSumToOne(t *testing.T) {
	entries := []core.Entry{
		row("HSBC", "Savings", core.Cash, 250, day(2024, 1, 1)),
		row("Vanguard", "ISA", core.Investments, 750, day(2024, 1, 1)),
		row("HSBC", "Savings", core.Cash, 500, day(2024, 2, 1)),
	}

	series := AllocationSeries(entries)

	require.Len(t, series, 2)
	assert.Equal(t, 0.25, series[0].Values["Cash"])
	assert.Equal(t, 0.75, series[0].Values["Investments"])
	assert.Equal(t, 1.0, series[1].Values["Cash"])
	assert.Equal(t, 0.0, series[1].Values["Investments"])
}

func TestPlatformAllocationSeries(t *testing.T) {
	entries := []core.Entry{
		row("HSBC", "Savings", core.Cash, 300, day(2024, 1, 1)),
		row("Monzo", "Pot", core.Cash, 100, day(2024, 1, 1)),
		row("Vanguard", "ISA", core.Investments, 5000, day(2024, 1, 1)),
	}

	series := PlatformAllocationSeries(entries, core.Cash)

	require.Len(t, series, 1)
	assert.Equal(t, 400.0, series[0].Total)
	assert.Equal(t, 0.75, series[0].Values["HSBC"])
}

func TestTypeSeriesDrawdownNonPositive(t *testing.T) {
	entries := []core.Entry{
		row("HSBC", "Savings", core.Cash, 100, day(2024, 1, 1)),
		row("HSBC", "Savings", core.Cash, 80, day(2024, 2, 1)),
		row("HSBC", "Savings", core.Cash, 120, day(2024, 3, 1)),
	}

	series := TypeSeries(entries, core.Cash, 2)

	require.Len(t, series, 3)
	assert.False(t, series[0].RollingAvg.Valid())
	assert.InDelta(t, 90.0, mustGet(t, series[1].RollingAvg), 1e-12)
	for _, p := range series {
		assert.LessOrEqual(t, p.Drawdown, 0.0)
	}
	assert.Equal(t, 0.0, series[2].Drawdown)
}

func TestPerformance(t *testing.T) {
	series := []aggregate.Point{
		{Month: core.NewMonth(2024, 1), Value: 100},
		{Month: core.NewMonth(2024, 2), Value: 110},
		{Month: core.NewMonth(2024, 3), Value: 99},
		{Month: core.NewMonth(2024, 4), Value: 121},
	}

	rows := Performance(series, 2)

	require.Len(t, rows, 4)
	assert.False(t, rows[0].Return.Valid())
	assert.InDelta(t, 0.10, mustGet(t, rows[1].Return), 1e-12)
	assert.InDelta(t, -0.01, mustGet(t, rows[2].Cumulative), 1e-12)
	assert.InDelta(t, 0.21, mustGet(t, rows[3].Return3M), 1e-12)
	assert.False(t, rows[3].Return6M.Valid())
	assert.False(t, rows[1].Volatility.Valid())
	assert.True(t, rows[2].Volatility.Valid())
	assert.InDelta(t, -0.1, rows[3].MaxDrawdown, 1e-12)
}

func TestRiskSkipsUndefinedReturns(t *testing.T) {
	series := []aggregate.Point{
		{Month: core.NewMonth(2024, 1), Value: 100},
		{Month: core.NewMonth(2024, 2), Value: 110},
		{Month: core.NewMonth(2024, 3), Value: 99},
		{Month: core.NewMonth(2024, 4), Value: 121},
		{Month: core.NewMonth(2024, 5), Value: 115},
	}

	p := Risk(series, 3, 0.02)

	assert.Equal(t, 4, p.Summary.Periods)
	require.Len(t, p.Rolling, 1)
	assert.Equal(t, core.NewMonth(2024, 5), p.Rolling[0].Month)
}

func TestPensionReturns(t *testing.T) {
	entries := []core.Entry{
		row("Aviva", "Workplace", core.Pensions, 10000, day(2024, 1, 31)),
		row("Aviva", "Workplace", core.Pensions, 11500, day(2024, 6, 30)),
		row("Nest", "Default", core.Pensions, 500, day(2024, 6, 30)),
		row("HSBC", "Savings", core.Cash, 1000, day(2024, 6, 30)),
	}
	flows := []core.Cashflow{
		{Platform: "Aviva", Asset: "Workplace", Value: decimal.NewFromInt(1000), Timestamp: day(2024, 3, 1), Type: core.Contribution},
		{Platform: "Aviva", Asset: "Workplace", Value: decimal.NewFromInt(50), Timestamp: day(2024, 4, 1), Type: core.Fee},
		{Platform: "Aviva", Asset: "Workplace", Value: decimal.NewFromInt(999), Timestamp: day(2024, 1, 5), Type: core.Contribution},
	}

	sum := PensionReturns(entries, flows)

	require.Len(t, sum.Holdings, 2)
	aviva := sum.Holdings[0]
	assert.Equal(t, "Aviva", aviva.Platform)
	assert.Equal(t, 950.0, aviva.NetCashflow)
	assert.Equal(t, -50.0, aviva.Fees)
	assert.InDelta(t, 0.055, mustGet(t, aviva.ActualReturn), 1e-12)

	nest := sum.Holdings[1]
	assert.False(t, nest.ActualReturn.Valid(), "single snapshot")

	assert.Equal(t, 12000.0, sum.Total.EndValue)
	assert.True(t, sum.Total.ActualReturn.Valid())
}
