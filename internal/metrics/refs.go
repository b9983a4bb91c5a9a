// Package metrics turns the monthly aggregates into the figures the
// dashboard shows: MoM and YTD deltas, allocation, per-asset-type bundles,
// performance and risk tables.
//
// Changes are fractions (0.10 is 10%). Undefined figures are core.None.
package metrics

import (
	"networth/internal/aggregate"
	"networth/internal/core"
)

// RefMonths are the reference points of a monthly series. Previous and
// YTDStart are nil when absent.
type RefMonths struct {
	Latest   core.Month  `json:"latest"`
	Previous *core.Month `json:"previous"`
	YTDStart *core.Month `json:"ytd_start"`
}

// ReferenceMonths picks latest (max), previous (max strictly below latest)
// and ytd start (min within latest's calendar year, absent when it is the
// latest month itself). ok is false for an empty input.
func ReferenceMonths(months []core.Month) (refs RefMonths, ok bool) {
	if len(months) == 0 {
		return RefMonths{}, false
	}
	latest := months[0]
	for _, m := range months[1:] {
		if m.After(latest) {
			latest = m
		}
	}
	refs.Latest = latest

	for _, m := range months {
		if m.Before(latest) && (refs.Previous == nil || m.After(*refs.Previous)) {
			p := m
			refs.Previous = &p
		}
		if m.Year == latest.Year && m.Before(latest) && (refs.YTDStart == nil || m.Before(*refs.YTDStart)) {
			y := m
			refs.YTDStart = &y
		}
	}
	return refs, true
}

// valueAt looks up a month in a monthly series. A present reference month
// with no rows holds 0; an absent reference month is undefined.
func valueAt(byMonth map[core.Month]float64, m *core.Month) core.Opt {
	if m == nil {
		return core.None
	}
	return core.Some(byMonth[*m])
}

func indexSeries(points []aggregate.Point) map[core.Month]float64 {
	out := make(map[core.Month]float64, len(points))
	for _, p := range points {
		out[p.Month] = p.Value
	}
	return out
}

func months(points []aggregate.Point) []core.Month {
	out := make([]core.Month, len(points))
	for i, p := range points {
		out[i] = p.Month
	}
	return out
}

func valuesOf(points []aggregate.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
