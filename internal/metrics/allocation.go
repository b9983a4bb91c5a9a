package metrics

import (
	"fmt"

	"networth/internal/aggregate"
	"networth/internal/core"
)

// Delta is a current value compared against the previous and ytd-start months.
type Delta struct {
	Current   float64  `json:"current"`
	Previous  core.Opt `json:"previous"`
	YTDStart  core.Opt `json:"ytd_start"`
	MoM       core.Opt `json:"mom_change"`
	YTD       core.Opt `json:"ytd_change"`
	MoMAmount core.Opt `json:"mom_amount"`
	YTDAmount core.Opt `json:"ytd_amount"`
}

func newDelta(byMonth map[core.Month]float64, refs RefMonths) Delta {
	d := Delta{
		Current:  byMonth[refs.Latest],
		Previous: valueAt(byMonth, refs.Previous),
		YTDStart: valueAt(byMonth, refs.YTDStart),
	}
	d.MoM = core.Change(d.Current, d.Previous)
	d.YTD = core.Change(d.Current, d.YTDStart)
	d.MoMAmount = amount(d.Current, d.Previous)
	d.YTDAmount = amount(d.Current, d.YTDStart)
	return d
}

// amount is the absolute change, undefined when the base is absent or zero
// so it agrees with the percentage change.
func amount(cur float64, base core.Opt) core.Opt {
	b, ok := base.Get()
	if !ok || b == 0 {
		return core.None
	}
	return core.Some(cur - b)
}

// TypeAllocation is one asset type's share of the latest month.
type TypeAllocation struct {
	AssetType core.AssetType `json:"asset_type"`
	Delta
	// Allocation is the share of the latest total, 0 when the total is 0.
	Allocation float64 `json:"allocation"`
	// AllocationChange is the change in share against the previous month,
	// in fraction points.
	AllocationChange core.Opt `json:"allocation_change"`
}

// Allocation is the headline overview: total plus one entry per asset type
// present in the ledger, in display order.
type Allocation struct {
	Refs  RefMonths        `json:"months"`
	Total Delta            `json:"total"`
	Types []TypeAllocation `json:"asset_types"`
}

// Type returns the allocation entry for t.
func (a Allocation) Type(t core.AssetType) (TypeAllocation, bool) {
	for _, ta := range a.Types {
		if ta.AssetType == t {
			return ta, true
		}
	}
	return TypeAllocation{}, false
}

// Allocate computes the total and per-type deltas against the ledger-wide
// reference months. Entries must already be classified.
func Allocate(entries []core.Entry) (Allocation, error) {
	totals := aggregate.Totals(entries)
	refs, ok := ReferenceMonths(months(totals))
	if !ok {
		return Allocation{}, fmt.Errorf("allocation: %w", core.ErrNoData)
	}
	totalByMonth := indexSeries(totals)
	a := Allocation{Refs: refs, Total: newDelta(totalByMonth, refs)}

	byType := aggregate.SeriesByKey(aggregate.Monthly(entries, aggregate.ByAssetType))
	for _, t := range core.AssetTypes() {
		series, ok := byType[aggregate.Key{AssetType: t}]
		if !ok {
			continue
		}
		byMonth := indexSeries(series)
		ta := TypeAllocation{AssetType: t, Delta: newDelta(byMonth, refs)}
		ta.Allocation = share(ta.Current, a.Total.Current)
		if refs.Previous != nil {
			prevShare := share(byMonth[*refs.Previous], totalByMonth[*refs.Previous])
			ta.AllocationChange = core.Some(ta.Allocation - prevShare)
		}
		a.Types = append(a.Types, ta)
	}
	return a, nil
}

// share guards the zero total with 0 rather than undefined.
func share(v, total float64) float64 {
	if total == 0 {
		return 0
	}
	return v / total
}
