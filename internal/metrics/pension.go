package metrics

import (
	"cmp"
	"slices"

	"networth/internal/aggregate"
	"networth/internal/core"
)

// PensionReturn is the growth of one pension net of the money paid in or
// taken out between its first and latest snapshot.
type PensionReturn struct {
	Platform      string     `json:"platform"`
	Asset         string     `json:"asset"`
	Start         core.Month `json:"start"`
	End           core.Month `json:"end"`
	StartValue    float64    `json:"start_value"`
	EndValue      float64    `json:"end_value"`
	Contributions float64    `json:"contributions"`
	Fees          float64    `json:"fees"`
	Transfers     float64    `json:"transfers"`
	NetCashflow   float64    `json:"net_cashflow"`
	Growth        float64    `json:"investment_growth"`
	ActualReturn  core.Opt   `json:"actual_return"`
}

// PensionSummary lists per-holding returns plus the combined figure.
type PensionSummary struct {
	Holdings []PensionReturn `json:"holdings"`
	Total    PensionReturn   `json:"total"`
}

// PensionReturns computes actual_return = (end - start - net_cashflow) / start
// for every pension holding. Cashflows count when they fall after the start
// month and no later than the end month; fees count as outflows. A holding
// with a single snapshot or a zero start value has an undefined return.
func PensionReturns(entries []core.Entry, flows []core.Cashflow) PensionSummary {
	type holding struct{ platform, asset string }
	snaps := make(map[holding][]aggregate.Point)
	for _, e := range aggregate.Dedupe(aggregate.Filter(entries, core.Pensions)) {
		h := holding{e.Platform, e.Asset}
		snaps[h] = append(snaps[h], aggregate.Point{Month: e.Month(), Value: e.Value.Decimal.InexactFloat64()})
	}

	var sum PensionSummary
	sum.Total.Platform = "Total"
	for h, points := range snaps {
		first, last := points[0], points[len(points)-1]
		r := PensionReturn{
			Platform:   h.platform,
			Asset:      h.asset,
			Start:      first.Month,
			End:        last.Month,
			StartValue: first.Value,
			EndValue:   last.Value,
		}
		for _, f := range flows {
			if f.Platform != h.platform || f.Asset != h.asset {
				continue
			}
			m := core.MonthOf(f.Timestamp)
			if !m.After(r.Start) || m.After(r.End) {
				continue
			}
			v := f.Signed().InexactFloat64()
			switch f.Type {
			case core.Contribution:
				r.Contributions += v
			case core.Fee:
				r.Fees += v
			case core.Transfer:
				r.Transfers += v
			}
			r.NetCashflow += v
		}
		r.Growth = r.EndValue - r.StartValue - r.NetCashflow
		if r.End.After(r.Start) {
			r.ActualReturn = core.Ratio(r.Growth, r.StartValue)
		}
		sum.Holdings = append(sum.Holdings, r)

		sum.Total.StartValue += r.StartValue
		sum.Total.EndValue += r.EndValue
		sum.Total.Contributions += r.Contributions
		sum.Total.Fees += r.Fees
		sum.Total.Transfers += r.Transfers
		sum.Total.NetCashflow += r.NetCashflow
		sum.Total.Growth += r.Growth
		if sum.Total.Start.IsZero() || r.Start.Before(sum.Total.Start) {
			sum.Total.Start = r.Start
		}
		if r.End.After(sum.Total.End) {
			sum.Total.End = r.End
		}
	}
	slices.SortFunc(sum.Holdings, func(a, b PensionReturn) int {
		return cmp.Or(cmp.Compare(a.Platform, b.Platform), cmp.Compare(a.Asset, b.Asset))
	})
	if sum.Total.End.After(sum.Total.Start) {
		sum.Total.ActualReturn = core.Ratio(sum.Total.Growth, sum.Total.StartValue)
	}
	return sum
}
