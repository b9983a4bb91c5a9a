// Package aggregate collapses the row-level ledger into monthly sums.
//
// Every function here deduplicates first: at most one row per
// (Platform, Asset, month) survives, the one with the latest Timestamp.
// Rows whose value could not be parsed are excluded from sums, never counted
// as zero.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"networth/internal/core"
)

// Dimension is an optional grouping column.
type Dimension int

const (
	ByAssetType Dimension = iota + 1
	ByPlatform
	ByAsset
)

func (d Dimension) String() string {
	switch d {
	case ByAssetType:
		return "asset_type"
	case ByPlatform:
		return "platform"
	case ByAsset:
		return "asset"
	default:
		return "none"
	}
}

// Key holds the grouping values; fields for dimensions not grouped on are empty.
type Key struct {
	AssetType core.AssetType `json:"asset_type,omitempty"`
	Platform  string         `json:"platform,omitempty"`
	Asset     string         `json:"asset,omitempty"`
}

// Label renders the populated key fields joined by " / ".
func (k Key) Label() string {
	var parts []string
	if k.AssetType != "" {
		parts = append(parts, string(k.AssetType))
	}
	if k.Platform != "" {
		parts = append(parts, k.Platform)
	}
	if k.Asset != "" {
		parts = append(parts, k.Asset)
	}
	if len(parts) == 0 {
		return "Total"
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += " / " + p
	}
	return out
}

// Group is one (month, key) sum.
type Group struct {
	Month core.Month      `json:"month"`
	Key   Key             `json:"key"`
	Value decimal.Decimal `json:"value"`
}

// Point is one month of a numeric series.
type Point struct {
	Month core.Month `json:"month"`
	Value float64    `json:"value"`
}

type holdingMonth struct {
	platform, asset string
	month           core.Month
}

// Dedupe keeps the latest valid row per (Platform, Asset, month). On equal
// timestamps the row appearing later in the input wins. The result is sorted
// by month, platform and asset.
func Dedupe(entries []core.Entry) []core.Entry {
	latest := make(map[holdingMonth]core.Entry, len(entries))
	for _, e := range entries {
		if !e.Value.Valid {
			continue
		}
		k := holdingMonth{platform: e.Platform, asset: e.Asset, month: e.Month()}
		if prev, ok := latest[k]; ok && e.Timestamp.Before(prev.Timestamp) {
			continue
		}
		latest[k] = e
	}
	out := make([]core.Entry, 0, len(latest))
	for _, e := range latest {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b core.Entry) int {
		return cmp.Or(
			a.Month().Compare(b.Month()),
			cmp.Compare(a.Platform, b.Platform),
			cmp.Compare(a.Asset, b.Asset),
		)
	})
	return out
}

func keyOf(e core.Entry, dims []Dimension) Key {
	var k Key
	for _, d := range dims {
		switch d {
		case ByAssetType:
			k.AssetType = e.AssetType
		case ByPlatform:
			k.Platform = e.Platform
		case ByAsset:
			k.Asset = e.Asset
		}
	}
	return k
}

type monthKey struct {
	month core.Month
	key   Key
}

// Monthly sums values per (month, dims...). Groups come back sorted by month
// then key label, but callers feeding rolling functions should still go
// through Series, which guarantees chronological order.
func Monthly(entries []core.Entry, dims ...Dimension) []Group {
	sums := make(map[monthKey]decimal.Decimal)
	for _, e := range Dedupe(entries) {
		mk := monthKey{month: e.Month(), key: keyOf(e, dims)}
		sums[mk] = sums[mk].Add(e.Value.Decimal)
	}
	out := make([]Group, 0, len(sums))
	for mk, v := range sums {
		out = append(out, Group{Month: mk.month, Key: mk.key, Value: v})
	}
	slices.SortFunc(out, func(a, b Group) int {
		return cmp.Or(a.Month.Compare(b.Month), cmp.Compare(a.Key.Label(), b.Key.Label()))
	})
	return out
}

// Totals is the ungrouped monthly total series, chronologically sorted.
func Totals(entries []core.Entry) []Point {
	return Series(Monthly(entries), Key{})
}

// Series extracts the chronologically sorted series for one key.
func Series(groups []Group, key Key) []Point {
	var out []Point
	for _, g := range groups {
		if g.Key == key {
			out = append(out, Point{Month: g.Month, Value: g.Value.InexactFloat64()})
		}
	}
	slices.SortFunc(out, func(a, b Point) int { return a.Month.Compare(b.Month) })
	return out
}

// SeriesByKey splits groups into one sorted series per key.
func SeriesByKey(groups []Group) map[Key][]Point {
	out := make(map[Key][]Point)
	for _, g := range groups {
		out[g.Key] = append(out[g.Key], Point{Month: g.Month, Value: g.Value.InexactFloat64()})
	}
	for k := range out {
		slices.SortFunc(out[k], func(a, b Point) int { return a.Month.Compare(b.Month) })
	}
	return out
}

// Months lists the distinct months with at least one valid row, ascending.
func Months(entries []core.Entry) []core.Month {
	seen := make(map[core.Month]bool)
	var out []core.Month
	for _, e := range entries {
		if !e.Value.Valid {
			continue
		}
		m := e.Month()
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	slices.SortFunc(out, core.Month.Compare)
	return out
}

// Latest returns the deduplicated rows of the most recent month.
func Latest(entries []core.Entry) []core.Entry {
	months := Months(entries)
	if len(months) == 0 {
		return nil
	}
	return InMonth(entries, months[len(months)-1])
}

// InMonth returns the deduplicated rows of month m.
func InMonth(entries []core.Entry, m core.Month) []core.Entry {
	var out []core.Entry
	for _, e := range Dedupe(entries) {
		if e.Month() == m {
			out = append(out, e)
		}
	}
	return out
}

// Filter keeps the rows of one asset type.
func Filter(entries []core.Entry, t core.AssetType) []core.Entry {
	var out []core.Entry
	for _, e := range entries {
		if e.AssetType == t {
			out = append(out, e)
		}
	}
	return out
}

// Share is one slice of a latest-month breakdown.
type Share struct {
	Key   Key     `json:"key"`
	Value float64 `json:"value"`
	Pct   float64 `json:"pct"`
}

// Breakdown splits the latest month by dim, largest first. Pct is 0 when the
// month total is 0.
func Breakdown(entries []core.Entry, dim Dimension) []Share {
	latest := Latest(entries)
	if len(latest) == 0 {
		return nil
	}
	groups := Monthly(latest, dim)
	var total decimal.Decimal
	for _, g := range groups {
		total = total.Add(g.Value)
	}
	out := make([]Share, 0, len(groups))
	for _, g := range groups {
		s := Share{Key: g.Key, Value: g.Value.InexactFloat64()}
		if !total.IsZero() {
			s.Pct = g.Value.Div(total).InexactFloat64()
		}
		out = append(out, s)
	}
	slices.SortStableFunc(out, func(a, b Share) int { return cmp.Compare(b.Value, a.Value) })
	return out
}

// Pivot turns groups into a month x key matrix. Missing cells are 0, which is
// correct for balances: a holding absent from a month held nothing.
func Pivot(groups []Group) (months []core.Month, keys []Key, cells map[core.Month]map[Key]float64) {
	cells = make(map[core.Month]map[Key]float64)
	seenKey := make(map[Key]bool)
	for _, g := range groups {
		row, ok := cells[g.Month]
		if !ok {
			row = make(map[Key]float64)
			cells[g.Month] = row
			months = append(months, g.Month)
		}
		row[g.Key] += g.Value.InexactFloat64()
		if !seenKey[g.Key] {
			seenKey[g.Key] = true
			keys = append(keys, g.Key)
		}
	}
	slices.SortFunc(months, core.Month.Compare)
	slices.SortFunc(keys, func(a, b Key) int { return cmp.Compare(a.Label(), b.Label()) })
	return months, keys, cells
}
