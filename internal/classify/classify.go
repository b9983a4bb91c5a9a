// Package classify assigns an asset type to every ledger row.
//
// Lookup order is platform table, exact asset table, asset keyword, then the
// fallback type. The mapping is total and deterministic. Rows that land in the
// fallback are not errors; Validate reports them for review.
package classify

import (
	"fmt"
	"slices"
	"strings"

	"networth/internal/config"
	"networth/internal/core"
)

// Rule names which table produced a classification.
type Rule string

const (
	RulePlatform Rule = "platform"
	RuleAsset    Rule = "asset"
	RuleKeyword  Rule = "keyword"
	RuleDefault  Rule = "default"
)

type Classifier struct {
	tables *config.Classification
}

func New(tables *config.Classification) *Classifier {
	if tables == nil {
		tables = config.DefaultClassification()
	}
	return &Classifier{tables: tables}
}

// Classify returns the asset type for one platform/asset pair.
func (c *Classifier) Classify(platform, asset string) core.AssetType {
	t, _ := c.explain(platform, asset)
	return t
}

// Explain is Classify plus the rule that matched.
func (c *Classifier) Explain(platform, asset string) (core.AssetType, Rule) {
	return c.explain(platform, asset)
}

func (c *Classifier) explain(platform, asset string) (core.AssetType, Rule) {
	if t, ok := c.tables.Platform(platform); ok {
		return t, RulePlatform
	}
	if t, ok := c.tables.Asset(asset); ok {
		return t, RuleAsset
	}
	if t, ok := c.tables.MatchKeyword(asset); ok {
		return t, RuleKeyword
	}
	return c.tables.Default(), RuleDefault
}

// Apply returns a copy of entries with AssetType filled in. The input is not modified.
func (c *Classifier) Apply(entries []core.Entry) []core.Entry {
	out := make([]core.Entry, len(entries))
	for i, e := range entries {
		e.AssetType = c.Classify(e.Platform, e.Asset)
		out[i] = e
	}
	return out
}

// Holding is a distinct platform/asset pair.
type Holding struct {
	Platform string `json:"platform"`
	Asset    string `json:"asset"`
}

// Report summarises classification coverage.
type Report struct {
	Total           int                    `json:"total_rows"`
	Classified      int                    `json:"classified_rows"`
	Unclassified    int                    `json:"unclassified_rows"`
	Rate            float64                `json:"classification_rate"`
	Distribution    map[core.AssetType]int `json:"asset_type_distribution"`
	Unmatched       []Holding              `json:"unclassified_holdings"`
	Recommendations []string               `json:"recommendations"`
}

// coverageTarget is the classification rate below which more rules are recommended.
const coverageTarget = 90.0

// Validate classifies entries and reports coverage. Rate is a percentage.
func (c *Classifier) Validate(entries []core.Entry) Report {
	r := Report{
		Total:        len(entries),
		Distribution: make(map[core.AssetType]int),
	}
	if len(entries) == 0 {
		r.Recommendations = []string{"No ledger rows loaded - check the data source"}
		return r
	}

	seen := make(map[Holding]bool)
	for _, e := range entries {
		t := c.Classify(e.Platform, e.Asset)
		r.Distribution[t]++
		if t != c.tables.Default() {
			r.Classified++
			continue
		}
		r.Unclassified++
		h := Holding{Platform: e.Platform, Asset: e.Asset}
		if !seen[h] {
			seen[h] = true
			r.Unmatched = append(r.Unmatched, h)
		}
	}
	slices.SortFunc(r.Unmatched, func(a, b Holding) int {
		if n := strings.Compare(a.Platform, b.Platform); n != 0 {
			return n
		}
		return strings.Compare(a.Asset, b.Asset)
	})
	r.Rate = float64(r.Classified) / float64(r.Total) * 100

	if r.Unclassified > 0 {
		r.Recommendations = append(r.Recommendations, fmt.Sprintf(
			"Review %d unclassified rows across %d holdings; add their platform or asset to the classification tables",
			r.Unclassified, len(r.Unmatched)))
	}
	if r.Rate < coverageTarget {
		r.Recommendations = append(r.Recommendations, "Consider adding more classification rules to improve coverage")
	}
	for _, t := range []core.AssetType{core.Cash, core.Investments, core.Pensions} {
		if r.Distribution[t] == 0 {
			r.Recommendations = append(r.Recommendations,
				fmt.Sprintf("No rows classified as %s - verify classification rules", t))
		}
	}
	return r
}
