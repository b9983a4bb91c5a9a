package classify

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth/internal/config"
	"networth/internal/core"
)

func entry(platform, asset string) core.Entry {
	return core.NewEntry(platform, asset, decimal.NewFromInt(100), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
}

func TestClassifyLookupOrder(t *testing.T) {
	c := New(config.DefaultClassification())

	tests := []struct {
		name     string
		platform string
		asset    string
		want     core.AssetType
		rule     Rule
	}{
		{"platform wins", "HSBC", "BTC", core.Cash, RulePlatform},
		{"asset table when platform unknown", "Kraken", "ETH", core.Investments, RuleAsset},
		{"keyword when no exact match", "Nationwide", "Flex Saver", core.Cash, RuleKeyword},
		{"keyword is case insensitive", "Aviva", "Workplace PENSION", core.Pensions, RuleKeyword},
		{"fallback", "Monzo", "Pot", core.Other, RuleDefault},
		{"empty strings fall back", "", "", core.Other, RuleDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule := c.Explain(tt.platform, tt.asset)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestClassifyIsTotalAndDeterministic(t *testing.T) {
	c := New(nil)
	platforms := []string{"HSBC", "IBKR", "Unknown", "", "wise", "Owned", "???"}
	assets := []string{"BTC", "SL Pension", "Mystery", "", "House", "Taycan"}
	for _, p := range platforms {
		for _, a := range assets {
			first := c.Classify(p, a)
			require.True(t, first.Valid(), "classify(%q,%q) = %q outside closed set", p, a, first)
			assert.Equal(t, first, c.Classify(p, a))
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	c := New(nil)
	in := []core.Entry{entry("HSBC", "Savings"), entry("Monzo", "Pot")}
	out := c.Apply(in)

	require.Len(t, out, 2)
	assert.Equal(t, core.Cash, out[0].AssetType)
	assert.Equal(t, core.Other, out[1].AssetType)
	assert.Empty(t, in[0].AssetType, "input must stay untouched")
}

func TestValidateReport(t *testing.T) {
	c := New(nil)
	entries := []core.Entry{
		entry("HSBC", "Savings"),
		entry("IBKR", "IBKR Total Portfolio"),
		entry("Wahed", "Wahed SIPP"),
		entry("Monzo", "Pot"),
		entry("Monzo", "Pot"),
	}
	r := c.Validate(entries)

	assert.Equal(t, 5, r.Total)
	assert.Equal(t, 3, r.Classified)
	assert.Equal(t, 2, r.Unclassified)
	assert.InDelta(t, 60.0, r.Rate, 1e-9)
	assert.Equal(t, []Holding{{Platform: "Monzo", Asset: "Pot"}}, r.Unmatched)
	assert.Equal(t, 2, r.Distribution[core.Other])
	require.Len(t, r.Recommendations, 2)
	assert.Contains(t, r.Recommendations[1], "more classification rules")
}

func TestValidateMissingCoreTypes(t *testing.T) {
	r := New(nil).Validate([]core.Entry{entry("HSBC", "Savings")})
	assert.InDelta(t, 100.0, r.Rate, 1e-9)
	assert.Contains(t, r.Recommendations, "No rows classified as Investments - verify classification rules")
	assert.Contains(t, r.Recommendations, "No rows classified as Pensions - verify classification rules")
	assert.NotContains(t, r.Recommendations, "No rows classified as Cash - verify classification rules")
}

func TestValidateEmpty(t *testing.T) {
	r := New(nil).Validate(nil)
	assert.Zero(t, r.Total)
	assert.Len(t, r.Recommendations, 1)
}
