package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"networth/internal/core"
)

// Keyword assigns an asset type to any asset whose name contains Match.
type Keyword struct {
	Match string         `json:"match"`
	Type  core.AssetType `json:"type"`
}

// Classification is the immutable set of lookup tables used to classify
// ledger rows. Build it once at startup and share the pointer.
type Classification struct {
	platforms map[string]core.AssetType
	assets    map[string]core.AssetType
	keywords  []Keyword

	// Expected values only produce loader warnings.
	expectedPlatforms []string
	expectedAssets    []string
	expectedPensions  []string
}

// classificationFile is the JSON shape accepted by CLASSIFICATION_FILE.
type classificationFile struct {
	Platforms         map[string]core.AssetType `json:"platforms"`
	Assets            map[string]core.AssetType `json:"assets"`
	Keywords          []Keyword                 `json:"keywords"`
	ExpectedPlatforms []string                  `json:"expected_platforms"`
	ExpectedAssets    []string                  `json:"expected_assets"`
	ExpectedPensions  []string                  `json:"expected_pension_assets"`
}

func defaultClassificationFile() classificationFile {
	return classificationFile{
		Platforms: map[string]core.AssetType{
			"IBKR":          core.Investments,
			"HSBC":          core.Cash,
			"Wise":          core.Cash,
			"Coinbase":      core.Investments,
			"Wahed":         core.Pensions,
			"Standard Life": core.Pensions,
			"MotoNovo":      core.Vehicles,
			"Owned":         core.Vehicles,
		},
		Assets: map[string]core.AssetType{
			"ON BNS SAVER":         core.Cash,
			"BTC":                  core.Investments,
			"ETH":                  core.Investments,
			"SOL":                  core.Investments,
			"Wahed SIPP":           core.Pensions,
			"SL Pension":           core.Pensions,
			"IBKR Total Portfolio": core.Investments,
			"Wise Savings":         core.Cash,
			"Porsche Taycan 4S":    core.Vehicles,
		},
		Keywords: []Keyword{
			{Match: "pension", Type: core.Pensions},
			{Match: "sipp", Type: core.Pensions},
			{Match: "saver", Type: core.Cash},
			{Match: "savings", Type: core.Cash},
			{Match: "current account", Type: core.Cash},
			{Match: "property", Type: core.Property},
			{Match: "house", Type: core.Property},
		},
		ExpectedPlatforms: []string{"IBKR", "HSBC", "Wise", "Coinbase", "Wahed", "Standard Life"},
		ExpectedAssets: []string{
			"ON BNS SAVER", "BTC", "ETH", "SOL", "Wahed SIPP",
			"SL Pension", "IBKR Total Portfolio", "Wise Savings",
		},
		ExpectedPensions: []string{"Wahed SIPP", "SL Pension"},
	}
}

// DefaultClassification returns the built-in tables.
func DefaultClassification() *Classification {
	c, err := newClassification(defaultClassificationFile())
	if err != nil {
		panic(fmt.Sprintf("built-in classification is invalid: %v", err))
	}
	return c
}

// LoadClassification reads the tables from a JSON file, or returns the
// defaults when path is empty. Sections missing from the file keep their
// default content.
func LoadClassification(path string) (*Classification, error) {
	if path == "" {
		return DefaultClassification(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classification file: %w", err)
	}
	var f classificationFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse classification file %s: %w", path, err)
	}
	def := defaultClassificationFile()
	if f.Platforms == nil {
		f.Platforms = def.Platforms
	}
	if f.Assets == nil {
		f.Assets = def.Assets
	}
	if f.Keywords == nil {
		f.Keywords = def.Keywords
	}
	if f.ExpectedPlatforms == nil {
		f.ExpectedPlatforms = def.ExpectedPlatforms
	}
	if f.ExpectedAssets == nil {
		f.ExpectedAssets = def.ExpectedAssets
	}
	if f.ExpectedPensions == nil {
		f.ExpectedPensions = def.ExpectedPensions
	}
	return newClassification(f)
}

func newClassification(f classificationFile) (*Classification, error) {
	c := &Classification{
		platforms:         make(map[string]core.AssetType, len(f.Platforms)),
		assets:            make(map[string]core.AssetType, len(f.Assets)),
		expectedPlatforms: slices.Clone(f.ExpectedPlatforms),
		expectedAssets:    slices.Clone(f.ExpectedAssets),
		expectedPensions:  slices.Clone(f.ExpectedPensions),
	}
	problems := fillTable(c.platforms, "platform", f.Platforms)
	problems = append(problems, fillTable(c.assets, "asset", f.Assets)...)
	for _, k := range f.Keywords {
		if !k.Type.Valid() || strings.TrimSpace(k.Match) == "" {
			problems = append(problems, fmt.Sprintf("keyword %q: invalid rule", k.Match))
			continue
		}
		c.keywords = append(c.keywords, Keyword{Match: normalize(k.Match), Type: k.Type})
	}
	if len(problems) > 0 {
		slices.Sort(problems)
		return nil, fmt.Errorf("invalid classification:\n- %s", strings.Join(problems, "\n- "))
	}
	return c, nil
}

// fillTable normalises names into dst. Names that differ only in case or
// spacing would make the winner depend on map order, so they are rejected.
func fillTable(dst map[string]core.AssetType, kind string, src map[string]core.AssetType) []string {
	var problems []string
	seen := make(map[string]string, len(src))
	for _, name := range slices.Sorted(maps.Keys(src)) {
		t := src[name]
		if !t.Valid() {
			problems = append(problems, fmt.Sprintf("%s %q: unknown asset type %q", kind, name, t))
			continue
		}
		key := normalize(name)
		if prev, ok := seen[key]; ok {
			problems = append(problems, fmt.Sprintf("%s %q: duplicates %q", kind, name, prev))
			continue
		}
		seen[key] = name
		dst[key] = t
	}
	return problems
}

// Platform looks up the asset type mapped to a platform name.
func (c *Classification) Platform(name string) (core.AssetType, bool) {
	t, ok := c.platforms[normalize(name)]
	return t, ok
}

// Asset looks up the asset type mapped to an exact asset name.
func (c *Classification) Asset(name string) (core.AssetType, bool) {
	t, ok := c.assets[normalize(name)]
	return t, ok
}

// MatchKeyword returns the first keyword rule contained in the asset name.
func (c *Classification) MatchKeyword(asset string) (core.AssetType, bool) {
	n := normalize(asset)
	for _, k := range c.keywords {
		if strings.Contains(n, k.Match) {
			return k.Type, true
		}
	}
	return "", false
}

// Default is the fallback type for unmatched rows.
func (c *Classification) Default() core.AssetType { return core.Other }

func (c *Classification) ExpectedPlatforms() []string { return slices.Clone(c.expectedPlatforms) }

func (c *Classification) ExpectedAssets() []string { return slices.Clone(c.expectedAssets) }

func (c *Classification) ExpectedPensionAssets() []string {
	return slices.Clone(c.expectedPensions)
}

// PlatformNames lists mapped platforms, sorted, for diagnostics.
func (c *Classification) PlatformNames() []string {
	return slices.Sorted(maps.Keys(c.platforms))
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
