package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAssetType(t *testing.T) {
	cases := []struct {
		in   string
		want AssetType
		ok   bool
	}{
		{"Cash", Cash, true},
		{"investments", Investments, true},
		{" PENSIONS ", Pensions, true},
		{"Crypto", "", false},
		{"", "", false},
	}
	for i, tc := range cases {
		got, err := ParseAssetType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d: got %q, %v want %q", i, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrUnknownAssetType) {
			t.Fatalf("case %d: expected ErrUnknownAssetType, got %v", i, err)
		}
	}
}

func TestAssetTypesClosedSet(t *testing.T) {
	all := AssetTypes()
	if len(all) != 6 {
		t.Fatalf("expected 6 asset types, got %d", len(all))
	}
	for _, at := range all {
		if !at.Valid() {
			t.Fatalf("%q should be valid", at)
		}
	}
	if AssetType("Crypto").Valid() {
		t.Fatalf("Crypto must not be valid")
	}
}

func TestEntryUnitPrice(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	e := NewEntry("Coinbase", "BTC", decimal.NewFromInt(3000), ts)
	if e.UnitPrice().Valid() {
		t.Fatalf("unit price without token amount must be undefined")
	}
	e.TokenAmount = decimal.NewNullDecimal(decimal.NewFromFloat(0.1))
	if v, ok := e.UnitPrice().Get(); !ok || v != 30000 {
		t.Fatalf("unit price = %v,%v want 30000", v, ok)
	}
	e.TokenAmount = decimal.NewNullDecimal(decimal.Zero)
	if e.UnitPrice().Valid() {
		t.Fatalf("zero token amount must give undefined unit price")
	}
}

func TestCashflowSigned(t *testing.T) {
	fee := Cashflow{Value: decimal.NewFromInt(25), Type: Fee}
	if !fee.Signed().Equal(decimal.NewFromInt(-25)) {
		t.Fatalf("fee should be an outflow, got %s", fee.Signed())
	}
	c := Cashflow{Value: decimal.NewFromInt(500), Type: Contribution}
	if !c.Signed().Equal(decimal.NewFromInt(500)) {
		t.Fatalf("contribution should keep sign, got %s", c.Signed())
	}
}

func TestMonthOrderingAndFormat(t *testing.T) {
	jan := NewMonth(2024, 1)
	dec := NewMonth(2023, 12)
	if !dec.Before(jan) || jan.Before(dec) {
		t.Fatalf("ordering broken")
	}
	if jan.AddMonths(-1) != dec {
		t.Fatalf("AddMonths(-1) = %v", jan.AddMonths(-1))
	}
	if jan.String() != "2024-01" || jan.Label() != "January 2024" || jan.Short() != "Jan 2024" {
		t.Fatalf("formatting: %s / %s / %s", jan.String(), jan.Label(), jan.Short())
	}
	b, err := json.Marshal(map[string]Month{"m": jan})
	if err != nil || string(b) != `{"m":"2024-01"}` {
		t.Fatalf("json = %s, %v", b, err)
	}
}

func TestOpt(t *testing.T) {
	if None.Valid() {
		t.Fatalf("None must be undefined")
	}
	if Some(0).Valid() == false {
		t.Fatalf("Some(0) must be defined")
	}
	if Ratio(1, 0).Valid() {
		t.Fatalf("division by zero must be undefined")
	}
	if v, _ := Change(1100, Some(1000)).Get(); v < 0.0999 || v > 0.1001 {
		t.Fatalf("change = %v", v)
	}
	if Change(1100, None).Valid() || Change(1100, Some(0)).Valid() {
		t.Fatalf("change against missing or zero must be undefined")
	}
	b, _ := json.Marshal(struct {
		A Opt `json:"a"`
		B Opt `json:"b"`
	}{Some(0.5), None})
	if string(b) != `{"a":0.5,"b":null}` {
		t.Fatalf("json = %s", b)
	}
}

func TestParseDayFirst(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"03/04/2024", time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)},
		{"3/4/2024", time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)},
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15/01/2024 10:30", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseDayFirst(tc.in)
		if err != nil || !got.Equal(tc.want) {
			t.Fatalf("ParseDayFirst(%q) = %v, %v want %v", tc.in, got, err, tc.want)
		}
	}
	if _, err := ParseDayFirst("not a date"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}
