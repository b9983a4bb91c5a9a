// Package core holds the ledger domain types and the parsing and formatting
// helpers shared by every layer.
//
// This file covers currency strings: the ledger stores balances as formatted
// text ("£1,234.56") and the dashboard renders them back through go-money.
package core

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the ISO code the ledger is kept in.
const DefaultCurrency = money.GBP

var currencyStripper = strings.NewReplacer(
	"£", "", "$", "", "€", "",
	",", "", " ", "", "\u00a0", "",
)

// ParseCurrency converts a currency-formatted string to a decimal.
//
// Currency symbols, thousands separators and spaces are stripped. Accounting
// negatives in parentheses are accepted.
//
// Examples:
//
//	ParseCurrency("£1,234.56") -> 1234.56
//	ParseCurrency("-£12")      -> -12
//	ParseCurrency("(50.00)")   -> -50
func ParseCurrency(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = currencyStripper.Replace(s)
	if s == "" || s == "-" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidValue, raw)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// ParseNullCurrency is ParseCurrency for optional columns: blank input is a
// valid "no value" rather than an error.
func ParseNullCurrency(s string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := ParseCurrency(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// FormatMoney renders d in the given ISO currency, e.g. "£1,234.56".
func FormatMoney(d decimal.Decimal, code string) string {
	if code == "" {
		code = DefaultCurrency
	}
	// money.New never returns a nil currency, unknown codes get a generic one
	cur := *money.New(0, code).Currency()
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

// FormatFloat is FormatMoney for values that already went through float math.
func FormatFloat(v float64, code string) string {
	return FormatMoney(decimal.NewFromFloat(v), code)
}

// FormatPct renders a ratio as a signed percentage, or "N/A" when undefined.
func FormatPct(o Opt) string {
	v, ok := o.Get()
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%+.1f%%", v*100)
}
