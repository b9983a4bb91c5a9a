package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetType is the closed classification label assigned to every ledger row.
type AssetType string

const (
	Cash        AssetType = "Cash"
	Investments AssetType = "Investments"
	Pensions    AssetType = "Pensions"
	Property    AssetType = "Property"
	Vehicles    AssetType = "Vehicles"
	Other       AssetType = "Other"
)

// CashflowType labels an external movement of money into or out of a pension.
type CashflowType string

const (
	Contribution CashflowType = "Contribution"
	Fee          CashflowType = "Fee"
	Transfer     CashflowType = "Transfer"
)

type (
	// Entry is one balance snapshot from the ledger.
	Entry struct {
		Platform  string
		Asset     string
		Value     decimal.NullDecimal // invalid when the source value could not be parsed
		Timestamp time.Time
		// TokenAmount is set for crypto holdings only.
		TokenAmount decimal.NullDecimal
		AssetType   AssetType
	}

	// Cashflow is one row of the pension cashflow ledger.
	Cashflow struct {
		Platform    string
		Asset       string
		Value       decimal.Decimal
		Timestamp   time.Time
		Type        CashflowType
		Description string
		Notes       string
	}
)

var (
	ErrMissingColumns   = errors.New("missing required columns")
	ErrInvalidValue     = errors.New("invalid value")
	ErrInvalidDate      = errors.New("invalid date")
	ErrNoData           = errors.New("no data")
	ErrUnknownAssetType = errors.New("unknown asset type")
	ErrUnknownCashflow  = errors.New("unknown cashflow type")
)

// AssetTypes returns the closed set of asset types in display order.
func AssetTypes() []AssetType {
	return []AssetType{Cash, Investments, Pensions, Property, Vehicles, Other}
}

// Valid reports whether t belongs to the closed set.
func (t AssetType) Valid() bool {
	switch t {
	case Cash, Investments, Pensions, Property, Vehicles, Other:
		return true
	default:
		return false
	}
}

func (t AssetType) String() string { return string(t) }

// ParseAssetType matches s case-insensitively against the closed set.
func ParseAssetType(s string) (AssetType, error) {
	s = strings.TrimSpace(s)
	for _, t := range AssetTypes() {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAssetType, s)
}

// ParseCashflowType matches s case-insensitively against Contribution, Fee and Transfer.
func ParseCashflowType(s string) (CashflowType, error) {
	s = strings.TrimSpace(s)
	for _, t := range []CashflowType{Contribution, Fee, Transfer} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCashflow, s)
}

// NewEntry builds a valid entry with the given value.
func NewEntry(platform, asset string, value decimal.Decimal, ts time.Time) Entry {
	return Entry{
		Platform:  strings.TrimSpace(platform),
		Asset:     strings.TrimSpace(asset),
		Value:     decimal.NewNullDecimal(value),
		Timestamp: ts,
	}
}

// Month returns the calendar month of the snapshot.
func (e Entry) Month() Month {
	return MonthOf(e.Timestamp)
}

// Amount returns the value and whether it is usable in sums.
func (e Entry) Amount() (decimal.Decimal, bool) {
	return e.Value.Decimal, e.Value.Valid
}

// UnitPrice is Value / TokenAmount for token holdings.
func (e Entry) UnitPrice() Opt {
	if !e.Value.Valid || !e.TokenAmount.Valid || e.TokenAmount.Decimal.IsZero() {
		return None
	}
	return Some(e.Value.Decimal.Div(e.TokenAmount.Decimal).InexactFloat64())
}

// Signed returns the cashflow value with fees counted as outflows.
func (c Cashflow) Signed() decimal.Decimal {
	if c.Type == Fee {
		return c.Value.Abs().Neg()
	}
	return c.Value
}
