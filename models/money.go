package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents). It encodes to JSON as a
// fixed two-decimal number so clients never see float artifacts.
type Money int64

var hundred = decimal.NewFromInt(100)

// MaxAmount bounds every amount, line total and invoice total.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// CheckAmount reports whether d lies within ±MaxAmount.
func CheckAmount(d decimal.Decimal) error {
	if d.Abs().GreaterThan(MaxAmount) {
		return fmt.Errorf("must not exceed %s", MaxAmount.StringFixed(2))
	}
	return nil
}

func init() {
	// quantities and tax rates are JSON numbers, like amounts
	decimal.MarshalJSONWithoutQuotes = true
}

// NewMoney rounds d half away from zero to the cent. Callers keep d within
// MaxAmount; see CheckAmount.
func NewMoney(d decimal.Decimal) Money {
	return Money(d.Round(2).Shift(2).IntPart())
}

// ParseMoney parses a decimal string such as "137.5".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parsing money %q: %w", s, err)
	}
	if err := CheckAmount(d); err != nil {
		return 0, fmt.Errorf("parsing money %q: %w", s, err)
	}
	return NewMoney(d), nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Percent returns m * rate / 100, rounded to the cent.
func (m Money) Percent(rate decimal.Decimal) Money {
	return NewMoney(m.Decimal().Mul(rate).Div(hundred))
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if err := CheckAmount(d); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	*m = NewMoney(d)
	return nil
}

// Scan implements sql.Scanner for BIGINT cent columns.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = 0
	case int64:
		*m = Money(v)
	case int32:
		*m = Money(v)
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return int64(m), nil
}
