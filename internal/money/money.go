// Package money provides the fixed-point monetary value used for every
// balance, fee and transferred amount in the ledger. Values carry exactly
// two fractional digits; any operation that changes scale rounds half-up.
// Arithmetic is exact decimal (shopspring/decimal), never a binary float.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount indicates an input that cannot be represented as a
// scale-2 monetary value.
var ErrInvalidAmount = errors.New("invalid amount")

const scale = 2

// Money is an immutable scale-2 decimal amount.
type Money struct {
	d decimal.Decimal
}

// Zero is the canonical 0.00 value.
func Zero() Money {
	return Money{d: decimal.Zero.Round(scale)}
}

// Parse converts a decimal string ("19.995") to Money, rounding half-up
// to two fractional digits.
func Parse(raw string) (Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return FromDecimal(d), nil
}

// MustParse is Parse for test fixtures and constants known to be valid.
func MustParse(raw string) Money {
	m, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal rescales an arbitrary-precision decimal to Money.
// decimal.Round rounds half away from zero, which equals half-up for the
// non-negative amounts the ledger deals in.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d.Round(scale)}
}

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// Cmp returns -1, 0 or 1 comparing m against o.
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }
func (m Money) IsZero() bool     { return m.d.IsZero() }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// Decimal exposes the underlying value for policy math. Callers must
// rescale through FromDecimal before storing a derived amount.
func (m Money) Decimal() decimal.Decimal { return m.d }

// String renders the value with exactly two fractional digits ("800.00").
func (m Money) String() string { return m.d.StringFixed(scale) }

// MarshalJSON encodes Money as a decimal string so no consumer ever sees
// a binary float.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both "12.34" and a bare JSON number.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
