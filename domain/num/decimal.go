// Package num wraps an exact decimal type for all price and quantity
// arithmetic. The engine never touches binary floating point on a
// monetary path; every value passes through D.
package num

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinScale is the smallest fractional precision the engine accepts.
const MinScale int32 = 8

// D is a fixed-precision decimal scalar. The zero value is 0.
type D struct {
	d decimal.Decimal
}

// Zero returns the zero scalar.
func Zero() D { return D{} }

// FromInt builds a scalar from an integer.
func FromInt(n int64) D { return D{decimal.NewFromInt(n)} }

// Parse converts a canonical decimal string into a scalar. It rejects
// non-numeric input and values with more than scale fractional digits.
// Trailing zeros do not count against the scale.
func Parse(s string, scale int32) (D, error) {
	if s == "" {
		return D{}, fmt.Errorf("empty decimal")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return D{}, fmt.Errorf("invalid decimal %q", s)
	}
	if !d.Equal(d.Truncate(scale)) {
		return D{}, fmt.Errorf("decimal %q exceeds scale %d", s, scale)
	}
	return D{d}, nil
}

// MustParse is Parse at MinScale, panicking on failure. Test helper.
func MustParse(s string) D {
	v, err := Parse(s, MinScale)
	if err != nil {
		panic(err)
	}
	return v
}

func (a D) Add(b D) D { return D{a.d.Add(b.d)} }
func (a D) Sub(b D) D { return D{a.d.Sub(b.d)} }
func (a D) Mul(b D) D { return D{a.d.Mul(b.d)} }

// Cmp returns -1, 0 or +1. Comparison is value-based: 1.50 equals 1.5.
func (a D) Cmp(b D) int { return a.d.Cmp(b.d) }

func (a D) Equal(b D) bool       { return a.d.Equal(b.d) }
func (a D) LessThan(b D) bool    { return a.d.Cmp(b.d) < 0 }
func (a D) GreaterThan(b D) bool { return a.d.Cmp(b.d) > 0 }

func (a D) IsZero() bool     { return a.d.IsZero() }
func (a D) IsPositive() bool { return a.d.IsPositive() }
func (a D) IsNegative() bool { return a.d.IsNegative() }

// Min returns the smaller of a and b.
func Min(a, b D) D {
	if a.d.Cmp(b.d) <= 0 {
		return a
	}
	return b
}

// Div divides a by b. Only average fill prices use it; prices and
// quantities never pass through it.
func (a D) Div(b D) D { return D{a.d.Div(b.d)} }

// String renders the canonical form with trailing zeros stripped.
func (a D) String() string { return a.d.String() }

// MarshalJSON encodes the scalar as a quoted decimal string.
func (a D) MarshalJSON() ([]byte, error) { return a.d.MarshalJSON() }

// UnmarshalJSON accepts quoted and bare decimal literals.
func (a *D) UnmarshalJSON(b []byte) error { return a.d.UnmarshalJSON(b) }
