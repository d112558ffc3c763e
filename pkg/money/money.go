package money

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every Money value carries.
const Scale = 2

var ErrInvalidMoney = errors.New("invalid money amount")

// Money is a fixed-precision decimal amount. The zero value is 0.00.
type Money struct {
	d decimal.Decimal
}

var Zero = Money{}

// Max is the largest magnitude Parse accepts and the ledger lets a balance
// reach. Its cents fit in an int64 with headroom for summing many amounts.
var Max = Money{d: decimal.New(999_999_999_999_999, -Scale)}

func fromDecimal(d decimal.Decimal) Money {
	return Money{d: d.Round(Scale)}
}

// New builds a Money from a whole number of minor units (cents).
func New(cents int64) Money {
	return Money{d: decimal.New(cents, -Scale)}
}

// FromInt builds a Money from a whole number of major units.
func FromInt(units int64) Money {
	return Money{d: decimal.NewFromInt(units)}
}

// Parse reads a decimal string such as "12.34". More than two fractional
// digits is an error rather than a silent rounding.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	if !d.Equal(d.Round(Scale)) {
		return Zero, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidMoney, s, Scale)
	}
	m := fromDecimal(d)
	if !m.InRange() {
		return Zero, fmt.Errorf("%w: %q exceeds %s", ErrInvalidMoney, s, Max)
	}
	return m, nil
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(o Money) Money { return fromDecimal(m.d.Add(o.d)) }
func (m Money) Sub(o Money) Money { return fromDecimal(m.d.Sub(o.d)) }
func (m Money) Neg() Money { return fromDecimal(m.d.Neg()) }
func (m Money) Abs() Money { return fromDecimal(m.d.Abs()) }

// MulRatio multiplies by num/den and rounds half away from zero to cents.
func (m Money) MulRatio(num decimal.Decimal, den int64) Money {
	return fromDecimal(m.d.Mul(num).Div(decimal.NewFromInt(den)))
}

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }
func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }
func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }
func (m Money) LessOrEqual(o Money) bool { return m.d.LessThanOrEqual(o.d) }
func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }
func (m Money) IsZero() bool { return m.d.IsZero() }
func (m Money) Decimal() decimal.Decimal { return m.d }

// InRange reports whether |m| <= Max.
func (m Money) InRange() bool { return m.d.Abs().LessThanOrEqual(Max.d) }

// Cents returns the amount in minor units. It is exact for amounts in range.
func (m Money) Cents() int64 {
	return m.d.Shift(Scale).IntPart()
}

func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Sum adds every amount.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MarshalJSON encodes as a string so clients never see float rounding.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.34" and 12.34.
func (m *Money) UnmarshalJSON(b []byte) error {
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	if s == "" || s == "null" {
		*m = Zero
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
