package types

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// DecimalContext is the arithmetic context for Decimal values.
var DecimalContext = apd.BaseContext.WithPrecision(34)

// decimalType implements arbitrary-precision decimals. It has no
// discrete predecessor or successor.
type decimalType struct{}

func (t *decimalType) Name() string {
	return "Decimal"
}

func (t *decimalType) Compare(a, b Value) int {
	if a.Null || b.Null {
		return CompareValues(a, b)
	}
	return a.Data.(*apd.Decimal).Cmp(b.Data.(*apd.Decimal))
}

func (t *decimalType) IsValid(v Value) bool {
	if v.Null {
		return true
	}
	d, ok := v.Data.(*apd.Decimal)
	return ok && d.Form == apd.Finite
}

func (t *decimalType) Zero() Value {
	return NewValue(apd.New(0, 0))
}

func (t *decimalType) Literal(v Value, verbatim bool) string {
	s := v.Data.(*apd.Decimal).Text('f')
	if verbatim {
		return s + "d"
	}
	return s
}

// NewDecimalValue creates a new Decimal value from a string
func NewDecimalValue(s string) (Value, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Value{}, fmt.Errorf("invalid decimal value: %s", s)
	}
	if d.Form != apd.Finite {
		return Value{}, fmt.Errorf("invalid decimal value: %s", s)
	}
	return NewValue(d), nil
}

// MustDecimal is NewDecimalValue for literals known to be valid.
func MustDecimal(s string) Value {
	v, err := NewDecimalValue(s)
	if err != nil {
		panic(err)
	}
	return v
}

// NewDecimalValueFromInt creates a new Decimal value from an int64
func NewDecimalValueFromInt(i int64) Value {
	return NewValue(apd.New(i, 0))
}
