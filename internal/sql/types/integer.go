package types

import (
	"math"
	"strconv"
)

// integerType implements the Integer data type (64-bit)
type integerType struct{}

func (t *integerType) Name() string {
	return "Integer"
}

func (t *integerType) Compare(a, b Value) int {
	if a.Null || b.Null {
		return CompareValues(a, b)
	}

	aVal := a.Data.(int64)
	bVal := b.Data.(int64)

	if aVal < bVal {
		return -1
	} else if aVal > bVal {
		return 1
	}
	return 0
}

func (t *integerType) IsValid(v Value) bool {
	if v.Null {
		return true
	}
	_, ok := v.Data.(int64)
	return ok
}

func (t *integerType) Zero() Value {
	return NewValue(int64(0))
}

func (t *integerType) Literal(v Value, verbatim bool) string {
	return strconv.FormatInt(v.Data.(int64), 10)
}

func (t *integerType) Pred(v Value) (Value, bool) {
	i := v.Data.(int64)
	if i == math.MinInt64 {
		return Value{}, false
	}
	return NewValue(i - 1), true
}

func (t *integerType) Succ(v Value) (Value, bool) {
	i := v.Data.(int64)
	if i == math.MaxInt64 {
		return Value{}, false
	}
	return NewValue(i + 1), true
}

// NewIntegerValue creates a new Integer value
func NewIntegerValue(i int64) Value {
	return NewValue(i)
}
