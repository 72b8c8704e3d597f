package types

import (
	"math"

	"github.com/cockroachdb/apd/v3"

	"github.com/dshills/quantaplan/internal/errors"
)

// ArithOp is a binary arithmetic operator.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
)

func (op ArithOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	}
	return "?"
}

// IsNumeric reports whether dt supports arithmetic.
func IsNumeric(dt DataType) bool {
	return dt == Integer || dt == Decimal
}

// Arith applies op to two values of the same numeric type. Nil in, nil out.
func Arith(op ArithOp, a, b Value) (Value, error) {
	if a.Null || b.Null {
		return NewNullValue(), nil
	}
	switch x := a.Data.(type) {
	case int64:
		y, ok := b.Data.(int64)
		if !ok {
			return Value{}, errors.TypeMismatchError(Integer.Name(), b.Type().Name(), "operand")
		}
		return intArith(op, x, y)
	case *apd.Decimal:
		y, ok := b.Data.(*apd.Decimal)
		if !ok {
			return Value{}, errors.TypeMismatchError(Decimal.Name(), b.Type().Name(), "operand")
		}
		return decimalArith(op, x, y)
	}
	return Value{}, errors.TypeMismatchError("numeric", a.Type().Name(), "operand")
}

func intArith(op ArithOp, x, y int64) (Value, error) {
	var r int64
	switch op {
	case OpAdd:
		r = x + y
		if (r > x) != (y > 0) {
			return Value{}, errors.NumericValueOutOfRangeError(Integer.Name())
		}
	case OpSub:
		r = x - y
		if (r < x) != (y > 0) {
			return Value{}, errors.NumericValueOutOfRangeError(Integer.Name())
		}
	case OpMul:
		if x != 0 && y != 0 {
			r = x * y
			if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
				return Value{}, errors.NumericValueOutOfRangeError(Integer.Name())
			}
		}
	case OpDiv:
		if y == 0 {
			return Value{}, errors.DivisionByZeroError()
		}
		if x == math.MinInt64 && y == -1 {
			return Value{}, errors.NumericValueOutOfRangeError(Integer.Name())
		}
		r = x / y
	}
	return NewValue(r), nil
}

func decimalArith(op ArithOp, x, y *apd.Decimal) (Value, error) {
	r := new(apd.Decimal)
	var err error
	switch op {
	case OpAdd:
		_, err = DecimalContext.Add(r, x, y)
	case OpSub:
		_, err = DecimalContext.Sub(r, x, y)
	case OpMul:
		_, err = DecimalContext.Mul(r, x, y)
	case OpDiv:
		if y.IsZero() {
			return Value{}, errors.DivisionByZeroError()
		}
		_, err = DecimalContext.Quo(r, x, y)
	}
	if err != nil {
		return Value{}, errors.NumericValueOutOfRangeError(Decimal.Name())
	}
	return NewValue(r), nil
}

// Negate returns -v for a numeric value.
func Negate(v Value) (Value, error) {
	if v.Null {
		return v, nil
	}
	switch x := v.Data.(type) {
	case int64:
		if x == math.MinInt64 {
			return Value{}, errors.NumericValueOutOfRangeError(Integer.Name())
		}
		return NewValue(-x), nil
	case *apd.Decimal:
		return NewValue(new(apd.Decimal).Neg(x)), nil
	}
	return Value{}, errors.TypeMismatchError("numeric", v.Type().Name(), "operand")
}
