package types

import (
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/dshills/quantaplan/internal/errors"
)

// Conversion converts values of one type into another.
type Conversion struct {
	From DataType
	To   DataType

	// OrderPreserving conversions are strictly increasing and carry Inverse.
	OrderPreserving bool

	Convert func(v Value) (Value, error)

	// Inverse maps a value of To back into From. It returns the greatest
	// From value whose image is at most v (up false) or the least whose
	// image is at least v (up true), and whether v is exactly that image.
	Inverse func(v Value, up bool) (Value, bool, error)
}

type conversionKey struct {
	from, to string
}

var conversions = map[conversionKey]*Conversion{}

func registerConversion(c *Conversion) {
	conversions[conversionKey{c.From.Name(), c.To.Name()}] = c
}

// FindConversion returns the conversion from one type to another.
func FindConversion(from, to DataType) (*Conversion, bool) {
	c, ok := conversions[conversionKey{from.Name(), to.Name()}]
	return c, ok
}

// Convert converts v to the given type. Nil converts to nil.
func Convert(v Value, to DataType) (Value, error) {
	if v.Null {
		return v, nil
	}
	from := v.Type()
	if from == to {
		return v, nil
	}
	c, ok := FindConversion(from, to)
	if !ok {
		return Value{}, errors.InvalidCastError(from.Name(), to.Name())
	}
	return c.Convert(v)
}

func init() {
	registerConversion(&Conversion{
		From:            Integer,
		To:              Decimal,
		OrderPreserving: true,
		Convert: func(v Value) (Value, error) {
			return NewDecimalValueFromInt(v.Data.(int64)), nil
		},
		Inverse: decimalToIntegerBound,
	})
	registerConversion(&Conversion{
		From: Integer,
		To:   Text,
		Convert: func(v Value) (Value, error) {
			return NewValue(strconv.FormatInt(v.Data.(int64), 10)), nil
		},
	})
	registerConversion(&Conversion{
		From: Text,
		To:   Integer,
		Convert: func(v Value) (Value, error) {
			i, err := strconv.ParseInt(v.Data.(string), 10, 64)
			if err != nil {
				return Value{}, errors.InvalidTextRepresentationError(Integer.Name(), v.Data.(string))
			}
			return NewValue(i), nil
		},
	})
	registerConversion(&Conversion{
		From: Text,
		To:   Date,
		Convert: func(v Value) (Value, error) {
			d, err := ParseDate(v.Data.(string))
			if err != nil {
				return Value{}, errors.InvalidTextRepresentationError(Date.Name(), v.Data.(string))
			}
			return d, nil
		},
	})
	registerConversion(&Conversion{
		From: Date,
		To:   Text,
		Convert: func(v Value) (Value, error) {
			return NewValue(v.Data.(time.Time).Format(DateLayout)), nil
		},
	})
	registerConversion(&Conversion{
		From: Text,
		To:   Decimal,
		Convert: func(v Value) (Value, error) {
			d, err := NewDecimalValue(v.Data.(string))
			if err != nil {
				return Value{}, errors.InvalidTextRepresentationError(Decimal.Name(), v.Data.(string))
			}
			return d, nil
		},
	})
	registerConversion(&Conversion{
		From: Decimal,
		To:   Text,
		Convert: func(v Value) (Value, error) {
			return NewValue(v.Data.(*apd.Decimal).Text('f')), nil
		},
	})
	registerConversion(&Conversion{
		From: Boolean,
		To:   Text,
		Convert: func(v Value) (Value, error) {
			return NewValue(strconv.FormatBool(v.Data.(bool))), nil
		},
	})
}

func decimalToIntegerBound(v Value, up bool) (Value, bool, error) {
	d := v.Data.(*apd.Decimal)
	var r apd.Decimal
	var err error
	if up {
		_, err = DecimalContext.Ceil(&r, d)
	} else {
		_, err = DecimalContext.Floor(&r, d)
	}
	if err != nil {
		return Value{}, false, err
	}
	i, err := r.Int64()
	if err != nil {
		return Value{}, false, errors.NumericValueOutOfRangeError(Integer.Name())
	}
	return NewValue(i), r.Cmp(d) == 0, nil
}
