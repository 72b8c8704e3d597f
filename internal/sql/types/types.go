package types

import (
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// DataType represents a scalar data type
type DataType interface {
	// Name returns the type name used in statements (e.g., "Integer", "Date")
	Name() string

	// Compare compares two values of this type
	// Returns: -1 if a < b, 0 if a == b, 1 if a > b
	Compare(a, b Value) int

	// IsValid checks if a value is valid for this type
	IsValid(v Value) bool

	// Zero returns the zero value for this type
	Zero() Value

	// Literal renders a non-nil value in statement syntax. Verbatim
	// output keeps the type specifier so the literal re-binds to the
	// same type.
	Literal(v Value, verbatim bool) string
}

// Value represents a scalar value that can be nil
type Value struct {
	Data interface{}
	Null bool
}

// NewValue creates a non-nil value
func NewValue(data interface{}) Value {
	return Value{Data: data, Null: false}
}

// NewNullValue creates a nil value
func NewNullValue() Value {
	return Value{Data: nil, Null: true}
}

// IsNull returns true if the value is nil
func (v Value) IsNull() bool {
	return v.Null
}

// String returns a string representation of the value
func (v Value) String() string {
	if v.Null {
		return "nil"
	}
	switch d := v.Data.(type) {
	case time.Time:
		return d.Format(DateLayout)
	case *apd.Decimal:
		return d.String()
	}
	return fmt.Sprintf("%v", v.Data)
}

// AsBool returns the value as a boolean
func (v Value) AsBool() (bool, error) {
	if v.Null {
		return false, fmt.Errorf("cannot convert nil to bool")
	}
	if b, ok := v.Data.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("cannot convert %T to bool", v.Data)
}

// Type returns the DataType of the value based on its underlying type
func (v Value) Type() DataType {
	if v.Null {
		return Unknown
	}
	switch v.Data.(type) {
	case int64:
		return Integer
	case string:
		return Text
	case bool:
		return Boolean
	case time.Time:
		return Date
	case *apd.Decimal:
		return Decimal
	default:
		return Unknown
	}
}

// Equal returns true if two values are equal
func (v Value) Equal(other Value) bool {
	return CompareValues(v, other) == 0
}

// CompareValues compares two values, handling nils
// nil is considered less than any non-nil value
func CompareValues(a, b Value) int {
	if a.Null && b.Null {
		return 0
	}
	if a.Null {
		return -1
	}
	if b.Null {
		return 1
	}
	// Both non-nil, compare actual values based on type
	switch v1 := a.Data.(type) {
	case int64:
		if v2, ok := b.Data.(int64); ok {
			if v1 < v2 {
				return -1
			} else if v1 > v2 {
				return 1
			}
			return 0
		}
	case string:
		if v2, ok := b.Data.(string); ok {
			if v1 < v2 {
				return -1
			} else if v1 > v2 {
				return 1
			}
			return 0
		}
	case bool:
		if v2, ok := b.Data.(bool); ok {
			if !v1 && v2 {
				return -1
			} else if v1 && !v2 {
				return 1
			}
			return 0
		}
	case time.Time:
		if v2, ok := b.Data.(time.Time); ok {
			if v1.Before(v2) {
				return -1
			} else if v1.After(v2) {
				return 1
			}
			return 0
		}
	case *apd.Decimal:
		if v2, ok := b.Data.(*apd.Decimal); ok {
			return v1.Cmp(v2)
		}
	}
	// For unsupported types or type mismatches, panic to catch bugs early
	panic(fmt.Sprintf("CompareValues: unsupported or mismatched types: %T vs %T", a.Data, b.Data))
}

// FormatLiteral renders v in statement syntax using dt, handling nil.
func FormatLiteral(dt DataType, v Value, verbatim bool) string {
	if v.Null {
		if verbatim && dt != nil && dt != Unknown {
			return "nil " + dt.Name()
		}
		return "nil"
	}
	if dt == nil || dt == Unknown {
		dt = v.Type()
	}
	return dt.Literal(v, verbatim)
}

// Common scalar types
var (
	Integer DataType = &integerType{}
	Boolean DataType = &booleanType{}
	Text    DataType = &textType{}
	Date    DataType = &dateType{}
	Decimal DataType = &decimalType{}
)

// ByName resolves a type name as produced by DataType.Name.
func ByName(name string) (DataType, bool) {
	for _, dt := range []DataType{Integer, Boolean, Text, Date, Decimal} {
		if dt.Name() == name {
			return dt, true
		}
	}
	return nil, false
}

// Comparator is a function that compares two values
type Comparator func(a, b Value) int
