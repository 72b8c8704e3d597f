package types

import (
	"time"

	"github.com/dshills/quantaplan/internal/util/timeutil"
)

// DateLayout is the textual form of Date values.
const DateLayout = timeutil.DateFormat

// dateType implements the Date data type with day granularity.
type dateType struct{}

func (t *dateType) Name() string {
	return "Date"
}

func (t *dateType) Compare(a, b Value) int {
	if a.Null || b.Null {
		return CompareValues(a, b)
	}

	aTime := a.Data.(time.Time)
	bTime := b.Data.(time.Time)

	if aTime.Before(bTime) {
		return -1
	} else if aTime.After(bTime) {
		return 1
	}
	return 0
}

func (t *dateType) IsValid(v Value) bool {
	if v.Null {
		return true
	}
	d, ok := v.Data.(time.Time)
	return ok && timeutil.IsDay(d)
}

func (t *dateType) Zero() Value {
	return NewValue(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC))
}

func (t *dateType) Literal(v Value, verbatim bool) string {
	s := "'" + v.Data.(time.Time).Format(DateLayout) + "'"
	if verbatim {
		return "Date(" + s + ")"
	}
	return s
}

func (t *dateType) Pred(v Value) (Value, bool) {
	return NewValue(timeutil.AddDays(v.Data.(time.Time), -1)), true
}

func (t *dateType) Succ(v Value) (Value, bool) {
	return NewValue(timeutil.AddDays(v.Data.(time.Time), 1)), true
}

// NewDateValue creates a new Date value
func NewDateValue(year int, month time.Month, day int) Value {
	return NewValue(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses a Date in DateLayout form. Timestamps are accepted and
// truncated to their day.
func ParseDate(s string) (Value, error) {
	d, err := timeutil.ParseDate(s)
	if err != nil {
		return Value{}, err
	}
	return NewValue(d), nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Value {
	v, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return v
}
