package types

import (
	"strings"
)

// textType implements unbounded text
type textType struct{}

func (t *textType) Name() string {
	return "String"
}

func (t *textType) Compare(a, b Value) int {
	if a.Null || b.Null {
		return CompareValues(a, b)
	}
	return strings.Compare(a.Data.(string), b.Data.(string))
}

func (t *textType) IsValid(v Value) bool {
	if v.Null {
		return true
	}
	_, ok := v.Data.(string)
	return ok
}

func (t *textType) Zero() Value {
	return NewValue("")
}

func (t *textType) Literal(v Value, verbatim bool) string {
	return "'" + strings.ReplaceAll(v.Data.(string), "'", "''") + "'"
}

// NewTextValue creates a new String value
func NewTextValue(s string) Value {
	return NewValue(s)
}
