package types

// booleanType implements the Boolean data type
type booleanType struct{}

func (t *booleanType) Name() string {
	return "Boolean"
}

func (t *booleanType) Compare(a, b Value) int {
	if a.Null || b.Null {
		return CompareValues(a, b)
	}

	aVal := a.Data.(bool)
	bVal := b.Data.(bool)

	if !aVal && bVal {
		return -1
	} else if aVal && !bVal {
		return 1
	}
	return 0
}

func (t *booleanType) IsValid(v Value) bool {
	if v.Null {
		return true
	}
	_, ok := v.Data.(bool)
	return ok
}

func (t *booleanType) Zero() Value {
	return NewValue(false)
}

func (t *booleanType) Literal(v Value, verbatim bool) string {
	if v.Data.(bool) {
		return "true"
	}
	return "false"
}

// NewBooleanValue creates a new Boolean value
func NewBooleanValue(b bool) Value {
	return NewValue(b)
}
