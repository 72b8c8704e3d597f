package types

// unknownType represents an unknown type (used for nil literals without context)
type unknownType struct{}

func (t *unknownType) Name() string {
	return "Unknown"
}

func (t *unknownType) Compare(a, b Value) int {
	return CompareValues(a, b)
}

func (t *unknownType) IsValid(v Value) bool {
	return v.Null
}

func (t *unknownType) Zero() Value {
	return NewNullValue()
}

func (t *unknownType) Literal(v Value, verbatim bool) string {
	return "nil"
}

// Unknown is the unknown type instance
var Unknown DataType = &unknownType{}
