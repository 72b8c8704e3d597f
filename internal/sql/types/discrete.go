package types

// Discrete is implemented by types whose values have an immediate
// predecessor and successor.
type Discrete interface {
	DataType
	// Pred returns the greatest value less than v, or false at the lower end.
	Pred(v Value) (Value, bool)
	// Succ returns the least value greater than v, or false at the upper end.
	Succ(v Value) (Value, bool)
}

// IsDiscrete reports whether dt defines Pred and Succ.
func IsDiscrete(dt DataType) bool {
	_, ok := dt.(Discrete)
	return ok
}

// Pred returns the predecessor of v in dt. Nil stays nil.
func Pred(dt DataType, v Value) (Value, bool) {
	d, ok := dt.(Discrete)
	if !ok {
		return Value{}, false
	}
	if v.Null {
		return v, true
	}
	return d.Pred(v)
}

// Succ returns the successor of v in dt. Nil stays nil.
func Succ(dt DataType, v Value) (Value, bool) {
	d, ok := dt.(Discrete)
	if !ok {
		return Value{}, false
	}
	if v.Null {
		return v, true
	}
	return d.Succ(v)
}
