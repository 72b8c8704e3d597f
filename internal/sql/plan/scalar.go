package plan

import (
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// CompareOperator is a relational comparison.
type CompareOperator int

const (
	OpEqual CompareOperator = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
)

func (op CompareOperator) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "<>"
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	}
	return "?"
}

// Commute returns the operator with its operands swapped: a < b is b > a.
func (op CompareOperator) Commute() CompareOperator {
	switch op {
	case OpLess:
		return OpGreater
	case OpLessEqual:
		return OpGreaterEqual
	case OpGreater:
		return OpLess
	case OpGreaterEqual:
		return OpLessEqual
	}
	return op
}

// Holds reports whether a three-way comparison result satisfies op.
func (op CompareOperator) Holds(c int) bool {
	switch op {
	case OpEqual:
		return c == 0
	case OpNotEqual:
		return c != 0
	case OpLess:
		return c < 0
	case OpLessEqual:
		return c <= 0
	case OpGreater:
		return c > 0
	case OpGreaterEqual:
		return c >= 0
	}
	return false
}

func compareOf(a, b types.Value) int {
	return types.CompareValues(a, b)
}

// LiteralOp is a constant.
type LiteralOp struct {
	baseOp
	Value types.Value
	// Type is the declared type; nil derives it from Value.
	Type types.DataType
}

func (*LiteralOp) Kind() Kind { return KindLiteral }

func (o *LiteralOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	n.DataType = o.Type
	if n.DataType == nil {
		n.DataType = o.Value.Type()
	}
	return nil
}

func (o *LiteralOp) determineCharacteristics(p *Plan, n *Node) {
	n.IsLiteral = true
	n.IsNilable = o.Value.Null
	n.IsOrderPreserving = true
}

func (o *LiteralOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	return o.Value, nil
}

func (o *LiteralOp) clone() Operator { c := *o; return &c }

// ColumnRefOp reads a column of the row in scope.
type ColumnRefOp struct {
	baseOp
	Name string
	// Correlated allows the reference to reach past isolated frames.
	Correlated bool
	ref        resolvedRef
	isNilable  bool
}

func (*ColumnRefOp) Kind() Kind { return KindColumnRef }

func (o *ColumnRefOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	ref, col, err := b.resolve(o.Name, o.Correlated)
	if err != nil {
		return err
	}
	o.ref = ref
	o.isNilable = col.IsNilable
	n.DataType = col.DataType
	return nil
}

func (o *ColumnRefOp) determineCharacteristics(p *Plan, n *Node) {
	n.IsNilable = o.isNilable
	n.IsOrderPreserving = true
}

func (o *ColumnRefOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	return env.Lookup(o.ref)
}

// Ref returns the resolved frame address.
func (o *ColumnRefOp) Ref() (depth, slot int) { return o.ref.Depth, o.ref.Slot }

func (o *ColumnRefOp) clone() Operator { return &ColumnRefOp{Name: o.Name, Correlated: o.Correlated} }

// VarRefOp reads a variable slot: an aggregate accumulator, a value
// column bound into an aggregate frame, or an outer variable such as a
// browse origin value.
type VarRefOp struct {
	ColumnRefOp
}

func (*VarRefOp) Kind() Kind { return KindVarRef }

func (o *VarRefOp) clone() Operator {
	return &VarRefOp{ColumnRefOp{Name: o.Name, Correlated: o.Correlated}}
}

// CompareOp applies a relational operator. Nil operands give nil.
type CompareOp struct {
	baseOp
	Op CompareOperator
}

func (*CompareOp) Kind() Kind { return KindCompare }

func (o *CompareOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	if _, err := b.unify(p, n); err != nil {
		return err
	}
	n.DataType = types.Boolean
	return nil
}

func (o *CompareOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	l, r, err := evalPair(ec, env, p, n)
	if err != nil || l.Null || r.Null {
		return types.NewNullValue(), err
	}
	return types.NewBooleanValue(o.Op.Holds(compareOf(l, r))), nil
}

func (o *CompareOp) clone() Operator { c := *o; return &c }

func evalPair(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, types.Value, error) {
	l, err := p.Eval(ec, env, n.Children[0])
	if err != nil {
		return types.Value{}, types.Value{}, err
	}
	r, err := p.Eval(ec, env, n.Children[1])
	if err != nil {
		return types.Value{}, types.Value{}, err
	}
	return l, r, nil
}

// ThreeWayCompareOp returns -1, 0 or 1.
type ThreeWayCompareOp struct {
	baseOp
}

func (*ThreeWayCompareOp) Kind() Kind { return KindThreeWayCompare }

func (o *ThreeWayCompareOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	if _, err := b.unify(p, n); err != nil {
		return err
	}
	n.DataType = types.Integer
	return nil
}

func (o *ThreeWayCompareOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	l, r, err := evalPair(ec, env, p, n)
	if err != nil || l.Null || r.Null {
		return types.NewNullValue(), err
	}
	return types.NewIntegerValue(int64(compareOf(l, r))), nil
}

func (o *ThreeWayCompareOp) clone() Operator { return &ThreeWayCompareOp{} }

// AndOp is three-valued conjunction.
type AndOp struct {
	baseOp
}

func (*AndOp) Kind() Kind { return KindAnd }

func (o *AndOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	n.DataType = types.Boolean
	return requireBoolean(p, n)
}

func (o *AndOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	unknown := false
	for _, c := range n.Children {
		v, err := p.Eval(ec, env, c)
		if err != nil {
			return types.Value{}, err
		}
		if v.Null {
			unknown = true
			continue
		}
		if !v.Data.(bool) {
			return types.NewBooleanValue(false), nil
		}
	}
	if unknown {
		return types.NewNullValue(), nil
	}
	return types.NewBooleanValue(true), nil
}

func (o *AndOp) clone() Operator { return &AndOp{} }

// OrOp is three-valued disjunction.
type OrOp struct {
	baseOp
}

func (*OrOp) Kind() Kind { return KindOr }

func (o *OrOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	n.DataType = types.Boolean
	return requireBoolean(p, n)
}

func (o *OrOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	unknown := false
	for _, c := range n.Children {
		v, err := p.Eval(ec, env, c)
		if err != nil {
			return types.Value{}, err
		}
		if v.Null {
			unknown = true
			continue
		}
		if v.Data.(bool) {
			return types.NewBooleanValue(true), nil
		}
	}
	if unknown {
		return types.NewNullValue(), nil
	}
	return types.NewBooleanValue(false), nil
}

func (o *OrOp) clone() Operator { return &OrOp{} }

// NotOp negates a boolean; nil stays nil.
type NotOp struct {
	baseOp
}

func (*NotOp) Kind() Kind { return KindNot }

func (o *NotOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	n.DataType = types.Boolean
	return requireBoolean(p, n)
}

func (o *NotOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	v, err := p.Eval(ec, env, n.Children[0])
	if err != nil || v.Null {
		return types.NewNullValue(), err
	}
	return types.NewBooleanValue(!v.Data.(bool)), nil
}

func (o *NotOp) clone() Operator { return &NotOp{} }

// IsNilOp tests for nil. It is never nil itself.
type IsNilOp struct {
	baseOp
}

func (*IsNilOp) Kind() Kind { return KindIsNil }

func (o *IsNilOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	n.DataType = types.Boolean
	return nil
}

func (o *IsNilOp) determineCharacteristics(p *Plan, n *Node) {
	n.IsNilable = false
}

func (o *IsNilOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	v, err := p.Eval(ec, env, n.Children[0])
	if err != nil {
		return types.Value{}, err
	}
	return types.NewBooleanValue(v.Null), nil
}

func (o *IsNilOp) clone() Operator { return &IsNilOp{} }

// ArithOp applies a numeric operator.
type ArithOp struct {
	baseOp
	Op types.ArithOp
}

func (*ArithOp) Kind() Kind { return KindArith }

func (o *ArithOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	dt, err := b.unify(p, n)
	if err != nil {
		return err
	}
	if dt != types.Unknown && !types.IsNumeric(dt) {
		return errors.TypeMismatchError("numeric", dt.Name(), o.Op.String())
	}
	n.DataType = dt
	return nil
}

func (o *ArithOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	l, r, err := evalPair(ec, env, p, n)
	if err != nil {
		return types.Value{}, err
	}
	return types.Arith(o.Op, l, r)
}

func (o *ArithOp) clone() Operator { c := *o; return &c }

// NegateOp is unary minus.
type NegateOp struct {
	baseOp
}

func (*NegateOp) Kind() Kind { return KindNegate }

func (o *NegateOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	dt := p.Child(n.ID, 0).DataType
	if dt != types.Unknown && !types.IsNumeric(dt) {
		return errors.TypeMismatchError("numeric", dt.Name(), "-")
	}
	n.DataType = dt
	return nil
}

func (o *NegateOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	v, err := p.Eval(ec, env, n.Children[0])
	if err != nil {
		return types.Value{}, err
	}
	return types.Negate(v)
}

func (o *NegateOp) clone() Operator { return &NegateOp{} }

// ConvertOp converts its operand to another type. Implicit conversions
// are inserted by the binder and omitted from display statements.
type ConvertOp struct {
	baseOp
	To         types.DataType
	Implicit   bool
	conversion *types.Conversion
}

func (*ConvertOp) Kind() Kind { return KindConvert }

func (o *ConvertOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	from := p.Child(n.ID, 0).DataType
	o.conversion = nil
	if from != o.To && from != types.Unknown {
		c, ok := types.FindConversion(from, o.To)
		if !ok {
			return errors.InvalidCastError(from.Name(), o.To.Name())
		}
		o.conversion = c
	}
	n.DataType = o.To
	return nil
}

func (o *ConvertOp) determineCharacteristics(p *Plan, n *Node) {
	n.IsOrderPreserving = o.conversion == nil || o.conversion.OrderPreserving
}

// Conversion returns the bound conversion, nil for an identity.
func (o *ConvertOp) Conversion() *types.Conversion { return o.conversion }

func (o *ConvertOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	v, err := p.Eval(ec, env, n.Children[0])
	if err != nil || v.Null || o.conversion == nil {
		return v, err
	}
	return o.conversion.Convert(v)
}

func (o *ConvertOp) clone() Operator { return &ConvertOp{To: o.To, Implicit: o.Implicit} }

// PredOp returns the predecessor of a discrete value. Running off the low
// end of the domain gives nil.
type PredOp struct {
	baseOp
}

func (*PredOp) Kind() Kind { return KindPred }

func (o *PredOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	return determineDiscrete(p, n, "Pred")
}

func (o *PredOp) determineCharacteristics(p *Plan, n *Node) {
	n.IsNilable = true
	n.IsOrderPreserving = true
}

func (o *PredOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	v, err := p.Eval(ec, env, n.Children[0])
	if err != nil {
		return types.Value{}, err
	}
	r, ok := types.Pred(n.DataType, v)
	if !ok {
		return types.NewNullValue(), nil
	}
	return r, nil
}

func (o *PredOp) clone() Operator { return &PredOp{} }

// SuccOp returns the successor of a discrete value. Running off the high
// end of the domain gives nil.
type SuccOp struct {
	baseOp
}

func (*SuccOp) Kind() Kind { return KindSucc }

func (o *SuccOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	return determineDiscrete(p, n, "Succ")
}

func (o *SuccOp) determineCharacteristics(p *Plan, n *Node) {
	n.IsNilable = true
	n.IsOrderPreserving = true
}

func (o *SuccOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	v, err := p.Eval(ec, env, n.Children[0])
	if err != nil {
		return types.Value{}, err
	}
	r, ok := types.Succ(n.DataType, v)
	if !ok {
		return types.NewNullValue(), nil
	}
	return r, nil
}

func (o *SuccOp) clone() Operator { return &SuccOp{} }

func determineDiscrete(p *Plan, n *Node, name string) error {
	dt := p.Child(n.ID, 0).DataType
	if !types.IsDiscrete(dt) {
		return errors.FeatureNotSupportedError(name + " of " + dt.Name())
	}
	n.DataType = dt
	return nil
}
