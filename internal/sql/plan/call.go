package plan

import (
	"math/rand"
	"strings"
	"unicode/utf8"

	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/types"
	"github.com/dshills/quantaplan/internal/util/timeutil"
)

type function struct {
	name          string
	arity         int
	deterministic bool
	repeatable    bool
	// absorbsNil marks functions that may return non-nil from nil input.
	absorbsNil bool
	resultType func(b *Binder, p *Plan, n *Node) (types.DataType, error)
	eval       func(args []types.Value) (types.Value, error)
}

var functions = map[string]*function{}

func registerFunction(f *function) {
	functions[strings.ToLower(f.name)] = f
}

func lookupFunction(name string) (*function, bool) {
	f, ok := functions[strings.ToLower(name)]
	return f, ok
}

func fixedType(dt types.DataType, params ...types.DataType) func(b *Binder, p *Plan, n *Node) (types.DataType, error) {
	return func(b *Binder, p *Plan, n *Node) (types.DataType, error) {
		for i, pt := range params {
			if err := b.coerce(p, n, i, pt); err != nil {
				return nil, err
			}
		}
		return dt, nil
	}
}

func init() {
	registerFunction(&function{
		name:       "Random",
		resultType: fixedType(types.Integer),
		eval: func(args []types.Value) (types.Value, error) {
			return types.NewIntegerValue(rand.Int63n(1 << 31)), nil
		},
	})
	registerFunction(&function{
		name:       "Today",
		repeatable: true,
		resultType: fixedType(types.Date),
		eval: func(args []types.Value) (types.Value, error) {
			return types.NewValue(timeutil.Today()), nil
		},
	})
	registerFunction(&function{
		name:          "Length",
		arity:         1,
		deterministic: true,
		repeatable:    true,
		resultType:    fixedType(types.Integer, types.Text),
		eval: func(args []types.Value) (types.Value, error) {
			if args[0].Null {
				return types.NewNullValue(), nil
			}
			return types.NewIntegerValue(int64(utf8.RuneCountInString(args[0].Data.(string)))), nil
		},
	})
	registerFunction(&function{
		name:          "Upper",
		arity:         1,
		deterministic: true,
		repeatable:    true,
		resultType:    fixedType(types.Text, types.Text),
		eval: func(args []types.Value) (types.Value, error) {
			if args[0].Null {
				return types.NewNullValue(), nil
			}
			return types.NewTextValue(strings.ToUpper(args[0].Data.(string))), nil
		},
	})
	registerFunction(&function{
		name:          "IfNil",
		arity:         2,
		deterministic: true,
		repeatable:    true,
		absorbsNil:    true,
		resultType: func(b *Binder, p *Plan, n *Node) (types.DataType, error) {
			return b.unify(p, n)
		},
		eval: func(args []types.Value) (types.Value, error) {
			if args[0].Null {
				return args[1], nil
			}
			return args[0], nil
		},
	})
}

// CallOp invokes a built-in scalar function.
type CallOp struct {
	baseOp
	Name string
	fn   *function
}

func (*CallOp) Kind() Kind { return KindCall }

func (o *CallOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	fn, ok := lookupFunction(o.Name)
	if !ok {
		return errors.UndefinedObjectError("operator", o.Name)
	}
	if len(n.Children) != fn.arity {
		return errors.Newf(errors.SyntaxError, "%s expects %d arguments, got %d", fn.name, fn.arity, len(n.Children))
	}
	o.fn = fn
	dt, err := fn.resultType(b, p, n)
	if err != nil {
		return err
	}
	n.DataType = dt
	return nil
}

func (o *CallOp) determineCharacteristics(p *Plan, n *Node) {
	n.IsLiteral = n.IsLiteral && o.fn.deterministic && len(n.Children) > 0
	n.IsDeterministic = o.fn.deterministic
	n.IsRepeatable = o.fn.repeatable
	if o.fn.absorbsNil {
		for _, c := range n.Children {
			n.IsNilable = n.IsNilable && p.nodes[c].IsNilable
		}
	}
}

func (o *CallOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	args := make([]types.Value, len(n.Children))
	for i, c := range n.Children {
		v, err := p.Eval(ec, env, c)
		if err != nil {
			return types.Value{}, err
		}
		args[i] = v
	}
	return o.fn.eval(args)
}

func (o *CallOp) clone() Operator { return &CallOp{Name: o.Name} }
