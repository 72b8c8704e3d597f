package plan

import (
	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// Builder assembles plan trees.
type Builder struct {
	p   *Plan
	loc errors.Location
}

// NewBuilder creates a builder over a new plan.
func NewBuilder() *Builder {
	return &Builder{p: NewPlan()}
}

// BuilderFor creates a builder adding nodes to an existing plan.
func BuilderFor(p *Plan) *Builder {
	return &Builder{p: p}
}

// Plan returns the plan under construction.
func (b *Builder) Plan() *Plan { return b.p }

// Build sets the root and returns the plan.
func (b *Builder) Build(root NodeID) *Plan {
	b.p.Root = root
	return b.p
}

// At sets the source location of the nodes added next.
func (b *Builder) At(line, column int) *Builder {
	b.loc = errors.Location{Line: line, Column: column}
	return b
}

// Node returns a node of the plan under construction.
func (b *Builder) Node(id NodeID) *Node { return b.p.Node(id) }

func (b *Builder) add(op Operator, children ...NodeID) NodeID {
	id := b.p.Add(op, children...)
	b.p.nodes[id].Location = b.loc
	return id
}

// Literal adds a constant.
func (b *Builder) Literal(v types.Value) NodeID {
	return b.add(&LiteralOp{Value: v})
}

// TypedLiteral adds a constant of a declared type.
func (b *Builder) TypedLiteral(v types.Value, dt types.DataType) NodeID {
	return b.add(&LiteralOp{Value: v, Type: dt})
}

func (b *Builder) Int(i int64) NodeID   { return b.Literal(types.NewIntegerValue(i)) }
func (b *Builder) Text(s string) NodeID { return b.Literal(types.NewTextValue(s)) }
func (b *Builder) Bool(v bool) NodeID   { return b.Literal(types.NewBooleanValue(v)) }

// Date adds a date literal; s uses the DateLayout format.
func (b *Builder) Date(s string) NodeID { return b.Literal(types.MustParseDate(s)) }

// Decimal adds a decimal literal.
func (b *Builder) Decimal(s string) NodeID { return b.Literal(types.MustDecimal(s)) }

// Nil adds a nil of the given type.
func (b *Builder) Nil(dt types.DataType) NodeID {
	return b.TypedLiteral(types.NewNullValue(), dt)
}

// Column references a column of the row in scope.
func (b *Builder) Column(name string) NodeID {
	return b.add(&ColumnRefOp{Name: name})
}

// OuterColumn references a column past isolated frames.
func (b *Builder) OuterColumn(name string) NodeID {
	return b.add(&ColumnRefOp{Name: name, Correlated: true})
}

// Var references a variable slot.
func (b *Builder) Var(name string) NodeID {
	return b.add(&VarRefOp{ColumnRefOp{Name: name}})
}

// OuterVar references a variable past isolated frames.
func (b *Builder) OuterVar(name string) NodeID {
	return b.add(&VarRefOp{ColumnRefOp{Name: name, Correlated: true}})
}

func (b *Builder) Compare(op CompareOperator, l, r NodeID) NodeID {
	return b.add(&CompareOp{Op: op}, l, r)
}

func (b *Builder) Eq(l, r NodeID) NodeID        { return b.Compare(OpEqual, l, r) }
func (b *Builder) NotEq(l, r NodeID) NodeID     { return b.Compare(OpNotEqual, l, r) }
func (b *Builder) Less(l, r NodeID) NodeID      { return b.Compare(OpLess, l, r) }
func (b *Builder) LessEq(l, r NodeID) NodeID    { return b.Compare(OpLessEqual, l, r) }
func (b *Builder) Greater(l, r NodeID) NodeID   { return b.Compare(OpGreater, l, r) }
func (b *Builder) GreaterEq(l, r NodeID) NodeID { return b.Compare(OpGreaterEqual, l, r) }

// ThreeWay adds l ?= r.
func (b *Builder) ThreeWay(l, r NodeID) NodeID {
	return b.add(&ThreeWayCompareOp{}, l, r)
}

// And conjoins terms. A single term is returned as is.
func (b *Builder) And(terms ...NodeID) NodeID {
	if len(terms) == 1 {
		return terms[0]
	}
	return b.add(&AndOp{}, terms...)
}

// Or disjoins terms. A single term is returned as is.
func (b *Builder) Or(terms ...NodeID) NodeID {
	if len(terms) == 1 {
		return terms[0]
	}
	return b.add(&OrOp{}, terms...)
}

func (b *Builder) Not(x NodeID) NodeID   { return b.add(&NotOp{}, x) }
func (b *Builder) IsNil(x NodeID) NodeID { return b.add(&IsNilOp{}, x) }

func (b *Builder) Arith(op types.ArithOp, l, r NodeID) NodeID {
	return b.add(&ArithOp{Op: op}, l, r)
}

func (b *Builder) Add(l, r NodeID) NodeID { return b.Arith(types.OpAdd, l, r) }
func (b *Builder) Sub(l, r NodeID) NodeID { return b.Arith(types.OpSub, l, r) }
func (b *Builder) Mul(l, r NodeID) NodeID { return b.Arith(types.OpMul, l, r) }
func (b *Builder) Div(l, r NodeID) NodeID { return b.Arith(types.OpDiv, l, r) }

func (b *Builder) Negate(x NodeID) NodeID { return b.add(&NegateOp{}, x) }

// Convert adds an explicit conversion.
func (b *Builder) Convert(x NodeID, to types.DataType) NodeID {
	return b.add(&ConvertOp{To: to}, x)
}

func (b *Builder) Pred(x NodeID) NodeID { return b.add(&PredOp{}, x) }
func (b *Builder) Succ(x NodeID) NodeID { return b.add(&SuccOp{}, x) }

// Call invokes a built-in scalar function by name.
func (b *Builder) Call(name string, args ...NodeID) NodeID {
	return b.add(&CallOp{Name: name}, args...)
}

// Get reads a base table variable.
func (b *Builder) Get(table string) NodeID {
	return b.add(&GetOp{Table: table})
}

// Values adds an inline table.
func (b *Builder) Values(columns []*catalog.Column, rows [][]types.Value, keys ...*catalog.Key) NodeID {
	return b.add(&ValuesOp{Columns: columns, Rows: rows, Keys: keys})
}

// Restrict keeps the rows of src satisfying cond.
func (b *Builder) Restrict(src, cond NodeID) NodeID {
	return b.add(&RestrictOp{}, src, cond)
}

// Asc is an ascending order column including nils.
func Asc(column string) *catalog.OrderColumn {
	return &catalog.OrderColumn{Column: column, Ascending: true, IncludeNils: true}
}

// Desc is a descending order column including nils.
func Desc(column string) *catalog.OrderColumn {
	return &catalog.OrderColumn{Column: column, IncludeNils: true}
}

// Order sorts src.
func (b *Builder) Order(src NodeID, columns ...*catalog.OrderColumn) NodeID {
	return b.add(&OrderOp{Requested: catalog.NewOrder(columns...)}, src)
}

// Browse navigates src in the given order by keyset windows.
func (b *Builder) Browse(src NodeID, columns ...*catalog.OrderColumn) NodeID {
	return b.add(&BrowseOp{Requested: catalog.NewOrder(columns...)}, src)
}

// Extension is a derived column.
type Extension struct {
	Name string
	Expr NodeID
}

// Extend adds derived columns to src.
func (b *Builder) Extend(src NodeID, columns ...Extension) NodeID {
	names := make([]string, len(columns))
	children := []NodeID{src}
	for i, c := range columns {
		names[i] = c.Name
		children = append(children, c.Expr)
	}
	return b.add(&ExtendOp{Names: names}, children...)
}

// ColumnDefault is a default for an adorned column.
type ColumnDefault struct {
	Column string
	Expr   NodeID
}

// Adornment lists what Adorn attaches to its source.
type Adornment struct {
	Defaults   []ColumnDefault
	Keys       []*catalog.Key
	Orders     []*catalog.Order
	References []*catalog.Reference
}

// Adorn attaches keys, orders, references and column defaults to src.
func (b *Builder) Adorn(src NodeID, a Adornment) NodeID {
	columns := make([]string, len(a.Defaults))
	children := []NodeID{src}
	for i, d := range a.Defaults {
		columns[i] = d.Column
		children = append(children, d.Expr)
	}
	return b.add(&AdornOp{
		DefaultColumns: columns,
		Keys:           a.Keys,
		Orders:         a.Orders,
		References:     a.References,
	}, children...)
}
