package plan

import (
	"strings"

	"github.com/dshills/quantaplan/internal/sql/types"
)

// EmitMode selects the statement syntax.
type EmitMode int

const (
	// EmitDisplay renders statements for people; implicit conversions are
	// left out.
	EmitDisplay EmitMode = iota
	// EmitVerbatim renders statements that re-bind to the same plan:
	// every conversion and literal type is spelled out.
	EmitVerbatim
)

type emitter struct {
	sb   strings.Builder
	mode EmitMode
}

// EmitStatement renders the subtree rooted at id as a statement.
func (p *Plan) EmitStatement(id NodeID, mode EmitMode) string {
	e := &emitter{mode: mode}
	e.node(p, id)
	return e.sb.String()
}

func (e *emitter) write(parts ...string) {
	for _, s := range parts {
		e.sb.WriteString(s)
	}
}

func (e *emitter) verbatim() bool { return e.mode == EmitVerbatim }

func (e *emitter) node(p *Plan, id NodeID) {
	n := p.Node(id)
	if n == nil {
		e.write("<invalid>")
		return
	}
	n.Op.emit(e, p, n)
}

// transparent skips conversions the display mode leaves out.
func (e *emitter) transparent(p *Plan, id NodeID) *Node {
	n := p.nodes[id]
	for !e.verbatim() && n.Kind == KindConvert && n.Op.(*ConvertOp).Implicit {
		n = p.nodes[n.Children[0]]
	}
	return n
}

// child renders an operand, parenthesizing compound expressions.
func (e *emitter) child(p *Plan, id NodeID) {
	n := e.transparent(p, id)
	compound := false
	switch n.Kind {
	case KindCompare, KindAnd, KindOr, KindNot, KindArith,
		KindRestrict, KindOrder, KindBrowse, KindExtend, KindAdorn:
		compound = true
	}
	if compound {
		e.write("(")
	}
	e.node(p, id)
	if compound {
		e.write(")")
	}
}

func (e *emitter) list(p *Plan, ids []NodeID, sep string) {
	for i, id := range ids {
		if i > 0 {
			e.write(sep)
		}
		e.node(p, id)
	}
}

func (o *LiteralOp) emit(e *emitter, p *Plan, n *Node) {
	dt := o.Type
	if dt == nil {
		dt = n.DataType
	}
	e.write(types.FormatLiteral(dt, o.Value, e.verbatim()))
}

func (o *ColumnRefOp) emit(e *emitter, p *Plan, n *Node) { e.write(o.Name) }

func (o *CompareOp) emit(e *emitter, p *Plan, n *Node) {
	e.child(p, n.Children[0])
	e.write(" ", o.Op.String(), " ")
	e.child(p, n.Children[1])
}

func (o *ThreeWayCompareOp) emit(e *emitter, p *Plan, n *Node) {
	e.write("(")
	e.child(p, n.Children[0])
	e.write(" ?= ")
	e.child(p, n.Children[1])
	e.write(")")
}

func (o *AndOp) emit(e *emitter, p *Plan, n *Node) {
	for i, c := range n.Children {
		if i > 0 {
			e.write(" and ")
		}
		e.child(p, c)
	}
}

func (o *OrOp) emit(e *emitter, p *Plan, n *Node) {
	for i, c := range n.Children {
		if i > 0 {
			e.write(" or ")
		}
		e.child(p, c)
	}
}

func (o *NotOp) emit(e *emitter, p *Plan, n *Node) {
	e.write("not ")
	e.child(p, n.Children[0])
}

func (o *IsNilOp) emit(e *emitter, p *Plan, n *Node) {
	e.write("IsNil(")
	e.node(p, n.Children[0])
	e.write(")")
}

func (o *ArithOp) emit(e *emitter, p *Plan, n *Node) {
	e.child(p, n.Children[0])
	e.write(" ", o.Op.String(), " ")
	e.child(p, n.Children[1])
}

func (o *NegateOp) emit(e *emitter, p *Plan, n *Node) {
	e.write("-")
	e.child(p, n.Children[0])
}

func (o *ConvertOp) emit(e *emitter, p *Plan, n *Node) {
	if o.Implicit && !e.verbatim() {
		e.node(p, n.Children[0])
		return
	}
	e.write("(")
	e.child(p, n.Children[0])
	e.write(" as ", o.To.Name(), ")")
}

func (o *PredOp) emit(e *emitter, p *Plan, n *Node) {
	e.write("Pred(")
	e.node(p, n.Children[0])
	e.write(")")
}

func (o *SuccOp) emit(e *emitter, p *Plan, n *Node) {
	e.write("Succ(")
	e.node(p, n.Children[0])
	e.write(")")
}

func (o *CallOp) emit(e *emitter, p *Plan, n *Node) {
	name := o.Name
	if fn, ok := lookupFunction(o.Name); ok {
		name = fn.name
	}
	e.write(name, "(")
	e.list(p, n.Children, ", ")
	e.write(")")
}

func (o *GetOp) emit(e *emitter, p *Plan, n *Node) { e.write(o.Table) }

func (o *ValuesOp) emit(e *emitter, p *Plan, n *Node) {
	e.write("table of { ")
	for i, c := range o.Columns {
		if i > 0 {
			e.write(", ")
		}
		e.write(c.Name, " ", c.DataType.Name())
		if c.IsNilable {
			e.write(" nil")
		}
	}
	e.write(" } {")
	for i, row := range o.Rows {
		if i > 0 {
			e.write(",")
		}
		e.write(" row { ")
		for j, v := range row {
			if j > 0 {
				e.write(", ")
			}
			e.write(types.FormatLiteral(o.Columns[j].DataType, v, e.verbatim()), " ", o.Columns[j].Name)
		}
		e.write(" }")
	}
	e.write(" }")
	for _, k := range o.Keys {
		e.write(" ", k.String())
	}
}

func (o *RestrictOp) emit(e *emitter, p *Plan, n *Node) {
	e.child(p, n.Children[0])
	e.write(" where ")
	e.node(p, n.Children[1])
	if hints := o.hintArgs(n); len(hints) > 0 {
		if o.HintInclusive {
			e.write(" from { ")
		} else {
			e.write(" after { ")
		}
		e.list(p, hints, ", ")
		e.write(" }")
	}
}

func (o *OrderOp) emit(e *emitter, p *Plan, n *Node) {
	e.child(p, n.Children[0])
	e.write(" order by ", o.Requested.String())
}
