package plan

import (
	"context"
	"strings"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// ExtendOp adds derived columns to its source. Children are the source
// and one expression per name, evaluated against each row in an isolated
// frame.
type ExtendOp struct {
	baseOp
	Names []string

	width int
}

func (*ExtendOp) Kind() Kind { return KindExtend }

func (o *ExtendOp) bindChildren(b *Binder, p *Plan, n *Node) error {
	if len(n.Children) != len(o.Names)+1 {
		return errors.AssertionFailedf("extend has %d names for %d expressions", len(o.Names), len(n.Children)-1)
	}
	return bindRowExpressions(b, p, n, true)
}

// bindRowExpressions binds the source and then the remaining children in
// a frame over the source row.
func bindRowExpressions(b *Binder, p *Plan, n *Node, isolated bool) error {
	if err := b.bindNode(p, n.Children[0]); err != nil {
		return err
	}
	src := p.Child(n.ID, 0)
	if src.TableVar == nil {
		return errors.AssertionFailedf("%s source %s is not a table", n.Kind, src)
	}
	b.PushFrame(rowFrame(src.TableVar), isolated)
	defer b.PopFrame()
	for _, c := range n.Children[1:] {
		if err := b.bindNode(p, c); err != nil {
			return err
		}
	}
	return nil
}

func (o *ExtendOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	src := p.Child(n.ID, 0)
	tv := src.TableVar.Clone()
	tv.IsBase = false
	for i, name := range o.Names {
		if tv.Column(name) != nil {
			return errors.DuplicateColumnError(name)
		}
		expr := p.Child(n.ID, i+1)
		if expr.Kind.IsTable() {
			return errors.TypeMismatchError("scalar", "table", name)
		}
		col := catalog.NewColumn(name, expr.DataType)
		col.IsNilable = expr.IsNilable
		tv.Columns = append(tv.Columns, col)
	}
	o.width = len(src.TableVar.Columns)
	n.TableVar = tv
	n.Order = src.Order
	n.Capabilities = src.Capabilities.Intersect(cursor.Navigable | cursor.BackwardsNavigable |
		cursor.Bookmarkable | cursor.Searchable | cursor.Countable | cursor.Updateable)
	return nil
}

func (o *ExtendOp) clone() Operator {
	return &ExtendOp{Names: append([]string(nil), o.Names...)}
}

func (o *ExtendOp) emit(e *emitter, p *Plan, n *Node) {
	e.child(p, n.Children[0])
	e.write(" add { ")
	for i, name := range o.Names {
		if i > 0 {
			e.write(", ")
		}
		e.node(p, n.Children[i+1])
		e.write(" ", name)
	}
	e.write(" }")
}

func (o *ExtendOp) open(ec *ExecContext, env *Env, p *Plan, n *Node) (cursor.Cursor, error) {
	src, err := p.Execute(ec, env, n.Children[0])
	if err != nil {
		return nil, err
	}
	return &extendCursor{
		passCursor: passCursor{src: src, caps: n.Capabilities},
		ec:         ec, env: env, p: p, n: n, width: o.width,
	}, nil
}

// passCursor forwards the optional cursor contracts to its source.
type passCursor struct {
	src  cursor.Cursor
	caps cursor.Capability
}

func (c *passCursor) Open(ctx context.Context) error { return c.src.Open(ctx) }
func (c *passCursor) Next() (bool, error)            { return c.src.Next() }
func (c *passCursor) Reset() error                   { return c.src.Reset() }
func (c *passCursor) Close() error                   { return c.src.Close() }
func (c *passCursor) Capabilities() cursor.Capability {
	return c.caps
}

func (c *passCursor) backwards() (cursor.BackwardsCursor, error) {
	b, ok := c.src.(cursor.BackwardsCursor)
	if !ok || !c.caps.Has(cursor.BackwardsNavigable) {
		return nil, errors.CapabilityNotSupportedError(cursor.BackwardsNavigable.String())
	}
	return b, nil
}

func (c *passCursor) Prior() (bool, error) {
	b, err := c.backwards()
	if err != nil {
		return false, err
	}
	return b.Prior()
}

func (c *passCursor) First() error {
	b, err := c.backwards()
	if err != nil {
		return err
	}
	return b.First()
}

func (c *passCursor) Last() error {
	b, err := c.backwards()
	if err != nil {
		return err
	}
	return b.Last()
}

func (c *passCursor) FindKey(key []types.Value) (bool, error) {
	s, ok := c.src.(cursor.SearchableCursor)
	if !ok || !c.caps.Has(cursor.Searchable) {
		return false, errors.CapabilityNotSupportedError(cursor.Searchable.String())
	}
	return s.FindKey(key)
}

func (c *passCursor) Seek(key []types.Value, inclusive bool) error {
	s, ok := c.src.(cursor.SearchableCursor)
	if !ok || !c.caps.Has(cursor.Searchable) {
		return errors.CapabilityNotSupportedError(cursor.Searchable.String())
	}
	return s.Seek(key, inclusive)
}

func (c *passCursor) GetBookmark() (cursor.Bookmark, error) {
	bm, ok := c.src.(cursor.BookmarkableCursor)
	if !ok || !c.caps.Has(cursor.Bookmarkable) {
		return nil, errors.CapabilityNotSupportedError(cursor.Bookmarkable.String())
	}
	return bm.GetBookmark()
}

func (c *passCursor) GotoBookmark(b cursor.Bookmark) (bool, error) {
	bm, ok := c.src.(cursor.BookmarkableCursor)
	if !ok || !c.caps.Has(cursor.Bookmarkable) {
		return false, errors.CapabilityNotSupportedError(cursor.Bookmarkable.String())
	}
	return bm.GotoBookmark(b)
}

func (c *passCursor) Count() (int, error) {
	cc, ok := c.src.(cursor.CountableCursor)
	if !ok || !c.caps.Has(cursor.Countable) {
		return 0, errors.CapabilityNotSupportedError(cursor.Countable.String())
	}
	return cc.Count()
}

func (c *passCursor) updateable() (cursor.UpdateableCursor, error) {
	u, ok := c.src.(cursor.UpdateableCursor)
	if !ok || !c.caps.Has(cursor.Updateable) {
		return nil, errors.CapabilityNotSupportedError(cursor.Updateable.String())
	}
	return u, nil
}

func (c *passCursor) Delete() error {
	u, err := c.updateable()
	if err != nil {
		return err
	}
	return u.Delete()
}

// extendCursor appends the derived values to each source row.
type extendCursor struct {
	passCursor
	ec    *ExecContext
	env   *Env
	p     *Plan
	n     *Node
	width int
}

func (c *extendCursor) Select() (*cursor.Row, error) {
	row, err := c.src.Select()
	if err != nil {
		return nil, err
	}
	out := make([]types.Value, c.width, len(c.n.TableVar.Columns))
	copy(out, row.Values[:c.width])
	rowEnv := c.env.Push(row.Values, true)
	for _, id := range c.n.Children[1:] {
		v, err := c.p.Eval(c.ec, rowEnv, id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return cursor.NewRow(out...), nil
}

// strip drops the derived columns.
func (c *extendCursor) strip(row *cursor.Row) *cursor.Row {
	if len(row.Values) < c.width {
		return row
	}
	return cursor.NewRow(row.Values[:c.width]...)
}

// Insert drops the derived columns and inserts into the source.
func (c *extendCursor) Insert(row *cursor.Row) error {
	u, err := c.updateable()
	if err != nil {
		return err
	}
	return u.Insert(c.strip(row))
}

// Update drops the derived columns and updates the source row.
func (c *extendCursor) Update(row *cursor.Row) error {
	u, err := c.updateable()
	if err != nil {
		return err
	}
	return u.Update(c.strip(row))
}

// AdornOp attaches keys, orders, references and column defaults to the
// result of its source. Children are the source and one default
// expression per defaulted column.
type AdornOp struct {
	baseOp
	DefaultColumns []string
	Keys           []*catalog.Key
	Orders         []*catalog.Order
	References     []*catalog.Reference

	slots []int
}

func (*AdornOp) Kind() Kind { return KindAdorn }

func (o *AdornOp) bindChildren(b *Binder, p *Plan, n *Node) error {
	if len(n.Children) != len(o.DefaultColumns)+1 {
		return errors.AssertionFailedf("adorn has %d columns for %d defaults", len(o.DefaultColumns), len(n.Children)-1)
	}
	if err := b.bindNode(p, n.Children[0]); err != nil {
		return err
	}
	b.PushFrame(nil, true)
	defer b.PopFrame()
	for _, c := range n.Children[1:] {
		if err := b.bindNode(p, c); err != nil {
			return err
		}
	}
	return nil
}

func (o *AdornOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	src := p.Child(n.ID, 0)
	tv := src.TableVar.Clone()
	tv.IsBase = false
	o.slots = make([]int, len(o.DefaultColumns))
	for i, name := range o.DefaultColumns {
		slot := tv.IndexOf(name)
		if slot < 0 {
			return errors.ColumnNotFoundError(name, tv.Name)
		}
		o.slots[i] = slot
		if err := b.coerce(p, n, i+1, tv.Columns[slot].DataType); err != nil {
			return err
		}
		if !p.Child(n.ID, i+1).IsContextLiteral() {
			return errors.Newf(errors.InvalidParameterValue, "default for %s must not vary by row", name)
		}
	}
	for _, k := range o.Keys {
		for _, c := range k.Columns {
			if tv.Column(c) == nil {
				return errors.ColumnNotFoundError(c, tv.Name)
			}
		}
		tv.AddKey(k)
	}
	for _, ord := range o.Orders {
		for _, oc := range ord.Columns {
			col := tv.Column(oc.Column)
			if col == nil {
				return errors.ColumnNotFoundError(oc.Column, tv.Name)
			}
			if oc.Sort == nil {
				oc.Sort = catalog.DefaultSort(col.DataType)
			}
		}
		tv.AddOrder(ord)
	}
	for _, r := range o.References {
		tv.AddReference(r)
	}
	n.TableVar = tv
	n.Order = src.Order
	n.Capabilities = src.Capabilities
	return nil
}

func (o *AdornOp) clone() Operator {
	return &AdornOp{
		DefaultColumns: append([]string(nil), o.DefaultColumns...),
		Keys:           o.Keys,
		Orders:         o.Orders,
		References:     o.References,
	}
}

func (o *AdornOp) emit(e *emitter, p *Plan, n *Node) {
	e.child(p, n.Children[0])
	e.write(" adorn {")
	parts := make([]string, 0, len(o.DefaultColumns))
	for i, name := range o.DefaultColumns {
		parts = append(parts, name+" default "+p.EmitStatement(n.Children[i+1], e.mode))
	}
	if len(parts) > 0 {
		e.write(" ", strings.Join(parts, ", "))
	}
	e.write(" }")
	for _, k := range o.Keys {
		e.write(" ", k.String())
	}
	for _, ord := range o.Orders {
		e.write(" order ", ord.String())
	}
	for _, r := range o.References {
		e.write(" ", r.String())
	}
}

func (o *AdornOp) open(ec *ExecContext, env *Env, p *Plan, n *Node) (cursor.Cursor, error) {
	src, err := p.Execute(ec, env, n.Children[0])
	if err != nil {
		return nil, err
	}
	return &adornCursor{
		passCursor: passCursor{src: src, caps: n.Capabilities},
		ec:         ec, env: env, p: p, n: n, o: o,
	}, nil
}

// adornCursor fills defaulted columns that are nil before propagating a
// row to its source.
type adornCursor struct {
	passCursor
	ec  *ExecContext
	env *Env
	p   *Plan
	n   *Node
	o   *AdornOp
}

func (c *adornCursor) Select() (*cursor.Row, error) { return c.src.Select() }

func (c *adornCursor) fill(row *cursor.Row) (*cursor.Row, error) {
	out := row.Clone()
	frame := c.env.Push(nil, true)
	for i, slot := range c.o.slots {
		if slot >= len(out.Values) || !out.Values[slot].Null {
			continue
		}
		v, err := c.p.Eval(c.ec, frame, c.n.Children[i+1])
		if err != nil {
			return nil, err
		}
		out.Values[slot] = v
	}
	return out, nil
}

// Insert fills nil defaulted columns and inserts into the source.
func (c *adornCursor) Insert(row *cursor.Row) error {
	u, err := c.updateable()
	if err != nil {
		return err
	}
	filled, err := c.fill(row)
	if err != nil {
		return err
	}
	return u.Insert(filled)
}

// Update propagates the row to the source.
func (c *adornCursor) Update(row *cursor.Row) error {
	u, err := c.updateable()
	if err != nil {
		return err
	}
	return u.Update(row)
}
