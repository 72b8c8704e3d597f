package plan

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/log"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// BrowseOp navigates its source in a unique order without materializing
// it. Each move runs a variant sub-plan that restricts the ordered source
// to the rows on one side of an origin row. Variants are keyed by the
// number of origin columns, the direction and inclusivity, compiled on
// first use and kept until the plan is closed.
type BrowseOp struct {
	baseOp
	Requested *catalog.Order

	order  *catalog.Order
	slots  []int
	binder *Binder
	plan   *Plan
	source NodeID

	mu       sync.Mutex
	variants map[variantKey]*Plan
}

type variantKey struct {
	origin    int
	forward   bool
	inclusive bool
}

func (*BrowseOp) Kind() Kind { return KindBrowse }

func (o *BrowseOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	src := p.Child(n.ID, 0)
	mapped, err := mapOrder(src.TableVar, o.Requested)
	if err != nil {
		return err
	}
	order := src.TableVar.EnsureOrderUnique(mapped)
	if src.TableVar.IsBase {
		if order, err = b.catalog.AttachOrder(src.TableVar.Name, order); err != nil {
			return err
		}
	}
	n.TableVar = src.TableVar.Clone()
	n.TableVar.IsBase = false
	n.Order = n.TableVar.AddOrder(order)
	o.order = n.Order
	o.slots = orderSlots(n.TableVar, o.order)
	n.Capabilities = cursor.Navigable | cursor.BackwardsNavigable | cursor.Bookmarkable | cursor.Searchable
	return nil
}

func (o *BrowseOp) determineBinding(b *Binder, p *Plan, n *Node) error {
	o.binder = b.Fork()
	o.plan = p
	o.source = n.Children[0]
	return nil
}

// Order returns the unique browse order.
func (o *BrowseOp) Order() *catalog.Order { return o.order }

func (o *BrowseOp) clone() Operator {
	return &BrowseOp{Requested: o.Requested}
}

func (o *BrowseOp) emit(e *emitter, p *Plan, n *Node) {
	e.child(p, n.Children[0])
	e.write(" browse by ", o.Requested.String())
}

// VariantCount returns the number of compiled variants.
func (o *BrowseOp) VariantCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.variants)
}

func (o *BrowseOp) closeVariants() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var first error
	for k, vp := range o.variants {
		if err := vp.Close(); err != nil && first == nil {
			first = err
		}
		delete(o.variants, k)
	}
	return first
}

func originName(i int) string {
	return fmt.Sprintf("$Origin%d", i)
}

func (o *BrowseOp) originFrame(k int) []FrameColumn {
	cols := make([]FrameColumn, k)
	for i := 0; i < k; i++ {
		oc := o.order.Columns[i]
		col := o.plan.Node(o.source).TableVar.Column(oc.Column)
		cols[i] = FrameColumn{Name: originName(i), DataType: col.DataType, IsNilable: col.IsNilable}
	}
	return cols
}

// Variant returns the compiled sub-plan selecting the rows at or after
// (inclusive) or strictly after the origin, whose first k order columns
// are bound as frame variables. Backward variants traverse the reversed
// order.
func (o *BrowseOp) Variant(ctx context.Context, k int, forward, inclusive bool) (*Plan, error) {
	if o.binder == nil {
		return nil, errors.AssertionFailedf("browse variant requested before binding")
	}
	if k < 0 || k > len(o.order.Columns) {
		return nil, errors.AssertionFailedf("browse origin of %d columns exceeds order %s", k, o.order)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	key := variantKey{origin: k, forward: forward, inclusive: inclusive}
	if vp, ok := o.variants[key]; ok {
		return vp, nil
	}

	vp := NewPlan()
	bld := BuilderFor(vp)
	src := vp.Import(o.plan, o.source)
	order := o.order
	if !forward {
		order = order.Reverse()
	}
	ordered := bld.add(&OrderOp{Requested: order, RequestedCapabilities: cursor.Navigable | cursor.Searchable}, src)
	children := []NodeID{ordered, o.keyset(bld, order, k, inclusive)}
	for i := 0; i < k; i++ {
		children = append(children, bld.Var(originName(i)))
	}
	vp.Root = bld.add(&RestrictOp{HintInclusive: inclusive}, children...)

	b := o.binder.Fork()
	b.opts.RequestedCapabilities = cursor.Navigable
	b.PushFrame(o.originFrame(k), false)
	if err := b.Bind(ctx, vp); err != nil {
		return nil, err
	}
	if o.variants == nil {
		o.variants = make(map[variantKey]*Plan)
	}
	o.variants[key] = vp
	b.logger.Debug("browse variant compiled",
		log.Int("origin", k),
		log.Bool("forward", forward),
		log.Bool("inclusive", inclusive),
		log.String("statement", vp.EmitStatement(vp.Root, EmitDisplay)))
	return vp, nil
}

func (o *BrowseOp) nilable(column string) bool {
	col := o.plan.Node(o.source).TableVar.Column(column)
	return col != nil && col.IsNilable
}

// keyset builds the window predicate: a disjunction over decreasing
// prefixes of the origin, each fixing the leading columns and stepping
// past the origin on the last one.
func (o *BrowseOp) keyset(bld *Builder, order *catalog.Order, k int, inclusive bool) NodeID {
	var window NodeID
	if k == 0 {
		window = bld.Bool(true)
	} else {
		disjuncts := make([]NodeID, 0, k)
		for j := k - 1; j >= 0; j-- {
			terms := make([]NodeID, 0, j+1)
			for i := 0; i < j; i++ {
				terms = append(terms, o.relate(bld, order.Columns[i], i, OpEqual))
			}
			oc := order.Columns[j]
			op := OpGreater
			if !oc.Ascending {
				op = OpLess
			}
			if j == k-1 && inclusive {
				op = inclusiveOf(op)
			}
			terms = append(terms, o.relate(bld, oc, j, op))
			disjuncts = append(disjuncts, bld.And(terms...))
		}
		window = bld.Or(disjuncts...)
	}
	conj := []NodeID{window}
	for _, oc := range order.Columns[k:] {
		if !oc.IncludeNils && o.nilable(oc.Column) {
			conj = append(conj, bld.Not(bld.IsNil(bld.Column(oc.Column))))
		}
	}
	return bld.And(conj...)
}

func inclusiveOf(op CompareOperator) CompareOperator {
	switch op {
	case OpGreater:
		return OpGreaterEqual
	case OpLess:
		return OpLessEqual
	}
	return op
}

// relate compares an order column with its origin value. Columns that
// include nils order nil below every value.
func (o *BrowseOp) relate(bld *Builder, oc *catalog.OrderColumn, i int, op CompareOperator) NodeID {
	c := func() NodeID { return bld.Column(oc.Column) }
	v := func() NodeID { return bld.Var(originName(i)) }
	if !oc.IncludeNils || !o.nilable(oc.Column) {
		return bld.Compare(op, c(), v())
	}
	switch op {
	case OpEqual:
		return bld.Or(bld.And(bld.IsNil(c()), bld.IsNil(v())), bld.Eq(c(), v()))
	case OpGreater:
		return bld.And(bld.Not(bld.IsNil(c())), bld.Or(bld.IsNil(v()), bld.Greater(c(), v())))
	case OpGreaterEqual:
		return bld.Or(bld.IsNil(v()), bld.And(bld.Not(bld.IsNil(c())), bld.GreaterEq(c(), v())))
	case OpLess:
		return bld.And(bld.Not(bld.IsNil(v())), bld.Or(bld.IsNil(c()), bld.Less(c(), v())))
	default:
		return bld.Or(bld.IsNil(c()), bld.And(bld.Not(bld.IsNil(v())), bld.LessEq(c(), v())))
	}
}

func (o *BrowseOp) open(ec *ExecContext, env *Env, p *Plan, n *Node) (cursor.Cursor, error) {
	return &browseCursor{ec: ec, o: o, n: n}, nil
}

type browsePos int

const (
	posBOF browsePos = iota
	posOn
	// posBefore follows a Seek: the next row of the forward variant is
	// pending.
	posBefore
	posEOF
)

// browseBookmark is the order key of a row.
type browseBookmark []types.Value

// browseCursor moves through a browse by opening variants from the
// current row.
type browseCursor struct {
	ec  *ExecContext
	o   *BrowseOp
	n   *Node
	ctx context.Context

	cur     cursor.Cursor
	forward bool
	row     *cursor.Row
	pos     browsePos
}

func (c *browseCursor) Open(ctx context.Context) error {
	c.ctx = ctx
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	c.pos = posBOF
	return c.closeVariant()
}

func (c *browseCursor) closeVariant() error {
	if c.cur == nil {
		return nil
	}
	err := c.cur.Close()
	c.cur = nil
	return err
}

func (c *browseCursor) origin(row *cursor.Row) []types.Value {
	return project(row, c.o.slots, len(c.o.slots))
}

func (c *browseCursor) openVariant(k int, forward, inclusive bool, origin []types.Value) (cursor.Cursor, error) {
	vp, err := c.o.Variant(c.ctx, k, forward, inclusive)
	if err != nil {
		return nil, err
	}
	values := append([]types.Value(nil), origin[:k]...)
	env := (*Env)(nil).Push(values, false)
	cur, err := vp.Execute(c.ec, env, vp.Root)
	if err != nil {
		return nil, err
	}
	if err := cur.Open(c.ctx); err != nil {
		_ = cur.Close()
		return nil, err
	}
	return cur, nil
}

func (c *browseCursor) use(cur cursor.Cursor, forward bool) error {
	err := c.closeVariant()
	c.cur = cur
	c.forward = forward
	return err
}

func (c *browseCursor) step() (bool, error) {
	ok, err := c.cur.Next()
	if err != nil || !ok {
		return false, err
	}
	row, err := c.cur.Select()
	if err != nil {
		return false, err
	}
	c.row = row.Clone()
	c.pos = posOn
	return true, nil
}

func (c *browseCursor) Next() (bool, error) {
	if c.pos == posEOF {
		return false, nil
	}
	if c.cur == nil || !c.forward {
		var cur cursor.Cursor
		var err error
		if c.pos == posBOF {
			cur, err = c.openVariant(0, true, true, nil)
		} else {
			cur, err = c.openVariant(len(c.o.slots), true, false, c.origin(c.row))
		}
		if err != nil {
			return false, err
		}
		if err := c.use(cur, true); err != nil {
			return false, err
		}
	}
	ok, err := c.step()
	if err != nil {
		return false, err
	}
	if !ok {
		c.pos = posEOF
		c.row = nil
		return false, c.closeVariant()
	}
	return true, nil
}

func (c *browseCursor) Prior() (bool, error) {
	if c.pos == posBOF {
		return false, nil
	}
	if c.cur == nil || c.forward {
		origin := c.row
		if c.pos == posBefore {
			ok, err := c.step()
			if err != nil {
				return false, err
			}
			origin = nil
			if ok {
				origin = c.row
			}
		}
		var cur cursor.Cursor
		var err error
		if origin == nil || c.pos == posEOF {
			cur, err = c.openVariant(0, false, true, nil)
		} else {
			cur, err = c.openVariant(len(c.o.slots), false, false, c.origin(origin))
		}
		if err != nil {
			return false, err
		}
		if err := c.use(cur, false); err != nil {
			return false, err
		}
	}
	ok, err := c.step()
	if err != nil {
		return false, err
	}
	if !ok {
		c.pos = posBOF
		c.row = nil
		return false, c.closeVariant()
	}
	return true, nil
}

func (c *browseCursor) First() error {
	c.pos = posBOF
	c.row = nil
	return c.closeVariant()
}

func (c *browseCursor) Last() error {
	c.pos = posEOF
	c.row = nil
	return c.closeVariant()
}

func (c *browseCursor) Reset() error { return c.First() }

func (c *browseCursor) Select() (*cursor.Row, error) {
	if c.pos != posOn {
		return nil, errors.CursorStateError("browse cursor is not on a row")
	}
	return c.row, nil
}

// FindKey positions on the first row whose order key starts with key,
// leaving the position unchanged when there is none.
func (c *browseCursor) FindKey(key []types.Value) (bool, error) {
	if len(key) > len(c.o.slots) {
		return false, errors.Newf(errors.InvalidParameterValue,
			"key has %d values, order %s has %d columns", len(key), c.o.order, len(c.o.slots))
	}
	cur, err := c.openVariant(len(key), true, true, key)
	if err != nil {
		return false, err
	}
	ok, err := cur.Next()
	if err == nil && ok {
		var row *cursor.Row
		if row, err = cur.Select(); err == nil &&
			c.o.order.CompareValues(project(row, c.o.slots, len(key)), key) == 0 {
			if err := c.use(cur, true); err != nil {
				return false, err
			}
			c.row = row.Clone()
			c.pos = posOn
			return true, nil
		}
	}
	if cerr := cur.Close(); err == nil {
		err = cerr
	}
	return false, err
}

// Seek positions before the first row at or after key, or strictly after
// it.
func (c *browseCursor) Seek(key []types.Value, inclusive bool) error {
	if len(key) > len(c.o.slots) {
		return errors.Newf(errors.InvalidParameterValue,
			"key has %d values, order %s has %d columns", len(key), c.o.order, len(c.o.slots))
	}
	cur, err := c.openVariant(len(key), true, inclusive, key)
	if err != nil {
		return err
	}
	c.row = nil
	c.pos = posBefore
	return c.use(cur, true)
}

func (c *browseCursor) GetBookmark() (cursor.Bookmark, error) {
	if c.pos != posOn {
		return nil, errors.CursorStateError("browse cursor is not on a row")
	}
	return browseBookmark(c.origin(c.row)), nil
}

func (c *browseCursor) GotoBookmark(b cursor.Bookmark) (bool, error) {
	key, ok := b.(browseBookmark)
	if !ok {
		return false, errors.AssertionFailedf("bookmark %T is not a browse bookmark", b)
	}
	return c.FindKey(key)
}

func (c *browseCursor) Capabilities() cursor.Capability {
	return c.n.Capabilities
}

func (c *browseCursor) Close() error {
	c.pos = posBOF
	c.row = nil
	return c.closeVariant()
}
