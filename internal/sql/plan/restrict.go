package plan

import (
	"context"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// Strategy is the access strategy of a restriction.
type Strategy int

const (
	// StrategyFilter evaluates the condition against every source row.
	StrategyFilter Strategy = iota
	// StrategySeek looks up a single key value.
	StrategySeek
	// StrategyScan traverses a bounded range of an ordered source.
	StrategyScan
)

func (s Strategy) String() string {
	switch s {
	case StrategySeek:
		return "Seek"
	case StrategyScan:
		return "Scan"
	}
	return "Filter"
}

// RestrictOp keeps the source rows satisfying a condition. Children are
// the source, the condition and optional seek hint arguments.
type RestrictOp struct {
	baseOp

	// HintInclusive applies to the seek hint arguments, which are the
	// children after the condition. A hint positions a filtering scan
	// on the source order before the first qualifying row.
	HintInclusive bool

	Strategy    Strategy
	Conditions  Conditions
	AccessOrder *catalog.Order
	// DeviceExecuted is set when the device evaluates the condition.
	DeviceExecuted bool

	frame  int
	bounds []boundColumn
}

func (*RestrictOp) Kind() Kind { return KindRestrict }

func (o *RestrictOp) hintArgs(n *Node) []NodeID {
	return n.Children[2:]
}

func (o *RestrictOp) bindChildren(b *Binder, p *Plan, n *Node) error {
	if err := b.bindNode(p, n.Children[0]); err != nil {
		return err
	}
	src := p.Child(n.ID, 0)
	if src.TableVar == nil {
		return errors.AssertionFailedf("restrict source %s is not a table", src)
	}
	o.frame = b.PushFrame(rowFrame(src.TableVar), false)
	defer b.PopFrame()
	for _, c := range n.Children[1:] {
		if err := b.bindNode(p, c); err != nil {
			return err
		}
	}
	return nil
}

func (o *RestrictOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	src := p.Child(n.ID, 0)
	cond := p.Child(n.ID, 1)
	if cond.DataType != types.Boolean {
		return errors.NonBooleanRestrictionError(cond.DataType.Name())
	}
	n.TableVar = src.TableVar.Clone()
	n.TableVar.IsBase = false
	n.Order = src.Order
	n.Capabilities = restrictCapabilities(src.Capabilities)
	return nil
}

func restrictCapabilities(src cursor.Capability) cursor.Capability {
	return cursor.Navigable | src.Intersect(cursor.BackwardsNavigable|cursor.Searchable|
		cursor.Bookmarkable|cursor.Updateable)
}

func (o *RestrictOp) determineBinding(b *Binder, p *Plan, n *Node) error {
	cond := p.Child(n.ID, 1)
	if !cond.IsRepeatable {
		return errors.NonRepeatableRestrictionError(p.EmitStatement(cond.ID, EmitDisplay))
	}
	return b.determineRestrictStrategy(p, n, o)
}

func (o *RestrictOp) shouldSupport() bool { return true }

func (o *RestrictOp) deviceNegotiated(b *Binder, p *Plan, n *Node) {
	if n.DeviceSupported && !n.CouldSupport {
		o.DeviceExecuted = true
		o.Strategy = StrategyFilter
	}
}

func (o *RestrictOp) clone() Operator {
	return &RestrictOp{HintInclusive: o.HintInclusive}
}

func (o *RestrictOp) open(ec *ExecContext, env *Env, p *Plan, n *Node) (cursor.Cursor, error) {
	src, err := p.Execute(ec, env, n.Children[0])
	if err != nil {
		return nil, err
	}
	c := &restrictCursor{ec: ec, env: env, p: p, n: n, o: o, src: src}
	srcNode := p.Child(n.ID, 0)
	if srcNode.Order != nil {
		c.srcOrder = srcNode.Order
		c.srcSlots = orderSlots(srcNode.TableVar, srcNode.Order)
	}
	if o.Strategy != StrategyFilter {
		c.order = o.AccessOrder
		c.keyCols = orderSlots(srcNode.TableVar, o.AccessOrder)
	} else if len(o.hintArgs(n)) > 0 && srcNode.Order != nil {
		c.order = srcNode.Order
		c.keyCols = orderSlots(srcNode.TableVar, srcNode.Order)
	}
	return c, nil
}

func orderSlots(tv *catalog.TableVar, order *catalog.Order) []int {
	slots := make([]int, len(order.Columns))
	for i, oc := range order.Columns {
		slots[i] = tv.IndexOf(oc.Column)
	}
	return slots
}

// keyRange bounds a traversal in source-order terms. Empty bounds are
// open.
type keyRange struct {
	lo          []types.Value
	loInclusive bool
	hi          []types.Value
	hiInclusive bool
}

// restrictCursor filters a source cursor, optionally within a key range.
// Every row is checked against the full condition, so Seek and Scan
// return exactly the rows Filter would.
type restrictCursor struct {
	ec  *ExecContext
	env *Env
	p   *Plan
	n   *Node
	o   *RestrictOp
	src cursor.Cursor

	order   *catalog.Order
	keyCols []int
	rng     keyRange

	srcOrder *catalog.Order
	srcSlots []int

	empty   bool
	started bool
}

func (c *restrictCursor) Open(ctx context.Context) error {
	if err := c.src.Open(ctx); err != nil {
		return err
	}
	c.started = false
	c.empty = false
	c.rng = keyRange{}
	stats := c.ec.stats()
	switch c.o.Strategy {
	case StrategySeek:
		stats.Seeks++
	case StrategyScan:
		stats.Scans++
	default:
		stats.Filters++
	}
	if c.o.Strategy != StrategyFilter {
		rng, empty, err := c.o.keyRange(c.ec, c.env, c.p)
		if err != nil {
			return err
		}
		c.rng, c.empty = rng, empty
		return nil
	}
	if args := c.o.hintArgs(c.n); len(args) > 0 && c.order != nil {
		argEnv := c.env.Push(nil, false)
		for _, a := range args {
			v, err := c.p.Eval(c.ec, argEnv, a)
			if err != nil {
				return err
			}
			c.rng.lo = append(c.rng.lo, v)
		}
		c.rng.loInclusive = c.o.HintInclusive
	}
	return nil
}

func (c *restrictCursor) key(row *cursor.Row, n int) []types.Value {
	return project(row, c.keyCols, n)
}

// project returns the first n values of row at the given slots.
func project(row *cursor.Row, slots []int, n int) []types.Value {
	if n > len(slots) {
		n = len(slots)
	}
	k := make([]types.Value, n)
	for i := 0; i < n; i++ {
		k[i] = row.Values[slots[i]]
	}
	return k
}

func (c *restrictCursor) belowLo(row *cursor.Row) bool {
	if len(c.rng.lo) == 0 || c.o.Strategy == StrategyFilter {
		return false
	}
	cmp := c.order.CompareValues(c.key(row, len(c.rng.lo)), c.rng.lo)
	return cmp < 0 || (cmp == 0 && !c.rng.loInclusive)
}

func (c *restrictCursor) aboveHi(row *cursor.Row) bool {
	if len(c.rng.hi) == 0 {
		return false
	}
	cmp := c.order.CompareValues(c.key(row, len(c.rng.hi)), c.rng.hi)
	return cmp > 0 || (cmp == 0 && !c.rng.hiInclusive)
}

func (c *restrictCursor) matches(row *cursor.Row) (bool, error) {
	c.ec.stats().RowsRead++
	return c.p.evalTrue(c.ec, c.env.Push(row.Values, false), c.n.Children[1])
}

func (c *restrictCursor) start() error {
	c.started = true
	if len(c.rng.lo) == 0 {
		return nil
	}
	s, ok := c.src.(cursor.SearchableCursor)
	if !ok || !c.src.Capabilities().Has(cursor.Searchable) {
		return nil
	}
	return s.Seek(c.rng.lo, c.rng.loInclusive)
}

func (c *restrictCursor) Next() (bool, error) {
	if c.empty {
		return false, nil
	}
	if !c.started {
		if err := c.start(); err != nil {
			return false, err
		}
	}
	for {
		ok, err := c.src.Next()
		if err != nil || !ok {
			return false, err
		}
		row, err := c.src.Select()
		if err != nil {
			return false, err
		}
		if c.belowLo(row) {
			continue
		}
		if c.aboveHi(row) {
			return false, nil
		}
		match, err := c.matches(row)
		if err != nil {
			return false, err
		}
		if match {
			c.ec.stats().RowsReturned++
			return true, nil
		}
	}
}

func (c *restrictCursor) backwards() (cursor.BackwardsCursor, error) {
	b, ok := c.src.(cursor.BackwardsCursor)
	if !ok || !c.src.Capabilities().Has(cursor.BackwardsNavigable) {
		return nil, errors.CapabilityNotSupportedError(cursor.BackwardsNavigable.String())
	}
	return b, nil
}

func (c *restrictCursor) Prior() (bool, error) {
	b, err := c.backwards()
	if err != nil {
		return false, err
	}
	if c.empty || !c.started {
		return false, nil
	}
	for {
		ok, err := b.Prior()
		if err != nil || !ok {
			return false, err
		}
		row, err := c.src.Select()
		if err != nil {
			return false, err
		}
		if c.aboveHi(row) {
			continue
		}
		if c.belowLo(row) {
			return false, b.First()
		}
		match, err := c.matches(row)
		if err != nil {
			return false, err
		}
		if match {
			return true, nil
		}
	}
}

func (c *restrictCursor) First() error {
	b, err := c.backwards()
	if err != nil {
		return err
	}
	c.started = false
	return b.First()
}

func (c *restrictCursor) Last() error {
	b, err := c.backwards()
	if err != nil {
		return err
	}
	c.started = true
	return b.Last()
}

func (c *restrictCursor) Select() (*cursor.Row, error) {
	return c.src.Select()
}

func (c *restrictCursor) Reset() error {
	c.started = false
	return c.src.Reset()
}

func (c *restrictCursor) searchable() (cursor.SearchableCursor, error) {
	s, ok := c.src.(cursor.SearchableCursor)
	if !ok || !c.src.Capabilities().Has(cursor.Searchable) {
		return nil, errors.CapabilityNotSupportedError(cursor.Searchable.String())
	}
	return s, nil
}

// FindKey positions on the first qualifying row with the given key
// prefix. When none qualifies the cursor returns to its previous row if
// the source is bookmarkable and to the beginning otherwise.
func (c *restrictCursor) FindKey(key []types.Value) (bool, error) {
	s, err := c.searchable()
	if err != nil {
		return false, err
	}
	var mark cursor.Bookmark
	if bm, ok := c.src.(cursor.BookmarkableCursor); ok && c.src.Capabilities().Has(cursor.Bookmarkable) {
		mark, _ = bm.GetBookmark()
	}
	found, err := s.FindKey(key)
	if err != nil {
		return false, err
	}
	c.started = true
	for found {
		row, err := c.src.Select()
		if err != nil {
			return false, err
		}
		if c.srcOrder != nil && c.srcOrder.CompareValues(project(row, c.srcSlots, len(key)), key) != 0 {
			break
		}
		match, err := c.matches(row)
		if err != nil {
			return false, err
		}
		if match && !c.belowLo(row) && !c.aboveHi(row) {
			return true, nil
		}
		if found, err = c.src.Next(); err != nil {
			return false, err
		}
	}
	if mark != nil {
		_, err := c.src.(cursor.BookmarkableCursor).GotoBookmark(mark)
		return false, err
	}
	return false, c.Reset()
}

func (c *restrictCursor) Seek(key []types.Value, inclusive bool) error {
	s, err := c.searchable()
	if err != nil {
		return err
	}
	c.started = true
	return s.Seek(key, inclusive)
}

func (c *restrictCursor) GetBookmark() (cursor.Bookmark, error) {
	bm, ok := c.src.(cursor.BookmarkableCursor)
	if !ok {
		return nil, errors.CapabilityNotSupportedError(cursor.Bookmarkable.String())
	}
	return bm.GetBookmark()
}

func (c *restrictCursor) GotoBookmark(b cursor.Bookmark) (bool, error) {
	bm, ok := c.src.(cursor.BookmarkableCursor)
	if !ok {
		return false, errors.CapabilityNotSupportedError(cursor.Bookmarkable.String())
	}
	found, err := bm.GotoBookmark(b)
	if err != nil || !found {
		return false, err
	}
	row, err := c.src.Select()
	if err != nil {
		return false, err
	}
	c.started = true
	return c.matches(row)
}

func (c *restrictCursor) updateable() (cursor.UpdateableCursor, error) {
	u, ok := c.src.(cursor.UpdateableCursor)
	if !ok || !c.src.Capabilities().Has(cursor.Updateable) {
		return nil, errors.CapabilityNotSupportedError(cursor.Updateable.String())
	}
	return u, nil
}

func (c *restrictCursor) verify(row *cursor.Row) error {
	match, err := c.p.evalTrue(c.ec, c.env.Push(row.Values, false), c.n.Children[1])
	if err != nil {
		return err
	}
	if !match {
		return errors.WrapRuntime(
			errors.CheckViolationError(c.n.TableVar.Name, c.p.EmitStatement(c.n.Children[1], EmitDisplay)),
			c.n.Location)
	}
	return nil
}

// Insert verifies the condition and propagates the row to the source.
func (c *restrictCursor) Insert(row *cursor.Row) error {
	u, err := c.updateable()
	if err != nil {
		return err
	}
	if err := c.verify(row); err != nil {
		return err
	}
	return u.Insert(row)
}

// Update verifies the condition and propagates the row to the source.
func (c *restrictCursor) Update(row *cursor.Row) error {
	u, err := c.updateable()
	if err != nil {
		return err
	}
	if err := c.verify(row); err != nil {
		return err
	}
	return u.Update(row)
}

func (c *restrictCursor) Delete() error {
	u, err := c.updateable()
	if err != nil {
		return err
	}
	return u.Delete()
}

func (c *restrictCursor) Capabilities() cursor.Capability {
	return c.n.Capabilities
}

func (c *restrictCursor) Close() error {
	return c.src.Close()
}
