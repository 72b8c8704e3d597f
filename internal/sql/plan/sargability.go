package plan

import (
	"fmt"
	"strings"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/log"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// ColumnCondition is one comparison of a column against a value that is
// fixed for the execution. The column is always on the left.
type ColumnCondition struct {
	Op  CompareOperator
	Arg NodeID
	// Conversions wrap the column, outermost first. All of them are
	// order preserving; Arg is in the domain of the outermost one.
	Conversions []*types.Conversion
}

// ColumnConditions are the conditions on one column.
type ColumnConditions struct {
	Column     string
	Slot       int
	Conditions []*ColumnCondition
}

// Conditions is a sargable decomposition, one entry per column in order
// of first appearance.
type Conditions []*ColumnConditions

func (cs Conditions) find(slot int) *ColumnConditions {
	for _, c := range cs {
		if c.Slot == slot {
			return c
		}
	}
	return nil
}

// Columns returns the constrained column names.
func (cs Conditions) Columns() []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Column
	}
	return names
}

func (cs Conditions) String() string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		for _, cond := range c.Conditions {
			parts = append(parts, fmt.Sprintf("%s %s #%d", c.Column, cond.Op, cond.Arg))
		}
	}
	return strings.Join(parts, ", ")
}

// classify splits a column's conditions into an equality or a lower and
// upper bound. Any other combination is not usable for access.
func (cc *ColumnConditions) classify() (eq, lower, upper *ColumnCondition, ok bool) {
	if len(cc.Conditions) > 2 {
		return nil, nil, nil, false
	}
	for _, c := range cc.Conditions {
		switch c.Op {
		case OpEqual:
			if len(cc.Conditions) != 1 {
				return nil, nil, nil, false
			}
			eq = c
		case OpGreater, OpGreaterEqual:
			if lower != nil {
				return nil, nil, nil, false
			}
			lower = c
		case OpLess, OpLessEqual:
			if upper != nil {
				return nil, nil, nil, false
			}
			upper = c
		default:
			return nil, nil, nil, false
		}
	}
	return eq, lower, upper, true
}

// boundColumn is one leading column of the access order with its
// conditions.
type boundColumn struct {
	column    string
	ascending bool
	eq        *ColumnCondition
	lower     *ColumnCondition
	upper     *ColumnCondition
}

type sargAnalyzer struct {
	b       *Binder
	p       *Plan
	frame   int
	conds   Conditions
	demoted bool
}

func (s *sargAnalyzer) visit(id NodeID) bool {
	n := s.p.nodes[id]
	switch n.Kind {
	case KindAnd:
		for _, c := range n.Children {
			if !s.visit(c) {
				return false
			}
		}
		return true
	case KindCompare:
		return s.comparison(n)
	}
	return false
}

func (s *sargAnalyzer) comparison(n *Node) bool {
	op := n.Op.(*CompareOp).Op
	left, right := n.Children[0], n.Children[1]

	if l := s.p.nodes[left]; l.Kind == KindThreeWayCompare {
		rop, ok := threeWayRelation(op, s.p.nodes[right])
		if !ok {
			return false
		}
		op, left, right = rop, l.Children[0], l.Children[1]
	} else if r := s.p.nodes[right]; r.Kind == KindThreeWayCompare {
		rop, ok := threeWayRelation(op.Commute(), s.p.nodes[left])
		if !ok {
			return false
		}
		op, left, right = rop, r.Children[0], r.Children[1]
	}
	if op == OpNotEqual {
		return false
	}
	if col, convs, ok := s.columnSide(left); ok && s.isContextLiteral(right) {
		s.add(col, op, right, convs)
		return true
	}
	if col, convs, ok := s.columnSide(right); ok && s.isContextLiteral(left) {
		s.add(col, op.Commute(), left, convs)
		return true
	}
	return false
}

// threeWayRelation rewrites "(x ?= y) op k" into the relation between x
// and y it is equivalent to.
func threeWayRelation(op CompareOperator, k *Node) (CompareOperator, bool) {
	lit, ok := k.Op.(*LiteralOp)
	if !ok || lit.Value.Null {
		return 0, false
	}
	kv, ok := lit.Value.Data.(int64)
	if !ok {
		return 0, false
	}
	var holds [3]bool
	for i, c := range []int64{-1, 0, 1} {
		d := 0
		if c < kv {
			d = -1
		} else if c > kv {
			d = 1
		}
		holds[i] = op.Holds(d)
	}
	switch holds {
	case [3]bool{true, false, false}:
		return OpLess, true
	case [3]bool{false, true, false}:
		return OpEqual, true
	case [3]bool{false, false, true}:
		return OpGreater, true
	case [3]bool{true, true, false}:
		return OpLessEqual, true
	case [3]bool{false, true, true}:
		return OpGreaterEqual, true
	}
	return 0, false
}

// columnSide recognizes a column of the restricted row wrapped only in
// order-preserving conversions.
func (s *sargAnalyzer) columnSide(id NodeID) (*Node, []*types.Conversion, bool) {
	var convs []*types.Conversion
	for {
		n := s.p.nodes[id]
		switch n.Kind {
		case KindColumnRef:
			ref := n.Op.(*ColumnRefOp).ref
			return n, convs, ref.Frame == s.frame
		case KindConvert:
			c := n.Op.(*ConvertOp).conversion
			if c != nil {
				if !c.OrderPreserving {
					if s.refersToRow(id) {
						s.demoted = true
					}
					return nil, nil, false
				}
				convs = append(convs, c)
			}
			id = n.Children[0]
		default:
			return nil, nil, false
		}
	}
}

func (s *sargAnalyzer) isContextLiteral(id NodeID) bool {
	return s.p.nodes[id].IsContextLiteral() && !s.refersToRow(id)
}

func (s *sargAnalyzer) refersToRow(id NodeID) bool {
	found := false
	s.p.Walk(id, func(n *Node) bool {
		switch op := n.Op.(type) {
		case *ColumnRefOp:
			found = found || op.ref.Frame == s.frame
		case *VarRefOp:
			found = found || op.ref.Frame == s.frame
		}
		return !found
	})
	return found
}

func (s *sargAnalyzer) add(col *Node, op CompareOperator, arg NodeID, convs []*types.Conversion) {
	ref := col.Op.(*ColumnRefOp)
	cc := s.conds.find(ref.ref.Slot)
	if cc == nil {
		cc = &ColumnConditions{Column: ref.Name, Slot: ref.ref.Slot}
		s.conds = append(s.conds, cc)
	}
	cc.Conditions = append(cc.Conditions, &ColumnCondition{Op: op, Arg: arg, Conversions: convs})
}

// Decompose returns the sargable decomposition of a restriction's
// condition, or false when the condition is not sargable.
func (b *Binder) decompose(p *Plan, n *Node, o *RestrictOp) (Conditions, bool) {
	s := &sargAnalyzer{b: b, p: p, frame: o.frame}
	ok := s.visit(n.Children[1])
	if s.demoted {
		b.warn(p.Child(n.ID, 1), errors.New(errors.SargabilityDemoted,
			"restriction on a converted column cannot use an ordered access path"))
	}
	if !ok || len(s.conds) == 0 {
		return nil, false
	}
	return s.conds, true
}

// seekableKey returns the non-sparse key whose columns are exactly the
// constrained columns, all of them by a single equality.
func seekableKey(tv *catalog.TableVar, conds Conditions) *catalog.Key {
	for _, cc := range conds {
		if len(cc.Conditions) != 1 || cc.Conditions[0].Op != OpEqual {
			return nil
		}
	}
	for _, k := range tv.Keys {
		if !k.IsSparse && k.EqualsColumnSet(conds.Columns()) {
			return k
		}
	}
	return nil
}

// scanShape returns the equality columns and the range column, or false
// when the conditions cannot drive a range scan.
func scanShape(tv *catalog.TableVar, conds Conditions) (eqCols []string, rangeCol string, ok bool) {
	for _, col := range tv.Columns {
		cc := conds.find(tv.IndexOf(col.Name))
		if cc == nil {
			continue
		}
		eq, _, _, usable := cc.classify()
		if !usable {
			return nil, "", false
		}
		if eq != nil {
			eqCols = append(eqCols, col.Name)
			continue
		}
		if rangeCol != "" {
			return nil, "", false
		}
		rangeCol = col.Name
	}
	return eqCols, rangeCol, true
}

// servesScan reports whether order leads with the equality columns in
// any sequence followed by the range column.
func servesScan(order *catalog.Order, eqCols []string, rangeCol string) bool {
	width := len(eqCols)
	if rangeCol != "" {
		width++
	}
	if order == nil || width == 0 || len(order.Columns) < width {
		return false
	}
	for i := 0; i < len(eqCols); i++ {
		found := false
		for _, c := range eqCols {
			if order.Columns[i].Column == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return rangeCol == "" || order.Columns[len(eqCols)].Column == rangeCol
}

// determineRestrictStrategy chooses Seek, Scan or Filter for a restriction
// and makes sure the source can be searched on the chosen order.
func (b *Binder) determineRestrictStrategy(p *Plan, n *Node, o *RestrictOp) error {
	o.Strategy = StrategyFilter
	o.Conditions = nil
	o.AccessOrder = nil
	o.bounds = nil
	if !b.opts.EnableSargability {
		return nil
	}
	conds, ok := b.decompose(p, n, o)
	if !ok {
		return nil
	}
	src := p.Child(n.ID, 0)
	tv := src.TableVar

	var order *catalog.Order
	strategy := StrategyFilter
	if key := seekableKey(tv, conds); key != nil {
		strategy = StrategySeek
		order = tv.OrderForKey(key)
		if src.Order != nil && servesScan(src.Order, key.Columns, "") {
			order = src.Order
		}
	} else if eqCols, rangeCol, ok := scanShape(tv, conds); ok {
		strategy = StrategyScan
		var err error
		order, err = b.scanOrder(src, eqCols, rangeCol)
		if err != nil {
			return err
		}
	} else {
		return nil
	}

	access, err := b.ensureSearchable(p, n, order)
	if err != nil {
		return err
	}
	// The restriction delivers rows in access order, within whatever
	// the possibly replaced source can still offer.
	searched := p.Child(n.ID, 0)
	n.Order = searched.Order
	n.Capabilities = restrictCapabilities(searched.Capabilities)
	bounds, ok := layoutBounds(access, conds)
	if !ok {
		return errors.AssertionFailedf("access order %s does not lead with %s", access, conds.Columns())
	}
	if strategy == StrategyScan {
		if err := b.tighten(p, p.Child(n.ID, 0).TableVar, bounds); err != nil {
			return err
		}
	}
	o.Strategy = strategy
	o.Conditions = conds
	o.AccessOrder = access
	o.bounds = bounds
	b.logger.Debug("restriction strategy",
		log.String("strategy", strategy.String()),
		log.String("order", access.String()),
		log.String("conditions", conds.String()))
	return nil
}

// scanOrder finds an order serving the scan: the source's own order, a
// registered order, a key order, or a new order attached to the table.
func (b *Binder) scanOrder(src *Node, eqCols []string, rangeCol string) (*catalog.Order, error) {
	tv := src.TableVar
	if servesScan(src.Order, eqCols, rangeCol) {
		return src.Order, nil
	}
	for _, o := range tv.Orders {
		if servesScan(o, eqCols, rangeCol) {
			return o, nil
		}
	}
	for _, k := range tv.Keys {
		if o := tv.OrderForKey(k); servesScan(o, eqCols, rangeCol) {
			return o, nil
		}
	}

	order := &catalog.Order{}
	for _, c := range eqCols {
		order.Columns = append(order.Columns, catalog.NewOrderColumn(c, tv.Column(c).DataType, true))
	}
	if rangeCol != "" {
		order.Columns = append(order.Columns, catalog.NewOrderColumn(rangeCol, tv.Column(rangeCol).DataType, true))
	}
	order = tv.EnsureOrderUnique(order)
	if tv.IsBase {
		registered, err := b.catalog.AttachOrder(tv.Name, order)
		if err != nil {
			return nil, err
		}
		order = registered
	}
	order = tv.AddOrder(order)
	b.logger.Debug("order synthesized for scan",
		log.String("table", tv.Name),
		log.String("order", order.String()))
	return order, nil
}

// ensureSearchable wraps the restriction's source in an Order node unless
// it already offers a searchable cursor on order. It returns the order
// the source delivers.
func (b *Binder) ensureSearchable(p *Plan, n *Node, order *catalog.Order) (*catalog.Order, error) {
	src := p.Child(n.ID, 0)
	if src.Order == order || (src.Order != nil && src.Order.Equivalent(order)) {
		if src.Capabilities.Has(cursor.Searchable) {
			return src.Order, nil
		}
	}
	id := p.Add(&OrderOp{Requested: order, RequestedCapabilities: cursor.Navigable | cursor.Searchable}, src.ID)
	p.nodes[id].Location = src.Location
	if err := b.bindNode(p, id); err != nil {
		return nil, err
	}
	p.SetChild(n.ID, 0, id)
	return p.nodes[id].Order, nil
}

func layoutBounds(order *catalog.Order, conds Conditions) ([]boundColumn, bool) {
	bounds := make([]boundColumn, 0, len(conds))
	for i := 0; i < len(conds); i++ {
		if i >= len(order.Columns) {
			return nil, false
		}
		oc := order.Columns[i]
		var cc *ColumnConditions
		for _, c := range conds {
			if c.Column == oc.Column {
				cc = c
			}
		}
		if cc == nil {
			return nil, false
		}
		eq, lower, upper, ok := cc.classify()
		if !ok || (eq == nil && i != len(conds)-1) {
			return nil, false
		}
		bounds = append(bounds, boundColumn{column: oc.Column, ascending: oc.Ascending, eq: eq, lower: lower, upper: upper})
	}
	return bounds, true
}

// tighten turns strict bounds on discrete columns into inclusive bounds on
// the predecessor or successor of the argument. Strict bounds on other
// domains stay strict.
func (b *Binder) tighten(p *Plan, tv *catalog.TableVar, bounds []boundColumn) error {
	if len(bounds) == 0 {
		return nil
	}
	bc := &bounds[len(bounds)-1]
	dt := tv.Column(bc.column).DataType
	if !types.IsDiscrete(dt) {
		return nil
	}
	if c := bc.lower; c != nil && c.Op == OpGreater && len(c.Conversions) == 0 {
		id := p.Add(&SuccOp{}, c.Arg)
		if err := b.bindNode(p, id); err != nil {
			return err
		}
		bc.lower = &ColumnCondition{Op: OpGreaterEqual, Arg: id}
	}
	if c := bc.upper; c != nil && c.Op == OpLess && len(c.Conversions) == 0 {
		id := p.Add(&PredOp{}, c.Arg)
		if err := b.bindNode(p, id); err != nil {
			return err
		}
		bc.upper = &ColumnCondition{Op: OpLessEqual, Arg: id}
	}
	return nil
}

// boundValue evaluates a condition argument and maps it back through the
// column's conversions. The result is nil when no row can qualify.
func (o *RestrictOp) boundValue(ec *ExecContext, env *Env, p *Plan, c *ColumnCondition) (types.Value, error) {
	v, err := p.Eval(ec, env, c.Arg)
	if err != nil || v.Null {
		return types.NewNullValue(), err
	}
	up := c.Op == OpGreaterEqual || c.Op == OpLess
	for _, conv := range c.Conversions {
		r, exact, err := conv.Inverse(v, up)
		if err != nil {
			return types.Value{}, err
		}
		if c.Op == OpEqual && !exact {
			return types.NewNullValue(), nil
		}
		v = r
	}
	return v, nil
}

// keyRange computes the traversal bounds in access-order terms.
func (o *RestrictOp) keyRange(ec *ExecContext, env *Env, p *Plan) (keyRange, bool, error) {
	var r keyRange
	r.loInclusive, r.hiInclusive = true, true
	argEnv := env.Push(nil, false)
	for _, bc := range o.bounds {
		if bc.eq != nil {
			v, err := o.boundValue(ec, argEnv, p, bc.eq)
			if err != nil || v.Null {
				return keyRange{}, true, err
			}
			r.lo = append(r.lo, v)
			r.hi = append(r.hi, v)
			continue
		}
		first, last := bc.lower, bc.upper
		if !bc.ascending {
			first, last = last, first
		}
		if first != nil {
			v, err := o.boundValue(ec, argEnv, p, first)
			if err != nil || v.Null {
				return keyRange{}, true, err
			}
			r.lo = append(r.lo, v)
			r.loInclusive = first.Op == OpGreaterEqual || first.Op == OpLessEqual
		}
		if last != nil {
			v, err := o.boundValue(ec, argEnv, p, last)
			if err != nil || v.Null {
				return keyRange{}, true, err
			}
			r.hi = append(r.hi, v)
			r.hiInclusive = last.Op == OpGreaterEqual || last.Op == OpLessEqual
		}
	}
	return r, false, nil
}
