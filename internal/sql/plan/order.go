package plan

import (
	"context"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/index"
	"github.com/dshills/quantaplan/internal/sql/cursor"
)

// OrderOp delivers its source in a requested order. The order is made
// unique by appending key columns. When the source already delivers an
// equivalent order with the requested capabilities the node passes the
// source through.
type OrderOp struct {
	baseOp
	Requested *catalog.Order
	// RequestedCapabilities are the capabilities the consumer needs.
	// Zero means Navigable, or the binder's requested set at the root.
	RequestedCapabilities cursor.Capability

	order         *catalog.Order
	shouldExecute bool
	degree        int
}

func (*OrderOp) Kind() Kind { return KindOrder }

func (o *OrderOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	src := p.Child(n.ID, 0)
	tv := src.TableVar
	mapped, err := mapOrder(tv, o.Requested)
	if err != nil {
		return err
	}
	o.order = tv.EnsureOrderUnique(mapped)
	o.degree = b.opts.BTreeDegree

	n.TableVar = tv.Clone()
	n.TableVar.IsBase = false
	n.Order = n.TableVar.AddOrder(o.order)
	o.order = n.Order
	return nil
}

// mapOrder resolves requested order columns against tv, filling in the
// natural sort of each column where none is given.
func mapOrder(tv *catalog.TableVar, requested *catalog.Order) (*catalog.Order, error) {
	if requested == nil || len(requested.Columns) == 0 {
		return nil, errors.Newf(errors.SyntaxError, "order requires at least one column")
	}
	mapped := &catalog.Order{}
	for _, oc := range requested.Columns {
		col := tv.Column(oc.Column)
		if col == nil {
			return nil, errors.ColumnNotFoundError(oc.Column, tv.Name)
		}
		c := *oc
		if c.Sort == nil {
			c.Sort = catalog.DefaultSort(col.DataType)
		}
		mapped.Columns = append(mapped.Columns, &c)
	}
	return mapped, nil
}

func (o *OrderOp) determineBinding(b *Binder, p *Plan, n *Node) error {
	requested := o.RequestedCapabilities
	if requested == cursor.None {
		requested = cursor.Navigable
		if p.Root == n.ID {
			requested |= b.opts.RequestedCapabilities
		}
	}
	src := p.Child(n.ID, 0)
	o.shouldExecute = !(src.Order != nil && src.Order.Equivalent(o.order) && src.Capabilities.Has(requested))
	if o.shouldExecute {
		n.Capabilities = cursor.Navigable | cursor.BackwardsNavigable | cursor.Bookmarkable |
			cursor.Searchable | cursor.Countable
	} else {
		n.Capabilities = src.Capabilities
	}
	return nil
}

// ShouldExecute reports whether the node sorts its source.
func (o *OrderOp) ShouldExecute() bool { return o.shouldExecute }

// Order returns the unique order the node delivers.
func (o *OrderOp) Order() *catalog.Order { return o.order }

func (o *OrderOp) shouldSupport() bool { return true }

func (o *OrderOp) clone() Operator {
	return &OrderOp{Requested: o.Requested, RequestedCapabilities: o.RequestedCapabilities}
}

func (o *OrderOp) open(ec *ExecContext, env *Env, p *Plan, n *Node) (cursor.Cursor, error) {
	src, err := p.Execute(ec, env, n.Children[0])
	if err != nil {
		return nil, err
	}
	if !o.shouldExecute {
		return src, nil
	}
	idx := index.NewOrderedIndexFor(n.TableVar, o.order, o.degree)
	return &orderCursor{Cursor: idx.NewCursor(index.FullRange, false), idx: idx, src: src, ec: ec}, nil
}

// orderCursor copies its source into an ordered buffer when opened.
type orderCursor struct {
	*index.Cursor
	idx    *index.OrderedIndex
	src    cursor.Cursor
	ec     *ExecContext
	loaded bool
}

func (c *orderCursor) Open(ctx context.Context) error {
	if c.loaded {
		return c.Cursor.Open(ctx)
	}
	c.loaded = true
	rows, err := cursor.Collect(ctx, c.src)
	if err != nil {
		return err
	}
	for _, r := range rows {
		c.idx.Insert(r)
	}
	c.ec.stats().Materialized += int64(len(rows))
	return c.Cursor.Open(ctx)
}
