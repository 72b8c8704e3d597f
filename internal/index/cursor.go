package index

import (
	"context"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

type position int

const (
	posBOF position = iota
	posOn
	posBefore // Next returns cur
	posEOF
)

// Cursor traverses a range of an OrderedIndex in either direction.
// Navigation re-seeks from the current entry, so the index may be modified
// while the cursor is open.
type Cursor struct {
	idx     *OrderedIndex
	rng     Range
	reverse bool
	state   position
	cur     entry
	open    bool
}

// NewCursor creates a cursor over rng. A reverse cursor returns rows in
// the reverse of the index order.
func (idx *OrderedIndex) NewCursor(rng Range, reverse bool) *Cursor {
	return &Cursor{idx: idx, rng: rng, reverse: reverse}
}

// Order returns the order rows are returned in.
func (c *Cursor) Order() *catalog.Order {
	if c.reverse {
		return c.idx.order.Reverse()
	}
	return c.idx.order
}

func (c *Cursor) Open(ctx context.Context) error {
	c.open = true
	c.state = posBOF
	return nil
}

func (c *Cursor) Capabilities() cursor.Capability {
	return cursor.Navigable | cursor.BackwardsNavigable | cursor.Bookmarkable |
		cursor.Searchable | cursor.Countable
}

func (c *Cursor) first() (entry, bool) {
	if c.reverse {
		return c.idx.lastFrom(c.rng, nil)
	}
	return c.idx.firstFrom(c.rng, nil)
}

func (c *Cursor) last() (entry, bool) {
	if c.reverse {
		return c.idx.firstFrom(c.rng, nil)
	}
	return c.idx.lastFrom(c.rng, nil)
}

func (c *Cursor) forward(e entry) (entry, bool) {
	if c.reverse {
		return c.idx.before(c.rng, e)
	}
	return c.idx.after(c.rng, e)
}

func (c *Cursor) backward(e entry) (entry, bool) {
	if c.reverse {
		return c.idx.after(c.rng, e)
	}
	return c.idx.before(c.rng, e)
}

func (c *Cursor) checkOpen() error {
	if !c.open {
		return errors.CursorStateError("cursor is not open")
	}
	return nil
}

func (c *Cursor) Next() (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	var e entry
	var ok bool
	switch c.state {
	case posBOF:
		e, ok = c.first()
	case posBefore:
		e, ok = c.cur, true
	case posOn:
		e, ok = c.forward(c.cur)
	case posEOF:
		return false, nil
	}
	if !ok {
		c.state = posEOF
		return false, nil
	}
	c.state, c.cur = posOn, e
	return true, nil
}

func (c *Cursor) Prior() (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	var e entry
	var ok bool
	switch c.state {
	case posEOF:
		e, ok = c.last()
	case posBefore, posOn:
		e, ok = c.backward(c.cur)
	case posBOF:
		return false, nil
	}
	if !ok {
		c.state = posBOF
		return false, nil
	}
	c.state, c.cur = posOn, e
	return true, nil
}

func (c *Cursor) First() error {
	c.state = posBOF
	return nil
}

func (c *Cursor) Last() error {
	c.state = posEOF
	return nil
}

func (c *Cursor) Reset() error {
	c.state = posBOF
	return nil
}

func (c *Cursor) Select() (*cursor.Row, error) {
	if c.state != posOn {
		return nil, errors.CursorStateError("cursor is not positioned on a row")
	}
	return c.cur.row, nil
}

// FindKey positions on the first row, in cursor order, whose key starts
// with key.
func (c *Cursor) FindKey(key []types.Value) (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	var e entry
	var ok bool
	if c.reverse {
		pivot := c.idx.probe(key, sideHigh)
		e, ok = c.idx.lastFrom(c.rng, &pivot)
	} else {
		pivot := c.idx.probe(key, sideLow)
		e, ok = c.idx.firstFrom(c.rng, &pivot)
	}
	if !ok || c.idx.comparePrefix(e, key) != 0 {
		return false, nil
	}
	c.state, c.cur = posOn, e
	return true, nil
}

// Seek positions before the first row, in cursor order, at or after key.
func (c *Cursor) Seek(key []types.Value, inclusive bool) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	var e entry
	var ok bool
	if c.reverse {
		side := int8(sideLow)
		if inclusive {
			side = sideHigh
		}
		pivot := c.idx.probe(key, side)
		e, ok = c.idx.lastFrom(c.rng, &pivot)
	} else {
		side := int8(sideHigh)
		if inclusive {
			side = sideLow
		}
		pivot := c.idx.probe(key, side)
		e, ok = c.idx.firstFrom(c.rng, &pivot)
	}
	if !ok {
		c.state = posEOF
		return nil
	}
	c.state, c.cur = posBefore, e
	return nil
}

func (c *Cursor) GetBookmark() (cursor.Bookmark, error) {
	if c.state != posOn {
		return nil, errors.CursorStateError("cursor is not positioned on a row")
	}
	return c.cur, nil
}

func (c *Cursor) GotoBookmark(b cursor.Bookmark) (bool, error) {
	e, ok := b.(entry)
	if !ok || !c.idx.tree.Has(e) || !c.idx.inRange(c.rng, e) {
		return false, nil
	}
	c.state, c.cur = posOn, e
	return true, nil
}

func (c *Cursor) Count() (int, error) {
	n := 0
	e, ok := c.idx.firstFrom(c.rng, nil)
	for ok {
		n++
		e, ok = c.idx.after(c.rng, e)
	}
	return n, nil
}

func (c *Cursor) Close() error {
	c.open = false
	return nil
}
