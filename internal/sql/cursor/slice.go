package cursor

import (
	"context"

	"github.com/dshills/quantaplan/internal/errors"
)

// SliceCursor iterates an in-memory list of rows in both directions.
type SliceCursor struct {
	rows []*Row
	pos  int // -1 before first, len(rows) after last
	open bool
}

// NewSliceCursor creates a cursor over rows.
func NewSliceCursor(rows []*Row) *SliceCursor {
	return &SliceCursor{rows: rows, pos: -1}
}

func (c *SliceCursor) Open(ctx context.Context) error {
	c.open = true
	c.pos = -1
	return nil
}

func (c *SliceCursor) Next() (bool, error) {
	if !c.open {
		return false, errors.CursorStateError("cursor is not open")
	}
	if c.pos < len(c.rows) {
		c.pos++
	}
	return c.pos < len(c.rows), nil
}

func (c *SliceCursor) Prior() (bool, error) {
	if !c.open {
		return false, errors.CursorStateError("cursor is not open")
	}
	if c.pos >= 0 {
		c.pos--
	}
	return c.pos >= 0, nil
}

func (c *SliceCursor) First() error {
	c.pos = -1
	return nil
}

func (c *SliceCursor) Last() error {
	c.pos = len(c.rows)
	return nil
}

func (c *SliceCursor) Select() (*Row, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, errors.CursorStateError("cursor is not positioned on a row")
	}
	return c.rows[c.pos], nil
}

func (c *SliceCursor) Reset() error {
	c.pos = -1
	return nil
}

func (c *SliceCursor) Count() (int, error) {
	return len(c.rows), nil
}

func (c *SliceCursor) Close() error {
	c.open = false
	return nil
}

func (c *SliceCursor) Capabilities() Capability {
	return Navigable | BackwardsNavigable | Countable
}
