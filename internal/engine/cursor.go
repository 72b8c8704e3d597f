package engine

import (
	"context"

	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/index"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/plan"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// tableCursor reads a table through one of its indexes and writes through
// the table's index manager.
type tableCursor struct {
	*index.Cursor
	store *index.Manager
}

var _ cursor.UpdateableCursor = (*tableCursor)(nil)

func (c *tableCursor) Capabilities() cursor.Capability {
	return c.Cursor.Capabilities() | cursor.Updateable
}

func (c *tableCursor) Insert(row *cursor.Row) error {
	return c.store.Insert(row)
}

func (c *tableCursor) Update(row *cursor.Row) error {
	old, err := c.Select()
	if err != nil {
		return err
	}
	return c.store.Update(old, row)
}

func (c *tableCursor) Delete() error {
	old, err := c.Select()
	if err != nil {
		return err
	}
	return c.store.Delete(old)
}

// filterCursor evaluates a restriction natively. Rows failing the
// condition are skipped in both directions and rejected on write.
type filterCursor struct {
	*tableCursor
	ec       *plan.ExecContext
	env      *plan.Env
	plan     *plan.Plan
	restrict *plan.Node
	cond     plan.NodeID
}

func (c *filterCursor) Capabilities() cursor.Capability {
	return c.tableCursor.Capabilities() &^ cursor.Countable
}

func (c *filterCursor) Open(ctx context.Context) error {
	if c.ec.Stats != nil {
		c.ec.Stats.Filters++
	}
	return c.tableCursor.Open(ctx)
}

func (c *filterCursor) matches(row *cursor.Row) (bool, error) {
	if c.ec.Stats != nil {
		c.ec.Stats.RowsRead++
	}
	v, err := c.plan.EvalRow(c.ec, c.env, c.cond, row, false)
	if err != nil {
		return false, err
	}
	if v.Null {
		return false, nil
	}
	return v.AsBool()
}

// skip moves with step until a matching row or the end.
func (c *filterCursor) skip(step func() (bool, error)) (bool, error) {
	for {
		ok, err := step()
		if err != nil || !ok {
			return false, err
		}
		row, err := c.tableCursor.Select()
		if err != nil {
			return false, err
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

func (c *filterCursor) Next() (bool, error) {
	return c.skip(c.tableCursor.Next)
}

func (c *filterCursor) Prior() (bool, error) {
	return c.skip(c.tableCursor.Prior)
}

// FindKey positions on the first matching row with the key prefix.
func (c *filterCursor) FindKey(key []types.Value) (bool, error) {
	bm, _ := c.tableCursor.GetBookmark()
	found, err := c.tableCursor.FindKey(key)
	if err != nil || !found {
		return false, err
	}
	for {
		row, err := c.tableCursor.Select()
		if err != nil {
			return false, err
		}
		match, err := c.matches(row)
		if err != nil {
			return false, err
		}
		if match {
			return true, nil
		}
		ok, err := c.tableCursor.Next()
		if err != nil {
			return false, err
		}
		if ok {
			row, err = c.tableCursor.Select()
			if err != nil {
				return false, err
			}
		}
		if !ok || c.Order().CompareValues(keyPrefix(c, row, len(key)), key) != 0 {
			c.restore(bm)
			return false, nil
		}
	}
}

func (c *filterCursor) restore(bm cursor.Bookmark) {
	if bm == nil {
		_ = c.tableCursor.Reset()
		return
	}
	_, _ = c.tableCursor.GotoBookmark(bm)
}

func (c *filterCursor) Count() (int, error) {
	return 0, errors.CapabilityNotSupportedError("countable")
}

func (c *filterCursor) check(row *cursor.Row) error {
	match, err := c.matches(row)
	if err != nil {
		return err
	}
	if !match {
		return errors.CheckViolationError(c.store.TableVar().Name,
			c.plan.EmitStatement(c.cond, plan.EmitDisplay))
	}
	return nil
}

func (c *filterCursor) Insert(row *cursor.Row) error {
	if err := c.check(row); err != nil {
		return err
	}
	return c.tableCursor.Insert(row)
}

func (c *filterCursor) Update(row *cursor.Row) error {
	if err := c.check(row); err != nil {
		return err
	}
	return c.tableCursor.Update(row)
}

// keyPrefix projects the first n order columns of row.
func keyPrefix(c *filterCursor, row *cursor.Row, n int) []types.Value {
	tv := c.store.TableVar()
	order := c.Order()
	k := make([]types.Value, n)
	for i := 0; i < n; i++ {
		k[i] = row.Values[tv.IndexOf(order.Columns[i].Column)]
	}
	return k
}
