// Package cursor defines the row and cursor contract shared by plan nodes
// and storage devices.
package cursor

import (
	"context"
	"strings"

	"github.com/dshills/quantaplan/internal/sql/types"
)

// Row is a tuple of values positioned by column.
type Row struct {
	Values []types.Value
}

// NewRow creates a row from values.
func NewRow(values ...types.Value) *Row {
	return &Row{Values: values}
}

// Get returns the value at index, or nil when out of range.
func (r *Row) Get(index int) types.Value {
	if index < 0 || index >= len(r.Values) {
		return types.NewNullValue()
	}
	return r.Values[index]
}

// Clone copies the row.
func (r *Row) Clone() *Row {
	return &Row{Values: append([]types.Value(nil), r.Values...)}
}

// Project returns the values at the given positions.
func (r *Row) Project(indexes []int) []types.Value {
	out := make([]types.Value, len(indexes))
	for i, idx := range indexes {
		out[i] = r.Get(idx)
	}
	return out
}

func (r *Row) String() string {
	parts := make([]string, len(r.Values))
	for i, v := range r.Values {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Cursor iterates the rows of a table-valued result. Cursors start
// positioned before the first row.
type Cursor interface {
	// Open prepares the cursor and any source cursors.
	Open(ctx context.Context) error

	// Next moves to the next row, returning false past the last row.
	Next() (bool, error)

	// Select returns the current row.
	Select() (*Row, error)

	// Reset repositions the cursor before the first row.
	Reset() error

	// Close releases the cursor and its sources.
	Close() error

	// Capabilities returns the capabilities the cursor offers.
	Capabilities() Capability
}

// BackwardsCursor navigates in both directions.
type BackwardsCursor interface {
	Cursor
	// Prior moves to the previous row, returning false before the first row.
	Prior() (bool, error)
	// First positions before the first row.
	First() error
	// Last positions after the last row.
	Last() error
}

// SearchableCursor locates rows by their order key. Keys hold values for a
// leading prefix of the cursor's order columns.
type SearchableCursor interface {
	Cursor
	// FindKey positions on the first row whose order key starts with key.
	// The position is unchanged when no row matches.
	FindKey(key []types.Value) (bool, error)
	// Seek positions before the first row at (inclusive) or after key, so
	// that the next call to Next returns it.
	Seek(key []types.Value, inclusive bool) error
}

// Bookmark is an opaque cursor position.
type Bookmark interface{}

// BookmarkableCursor saves and restores positions.
type BookmarkableCursor interface {
	Cursor
	GetBookmark() (Bookmark, error)
	GotoBookmark(b Bookmark) (bool, error)
}

// CountableCursor reports its row count without consuming the cursor.
type CountableCursor interface {
	Cursor
	Count() (int, error)
}

// UpdateableCursor accepts modifications through the cursor.
type UpdateableCursor interface {
	Cursor
	// Insert adds row to the underlying table.
	Insert(row *Row) error
	// Update replaces the current row.
	Update(row *Row) error
	// Delete removes the current row.
	Delete() error
}

// Collect opens c, drains it and closes it.
func Collect(ctx context.Context, c Cursor) (rows []*Row, err error) {
	if err := c.Open(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()
	return Drain(c)
}

// Drain reads the remaining rows of an open cursor.
func Drain(c Cursor) ([]*Row, error) {
	var rows []*Row
	for {
		ok, err := c.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		row, err := c.Select()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}
