// Package index provides ordered row indexes for table variables.
package index

import (
	"github.com/google/btree"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// DefaultDegree is the btree degree used when none is configured.
const DefaultDegree = 16

// probe sides relative to rows sharing the probed prefix
const (
	sideLow  = -1
	sideRow  = 0
	sideHigh = 1
)

// entry is a stored row or a search probe over a key prefix.
type entry struct {
	row  *cursor.Row
	key  []types.Value
	side int8
	seq  uint64
}

// OrderedIndex keeps rows sorted by an Order. Rows with equal order keys
// keep their insertion order.
type OrderedIndex struct {
	order   *catalog.Order
	columns []int
	tree    *btree.BTreeG[entry]
	nextSeq uint64
}

// NewOrderedIndex creates an index over order. columns maps each order
// column to its position in the rows.
func NewOrderedIndex(order *catalog.Order, columns []int, degree int) *OrderedIndex {
	if degree < 2 {
		degree = DefaultDegree
	}
	idx := &OrderedIndex{order: order, columns: columns}
	idx.tree = btree.NewG[entry](degree, idx.less)
	return idx
}

// NewOrderedIndexFor resolves the order's columns against tv.
func NewOrderedIndexFor(tv *catalog.TableVar, order *catalog.Order, degree int) *OrderedIndex {
	cols := make([]int, len(order.Columns))
	for i, oc := range order.Columns {
		cols[i] = tv.IndexOf(oc.Column)
	}
	return NewOrderedIndex(order, cols, degree)
}

// Order returns the index order.
func (idx *OrderedIndex) Order() *catalog.Order {
	return idx.order
}

// Columns returns the row positions of the order columns.
func (idx *OrderedIndex) Columns() []int {
	return idx.columns
}

// Len returns the number of rows.
func (idx *OrderedIndex) Len() int {
	return idx.tree.Len()
}

// KeyOf projects row onto the order columns.
func (idx *OrderedIndex) KeyOf(row *cursor.Row) []types.Value {
	return row.Project(idx.columns)
}

func (idx *OrderedIndex) value(e entry, i int) types.Value {
	if e.row != nil {
		return e.row.Get(idx.columns[i])
	}
	return e.key[i]
}

func (idx *OrderedIndex) width(e entry) int {
	if e.row != nil {
		return len(idx.columns)
	}
	return len(e.key)
}

func (idx *OrderedIndex) less(a, b entry) bool {
	n := idx.width(a)
	if w := idx.width(b); w < n {
		n = w
	}
	for i := 0; i < n; i++ {
		if c := idx.order.Columns[i].Compare(idx.value(a, i), idx.value(b, i)); c != 0 {
			return c < 0
		}
	}
	if a.side != b.side {
		return a.side < b.side
	}
	return a.seq < b.seq
}

func (idx *OrderedIndex) probe(key []types.Value, side int8) entry {
	return entry{key: key, side: side}
}

// Insert adds row.
func (idx *OrderedIndex) Insert(row *cursor.Row) {
	idx.nextSeq++
	idx.tree.ReplaceOrInsert(entry{row: row, seq: idx.nextSeq})
}

// Replace swaps the stored row old for row. A row whose order key is
// unchanged keeps its position among rows with equal keys.
func (idx *OrderedIndex) Replace(old, row *cursor.Row) bool {
	e, ok := idx.find(old)
	if !ok {
		return false
	}
	idx.tree.Delete(e)
	if idx.order.CompareValues(idx.KeyOf(old), idx.KeyOf(row)) != 0 {
		idx.nextSeq++
		e.seq = idx.nextSeq
	}
	idx.tree.ReplaceOrInsert(entry{row: row, seq: e.seq})
	return true
}

// Remove deletes the stored row whose values equal row.
func (idx *OrderedIndex) Remove(row *cursor.Row) bool {
	e, ok := idx.find(row)
	if !ok {
		return false
	}
	_, removed := idx.tree.Delete(e)
	return removed
}

func (idx *OrderedIndex) find(row *cursor.Row) (entry, bool) {
	var found entry
	var ok bool
	idx.tree.AscendGreaterOrEqual(idx.probe(idx.KeyOf(row), sideLow), func(e entry) bool {
		if idx.comparePrefix(e, idx.KeyOf(row)) != 0 {
			return false
		}
		if rowsEqual(e.row, row) {
			found, ok = e, true
			return false
		}
		return true
	})
	return found, ok
}

// ContainsKey reports whether some row's order key starts with key.
func (idx *OrderedIndex) ContainsKey(key []types.Value) bool {
	var ok bool
	idx.tree.AscendGreaterOrEqual(idx.probe(key, sideLow), func(e entry) bool {
		ok = idx.comparePrefix(e, key) == 0
		return false
	})
	return ok
}

// Rows returns every row in index order.
func (idx *OrderedIndex) Rows() []*cursor.Row {
	rows := make([]*cursor.Row, 0, idx.tree.Len())
	idx.tree.Ascend(func(e entry) bool {
		rows = append(rows, e.row)
		return true
	})
	return rows
}

func (idx *OrderedIndex) comparePrefix(e entry, key []types.Value) int {
	for i := range key {
		if c := idx.order.Columns[i].Compare(idx.value(e, i), key[i]); c != 0 {
			return c
		}
	}
	return 0
}

func rowsEqual(a, b *cursor.Row) bool {
	if len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if types.CompareValues(a.Values[i], b.Values[i]) != 0 {
			return false
		}
	}
	return true
}
