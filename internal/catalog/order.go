package catalog

import (
	"strings"

	"github.com/dshills/quantaplan/internal/sql/types"
)

// Sort is a named total-order comparison over a data type.
type Sort struct {
	Name    string
	Compare types.Comparator
}

// DefaultSort returns the natural sort of a data type.
func DefaultSort(dt types.DataType) *Sort {
	return &Sort{Name: dt.Name(), Compare: dt.Compare}
}

// OrderColumn is one column of an Order.
type OrderColumn struct {
	Column      string
	Ascending   bool
	IncludeNils bool
	Sort        *Sort
}

// NewOrderColumn creates an order column that includes nils and uses the
// natural sort of dt.
func NewOrderColumn(column string, dt types.DataType, ascending bool) *OrderColumn {
	return &OrderColumn{
		Column:      column,
		Ascending:   ascending,
		IncludeNils: true,
		Sort:        DefaultSort(dt),
	}
}

// Equivalent reports whether two order columns order rows the same way.
func (oc *OrderColumn) Equivalent(other *OrderColumn) bool {
	return oc.Column == other.Column &&
		oc.Ascending == other.Ascending &&
		oc.IncludeNils == other.IncludeNils &&
		oc.Sort.Name == other.Sort.Name
}

// Compare compares two values of the column in this column's direction.
// Nil sorts below every value before the direction is applied.
func (oc *OrderColumn) Compare(a, b types.Value) int {
	var c int
	switch {
	case a.Null && b.Null:
		c = 0
	case a.Null:
		c = -1
	case b.Null:
		c = 1
	default:
		c = oc.Sort.Compare(a, b)
	}
	if !oc.Ascending {
		return -c
	}
	return c
}

func (oc *OrderColumn) String() string {
	s := oc.Column
	if oc.Ascending {
		s += " asc"
	} else {
		s += " desc"
	}
	if !oc.IncludeNils {
		s += " exclude nil"
	}
	return s
}

// Order is an ordered list of order columns.
type Order struct {
	Columns []*OrderColumn
}

// NewOrder creates an order from its columns.
func NewOrder(columns ...*OrderColumn) *Order {
	return &Order{Columns: columns}
}

// Clone copies the column list.
func (o *Order) Clone() *Order {
	return &Order{Columns: append([]*OrderColumn(nil), o.Columns...)}
}

// Reverse returns the order with every column's direction flipped.
func (o *Order) Reverse() *Order {
	r := &Order{Columns: make([]*OrderColumn, len(o.Columns))}
	for i, oc := range o.Columns {
		c := *oc
		c.Ascending = !oc.Ascending
		r.Columns[i] = &c
	}
	return r
}

// Equivalent reports whether both orders sort rows identically.
func (o *Order) Equivalent(other *Order) bool {
	if other == nil || len(o.Columns) != len(other.Columns) {
		return false
	}
	for i, oc := range o.Columns {
		if !oc.Equivalent(other.Columns[i]) {
			return false
		}
	}
	return true
}

// HasColumn reports whether the order contains the named column.
func (o *Order) HasColumn(name string) bool {
	return o.IndexOf(name) >= 0
}

// IndexOf returns the position of the named column or -1.
func (o *Order) IndexOf(name string) int {
	for i, oc := range o.Columns {
		if oc.Column == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the order's column names.
func (o *Order) ColumnNames() []string {
	names := make([]string, len(o.Columns))
	for i, oc := range o.Columns {
		names[i] = oc.Column
	}
	return names
}

// CompareValues compares two rows projected onto the order columns.
// Shorter inputs compare on their common prefix.
func (o *Order) CompareValues(a, b []types.Value) int {
	for i, oc := range o.Columns {
		if i >= len(a) || i >= len(b) {
			break
		}
		if c := oc.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func (o *Order) String() string {
	parts := make([]string, len(o.Columns))
	for i, oc := range o.Columns {
		parts[i] = oc.String()
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}
