package catalog

import (
	"fmt"
	"strings"

	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// Catalog manages table variable metadata: columns, keys, orders and references.
type Catalog interface {
	// ResolveCatalogIdentifier returns a snapshot of the named table variable.
	ResolveCatalogIdentifier(name string) (*TableVar, error)

	// Table variable operations
	CreateTableVar(tv *TableVar) error
	DropTableVar(name string) error
	ListTableVars() []string

	// AttachOrder registers order on the named table variable and returns
	// the registered order, which is an existing equivalent one if present.
	AttachOrder(tableName string, order *Order) (*Order, error)
}

// Column represents a column of a table variable.
type Column struct {
	Name       string
	DataType   types.DataType
	IsNilable  bool
	Default    types.Value
	HasDefault bool
}

// NewColumn creates a non-nilable column.
func NewColumn(name string, dt types.DataType) *Column {
	return &Column{Name: name, DataType: dt}
}

// Nilable marks the column as accepting nil.
func (c *Column) Nilable() *Column {
	c.IsNilable = true
	return c
}

// WithDefault sets the column default.
func (c *Column) WithDefault(v types.Value) *Column {
	c.Default = v
	c.HasDefault = true
	return c
}

func (c *Column) String() string {
	s := c.Name + " : " + c.DataType.Name()
	if c.IsNilable {
		s += " nil"
	}
	return s
}

// Key is a set of columns asserted unique. A sparse key is not required to
// be unique when any of its columns is nil.
type Key struct {
	Columns  []string
	IsSparse bool
}

// NewKey creates a non-sparse key.
func NewKey(columns ...string) *Key {
	return &Key{Columns: columns}
}

// Contains reports whether name is a key column.
func (k *Key) Contains(name string) bool {
	for _, c := range k.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Equivalent reports whether both keys name the same column set.
func (k *Key) Equivalent(other *Key) bool {
	if len(k.Columns) != len(other.Columns) || k.IsSparse != other.IsSparse {
		return false
	}
	for _, c := range other.Columns {
		if !k.Contains(c) {
			return false
		}
	}
	return true
}

// EqualsColumnSet reports whether the key columns are exactly cols.
func (k *Key) EqualsColumnSet(cols []string) bool {
	if len(k.Columns) != len(cols) {
		return false
	}
	for _, c := range cols {
		if !k.Contains(c) {
			return false
		}
	}
	return true
}

func (k *Key) String() string {
	s := "key { " + strings.Join(k.Columns, ", ") + " }"
	if k.IsSparse {
		s = "sparse " + s
	}
	return s
}

// Reference describes a foreign reference from this table variable.
type Reference struct {
	Name          string
	SourceColumns []string
	TargetTable   string
	TargetColumns []string
}

func (r *Reference) String() string {
	return fmt.Sprintf("reference %s { %s } %s { %s }", r.Name,
		strings.Join(r.SourceColumns, ", "), r.TargetTable, strings.Join(r.TargetColumns, ", "))
}

// TableVar describes a table-shaped value. Base table variables live in the
// catalog; derived ones are built by plan nodes.
type TableVar struct {
	Name       string
	Columns    []*Column
	Keys       []*Key
	Orders     []*Order
	References []*Reference
	IsBase     bool
}

// NewTableVar creates a table variable. A table variable without keys gets
// the key of all its columns.
func NewTableVar(name string, columns []*Column, keys ...*Key) *TableVar {
	tv := &TableVar{Name: name, Columns: columns}
	for _, k := range keys {
		tv.AddKey(k)
	}
	tv.EnsureKey()
	return tv
}

// EnsureKey adds the all-columns key when no key is declared.
func (tv *TableVar) EnsureKey() {
	if len(tv.Keys) > 0 {
		return
	}
	names := make([]string, len(tv.Columns))
	for i, c := range tv.Columns {
		names[i] = c.Name
	}
	tv.Keys = append(tv.Keys, NewKey(names...))
}

// IndexOf returns the position of the named column or -1.
func (tv *TableVar) IndexOf(name string) int {
	for i, c := range tv.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column or nil.
func (tv *TableVar) Column(name string) *Column {
	if i := tv.IndexOf(name); i >= 0 {
		return tv.Columns[i]
	}
	return nil
}

// ColumnNames returns the column names in order.
func (tv *TableVar) ColumnNames() []string {
	names := make([]string, len(tv.Columns))
	for i, c := range tv.Columns {
		names[i] = c.Name
	}
	return names
}

// Clone copies the table variable. Columns, keys and orders are shared
// by pointer; the slices are not.
func (tv *TableVar) Clone() *TableVar {
	return &TableVar{
		Name:       tv.Name,
		Columns:    append([]*Column(nil), tv.Columns...),
		Keys:       append([]*Key(nil), tv.Keys...),
		Orders:     append([]*Order(nil), tv.Orders...),
		References: append([]*Reference(nil), tv.References...),
		IsBase:     tv.IsBase,
	}
}

// ClusteredKey returns the first key.
func (tv *TableVar) ClusteredKey() *Key {
	if len(tv.Keys) == 0 {
		return nil
	}
	return tv.Keys[0]
}

// AddKey adds key unless an equivalent key exists and returns the key
// held by the table variable.
func (tv *TableVar) AddKey(key *Key) *Key {
	for _, k := range tv.Keys {
		if k.Equivalent(key) {
			return k
		}
	}
	tv.Keys = append(tv.Keys, key)
	return key
}

// AddOrder adds order unless an equivalent order exists and returns the
// order held by the table variable.
func (tv *TableVar) AddOrder(order *Order) *Order {
	if existing := tv.FindOrder(order); existing != nil {
		return existing
	}
	tv.Orders = append(tv.Orders, order)
	return order
}

// FindOrder returns the registered order equivalent to order, or nil.
func (tv *TableVar) FindOrder(order *Order) *Order {
	for _, o := range tv.Orders {
		if o.Equivalent(order) {
			return o
		}
	}
	return nil
}

// AddReference adds a reference.
func (tv *TableVar) AddReference(ref *Reference) {
	tv.References = append(tv.References, ref)
}

// IsOrderUnique reports whether order distinguishes every row: some key is
// contained in its columns. Sparse keys qualify only when none of their
// columns is nilable.
func (tv *TableVar) IsOrderUnique(order *Order) bool {
	for _, k := range tv.Keys {
		if k.IsSparse && tv.anyNilable(k.Columns) {
			continue
		}
		covered := true
		for _, c := range k.Columns {
			if !order.HasColumn(c) {
				covered = false
				break
			}
		}
		if covered {
			return true
		}
	}
	return false
}

// EnsureOrderUnique returns order extended with the clustered key columns it
// lacks, ascending with nils included. A unique order is returned as is.
func (tv *TableVar) EnsureOrderUnique(order *Order) *Order {
	if tv.IsOrderUnique(order) {
		return order
	}
	result := order.Clone()
	for _, c := range tv.ClusteredKey().Columns {
		if !result.HasColumn(c) {
			result.Columns = append(result.Columns, NewOrderColumn(c, tv.Column(c).DataType, true))
		}
	}
	return result
}

// OrderForKey returns the ascending order over the key columns.
func (tv *TableVar) OrderForKey(key *Key) *Order {
	order := &Order{}
	for _, c := range key.Columns {
		order.Columns = append(order.Columns, NewOrderColumn(c, tv.Column(c).DataType, true))
	}
	return order
}

func (tv *TableVar) anyNilable(cols []string) bool {
	for _, c := range cols {
		if col := tv.Column(c); col != nil && col.IsNilable {
			return true
		}
	}
	return false
}

// Validate checks that keys and orders name existing columns.
func (tv *TableVar) Validate() error {
	for _, k := range tv.Keys {
		for _, c := range k.Columns {
			if tv.IndexOf(c) < 0 {
				return errors.ColumnNotFoundError(c, tv.Name)
			}
		}
	}
	for _, o := range tv.Orders {
		for _, oc := range o.Columns {
			if tv.IndexOf(oc.Column) < 0 {
				return errors.ColumnNotFoundError(oc.Column, tv.Name)
			}
		}
	}
	return nil
}

func (tv *TableVar) String() string {
	cols := make([]string, len(tv.Columns))
	for i, c := range tv.Columns {
		cols[i] = c.String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s { %s }", tv.Name, strings.Join(cols, ", "))
	for _, k := range tv.Keys {
		b.WriteString(" " + k.String())
	}
	for _, o := range tv.Orders {
		b.WriteString(" order " + o.String())
	}
	return b.String()
}
