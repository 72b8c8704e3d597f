package index

import (
	"strings"
	"sync"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// Manager stores the rows of one table variable and maintains an ordered
// index per key and per requested order.
type Manager struct {
	mu      sync.RWMutex
	tv      *catalog.TableVar
	degree  int
	keys    []*OrderedIndex // one per table key, parallel to tv.Keys
	indexes []*OrderedIndex // key indexes first, then secondary orders
}

// NewManager creates an empty table store for tv.
func NewManager(tv *catalog.TableVar, degree int) *Manager {
	m := &Manager{tv: tv, degree: degree}
	for _, k := range tv.Keys {
		idx := NewOrderedIndexFor(tv, tv.OrderForKey(k), degree)
		m.keys = append(m.keys, idx)
		m.indexes = append(m.indexes, idx)
	}
	for _, o := range tv.Orders {
		m.ensureIndex(o)
	}
	return m
}

// TableVar returns the stored table variable.
func (m *Manager) TableVar() *catalog.TableVar {
	return m.tv
}

// Clustered returns the index of the first key.
func (m *Manager) Clustered() *OrderedIndex {
	return m.keys[0]
}

// Len returns the row count.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.keys[0].Len()
}

// Index returns an index equivalent to order, building it on demand.
// The reverse flag reports that the index must be traversed backwards.
func (m *Manager) Index(order *catalog.Order) (idx *OrderedIndex, reverse bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, idx := range m.indexes {
		if idx.Order().Equivalent(order) {
			return idx, false
		}
		if idx.Order().Reverse().Equivalent(order) {
			return idx, true
		}
	}
	return m.ensureIndex(order), false
}

// FindIndex returns an existing index equivalent to order without building one.
func (m *Manager) FindIndex(order *catalog.Order) (idx *OrderedIndex, reverse bool, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, idx := range m.indexes {
		if idx.Order().Equivalent(order) {
			return idx, false, true
		}
		if idx.Order().Reverse().Equivalent(order) {
			return idx, true, true
		}
	}
	return nil, false, false
}

func (m *Manager) ensureIndex(order *catalog.Order) *OrderedIndex {
	idx := NewOrderedIndexFor(m.tv, order, m.degree)
	if len(m.keys) > 0 {
		for _, row := range m.keys[0].Rows() {
			idx.Insert(row)
		}
	}
	m.indexes = append(m.indexes, idx)
	return idx
}

// Insert validates row against the table variable and adds it to every index.
func (m *Manager) Insert(row *cursor.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validate(row); err != nil {
		return err
	}
	if err := m.checkKeys(row, nil); err != nil {
		return err
	}
	for _, idx := range m.indexes {
		idx.Insert(row)
	}
	return nil
}

// Update replaces old with row in every index.
func (m *Manager) Update(old, row *cursor.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.validate(row); err != nil {
		return err
	}
	if _, ok := m.keys[0].find(old); !ok {
		return errors.RowNotFoundError(m.tv.Name)
	}
	if err := m.checkKeys(row, old); err != nil {
		return err
	}
	for _, idx := range m.indexes {
		idx.Replace(old, row)
	}
	return nil
}

// Delete removes row from every index.
func (m *Manager) Delete(row *cursor.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[0].find(row); !ok {
		return errors.RowNotFoundError(m.tv.Name)
	}
	for _, idx := range m.indexes {
		idx.Remove(row)
	}
	return nil
}

func (m *Manager) validate(row *cursor.Row) error {
	if len(row.Values) != len(m.tv.Columns) {
		return errors.Newf(errors.DataException, "row has %d values, %s has %d columns",
			len(row.Values), m.tv.Name, len(m.tv.Columns))
	}
	for i, col := range m.tv.Columns {
		v := row.Values[i]
		if v.IsNull() {
			if !col.IsNilable {
				return errors.NotNullViolationError(col.Name, m.tv.Name)
			}
			continue
		}
		if !col.DataType.IsValid(v) {
			return errors.TypeMismatchError(col.DataType.Name(), v.Type().Name(), "column "+col.Name)
		}
	}
	return nil
}

// checkKeys rejects row when it duplicates another row on some key. The
// row being replaced, if any, does not count.
func (m *Manager) checkKeys(row, replacing *cursor.Row) error {
	for i, k := range m.tv.Keys {
		idx := m.keys[i]
		key := idx.KeyOf(row)
		if k.IsSparse && anyNull(key) {
			continue
		}
		if !idx.ContainsKey(key) {
			continue
		}
		if replacing != nil && idx.comparePrefixValues(idx.KeyOf(replacing), key) == 0 {
			continue
		}
		return errors.DuplicateKeyError(m.tv.Name, formatKey(k, key))
	}
	return nil
}

func (idx *OrderedIndex) comparePrefixValues(a, b []types.Value) int {
	return idx.order.CompareValues(a, b)
}

func anyNull(values []types.Value) bool {
	for _, v := range values {
		if v.IsNull() {
			return true
		}
	}
	return false
}

func formatKey(k *catalog.Key, values []types.Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = k.Columns[i] + "=" + v.String()
	}
	return strings.Join(parts, ", ")
}
