package catalog

import (
	"sort"
	"sync"

	"github.com/dshills/quantaplan/internal/errors"
)

// MemoryCatalog is an in-memory implementation of the Catalog interface.
// A single catalog-wide lock guards every structural mutation; callers only
// receive snapshots, so the lock is never held while rows are iterated.
type MemoryCatalog struct {
	mu     sync.RWMutex
	tables map[string]*TableVar
}

// NewMemoryCatalog creates a new in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		tables: make(map[string]*TableVar),
	}
}

// CreateTableVar registers a base table variable.
func (c *MemoryCatalog) CreateTableVar(tv *TableVar) error {
	if err := tv.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tables[tv.Name]; exists {
		return errors.DuplicateTableError(tv.Name)
	}

	stored := tv.Clone()
	stored.IsBase = true
	stored.EnsureKey()
	c.tables[tv.Name] = stored
	return nil
}

// DropTableVar removes a table variable.
func (c *MemoryCatalog) DropTableVar(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tables[name]; !exists {
		return errors.TableNotFoundError(name)
	}
	delete(c.tables, name)
	return nil
}

// ListTableVars returns the sorted table variable names.
func (c *MemoryCatalog) ListTableVars() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveCatalogIdentifier returns a snapshot of the named table variable.
func (c *MemoryCatalog) ResolveCatalogIdentifier(name string) (*TableVar, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tv, exists := c.tables[name]
	if !exists {
		return nil, errors.TableNotFoundError(name)
	}
	return tv.Clone(), nil
}

// AttachOrder registers an order on a base table variable.
func (c *MemoryCatalog) AttachOrder(tableName string, order *Order) (*Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tv, exists := c.tables[tableName]
	if !exists {
		return nil, errors.TableNotFoundError(tableName)
	}
	for _, oc := range order.Columns {
		if tv.IndexOf(oc.Column) < 0 {
			return nil, errors.ColumnNotFoundError(oc.Column, tableName)
		}
	}
	return tv.AddOrder(order), nil
}
