package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/demo"
	"github.com/dshills/quantaplan/internal/engine"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/plan"
)

// Fixture is a catalog whose tables are stored in a memory engine.
type Fixture struct {
	Catalog *catalog.MemoryCatalog
	Engine  *engine.MemoryEngine
}

// NewFixture creates an empty fixture.
func NewFixture(t testing.TB, opts engine.Options) *Fixture {
	t.Helper()
	return &Fixture{
		Catalog: catalog.NewMemoryCatalog(),
		Engine:  engine.NewMemoryEngine(opts, nil),
	}
}

// Binder returns a binder over the fixture's tables.
func (f *Fixture) Binder(opts plan.Options) *plan.Binder {
	return plan.NewBinder(f.Catalog, f.Engine.Resolver(), nil, opts)
}

// Bind binds p with the default options and fails the test on error.
func (f *Fixture) Bind(t testing.TB, p *plan.Plan) *plan.Plan {
	t.Helper()
	return f.BindWith(t, p, plan.DefaultOptions())
}

// BindWith binds p with opts and fails the test on error.
func (f *Fixture) BindWith(t testing.TB, p *plan.Plan, opts plan.Options) *plan.Plan {
	t.Helper()
	require.NoError(t, f.Binder(opts).Bind(context.Background(), p))
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// CreateTable stores tv with rows.
func (f *Fixture) CreateTable(t testing.TB, tv *catalog.TableVar, rows ...*cursor.Row) {
	t.Helper()
	require.NoError(t, f.Engine.CreateTable(f.Catalog, tv))
	require.NoError(t, f.Engine.Insert(tv.Name, rows...))
}

// OrdersTable describes Orders: key {ID}, order {Placed, ID}.
func OrdersTable() *catalog.TableVar { return demo.OrdersTable() }

// GenerateOrders returns n shuffled Orders rows; see demo.GenerateOrders.
func GenerateOrders(n int, seed int64) []*cursor.Row { return demo.GenerateOrders(n, seed) }

// CreateOrders stores n generated Orders rows.
func (f *Fixture) CreateOrders(t testing.TB, n int) []*cursor.Row {
	t.Helper()
	rows := GenerateOrders(n, 42)
	f.CreateTable(t, OrdersTable(), rows...)
	return rows
}

// CustomersTable describes Customers: key {ID}, Name nilable.
func CustomersTable() *catalog.TableVar { return demo.CustomersTable() }

// CreateCustomers stores the sample Customers. Customer 4 has no name.
func (f *Fixture) CreateCustomers(t testing.TB) {
	t.Helper()
	f.CreateTable(t, CustomersTable(), demo.Customers()...)
}
