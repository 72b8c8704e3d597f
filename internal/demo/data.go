// Package demo holds the sample tables and named plans the command line
// tool binds and runs.
package demo

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// OrdersTable describes Orders: key {ID}, order {Placed, ID}.
func OrdersTable() *catalog.TableVar {
	tv := catalog.NewTableVar("Orders", []*catalog.Column{
		catalog.NewColumn("ID", types.Integer),
		catalog.NewColumn("Customer", types.Integer),
		catalog.NewColumn("Placed", types.Date),
		catalog.NewColumn("Amount", types.Decimal).Nilable(),
		catalog.NewColumn("Status", types.Text).Nilable(),
	}, catalog.NewKey("ID"))
	tv.AddOrder(catalog.NewOrder(
		catalog.NewOrderColumn("Placed", types.Date, true),
		catalog.NewOrderColumn("ID", types.Integer, true),
	))
	return tv
}

var statuses = []string{"open", "shipped", "closed"}

// GenerateOrders returns n Orders rows with IDs 1..n placed from
// 2023-12-01 on. Rows are shuffled with seed; every seventh row has no
// amount and every fifth no status.
func GenerateOrders(n int, seed int64) []*cursor.Row {
	start := time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(seed))
	rows := make([]*cursor.Row, n)
	for i := 0; i < n; i++ {
		id := int64(i + 1)
		amount := types.MustDecimal(fmt.Sprintf("%d.%02d", 10+rng.Intn(490), rng.Intn(100)))
		if id%7 == 0 {
			amount = types.NewNullValue()
		}
		status := types.NewTextValue(statuses[rng.Intn(len(statuses))])
		if id%5 == 0 {
			status = types.NewNullValue()
		}
		rows[i] = cursor.NewRow(
			types.NewIntegerValue(id),
			types.NewIntegerValue(int64(1+rng.Intn(5))),
			types.NewValue(start.AddDate(0, 0, rng.Intn(120))),
			amount,
			status,
		)
	}
	rng.Shuffle(n, func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	return rows
}

// CustomersTable describes Customers: key {ID}, Name nilable.
func CustomersTable() *catalog.TableVar {
	return catalog.NewTableVar("Customers", []*catalog.Column{
		catalog.NewColumn("ID", types.Integer),
		catalog.NewColumn("Name", types.Text).Nilable(),
		catalog.NewColumn("Region", types.Text),
	}, catalog.NewKey("ID"))
}

// Customers returns the five sample customers. Customer 4 has no name.
func Customers() []*cursor.Row {
	row := func(id int64, name any, region string) *cursor.Row {
		n := types.NewNullValue()
		if s, ok := name.(string); ok {
			n = types.NewTextValue(s)
		}
		return cursor.NewRow(types.NewIntegerValue(id), n, types.NewTextValue(region))
	}
	return []*cursor.Row{
		row(1, "Ada", "west"),
		row(2, "Grace", "east"),
		row(3, "X", "east"),
		row(4, nil, "north"),
		row(5, "Edsger", "west"),
	}
}
