package plan_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/quantaplan/internal/engine"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/plan"
	"github.com/dshills/quantaplan/internal/sql/types"
	"github.com/dshills/quantaplan/internal/testutil"
)

const orderCount = 60

// ordersFixture stores generated Orders and the sample Customers.
func ordersFixture(t *testing.T) (*testutil.Fixture, []*cursor.Row) {
	t.Helper()
	f := testutil.NewFixture(t, engine.DefaultOptions())
	rows := f.CreateOrders(t, orderCount)
	f.CreateCustomers(t)
	return f, rows
}

func restrictOf(t *testing.T, p *plan.Plan) *plan.RestrictOp {
	t.Helper()
	o, ok := p.RootNode().Op.(*plan.RestrictOp)
	require.True(t, ok, "root is %s", p.RootNode())
	return o
}

func idsOf(rows []*cursor.Row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.Values[0].Data.(int64)
	}
	return out
}

func sortedIDs(rows []*cursor.Row) []int64 {
	out := idsOf(rows)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// filterRows returns the rows satisfying keep, sorted by less.
func filterRows(rows []*cursor.Row, keep func(r *cursor.Row) bool, less func(a, b *cursor.Row) bool) []*cursor.Row {
	var out []*cursor.Row
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byID(a, b *cursor.Row) bool {
	return types.Integer.Compare(a.Values[0], b.Values[0]) < 0
}

func byPlacedID(a, b *cursor.Row) bool {
	if c := types.Date.Compare(a.Values[2], b.Values[2]); c != 0 {
		return c < 0
	}
	return byID(a, b)
}

func allCapabilities() plan.Options {
	opts := plan.DefaultOptions()
	opts.RequestedCapabilities = cursor.Navigable | cursor.BackwardsNavigable | cursor.Searchable |
		cursor.Bookmarkable | cursor.Updateable
	return opts
}
