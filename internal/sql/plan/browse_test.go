package plan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/plan"
	"github.com/dshills/quantaplan/internal/sql/types"
	"github.com/dshills/quantaplan/internal/testutil"
)

func openBrowse(t *testing.T, p *plan.Plan) (*plan.ExecContext, cursor.Cursor) {
	t.Helper()
	ec := plan.NewExecContext(context.Background(), nil)
	c, err := p.Open(ec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return ec, c
}

func backwards(t *testing.T, c cursor.Cursor) []*cursor.Row {
	t.Helper()
	bc, ok := c.(cursor.BackwardsCursor)
	require.True(t, ok)
	require.NoError(t, bc.Last())
	var rows []*cursor.Row
	for {
		ok, err := bc.Prior()
		require.NoError(t, err)
		if !ok {
			return rows
		}
		row, err := bc.Select()
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func reversed(rows []*cursor.Row) []*cursor.Row {
	out := make([]*cursor.Row, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r
	}
	return out
}

func TestBrowseByNilableName(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.BindWith(t, b.Build(b.Browse(b.Get("Customers"), plan.Asc("Name"))), allCapabilities())

	root := p.RootNode()
	assert.Equal(t, "{ Name asc, ID asc }", root.Order.String())
	assert.True(t, root.Capabilities.Has(cursor.BackwardsNavigable|cursor.Searchable|cursor.Bookmarkable))

	_, c := openBrowse(t, p)
	forward, err := cursor.Drain(c)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 1, 5, 2, 3}, idsOf(forward))

	back := backwards(t, c)
	assert.Equal(t, []int64{3, 2, 5, 1, 4}, idsOf(back))
	testutil.RequireSameRows(t, forward, reversed(back))
}

func TestBrowseMatchesOrder(t *testing.T) {
	f, _ := ordersFixture(t)
	cols := []*catalog.OrderColumn{plan.Desc("Customer"), plan.Asc("Amount"), plan.Asc("ID")}

	b := plan.NewBuilder()
	ordered := f.Bind(t, b.Build(b.Order(b.Get("Orders"), cols...)))
	want, _ := testutil.Run(t, ordered)

	b = plan.NewBuilder()
	browse := f.BindWith(t, b.Build(b.Browse(b.Get("Orders"), cols...)), allCapabilities())
	_, c := openBrowse(t, browse)
	got, err := cursor.Drain(c)
	require.NoError(t, err)

	require.Len(t, got, orderCount)
	testutil.RequireSameRows(t, want, got)
	testutil.RequireSameRows(t, reversed(want), backwards(t, c))
}

func TestBrowseDirectionChanges(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.BindWith(t, b.Build(b.Browse(b.Get("Customers"), plan.Asc("Name"))), allCapabilities())
	_, c := openBrowse(t, p)
	bc := c.(cursor.BackwardsCursor)

	step := func(next bool) int64 {
		t.Helper()
		var ok bool
		var err error
		if next {
			ok, err = bc.Next()
		} else {
			ok, err = bc.Prior()
		}
		require.NoError(t, err)
		require.True(t, ok)
		row, err := bc.Select()
		require.NoError(t, err)
		return row.Values[0].Data.(int64)
	}

	assert.Equal(t, int64(4), step(true))
	assert.Equal(t, int64(1), step(true))
	assert.Equal(t, int64(5), step(true))
	assert.Equal(t, int64(1), step(false))
	assert.Equal(t, int64(4), step(false))
	ok, err := bc.Prior()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(4), step(true))
}

func TestBrowseFindKeyAndSeek(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.BindWith(t, b.Build(b.Browse(b.Get("Customers"), plan.Asc("Name"))), allCapabilities())
	_, c := openBrowse(t, p)
	sc := c.(cursor.SearchableCursor)
	bc := c.(cursor.BackwardsCursor)

	current := func() int64 {
		t.Helper()
		row, err := c.Select()
		require.NoError(t, err)
		return row.Values[0].Data.(int64)
	}

	ok, err := sc.FindKey([]types.Value{types.NewTextValue("Edsger")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5), current())

	ok, err = sc.FindKey([]types.Value{types.NewTextValue("Bob")})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(5), current(), "a missed key keeps the position")

	ok, err = bc.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), current())
	ok, err = bc.Prior()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5), current())

	require.NoError(t, sc.Seek([]types.Value{types.NewTextValue("F")}, true))
	ok, err = c.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), current())

	require.NoError(t, sc.Seek([]types.Value{types.NewTextValue("Grace")}, false))
	ok, err = c.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), current())

	_, err = sc.FindKey([]types.Value{types.NewTextValue("A"), types.NewIntegerValue(1), types.NewIntegerValue(2)})
	assert.Error(t, err)
}

func TestBrowseBookmarks(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.BindWith(t, b.Build(b.Browse(b.Get("Customers"), plan.Asc("Name"))), allCapabilities())
	_, c := openBrowse(t, p)
	bm := c.(cursor.BookmarkableCursor)

	_, err := bm.GetBookmark()
	assert.Error(t, err, "no bookmark before the first row")

	for i := 0; i < 2; i++ {
		ok, err := c.Next()
		require.NoError(t, err)
		require.True(t, ok)
	}
	mark, err := bm.GetBookmark()
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := c.Next()
		require.NoError(t, err)
	}

	ok, err := bm.GotoBookmark(mark)
	require.NoError(t, err)
	require.True(t, ok)
	row, err := c.Select()
	require.NoError(t, err)
	assert.Equal(t, "Ada", row.Values[1].String())

	_, err = bm.GotoBookmark("elsewhere")
	assert.Error(t, err)
}

func TestBrowseVariantsCachedUntilClose(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.BindWith(t, b.Build(b.Browse(b.Get("Customers"), plan.Asc("Name"))), allCapabilities())
	o := p.RootNode().Op.(*plan.BrowseOp)
	assert.Zero(t, o.VariantCount())

	_, c := openBrowse(t, p)
	_, err := cursor.Drain(c)
	require.NoError(t, err)
	assert.Equal(t, 1, o.VariantCount(), "a forward pass reuses the initial variant")

	backwards(t, c)
	assert.Equal(t, 2, o.VariantCount())

	require.NoError(t, c.(cursor.BackwardsCursor).First())
	_, err = cursor.Drain(c)
	require.NoError(t, err)
	assert.Equal(t, 2, o.VariantCount())

	v1, err := o.Variant(context.Background(), 1, true, true)
	require.NoError(t, err)
	v2, err := o.Variant(context.Background(), 1, true, true)
	require.NoError(t, err)
	assert.Same(t, v1, v2)

	_, err = o.Variant(context.Background(), 3, true, true)
	assert.Error(t, err)

	require.NoError(t, p.Close())
	assert.Zero(t, o.VariantCount())
}

func TestBrowseVariantStatement(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.BindWith(t, b.Build(b.Browse(b.Get("Customers"), plan.Desc("Region"))), allCapabilities())
	o := p.RootNode().Op.(*plan.BrowseOp)
	assert.Equal(t, "{ Region desc, ID asc }", o.Order().String())

	vp, err := o.Variant(context.Background(), 2, true, false)
	require.NoError(t, err)
	stmt := vp.EmitStatement(vp.Root, plan.EmitDisplay)
	assert.Contains(t, stmt, "Region < $Origin0")
	assert.Contains(t, stmt, "ID > $Origin1")

	back, err := o.Variant(context.Background(), 2, false, true)
	require.NoError(t, err)
	stmt = back.EmitStatement(back.Root, plan.EmitDisplay)
	assert.Contains(t, stmt, "Region > $Origin0")
	assert.Contains(t, stmt, "ID <= $Origin1")
}

func runVariant(t *testing.T, o *plan.BrowseOp, forward, inclusive bool, origin ...types.Value) []int64 {
	t.Helper()
	vp, err := o.Variant(context.Background(), len(origin), forward, inclusive)
	require.NoError(t, err)
	ec := plan.NewExecContext(context.Background(), nil)
	c, err := vp.Execute(ec, (*plan.Env)(nil).Push(origin, false), vp.Root)
	require.NoError(t, err)
	rows, err := cursor.Collect(context.Background(), c)
	require.NoError(t, err)
	return idsOf(rows)
}

func TestBrowseVariantRoundTrip(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.BindWith(t, b.Build(b.Browse(b.Get("Customers"), plan.Asc("Name"))), allCapabilities())
	o := p.RootNode().Op.(*plan.BrowseOp)

	grace := []types.Value{types.NewTextValue("Grace"), types.NewIntegerValue(2)}
	assert.Equal(t, []int64{2, 3}, runVariant(t, o, true, true, grace...))
	assert.Equal(t, []int64{3}, runVariant(t, o, true, false, grace...))

	before := runVariant(t, o, false, false, grace...)
	require.Equal(t, []int64{5, 1, 4}, before)
	edsger := []types.Value{types.NewTextValue("Edsger"), types.NewIntegerValue(5)}
	assert.Equal(t, int64(2), runVariant(t, o, true, false, edsger...)[0], "stepping back then forward returns to the origin")

	unnamed := []types.Value{types.NewNullValue(), types.NewIntegerValue(4)}
	assert.Equal(t, []int64{1, 5, 2, 3}, runVariant(t, o, true, false, unnamed...))
	assert.Empty(t, runVariant(t, o, false, false, unnamed...))
	assert.Equal(t, []int64{4}, runVariant(t, o, false, true, unnamed...))
}
