package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

func eventTable() *catalog.TableVar {
	return catalog.NewTableVar("Events",
		[]*catalog.Column{
			catalog.NewColumn("ID", types.Integer),
			catalog.NewColumn("Day", types.Integer).Nilable(),
		},
		catalog.NewKey("ID"),
	)
}

func row(id int64, day interface{}) *cursor.Row {
	d := types.NewNullValue()
	if day != nil {
		d = types.NewIntegerValue(int64(day.(int)))
	}
	return cursor.NewRow(types.NewIntegerValue(id), d)
}

func ids(t *testing.T, rows []*cursor.Row) []int64 {
	t.Helper()
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.Values[0].Data.(int64)
	}
	return out
}

func byDay(tv *catalog.TableVar, ascending bool) *catalog.Order {
	return tv.EnsureOrderUnique(catalog.NewOrder(catalog.NewOrderColumn("Day", types.Integer, ascending)))
}

func loadManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(eventTable(), 4)
	for _, r := range []*cursor.Row{row(1, 3), row(2, 1), row(3, nil), row(4, 3), row(5, 2)} {
		require.NoError(t, m.Insert(r))
	}
	return m
}

func TestOrderedIndexOrder(t *testing.T) {
	m := loadManager(t)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(t, m.Clustered().Rows()))

	idx, reverse := m.Index(byDay(m.TableVar(), true))
	assert.False(t, reverse)
	assert.Equal(t, []int64{3, 2, 5, 1, 4}, ids(t, idx.Rows()))

	again, reverse := m.Index(byDay(m.TableVar(), true).Reverse())
	assert.Same(t, idx, again)
	assert.True(t, reverse)
}

func TestCursorRange(t *testing.T) {
	m := loadManager(t)
	idx, _ := m.Index(byDay(m.TableVar(), true))
	ctx := context.Background()

	tests := []struct {
		name    string
		rng     Range
		reverse bool
		want    []int64
	}{
		{"full", FullRange, false, []int64{3, 2, 5, 1, 4}},
		{"full reverse", FullRange, true, []int64{4, 1, 5, 2, 3}},
		{"closed", Range{Lo: []types.Value{types.NewIntegerValue(2)}, LoInclusive: true, Hi: []types.Value{types.NewIntegerValue(3)}, HiInclusive: true}, false, []int64{5, 1, 4}},
		{"open lower", Range{Lo: []types.Value{types.NewIntegerValue(2)}}, false, []int64{1, 4}},
		{"open upper", Range{Hi: []types.Value{types.NewIntegerValue(3)}}, false, []int64{3, 2, 5}},
		{"point", PointRange([]types.Value{types.NewIntegerValue(3)}), true, []int64{4, 1}},
		{"empty", PointRange([]types.Value{types.NewIntegerValue(9)}), false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := cursor.Collect(ctx, idx.NewCursor(tt.rng, tt.reverse))
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, rows)
				return
			}
			assert.Equal(t, tt.want, ids(t, rows))
		})
	}
}

func TestCursorNavigation(t *testing.T) {
	m := loadManager(t)
	c := m.Clustered().NewCursor(FullRange, false)
	require.NoError(t, c.Open(context.Background()))
	defer c.Close()

	ok, err := c.Prior()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Last())
	ok, err = c.Prior()
	require.NoError(t, err)
	require.True(t, ok)
	r, err := c.Select()
	require.NoError(t, err)
	assert.Equal(t, int64(5), r.Values[0].Data)

	found, err := c.FindKey([]types.Value{types.NewIntegerValue(3)})
	require.NoError(t, err)
	require.True(t, found)
	bm, err := c.GetBookmark()
	require.NoError(t, err)

	ok, _ = c.Next()
	require.True(t, ok)
	r, _ = c.Select()
	assert.Equal(t, int64(4), r.Values[0].Data)

	found, err = c.FindKey([]types.Value{types.NewIntegerValue(42)})
	require.NoError(t, err)
	assert.False(t, found)
	r, _ = c.Select()
	assert.Equal(t, int64(4), r.Values[0].Data, "failed FindKey keeps the position")

	ok, err = c.GotoBookmark(bm)
	require.NoError(t, err)
	require.True(t, ok)
	r, _ = c.Select()
	assert.Equal(t, int64(3), r.Values[0].Data)

	require.NoError(t, c.Seek([]types.Value{types.NewIntegerValue(3)}, false))
	ok, _ = c.Next()
	require.True(t, ok)
	r, _ = c.Select()
	assert.Equal(t, int64(4), r.Values[0].Data)

	n, err := c.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCursorSurvivesDelete(t *testing.T) {
	m := loadManager(t)
	c := m.Clustered().NewCursor(FullRange, false)
	require.NoError(t, c.Open(context.Background()))

	ok, _ := c.Next()
	require.True(t, ok)
	current, _ := c.Select()
	require.NoError(t, m.Delete(current))

	ok, _ = c.Next()
	require.True(t, ok)
	r, _ := c.Select()
	assert.Equal(t, int64(2), r.Values[0].Data)
}

func TestCursorSurvivesUpdate(t *testing.T) {
	m := loadManager(t)
	c := m.Clustered().NewCursor(FullRange, false)
	require.NoError(t, c.Open(context.Background()))

	ok, _ := c.Next()
	require.True(t, ok)
	current, _ := c.Select()
	require.NoError(t, m.Update(current, row(1, 9)))

	ok, _ = c.Next()
	require.True(t, ok)
	r, _ := c.Select()
	assert.Equal(t, int64(2), r.Values[0].Data)

	// Rows sharing a key keep their relative position across updates.
	idx, _ := m.Index(catalog.NewOrder(catalog.NewOrderColumn("Day", types.Integer, true)))
	c = idx.NewCursor(FullRange, false)
	require.NoError(t, c.Open(context.Background()))
	ok, err := c.FindKey([]types.Value{types.NewIntegerValue(3)})
	require.NoError(t, err)
	require.True(t, ok)
	current, _ = c.Select()
	require.Equal(t, int64(4), current.Values[0].Data)
	require.NoError(t, m.Update(current, row(6, 3)))

	ok, _ = c.Next()
	require.True(t, ok)
	r, _ = c.Select()
	assert.Equal(t, int64(1), r.Values[0].Data)
	assert.Equal(t, 5, m.Len())
}

func TestManagerConstraints(t *testing.T) {
	m := loadManager(t)

	err := m.Insert(row(1, 9))
	assert.True(t, errors.IsError(err, errors.UniqueViolation))

	err = m.Insert(cursor.NewRow(types.NewNullValue(), types.NewIntegerValue(1)))
	assert.True(t, errors.IsError(err, errors.NotNullViolation))

	err = m.Insert(cursor.NewRow(types.NewTextValue("x"), types.NewIntegerValue(1)))
	assert.True(t, errors.IsError(err, errors.DatatypeMismatch))

	require.NoError(t, m.Update(row(1, 3), row(1, 7)))
	idx, _ := m.Index(byDay(m.TableVar(), false))
	assert.Equal(t, []int64{1, 4, 5, 2, 3}, ids(t, idx.Rows()))

	err = m.Update(row(2, 1), row(5, 1))
	assert.True(t, errors.IsError(err, errors.UniqueViolation))

	err = m.Delete(row(42, 1))
	assert.True(t, errors.IsError(err, errors.NoData))
	assert.Equal(t, 5, m.Len())
}
