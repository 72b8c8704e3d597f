package cursor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/quantaplan/internal/sql/types"
)

func intRows(ids ...int64) []*Row {
	rows := make([]*Row, len(ids))
	for i, id := range ids {
		rows[i] = NewRow(types.NewIntegerValue(id), types.NewTextValue("r"))
	}
	return rows
}

func TestParseCapabilities(t *testing.T) {
	c, err := ParseCapabilities([]string{"Navigable", " searchable ", "BACKWARDSNAVIGABLE"})
	require.NoError(t, err)
	assert.True(t, c.Has(Navigable|Searchable|BackwardsNavigable))
	assert.False(t, c.Has(Updateable))
	assert.Equal(t, "{ navigable, backwardsnavigable, searchable }", c.String())
	assert.Equal(t, Searchable, c.Intersect(Searchable|Updateable))
	assert.Equal(t, "{ }", None.String())

	_, err = ParseCapabilities([]string{"navigable", "teleporting"})
	assert.Error(t, err)
}

func TestSliceCursorNavigation(t *testing.T) {
	c := NewSliceCursor(intRows(1, 2, 3))
	_, err := c.Next()
	assert.Error(t, err, "not open")

	require.NoError(t, c.Open(context.Background()))
	_, err = c.Select()
	assert.Error(t, err, "before the first row")

	rows, err := Drain(c)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	ok, err := c.Next()
	require.NoError(t, err)
	assert.False(t, ok, "stays after the last row")

	ok, err = c.Prior()
	require.NoError(t, err)
	require.True(t, ok)
	row, err := c.Select()
	require.NoError(t, err)
	assert.Equal(t, "(3, r)", row.String())

	require.NoError(t, c.First())
	ok, err = c.Prior()
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := c.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, c.Capabilities().Has(Searchable))
}

func TestCollectCloses(t *testing.T) {
	c := NewSliceCursor(intRows(4, 5))
	rows, err := Collect(context.Background(), c)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	_, err = c.Next()
	assert.Error(t, err, "closed after collecting")
}

func TestRowHelpers(t *testing.T) {
	r := NewRow(types.NewIntegerValue(1), types.NewTextValue("a"), types.NewNullValue())
	assert.True(t, r.Get(9).Null)
	assert.Equal(t, []types.Value{r.Values[2], r.Values[0]}, r.Project([]int{2, 0}))

	c := r.Clone()
	c.Values[1] = types.NewTextValue("b")
	assert.Equal(t, "(1, a, nil)", r.String())
	assert.Equal(t, "(1, b, nil)", c.String())
}
