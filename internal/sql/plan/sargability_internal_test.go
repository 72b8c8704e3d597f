package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/sql/types"
)

func eventsValues(b *Builder) NodeID {
	cols := []*catalog.Column{
		catalog.NewColumn("ID", types.Integer),
		catalog.NewColumn("At", types.Date),
		catalog.NewColumn("Cost", types.Decimal).Nilable(),
	}
	rows := [][]types.Value{
		{types.NewIntegerValue(1), types.MustParseDate("2024-01-31"), types.MustDecimal("5.0")},
		{types.NewIntegerValue(2), types.MustParseDate("2024-02-01"), types.MustDecimal("4.99")},
		{types.NewIntegerValue(3), types.MustParseDate("2024-01-01"), types.NewNullValue()},
	}
	return b.Values(cols, rows, catalog.NewKey("ID"))
}

func bindLocal(t *testing.T, p *Plan) {
	t.Helper()
	b := NewBinder(catalog.NewMemoryCatalog(), nil, nil, DefaultOptions())
	require.NoError(t, b.Bind(context.Background(), p))
}

func TestStrictBoundsTightenOnDiscreteDomains(t *testing.T) {
	b := NewBuilder()
	cond := b.And(
		b.Greater(b.Column("At"), b.Date("2023-12-31")),
		b.Less(b.Column("At"), b.Date("2024-02-01")))
	p := b.Build(b.Restrict(eventsValues(b), cond))
	bindLocal(t, p)

	o := p.RootNode().Op.(*RestrictOp)
	require.Equal(t, StrategyScan, o.Strategy)
	require.Len(t, o.bounds, 1)
	bc := o.bounds[0]
	assert.Equal(t, OpGreaterEqual, bc.lower.Op)
	assert.Equal(t, KindSucc, p.Node(bc.lower.Arg).Kind)
	assert.Equal(t, OpLessEqual, bc.upper.Op)
	assert.Equal(t, KindPred, p.Node(bc.upper.Arg).Kind)

	// The decomposition keeps the operators as written.
	assert.Equal(t, OpGreater, o.Conditions[0].Conditions[0].Op)
	assert.Equal(t, OpLess, o.Conditions[0].Conditions[1].Op)

	rng, empty, err := o.keyRange(NewExecContext(context.Background(), nil), nil, p)
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, "2024-01-01", rng.lo[0].String())
	assert.True(t, rng.loInclusive)
	assert.Equal(t, "2024-01-31", rng.hi[0].String())
	assert.True(t, rng.hiInclusive)
}

func TestStrictBoundsStayOpenOnDecimal(t *testing.T) {
	b := NewBuilder()
	p := b.Build(b.Restrict(eventsValues(b), b.Less(b.Column("Cost"), b.Decimal("5.0"))))
	bindLocal(t, p)

	o := p.RootNode().Op.(*RestrictOp)
	require.Equal(t, StrategyScan, o.Strategy)
	assert.Equal(t, OpLess, o.bounds[0].upper.Op)
	assert.Nil(t, o.bounds[0].lower)

	rng, _, err := o.keyRange(NewExecContext(context.Background(), nil), nil, p)
	require.NoError(t, err)
	assert.False(t, rng.hiInclusive)
}

func TestScanOverValuesWrapsSourceInOrder(t *testing.T) {
	b := NewBuilder()
	p := b.Build(b.Restrict(eventsValues(b), b.GreaterEq(b.Column("At"), b.Date("2024-01-15"))))
	bindLocal(t, p)

	src := p.Child(p.Root, 0)
	require.Equal(t, KindOrder, src.Kind)
	assert.True(t, src.Op.(*OrderOp).ShouldExecute())
	assert.Equal(t, "{ At asc, ID asc }", src.Order.String())
}

func TestThreeWayRelation(t *testing.T) {
	lit := func(v int64) *Node {
		return &Node{Op: &LiteralOp{Value: types.NewIntegerValue(v)}}
	}
	cases := []struct {
		op   CompareOperator
		k    int64
		want CompareOperator
		ok   bool
	}{
		{OpLess, 0, OpLess, true},
		{OpEqual, 0, OpEqual, true},
		{OpGreater, 0, OpGreater, true},
		{OpLessEqual, 0, OpLessEqual, true},
		{OpGreaterEqual, 0, OpGreaterEqual, true},
		{OpGreaterEqual, 1, OpGreater, true},
		{OpLess, 1, OpLessEqual, true},
		{OpEqual, 1, OpGreater, true},
		{OpEqual, -1, OpLess, true},
		{OpLess, -1, 0, false},
		{OpNotEqual, 0, 0, false},
		{OpEqual, 2, 0, false},
	}
	for _, tc := range cases {
		got, ok := threeWayRelation(tc.op, lit(tc.k))
		assert.Equal(t, tc.ok, ok, "%s %d", tc.op, tc.k)
		if tc.ok {
			assert.Equal(t, tc.want, got, "%s %d", tc.op, tc.k)
		}
	}
}
