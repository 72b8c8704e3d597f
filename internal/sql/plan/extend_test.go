package plan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/plan"
	"github.com/dshills/quantaplan/internal/sql/types"
	"github.com/dshills/quantaplan/internal/testutil"
)

func customer(id int64, name, region string, extra ...types.Value) *cursor.Row {
	vals := []types.Value{types.NewIntegerValue(id), types.NewTextValue(name), types.NewTextValue(region)}
	return cursor.NewRow(append(vals, extra...)...)
}

func openUpdateable(t *testing.T, p *plan.Plan) cursor.UpdateableCursor {
	t.Helper()
	c, err := p.Open(plan.NewExecContext(context.Background(), nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	u, ok := c.(cursor.UpdateableCursor)
	require.True(t, ok, "%T is not updateable", c)
	return u
}

func labelled(b *plan.Builder) plan.NodeID {
	return b.Extend(b.Get("Customers"), plan.Extension{Name: "Label", Expr: b.Call("Upper", b.Column("Name"))})
}

func TestExtendDerivesColumns(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.Bind(t, b.Build(labelled(b)))

	root := p.RootNode()
	require.Len(t, root.TableVar.Columns, 4)
	label := root.TableVar.Column("Label")
	assert.Equal(t, types.Text, label.DataType)
	assert.True(t, label.IsNilable)
	assert.Equal(t, "{ ID asc }", root.Order.String())
	assert.Equal(t, "Customers add { Upper(Name) Label }", p.EmitStatement(p.Root, plan.EmitDisplay))

	rows, _ := testutil.Run(t, p)
	assert.Equal(t, []string{"ADA", "GRACE", "X", "nil", "EDSGER"}, valueStrings(testutil.Column(rows, 3)))
}

func valueStrings(vals []types.Value) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}

func TestExtendPropagatesMutations(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.BindWith(t, b.Build(labelled(b)), allCapabilities())
	require.True(t, p.RootNode().Capabilities.Has(cursor.Updateable))
	store, _ := f.Engine.Table("Customers")

	u := openUpdateable(t, p)
	require.NoError(t, u.Insert(customer(6, "Barbara", "south", types.NewTextValue("ignored"))))
	assert.Equal(t, 6, store.Len())

	ok, err := u.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, u.Update(customer(1, "Ada L", "south", types.NewNullValue())))

	ok, err = u.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, u.Delete())
	assert.Equal(t, 5, store.Len())

	b = plan.NewBuilder()
	rows, _ := testutil.Run(t, f.Bind(t, b.Build(labelled(b))))
	assert.Equal(t, []int64{1, 3, 4, 5, 6}, idsOf(rows))
	assert.Equal(t, []string{"1", "Ada L", "south", "ADA L"}, testutil.Strings(rows[:1])[0])
	assert.Equal(t, "BARBARA", rows[4].Values[3].String())
}

func TestExtendWithoutUpdateableCapability(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.Bind(t, b.Build(labelled(b)))
	assert.False(t, p.RootNode().Capabilities.Has(cursor.Updateable))

	u := openUpdateable(t, p)
	err := u.Insert(customer(6, "Barbara", "south", types.NewNullValue()))
	assert.True(t, errors.IsError(err, errors.FeatureNotSupported), "got %v", err)
}

func TestExtendRejectsDuplicateColumn(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	err := f.Binder(plan.DefaultOptions()).Bind(context.Background(),
		b.Build(b.Extend(b.Get("Customers"), plan.Extension{Name: "Name", Expr: b.Int(1)})))
	assert.True(t, errors.IsError(err, errors.DuplicateColumn), "got %v", err)
}

func TestExtendIsolatesOuterScope(t *testing.T) {
	f, _ := ordersFixture(t)
	bind := f.Binder(plan.DefaultOptions())
	bind.PushFrame([]plan.FrameColumn{{Name: "Outer", DataType: types.Integer}}, false)
	b := plan.NewBuilder()
	err := bind.Bind(context.Background(),
		b.Build(b.Extend(b.Get("Customers"), plan.Extension{Name: "X", Expr: b.Var("Outer")})))
	assert.Error(t, err)
}

func regionDefaulted(b *plan.Builder) plan.NodeID {
	return b.Adorn(b.Get("Customers"), plan.Adornment{
		Defaults: []plan.ColumnDefault{{Column: "Region", Expr: b.Text("unknown")}},
		Keys:     []*catalog.Key{catalog.NewKey("Name")},
		Orders:   []*catalog.Order{catalog.NewOrder(catalog.NewOrderColumn("Region", types.Text, false))},
	})
}

func TestAdornAttachesMetadata(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.Bind(t, b.Build(regionDefaulted(b)))

	tv := p.RootNode().TableVar
	assert.False(t, tv.IsBase)
	require.Len(t, tv.Keys, 2)
	assert.Equal(t, []string{"Name"}, tv.Keys[1].Columns)
	assert.NotNil(t, tv.FindOrder(catalog.NewOrder(catalog.NewOrderColumn("Region", types.Text, false))))
	assert.Equal(t, "{ ID asc }", p.RootNode().Order.String())

	stmt := p.EmitStatement(p.Root, plan.EmitDisplay)
	assert.Contains(t, stmt, "Customers adorn { Region default 'unknown' }")
	assert.Contains(t, stmt, "key { Name }")

	stored, err := f.Catalog.ResolveCatalogIdentifier("Customers")
	require.NoError(t, err)
	assert.Len(t, stored.Keys, 1, "adornments stay with the expression")
}

func TestAdornFillsDefaultsOnInsert(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.BindWith(t, b.Build(b.Extend(regionDefaulted(b),
		plan.Extension{Name: "Label", Expr: b.Call("Upper", b.Column("Name"))})), allCapabilities())

	u := openUpdateable(t, p)
	row := cursor.NewRow(types.NewIntegerValue(7), types.NewTextValue("Barbara"), types.NewNullValue(), types.NewNullValue())
	require.NoError(t, u.Insert(row))
	assert.True(t, row.Values[2].Null, "the caller's row is not modified")

	require.NoError(t, u.Insert(customer(8, "Niklaus", "alps")))

	store, _ := f.Engine.Table("Customers")
	assert.Equal(t, 7, store.Len())

	b = plan.NewBuilder()
	rows, _ := testutil.Run(t, f.Bind(t, b.Build(b.Restrict(b.Get("Customers"),
		b.GreaterEq(b.Column("ID"), b.Int(7))))))
	assert.Equal(t, [][]string{{"7", "Barbara", "unknown"}, {"8", "Niklaus", "alps"}}, testutil.Strings(rows))
}

func TestAdornDefaultMustBeContextLiteral(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := b.Build(b.Adorn(b.Get("Customers"), plan.Adornment{
		Defaults: []plan.ColumnDefault{{Column: "Region", Expr: b.Convert(b.Call("Random"), types.Text)}},
	}))
	err := f.Binder(plan.DefaultOptions()).Bind(context.Background(), p)
	assert.True(t, errors.IsError(err, errors.InvalidParameterValue), "got %v", err)

	b = plan.NewBuilder()
	p = b.Build(b.Adorn(b.Get("Customers"), plan.Adornment{
		Defaults: []plan.ColumnDefault{{Column: "Missing", Expr: b.Text("x")}},
	}))
	err = f.Binder(plan.DefaultOptions()).Bind(context.Background(), p)
	assert.True(t, errors.IsError(err, errors.UndefinedColumn), "got %v", err)
}
