package plan_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/quantaplan/internal/engine"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/plan"
	"github.com/dshills/quantaplan/internal/sql/types"
	"github.com/dshills/quantaplan/internal/testutil"
	"github.com/dshills/quantaplan/internal/util/timeutil"
)

func TestKindNames(t *testing.T) {
	assert.Equal(t, "Restrict", plan.KindRestrict.String())
	assert.Equal(t, "AggregatePhase", plan.KindAggregatePhase.String())
	assert.Equal(t, "Kind(99)", plan.Kind(99).String())
	assert.True(t, plan.KindBrowse.IsTable())
	assert.False(t, plan.KindAggregate.IsTable())
}

func TestCharacteristicsNeverExceedChildren(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	expr := b.And(
		b.Less(b.Add(b.Int(1), b.Call("Random")), b.Int(100)),
		b.Eq(b.Call("Today"), b.Date("2024-01-01")),
		b.Not(b.IsNil(b.Call("Upper", b.Text("x")))),
		b.Greater(b.Count(b.Get("Orders")), b.Int(0)))
	p := f.Bind(t, b.Build(expr))

	p.Walk(p.Root, func(n *plan.Node) bool {
		if n.Kind == plan.KindAggregate {
			return false
		}
		for _, id := range n.Children {
			c := p.Node(id)
			if c.Kind.IsTable() {
				continue
			}
			if !c.IsDeterministic {
				assert.False(t, n.IsDeterministic, "%s above %s", n, c)
			}
			if !c.IsRepeatable {
				assert.False(t, n.IsRepeatable, "%s above %s", n, c)
			}
			if !c.IsFunctional {
				assert.False(t, n.IsFunctional, "%s above %s", n, c)
			}
			if !c.IsLiteral {
				assert.False(t, n.IsLiteral, "%s above %s", n, c)
			}
		}
		return true
	})

	root := p.RootNode()
	assert.False(t, root.IsDeterministic)
	assert.False(t, root.IsRepeatable)
	assert.False(t, root.IsContextLiteral())

	b = plan.NewBuilder()
	lit := f.Bind(t, b.Build(b.Mul(b.Add(b.Int(1), b.Int(2)), b.Int(3))))
	assert.True(t, lit.RootNode().IsLiteral)
	assert.True(t, lit.RootNode().IsContextLiteral())
	assert.Equal(t, "9", testutil.Eval(t, lit).String())

	b = plan.NewBuilder()
	today := f.Bind(t, b.Build(b.Call("Today")))
	assert.True(t, today.RootNode().IsRepeatable)
	assert.False(t, today.RootNode().IsDeterministic)
}

func TestTodayReadsClock(t *testing.T) {
	saved := timeutil.Now
	defer func() { timeutil.Now = saved }()
	timeutil.Now = func() time.Time { return time.Date(2024, 5, 6, 21, 30, 0, 0, time.UTC) }

	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.Bind(t, b.Build(b.Call("Today")))
	assert.Equal(t, "2024-05-06", testutil.Eval(t, p).String())
}

func TestBindIsIdempotent(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.Bind(t, b.Build(b.Restrict(b.Get("Orders"), b.Eq(b.Column("ID"), b.Int(7)))))
	n := p.Len()
	states := make(map[plan.NodeID]plan.State)
	p.Walk(p.Root, func(n *plan.Node) bool {
		assert.Equal(t, plan.StateDeviceNegotiated, n.State(), "%s", n)
		states[n.ID] = n.State()
		return true
	})

	require.NoError(t, f.Binder(plan.DefaultOptions()).Bind(context.Background(), p))
	assert.Equal(t, n, p.Len(), "rebinding adds no nodes")
	p.Walk(p.Root, func(n *plan.Node) bool {
		assert.Equal(t, states[n.ID], n.State(), "%s", n)
		return true
	})

	rows, _ := testutil.Run(t, p)
	assert.Equal(t, []int64{7}, idsOf(rows))
	assert.Equal(t, plan.StateExecuting, p.RootNode().State())

	require.NoError(t, p.Close())
	assert.Equal(t, plan.StateDisposed, p.RootNode().State())
	_, err := p.Open(plan.NewExecContext(context.Background(), nil))
	assert.Error(t, err, "disposed plans do not execute")
}

func TestExecuteBeforeBind(t *testing.T) {
	b := plan.NewBuilder()
	p := b.Build(b.Add(b.Int(1), b.Int(2)))
	_, err := p.Evaluate(plan.NewExecContext(context.Background(), nil), nil)
	assert.Error(t, err)
	assert.False(t, p.IsBound())
}

func TestNoDeviceAcrossEngines(t *testing.T) {
	f := testutil.NewFixture(t, engine.DefaultOptions())
	rows := f.CreateOrders(t, orderCount)
	other := engine.NewMemoryEngine(engine.Options{Name: "Other"}, nil)
	require.NoError(t, other.CreateTable(f.Catalog, testutil.CustomersTable()))

	resolver := func(table string) plan.Device {
		if table == "Customers" {
			return other
		}
		return f.Engine
	}
	bind := plan.NewBinder(f.Catalog, resolver, nil, plan.DefaultOptions())

	b := plan.NewBuilder()
	cond := b.Less(b.Column("Customer"), b.Add(b.Count(b.Get("Customers")), b.Int(3)))
	p := b.Build(b.Restrict(b.Get("Orders"), cond))
	require.NoError(t, bind.Bind(context.Background(), p))
	defer p.Close()

	root := p.RootNode()
	assert.True(t, root.NoDevice)
	assert.Nil(t, root.Device)
	assert.False(t, root.DeviceSupported)
	assert.Empty(t, p.Warnings())

	var count *plan.Node
	p.Walk(p.Root, func(n *plan.Node) bool {
		switch n.Kind {
		case plan.KindGet:
			assert.True(t, n.DeviceSupported, "%s", n)
		case plan.KindAggregate:
			count = n
		}
		return true
	})
	require.NotNil(t, count)
	assert.Equal(t, other, count.Device)
	assert.True(t, count.DeviceSupported)

	got, _ := testutil.Run(t, p)
	want := filterRows(rows, func(r *cursor.Row) bool { return r.Values[1].Data.(int64) < 3 }, byID)
	assert.Equal(t, sortedIDs(want), sortedIDs(got))
}

func TestYieldSeesEveryDispatch(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.Bind(t, b.Build(b.Restrict(b.Get("Customers"), b.NotEq(b.Column("Region"), b.Text("east")))))
	require.Equal(t, plan.StrategyFilter, restrictOf(t, p).Strategy)

	ec := plan.NewExecContext(context.Background(), nil)
	kinds := map[plan.Kind]int{}
	ec.Yield = func(_ *plan.Plan, n *plan.Node) error {
		kinds[n.Kind]++
		return nil
	}
	c, err := p.Open(ec)
	require.NoError(t, err)
	rows, err := cursor.Drain(c)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	assert.Len(t, rows, 3)
	assert.Equal(t, 1, kinds[plan.KindRestrict])
	assert.Equal(t, 5, kinds[plan.KindCompare], "one condition per row")
	assert.Equal(t, ec.Stats.NodesExecuted, int64(sum(kinds)))
}

func sum(m map[plan.Kind]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

func TestYieldAbortsExecution(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.Bind(t, b.Build(b.Restrict(b.Get("Orders"), b.Greater(b.Column("Customer"), b.Int(0)))))

	stop := stderrors.New("stop")
	ec := plan.NewExecContext(context.Background(), nil)
	seen := 0
	ec.Yield = func(_ *plan.Plan, n *plan.Node) error {
		if n.Kind == plan.KindCompare {
			if seen++; seen > 3 {
				return stop
			}
		}
		return nil
	}
	c, err := p.Open(ec)
	require.NoError(t, err)
	defer c.Close()
	_, err = cursor.Drain(c)
	assert.ErrorIs(t, err, stop)
	assert.True(t, errors.IsRuntime(err))
}

func TestCancellation(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	p := f.Bind(t, b.Build(b.Restrict(b.Get("Orders"), b.Greater(b.Column("Customer"), b.Int(0)))))

	ctx, cancel := context.WithCancel(context.Background())
	ec := plan.NewExecContext(ctx, nil)
	c, err := p.Open(ec)
	require.NoError(t, err)
	defer c.Close()
	ok, err := c.Next()
	require.NoError(t, err)
	require.True(t, ok)

	cancel()
	_, err = cursor.Drain(c)
	assert.True(t, errors.IsError(err, errors.QueryCanceled), "got %v", err)

	ec = plan.NewExecContext(ctx, nil)
	ec.CheckAborted = false
	c2, err := p.Open(ec)
	require.NoError(t, err)
	defer c2.Close()
	rows, err := cursor.Drain(c2)
	require.NoError(t, err)
	assert.Len(t, rows, orderCount)
}

func TestRuntimeErrorCarriesLocation(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	b.At(1, 1)
	src := b.Get("Orders")
	b.At(4, 9)
	ratio := b.Div(b.Int(10), b.Sub(b.Column("Customer"), b.Column("Customer")))
	p := f.Bind(t, b.Build(b.Extend(src, plan.Extension{Name: "Ratio", Expr: ratio})))

	c, err := p.Open(plan.NewExecContext(context.Background(), nil))
	require.NoError(t, err)
	defer c.Close()
	_, err = cursor.Drain(c)
	require.Error(t, err)
	assert.True(t, errors.IsError(err, errors.DivisionByZero), "got %v", err)

	var re *errors.RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, errors.Location{Line: 4, Column: 9}, re.Location)
}

func TestCompileErrorCarriesLocation(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	b.At(2, 5)
	p := b.Build(b.Eq(b.Int(1), b.Bool(true)))
	err := f.Binder(plan.DefaultOptions()).Bind(context.Background(), p)
	require.Error(t, err)

	var ce *errors.CompilerError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, errors.SeverityError, ce.Severity)
	assert.Equal(t, errors.Location{Line: 2, Column: 5}, ce.Location)
	assert.Equal(t, errors.DatatypeMismatch, ce.Code())
}

func TestScalarAndTableEntryPoints(t *testing.T) {
	f, _ := ordersFixture(t)
	b := plan.NewBuilder()
	table := f.Bind(t, b.Build(b.Get("Customers")))
	_, err := table.Evaluate(plan.NewExecContext(context.Background(), nil), nil)
	assert.True(t, errors.IsError(err, errors.FeatureNotSupported), "got %v", err)

	b = plan.NewBuilder()
	scalar := f.Bind(t, b.Build(b.Text("x")))
	_, err = scalar.Open(plan.NewExecContext(context.Background(), nil))
	assert.True(t, errors.IsError(err, errors.FeatureNotSupported), "got %v", err)

	assert.Equal(t, types.Text, scalar.RootNode().DataType)
}
