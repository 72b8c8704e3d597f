package demo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/quantaplan/internal/config"
	"github.com/dshills/quantaplan/internal/demo"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/plan"
	"github.com/dshills/quantaplan/internal/sql/types"
)

func newEnvironment(t *testing.T, cfg *config.Config) *demo.Environment {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	env, err := demo.NewEnvironment(cfg, nil)
	require.NoError(t, err)
	return env
}

func ids(rows []*cursor.Row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.Values[0].Data.(int64)
	}
	return out
}

func TestEveryScenarioRuns(t *testing.T) {
	env := newEnvironment(t, nil)
	for _, s := range demo.Scenarios() {
		t.Run(s.Name, func(t *testing.T) {
			_, p, err := env.Bind(context.Background(), s.Name)
			require.NoError(t, err)
			defer p.Close()
			res, err := env.Run(context.Background(), p)
			require.NoError(t, err)
			assert.NotEmpty(t, res.Columns)
			assert.Positive(t, res.Stats.NodesExecuted)
		})
	}
}

func TestScenariosSorted(t *testing.T) {
	var names []string
	for _, s := range demo.Scenarios() {
		names = append(names, s.Name)
	}
	assert.IsIncreasing(t, names)
	_, ok := demo.Lookup("seek")
	assert.True(t, ok)
	_, ok = demo.Lookup("nope")
	assert.False(t, ok)
}

func TestRestrictionStrategies(t *testing.T) {
	env := newEnvironment(t, nil)
	cases := map[string]plan.Strategy{
		"seek":   plan.StrategySeek,
		"scan":   plan.StrategyScan,
		"filter": plan.StrategyFilter,
	}
	for name, want := range cases {
		_, p, err := env.Bind(context.Background(), name)
		require.NoError(t, err)
		o, ok := p.RootNode().Op.(*plan.RestrictOp)
		require.True(t, ok)
		assert.Equal(t, want, o.Strategy, name)
		require.NoError(t, p.Close())
	}

	_, p, err := env.Bind(context.Background(), "seek")
	require.NoError(t, err)
	res, err := env.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, ids(res.Rows))

	_, p, err = env.Bind(context.Background(), "filter")
	require.NoError(t, err)
	res, err = env.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 5}, ids(res.Rows))
	assert.Equal(t, []string{"ID", "Name", "Region"}, res.Columns)
}

func TestScanStaysInRange(t *testing.T) {
	env := newEnvironment(t, nil)
	_, p, err := env.Bind(context.Background(), "scan")
	require.NoError(t, err)
	res, err := env.Run(context.Background(), p)
	require.NoError(t, err)

	lo, hi := types.MustParseDate("2024-01-01"), types.MustParseDate("2024-02-01")
	want := 0
	for _, r := range demo.GenerateOrders(demo.OrderRows, 42) {
		if types.Date.Compare(r.Values[2], lo) >= 0 && types.Date.Compare(r.Values[2], hi) < 0 {
			want++
		}
	}
	assert.Len(t, res.Rows, want)
	assert.Equal(t, int64(1), res.Stats.Scans)
}

func TestCountScenario(t *testing.T) {
	env := newEnvironment(t, nil)
	_, p, err := env.Bind(context.Background(), "count")
	require.NoError(t, err)
	res, err := env.Run(context.Background(), p)
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	assert.Equal(t, "0", res.Value.String())
	assert.Empty(t, res.Rows)
}

func TestBrowsePages(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Browse.PageSize = 2
	env := newEnvironment(t, cfg)

	s, p, err := env.Bind(context.Background(), "browse")
	require.NoError(t, err)
	require.True(t, s.Browse)
	defer p.Close()

	res, err := env.Page(context.Background(), p, false)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 1}, ids(res.Rows))

	res, err = env.Page(context.Background(), p, true)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(res.Rows))
}

func TestPageRejectsScalarPlans(t *testing.T) {
	env := newEnvironment(t, nil)
	_, p, err := env.Bind(context.Background(), "count")
	require.NoError(t, err)
	defer p.Close()
	_, err = env.Page(context.Background(), p, true)
	assert.True(t, errors.IsError(err, errors.FeatureNotSupported), "got %v", err)
}

func TestUnknownScenario(t *testing.T) {
	env := newEnvironment(t, nil)
	_, _, err := env.Bind(context.Background(), "nope")
	assert.True(t, errors.IsError(err, errors.UndefinedObject), "got %v", err)
}

func TestEnvironmentHonorsConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Execution.RequestedCapabilities = []string{"bogus"}
	_, err := demo.NewEnvironment(cfg, nil)
	assert.Error(t, err)

	cfg = config.DefaultConfig()
	cfg.Device.Name = "Scratch"
	env := newEnvironment(t, cfg)
	assert.Equal(t, "Scratch", env.Engine.Name())
	orders, ok := env.Engine.Table("Orders")
	require.True(t, ok)
	assert.Equal(t, demo.OrderRows, orders.Len())
}
