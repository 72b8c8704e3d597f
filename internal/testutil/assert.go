package testutil

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/plan"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// Strings renders rows as literal strings, one slice per row.
func Strings(rows []*cursor.Row) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = make([]string, len(r.Values))
		for j, v := range r.Values {
			out[i][j] = v.String()
		}
	}
	return out
}

// Column projects one column of rows.
func Column(rows []*cursor.Row, slot int) []types.Value {
	out := make([]types.Value, len(rows))
	for i, r := range rows {
		out[i] = r.Values[slot]
	}
	return out
}

// Run opens a bound table plan and returns its rows.
func Run(t testing.TB, p *plan.Plan) ([]*cursor.Row, *plan.ExecStats) {
	t.Helper()
	ec := plan.NewExecContext(context.Background(), nil)
	c, err := p.Open(ec)
	require.NoError(t, err)
	defer func() { require.NoError(t, c.Close()) }()
	rows, err := cursor.Drain(c)
	require.NoError(t, err)
	return rows, ec.Stats
}

// Eval evaluates a bound scalar plan.
func Eval(t testing.TB, p *plan.Plan) types.Value {
	t.Helper()
	v, err := p.Evaluate(plan.NewExecContext(context.Background(), nil), nil)
	require.NoError(t, err)
	return v
}

// RequireSameRows fails when got and want differ as rendered rows.
func RequireSameRows(t testing.TB, want, got []*cursor.Row) {
	t.Helper()
	if diff := cmp.Diff(Strings(want), Strings(got)); diff != "" {
		t.Fatalf("rows differ (-want +got):\n%s", diff)
	}
}
