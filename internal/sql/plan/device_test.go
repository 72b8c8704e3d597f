package plan_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/redact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/quantaplan/internal/engine"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/plan"
	"github.com/dshills/quantaplan/internal/testutil"
)

// tapeDevice declines every subtree it is offered.
type tapeDevice struct{}

func (tapeDevice) Name() string { return "Tape" }

func (tapeDevice) Prepare(context.Context, *plan.Plan, plan.NodeID) (plan.DevicePlan, error) {
	return declined{}, nil
}

type declined struct{}

func (declined) IsSupported() bool  { return false }
func (declined) CouldSupport() bool { return false }

func (declined) TranslationMessages() []redact.RedactableString {
	return []redact.RedactableString{redact.Sprintf("no random access")}
}

func (declined) Open(*plan.ExecContext, *plan.Env) (cursor.Cursor, error) {
	return nil, errors.New(errors.FeatureNotSupported, "tape cannot be read")
}

func TestDeclinedGetWarns(t *testing.T) {
	f := testutil.NewFixture(t, engine.DefaultOptions())
	f.CreateCustomers(t)
	resolver := func(string) plan.Device { return tapeDevice{} }

	b := plan.NewBuilder()
	p := b.Build(b.Get("Customers"))
	require.NoError(t, plan.NewBinder(f.Catalog, resolver, nil, plan.DefaultOptions()).Bind(context.Background(), p))

	n := p.RootNode()
	assert.False(t, n.DeviceSupported)
	require.Len(t, p.Warnings(), 1)
	assert.Equal(t, errors.DeviceUnsupported, p.Warnings()[0].Code())
	assert.Contains(t, p.Warnings()[0].Error(), "no random access")
}
