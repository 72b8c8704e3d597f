package plan

import (
	"context"

	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/log"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// Open executes the root of a bound table plan and returns its opened
// cursor. The caller closes the cursor.
func (p *Plan) Open(ec *ExecContext) (cursor.Cursor, error) {
	root := p.RootNode()
	if root == nil || !root.Kind.IsTable() {
		return nil, errors.FeatureNotSupportedError("opening a scalar plan")
	}
	ec.tag("plan", root.Kind.String())
	c, err := p.Execute(ec, nil, p.Root)
	if err != nil {
		return nil, err
	}
	if err := c.Open(ec.Context); err != nil {
		_ = c.Close()
		return nil, errors.WrapRuntime(err, root.Location)
	}
	return c, nil
}

// Evaluate executes the root of a bound scalar plan.
func (p *Plan) Evaluate(ec *ExecContext, env *Env) (types.Value, error) {
	root := p.RootNode()
	if root == nil || root.Kind.IsTable() {
		return types.Value{}, errors.FeatureNotSupportedError("evaluating a table plan")
	}
	ec.tag("plan", root.Kind.String())
	return p.Eval(ec, env, p.Root)
}

func (ec *ExecContext) tag(key string, value any) {
	if ec.Context == nil {
		ec.Context = context.Background()
	}
	ec.Context = log.WithTag(ec.Context, key, value)
}

func (p *Plan) enter(ec *ExecContext, n *Node) error {
	if n.state < StateBound {
		return errors.AssertionFailedf("%s executed before binding", n)
	}
	if n.state == StateDisposed {
		return errors.AssertionFailedf("%s executed after disposal", n)
	}
	if err := ec.checkAborted(); err != nil {
		return err
	}
	if ec.Yield != nil {
		if err := ec.Yield(p, n); err != nil {
			return err
		}
	}
	ec.stats().NodesExecuted++
	n.state = StateExecuting
	return nil
}

// Execute produces the (unopened) cursor of a table node. A node the
// device supports is opened through its device plan; otherwise the
// node's own algorithm runs.
func (p *Plan) Execute(ec *ExecContext, env *Env, id NodeID) (cursor.Cursor, error) {
	n := p.nodes[id]
	if err := p.enter(ec, n); err != nil {
		return nil, errors.WrapRuntime(err, n.Location)
	}
	var c cursor.Cursor
	var err error
	if n.DeviceSupported && !n.CouldSupport && n.DevicePlan != nil {
		c, err = n.DevicePlan.Open(ec, env)
	} else {
		op, ok := n.Op.(tableOperator)
		if !ok {
			return nil, errors.AssertionFailedf("%s is not a table operator", n)
		}
		c, err = op.open(ec, env, p, n)
	}
	if err != nil {
		return nil, errors.WrapRuntime(err, n.Location)
	}
	return c, nil
}

// Eval evaluates a scalar node.
func (p *Plan) Eval(ec *ExecContext, env *Env, id NodeID) (types.Value, error) {
	n := p.nodes[id]
	if err := p.enter(ec, n); err != nil {
		return types.Value{}, errors.WrapRuntime(err, n.Location)
	}
	op, ok := n.Op.(scalarOperator)
	if !ok {
		return types.Value{}, errors.AssertionFailedf("%s is not a scalar operator", n)
	}
	v, err := op.evaluate(ec, env, p, n)
	if err != nil {
		return types.Value{}, errors.WrapRuntime(err, n.Location)
	}
	return v, nil
}

// EvalRow evaluates a scalar node with row pushed as the innermost frame.
func (p *Plan) EvalRow(ec *ExecContext, env *Env, id NodeID, row *cursor.Row, isolated bool) (types.Value, error) {
	return p.Eval(ec, env.Push(row.Values, isolated), id)
}

// evalTrue evaluates a condition; nil counts as false.
func (p *Plan) evalTrue(ec *ExecContext, env *Env, id NodeID) (bool, error) {
	v, err := p.Eval(ec, env, id)
	if err != nil {
		return false, err
	}
	if v.Null {
		return false, nil
	}
	return v.AsBool()
}
