package plan

import (
	"context"

	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/log"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// Env is the runtime scope chain. Each frame mirrors a frame pushed by
// the binder, so a resolved (depth, slot) pair addresses the same value at
// run time. The nil Env is the empty chain.
type Env struct {
	parent   *Env
	values   []types.Value
	isolated bool
}

// Push returns a new frame holding values on top of e. The slice is held,
// not copied.
func (e *Env) Push(values []types.Value, isolated bool) *Env {
	return &Env{parent: e, values: values, isolated: isolated}
}

func (e *Env) frame(depth int) (*Env, error) {
	f := e
	for i := 0; i < depth; i++ {
		if f == nil {
			break
		}
		f = f.parent
	}
	if f == nil {
		return nil, errors.AssertionFailedf("frame depth %d out of range", depth)
	}
	return f, nil
}

// Lookup reads a slot. Reads crossing an isolated frame must be correlated.
func (e *Env) Lookup(ref resolvedRef) (types.Value, error) {
	f := e
	for i := 0; i < ref.Depth; i++ {
		if f == nil {
			break
		}
		if f.isolated && !ref.Correlated {
			return types.Value{}, errors.OuterReferenceError("slot")
		}
		f = f.parent
	}
	if f == nil || ref.Slot >= len(f.values) {
		return types.Value{}, errors.AssertionFailedf("frame slot %d at depth %d out of range", ref.Slot, ref.Depth)
	}
	return f.values[ref.Slot], nil
}

// Set writes a slot of the frame at depth.
func (e *Env) Set(depth, slot int, v types.Value) error {
	f, err := e.frame(depth)
	if err != nil {
		return err
	}
	if slot >= len(f.values) {
		return errors.AssertionFailedf("frame slot %d out of range", slot)
	}
	f.values[slot] = v
	return nil
}

// ExecStats collects execution statistics.
type ExecStats struct {
	NodesExecuted int64
	RowsRead      int64
	RowsReturned  int64
	Seeks         int64
	Scans         int64
	Filters       int64
	Materialized  int64
}

// ExecContext carries the per-execution state shared by every node.
type ExecContext struct {
	Context context.Context
	Logger  log.Logger
	Stats   *ExecStats
	// CheckAborted enables the cancellation check before each dispatch.
	CheckAborted bool
	// Yield, when set, is called before each node dispatch. Returning an
	// error aborts execution.
	Yield func(p *Plan, n *Node) error
}

// NewExecContext creates an execution context with abort checks enabled.
func NewExecContext(ctx context.Context, logger log.Logger) *ExecContext {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExecContext{
		Context:      ctx,
		Logger:       logger,
		Stats:        &ExecStats{},
		CheckAborted: true,
	}
}

func (ec *ExecContext) checkAborted() error {
	if !ec.CheckAborted || ec.Context == nil {
		return nil
	}
	if err := ec.Context.Err(); err != nil {
		return errors.QueryCanceledError().WithDetail(err.Error())
	}
	return nil
}

func (ec *ExecContext) stats() *ExecStats {
	if ec.Stats == nil {
		ec.Stats = &ExecStats{}
	}
	return ec.Stats
}

func (ec *ExecContext) logger() log.Logger {
	if ec.Logger == nil {
		ec.Logger = log.Discard()
	}
	return ec.Logger
}
