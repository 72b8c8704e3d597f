package demo

import (
	"context"
	"time"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/config"
	"github.com/dshills/quantaplan/internal/engine"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/log"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/plan"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// OrderRows is the number of generated Orders rows.
const OrderRows = 60

const orderSeed = 42

// Environment is a catalog and memory engine holding the sample tables.
type Environment struct {
	Config  *config.Config
	Logger  log.Logger
	Catalog *catalog.MemoryCatalog
	Engine  *engine.MemoryEngine

	opts plan.Options
}

// NewEnvironment creates the sample tables on a memory engine configured
// by cfg.
func NewEnvironment(cfg *config.Config, logger log.Logger) (*Environment, error) {
	if logger == nil {
		logger = log.Discard()
	}
	opts, err := plan.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	env := &Environment{
		Config:  cfg,
		Logger:  logger,
		Catalog: catalog.NewMemoryCatalog(),
		Engine:  engine.NewMemoryEngine(engine.OptionsFromConfig(cfg.Device), logger),
		opts:    opts,
	}
	if err := env.create(OrdersTable(), GenerateOrders(OrderRows, orderSeed)); err != nil {
		return nil, err
	}
	if err := env.create(CustomersTable(), Customers()); err != nil {
		return nil, err
	}
	return env, nil
}

func (e *Environment) create(tv *catalog.TableVar, rows []*cursor.Row) error {
	if err := e.Engine.CreateTable(e.Catalog, tv); err != nil {
		return errors.Wrapf(err, "creating %s", tv.Name)
	}
	return e.Engine.Insert(tv.Name, rows...)
}

// Bind builds and binds the named scenario. Browse scenarios request a
// cursor that can move in both directions.
func (e *Environment) Bind(ctx context.Context, name string) (Scenario, *plan.Plan, error) {
	s, ok := Lookup(name)
	if !ok {
		return Scenario{}, nil, errors.UndefinedObjectError("scenario", name)
	}
	opts := e.opts
	if s.Browse {
		opts.RequestedCapabilities |= cursor.BackwardsNavigable | cursor.Searchable | cursor.Bookmarkable
	}
	p := s.Plan()
	if err := plan.NewBinder(e.Catalog, e.Engine.Resolver(), e.Logger, opts).Bind(ctx, p); err != nil {
		return s, nil, err
	}
	return s, p, nil
}

// Result is the outcome of running a bound scenario.
type Result struct {
	Columns []string
	Rows    []*cursor.Row
	// Value is set for scalar plans.
	Value   *types.Value
	Stats   plan.ExecStats
	Elapsed time.Duration
}

func (e *Environment) execContext(ctx context.Context) *plan.ExecContext {
	ec := plan.NewExecContext(ctx, e.Logger)
	ec.CheckAborted = e.Config.Execution.CheckAborted
	return ec
}

// Run drains a table plan or evaluates a scalar one.
func (e *Environment) Run(ctx context.Context, p *plan.Plan) (*Result, error) {
	start := time.Now()
	ec := e.execContext(ctx)
	root := p.RootNode()
	res := &Result{}
	if !root.Kind.IsTable() {
		v, err := p.Evaluate(ec, nil)
		if err != nil {
			return nil, err
		}
		res.Columns = []string{root.Kind.String()}
		res.Value = &v
	} else {
		c, err := p.Open(ec)
		if err != nil {
			return nil, err
		}
		rows, err := cursor.Drain(c)
		if cerr := c.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, err
		}
		res.Columns = columnNames(root.TableVar)
		res.Rows = rows
	}
	res.Stats = *ec.Stats
	res.Elapsed = time.Since(start)
	e.Logger.Debug("plan executed",
		log.String("root", root.Kind.String()),
		log.Int("rows", len(res.Rows)),
		log.Duration("elapsed", res.Elapsed))
	return res, nil
}

// Page reads up to Browse.PageSize rows of a browse plan from its first
// row, or from its last row moving backwards.
func (e *Environment) Page(ctx context.Context, p *plan.Plan, backward bool) (*Result, error) {
	start := time.Now()
	ec := e.execContext(ctx)
	c, err := p.Open(ec)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	step := c.Next
	if backward {
		bc, ok := c.(cursor.BackwardsCursor)
		if !ok || !c.Capabilities().Has(cursor.BackwardsNavigable) {
			return nil, errors.CapabilityNotSupportedError(cursor.BackwardsNavigable.String())
		}
		if err := bc.Last(); err != nil {
			return nil, err
		}
		step = bc.Prior
	}

	res := &Result{Columns: columnNames(p.RootNode().TableVar)}
	for len(res.Rows) < e.Config.Browse.PageSize {
		ok, err := step()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		row, err := c.Select()
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, row)
	}
	res.Stats = *ec.Stats
	res.Elapsed = time.Since(start)
	return res, nil
}

func columnNames(tv *catalog.TableVar) []string {
	out := make([]string, len(tv.Columns))
	for i, c := range tv.Columns {
		out[i] = c.Name
	}
	return out
}
