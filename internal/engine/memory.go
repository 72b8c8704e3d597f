package engine

import (
	"context"
	"sync"

	"github.com/cockroachdb/redact"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/index"
	"github.com/dshills/quantaplan/internal/log"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/plan"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// MemoryEngine stores tables in memory and executes reads of them for
// bound plans.
type MemoryEngine struct {
	opts   Options
	logger log.Logger
	stats  Stats

	mu     sync.RWMutex
	tables map[string]*index.Manager
	// access paths prepared for statements, keyed by verbatim statement
	paths map[string]*accessPath
}

// NewMemoryEngine creates an empty engine.
func NewMemoryEngine(opts Options, logger log.Logger) *MemoryEngine {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.BTreeDegree < 2 {
		opts.BTreeDegree = index.DefaultDegree
	}
	if opts.Name == "" {
		opts.Name = "Memory"
	}
	return &MemoryEngine{
		opts:   opts,
		logger: logger.With(log.String("device", opts.Name)),
		tables: make(map[string]*index.Manager),
		paths:  make(map[string]*accessPath),
	}
}

// Name returns the device name.
func (m *MemoryEngine) Name() string { return m.opts.Name }

// Stats returns the engine counters.
func (m *MemoryEngine) Stats() StatsSnapshot { return m.stats.Snapshot() }

// CreateTable registers tv in the catalog and stores its rows here.
func (m *MemoryEngine) CreateTable(cat catalog.Catalog, tv *catalog.TableVar) error {
	tv.IsBase = true
	if err := cat.CreateTableVar(tv); err != nil {
		return err
	}
	stored, err := cat.ResolveCatalogIdentifier(tv.Name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[tv.Name] = index.NewManager(stored, m.opts.BTreeDegree)
	m.logger.Debug("table created", log.String("table", tv.Name), log.Int("keys", len(stored.Keys)))
	return nil
}

// DropTable removes a table from the catalog and the engine.
func (m *MemoryEngine) DropTable(cat catalog.Catalog, name string) error {
	if err := cat.DropTableVar(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, name)
	for k, p := range m.paths {
		if p.table == name {
			delete(m.paths, k)
		}
	}
	return nil
}

// Table returns the store of a table.
func (m *MemoryEngine) Table(name string) (*index.Manager, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	return t, ok
}

// Insert adds rows to a table.
func (m *MemoryEngine) Insert(table string, rows ...*cursor.Row) error {
	t, ok := m.Table(table)
	if !ok {
		return errors.TableNotFoundError(table)
	}
	for _, r := range rows {
		if err := t.Insert(r); err != nil {
			return err
		}
	}
	return nil
}

// Resolver reports the engine as the device of the tables it stores.
func (m *MemoryEngine) Resolver() plan.DeviceResolver {
	return func(table string) plan.Device {
		if _, ok := m.Table(table); ok {
			return m
		}
		return nil
	}
}

// accessPath is a traversal of one table index.
type accessPath struct {
	table   string
	store   *index.Manager
	idx     *index.OrderedIndex
	reverse bool
}

// Prepare translates the subtree rooted at id. Reads and ordered reads of
// stored tables are supported, restrictions when enabled, and Count over
// a supported read.
func (m *MemoryEngine) Prepare(ctx context.Context, p *plan.Plan, id plan.NodeID) (plan.DevicePlan, error) {
	m.stats.Prepared.Add(1)
	n := p.Node(id)
	dp := &devicePlan{engine: m, statement: p.EmitStatement(id, plan.EmitVerbatim)}

	switch n.Kind {
	case plan.KindGet, plan.KindOrder:
		dp.path, dp.messages = m.translate(p, n)
	case plan.KindRestrict:
		m.prepareRestrict(p, n, dp)
	case plan.KindAggregate:
		m.prepareAggregate(p, n, dp)
	default:
		dp.decline(redact.Sprintf("%s is not supported", redact.Safe(n.Kind.String())))
	}

	if !dp.IsSupported() {
		m.stats.Declined.Add(1)
	}
	m.logger.Debug("prepared",
		log.String("node", n.String()),
		log.Bool("supported", dp.IsSupported()),
		log.Bool("could_support", dp.could))
	return dp, nil
}

// translate maps a read or ordered read onto an index. The result is
// cached by statement.
func (m *MemoryEngine) translate(p *plan.Plan, n *plan.Node) (*accessPath, []redact.RedactableString) {
	stmt := p.EmitStatement(n.ID, plan.EmitVerbatim)
	m.mu.RLock()
	cached, ok := m.paths[stmt]
	m.mu.RUnlock()
	if ok {
		m.stats.CacheHits.Add(1)
		return cached, nil
	}

	var path *accessPath
	switch n.Kind {
	case plan.KindGet:
		name := n.Op.(*plan.GetOp).Table
		store, ok := m.Table(name)
		if !ok {
			return nil, []redact.RedactableString{redact.Sprintf("table %s is not stored here", name)}
		}
		path = &accessPath{table: name, store: store, idx: store.Clustered()}
	case plan.KindOrder:
		src, msgs := m.translate(p, p.Child(n.ID, 0))
		if src == nil {
			return nil, msgs
		}
		idx, reverse := src.store.Index(n.Op.(*plan.OrderOp).Order())
		path = &accessPath{table: src.table, store: src.store, idx: idx, reverse: reverse}
	default:
		return nil, []redact.RedactableString{
			redact.Sprintf("%s cannot be read from an index", redact.Safe(n.Kind.String())),
		}
	}

	m.mu.Lock()
	m.paths[stmt] = path
	m.mu.Unlock()
	return path, nil
}

func (m *MemoryEngine) prepareRestrict(p *plan.Plan, n *plan.Node, dp *devicePlan) {
	if !m.opts.NativeRestrict {
		dp.decline(redact.Sprintf("restrictions are evaluated by the host"))
		return
	}
	path, msgs := m.translate(p, p.Child(n.ID, 0))
	if path == nil {
		dp.decline(msgs...)
		return
	}
	dp.path = path
	dp.plan = p
	dp.cond = n.Children[1]
	dp.restrict = n
	// Conditions reading variables or outer rows are only known at run
	// time.
	p.Walk(n.ID, func(c *plan.Node) bool {
		switch op := c.Op.(type) {
		case *plan.VarRefOp:
			dp.could = true
		case *plan.ColumnRefOp:
			if op.Correlated {
				dp.could = true
			}
		}
		return !dp.could
	})
	if len(n.Children) > 2 {
		dp.could = true
	}
}

func (m *MemoryEngine) prepareAggregate(p *plan.Plan, n *plan.Node, dp *devicePlan) {
	agg := n.Op.(*plan.AggregateOp)
	if agg.Name != "Count" || len(agg.Columns) > 0 {
		dp.decline(redact.Sprintf("aggregate %s is evaluated by the host", redact.Safe(agg.Name)))
		return
	}
	path, msgs := m.translate(p, p.Child(n.ID, 0))
	if path == nil {
		dp.decline(msgs...)
		return
	}
	dp.path = path
	dp.count = true
}

// devicePlan is the engine's translation of one node.
type devicePlan struct {
	engine    *MemoryEngine
	statement string
	path      *accessPath
	messages  []redact.RedactableString
	could     bool

	// restriction evaluated over the path
	plan     *plan.Plan
	restrict *plan.Node
	cond     plan.NodeID

	count bool
}

var _ plan.ScalarDevicePlan = (*devicePlan)(nil)

func (d *devicePlan) decline(msgs ...redact.RedactableString) {
	d.path = nil
	d.messages = append(d.messages, msgs...)
}

func (d *devicePlan) IsSupported() bool { return d.path != nil }

func (d *devicePlan) CouldSupport() bool { return d.could }

func (d *devicePlan) TranslationMessages() []redact.RedactableString { return d.messages }

// Statement returns the verbatim statement the plan was prepared for.
func (d *devicePlan) Statement() string { return d.statement }

func (d *devicePlan) Open(ec *plan.ExecContext, env *plan.Env) (cursor.Cursor, error) {
	if d.path == nil {
		return nil, errors.AssertionFailedf("opening a declined device plan")
	}
	d.engine.stats.Opened.Add(1)
	tc := &tableCursor{
		Cursor: d.path.idx.NewCursor(index.FullRange, d.path.reverse),
		store:  d.path.store,
	}
	if d.restrict == nil {
		return tc, nil
	}
	return &filterCursor{tableCursor: tc, ec: ec, env: env, plan: d.plan, restrict: d.restrict, cond: d.cond}, nil
}

// Evaluate counts the rows of the path.
func (d *devicePlan) Evaluate(ec *plan.ExecContext, env *plan.Env) (types.Value, error) {
	if !d.count {
		return types.Value{}, errors.AssertionFailedf("device plan %q is not scalar", d.statement)
	}
	d.engine.stats.Opened.Add(1)
	return types.NewIntegerValue(int64(d.path.store.Len())), nil
}
