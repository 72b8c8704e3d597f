package plan

import (
	"strings"

	hll "github.com/axiomhq/hyperloglog"

	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/log"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// AggregateVar is an accumulator variable. The first variable of an
// aggregate holds its result.
type AggregateVar struct {
	Name string
	// DataType nil takes the type of the first value column.
	DataType types.DataType
}

// PhaseKind names the three phases of an aggregate.
type PhaseKind int

const (
	PhaseInit PhaseKind = iota
	PhaseAccumulate
	PhaseFinalize
)

func (k PhaseKind) String() string {
	switch k {
	case PhaseInit:
		return "initialization"
	case PhaseAccumulate:
		return "aggregation"
	}
	return "finalization"
}

// AggregateOp folds the rows of a table into a scalar. Children are the
// source and the initialization, aggregation and finalization phases.
//
// Each execution gets a fresh isolated frame holding the variables and
// then the value columns. Initialization runs once, aggregation runs per
// row in a nested frame until it signals a stop, and finalization runs
// once; the result is the first variable.
type AggregateOp struct {
	baseOp
	Name    string
	Vars    []AggregateVar
	Columns []string
	// OrderDependent aggregates depend on the order rows arrive in.
	OrderDependent bool
	ResultNilable  bool

	colSlots  []int
	unordered bool
}

func (*AggregateOp) Kind() Kind { return KindAggregate }

func (o *AggregateOp) varTypes(b *Binder, p *Plan, n *Node) []FrameColumn {
	src := p.Child(n.ID, 0)
	var valueType types.DataType = types.Unknown
	if len(o.Columns) > 0 {
		if c := src.TableVar.Column(o.Columns[0]); c != nil {
			valueType = c.DataType
		}
	}
	cols := make([]FrameColumn, 0, len(o.Vars)+len(o.Columns))
	for _, v := range o.Vars {
		dt := v.DataType
		if dt == nil {
			dt = valueType
		}
		cols = append(cols, FrameColumn{Name: v.Name, DataType: dt, IsNilable: true})
	}
	for _, name := range o.Columns {
		if c := src.TableVar.Column(name); c != nil {
			cols = append(cols, FrameColumn{Name: c.Name, DataType: c.DataType, IsNilable: c.IsNilable})
		}
	}
	return cols
}

func (o *AggregateOp) bindChildren(b *Binder, p *Plan, n *Node) error {
	if len(n.Children) != 4 {
		return b.compileError(n, errors.UndefinedObjectError("aggregate operator", o.Name))
	}
	if err := b.bindNode(p, n.Children[0]); err != nil {
		return err
	}
	src := p.Child(n.ID, 0)
	if src.TableVar == nil {
		return errors.AssertionFailedf("aggregate source %s is not a table", src)
	}
	for _, name := range o.Columns {
		if src.TableVar.Column(name) == nil {
			return b.compileError(n, errors.ColumnNotFoundError(name, src.TableVar.Name))
		}
	}
	b.PushFrame(o.varTypes(b, p, n), true)
	defer b.PopFrame()

	if err := o.bindPhase(b, p, n, 1, 0); err != nil {
		return err
	}
	b.PushFrame(nil, false)
	err := o.bindPhase(b, p, n, 2, 1)
	b.PopFrame()
	if err != nil {
		return err
	}
	return o.bindPhase(b, p, n, 3, 0)
}

func (o *AggregateOp) bindPhase(b *Binder, p *Plan, n *Node, i, depth int) error {
	ph, ok := p.Child(n.ID, i).Op.(*AggregatePhaseOp)
	if !ok {
		return errors.AssertionFailedf("aggregate child %d is not a phase", i)
	}
	ph.depth = depth
	return b.bindNode(p, n.Children[i])
}

func (o *AggregateOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	src := p.Child(n.ID, 0)
	o.colSlots = make([]int, len(o.Columns))
	for i, name := range o.Columns {
		o.colSlots[i] = src.TableVar.IndexOf(name)
	}
	n.DataType = o.varTypes(b, p, n)[0].DataType
	// Only an explicit Order node pins the row sequence; an order a
	// table happens to deliver is not part of the plan's meaning.
	o.unordered = o.OrderDependent &&
		(src.Kind != KindOrder || src.Order == nil || !src.TableVar.IsOrderUnique(src.Order))
	return nil
}

func (o *AggregateOp) determineCharacteristics(p *Plan, n *Node) {
	n.IsLiteral = false
	n.IsNilable = o.ResultNilable
	if o.unordered {
		n.IsDeterministic = false
	}
}

func (o *AggregateOp) determineBinding(b *Binder, p *Plan, n *Node) error {
	if o.unordered && b.opts.WarnOrderDependentAggregates {
		b.warn(n, errors.Newf(errors.OrderDependentAggregate,
			"%s depends on row order but its source is not uniquely ordered", o.Name))
	}
	return nil
}

// Aggregates are offered to the device; the host evaluates them when the
// device declines.
func (o *AggregateOp) shouldSupport() bool { return true }

func (o *AggregateOp) clone() Operator {
	return &AggregateOp{
		Name:           o.Name,
		Vars:           o.Vars,
		Columns:        o.Columns,
		OrderDependent: o.OrderDependent,
		ResultNilable:  o.ResultNilable,
	}
}

func (o *AggregateOp) emit(e *emitter, p *Plan, n *Node) {
	e.write(o.Name, "(")
	if len(o.Columns) > 0 {
		e.write(strings.Join(o.Columns, ", "), " from ")
	}
	e.child(p, n.Children[0])
	e.write(")")
}

func (o *AggregateOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	if ev, ok := n.DevicePlan.(ScalarDevicePlan); ok && n.DeviceSupported && !n.CouldSupport {
		return ev.Evaluate(ec, env)
	}
	vals := make([]types.Value, len(o.Vars)+len(o.Columns))
	for i := range vals {
		vals[i] = types.NewNullValue()
	}
	frame := env.Push(vals, true)
	if _, err := p.Eval(ec, frame, n.Children[1]); err != nil {
		return types.Value{}, err
	}

	src, err := p.Execute(ec, env, n.Children[0])
	if err != nil {
		return types.Value{}, err
	}
	if err := src.Open(ec.Context); err != nil {
		_ = src.Close()
		return types.Value{}, err
	}
	rows, stopped, err := o.accumulate(ec, frame, p, n, src, vals)
	if cerr := src.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return types.Value{}, err
	}

	if _, err := p.Eval(ec, frame, n.Children[3]); err != nil {
		return types.Value{}, err
	}
	ec.logger().Debug("aggregate evaluated",
		log.String("aggregate", o.Name),
		log.Int("rows", rows),
		log.Bool("stopped", stopped))
	return vals[0], nil
}

func (o *AggregateOp) accumulate(ec *ExecContext, frame *Env, p *Plan, n *Node, src cursor.Cursor, vals []types.Value) (rows int, stopped bool, err error) {
	base := len(o.Vars)
	for {
		ok, err := src.Next()
		if err != nil || !ok {
			return rows, false, err
		}
		row, err := src.Select()
		if err != nil {
			return rows, false, err
		}
		rows++
		ec.stats().RowsRead++
		for i := len(o.colSlots) - 1; i >= 0; i-- {
			vals[base+i] = row.Values[o.colSlots[i]]
		}
		stop, err := p.evalTrue(ec, frame.Push(nil, false), n.Children[2])
		if err != nil {
			return rows, false, err
		}
		if stop {
			return rows, true, nil
		}
	}
}

// NativePhase runs a phase in Go. vars is the aggregate frame: the
// variables followed by the value columns of the current row.
type NativePhase func(vars []types.Value) error

// Assignment sets an aggregate variable.
type Assignment struct {
	Target string
	Value  NodeID
}

// Phase describes one aggregate phase. The assignments run in order when
// the guard holds; a true Stop ends aggregation early.
type Phase struct {
	Guard  NodeID
	Assign []Assignment
	Stop   NodeID
	Native NativePhase
}

// AggregatePhaseOp runs the assignments of one phase and evaluates to the
// stop signal. Children are the optional guard, the assigned values and
// the optional stop condition.
type AggregatePhaseOp struct {
	baseOp
	Phase    PhaseKind
	Targets  []string
	HasGuard bool
	HasStop  bool
	Native   NativePhase

	refs  []resolvedRef
	depth int
}

func (*AggregatePhaseOp) Kind() Kind { return KindAggregatePhase }

func (o *AggregatePhaseOp) values(n *Node) []NodeID {
	vs := n.Children
	if o.HasGuard {
		vs = vs[1:]
	}
	if o.HasStop {
		vs = vs[:len(vs)-1]
	}
	return vs
}

func (o *AggregatePhaseOp) determineDataType(b *Binder, p *Plan, n *Node) error {
	if o.HasGuard {
		if dt := p.Child(n.ID, 0).DataType; dt != types.Boolean {
			return errors.TypeMismatchError(types.Boolean.Name(), dt.Name(), o.Phase.String()+" guard")
		}
	}
	if o.HasStop {
		if dt := p.Child(n.ID, len(n.Children)-1).DataType; dt != types.Boolean {
			return errors.TypeMismatchError(types.Boolean.Name(), dt.Name(), o.Phase.String()+" stop")
		}
	}
	values := o.values(n)
	if len(values) != len(o.Targets) {
		return errors.AssertionFailedf("%s assigns %d targets from %d values", o.Phase, len(o.Targets), len(values))
	}
	o.refs = make([]resolvedRef, len(o.Targets))
	offset := 0
	if o.HasGuard {
		offset = 1
	}
	for i, t := range o.Targets {
		ref, col, err := b.resolve(t, false)
		if err != nil {
			return err
		}
		o.refs[i] = ref
		if err := b.coerce(p, n, offset+i, col.DataType); err != nil {
			return err
		}
	}
	n.DataType = types.Boolean
	return nil
}

func (o *AggregatePhaseOp) determineCharacteristics(p *Plan, n *Node) {
	n.IsLiteral = false
	n.IsNilable = false
}

func (o *AggregatePhaseOp) clone() Operator {
	return &AggregatePhaseOp{
		Phase:    o.Phase,
		Targets:  o.Targets,
		HasGuard: o.HasGuard,
		HasStop:  o.HasStop,
		Native:   o.Native,
	}
}

func (o *AggregatePhaseOp) emit(e *emitter, p *Plan, n *Node) {
	e.write(o.Phase.String(), " {")
	values := o.values(n)
	for i, t := range o.Targets {
		if i > 0 {
			e.write(";")
		}
		e.write(" ", t, " := ")
		e.node(p, values[i])
	}
	if o.Native != nil {
		e.write(" native")
	}
	e.write(" }")
}

func (o *AggregatePhaseOp) evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error) {
	if o.HasGuard {
		ok, err := p.evalTrue(ec, env, n.Children[0])
		if err != nil {
			return types.Value{}, err
		}
		if !ok {
			return types.NewBooleanValue(false), nil
		}
	}
	for i, id := range o.values(n) {
		v, err := p.Eval(ec, env, id)
		if err != nil {
			return types.Value{}, err
		}
		if err := env.Set(o.refs[i].Depth, o.refs[i].Slot, v); err != nil {
			return types.Value{}, err
		}
	}
	if o.Native != nil {
		f, err := env.frame(o.depth)
		if err != nil {
			return types.Value{}, err
		}
		if err := o.Native(f.values); err != nil {
			return types.Value{}, err
		}
	}
	if o.HasStop {
		stop, err := p.evalTrue(ec, env, n.Children[len(n.Children)-1])
		if err != nil {
			return types.Value{}, err
		}
		return types.NewBooleanValue(stop), nil
	}
	return types.NewBooleanValue(false), nil
}

// AggregateSpec describes an aggregate invocation assembled with a
// Builder.
type AggregateSpec struct {
	Name           string
	Vars           []AggregateVar
	Columns        []string
	OrderDependent bool
	ResultNilable  bool
	Init           Phase
	Accumulate     Phase
	Finalize       Phase
}

// Phase adds an aggregate phase node.
func (b *Builder) Phase(kind PhaseKind, ph Phase) NodeID {
	op := &AggregatePhaseOp{Phase: kind, Native: ph.Native}
	var children []NodeID
	if ph.Guard != InvalidNode {
		op.HasGuard = true
		children = append(children, ph.Guard)
	}
	for _, a := range ph.Assign {
		op.Targets = append(op.Targets, a.Target)
		children = append(children, a.Value)
	}
	if ph.Stop != InvalidNode {
		op.HasStop = true
		children = append(children, ph.Stop)
	}
	return b.add(op, children...)
}

// EmptyPhase has no guard, assignments or stop condition.
func EmptyPhase() Phase {
	return Phase{Guard: InvalidNode, Stop: InvalidNode}
}

// AggregateOf adds an aggregate over src described by spec.
func (b *Builder) AggregateOf(src NodeID, spec AggregateSpec) NodeID {
	init := b.Phase(PhaseInit, spec.Init)
	acc := b.Phase(PhaseAccumulate, spec.Accumulate)
	fin := b.Phase(PhaseFinalize, spec.Finalize)
	return b.add(&AggregateOp{
		Name:           spec.Name,
		Vars:           spec.Vars,
		Columns:        spec.Columns,
		OrderDependent: spec.OrderDependent,
		ResultNilable:  spec.ResultNilable,
	}, src, init, acc, fin)
}

// Aggregate adds a built-in aggregate over the given columns of src. An
// unknown name fails at bind time.
func (b *Builder) Aggregate(name string, src NodeID, columns ...string) NodeID {
	def, ok := builtinAggregates[strings.ToLower(name)]
	if !ok || len(columns) < def.minColumns || len(columns) > def.maxColumns {
		return b.add(&AggregateOp{Name: name, Columns: columns}, src)
	}
	spec := def.build(b, columns)
	spec.Columns = columns
	return b.AggregateOf(src, spec)
}

// Count adds Count over src.
func (b *Builder) Count(src NodeID) NodeID {
	return b.Aggregate("Count", src)
}

type aggregateDef struct {
	minColumns, maxColumns int
	build                  func(b *Builder, columns []string) AggregateSpec
}

const resultVar = "$Result"

func phase(guard NodeID, assign ...Assignment) Phase {
	return Phase{Guard: guard, Assign: assign, Stop: InvalidNode}
}

var builtinAggregates = map[string]aggregateDef{
	"count": {0, 1, func(b *Builder, columns []string) AggregateSpec {
		guard := InvalidNode
		if len(columns) == 1 {
			guard = b.Not(b.IsNil(b.Var(columns[0])))
		}
		return AggregateSpec{
			Name:       "Count",
			Vars:       []AggregateVar{{Name: resultVar, DataType: types.Integer}},
			Init:       phase(InvalidNode, Assignment{resultVar, b.Int(0)}),
			Accumulate: phase(guard, Assignment{resultVar, b.Add(b.Var(resultVar), b.Int(1))}),
			Finalize:   EmptyPhase(),
		}
	}},
	"sum": {1, 1, func(b *Builder, columns []string) AggregateSpec {
		c := columns[0]
		return AggregateSpec{
			Name: "Sum",
			Vars: []AggregateVar{{Name: resultVar}},
			Init: EmptyPhase(),
			Accumulate: phase(b.Not(b.IsNil(b.Var(c))), Assignment{resultVar,
				b.Call("IfNil", b.Add(b.Var(resultVar), b.Var(c)), b.Var(c))}),
			Finalize:      EmptyPhase(),
			ResultNilable: true,
		}
	}},
	"min": {1, 1, func(b *Builder, columns []string) AggregateSpec {
		return extremum(b, "Min", columns[0], OpLess)
	}},
	"max": {1, 1, func(b *Builder, columns []string) AggregateSpec {
		return extremum(b, "Max", columns[0], OpGreater)
	}},
	"avg": {1, 1, func(b *Builder, columns []string) AggregateSpec {
		c := columns[0]
		return AggregateSpec{
			Name: "Avg",
			Vars: []AggregateVar{
				{Name: resultVar, DataType: types.Decimal},
				{Name: "$Total", DataType: types.Decimal},
				{Name: "$Count", DataType: types.Integer},
			},
			Init: phase(InvalidNode,
				Assignment{"$Total", b.Decimal("0")},
				Assignment{"$Count", b.Int(0)}),
			Accumulate: phase(b.Not(b.IsNil(b.Var(c))),
				Assignment{"$Total", b.Add(b.Var("$Total"), b.Var(c))},
				Assignment{"$Count", b.Add(b.Var("$Count"), b.Int(1))}),
			Finalize: phase(b.Greater(b.Var("$Count"), b.Int(0)),
				Assignment{resultVar, b.Div(b.Var("$Total"), b.Var("$Count"))}),
			ResultNilable: true,
		}
	}},
	"first": {1, 1, func(b *Builder, columns []string) AggregateSpec {
		acc := phase(InvalidNode,
			Assignment{resultVar, b.Var(columns[0])},
			Assignment{"$Seen", b.Bool(true)})
		acc.Stop = b.Var("$Seen")
		return AggregateSpec{
			Name:           "First",
			Vars:           []AggregateVar{{Name: resultVar}, {Name: "$Seen", DataType: types.Boolean}},
			Init:           phase(InvalidNode, Assignment{"$Seen", b.Bool(false)}),
			Accumulate:     acc,
			Finalize:       EmptyPhase(),
			OrderDependent: true,
			ResultNilable:  true,
		}
	}},
	"last": {1, 1, func(b *Builder, columns []string) AggregateSpec {
		return AggregateSpec{
			Name:           "Last",
			Vars:           []AggregateVar{{Name: resultVar}},
			Init:           EmptyPhase(),
			Accumulate:     phase(InvalidNode, Assignment{resultVar, b.Var(columns[0])}),
			Finalize:       EmptyPhase(),
			OrderDependent: true,
			ResultNilable:  true,
		}
	}},
	"approxcountdistinct": {1, 1, func(b *Builder, columns []string) AggregateSpec {
		return approxCountDistinct(columns[0])
	}},
}

// extremum keeps the value for which cmp holds against the current result.
func extremum(b *Builder, name, c string, cmp CompareOperator) AggregateSpec {
	guard := b.And(
		b.Not(b.IsNil(b.Var(c))),
		b.Or(b.IsNil(b.Var(resultVar)), b.Compare(cmp, b.Var(c), b.Var(resultVar))))
	return AggregateSpec{
		Name:          name,
		Vars:          []AggregateVar{{Name: resultVar}},
		Init:          EmptyPhase(),
		Accumulate:    phase(guard, Assignment{resultVar, b.Var(c)}),
		Finalize:      EmptyPhase(),
		ResultNilable: true,
	}
}

// approxCountDistinct estimates distinct non-nil values with a
// HyperLogLog sketch held in the second variable.
func approxCountDistinct(c string) AggregateSpec {
	const sketch, value = 1, 2
	return AggregateSpec{
		Name: "ApproxCountDistinct",
		Vars: []AggregateVar{
			{Name: resultVar, DataType: types.Integer},
			{Name: "$Sketch", DataType: types.Unknown},
		},
		Init: Phase{Guard: InvalidNode, Stop: InvalidNode, Native: func(vars []types.Value) error {
			vars[sketch] = types.NewValue(hll.New())
			return nil
		}},
		Accumulate: Phase{Guard: InvalidNode, Stop: InvalidNode, Native: func(vars []types.Value) error {
			v := vars[value]
			if v.Null {
				return nil
			}
			sk, ok := vars[sketch].Data.(*hll.Sketch)
			if !ok {
				return errors.AssertionFailedf("distinct sketch not initialized")
			}
			sk.Insert([]byte(types.FormatLiteral(v.Type(), v, true)))
			return nil
		}},
		Finalize: Phase{Guard: InvalidNode, Stop: InvalidNode, Native: func(vars []types.Value) error {
			sk, ok := vars[sketch].Data.(*hll.Sketch)
			if !ok {
				return errors.AssertionFailedf("distinct sketch not initialized")
			}
			vars[0] = types.NewIntegerValue(int64(sk.Estimate()))
			return nil
		}},
	}
}
