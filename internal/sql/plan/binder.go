package plan

import (
	"context"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/config"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/index"
	"github.com/dshills/quantaplan/internal/log"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// Options control binding.
type Options struct {
	EnableSargability            bool
	WarnOrderDependentAggregates bool
	WarningsAsErrors             bool
	// RequestedCapabilities are the capabilities the caller needs from
	// the root cursor.
	RequestedCapabilities cursor.Capability
	// BTreeDegree sizes the buffers of host-materialized orders.
	BTreeDegree int
}

// DefaultOptions returns the binding defaults.
func DefaultOptions() Options {
	return Options{
		EnableSargability:            true,
		WarnOrderDependentAggregates: true,
		RequestedCapabilities:        cursor.Navigable,
		BTreeDegree:                  index.DefaultDegree,
	}
}

// OptionsFromConfig derives binding options from the configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	caps, err := cursor.ParseCapabilities(cfg.Execution.RequestedCapabilities)
	if err != nil {
		return Options{}, errors.Wrapf(err, "execution.requested_capabilities")
	}
	return Options{
		EnableSargability:            cfg.Compiler.EnableSargability,
		WarnOrderDependentAggregates: cfg.Compiler.WarnOrderDependentAggregates,
		WarningsAsErrors:             cfg.Compiler.WarningsAsErrors,
		RequestedCapabilities:        caps | cursor.Navigable,
		BTreeDegree:                  cfg.Device.BTreeDegree,
	}, nil
}

// DeviceResolver returns the device storing a base table, or nil.
type DeviceResolver func(table string) Device

// FrameColumn is one named slot of a binding frame.
type FrameColumn struct {
	Name      string
	DataType  types.DataType
	IsNilable bool
}

type frame struct {
	id       int
	columns  []FrameColumn
	isolated bool
}

// resolvedRef addresses a frame slot relative to the innermost frame.
type resolvedRef struct {
	Depth      int
	Slot       int
	Frame      int
	Correlated bool
}

// Binder binds plans against a catalog. A Binder is not safe for
// concurrent use; Fork returns an independent copy with the same
// configuration.
type Binder struct {
	catalog catalog.Catalog
	devices DeviceResolver
	logger  log.Logger
	opts    Options

	ctx       context.Context
	frames    []*frame
	nextFrame int
	warnings  []*errors.CompilerError
}

// NewBinder creates a binder.
func NewBinder(cat catalog.Catalog, devices DeviceResolver, logger log.Logger, opts Options) *Binder {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.BTreeDegree <= 0 {
		opts.BTreeDegree = index.DefaultDegree
	}
	return &Binder{catalog: cat, devices: devices, logger: logger, opts: opts}
}

// Fork returns a binder with the same configuration and no frames.
func (b *Binder) Fork() *Binder {
	return NewBinder(b.catalog, b.devices, b.logger, b.opts)
}

// Catalog returns the catalog plans are bound against.
func (b *Binder) Catalog() catalog.Catalog { return b.catalog }

// Options returns the binding options.
func (b *Binder) Options() Options { return b.opts }

// ResolveCatalogIdentifier resolves a table variable name.
func (b *Binder) ResolveCatalogIdentifier(name string) (*catalog.TableVar, error) {
	return b.catalog.ResolveCatalogIdentifier(name)
}

// PushFrame opens a binding frame and returns its id. References cannot
// see past an isolated frame unless they are correlated.
func (b *Binder) PushFrame(columns []FrameColumn, isolated bool) int {
	b.nextFrame++
	b.frames = append(b.frames, &frame{id: b.nextFrame, columns: columns, isolated: isolated})
	return b.nextFrame
}

// PopFrame closes the innermost frame.
func (b *Binder) PopFrame() {
	b.frames = b.frames[:len(b.frames)-1]
}

// FrameDepth returns the number of open frames.
func (b *Binder) FrameDepth() int {
	return len(b.frames)
}

func rowFrame(tv *catalog.TableVar) []FrameColumn {
	cols := make([]FrameColumn, len(tv.Columns))
	for i, c := range tv.Columns {
		cols[i] = FrameColumn{Name: c.Name, DataType: c.DataType, IsNilable: c.IsNilable}
	}
	return cols
}

func (b *Binder) resolve(name string, correlated bool) (resolvedRef, FrameColumn, error) {
	crossed := false
	for i := len(b.frames) - 1; i >= 0; i-- {
		f := b.frames[i]
		for slot, c := range f.columns {
			if c.Name != name {
				continue
			}
			if crossed && !correlated {
				return resolvedRef{}, FrameColumn{}, errors.OuterReferenceError(name)
			}
			return resolvedRef{
				Depth:      len(b.frames) - 1 - i,
				Slot:       slot,
				Frame:      f.id,
				Correlated: correlated,
			}, c, nil
		}
		if f.isolated {
			crossed = true
		}
	}
	return resolvedRef{}, FrameColumn{}, errors.ColumnNotFoundError(name, "")
}

func (b *Binder) warn(n *Node, cause error) {
	w := errors.NewCompilerWarning(cause, n.Location)
	b.warnings = append(b.warnings, w)
	b.logger.Warn("plan warning",
		log.String("node", n.String()),
		log.String("code", w.Code()),
		log.String("location", n.Location.String()),
		log.Err(cause))
}

// Bind runs the binding pipeline over the plan: data types,
// characteristics and binding bottom-up, then device negotiation.
// Frames already pushed on the binder are visible to the plan.
func (b *Binder) Bind(ctx context.Context, p *Plan) error {
	root := p.Node(p.Root)
	if root == nil {
		return errors.NewCompilerError(errors.InternalErrorf("plan has no root"), errors.Location{})
	}
	b.ctx = ctx
	b.warnings = nil
	p.binder = b
	defer func() { p.warnings = b.warnings }()

	if err := b.bindNode(p, p.Root); err != nil {
		return err
	}
	if root.Kind.IsTable() && b.opts.RequestedCapabilities != cursor.None {
		root.Capabilities = root.Capabilities.Intersect(b.opts.RequestedCapabilities | cursor.Navigable)
	}
	if err := b.determineDevice(p, p.Root); err != nil {
		return err
	}
	if b.opts.WarningsAsErrors && len(b.warnings) > 0 {
		w := b.warnings[0]
		return errors.NewCompilerError(w.Unwrap(), w.Location)
	}
	p.bound = true
	b.logger.Debug("plan bound",
		log.String("root", root.String()),
		log.Int("nodes", p.Len()),
		log.Int("warnings", len(b.warnings)))
	return nil
}

// bindNode binds one node after its children. Nodes that are already
// bound are left alone, so nodes inserted during binding can be bound on
// the spot.
func (b *Binder) bindNode(p *Plan, id NodeID) error {
	n := p.Node(id)
	if n == nil {
		return errors.AssertionFailedf("node %d does not exist", id)
	}
	if n.state >= StateBound {
		return nil
	}
	if err := n.Op.bindChildren(b, p, n); err != nil {
		return err
	}
	if err := n.Op.determineDataType(b, p, n); err != nil {
		return b.compileError(n, err)
	}
	if err := n.advance(StateTypeDetermined); err != nil {
		return err
	}
	b.inferCharacteristics(p, n)
	if err := n.advance(StateCharacteristicsDetermined); err != nil {
		return err
	}
	if err := n.Op.determineBinding(b, p, n); err != nil {
		return b.compileError(n, err)
	}
	return n.advance(StateBound)
}

func (b *Binder) compileError(n *Node, err error) error {
	var ce *errors.CompilerError
	if errors.As(err, &ce) {
		return err
	}
	return errors.NewCompilerError(err, n.Location)
}

// inferCharacteristics combines the children's characteristics, lets the
// operator adjust them and then re-applies the children as an upper bound.
func (b *Binder) inferCharacteristics(p *Plan, n *Node) {
	c := Characteristics{
		IsLiteral:       len(n.Children) > 0,
		IsFunctional:    true,
		IsDeterministic: true,
		IsRepeatable:    true,
	}
	for _, id := range n.Children {
		cc := p.nodes[id].Characteristics
		c.IsLiteral = c.IsLiteral && cc.IsLiteral
		c.IsFunctional = c.IsFunctional && cc.IsFunctional
		c.IsDeterministic = c.IsDeterministic && cc.IsDeterministic
		c.IsRepeatable = c.IsRepeatable && cc.IsRepeatable
		c.IsNilable = c.IsNilable || cc.IsNilable
	}
	n.Characteristics = c
	n.Op.determineCharacteristics(p, n)
	n.IsFunctional = n.IsFunctional && c.IsFunctional
	n.IsDeterministic = n.IsDeterministic && c.IsDeterministic
	n.IsRepeatable = n.IsRepeatable && c.IsRepeatable
}

// unify gives both operands of a binary node a common type, inserting an
// implicit conversion on the right operand if possible and on the left
// otherwise.
func (b *Binder) unify(p *Plan, n *Node) (types.DataType, error) {
	l, r := p.Child(n.ID, 0), p.Child(n.ID, 1)
	lt, rt := l.DataType, r.DataType
	switch {
	case lt == rt:
		return lt, nil
	case rt == types.Unknown:
		return lt, nil
	case lt == types.Unknown:
		return rt, nil
	}
	if _, ok := types.FindConversion(rt, lt); ok {
		return lt, b.insertConversion(p, n, 1, lt)
	}
	if _, ok := types.FindConversion(lt, rt); ok {
		return rt, b.insertConversion(p, n, 0, rt)
	}
	return nil, errors.TypeMismatchError(lt.Name(), rt.Name(), n.Kind.String())
}

// coerce converts the i-th child of n to dt when it is not already of
// that type.
func (b *Binder) coerce(p *Plan, n *Node, i int, dt types.DataType) error {
	ct := p.Child(n.ID, i).DataType
	if ct == dt || ct == types.Unknown || dt == types.Unknown {
		return nil
	}
	if _, ok := types.FindConversion(ct, dt); !ok {
		return errors.TypeMismatchError(dt.Name(), ct.Name(), n.Kind.String())
	}
	return b.insertConversion(p, n, i, dt)
}

func (b *Binder) insertConversion(p *Plan, parent *Node, i int, to types.DataType) error {
	child := parent.Children[i]
	id := p.Add(&ConvertOp{To: to, Implicit: true}, child)
	p.nodes[id].Location = p.nodes[child].Location
	if err := b.bindNode(p, id); err != nil {
		return err
	}
	p.SetChild(parent.ID, i, id)
	b.logger.Debug("implicit conversion inserted",
		log.String("code", errors.ImplicitConversionInserted),
		log.String("node", parent.String()),
		log.String("from", p.nodes[child].DataType.Name()),
		log.String("to", to.Name()))
	return nil
}

func requireBoolean(p *Plan, n *Node) error {
	for _, c := range n.Children {
		dt := p.nodes[c].DataType
		if dt != types.Boolean && dt != types.Unknown {
			return errors.TypeMismatchError(types.Boolean.Name(), dt.Name(), n.Kind.String())
		}
	}
	return nil
}
