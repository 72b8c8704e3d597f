// Package plan implements the relational plan-node execution core: a tree
// of operator nodes that is bound against a catalog, negotiated against
// storage devices and executed through the cursor protocol.
//
// Nodes live in a Plan arena and refer to their children by NodeID, so
// binding can substitute a child (for example wrapping a Restrict source in
// an Order) with a single index write.
package plan

import (
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// Operator is the per-kind payload of a node. The set of operators is
// closed; every implementation lives in this package.
type Operator interface {
	Kind() Kind

	// bindChildren binds the node's children, pushing any frames the
	// children are evaluated in.
	bindChildren(b *Binder, p *Plan, n *Node) error
	determineDataType(b *Binder, p *Plan, n *Node) error
	// determineCharacteristics adjusts the characteristics combined from
	// the children. It may only lower IsFunctional, IsDeterministic and
	// IsRepeatable.
	determineCharacteristics(p *Plan, n *Node)
	determineBinding(b *Binder, p *Plan, n *Node) error

	// shouldSupport reports whether the node asks its device to execute it.
	shouldSupport() bool
	// tolerateUnsupported suppresses the warning when the device declines.
	tolerateUnsupported() bool

	emit(e *emitter, p *Plan, n *Node)

	// clone copies the operator's build-time configuration. Bound state
	// is not copied.
	clone() Operator
}

type scalarOperator interface {
	Operator
	evaluate(ec *ExecContext, env *Env, p *Plan, n *Node) (types.Value, error)
}

type tableOperator interface {
	Operator
	open(ec *ExecContext, env *Env, p *Plan, n *Node) (cursor.Cursor, error)
}

// baseOp provides the default protocol behavior.
type baseOp struct{}

func (baseOp) bindChildren(b *Binder, p *Plan, n *Node) error {
	for _, c := range n.Children {
		if err := b.bindNode(p, c); err != nil {
			return err
		}
	}
	return nil
}

func (baseOp) determineCharacteristics(p *Plan, n *Node) {}

func (baseOp) determineBinding(b *Binder, p *Plan, n *Node) error { return nil }

func (baseOp) shouldSupport() bool { return false }

func (baseOp) tolerateUnsupported() bool { return true }

// Plan is an arena of nodes with a designated root.
type Plan struct {
	nodes    []*Node
	Root     NodeID
	warnings []*errors.CompilerError
	binder   *Binder
	bound    bool
}

// NewPlan creates an empty plan.
func NewPlan() *Plan {
	return &Plan{Root: InvalidNode}
}

// Add appends a node and returns its id.
func (p *Plan) Add(op Operator, children ...NodeID) NodeID {
	id := NodeID(len(p.nodes))
	p.nodes = append(p.nodes, &Node{
		ID:       id,
		Kind:     op.Kind(),
		Op:       op,
		Children: append([]NodeID(nil), children...),
	})
	return id
}

// Node returns the node with the given id, or nil.
func (p *Plan) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(p.nodes) {
		return nil
	}
	return p.nodes[id]
}

// Child returns the i-th child of the node.
func (p *Plan) Child(id NodeID, i int) *Node {
	return p.nodes[p.nodes[id].Children[i]]
}

// RootNode returns the root node.
func (p *Plan) RootNode() *Node {
	return p.Node(p.Root)
}

// Len returns the number of nodes in the arena, reachable or not.
func (p *Plan) Len() int {
	return len(p.nodes)
}

// SetChild replaces the i-th child of parent.
func (p *Plan) SetChild(parent NodeID, i int, child NodeID) {
	p.nodes[parent].Children[i] = child
}

// Warnings returns the diagnostics recorded by the last Bind.
func (p *Plan) Warnings() []*errors.CompilerError {
	return p.warnings
}

// IsBound reports whether Bind completed successfully.
func (p *Plan) IsBound() bool {
	return p.bound
}

// Walk visits the subtree rooted at id in pre-order. Returning false from
// fn skips the node's children.
func (p *Plan) Walk(id NodeID, fn func(n *Node) bool) {
	n := p.Node(id)
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		p.Walk(c, fn)
	}
}

// Import copies the subtree rooted at id in src into p and returns the id
// of the copy. Operators are cloned unbound.
func (p *Plan) Import(src *Plan, id NodeID) NodeID {
	n := src.nodes[id]
	children := make([]NodeID, len(n.Children))
	for i, c := range n.Children {
		children[i] = p.Import(src, c)
	}
	nid := p.Add(n.Op.clone(), children...)
	p.nodes[nid].Location = n.Location
	return nid
}

// Close disposes every node and releases cached browse variants.
func (p *Plan) Close() error {
	var first error
	for _, n := range p.nodes {
		if br, ok := n.Op.(*BrowseOp); ok {
			if err := br.closeVariants(); err != nil && first == nil {
				first = err
			}
		}
		n.state = StateDisposed
	}
	return first
}
