package plan

import (
	"fmt"

	"github.com/dshills/quantaplan/internal/catalog"
	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// NodeID identifies a node within its Plan.
type NodeID int

// InvalidNode is the zero reference.
const InvalidNode NodeID = -1

// Kind is the closed set of plan node kinds.
type Kind int

const (
	KindLiteral Kind = iota
	KindColumnRef
	KindVarRef
	KindCompare
	KindThreeWayCompare
	KindAnd
	KindOr
	KindNot
	KindIsNil
	KindArith
	KindNegate
	KindConvert
	KindPred
	KindSucc
	KindCall
	KindAggregate
	KindAggregatePhase
	KindGet
	KindValues
	KindRestrict
	KindOrder
	KindBrowse
	KindExtend
	KindAdorn
)

var kindNames = [...]string{
	KindLiteral:         "Literal",
	KindColumnRef:       "ColumnRef",
	KindVarRef:          "VarRef",
	KindCompare:         "Compare",
	KindThreeWayCompare: "ThreeWayCompare",
	KindAnd:             "And",
	KindOr:              "Or",
	KindNot:             "Not",
	KindIsNil:           "IsNil",
	KindArith:           "Arith",
	KindNegate:          "Negate",
	KindConvert:         "Convert",
	KindPred:            "Pred",
	KindSucc:            "Succ",
	KindCall:            "Call",
	KindAggregate:       "Aggregate",
	KindAggregatePhase:  "AggregatePhase",
	KindGet:             "Get",
	KindValues:          "Values",
	KindRestrict:        "Restrict",
	KindOrder:           "Order",
	KindBrowse:          "Browse",
	KindExtend:          "Extend",
	KindAdorn:           "Adorn",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsTable reports whether nodes of this kind produce a table.
func (k Kind) IsTable() bool {
	switch k {
	case KindGet, KindValues, KindRestrict, KindOrder, KindBrowse, KindExtend, KindAdorn:
		return true
	}
	return false
}

// Characteristics are the static properties inferred for a node during
// binding. They are combined from a node's children: a node is never more
// deterministic, repeatable or functional than all of its children.
type Characteristics struct {
	IsLiteral         bool
	IsFunctional      bool
	IsDeterministic   bool
	IsRepeatable      bool
	IsNilable         bool
	IsOrderPreserving bool
}

// State is a node's position in its lifecycle.
type State int

const (
	StateUnbound State = iota
	StateTypeDetermined
	StateCharacteristicsDetermined
	StateBound
	StateDeviceNegotiated
	StateExecuting
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateTypeDetermined:
		return "type-determined"
	case StateCharacteristicsDetermined:
		return "characteristics-determined"
	case StateBound:
		return "bound"
	case StateDeviceNegotiated:
		return "device-negotiated"
	case StateExecuting:
		return "executing"
	case StateDisposed:
		return "disposed"
	}
	return "unknown"
}

// Node is one operator instance in a plan. Children are addressed by
// NodeID within the owning Plan.
type Node struct {
	ID       NodeID
	Kind     Kind
	Op       Operator
	Children []NodeID
	Location errors.Location

	// DataType is the scalar result type; nil for table nodes.
	DataType types.DataType
	// TableVar describes the result of table nodes.
	TableVar *catalog.TableVar
	// Order is the order rows are produced in, if known.
	Order *catalog.Order
	// Capabilities offered by the node's cursor.
	Capabilities cursor.Capability

	Characteristics

	Device          Device
	DevicePlan      DevicePlan
	DeviceSupported bool
	CouldSupport    bool
	NoDevice        bool

	state State
}

// State returns the node's lifecycle state.
func (n *Node) State() State {
	return n.state
}

// advance moves the node forward. Moving to the current state is a no-op
// so repeated binding is idempotent; moving backwards is a bug.
func (n *Node) advance(to State) error {
	if to == n.state {
		return nil
	}
	if to < n.state {
		return errors.AssertionFailedf("node %d (%s): cannot move from %s to %s", n.ID, n.Kind, n.state, to)
	}
	n.state = to
	return nil
}

// IsContextLiteral reports whether the node's value is fixed for the
// duration of one execution: functional, deterministic and repeatable.
// Whether it references the current row is checked separately.
func (n *Node) IsContextLiteral() bool {
	return n.IsFunctional && n.IsDeterministic && n.IsRepeatable
}

func (n *Node) String() string {
	return fmt.Sprintf("#%d %s", n.ID, n.Kind)
}
