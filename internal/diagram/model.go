package diagram

// NodeKind classifies a diagram node by its state kind.
type NodeKind string

const (
	NodeKindAction   NodeKind = "action"
	NodeKindDecision NodeKind = "decision"
	NodeKindView     NodeKind = "view"
	NodeKindEnd      NodeKind = "end"
	NodeKindSubflow  NodeKind = "subflow"
	NodeKindStart    NodeKind = "start"   // pseudo-node pointing at the start state
	NodeKindMissing  NodeKind = "missing" // transition target the flow does not hold
)

// Overlay statuses.
const (
	StatusVisited = "visited"
	StatusCurrent = "current"
	StatusFailed  = "failed"
)

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node represents a single state in the diagram.
type Node struct {
	ID       string
	Label    string
	Kind     NodeKind
	Status   *StatusOverlay
	Children []*SubGraph // expanded subflow
}

// SubGraph holds the states of an expanded subflow.
type SubGraph struct {
	Label string
	Nodes []*Node
	Edges []Edge
}

// StatusOverlay carries runtime state for a node.
type StatusOverlay struct {
	Status string
	Visits int
}

// Edge is a transition between two nodes, labelled with its criteria.
type Edge struct {
	From  string
	To    string
	Label string
}
