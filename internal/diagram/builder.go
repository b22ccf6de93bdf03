package diagram

import (
	"fmt"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/pkg/schema"
)

const startNodeID = "__start__"

// Options controls Build.
type Options struct {
	// Registry resolves literal subflow IDs when ExpandSubflows is set.
	Registry       *flow.Registry
	ExpandSubflows bool
	// Overlay maps state IDs to runtime status, see HistoryOverlay.
	Overlay map[string]*StatusOverlay
}

// Build constructs a DiagramModel from a flow. Targets the flow does not
// hold become missing nodes so broken graphs can still be drawn.
func Build(f *flow.Flow, opts Options) (*DiagramModel, error) {
	if f == nil {
		return nil, fmt.Errorf("diagram: flow is nil")
	}

	nodes := make([]*Node, 0, f.StateCount()+1)
	index := make(map[string]*Node, f.StateCount()+1)

	start := &Node{ID: startNodeID, Label: "Start", Kind: NodeKindStart}
	nodes = append(nodes, start)
	index[startNodeID] = start

	for _, s := range f.States() {
		node := &Node{ID: s.ID, Label: nodeLabel(s), Kind: NodeKind(s.Kind), Status: opts.Overlay[s.ID]}
		if opts.ExpandSubflows && s.Is(schema.StateKindSubflow) {
			if sg := buildSubGraph(s, opts.Registry); sg != nil {
				node.Children = append(node.Children, sg)
			}
		}
		nodes = append(nodes, node)
		index[s.ID] = node
	}

	var edges []Edge
	if id := f.StartStateID(); id != "" {
		edges = append(edges, Edge{From: startNodeID, To: id})
	}
	edges = append(edges, stateEdges(f, "")...)

	for _, e := range edges {
		if _, ok := index[e.To]; !ok {
			missing := &Node{ID: e.To, Label: e.To + " (missing)", Kind: NodeKindMissing}
			nodes = append(nodes, missing)
			index[e.To] = missing
		}
	}

	return &DiagramModel{
		Title:  f.ID,
		Nodes:  nodes,
		Edges:  edges,
		Levels: buildLevels(nodes, edges),
	}, nil
}

// nodeLabel returns the state ID with its kind-specific detail on the
// second line. Renderers that cannot wrap show the first line only.
func nodeLabel(s *flow.State) string {
	switch {
	case s.View != nil && s.View.ViewID() != nil:
		return s.ID + "\nview: " + s.View.ViewID().String()
	case s.Subflow != nil && s.Subflow.FlowID != nil:
		return s.ID + "\nflow: " + s.Subflow.FlowID.String()
	case s.Test != nil:
		return s.ID + "\n" + s.Test.String()
	case len(s.Actions) > 0:
		return fmt.Sprintf("%s\n%d actions", s.ID, len(s.Actions))
	default:
		return s.ID
	}
}

// stateEdges returns one edge per transition, node IDs prefixed with ns.
func stateEdges(f *flow.Flow, ns string) []Edge {
	var edges []Edge
	for _, s := range f.States() {
		if s.Transitions == nil {
			continue
		}
		for _, t := range s.Transitions.All() {
			edges = append(edges, Edge{From: ns + s.ID, To: ns + t.Target, Label: edgeLabel(t.Criteria)})
		}
	}
	return edges
}

func edgeLabel(c flow.Criteria) string {
	if c.Kind == flow.CriteriaWildcard {
		return schema.WildcardEventID
	}
	return c.String()
}

// buildSubGraph expands one level of a subflow whose ID is a literal.
func buildSubGraph(s *flow.State, reg *flow.Registry) *SubGraph {
	if reg == nil || s.Subflow == nil || !expressions.IsLiteral(s.Subflow.FlowID) {
		return nil
	}
	child, err := reg.Get(s.Subflow.FlowID.String())
	if err != nil {
		return nil
	}
	ns := s.ID + "."
	sg := &SubGraph{Label: child.ID}
	for _, cs := range child.States() {
		sg.Nodes = append(sg.Nodes, &Node{ID: ns + cs.ID, Label: nodeLabel(cs), Kind: NodeKind(cs.Kind)})
	}
	for _, e := range stateEdges(child, ns) {
		if child.ContainsState(e.To[len(ns):]) {
			sg.Edges = append(sg.Edges, e)
		}
	}
	return sg
}

// buildLevels groups nodes by BFS distance from the start node.
// Unreachable nodes form the last level.
func buildLevels(nodes []*Node, edges []Edge) [][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	seen := map[string]bool{startNodeID: true}
	var levels [][]string
	frontier := []string{startNodeID}
	for len(frontier) > 0 {
		levels = append(levels, frontier)
		var next []string
		for _, id := range frontier {
			for _, to := range adj[id] {
				if !seen[to] {
					seen[to] = true
					next = append(next, to)
				}
			}
		}
		frontier = next
	}

	var rest []string
	for _, n := range nodes {
		if !seen[n.ID] {
			rest = append(rest, n.ID)
		}
	}
	if len(rest) > 0 {
		levels = append(levels, rest)
	}
	return levels
}
