package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

var kindShapes = map[NodeKind]cgraph.Shape{
	NodeKindAction:   cgraph.BoxShape,
	NodeKindDecision: cgraph.DiamondShape,
	NodeKindSubflow:  cgraph.HexagonShape,
	NodeKindView:     cgraph.EllipseShape,
	NodeKindStart:    cgraph.CircleShape,
	NodeKindEnd:      cgraph.DoubleCircleShape,
	NodeKindMissing:  cgraph.BoxShape,
}

var statusFills = map[string]string{
	StatusVisited: "#2d6a2d",
	StatusFailed:  "#8b1a1a",
	StatusCurrent: "#1a5276",
}

// RenderImage lays the model out with dot and encodes it as format
// (graphviz.PNG, graphviz.SVG, ...).
func RenderImage(ctx context.Context, model *DiagramModel, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.DOT)

	g, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: graphviz: %w", err)
	}
	defer g.Close()
	g.SetRankDir(cgraph.TBRank)
	if model.Title != "" {
		g.SetLabel(model.Title)
	}

	r := &dotWriter{root: g, nodes: make(map[string]*cgraph.Node, len(model.Nodes))}
	if err := r.addNodes(g, model.Nodes); err != nil {
		return nil, err
	}
	for _, n := range model.Nodes {
		for i, sg := range n.Children {
			if err := r.addCluster(fmt.Sprintf("cluster_%s_%d", n.ID, i), sg); err != nil {
				return nil, err
			}
		}
	}
	byID := indexNodes(model.Nodes)
	for _, e := range model.Edges {
		r.addEdge(e, byID[e.To])
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

type dotWriter struct {
	root  *cgraph.Graph
	nodes map[string]*cgraph.Node
}

func (w *dotWriter) addNodes(g *cgraph.Graph, nodes []*Node) error {
	for _, n := range nodes {
		gn, err := g.CreateNodeByName(n.ID)
		if err != nil {
			return fmt.Errorf("diagram: node %s: %w", n.ID, err)
		}
		gn.SetLabel(n.Label)
		styleNode(gn, n)
		w.nodes[n.ID] = gn
	}
	return nil
}

func (w *dotWriter) addCluster(name string, sg *SubGraph) error {
	sub, err := w.root.CreateSubGraphByName(name)
	if err != nil {
		return fmt.Errorf("diagram: subgraph %s: %w", sg.Label, err)
	}
	sub.SetLabel(sg.Label)
	sub.SetStyle(cgraph.DashedGraphStyle)
	if err := w.addNodes(sub, sg.Nodes); err != nil {
		return err
	}
	byID := indexNodes(sg.Nodes)
	for _, e := range sg.Edges {
		w.addEdge(e, byID[e.To])
	}
	return nil
}

// addEdge draws wildcard transitions and edges into missing states dashed.
func (w *dotWriter) addEdge(e Edge, target *Node) {
	from, to := w.nodes[e.From], w.nodes[e.To]
	if from == nil || to == nil {
		return
	}
	ge, err := w.root.CreateEdgeByName("", from, to)
	if err != nil {
		return
	}
	if e.Label != "" {
		ge.SetLabel(e.Label)
	}
	if e.Label == "*" || (target != nil && target.Kind == NodeKindMissing) {
		ge.SetStyle(cgraph.DashedEdgeStyle)
	}
}

func styleNode(gn *cgraph.Node, n *Node) {
	if shape, ok := kindShapes[n.Kind]; ok {
		gn.SetShape(shape)
	}
	switch n.Kind {
	case NodeKindStart:
		gn.SetWidth(0.5)
		gn.SetHeight(0.5)
	case NodeKindMissing:
		gn.SetStyle(cgraph.DashedNodeStyle)
		gn.SetFontColor("#888888")
	}
	if n.Status == nil {
		return
	}
	if fill, ok := statusFills[n.Status.Status]; ok {
		gn.SetStyle(cgraph.FilledNodeStyle)
		gn.SetFillColor(fill)
		gn.SetFontColor("white")
	}
}

func indexNodes(nodes []*Node) map[string]*Node {
	m := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}
