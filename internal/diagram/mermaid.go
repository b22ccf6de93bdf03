package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a DiagramModel as a Mermaid flowchart string.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph TD\n")
	if model.Title != "" {
		fmt.Fprintf(&b, "    %%%% %s\n", model.Title)
	}

	for _, node := range model.Nodes {
		fmt.Fprintf(&b, "    %s\n", mermaidNodeDef(node))

		for _, sg := range node.Children {
			fmt.Fprintf(&b, "    subgraph %s[\"%s: %s\"]\n",
				mermaidSafeID(node.ID+"_"+sg.Label), node.ID, sg.Label)
			for _, subNode := range sg.Nodes {
				fmt.Fprintf(&b, "        %s\n", mermaidNodeDef(subNode))
			}
			for _, edge := range sg.Edges {
				fmt.Fprintf(&b, "        %s\n", mermaidEdge(edge))
			}
			b.WriteString("    end\n")
		}
	}

	for _, edge := range model.Edges {
		fmt.Fprintf(&b, "    %s\n", mermaidEdge(edge))
	}

	b.WriteString("\n")
	b.WriteString("    classDef current fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef visited fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef failed fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	b.WriteString("    classDef missing fill:#4a4a4a,stroke:#333,color:#aaa,stroke-dasharray:5 5\n")

	for _, node := range model.Nodes {
		if cls := mermaidClass(node); cls != "" {
			fmt.Fprintf(&b, "    class %s %s\n", mermaidSafeID(node.ID), cls)
		}
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the shape of its kind.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := mermaidEscape(firstLine(node.Label))

	switch node.Kind {
	case NodeKindDecision:
		return fmt.Sprintf("%s{\"%s\"}", id, label)
	case NodeKindView:
		return fmt.Sprintf("%s[/\"%s\"/]", id, label)
	case NodeKindSubflow:
		return fmt.Sprintf("%s[[\"%s\"]]", id, label)
	case NodeKindStart:
		return fmt.Sprintf("%s((\"%s\"))", id, label)
	case NodeKindEnd:
		return fmt.Sprintf("%s(((\"%s\")))", id, label)
	case NodeKindMissing:
		return fmt.Sprintf("%s>\"%s\"]", id, label)
	default: // action
		return fmt.Sprintf("%s[\"%s\"]", id, label)
	}
}

func mermaidEdge(e Edge) string {
	if e.Label == "" {
		return fmt.Sprintf("%s --> %s", mermaidSafeID(e.From), mermaidSafeID(e.To))
	}
	return fmt.Sprintf("%s -->|\"%s\"| %s", mermaidSafeID(e.From), mermaidEscape(e.Label), mermaidSafeID(e.To))
}

func mermaidClass(node *Node) string {
	if node.Kind == NodeKindMissing {
		return "missing"
	}
	if node.Status == nil {
		return ""
	}
	switch node.Status.Status {
	case StatusCurrent, StatusVisited, StatusFailed:
		return node.Status.Status
	}
	return ""
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_", ":", "_", "/", "_")
	return r.Replace(id)
}

// mermaidEscape replaces characters that break quoted Mermaid text.
func mermaidEscape(s string) string {
	r := strings.NewReplacer(`"`, "#quot;", "|", "#124;", "\n", " ")
	return r.Replace(s)
}
