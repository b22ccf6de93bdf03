package diagram

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const boxGap = "  "

// RenderASCII draws the model for a terminal: a row of boxes per level,
// an arrow between levels, then every transition as "from ─[label]→ to".
// Expanded subflows follow, one section each.
func RenderASCII(model *DiagramModel) string {
	var out strings.Builder
	if model.Title != "" {
		fmt.Fprintf(&out, "=== %s ===\n\n", model.Title)
	}

	byID := indexNodes(model.Nodes)
	for i, level := range model.Levels {
		row := make([]box, 0, len(level))
		for _, id := range level {
			if n, ok := byID[id]; ok {
				row = append(row, makeBox(n))
			}
		}
		if len(row) == 0 {
			continue
		}
		writeRow(&out, row)
		if i < len(model.Levels)-1 {
			arrow := strings.Repeat(" ", row[0].width/2)
			out.WriteString(arrow + "│\n" + arrow + "▼\n")
		}
	}

	if len(model.Edges) > 0 {
		out.WriteString("\ntransitions:\n")
		for _, e := range model.Edges {
			out.WriteString("  " + arrowText(e, "") + "\n")
		}
	}

	for _, n := range model.Nodes {
		for _, sg := range n.Children {
			prefix := n.ID + "."
			fmt.Fprintf(&out, "\n--- %s -> %s ---\n", n.ID, sg.Label)
			for _, c := range sg.Nodes {
				fmt.Fprintf(&out, "  %s <%s>\n", strings.TrimPrefix(c.ID, prefix), c.Kind)
			}
			for _, e := range sg.Edges {
				out.WriteString("    " + arrowText(e, prefix) + "\n")
			}
		}
	}
	return out.String()
}

type box struct {
	lines []string
	width int
}

// makeBox frames a node's name, its kind and its status tag.
func makeBox(n *Node) box {
	content := []string{firstLine(n.Label)}
	if n.Kind != NodeKindStart {
		content = append(content, "<"+string(n.Kind)+">")
	}
	if tag := statusTag(n.Status); tag != "" {
		content = append(content, tag)
	}

	inner := 0
	for _, c := range content {
		inner = max(inner, utf8.RuneCountInString(c))
	}
	rule := strings.Repeat("─", inner+2)

	lines := make([]string, 0, len(content)+2)
	lines = append(lines, "┌"+rule+"┐")
	for _, c := range content {
		lines = append(lines, "│ "+c+strings.Repeat(" ", inner-utf8.RuneCountInString(c))+" │")
	}
	lines = append(lines, "└"+rule+"┘")
	return box{lines: lines, width: inner + 4}
}

func writeRow(out *strings.Builder, row []box) {
	height := 0
	for _, bx := range row {
		height = max(height, len(bx.lines))
	}
	for r := range height {
		cells := make([]string, len(row))
		for i, bx := range row {
			if r < len(bx.lines) {
				cells[i] = bx.lines[r]
			} else {
				cells[i] = strings.Repeat(" ", bx.width)
			}
		}
		out.WriteString(strings.Join(cells, boxGap) + "\n")
	}
}

func statusTag(s *StatusOverlay) string {
	if s == nil {
		return ""
	}
	tags := map[string]string{StatusCurrent: "[HERE]", StatusFailed: "[FAIL]", StatusVisited: "[OK]"}
	tag, ok := tags[s.Status]
	if !ok {
		return ""
	}
	if s.Visits > 1 {
		tag = fmt.Sprintf("%s x%d", tag, s.Visits)
	}
	return tag
}

func arrowText(e Edge, prefix string) string {
	from, to := strings.TrimPrefix(e.From, prefix), strings.TrimPrefix(e.To, prefix)
	if e.Label == "" {
		return from + " ─→ " + to
	}
	return from + " ─[" + e.Label + "]→ " + to
}

func firstLine(s string) string {
	head, _, _ := strings.Cut(s, "\n")
	return head
}
