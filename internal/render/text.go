package render

import (
	"sort"
	"strings"

	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/charmbracelet/lipgloss"
)

// Styles used by Text. Colors follow the command palette so the terminal and
// the web page agree.
var (
	nodeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(command.ForegroundColor)).
			Border(lipgloss.NormalBorder()).
			Padding(0, 1)

	highlightStyle = nodeStyle.
			BorderForeground(lipgloss.Color(command.HighlightColor)).
			Foreground(lipgloss.Color(command.HighlightColor)).
			Bold(true)

	messageStyle = lipgloss.NewStyle().Italic(true)
)

// Text draws the projection for a terminal: one row per distinct Y, nodes
// ordered by X, slots separated by "|", highlighted nodes in the highlight
// color, and the message line on top.
func Text(p *Projection) string {
	rows := make(map[int][]NodeView)
	for _, n := range p.Nodes {
		rows[n.Y] = append(rows[n.Y], n)
	}
	ys := make([]int, 0, len(rows))
	for y := range rows {
		ys = append(ys, y)
	}
	sort.Ints(ys)

	var rendered []string
	width := 0
	for _, y := range ys {
		row := rows[y]
		sort.Slice(row, func(i, j int) bool {
			if row[i].X != row[j].X {
				return row[i].X < row[j].X
			}
			return row[i].ID < row[j].ID
		})
		cells := make([]string, 0, len(row)*2)
		for i, n := range row {
			if i > 0 {
				cells = append(cells, " ")
			}
			cells = append(cells, box(n))
		}
		line := lipgloss.JoinHorizontal(lipgloss.Top, cells...)
		if w := lipgloss.Width(line); w > width {
			width = w
		}
		rendered = append(rendered, line)
	}
	for i, line := range rendered {
		rendered[i] = lipgloss.PlaceHorizontal(width, lipgloss.Center, line)
	}

	var sb strings.Builder
	if p.Message != "" {
		sb.WriteString(messageStyle.Render(p.Message))
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Join(rendered, "\n"))
	return sb.String()
}

func box(n NodeView) string {
	label := strings.Join(n.Slots, " | ")
	if label == "" {
		label = " "
	}
	if n.Highlighted {
		return highlightStyle.Render(label)
	}
	return nodeStyle.Render(label)
}
