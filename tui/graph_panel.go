// ABOUTME: Bubble Tea sub-model rendering the strategy's pipeline graph level by level.
// ABOUTME: Nodes are styled by role; each node lists its outgoing edges beneath it.
package tui

import (
	"fmt"
	"strings"

	"github.com/2389-research/neurogems/pipeline"
)

// GraphPanelModel displays the pipeline graph of the session's strategy.
type GraphPanelModel struct {
	name   string
	graph  pipeline.Graph
	width  int
	height int
}

func NewGraphPanelModel() GraphPanelModel {
	return GraphPanelModel{}
}

// SetGraph replaces the rendered graph.
func (m *GraphPanelModel) SetGraph(name string, g pipeline.Graph) {
	m.name = name
	m.graph = g
}

func (m *GraphPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// View renders the graph panel as a string.
func (m GraphPanelModel) View() string {
	name := m.name
	if name == "" {
		name = "(unnamed)"
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("PIPELINE: %s", name)))
	b.WriteString("\n")

	if m.graph.Empty() {
		b.WriteString(MutedStyle.Render("No models attached yet"))
		return m.frame(b.String())
	}

	levels, err := pipeline.Levels(m.graph)
	if err != nil {
		levels = [][]string{nodeIDs(m.graph)}
	}
	for i, level := range levels {
		for _, id := range level {
			n, ok := m.graph.NodeByID(id)
			if !ok {
				continue
			}
			line := fmt.Sprintf("  [%s] %s", n.Role(), nodeLabel(n))
			b.WriteString(StyleForRole(n.Role()).Render(line))
			b.WriteString("\n")
			if i == len(levels)-1 {
				continue
			}
			for _, e := range m.graph.Edges {
				if e.Source != id {
					continue
				}
				target := e.Target
				if t, ok := m.graph.NodeByID(e.Target); ok {
					target = nodeLabel(t)
				}
				b.WriteString(EdgeStyle.Render("    --> " + target))
				b.WriteString("\n")
			}
		}
	}
	for _, p := range pipeline.Validate(m.graph) {
		b.WriteString(AlertErrorStyle.Render("  ! " + p.String()))
		b.WriteString("\n")
	}
	return m.frame(strings.TrimRight(b.String(), "\n"))
}

func (m GraphPanelModel) frame(content string) string {
	style := BorderStyle
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	if m.height > 2 {
		style = style.Height(m.height - 2)
	}
	return style.Render(content)
}

func nodeIDs(g pipeline.Graph) []string {
	out := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = n.ID
	}
	return out
}

// nodeLabel returns the display label for a node, falling back to the node ID.
func nodeLabel(n pipeline.Node) string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}
