// ABOUTME: Structural checks and layering of a pipeline graph using a directed graph library.
// ABOUTME: Also exports the graph as DOT text for graphviz rendering and CLI export.
package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
)

// Problem describes one structural issue in a graph.
type Problem struct {
	Element string
	Message string
}

func (p Problem) String() string { return p.Element + ": " + p.Message }

func build(g Graph) (graph.Graph[string, string], []Problem) {
	dg := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	var problems []Problem

	for _, n := range g.Nodes {
		if n.ID == "" {
			problems = append(problems, Problem{Element: "node", Message: "empty id"})
			continue
		}
		err := dg.AddVertex(n.ID, graph.VertexAttribute("label", labelOf(n)), graph.VertexAttribute("shape", shapeOf(n)))
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			problems = append(problems, Problem{Element: n.ID, Message: "duplicate node id"})
		}
	}

	for _, e := range g.Edges {
		err := dg.AddEdge(e.Source, e.Target)
		switch {
		case err == nil:
		case errors.Is(err, graph.ErrVertexNotFound):
			problems = append(problems, Problem{Element: edgeName(e), Message: "references an unknown node"})
		case errors.Is(err, graph.ErrEdgeCreatesCycle):
			problems = append(problems, Problem{Element: edgeName(e), Message: "creates a cycle"})
		case errors.Is(err, graph.ErrEdgeAlreadyExists):
			problems = append(problems, Problem{Element: edgeName(e), Message: "duplicate edge"})
		default:
			problems = append(problems, Problem{Element: edgeName(e), Message: err.Error()})
		}
	}
	return dg, problems
}

// Validate reports structural problems. The backend remains the source of truth,
// so callers log these rather than reject the graph.
func Validate(g Graph) []Problem {
	_, problems := build(g)
	return problems
}

// Levels groups node ids by topological depth: sources at level 0.
// Ids inside a level keep the backend's node order.
func Levels(g Graph) ([][]string, error) {
	dg, _ := build(g)
	preds, err := dg.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("predecessor map: %w", err)
	}
	order, err := graph.TopologicalSort(dg)
	if err != nil {
		return nil, fmt.Errorf("topological sort: %w", err)
	}

	depth := make(map[string]int, len(order))
	maxDepth := 0
	for _, id := range order {
		d := 0
		for p := range preds[id] {
			if depth[p]+1 > d {
				d = depth[p] + 1
			}
		}
		depth[id] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	position := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, seen := position[n.ID]; !seen {
			position[n.ID] = i
		}
	}

	levels := make([][]string, maxDepth+1)
	for id, d := range depth {
		levels[d] = append(levels[d], id)
	}
	for _, lvl := range levels {
		sort.Slice(lvl, func(i, j int) bool { return position[lvl[i]] < position[lvl[j]] })
	}
	if len(order) == 0 {
		return nil, nil
	}
	return levels, nil
}

// ToDOT renders the graph as DOT text named after the strategy.
func ToDOT(name string, g Graph) (string, error) {
	dg, _ := build(g)
	var buf bytes.Buffer
	if err := draw.DOT(dg, &buf,
		draw.GraphAttribute("label", name),
		draw.GraphAttribute("rankdir", "LR"),
	); err != nil {
		return "", fmt.Errorf("draw %s: %w", name, err)
	}
	return buf.String(), nil
}

func labelOf(n Node) string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

func shapeOf(n Node) string {
	switch n.Role() {
	case RoleDataset:
		return "cylinder"
	case RoleOutput:
		return "doublecircle"
	}
	return "box"
}

func edgeName(e Edge) string {
	if e.ID != "" {
		return e.ID
	}
	return e.Source + "->" + e.Target
}
