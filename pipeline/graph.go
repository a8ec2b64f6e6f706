// ABOUTME: Node/edge graph of a saved strategy as returned by the backend after each write.
// ABOUTME: Node ids follow the backend's dataset_<name>, model_<name> and output conventions.
package pipeline

import "strings"

// Node kinds as reported by the backend.
const (
	NodeInput   = "input"
	NodeOutput  = "output"
	NodeDefault = "default"
)

// Node id prefixes used by the backend.
const (
	DatasetPrefix = "dataset_"
	ModelPrefix   = "model_"
	OutputID      = "output"
)

// Node roles derived from the id.
const (
	RoleDataset = "dataset"
	RoleModel   = "model"
	RoleOutput  = "output"
	RoleOther   = "other"
)

// Position is a layout hint in canvas pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Node struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Position Position `json:"position"`
}

// Role classifies the node by its id prefix.
func (n Node) Role() string {
	switch {
	case n.ID == OutputID:
		return RoleOutput
	case strings.HasPrefix(n.ID, DatasetPrefix):
		return RoleDataset
	case strings.HasPrefix(n.ID, ModelPrefix):
		return RoleModel
	}
	return RoleOther
}

type Edge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Kind     string `json:"kind,omitempty"`
	Animated bool   `json:"animated"`
}

// Graph is an immutable snapshot; callers must not mutate the slices.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Clone returns a deep copy.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Edges, g.Edges)
	return out
}

// Empty reports whether the graph has no nodes.
func (g Graph) Empty() bool { return len(g.Nodes) == 0 }

// Models returns the model nodes in order.
func (g Graph) Models() []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Role() == "model" {
			out = append(out, n)
		}
	}
	return out
}

// NodeByID finds a node.
func (g Graph) NodeByID(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
