// ABOUTME: Atomic holder for the displayed pipeline graph.
// ABOUTME: A write's graph replaces the previous one in a single swap, and only if it is newer.
package pipeline

import (
	"sync/atomic"
)

type snapshot struct {
	seq   uint64
	graph Graph
}

// Projector holds the current graph. Safe for concurrent use.
type Projector struct {
	issued  atomic.Uint64
	current atomic.Pointer[snapshot]
}

func NewProjector() *Projector {
	p := &Projector{}
	p.current.Store(&snapshot{graph: Graph{Nodes: []Node{}, Edges: []Edge{}}})
	return p
}

// Begin reserves a sequence number for a write about to be issued.
func (p *Projector) Begin() uint64 {
	return p.issued.Add(1)
}

// Project replaces the graph with g if seq is newer than the applied one.
// Nodes and edges are swapped together.
func (p *Projector) Project(seq uint64, g Graph) bool {
	next := &snapshot{seq: seq, graph: g.Clone()}
	for {
		cur := p.current.Load()
		if seq <= cur.seq {
			return false
		}
		if p.current.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// Snapshot returns a copy of the current graph.
func (p *Projector) Snapshot() Graph {
	return p.current.Load().graph.Clone()
}

// Version is the sequence number of the applied graph (0 before any write).
func (p *Projector) Version() uint64 {
	return p.current.Load().seq
}

// Clear drops the graph, e.g. when the session switches to another strategy.
func (p *Projector) Clear() {
	seq := p.issued.Add(1)
	p.current.Store(&snapshot{seq: seq, graph: Graph{Nodes: []Node{}, Edges: []Edge{}}})
}
