// Package digraph builds the directed CSR view of a snapmap.Map that the
// router searches. Each snapmap.Edge with a non-nil ForwardCost contributes
// one arc node1->node2, and each with a non-nil BackwardCost contributes one
// arc node2->node1; an edge with both contributes two arcs in opposite
// directions.
package digraph

import (
	"github.com/azybler/route-snapper/pkg/snapmap"
)

// Direction says which way along an Edge's Node1->Node2 orientation an arc
// runs.
type Direction uint8

const (
	Forwards Direction = iota
	Backwards
)

// DirectedEdge names one traversable direction of a snapmap.Edge.
type DirectedEdge struct {
	Edge snapmap.EdgeID
	Dir  Direction
}

// Graph is the directed road network in CSR (Compressed Sparse Row) form.
type Graph struct {
	NumNodes uint32

	FirstOut []uint32          // len: NumNodes + 1; FirstOut[u]..FirstOut[u+1] index the arcs below
	ArcTo    []snapmap.NodeID  // len: NumArcs; arc target node
	ArcEdge  []snapmap.EdgeID  // len: NumArcs; underlying edge
	ArcDir   []Direction       // len: NumArcs; which direction of that edge
	ArcCost  []float64         // len: NumArcs; precomputed directional cost (unpenalized)
}

// EdgesFrom returns the range of arc indices originating at node u.
func (g *Graph) EdgesFrom(u snapmap.NodeID) (start, end uint32) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// NumArcs returns the total number of directed arcs in the graph.
func (g *Graph) NumArcs() int {
	return len(g.ArcTo)
}

type rawArc struct {
	from snapmap.NodeID
	to   snapmap.NodeID
	edge snapmap.EdgeID
	dir  Direction
	cost float64
}

// Build constructs a Graph from a loaded Map, following the CSR
// counting-sort layout: bucket arcs by source node via a histogram over
// FirstOut, then prefix-sum it into offsets and scatter arcs into place.
func Build(m *snapmap.Map) *Graph {
	numNodes := uint32(m.NumNodes())
	firstOut := make([]uint32, numNodes+1)
	if numNodes == 0 {
		return &Graph{FirstOut: firstOut}
	}

	var raw []rawArc
	for i := range m.Edges {
		e := &m.Edges[i]
		eid := snapmap.EdgeID(i)
		if e.ForwardCost != nil {
			raw = append(raw, rawArc{from: e.Node1, to: e.Node2, edge: eid, dir: Forwards, cost: *e.ForwardCost})
		}
		if e.BackwardCost != nil {
			raw = append(raw, rawArc{from: e.Node2, to: e.Node1, edge: eid, dir: Backwards, cost: *e.BackwardCost})
		}
	}

	for _, a := range raw {
		firstOut[a.from+1]++
	}
	for i := uint32(1); i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	numArcs := len(raw)
	arcTo := make([]snapmap.NodeID, numArcs)
	arcEdge := make([]snapmap.EdgeID, numArcs)
	arcDir := make([]Direction, numArcs)
	arcCost := make([]float64, numArcs)

	// cursor[u] is the next free slot within node u's bucket; scatter
	// consumes it, so a fresh copy of firstOut seeds the cursors.
	cursor := make([]uint32, numNodes)
	copy(cursor, firstOut[:numNodes])

	for _, a := range raw {
		slot := cursor[a.from]
		cursor[a.from]++
		arcTo[slot] = a.to
		arcEdge[slot] = a.edge
		arcDir[slot] = a.dir
		arcCost[slot] = a.cost
	}

	return &Graph{
		NumNodes: numNodes,
		FirstOut: firstOut,
		ArcTo:    arcTo,
		ArcEdge:  arcEdge,
		ArcDir:   arcDir,
		ArcCost:  arcCost,
	}
}
