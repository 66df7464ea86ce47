// Package snapmap holds the immutable road network loaded from a serialized
// map blob: nodes, edges, and the per-direction costs derived from them.
package snapmap

import (
	"fmt"

	"github.com/azybler/route-snapper/pkg/geo"
)

// NodeID identifies a node by its dense index into Map.Nodes.
type NodeID uint32

// EdgeID identifies an edge by its dense index into Map.Edges.
type EdgeID uint32

// Coord is a WGS84 geographic coordinate, longitude first.
type Coord struct {
	Lon float64
	Lat float64
}

// DistTo returns the great-circle distance in meters between c and other.
func (c Coord) DistTo(other Coord) float64 {
	return geo.Haversine(c.Lat, c.Lon, other.Lat, other.Lon)
}

// Edge is a road segment between two nodes. Geometry's first point equals
// Node1's coordinate and its last point equals Node2's.
type Edge struct {
	Node1    NodeID
	Node2    NodeID
	Geometry []Coord
	Name     string // empty if unnamed

	// Derived at load time, never persisted.
	LengthMeters float64
	ForwardCost  *float64 // nil means the node1->node2 direction is not routable
	BackwardCost *float64 // nil means the node2->node1 direction is not routable
}

// Map is the immutable road graph. It is safe for concurrent read-only use,
// but this package makes no attempt to support mutation after Load.
type Map struct {
	Nodes []Coord
	Edges []Edge
}

// Node returns the coordinate of a node.
func (m *Map) Node(id NodeID) Coord { return m.Nodes[id] }

// Edge returns the edge record for id.
func (m *Map) Edge(id EdgeID) *Edge { return &m.Edges[id] }

// NumNodes returns the number of nodes in the map.
func (m *Map) NumNodes() int { return len(m.Nodes) }

// NumEdges returns the number of edges in the map.
func (m *Map) NumEdges() int { return len(m.Edges) }

// finalize computes LengthMeters for every edge via haversine summation over
// the polyline, then fills in per-direction costs: the override if one was
// supplied, otherwise LengthMeters. overrideForward/overrideBackward may be
// nil (meaning "no overrides, default both to length") or must have exactly
// len(edges) entries, one *float64 per edge (nil entry = not routable).
func finalize(edges []Edge, overrideForward, overrideBackward []*float64) error {
	if overrideForward != nil && len(overrideForward) != len(edges) {
		return fmt.Errorf("%w: override_forward_costs has %d entries, want %d", ErrLengthMismatch, len(overrideForward), len(edges))
	}
	if overrideBackward != nil && len(overrideBackward) != len(edges) {
		return fmt.Errorf("%w: override_backward_costs has %d entries, want %d", ErrLengthMismatch, len(overrideBackward), len(edges))
	}

	for i := range edges {
		e := &edges[i]
		e.LengthMeters = polylineLength(e.Geometry)

		if overrideForward == nil {
			length := e.LengthMeters
			e.ForwardCost = &length
		} else {
			e.ForwardCost = overrideForward[i]
		}

		if overrideBackward == nil {
			length := e.LengthMeters
			e.BackwardCost = &length
		} else {
			e.BackwardCost = overrideBackward[i]
		}
	}
	return nil
}

// polylineLength sums the haversine distance between consecutive points.
func polylineLength(pts []Coord) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += pts[i-1].DistTo(pts[i])
	}
	return total
}
