package router

import (
	"github.com/azybler/route-snapper/pkg/digraph"
	"github.com/azybler/route-snapper/pkg/snapmap"
)

// Kind discriminates the tagged union PathEntry represents.
type Kind int

const (
	KindSnappedPoint Kind = iota
	KindFreePoint
	KindEdge
)

// PathEntry is one element of a Route's expanded full_path: a node the path
// passes through, a free-floating point, or a directed edge connecting two
// such points.
type PathEntry struct {
	Kind    Kind
	Node    snapmap.NodeID        // valid when Kind == KindSnappedPoint
	Point   snapmap.Coord         // valid when Kind == KindFreePoint
	DirEdge digraph.DirectedEdge // valid when Kind == KindEdge
}

func SnappedPoint(n snapmap.NodeID) PathEntry {
	return PathEntry{Kind: KindSnappedPoint, Node: n}
}

func FreePoint(c snapmap.Coord) PathEntry {
	return PathEntry{Kind: KindFreePoint, Point: c}
}

func EdgeEntry(de digraph.DirectedEdge) PathEntry {
	return PathEntry{Kind: KindEdge, DirEdge: de}
}
