// Package router computes penalized A* shortest paths over a digraph.Graph,
// expanding the result into the PathEntry sequence Route.full_path is built
// from.
package router

import (
	"math"
	"sync"

	"github.com/azybler/route-snapper/pkg/digraph"
	"github.com/azybler/route-snapper/pkg/snapmap"
)

// Config controls how Pathfind scores candidate routes. JSON-tagged so it
// can be decoded directly from a host-supplied config payload.
type Config struct {
	AvoidDoublingBack bool `json:"avoid_doubling_back"`
	ExtendRoute       bool `json:"extend_route"`
	AreaMode          bool `json:"area_mode"`
}

// Router owns the immutable Map and its derived Graph, plus the current
// Config. It is safe for reuse across many Pathfind calls from a single
// goroutine (the interaction engine above it is itself single-threaded).
type Router struct {
	Map    *snapmap.Map
	Graph  *digraph.Graph
	Config Config

	statePool sync.Pool
}

// NewRouter builds a Router over m and g with the given starting Config.
func NewRouter(m *snapmap.Map, g *digraph.Graph, cfg Config) *Router {
	r := &Router{Map: m, Graph: g, Config: cfg}
	r.statePool.New = func() any {
		return newSearchState(g.NumNodes)
	}
	return r
}

// SetConfig replaces the current Config. AreaMode, when set, forces
// AvoidDoublingBack and ExtendRoute on -- the caller (the interaction
// engine's setAreaMode entry point) is expected to have already applied
// that coercion, but Pathfind itself only ever reads r.Config.AvoidDoublingBack.
func (r *Router) SetConfig(cfg Config) {
	r.Config = cfg
}

// searchState is the scratch space one Pathfind call needs: a g-score and
// predecessor arc per node, reset lazily via a touched-node list so reuse
// across calls costs O(touched) rather than O(NumNodes).
type searchState struct {
	gScore  []float64
	cameArc []int32 // arc index that reached this node on the best path so far, -1 if none
	touched []snapmap.NodeID
	heap    minHeap
}

func newSearchState(numNodes uint32) *searchState {
	gScore := make([]float64, numNodes)
	cameArc := make([]int32, numNodes)
	for i := range gScore {
		gScore[i] = math.Inf(1)
		cameArc[i] = -1
	}
	return &searchState{
		gScore:  gScore,
		cameArc: cameArc,
		touched: make([]snapmap.NodeID, 0, 64),
	}
}

func (s *searchState) touch(n snapmap.NodeID, g float64, arc int32) {
	if math.IsInf(s.gScore[n], 1) {
		s.touched = append(s.touched, n)
	}
	s.gScore[n] = g
	s.cameArc[n] = arc
}

func (s *searchState) reset() {
	for _, n := range s.touched {
		s.gScore[n] = math.Inf(1)
		s.cameArc[n] = -1
	}
	s.touched = s.touched[:0]
	s.heap.Reset()
}

// Pathfind runs penalized A* from src to dst. previousPath supplies the
// already-routed edges that incur the doubling-back penalty when
// r.Config.AvoidDoublingBack is set, regardless of the direction they were
// traversed in. It returns the expanded entry sequence
// SnappedPoint(src), Edge, SnappedPoint, Edge, ..., SnappedPoint(dst)
// and true, or (nil, false) if no path exists.
func (r *Router) Pathfind(src, dst snapmap.NodeID, previousPath []PathEntry) ([]PathEntry, bool) {
	if src == dst {
		return []PathEntry{SnappedPoint(src)}, true
	}

	var usedEdges map[snapmap.EdgeID]bool
	if r.Config.AvoidDoublingBack {
		usedEdges = make(map[snapmap.EdgeID]bool)
		for _, e := range previousPath {
			if e.Kind == KindEdge {
				usedEdges[e.DirEdge.Edge] = true
			}
		}
	}

	s := r.statePool.Get().(*searchState)
	defer func() {
		s.reset()
		r.statePool.Put(s)
	}()

	dstCoord := r.Map.Node(dst)

	var seq uint64
	push := func(n snapmap.NodeID, g float64) {
		f := g + r.Map.Node(n).DistTo(dstCoord)
		s.heap.Push(n, f, seq)
		seq++
	}

	s.touch(src, 0, -1)
	push(src, 0)

	found := false
	for s.heap.Len() > 0 {
		item := s.heap.Pop()
		u := item.node
		if u == dst {
			found = true
			break
		}
		// Stale entry: a cheaper path to u was already relaxed.
		if item.f-r.Map.Node(u).DistTo(dstCoord) > s.gScore[u]+1e-9 {
			continue
		}

		start, end := r.Graph.EdgesFrom(u)
		for arc := start; arc < end; arc++ {
			v := r.Graph.ArcTo[arc]
			cost := r.Graph.ArcCost[arc]
			if usedEdges != nil && usedEdges[r.Graph.ArcEdge[arc]] {
				cost *= 2.0
			}
			newG := s.gScore[u] + cost
			if newG < s.gScore[v] {
				s.touch(v, newG, int32(arc))
				push(v, newG)
			}
		}
	}

	if !found {
		return nil, false
	}

	return reconstruct(r.Graph, s, src, dst), true
}

// reconstruct walks cameArc backward from dst to src and expands it into
// the SnappedPoint/Edge/SnappedPoint sequence Route.full_path needs.
func reconstruct(g *digraph.Graph, s *searchState, src, dst snapmap.NodeID) []PathEntry {
	var arcs []int32
	for n := dst; n != src; {
		arc := s.cameArc[n]
		arcs = append(arcs, arc)
		n = arcPredecessor(g, arc, n)
	}

	entries := make([]PathEntry, 0, len(arcs)*2+1)
	entries = append(entries, SnappedPoint(src))
	for i := len(arcs) - 1; i >= 0; i-- {
		arc := arcs[i]
		entries = append(entries, EdgeEntry(digraph.DirectedEdge{Edge: g.ArcEdge[arc], Dir: g.ArcDir[arc]}))
		entries = append(entries, SnappedPoint(g.ArcTo[arc]))
	}
	return entries
}

// arcPredecessor finds the source node of the arc at index arc whose target
// is n, by binary-searching FirstOut. CSR arcs don't carry their
// own source, but the arc index sits within exactly one node's bucket.
func arcPredecessor(g *digraph.Graph, arc int32, n snapmap.NodeID) snapmap.NodeID {
	lo, hi := 0, int(g.NumNodes)
	for lo < hi {
		mid := (lo + hi) / 2
		if g.FirstOut[mid+1] <= uint32(arc) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return snapmap.NodeID(lo)
}
