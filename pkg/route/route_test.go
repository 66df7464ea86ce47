package route_test

import (
	"testing"

	"github.com/azybler/route-snapper/pkg/digraph"
	"github.com/azybler/route-snapper/pkg/route"
	"github.com/azybler/route-snapper/pkg/router"
	"github.com/azybler/route-snapper/pkg/snapmap"
)

func costPtr(v float64) *float64 { return &v }

// buildLineGraph builds four collinear nodes 0-1-2-3, each hop 100 apart.
func buildLineGraph(t *testing.T) *router.Router {
	t.Helper()
	m := &snapmap.Map{
		Nodes: []snapmap.Coord{
			{Lon: 103.800, Lat: 1.300},
			{Lon: 103.801, Lat: 1.300},
			{Lon: 103.802, Lat: 1.300},
			{Lon: 103.803, Lat: 1.300},
		},
		Edges: []snapmap.Edge{
			{Node1: 0, Node2: 1, LengthMeters: 100, ForwardCost: costPtr(100), BackwardCost: costPtr(100)},
			{Node1: 1, Node2: 2, LengthMeters: 100, ForwardCost: costPtr(100), BackwardCost: costPtr(100)},
			{Node1: 2, Node2: 3, LengthMeters: 100, ForwardCost: costPtr(100), BackwardCost: costPtr(100)},
		},
	}
	g := digraph.Build(m)
	return router.NewRouter(m, g, router.Config{})
}

func TestAddWaypointSingleLeavesFullPathEmpty(t *testing.T) {
	r := buildLineGraph(t)
	rt := route.New()

	rt.AddWaypoint(r, route.Snapped(0))

	if len(rt.Waypoints) != 1 {
		t.Fatalf("Waypoints = %v, want 1 entry", rt.Waypoints)
	}
	if len(rt.FullPath) != 0 {
		t.Errorf("FullPath = %v, want empty", rt.FullPath)
	}
}

func TestAddWaypointExpandsPath(t *testing.T) {
	r := buildLineGraph(t)
	rt := route.New()

	rt.AddWaypoint(r, route.Snapped(0))
	rt.AddWaypoint(r, route.Snapped(1))
	rt.AddWaypoint(r, route.Snapped(3))

	var nodes []snapmap.NodeID
	for _, e := range rt.FullPath {
		if e.Kind == router.KindSnappedPoint {
			nodes = append(nodes, e.Node)
		}
	}
	wantNodes := []snapmap.NodeID{0, 1, 2, 3}
	if !equalNodes(nodes, wantNodes) {
		t.Errorf("full_path nodes = %v, want %v", nodes, wantNodes)
	}
}

func TestAddWaypointDisconnectedDegradesToStraightLine(t *testing.T) {
	r := buildLineGraph(t)
	// Add an isolated 5th node with no edges.
	r.Map.Nodes = append(r.Map.Nodes, snapmap.Coord{Lon: 200, Lat: 50})
	r.Graph = digraph.Build(r.Map)

	rt := route.New()
	rt.AddWaypoint(r, route.Snapped(0))
	rt.AddWaypoint(r, route.Snapped(4))

	want := []router.PathEntry{router.SnappedPoint(0), router.SnappedPoint(4)}
	if len(rt.FullPath) != len(want) {
		t.Fatalf("full_path = %v, want %v", rt.FullPath, want)
	}
	for i := range want {
		if rt.FullPath[i] != want[i] {
			t.Errorf("full_path[%d] = %v, want %v", i, rt.FullPath[i], want[i])
		}
	}
}

func TestMoveWaypointSoleWaypoint(t *testing.T) {
	r := buildLineGraph(t)
	rt := route.New()
	rt.AddWaypoint(r, route.Snapped(0))

	newIdx := rt.MoveWaypoint(r, 0, route.Snapped(2))

	if newIdx != 0 {
		t.Errorf("newIdx = %d, want 0", newIdx)
	}
	if len(rt.Waypoints) != 1 || rt.Waypoints[0] != route.Snapped(2) {
		t.Errorf("Waypoints = %v, want [Snapped(2)]", rt.Waypoints)
	}
	if len(rt.FullPath) != 0 {
		t.Errorf("FullPath = %v, want empty", rt.FullPath)
	}
}

func TestMoveWaypointReplacesExisting(t *testing.T) {
	r := buildLineGraph(t)
	rt := route.New()
	rt.AddWaypoint(r, route.Snapped(0))
	rt.AddWaypoint(r, route.Snapped(3))

	newIdx := rt.MoveWaypoint(r, 0, route.Snapped(1))

	if rt.Waypoints[0] != route.Snapped(1) {
		t.Errorf("Waypoints[0] = %v, want Snapped(1)", rt.Waypoints[0])
	}
	if rt.FullPath[newIdx] != router.SnappedPoint(1) {
		t.Errorf("FullPath[%d] = %v, want SnappedPoint(1)", newIdx, rt.FullPath[newIdx])
	}
}

func TestMoveWaypointIntermediateNodeInsertsNewWaypoint(t *testing.T) {
	r := buildLineGraph(t)
	rt := route.New()
	rt.AddWaypoint(r, route.Snapped(0))
	rt.AddWaypoint(r, route.Snapped(3))

	// full_path is SnappedPoint(0), Edge, SnappedPoint(1), Edge, SnappedPoint(2), Edge, SnappedPoint(3).
	// Moving the intermediate node at index 2 (SnappedPoint(1)) should insert
	// a new waypoint before waypoint[1] (the Snapped(3) endpoint).
	idx := indexOfSnapped(rt.FullPath, 1)
	rt.MoveWaypoint(r, idx, route.Snapped(2))

	want := []route.Waypoint{route.Snapped(0), route.Snapped(2), route.Snapped(3)}
	if len(rt.Waypoints) != len(want) {
		t.Fatalf("Waypoints = %v, want %v", rt.Waypoints, want)
	}
	for i := range want {
		if rt.Waypoints[i] != want[i] {
			t.Errorf("Waypoints[%d] = %v, want %v", i, rt.Waypoints[i], want[i])
		}
	}
}

func TestClosedAreaMoveFirstAlsoMovesLast(t *testing.T) {
	r := buildLineGraph(t)
	rt := route.New()
	rt.AddWaypoint(r, route.Snapped(0))
	rt.AddWaypoint(r, route.Snapped(1))
	rt.AddWaypoint(r, route.Snapped(2))
	rt.AddWaypoint(r, route.Snapped(0)) // close the area

	if !rt.IsClosedArea() {
		t.Fatal("route should be closed")
	}

	idx := indexOfSnapped(rt.FullPath, 0)
	rt.MoveWaypoint(r, idx, route.Snapped(3))

	if rt.Waypoints[0] != route.Snapped(3) {
		t.Errorf("Waypoints[0] = %v, want Snapped(3)", rt.Waypoints[0])
	}
	last := len(rt.Waypoints) - 1
	if rt.Waypoints[last] != route.Snapped(3) {
		t.Errorf("Waypoints[%d] = %v, want Snapped(3) (closed-area identity)", last, rt.Waypoints[last])
	}
}

func TestUndoHistoryBoundedCapacity(t *testing.T) {
	var h route.UndoHistory
	for i := 0; i < 150; i++ {
		h.Push([]route.Waypoint{route.Snapped(snapmap.NodeID(i))})
	}
	if h.Len() != 100 {
		t.Fatalf("Len = %d, want 100", h.Len())
	}
	top, ok := h.Pop()
	if !ok {
		t.Fatal("Pop returned ok=false")
	}
	if top[0] != route.Snapped(149) {
		t.Errorf("top snapshot = %v, want Snapped(149)", top)
	}
}

func TestUndoHistoryEmptyPop(t *testing.T) {
	var h route.UndoHistory
	_, ok := h.Pop()
	if ok {
		t.Error("Pop on empty history returned ok=true")
	}
}

func equalNodes(a, b []snapmap.NodeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func indexOfSnapped(path []router.PathEntry, n snapmap.NodeID) int {
	for i, e := range path {
		if e.Kind == router.KindSnappedPoint && e.Node == n {
			return i
		}
	}
	return -1
}
