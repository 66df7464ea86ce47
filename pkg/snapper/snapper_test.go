package snapper_test

import (
	"encoding/json"
	"testing"

	"github.com/azybler/route-snapper/pkg/digraph"
	"github.com/azybler/route-snapper/pkg/route"
	"github.com/azybler/route-snapper/pkg/router"
	"github.com/azybler/route-snapper/pkg/snapmap"
	"github.com/azybler/route-snapper/pkg/snapper"
	"github.com/azybler/route-snapper/pkg/spatial"
)

func costPtr(v float64) *float64 { return &v }

// buildTestSnapper wires up a 4-node line: 0--1--2--3, each edge 100m.
//
//	0 ---100--- 1 ---100--- 2 ---100--- 3
func buildTestSnapper(t *testing.T) *snapper.Snapper {
	t.Helper()
	m := &snapmap.Map{
		Nodes: []snapmap.Coord{
			{Lon: 103.800, Lat: 1.300},
			{Lon: 103.801, Lat: 1.300},
			{Lon: 103.802, Lat: 1.300},
			{Lon: 103.803, Lat: 1.300},
		},
		Edges: []snapmap.Edge{
			{Node1: 0, Node2: 1, Name: "First Ave", LengthMeters: 100, ForwardCost: costPtr(100), BackwardCost: costPtr(100),
				Geometry: []snapmap.Coord{{Lon: 103.800, Lat: 1.300}, {Lon: 103.801, Lat: 1.300}}},
			{Node1: 1, Node2: 2, Name: "Main St", LengthMeters: 100, ForwardCost: costPtr(100), BackwardCost: costPtr(100),
				Geometry: []snapmap.Coord{{Lon: 103.801, Lat: 1.300}, {Lon: 103.802, Lat: 1.300}}},
			{Node1: 2, Node2: 3, Name: "Third Ave", LengthMeters: 100, ForwardCost: costPtr(100), BackwardCost: costPtr(100),
				Geometry: []snapmap.Coord{{Lon: 103.802, Lat: 1.300}, {Lon: 103.803, Lat: 1.300}}},
		},
	}
	g := digraph.Build(m)
	return &snapper.Snapper{
		Map:      m,
		Graph:    g,
		Spatial:  spatial.NewIndex(m),
		Router:   router.NewRouter(m, g, router.Config{}),
		Route:    route.New(),
		Mode:     snapper.Mode{Kind: snapper.ModeNeutral},
		SnapMode: true,
	}
}

func hoverAndClick(t *testing.T, s *snapper.Snapper, lon, lat float64) {
	t.Helper()
	s.OnMouseMove(lon, lat, 20)
	if s.Mode.Kind != snapper.ModeHovering {
		t.Fatalf("want ModeHovering at (%v,%v), got %v", lon, lat, s.Mode.Kind)
	}
	s.OnClick()
}

func TestDeletingSoleWaypointIsNoOp(t *testing.T) {
	s := buildTestSnapper(t)
	if err := s.AddSnappedWaypoint(103.800, 1.300); err != nil {
		t.Fatalf("AddSnappedWaypoint: %v", err)
	}
	hoverAndClick(t, s, 103.800, 1.300)
	if len(s.Route.Waypoints) != 1 {
		t.Fatalf("sole waypoint was deleted: got %d waypoints", len(s.Route.Waypoints))
	}
}

func TestExtendRouteBuildsMultiWaypointPath(t *testing.T) {
	s := buildTestSnapper(t)
	if err := s.AddSnappedWaypoint(103.800, 1.300); err != nil {
		t.Fatalf("AddSnappedWaypoint 1: %v", err)
	}
	if err := s.AddSnappedWaypoint(103.803, 1.300); err != nil {
		t.Fatalf("AddSnappedWaypoint 2: %v", err)
	}
	if len(s.Route.Waypoints) != 2 {
		t.Fatalf("want 2 waypoints, got %d", len(s.Route.Waypoints))
	}
	if len(s.Route.FullPath) == 0 {
		t.Fatal("full_path was not expanded after second waypoint")
	}
	data, ok := s.ToFinalFeature()
	if !ok || len(data) == 0 {
		t.Fatal("ToFinalFeature failed on a valid 2-waypoint route")
	}
}

func TestMidRouteWaypointDeletion(t *testing.T) {
	s := buildTestSnapper(t)
	for _, lon := range []float64{103.800, 103.801, 103.802, 103.803} {
		if err := s.AddSnappedWaypoint(lon, 1.300); err != nil {
			t.Fatalf("AddSnappedWaypoint(%v): %v", lon, err)
		}
	}
	if len(s.Route.Waypoints) != 4 {
		t.Fatalf("want 4 waypoints, got %d", len(s.Route.Waypoints))
	}

	hoverAndClick(t, s, 103.801, 1.300)

	if len(s.Route.Waypoints) != 3 {
		t.Fatalf("mid-route waypoint was not deleted: %d remain", len(s.Route.Waypoints))
	}
	for _, w := range s.Route.Waypoints {
		if w.Kind == route.KindSnapped && w.Node == 1 {
			t.Fatal("deleted waypoint still present")
		}
	}
}

func TestNonExtendModeLocksWaypointCount(t *testing.T) {
	s := buildTestSnapper(t)
	if err := s.AddSnappedWaypoint(103.800, 1.300); err != nil {
		t.Fatalf("AddSnappedWaypoint 1: %v", err)
	}
	if err := s.AddSnappedWaypoint(103.803, 1.300); err != nil {
		t.Fatalf("AddSnappedWaypoint 2: %v", err)
	}
	if err := s.SetRouteConfig([]byte(`{"avoid_doubling_back":false,"extend_route":false,"area_mode":false}`)); err != nil {
		t.Fatalf("SetRouteConfig: %v", err)
	}
	s.SnapMode = false

	s.OnMouseMove(103.8015, 1.300, 1000)
	if s.Mode.Kind == snapper.ModeFreehand {
		t.Fatal("freehand extension should be locked once extend_route=false and 2 waypoints exist")
	}
}

func TestSetRouteConfigRejectsAreaMode(t *testing.T) {
	s := buildTestSnapper(t)
	if err := s.SetRouteConfig([]byte(`{"area_mode":true}`)); err == nil {
		t.Fatal("SetRouteConfig accepted area_mode=true")
	}
}

func TestAreaModeAutoClosesAtThreeWaypoints(t *testing.T) {
	s := buildTestSnapper(t)
	s.SetAreaMode()

	for _, lon := range []float64{103.800, 103.801, 103.802} {
		hoverAndClick(t, s, lon, 1.300)
	}

	if !s.Route.IsClosedArea() {
		t.Fatal("area route did not auto-close at 3 distinct waypoints")
	}
	if len(s.Route.Waypoints) != 4 {
		t.Fatalf("want 4 waypoints (closing duplicate included), got %d", len(s.Route.Waypoints))
	}
}

func TestUndoRestoresPriorWaypointList(t *testing.T) {
	s := buildTestSnapper(t)
	for _, lon := range []float64{103.800, 103.801, 103.802} {
		if err := s.AddSnappedWaypoint(lon, 1.300); err != nil {
			t.Fatalf("AddSnappedWaypoint(%v): %v", lon, err)
		}
	}
	if len(s.Route.Waypoints) != 3 {
		t.Fatalf("want 3 waypoints before undo, got %d", len(s.Route.Waypoints))
	}

	s.Undo()
	if len(s.Route.Waypoints) != 2 {
		t.Fatalf("want 2 waypoints after one undo, got %d", len(s.Route.Waypoints))
	}
	s.Undo()
	if len(s.Route.Waypoints) != 1 {
		t.Fatalf("want 1 waypoint after two undos, got %d", len(s.Route.Waypoints))
	}
}

func TestUndoIsNoOpWhileDragging(t *testing.T) {
	s := buildTestSnapper(t)
	if err := s.AddSnappedWaypoint(103.800, 1.300); err != nil {
		t.Fatalf("AddSnappedWaypoint 1: %v", err)
	}
	if err := s.AddSnappedWaypoint(103.801, 1.300); err != nil {
		t.Fatalf("AddSnappedWaypoint 2: %v", err)
	}

	s.OnMouseMove(103.800, 1.300, 20)
	if s.Mode.Kind != snapper.ModeHovering {
		t.Fatalf("want ModeHovering, got %v", s.Mode.Kind)
	}
	if !s.OnDragStart() {
		t.Fatal("OnDragStart returned false over a valid waypoint")
	}
	before := len(s.Route.Waypoints)
	s.Undo()
	if len(s.Route.Waypoints) != before {
		t.Fatal("Undo mutated the route while dragging")
	}
}

func TestEditExistingRoundTripsWaypoints(t *testing.T) {
	s := buildTestSnapper(t)
	if err := s.AddSnappedWaypoint(103.800, 1.300); err != nil {
		t.Fatalf("AddSnappedWaypoint 1: %v", err)
	}
	if err := s.AddSnappedWaypoint(103.803, 1.300); err != nil {
		t.Fatalf("AddSnappedWaypoint 2: %v", err)
	}

	data, ok := s.ToFinalFeature()
	if !ok {
		t.Fatal("ToFinalFeature failed")
	}

	var decoded struct {
		Properties struct {
			Waypoints []snapper.RouteWaypoint `json:"waypoints"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal feature: %v", err)
	}
	if len(decoded.Properties.Waypoints) != len(s.Route.Waypoints) {
		t.Fatalf("feature waypoints = %d, want %d", len(decoded.Properties.Waypoints), len(s.Route.Waypoints))
	}

	s2 := buildTestSnapper(t)
	if err := s2.EditExisting(decoded.Properties.Waypoints); err != nil {
		t.Fatalf("EditExisting: %v", err)
	}
	if len(s2.Route.Waypoints) != len(s.Route.Waypoints) {
		t.Fatalf("round trip changed waypoint count: got %d, want %d", len(s2.Route.Waypoints), len(s.Route.Waypoints))
	}
	for i, w := range s.Route.Waypoints {
		if w != s2.Route.Waypoints[i] {
			t.Fatalf("waypoint %d: got %+v, want %+v", i, s2.Route.Waypoints[i], w)
		}
	}
}

func TestRenderGeojsonReportsUndoLength(t *testing.T) {
	s := buildTestSnapper(t)
	if err := s.AddSnappedWaypoint(103.800, 1.300); err != nil {
		t.Fatalf("AddSnappedWaypoint 1: %v", err)
	}
	if err := s.AddSnappedWaypoint(103.801, 1.300); err != nil {
		t.Fatalf("AddSnappedWaypoint 2: %v", err)
	}
	data := s.RenderGeojson()
	if len(data) == 0 {
		t.Fatal("RenderGeojson returned empty output")
	}

	var decoded struct {
		UndoLength int `json:"undo_length"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal collection: %v", err)
	}
	if decoded.UndoLength != s.History.Len() {
		t.Fatalf("undo_length = %d, want %d", decoded.UndoLength, s.History.Len())
	}
}

func TestDebugRenderGraphEmitsAllEdgesAndNodes(t *testing.T) {
	s := buildTestSnapper(t)
	data := s.DebugRenderGraph()

	var decoded struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal collection: %v", err)
	}
	want := s.Map.NumNodes() + s.Map.NumEdges()
	if len(decoded.Features) != want {
		t.Fatalf("got %d features, want %d (nodes+edges)", len(decoded.Features), want)
	}
}
