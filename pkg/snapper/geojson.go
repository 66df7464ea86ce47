package snapper

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/azybler/route-snapper/pkg/digraph"
	"github.com/azybler/route-snapper/pkg/route"
	"github.com/azybler/route-snapper/pkg/router"
	"github.com/azybler/route-snapper/pkg/snapmap"
)

// collection is RenderGeojson's wire shape: a FeatureCollection plus the
// foreign members the host needs to pick a cursor and know undo depth.
type collection struct {
	Type       string             `json:"type"`
	Features   []*geojson.Feature `json:"features"`
	Cursor     string             `json:"cursor"`
	SnapMode   bool               `json:"snap_mode"`
	UndoLength int                `json:"undo_length"`
}

func newCollection() *collection {
	return &collection{Type: "FeatureCollection", Features: []*geojson.Feature{}}
}

func toPoint(c snapmap.Coord) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

func toLineString(pts []snapmap.Coord) orb.LineString {
	ls := make(orb.LineString, len(pts))
	for i, p := range pts {
		ls[i] = toPoint(p)
	}
	return ls
}

func toRing(pts []snapmap.Coord) orb.Ring {
	ring := make(orb.Ring, len(pts))
	for i, p := range pts {
		ring[i] = toPoint(p)
	}
	return ring
}

func (s *Snapper) edgeGeometry(de digraph.DirectedEdge) []snapmap.Coord {
	geom := s.Map.Edge(de.Edge).Geometry
	if de.Dir != digraph.Backwards {
		return geom
	}
	reversed := make([]snapmap.Coord, len(geom))
	for i, p := range geom {
		reversed[len(geom)-1-i] = p
	}
	return reversed
}

// taggedPoint is a point of the expanded route annotated with whether it
// came from road geometry (snapped) or a free waypoint.
type taggedPoint struct {
	coord   snapmap.Coord
	snapped bool
}

func (s *Snapper) taggedPoints() []taggedPoint {
	var out []taggedPoint
	for _, e := range s.Route.FullPath {
		switch e.Kind {
		case router.KindSnappedPoint:
			out = append(out, taggedPoint{coord: s.Map.Node(e.Node), snapped: true})
		case router.KindFreePoint:
			out = append(out, taggedPoint{coord: e.Point, snapped: false})
		case router.KindEdge:
			for _, p := range s.edgeGeometry(e.DirEdge) {
				out = append(out, taggedPoint{coord: p, snapped: true})
			}
		}
	}
	return dedupAdjacent(out)
}

func dedupAdjacent(pts []taggedPoint) []taggedPoint {
	if len(pts) == 0 {
		return pts
	}
	out := pts[:1]
	for _, p := range pts[1:] {
		if p.coord != out[len(out)-1].coord {
			out = append(out, p)
		}
	}
	return out
}

// entireLineString flattens full_path into the coordinate list the final
// committed route (or its area polygon) is built from. Returns false if
// fewer than 2 unique points remain.
func (s *Snapper) entireLineString() ([]snapmap.Coord, bool) {
	tagged := s.taggedPoints()
	if len(tagged) < 2 {
		return nil, false
	}
	pts := make([]snapmap.Coord, len(tagged))
	for i, t := range tagged {
		pts[i] = t.coord
	}
	return pts, true
}

func haversineLength(pts []snapmap.Coord) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += pts[i-1].DistTo(pts[i])
	}
	return total
}

// snapSegments groups taggedPoints into contiguous runs of equal snapped
// status, duplicating the boundary point between runs so the resulting
// polylines stay contiguous. This is what lets the renderer draw alternating
// snapped/free line segments with a transition at every free-point boundary.
func snapSegments(tagged []taggedPoint) ([][]snapmap.Coord, []bool) {
	if len(tagged) == 0 {
		return nil, nil
	}
	var segments [][]snapmap.Coord
	var flags []bool

	cur := []snapmap.Coord{tagged[0].coord}
	curFlag := tagged[0].snapped
	for i := 1; i < len(tagged); i++ {
		p := tagged[i]
		if p.snapped == curFlag {
			cur = append(cur, p.coord)
			continue
		}
		segments = append(segments, cur)
		flags = append(flags, curFlag)
		cur = []snapmap.Coord{tagged[i-1].coord, p.coord}
		curFlag = p.snapped
	}
	segments = append(segments, cur)
	flags = append(flags, curFlag)
	return segments, flags
}

// ToFinalFeature emits the final committed route as a single GeoJSON
// Feature: a Polygon if area mode is active and the route is closed,
// otherwise a LineString. Returns false if the route has fewer than 2
// unique points.
func (s *Snapper) ToFinalFeature() ([]byte, bool) {
	pts, ok := s.entireLineString()
	if !ok {
		return nil, false
	}

	var geom orb.Geometry
	isArea := s.Router.Config.AreaMode && s.Route.IsClosedArea()
	if isArea {
		geom = orb.Polygon{toRing(pts)}
	} else {
		geom = toLineString(pts)
	}

	f := geojson.NewFeature(geom)
	f.Properties["length_meters"] = haversineLength(pts)
	if !isArea {
		first := s.nameForWaypoint(s.Route.Waypoints[0])
		last := s.nameForWaypoint(s.Route.Waypoints[len(s.Route.Waypoints)-1])
		f.Properties["route_name"] = "Route from " + first + " to " + last
	}
	f.Properties["waypoints"] = s.encodeWaypoints()

	data, err := json.Marshal(f)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (s *Snapper) encodeWaypoints() []RouteWaypoint {
	out := make([]RouteWaypoint, len(s.Route.Waypoints))
	for i, w := range s.Route.Waypoints {
		c := s.coordOf(w)
		out[i] = RouteWaypoint{
			Lon:     truncate6(c.Lon),
			Lat:     truncate6(c.Lat),
			Snapped: w.Kind == route.KindSnapped,
		}
	}
	return out
}

// cursorForMode picks the cursor foreign member RenderGeojson reports.
func (s *Snapper) cursorForMode() string {
	switch s.Mode.Kind {
	case ModeDragging:
		return "grabbing"
	case ModeHovering:
		return "pointer"
	case ModeFreehand:
		return "crosshair"
	default:
		return "inherit"
	}
}

// RenderGeojson produces the full live-editing FeatureCollection: the route
// broken into alternating snapped/free segments, circles for route nodes
// and waypoints, a hover/freehand preview line, and -- when closed -- a
// Polygon feature.
func (s *Snapper) RenderGeojson() []byte {
	rc := newCollection()

	tagged := s.taggedPoints()
	segments, flags := snapSegments(tagged)
	for i, seg := range segments {
		if len(seg) < 2 {
			continue
		}
		f := geojson.NewFeature(toLineString(seg))
		f.Properties["snapped"] = flags[i]
		rc.Features = append(rc.Features, f)
	}

	drawnNodes := make(map[snapmap.NodeID]bool)
	for _, e := range s.Route.FullPath {
		if e.Kind != router.KindSnappedPoint || drawnNodes[e.Node] {
			continue
		}
		drawnNodes[e.Node] = true
		f := geojson.NewFeature(toPoint(s.Map.Node(e.Node)))
		f.Properties["type"] = "node"
		rc.Features = append(rc.Features, f)
	}

	for _, w := range s.Route.Waypoints {
		typ := "free-waypoint"
		if w.Kind == route.KindSnapped {
			typ = "snapped-waypoint"
		}
		f := geojson.NewFeature(toPoint(s.coordOf(w)))
		f.Properties["type"] = typ
		if name := s.nameForWaypoint(w); name != "" && name != "???" {
			f.Properties["name"] = name
		}
		rc.Features = append(rc.Features, f)
	}

	if len(s.Route.Waypoints) > 0 {
		last := s.Route.Waypoints[len(s.Route.Waypoints)-1]
		lastCoord := s.coordOf(last)

		switch s.Mode.Kind {
		case ModeHovering:
			hover := s.Mode.Hover
			f := geojson.NewFeature(toLineString([]snapmap.Coord{lastCoord, s.coordOf(hover)}))
			f.Properties["snapped"] = last.Kind == route.KindSnapped && hover.Kind == route.KindSnapped
			rc.Features = append(rc.Features, f)

		case ModeFreehand:
			f := geojson.NewFeature(toLineString([]snapmap.Coord{lastCoord, s.Mode.FreehandPt}))
			f.Properties["snapped"] = false
			rc.Features = append(rc.Features, f)
		}
	}

	if s.Route.IsClosedArea() {
		if pts, ok := s.entireLineString(); ok {
			rc.Features = append(rc.Features, geojson.NewFeature(orb.Polygon{toRing(pts)}))
		}
	}

	rc.Cursor = s.cursorForMode()
	rc.SnapMode = s.SnapMode
	rc.UndoLength = s.History.Len()

	data, _ := json.Marshal(rc)
	return data
}

// DebugRenderGraph dumps the full directed graph -- every edge with its
// geometry and costs, every node as a point -- as a GeoJSON
// FeatureCollection, for offline inspection of a loaded map.
func (s *Snapper) DebugRenderGraph() []byte {
	rc := newCollection()

	for i := range s.Map.Edges {
		e := &s.Map.Edges[i]
		f := geojson.NewFeature(toLineString(e.Geometry))
		f.Properties["edge_id"] = i
		f.Properties["node1"] = int(e.Node1)
		f.Properties["node2"] = int(e.Node2)
		f.Properties["length_meters"] = e.LengthMeters
		if e.ForwardCost != nil {
			f.Properties["forward_cost"] = *e.ForwardCost
		}
		if e.BackwardCost != nil {
			f.Properties["backward_cost"] = *e.BackwardCost
		}
		if e.Name != "" {
			f.Properties["name"] = e.Name
		}
		rc.Features = append(rc.Features, f)
	}

	for i, n := range s.Map.Nodes {
		f := geojson.NewFeature(toPoint(n))
		f.Properties["node_id"] = i
		rc.Features = append(rc.Features, f)
	}

	data, _ := json.Marshal(rc)
	return data
}
