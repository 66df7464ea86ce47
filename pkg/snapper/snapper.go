// Package snapper is the public API surface: the interactive FSM driving
// mouse move / click / drag / toggle / undo, maintaining a Route and
// rendering it to GeoJSON. It is single-threaded -- the host UI is expected
// to serialize events, matching its own event loop.
package snapper

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/azybler/route-snapper/pkg/digraph"
	"github.com/azybler/route-snapper/pkg/logging"
	"github.com/azybler/route-snapper/pkg/route"
	"github.com/azybler/route-snapper/pkg/router"
	"github.com/azybler/route-snapper/pkg/snapmap"
	"github.com/azybler/route-snapper/pkg/spatial"
)

// ErrSnapFailed is returned when a waypoint could not be snapped to any
// node (an empty map, or -- in principle -- a closed-area rejection).
var ErrSnapFailed = errors.New("snapper: waypoint did not snap to any node")

// ErrBadConfig is returned when a config payload is malformed or attempts
// to set area_mode through SetRouteConfig (only SetAreaMode may do that).
var ErrBadConfig = errors.New("snapper: bad config")

// Snapper is the stateful object a host UI drives: one Map/Graph/spatial
// Index (read-only after New), one Router, and the mutable Route/Mode/
// undo history the interaction engine owns exclusively.
type Snapper struct {
	Map     *snapmap.Map
	Graph   *digraph.Graph
	Spatial *spatial.Index
	Router  *router.Router

	Route    *route.Route
	Mode     Mode
	SnapMode bool
	History  route.UndoHistory

	logger logging.Logger
}

// New decodes a map blob and constructs a Snapper ready for interaction.
func New(blob []byte, logger logging.Logger) (*Snapper, error) {
	m, err := snapmap.Load(blob)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	g := digraph.Build(m)
	s := &Snapper{
		Map:      m,
		Graph:    g,
		Spatial:  spatial.NewIndex(m),
		Router:   router.NewRouter(m, g, router.Config{}),
		Route:    route.New(),
		Mode:     Mode{Kind: ModeNeutral},
		SnapMode: true,
		logger:   logger,
	}
	s.logger.Info("loaded map: %d nodes, %d edges", m.NumNodes(), m.NumEdges())
	return s, nil
}

// log returns s.logger, or a no-op logger if the Snapper was built directly
// (not via New) and never got one.
func (s *Snapper) log() logging.Logger {
	if s.logger == nil {
		return logging.NopLogger{}
	}
	return s.logger
}

// SetRouteConfig decodes cfg as JSON and applies it. area_mode in the
// payload is rejected -- SetAreaMode is the only entry point that may turn
// it on. A malformed or rejected payload is logged at error level and the
// prior config is retained.
func (s *Snapper) SetRouteConfig(cfg []byte) error {
	var decoded router.Config
	if err := json.Unmarshal(cfg, &decoded); err != nil {
		s.log().Error("bad config JSON: %v", err)
		return fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	if decoded.AreaMode {
		s.log().Error("setRouteConfig may not set area_mode; use setAreaMode")
		return fmt.Errorf("%w: area_mode may only be set via setAreaMode", ErrBadConfig)
	}
	decoded.AreaMode = s.Router.Config.AreaMode
	s.Router.SetConfig(decoded)
	s.Route.RecalculateFullPath(s.Router)
	return nil
}

// SetAreaMode is the sole entry point that enables area mode, forcing
// AvoidDoublingBack and ExtendRoute on alongside it.
func (s *Snapper) SetAreaMode() {
	cfg := s.Router.Config
	cfg.AreaMode = true
	cfg.AvoidDoublingBack = true
	cfg.ExtendRoute = true
	s.Router.SetConfig(cfg)
	s.Route.RecalculateFullPath(s.Router)
}

// GetConfig returns the current Config as JSON.
func (s *Snapper) GetConfig() ([]byte, error) {
	return json.Marshal(s.Router.Config)
}

func (s *Snapper) canExtendRoute() bool {
	return len(s.Route.Waypoints) < 2 || s.Router.Config.ExtendRoute
}

func (s *Snapper) pushUndo() {
	s.History.Push(s.Route.Waypoints)
}

// mouseoverNode returns the nearest node to pt, honoring the closed-area
// restriction: when the route is a closed area, a node not already on
// full_path is not offered (can't add new snapped points to a closed area).
func (s *Snapper) mouseoverNode(pt snapmap.Coord) (snapmap.NodeID, bool) {
	n, ok := s.Spatial.Nearest(pt.Lon, pt.Lat)
	if !ok {
		return 0, false
	}
	if s.Route.IsClosedArea() && !s.nodeOnFullPath(n) {
		return 0, false
	}
	return n, true
}

func (s *Snapper) nodeOnFullPath(n snapmap.NodeID) bool {
	for _, e := range s.Route.FullPath {
		if e.Kind == router.KindSnappedPoint && e.Node == n {
			return true
		}
	}
	return false
}

// mouseoverSomething checks free waypoints within radiusMeters first, then
// falls back to the nearest node.
func (s *Snapper) mouseoverSomething(pt snapmap.Coord, radiusMeters float64) (route.Waypoint, bool) {
	for _, w := range s.Route.Waypoints {
		if w.Kind == route.KindFree && w.Point.DistTo(pt) < radiusMeters {
			return w, true
		}
	}
	if n, ok := s.mouseoverNode(pt); ok {
		return route.Snapped(n), true
	}
	return route.Waypoint{}, false
}

func (s *Snapper) coordOf(w route.Waypoint) snapmap.Coord {
	if w.Kind == route.KindSnapped {
		return s.Map.Node(w.Node)
	}
	return w.Point
}

func indexOfWaypoint(ws []route.Waypoint, w route.Waypoint) int {
	for i, x := range ws {
		if x == w {
			return i
		}
	}
	return -1
}

// OnMouseMove advances the FSM for a cursor move and reports whether
// anything changed (the host should redraw).
func (s *Snapper) OnMouseMove(lon, lat, radiusMeters float64) bool {
	pt := snapmap.Coord{Lon: lon, Lat: lat}

	if s.canExtendRoute() && !s.SnapMode && s.Mode.Kind != ModeDragging {
		s.Mode = Mode{Kind: ModeFreehand, FreehandPt: pt}
		return true
	}

	switch s.Mode.Kind {
	case ModeNeutral, ModeFreehand:
		if w, ok := s.mouseoverSomething(pt, radiusMeters); ok {
			s.Mode = Mode{Kind: ModeHovering, Hover: w}
			return true
		}
		return false

	case ModeHovering:
		if w, ok := s.mouseoverSomething(pt, radiusMeters); ok {
			s.Mode = Mode{Kind: ModeHovering, Hover: w}
		} else {
			s.Mode = Mode{Kind: ModeNeutral}
		}
		return true

	case ModeDragging:
		idx, at := s.Mode.DragIdx, s.Mode.DragAt
		switch at.Kind {
		case route.KindSnapped:
			// Dragging relocates an existing vertex rather than adding a new
			// one, so the closed-area "must already be on full_path"
			// restriction mouseoverNode applies does not belong here: snap
			// to the raw nearest node instead.
			if n, ok := s.Spatial.Nearest(pt.Lon, pt.Lat); ok && n != at.Node {
				newW := route.Snapped(n)
				newIdx := s.Route.MoveWaypoint(s.Router, idx, newW)
				s.Mode = Mode{Kind: ModeDragging, DragIdx: newIdx, DragAt: newW}
				return true
			}
		case route.KindFree:
			newW := route.Free(pt)
			newIdx := s.Route.MoveWaypoint(s.Router, idx, newW)
			s.Mode = Mode{Kind: ModeDragging, DragIdx: newIdx, DragAt: newW}
			return true
		}
		return false
	}
	return false
}

// OnClick advances the FSM for a click.
func (s *Snapper) OnClick() {
	switch s.Mode.Kind {
	case ModeFreehand:
		if !s.Router.Config.AreaMode {
			s.pushUndo()
			s.Route.AddWaypoint(s.Router, route.Free(s.Mode.FreehandPt))
		}

	case ModeHovering:
		w := s.Mode.Hover
		if idx := indexOfWaypoint(s.Route.Waypoints, w); idx >= 0 {
			n := len(s.Route.Waypoints)
			closed := s.Route.IsClosedArea()
			var del bool
			if closed {
				del = n > 3 && idx != 0 && idx != n-1
			} else {
				del = n > 1
			}
			if del {
				s.pushUndo()
				s.Route.Waypoints = append(s.Route.Waypoints[:idx], s.Route.Waypoints[idx+1:]...)
				s.Route.RecalculateFullPath(s.Router)
			}
		} else if s.isPathEntryOnFullPath(w) {
			// The hovered point is an intermediate node already inside
			// full_path: do nothing, to prevent misclicks.
		} else {
			s.pushUndo()
			s.Route.AddWaypoint(s.Router, w)
			if s.Router.Config.AreaMode && !s.Route.IsClosedArea() && len(s.Route.Waypoints) == 3 {
				s.Route.AddWaypoint(s.Router, s.Route.Waypoints[0])
			}
		}
	}
}

func (s *Snapper) isPathEntryOnFullPath(w route.Waypoint) bool {
	entry := w.AsPathEntry()
	for _, e := range s.Route.FullPath {
		if e == entry {
			return true
		}
	}
	return false
}

// OnDragStart reports whether the host should hijack drag controls.
func (s *Snapper) OnDragStart() bool {
	if s.Mode.Kind != ModeHovering {
		return false
	}
	at := s.Mode.Hover
	entry := at.AsPathEntry()
	for idx, e := range s.Route.FullPath {
		if e == entry {
			s.pushUndo()
			s.Mode = Mode{Kind: ModeDragging, DragIdx: idx, DragAt: at}
			s.SnapMode = at.Kind == route.KindSnapped
			return true
		}
	}
	return false
}

// OnMouseUp reports whether a drag just ended.
func (s *Snapper) OnMouseUp() bool {
	if s.Mode.Kind != ModeDragging {
		return false
	}
	at := s.Mode.DragAt
	s.Mode = Mode{Kind: ModeHovering, Hover: at}
	return true
}

// ToggleSnapMode is disallowed in area mode.
func (s *Snapper) ToggleSnapMode() {
	if s.Router.Config.AreaMode {
		return
	}
	s.SnapMode = !s.SnapMode

	switch s.Mode.Kind {
	case ModeHovering:
		w := s.Mode.Hover
		if !s.isPathEntryOnFullPath(w) {
			s.Mode = Mode{Kind: ModeFreehand, FreehandPt: s.coordOf(w)}
		}

	case ModeDragging:
		at := s.Mode.DragAt
		if at.Kind == route.KindSnapped {
			s.Mode.DragAt = route.Free(s.Map.Node(at.Node))
		} else {
			// Same reasoning as OnMouseMove's dragging branch: this
			// relocates the vertex already being dragged, so the
			// closed-area restriction on mouseoverNode doesn't apply.
			if n, ok := s.Spatial.Nearest(at.Point.Lon, at.Point.Lat); ok {
				s.Mode.DragAt = route.Snapped(n)
			} else {
				s.SnapMode = false
			}
		}

	case ModeFreehand:
		pt := s.Mode.FreehandPt
		if n, ok := s.mouseoverNode(pt); ok {
			s.Mode = Mode{Kind: ModeHovering, Hover: route.Snapped(n)}
		} else {
			s.SnapMode = false
		}
	}
}

// Undo is disallowed while dragging.
func (s *Snapper) Undo() {
	if s.Mode.Kind == ModeDragging {
		return
	}
	snapshot, ok := s.History.Pop()
	if !ok {
		return
	}
	s.Route.Waypoints = snapshot
	s.Route.RecalculateFullPath(s.Router)
}

// ClearState resets the route and mode to their initial empty values.
func (s *Snapper) ClearState() {
	s.Route = route.New()
	s.Mode = Mode{Kind: ModeNeutral}
}

// EditExisting replaces the route with the given waypoints, snapping each
// Snapped record to its nearest node. Fails if any Snapped record has no
// nearest node (an empty map).
func (s *Snapper) EditExisting(waypoints []RouteWaypoint) error {
	s.ClearState()
	for _, wr := range waypoints {
		if wr.Snapped {
			n, ok := s.Spatial.Nearest(wr.Lon, wr.Lat)
			if !ok {
				return fmt.Errorf("%w: (%f, %f)", ErrSnapFailed, wr.Lon, wr.Lat)
			}
			s.Route.AddWaypoint(s.Router, route.Snapped(n))
		} else {
			s.Route.AddWaypoint(s.Router, route.Free(snapmap.Coord{Lon: wr.Lon, Lat: wr.Lat}))
		}
	}
	return nil
}

// AddSnappedWaypoint snaps (lon, lat) to its nearest node and appends it as
// a waypoint, with an undo snapshot.
func (s *Snapper) AddSnappedWaypoint(lon, lat float64) error {
	n, ok := s.Spatial.Nearest(lon, lat)
	if !ok {
		return ErrSnapFailed
	}
	s.pushUndo()
	s.Route.AddWaypoint(s.Router, route.Snapped(n))
	return nil
}

// RouteNameForWaypoints derives the "Route from X to Y" name a route built
// from these waypoints would have, without mutating the Snapper's state.
func (s *Snapper) RouteNameForWaypoints(waypoints []RouteWaypoint) (string, error) {
	if len(waypoints) == 0 {
		return "", errors.New("snapper: no waypoints")
	}
	first, err := s.nameForWaypointRecord(waypoints[0])
	if err != nil {
		return "", err
	}
	last, err := s.nameForWaypointRecord(waypoints[len(waypoints)-1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Route from %s to %s", first, last), nil
}

func (s *Snapper) nameForWaypointRecord(wr RouteWaypoint) (string, error) {
	if !wr.Snapped {
		return "???", nil
	}
	n, ok := s.Spatial.Nearest(wr.Lon, wr.Lat)
	if !ok {
		return "", fmt.Errorf("%w: (%f, %f)", ErrSnapFailed, wr.Lon, wr.Lat)
	}
	return s.nameForNode(n), nil
}
