// Package route holds the user-editable route state: an ordered waypoint
// list and its derived full_path expansion, plus the bounded undo history
// over waypoint snapshots.
package route

import (
	"github.com/azybler/route-snapper/pkg/router"
	"github.com/azybler/route-snapper/pkg/snapmap"
)

// WaypointKind discriminates Waypoint's two variants.
type WaypointKind int

const (
	KindSnapped WaypointKind = iota
	KindFree
)

// Waypoint is a user-committed anchor: either fixed to a graph node or
// placed anywhere on the map.
type Waypoint struct {
	Kind  WaypointKind
	Node  snapmap.NodeID // valid when Kind == KindSnapped
	Point snapmap.Coord  // valid when Kind == KindFree
}

func Snapped(n snapmap.NodeID) Waypoint { return Waypoint{Kind: KindSnapped, Node: n} }
func Free(p snapmap.Coord) Waypoint     { return Waypoint{Kind: KindFree, Point: p} }

// AsPathEntry converts a Waypoint to the PathEntry full_path represents it
// with.
func (w Waypoint) AsPathEntry() router.PathEntry {
	if w.Kind == KindSnapped {
		return router.SnappedPoint(w.Node)
	}
	return router.FreePoint(w.Point)
}

// asWaypoint converts a PathEntry back to the Waypoint it represents, or
// false if the entry is an Edge (no corresponding waypoint).
func asWaypoint(e router.PathEntry) (Waypoint, bool) {
	switch e.Kind {
	case router.KindSnappedPoint:
		return Snapped(e.Node), true
	case router.KindFreePoint:
		return Free(e.Point), true
	default:
		return Waypoint{}, false
	}
}

// Route is the ordered waypoint list plus its derived full_path expansion.
type Route struct {
	Waypoints []Waypoint
	FullPath  []router.PathEntry
}

// New returns an empty route.
func New() *Route {
	return &Route{}
}

// IsClosedArea reports whether the route is a closed area: at least two
// waypoints with the first identical to the last.
func (rt *Route) IsClosedArea() bool {
	n := len(rt.Waypoints)
	return n >= 2 && rt.Waypoints[0] == rt.Waypoints[n-1]
}

// AddWaypoint appends w to the waypoint list. If the list was empty, no
// recalculation is needed (full_path stays empty, matching the convention
// that a single waypoint has no expanded path yet). Routing failures
// between snapped waypoints are not rolled back -- the route degrades to a
// straight line between the disconnected pair instead.
func (rt *Route) AddWaypoint(r *router.Router, w Waypoint) {
	if len(rt.Waypoints) == 0 {
		rt.Waypoints = append(rt.Waypoints, w)
		return
	}
	rt.Waypoints = append(rt.Waypoints, w)
	rt.RecalculateFullPath(r)
}

// MoveWaypoint relocates the waypoint whose current PathEntry sits at
// fullIdx in full_path to newW, recalculates full_path, and returns the new
// full_path index of newW.
func (rt *Route) MoveWaypoint(r *router.Router, fullIdx int, newW Waypoint) int {
	// A sole waypoint may have an empty full_path (AddWaypoint does not
	// expand it), so it is replaced without consulting full_path.
	if len(rt.Waypoints) == 1 {
		rt.Waypoints[0] = newW
		rt.FullPath = nil
		return 0
	}

	oldW, ok := asWaypoint(rt.FullPath[fullIdx])
	if !ok {
		panic("route: MoveWaypoint target full_path entry is not a waypoint")
	}

	closed := rt.IsClosedArea()

	if wayIdx := indexOfWaypoint(rt.Waypoints, oldW); wayIdx >= 0 {
		rt.Waypoints[wayIdx] = newW
		if closed && wayIdx == 0 {
			rt.Waypoints[len(rt.Waypoints)-1] = newW
		}
	} else {
		inserted := false
		// The last full_path entry is excluded from the scan: reaching it is
		// handled below, which keeps a closed area's first=last identity.
		for _, entry := range rt.FullPath[fullIdx : len(rt.FullPath)-1] {
			if wayIdx := indexOfPathEntry(rt.Waypoints, entry); wayIdx >= 0 {
				rt.Waypoints = insertWaypoint(rt.Waypoints, wayIdx, newW)
				inserted = true
				break
			}
		}
		if !inserted {
			// The scan reached the last entry of full_path without finding
			// the next waypoint: insert immediately before the final waypoint.
			idx := len(rt.Waypoints) - 1
			rt.Waypoints = insertWaypoint(rt.Waypoints, idx, newW)
		}
	}

	rt.RecalculateFullPath(r)

	for i, e := range rt.FullPath {
		if w, ok := asWaypoint(e); ok && w == newW {
			return i
		}
	}
	panic("route: new waypoint not found in recalculated full_path")
}

// RecalculateFullPath rebuilds full_path from waypoints + config. Called
// after every committed edit; there is no incremental recomputation.
func (rt *Route) RecalculateFullPath(r *router.Router) {
	rt.FullPath = rt.FullPath[:0]

	for i := 0; i+1 < len(rt.Waypoints); i++ {
		a := rt.Waypoints[i]
		b := rt.Waypoints[i+1]

		// A routed previous segment already ends with a's entry.
		if entry := a.AsPathEntry(); len(rt.FullPath) == 0 || rt.FullPath[len(rt.FullPath)-1] != entry {
			rt.FullPath = append(rt.FullPath, entry)
		}

		if a.Kind == KindSnapped && b.Kind == KindSnapped {
			if entries, ok := r.Pathfind(a.Node, b.Node, rt.FullPath); ok {
				// Pop the trailing SnappedPoint(a) to avoid duplicating it:
				// entries already starts with SnappedPoint(a).
				rt.FullPath = rt.FullPath[:len(rt.FullPath)-1]
				rt.FullPath = append(rt.FullPath, entries...)
			}
			// Disconnected: leave full_path as-is: the next iteration appends b.
		}
	}

	if n := len(rt.Waypoints); n > 0 {
		last := rt.Waypoints[n-1].AsPathEntry()
		if len(rt.FullPath) == 0 || rt.FullPath[len(rt.FullPath)-1] != last {
			rt.FullPath = append(rt.FullPath, last)
		}
	}
}

func indexOfWaypoint(ws []Waypoint, w Waypoint) int {
	for i, x := range ws {
		if x == w {
			return i
		}
	}
	return -1
}

func indexOfPathEntry(ws []Waypoint, e router.PathEntry) int {
	for i, w := range ws {
		if w.AsPathEntry() == e {
			return i
		}
	}
	return -1
}

func insertWaypoint(ws []Waypoint, idx int, w Waypoint) []Waypoint {
	ws = append(ws, Waypoint{})
	copy(ws[idx+1:], ws[idx:])
	ws[idx] = w
	return ws
}
