package snapper

import (
	"sort"
	"strings"

	"github.com/azybler/route-snapper/pkg/route"
	"github.com/azybler/route-snapper/pkg/snapmap"
)

// nameForNode collects the distinct non-empty edge names incident to n --
// regardless of which direction is routable -- and renders them as a
// natural-language list.
func (s *Snapper) nameForNode(n snapmap.NodeID) string {
	seen := make(map[string]bool)
	var names []string

	for i := range s.Map.Edges {
		e := &s.Map.Edges[i]
		if e.Node1 != n && e.Node2 != n {
			continue
		}
		if e.Name != "" && !seen[e.Name] {
			seen[e.Name] = true
			names = append(names, e.Name)
		}
	}
	sort.Strings(names)
	return naturalJoin(names)
}

// nameForWaypoint names a Waypoint: a Snapped waypoint takes its node's
// name, a Free waypoint has none.
func (s *Snapper) nameForWaypoint(w route.Waypoint) string {
	if w.Kind == route.KindSnapped {
		return s.nameForNode(w.Node)
	}
	return "???"
}

func naturalJoin(names []string) string {
	switch len(names) {
	case 0:
		return "???"
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}
