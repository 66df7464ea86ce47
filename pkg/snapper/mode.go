package snapper

import (
	"github.com/azybler/route-snapper/pkg/route"
	"github.com/azybler/route-snapper/pkg/snapmap"
)

// ModeKind discriminates the interaction FSM's four states.
type ModeKind int

const (
	ModeNeutral ModeKind = iota
	ModeHovering
	ModeDragging
	ModeFreehand
)

// Mode is the interaction engine's current FSM state.
type Mode struct {
	Kind ModeKind

	Hover      route.Waypoint // valid when Kind == ModeHovering
	DragIdx    int            // valid when Kind == ModeDragging: index into full_path
	DragAt     route.Waypoint // valid when Kind == ModeDragging
	FreehandPt snapmap.Coord  // valid when Kind == ModeFreehand
}
