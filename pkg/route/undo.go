package route

const undoCapacity = 100

// UndoHistory is a bounded stack of waypoint-list snapshots. full_path is a
// pure function of waypoints + config + map, so only waypoints need
// snapshotting.
type UndoHistory struct {
	stack [][]Waypoint
}

// Push snapshots the current waypoint list. Call immediately before any
// state-mutating operation except mid-drag updates. Oldest snapshot is
// dropped once capacity is exceeded.
func (h *UndoHistory) Push(waypoints []Waypoint) {
	snapshot := make([]Waypoint, len(waypoints))
	copy(snapshot, waypoints)
	h.stack = append(h.stack, snapshot)
	if len(h.stack) > undoCapacity {
		h.stack = h.stack[1:]
	}
}

// Pop removes and returns the most recent snapshot, or (nil, false) if the
// history is empty.
func (h *UndoHistory) Pop() ([]Waypoint, bool) {
	if len(h.stack) == 0 {
		return nil, false
	}
	n := len(h.stack) - 1
	snapshot := h.stack[n]
	h.stack = h.stack[:n]
	return snapshot, true
}

// Len returns the number of snapshots currently held.
func (h *UndoHistory) Len() int {
	return len(h.stack)
}
