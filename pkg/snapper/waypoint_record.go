package snapper

import "math"

// RouteWaypoint is the wire record emitted in final GeoJSON and consumed by
// EditExisting: a lon/lat pair truncated to 6 decimal places plus whether
// it was snapped to a graph node.
type RouteWaypoint struct {
	Lon     float64 `json:"lon"`
	Lat     float64 `json:"lat"`
	Snapped bool    `json:"snapped"`
}

// truncate6 truncates (not rounds) toward zero at the 6th decimal place,
// matching the ~10cm wire precision used elsewhere for coordinates.
func truncate6(v float64) float64 {
	return math.Trunc(v*1e6) / 1e6
}
