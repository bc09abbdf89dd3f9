// Control point and geometry value types shared by the store, the sync
// layer, and the remote gateway payloads.
package domain

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// GeoPoint is a WGS84 latitude/longitude pair. No CRS tag is carried; the
// convention matches the reference-map tiles (EPSG:4326 lat/lng order).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ControlPointPair links a coordinate on the scanned source image with the
// matching coordinate on the reference map. IDs are assigned monotonically
// within one WorkRecord and are never reused.
//
// OriginalCoords is an optional snapshot of the source point as it was first
// placed, kept so a restored session can recreate its visual marker at the
// original position even after the point was dragged.
type ControlPointPair struct {
	ID             int       `json:"id"`
	SourcePoint    *GeoPoint `json:"source_point,omitempty"`
	TargetPoint    *GeoPoint `json:"target_point,omitempty"`
	OriginalCoords *GeoPoint `json:"original_coords,omitempty"`
}

// IsComplete reports whether both halves of the pair have been placed.
func (p ControlPointPair) IsComplete() bool {
	return p.SourcePoint != nil && p.TargetPoint != nil
}

// NextControlPointID returns the next free monotonic id for a new pair.
func NextControlPointID(pairs []ControlPointPair) int {
	next := 1
	for _, p := range pairs {
		if p.ID >= next {
			next = p.ID + 1
		}
	}
	return next
}

// CompletePairs returns only the pairs with both points placed, in order.
// The compute API accepts nothing else.
func CompletePairs(pairs []ControlPointPair) []ControlPointPair {
	out := make([]ControlPointPair, 0, len(pairs))
	for _, p := range pairs {
		if p.IsComplete() {
			out = append(out, p)
		}
	}
	return out
}

// PolygonRing converts a clipping polygon to an orb ring, closing it if the
// caller left the last vertex open.
func PolygonRing(pts []GeoPoint) orb.Ring {
	ring := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		ring = append(ring, orb.Point{p.Lng, p.Lat})
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// MeaningfulPolygon reports whether pts describes a usable clipping boundary:
// at least three distinct vertices enclosing a non-zero area.
func MeaningfulPolygon(pts []GeoPoint) bool {
	if len(pts) < 3 {
		return false
	}
	return planar.Area(PolygonRing(pts)) != 0
}
