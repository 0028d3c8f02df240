// Package geom holds the 2D predicates used to claim mesh faces for footprints.
package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DefaultBuffer is the outward tolerance applied to a face before intersecting it with
// a footprint, in the footprint's linear unit.
const DefaultBuffer = 0.001

// degenerateRatio bounds area/perimeter² below which a ring is treated as collapsed.
const degenerateRatio = 1e-12

// Predicate decides whether face, grown outward by distance, intersects target.
type Predicate interface {
	BufferedIntersects(face orb.Ring, target orb.MultiPolygon, distance float64) bool
}

// Planar implements Predicate on orb/planar. Growing a polygon by d and testing for
// intersection is the same as asking whether the two are within d of each other, so
// no buffer polygon is built.
type Planar struct{}

func (Planar) BufferedIntersects(face orb.Ring, target orb.MultiPolygon, distance float64) bool {
	if Degenerate(face) {
		return false
	}
	for _, p := range face {
		if planar.MultiPolygonContains(target, p) {
			return true
		}
	}
	for _, poly := range target {
		if len(poly) == 0 || len(poly[0]) == 0 {
			continue
		}
		if planar.RingContains(face, poly[0][0]) {
			return true
		}
	}
	for _, poly := range target {
		for _, ring := range poly {
			if ringsWithin(face, ring, distance) {
				return true
			}
		}
	}
	return false
}

func ringsWithin(a, b orb.Ring, d float64) bool {
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentDistance(a[i], a[i+1], b[j], b[j+1]) <= d {
				return true
			}
		}
	}
	return false
}

func segmentDistance(a, b, c, d orb.Point) float64 {
	if segmentsIntersect(a, b, c, d) {
		return 0
	}
	return math.Min(
		math.Min(planar.DistanceFromSegment(a, b, c), planar.DistanceFromSegment(a, b, d)),
		math.Min(planar.DistanceFromSegment(c, d, a), planar.DistanceFromSegment(c, d, b)),
	)
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

func segmentsIntersect(a, b, c, d orb.Point) bool {
	o1 := orientation(a, b, c)
	o2 := orientation(a, b, d)
	o3 := orientation(c, d, a)
	o4 := orientation(c, d, b)
	if ((o1 > 0 && o2 < 0) || (o1 < 0 && o2 > 0)) && ((o3 > 0 && o4 < 0) || (o3 < 0 && o4 > 0)) {
		return true
	}
	switch {
	case o1 == 0 && onSegment(a, b, c):
		return true
	case o2 == 0 && onSegment(a, b, d):
		return true
	case o3 == 0 && onSegment(c, d, a):
		return true
	case o4 == 0 && onSegment(c, d, b):
		return true
	}
	return false
}

// Degenerate reports whether r has fewer than three distinct points or no area.
func Degenerate(r orb.Ring) bool {
	distinct := make(map[orb.Point]struct{}, len(r))
	for _, p := range r {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return true
	}
	perim := 0.0
	for i := range r {
		perim += planar.Distance(r[i], r[(i+1)%len(r)])
	}
	area := math.Abs(shoelace(r))
	return area <= degenerateRatio*perim*perim
}

// shoelace is taken relative to the first point to keep projected UTM coordinates from
// cancelling out.
func shoelace(r orb.Ring) float64 {
	o := r[0]
	sum := 0.0
	for i := range r {
		j := (i + 1) % len(r)
		xi, yi := r[i][0]-o[0], r[i][1]-o[1]
		xj, yj := r[j][0]-o[0], r[j][1]-o[1]
		sum += xi*yj - xj*yi
	}
	return sum / 2
}
