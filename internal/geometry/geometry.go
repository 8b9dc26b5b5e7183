// Package geometry implements the planar polygon operations the wind-field
// model needs on top of orb types. Overlay work (union, validity and
// boundary queries) is delegated to simplefeatures.
//
// Coordinates are treated as planar lon/lat degrees. Shells are wound
// counter-clockwise and holes clockwise, matching RFC 7946.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// areaEpsilon is the smallest ring or triangle area kept, in square degrees.
const areaEpsilon = 1e-12

func sub(a, b orb.Point) orb.Point { return orb.Point{a[0] - b[0], a[1] - b[1]} }

func cross(a, b orb.Point) float64 { return a[0]*b[1] - a[1]*b[0] }

func dot(a, b orb.Point) float64 { return a[0]*b[0] + a[1]*b[1] }

func length(a orb.Point) float64 { return math.Hypot(a[0], a[1]) }

// signedArea returns the shoelace area of a ring: positive when counter-clockwise.
func signedArea(r orb.Ring) float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += r[i][0]*r[j][1] - r[j][0]*r[i][1]
	}
	return sum / 2
}

// closeRing returns a copy of pts with the first point repeated at the end.
func closeRing(pts []orb.Point) orb.Ring {
	r := make(orb.Ring, 0, len(pts)+1)
	r = append(r, pts...)
	if len(r) > 0 && r[0] != r[len(r)-1] {
		r = append(r, r[0])
	}
	return r
}

func reverseRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i := range r {
		out[len(r)-1-i] = r[i]
	}
	return out
}

// orientCCW returns r wound counter-clockwise.
func orientCCW(r orb.Ring) orb.Ring {
	if signedArea(r) < 0 {
		return reverseRing(r)
	}
	return r
}

// ClosestPointOnSegment returns the point of segment ab nearest to p.
func ClosestPointOnSegment(a, b, p orb.Point) orb.Point {
	ab := sub(b, a)
	l2 := dot(ab, ab)
	if l2 == 0 {
		return a
	}
	t := dot(sub(p, a), ab) / l2
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	return orb.Point{a[0] + t*ab[0], a[1] + t*ab[1]}
}

// NearestPointOnLine projects p onto a line string and returns the closest
// point on it. A single-point line returns that point.
func NearestPointOnLine(line orb.LineString, p orb.Point) orb.Point {
	switch len(line) {
	case 0:
		return p
	case 1:
		return line[0]
	}
	best := line[0]
	bestD := math.Inf(1)
	for i := 0; i < len(line)-1; i++ {
		q := ClosestPointOnSegment(line[i], line[i+1], p)
		if d := length(sub(q, p)); d < bestD {
			best, bestD = q, d
		}
	}
	return best
}
