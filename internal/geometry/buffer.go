package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// DefaultQuadSegments matches the usual buffer resolution of 16 segments per
// quarter circle.
const DefaultQuadSegments = 16

// BufferPoint returns a circle of the given radius around c.
func BufferPoint(c orb.Point, radius float64, quadSegs int) orb.Polygon {
	if radius <= 0 {
		return nil
	}
	if quadSegs <= 0 {
		quadSegs = DefaultQuadSegments
	}
	n := 4 * quadSegs
	pts := make([]orb.Point, 0, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pts = append(pts, orb.Point{c[0] + radius*math.Cos(theta), c[1] + radius*math.Sin(theta)})
	}
	return orb.Polygon{closeRing(pts)}
}

// BufferSegment returns the capsule of the given radius around segment ab.
func BufferSegment(a, b orb.Point, radius float64, quadSegs int) orb.Polygon {
	if radius <= 0 {
		return nil
	}
	if a == b {
		return BufferPoint(a, radius, quadSegs)
	}
	if quadSegs <= 0 {
		quadSegs = DefaultQuadSegments
	}
	heading := math.Atan2(b[1]-a[1], b[0]-a[0])
	steps := 2 * quadSegs

	pts := make([]orb.Point, 0, 2*(steps+1))
	// Cap around b from the right side to the left side, then around a back.
	for i := 0; i <= steps; i++ {
		theta := heading - math.Pi/2 + math.Pi*float64(i)/float64(steps)
		pts = append(pts, orb.Point{b[0] + radius*math.Cos(theta), b[1] + radius*math.Sin(theta)})
	}
	for i := 0; i <= steps; i++ {
		theta := heading + math.Pi/2 + math.Pi*float64(i)/float64(steps)
		pts = append(pts, orb.Point{a[0] + radius*math.Cos(theta), a[1] + radius*math.Sin(theta)})
	}
	return orb.Polygon{closeRing(pts)}
}
