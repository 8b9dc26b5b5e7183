package windfield

import (
	"math"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/geodesy"
	"github.com/paulmach/orb"
)

// DefaultArcSamples is the number of bearings sampled per quadrant arc,
// endpoints included.
const DefaultArcSamples = 30

// quadrantArc samples n points along the quadrant's bearing arc at radiusNM
// from center. Longitudes are kept continuous with the center so shapes
// near the antimeridian stay planar.
func quadrantArc(center orb.Point, q domain.Quadrant, radiusNM float64, n int) []orb.Point {
	if n < 2 {
		n = 2
	}
	start, end := q.BearingRange()
	pts := make([]orb.Point, n)
	for k := 0; k < n; k++ {
		bearing := start + (end-start)*float64(k)/float64(n-1)
		pts[k] = destination(center, bearing, radiusNM)
	}
	return pts
}

// diagonalPoint is the destination along the quadrant's center bearing.
func diagonalPoint(center orb.Point, q domain.Quadrant, radiusNM float64) orb.Point {
	start, end := q.BearingRange()
	return destination(center, (start+end)/2, radiusNM)
}

func destination(center orb.Point, bearing, radiusNM float64) orb.Point {
	lon, lat := geodesy.Destination(center.Lat(), center.Lon(), bearing, radiusNM)
	return orb.Point{unwrapLon(lon, center.Lon()), lat}
}

// unwrapLon shifts lon by a full turn when that brings it closer to ref.
func unwrapLon(lon, ref float64) float64 {
	switch {
	case lon-ref > 180:
		return lon - 360
	case lon-ref < -180:
		return lon + 360
	}
	return lon
}

func nearlyEqual(a, b orb.Point) bool {
	return math.Abs(a[0]-b[0]) <= 1e-12 && math.Abs(a[1]-b[1]) <= 1e-12
}
