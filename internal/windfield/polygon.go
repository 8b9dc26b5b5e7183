package windfield

import (
	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/geometry"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DefaultSparseBufferDeg is the buffer around the degenerate footprint of a
// step with only one or two usable quadrants.
const DefaultSparseBufferDeg = 0.02

// PolygonKind tags how an instantaneous wind polygon was built.
type PolygonKind string

const (
	PolygonArc           PolygonKind = "arc"
	PolygonBufferedPoint PolygonKind = "buffered_point"
	PolygonBufferedLine  PolygonKind = "buffered_line"
)

// PolygonOptions tunes instantaneous polygon construction.
type PolygonOptions struct {
	ArcSamples      int
	SparseBufferDeg float64
}

// DefaultPolygonOptions returns the calibrated defaults.
func DefaultPolygonOptions() PolygonOptions {
	return PolygonOptions{ArcSamples: DefaultArcSamples, SparseBufferDeg: DefaultSparseBufferDeg}
}

// WindPolygon is the wind-threshold footprint of a single time step.
type WindPolygon struct {
	Geometry       orb.MultiPolygon
	Kind           PolygonKind
	ValidQuadrants int
	bound          orb.Bound
}

// Contains reports whether p (lon, lat) lies in or on the polygon.
func (w WindPolygon) Contains(p orb.Point) bool {
	if len(w.Geometry) == 0 || !w.bound.Contains(p) {
		return false
	}
	return planar.MultiPolygonContains(w.Geometry, p)
}

// BuildWindPolygon turns one step's quadrant radii into a closed footprint
// around center (lon, lat). It reports false when no quadrant is usable.
//
// With three or four usable quadrants each quadrant arc is sampled and the
// arcs are joined in bearing order. With one or two, the diagonal
// destination points are buffered into a small point or line footprint.
func BuildWindPolygon(center orb.Point, radii domain.Radii, opts PolygonOptions) (WindPolygon, bool) {
	if opts.ArcSamples <= 0 {
		opts.ArcSamples = DefaultArcSamples
	}
	if opts.SparseBufferDeg <= 0 {
		opts.SparseBufferDeg = DefaultSparseBufferDeg
	}

	valid := quadrantsOf(radii)
	var (
		geom orb.MultiPolygon
		kind PolygonKind
	)
	switch len(valid) {
	case 0:
		return WindPolygon{}, false
	case 1:
		p := diagonalPoint(center, valid[0], radii[valid[0]])
		geom = orb.MultiPolygon{geometry.BufferPoint(p, opts.SparseBufferDeg, geometry.DefaultQuadSegments)}
		kind = PolygonBufferedPoint
	case 2:
		a := diagonalPoint(center, valid[0], radii[valid[0]])
		b := diagonalPoint(center, valid[1], radii[valid[1]])
		geom = orb.MultiPolygon{geometry.BufferSegment(a, b, opts.SparseBufferDeg, geometry.DefaultQuadSegments)}
		kind = PolygonBufferedLine
	default:
		geom = arcPolygon(center, radii, valid, opts.ArcSamples)
		kind = PolygonArc
	}
	if len(geom) == 0 {
		return WindPolygon{}, false
	}
	return WindPolygon{Geometry: geom, Kind: kind, ValidQuadrants: len(valid), bound: geom.Bound()}, true
}

// arcPolygon joins the sampled quadrant arcs into a ring. When the ring is
// not simple it is rebuilt as the union of the fan of triangles around the
// center, which covers the same star-shaped area.
func arcPolygon(center orb.Point, radii domain.Radii, valid []domain.Quadrant, samples int) orb.MultiPolygon {
	var pts []orb.Point
	for _, q := range valid {
		for _, p := range quadrantArc(center, q, radii[q], samples) {
			if len(pts) > 0 && nearlyEqual(pts[len(pts)-1], p) {
				continue
			}
			pts = append(pts, p)
		}
	}
	for len(pts) > 1 && nearlyEqual(pts[0], pts[len(pts)-1]) {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return nil
	}

	// Compass bearings run clockwise; shells are counter-clockwise.
	ring := make(orb.Ring, 0, len(pts)+1)
	for i := len(pts) - 1; i >= 0; i-- {
		ring = append(ring, pts[i])
	}
	ring = append(ring, ring[0])

	mp := orb.MultiPolygon{orb.Polygon{ring}}
	if geometry.IsValid(mp) {
		return mp
	}
	fan := make([]orb.Polygon, 0, len(ring)-1)
	for i := 0; i+1 < len(ring); i++ {
		fan = append(fan, orb.Polygon{orb.Ring{center, ring[i], ring[i+1], center}})
	}
	repaired, err := geometry.Dissolve(fan...)
	if err != nil {
		return nil
	}
	return repaired
}

func quadrantsOf(r domain.Radii) []domain.Quadrant {
	var out []domain.Quadrant
	for _, q := range domain.Quadrants {
		if r.Valid(q) {
			out = append(out, q)
		}
	}
	return out
}
