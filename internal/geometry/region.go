package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/peterstace/simplefeatures/geom"
)

// Region is a read-only dissolved footprint. Containment runs on the orb
// shape; boundary queries run against the precomputed union boundary.
// It is safe for concurrent use.
type Region struct {
	shape    orb.MultiPolygon
	bound    orb.Bound
	boundary geom.Geometry
}

// NewRegion dissolves polys into a region. No usable polygon gives an
// empty region.
func NewRegion(polys ...orb.Polygon) (Region, error) {
	shape, err := Dissolve(polys...)
	if err != nil {
		return Region{}, err
	}
	return RegionOf(shape)
}

// RegionOf wraps a multipolygon that is already valid.
func RegionOf(mp orb.MultiPolygon) (Region, error) {
	if len(mp) == 0 {
		return Region{}, nil
	}
	g, err := toSF(mp)
	if err != nil {
		return Region{}, err
	}
	return Region{shape: mp, bound: mp.Bound(), boundary: g.Boundary()}, nil
}

// Empty reports whether the region has no area.
func (r Region) Empty() bool { return len(r.shape) == 0 }

// Parts returns the dissolved polygons.
func (r Region) Parts() orb.MultiPolygon { return r.shape }

// Bound returns the bounding box of the region.
func (r Region) Bound() orb.Bound { return r.bound }

// Contains reports whether p lies inside or on the boundary.
func (r Region) Contains(p orb.Point) bool {
	if r.Empty() || !r.bound.Contains(p) {
		return false
	}
	return planar.MultiPolygonContains(r.shape, p)
}

// BoundaryDistance returns the planar distance in degrees from p to the
// region boundary. An empty region returns +Inf.
func (r Region) BoundaryDistance(p orb.Point) float64 {
	if r.Empty() {
		return math.Inf(1)
	}
	d, ok := geom.Distance(r.boundary, geom.XY{X: p[0], Y: p[1]}.AsPoint().AsGeometry())
	if !ok {
		return math.Inf(1)
	}
	return d
}

// RayHit intersects the segment that starts at origin, heads toward through,
// and runs for span degrees with the region boundary. It returns the hit
// nearest to origin.
func (r Region) RayHit(origin, through orb.Point, span float64) (orb.Point, bool) {
	dx, dy := through[0]-origin[0], through[1]-origin[1]
	l := math.Hypot(dx, dy)
	if l == 0 || r.Empty() {
		return orb.Point{}, false
	}
	end := orb.Point{origin[0] + dx/l*span, origin[1] + dy/l*span}

	ray, err := toSF(orb.LineString{origin, end})
	if err != nil {
		return orb.Point{}, false
	}
	hits, err := geom.Intersection(r.boundary, ray)
	if err != nil || hits.IsEmpty() {
		return orb.Point{}, false
	}
	og, err := fromSF(hits)
	if err != nil {
		return orb.Point{}, false
	}

	var hit orb.Point
	best := math.Inf(1)
	eachVertex(og, func(q orb.Point) {
		if d := planar.Distance(origin, q); d < best {
			hit, best = q, d
		}
	})
	return hit, !math.IsInf(best, 1)
}

// eachVertex visits every vertex of g. For a collinear overlap the nearest
// point to any outside location is one of its vertices.
func eachVertex(g orb.Geometry, fn func(orb.Point)) {
	switch t := g.(type) {
	case orb.Point:
		fn(t)
	case orb.MultiPoint:
		for _, p := range t {
			fn(p)
		}
	case orb.LineString:
		for _, p := range t {
			fn(p)
		}
	case orb.MultiLineString:
		for _, ls := range t {
			eachVertex(ls, fn)
		}
	case orb.Collection:
		for _, c := range t {
			eachVertex(c, fn)
		}
	}
}
