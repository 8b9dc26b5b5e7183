package geometry

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/peterstace/simplefeatures/geom"
)

// toSF converts an orb geometry for use with the overlay engine. Input is
// not validated so that invalid shapes can still be checked or repaired.
func toSF(g orb.Geometry) (geom.Geometry, error) {
	data, err := geojson.NewGeometry(g).MarshalJSON()
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("encode %s: %w", g.GeoJSONType(), err)
	}
	out, err := geom.UnmarshalGeoJSON(data, geom.NoValidate{})
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("decode %s: %w", g.GeoJSONType(), err)
	}
	return out, nil
}

func fromSF(g geom.Geometry) (orb.Geometry, error) {
	data, err := g.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode overlay result: %w", err)
	}
	out, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("decode overlay result: %w", err)
	}
	return out.Geometry(), nil
}

// Dissolve returns the union of polys as a valid multipolygon. A shell that
// touches itself at a vertex is first split into simple loops, and
// zero-area loops are dropped.
func Dissolve(polys ...orb.Polygon) (orb.MultiPolygon, error) {
	var parts orb.Collection
	for _, p := range polys {
		for _, simple := range splitPolygon(p) {
			parts = append(parts, simple)
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	g, err := toSF(parts)
	if err != nil {
		return nil, err
	}
	u, err := geom.UnaryUnion(g)
	if err != nil {
		return nil, fmt.Errorf("dissolve %d polygons: %w", len(parts), err)
	}
	return multiPolygonOf(u)
}

// IsValid reports whether mp is a non-empty, valid OGC multipolygon.
func IsValid(mp orb.MultiPolygon) bool {
	if len(mp) == 0 {
		return false
	}
	g, err := toSF(mp)
	if err != nil {
		return false
	}
	return g.Validate() == nil
}

// multiPolygonOf keeps the polygonal parts of an overlay result, wound
// shells counter-clockwise and holes clockwise, largest polygon first.
func multiPolygonOf(g geom.Geometry) (orb.MultiPolygon, error) {
	if g.IsEmpty() {
		return nil, nil
	}
	og, err := fromSF(g)
	if err != nil {
		return nil, err
	}
	var out orb.MultiPolygon
	var collect func(orb.Geometry)
	collect = func(x orb.Geometry) {
		switch t := x.(type) {
		case orb.Polygon:
			out = append(out, t)
		case orb.MultiPolygon:
			out = append(out, t...)
		case orb.Collection:
			for _, c := range t {
				collect(c)
			}
		}
	}
	collect(og)

	kept := out[:0]
	for _, p := range out {
		if len(p) == 0 || math.Abs(signedArea(p[0])) < areaEpsilon {
			continue
		}
		kept = append(kept, orientPolygon(p))
	}
	if len(kept) == 0 {
		return nil, nil
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return planar.Area(kept[i]) > planar.Area(kept[j])
	})
	return kept, nil
}

func orientPolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		if i == 0 {
			out[i] = orientCCW(r)
		} else {
			out[i] = reverseRing(orientCCW(r))
		}
	}
	return out
}

// splitPolygon breaks a shell that revisits a vertex into simple loops.
// Polygons with holes are passed through.
func splitPolygon(p orb.Polygon) []orb.Polygon {
	if len(p) == 0 || len(p[0]) < 4 {
		return nil
	}
	if len(p) > 1 {
		return []orb.Polygon{p}
	}
	var out []orb.Polygon
	for _, loop := range splitLoops(p[0]) {
		out = append(out, orb.Polygon{loop})
	}
	return out
}

func splitLoops(ring orb.Ring) []orb.Ring {
	pts := []orb.Point(ring)
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}

	var loops []orb.Ring
	var stack []orb.Point
	index := make(map[orb.Point]int, len(pts))
	for _, p := range pts {
		if k, ok := index[p]; ok {
			loops = appendLoop(loops, stack[k:])
			for _, q := range stack[k+1:] {
				delete(index, q)
			}
			stack = stack[:k+1]
			continue
		}
		index[p] = len(stack)
		stack = append(stack, p)
	}
	return appendLoop(loops, stack)
}

func appendLoop(loops []orb.Ring, pts []orb.Point) []orb.Ring {
	if len(pts) < 3 {
		return loops
	}
	r := closeRing(append([]orb.Point(nil), pts...))
	if math.Abs(signedArea(r)) < areaEpsilon {
		return loops
	}
	return append(loops, orientCCW(r))
}
