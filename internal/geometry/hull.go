package geometry

import (
	"math"

	"github.com/fogleman/delaunay"
	"github.com/paulmach/orb"
)

// AlphaShape returns the concave hull of points: the union of Delaunay
// triangles whose circumradius is below 1/alpha. Fewer than four distinct
// points or a failed triangulation fall back to the convex hull. When no
// triangle survives the filter, or the input is collinear, it returns nil.
func AlphaShape(points []orb.Point, alpha float64) orb.MultiPolygon {
	pts := uniquePoints(points)
	if len(pts) < 3 {
		return nil
	}
	if len(pts) < 4 {
		return ConvexHull(pts)
	}

	tri, err := delaunay.Triangulate(toDelaunay(pts))
	if err != nil || len(tri.Triangles) == 0 {
		return ConvexHull(pts)
	}

	maxRadius := math.Inf(1)
	if alpha > 0 {
		maxRadius = 1 / alpha
	}

	var kept []orb.Polygon
	for t := 0; t+2 < len(tri.Triangles); t += 3 {
		a, b, c := pts[tri.Triangles[t]], pts[tri.Triangles[t+1]], pts[tri.Triangles[t+2]]
		area, radius := triangleMetrics(a, b, c)
		if area <= areaEpsilon || radius >= maxRadius {
			continue
		}
		kept = append(kept, orb.Polygon{orientCCW(orb.Ring{a, b, c, a})})
	}
	if len(kept) == 0 {
		return nil
	}

	mp, err := Dissolve(kept...)
	if err != nil {
		return ConvexHull(pts)
	}
	return mp
}

// ConvexHull returns the convex hull of points as a single counter-clockwise
// polygon, or nil when the points are collinear or fewer than three.
func ConvexHull(points []orb.Point) orb.MultiPolygon {
	pts := uniquePoints(points)
	if len(pts) < 3 {
		return nil
	}
	g, err := toSF(orb.MultiPoint(pts))
	if err != nil {
		return nil
	}
	mp, err := multiPolygonOf(g.ConvexHull())
	if err != nil {
		return nil
	}
	return mp
}

// triangleMetrics returns the area and circumradius of triangle abc.
func triangleMetrics(a, b, c orb.Point) (area, radius float64) {
	la := length(sub(b, c))
	lb := length(sub(a, c))
	lc := length(sub(a, b))
	area = math.Abs(cross(sub(b, a), sub(c, a))) / 2
	if area == 0 {
		return 0, math.Inf(1)
	}
	return area, la * lb * lc / (4 * area)
}

func toDelaunay(pts []orb.Point) []delaunay.Point {
	out := make([]delaunay.Point, len(pts))
	for i, p := range pts {
		out[i] = delaunay.Point{X: p[0], Y: p[1]}
	}
	return out
}

// uniquePoints drops exact duplicates and non-finite points, keeping order.
func uniquePoints(points []orb.Point) []orb.Point {
	seen := make(map[orb.Point]bool, len(points))
	out := make([]orb.Point, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
