package geometry

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x0, y0, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0},
	}}
}

func TestConvexHull_Square(t *testing.T) {
	pts := []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0.5, 0.5}, {0.25, 0.75}}
	hull := ConvexHull(pts)
	require.Len(t, hull, 1)
	assert.InDelta(t, 1.0, planar.Area(hull), 1e-12)
	assert.Greater(t, signedArea(hull[0][0]), 0.0, "shell must be counter-clockwise")
}

func TestConvexHull_Degenerate(t *testing.T) {
	assert.Nil(t, ConvexHull([]orb.Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}}))
	assert.Nil(t, ConvexHull([]orb.Point{{0, 0}, {1, 1}}))
	assert.Nil(t, ConvexHull([]orb.Point{{0, 0}, {0, 0}, {0, 0}}))
}

func TestAlphaShape_ThreePointsIsTriangle(t *testing.T) {
	mp := AlphaShape([]orb.Point{{0, 0}, {2, 0}, {0, 2}}, 0.6)
	require.Len(t, mp, 1)
	assert.InDelta(t, 2.0, planar.Area(mp), 1e-12)
}

func TestAlphaShape_CollinearFallsBackToNil(t *testing.T) {
	assert.Nil(t, AlphaShape([]orb.Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}}, 0.6))
}

func TestAlphaShape_NoTriangleSurvivesIsEmpty(t *testing.T) {
	var pts []orb.Point
	for x := 0.0; x <= 10; x += 2.5 {
		for y := 0.0; y <= 10; y += 2.5 {
			pts = append(pts, orb.Point{x, y})
		}
	}
	require.NotNil(t, ConvexHull(pts))
	assert.Empty(t, AlphaShape(pts, 100), "a radius of 0.01 rejects every triangle")
}

func TestAlphaShape_ConcaveL(t *testing.T) {
	var pts []orb.Point
	for x := 0.0; x <= 4; x += 0.5 {
		for y := 0.0; y <= 4; y += 0.5 {
			if x > 1 && y > 1 {
				continue
			}
			pts = append(pts, orb.Point{x, y})
		}
	}

	mp := AlphaShape(pts, 1.0)
	require.NotEmpty(t, mp)
	assert.True(t, IsValid(mp))

	area := planar.Area(mp)
	assert.Greater(t, area, 6.9)
	assert.Less(t, area, 9.5, "the notch must stay carved out")
	assert.True(t, planar.MultiPolygonContains(mp, orb.Point{0.3, 3.2}))
	assert.False(t, planar.MultiPolygonContains(mp, orb.Point{3, 3}))

	// A tiny alpha keeps every triangle and approaches the convex hull.
	loose := AlphaShape(pts, 0.01)
	assert.InDelta(t, planar.Area(ConvexHull(pts)), planar.Area(loose), 1e-9)
}

func TestAlphaShape_AnnulusKeepsHole(t *testing.T) {
	var pts []orb.Point
	for _, r := range []float64{2, 2.25, 2.5, 2.75, 3} {
		for i := 0; i < 72; i++ {
			theta := 2 * math.Pi * float64(i) / 72
			pts = append(pts, orb.Point{r * math.Cos(theta), r * math.Sin(theta)})
		}
	}

	mp := AlphaShape(pts, 2)
	require.Len(t, mp, 1)
	require.Len(t, mp[0], 2, "expected a shell and one hole")
	assert.Less(t, signedArea(mp[0][1]), 0.0, "hole must be clockwise")
	assert.False(t, planar.MultiPolygonContains(mp, orb.Point{0, 0}))
	assert.True(t, planar.MultiPolygonContains(mp, orb.Point{2.6, 0.05}))
	assert.True(t, IsValid(mp))
}

func TestDissolve_OverlappingSquares(t *testing.T) {
	mp, err := Dissolve(square(0, 0, 2), square(1, 1, 2))
	require.NoError(t, err)
	require.Len(t, mp, 1)
	assert.InDelta(t, 7.0, planar.Area(mp), 1e-9)
	assert.True(t, IsValid(mp))
}

func TestDissolve_SharedEdge(t *testing.T) {
	mp, err := Dissolve(square(0, 0, 1), square(1, 0, 1))
	require.NoError(t, err)
	require.Len(t, mp, 1)
	assert.InDelta(t, 2.0, planar.Area(mp), 1e-9)
	assert.True(t, planar.MultiPolygonContains(mp, orb.Point{1, 0.5}))
}

func TestDissolve_DisjointSquares(t *testing.T) {
	mp, err := Dissolve(square(0, 0, 1), square(5, 5, 2))
	require.NoError(t, err)
	require.Len(t, mp, 2)
	assert.InDelta(t, 4.0, planar.Area(mp[0]), 1e-9, "largest polygon first")
	assert.InDelta(t, 1.0, planar.Area(mp[1]), 1e-9)
}

func TestDissolve_SplitsSelfTouchingRing(t *testing.T) {
	figure8 := orb.Polygon{orb.Ring{{1, 1}, {0, 0}, {2, 0}, {1, 1}, {2, 2}, {0, 2}, {1, 1}}}
	assert.False(t, IsValid(orb.MultiPolygon{figure8}))

	mp, err := Dissolve(figure8)
	require.NoError(t, err)
	require.Len(t, mp, 2)
	assert.InDelta(t, 2.0, planar.Area(mp), 1e-9)
	assert.True(t, IsValid(mp))
	for _, p := range mp {
		assert.Greater(t, signedArea(p[0]), 0.0)
	}
}

func TestDissolve_Empty(t *testing.T) {
	mp, err := Dissolve()
	require.NoError(t, err)
	assert.Nil(t, mp)

	mp, err = Dissolve(orb.Polygon{})
	require.NoError(t, err)
	assert.Nil(t, mp)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(orb.MultiPolygon{square(0, 0, 1)}))
	assert.False(t, IsValid(nil))
	assert.False(t, IsValid(orb.MultiPolygon{{orb.Ring{{0, 0}, {1, 0}, {0, 0}}}}))
	assert.False(t, IsValid(orb.MultiPolygon{square(0, 0, 2), square(1, 1, 2)}), "overlapping parts")
}

func TestBufferPoint(t *testing.T) {
	poly := BufferPoint(orb.Point{-90, 29}, 0.02, DefaultQuadSegments)
	require.Len(t, poly, 1)
	assert.InDelta(t, math.Pi*0.02*0.02, planar.Area(poly), 1e-5)
	assert.True(t, planar.PolygonContains(poly, orb.Point{-90, 29}))
	assert.Nil(t, BufferPoint(orb.Point{0, 0}, 0, DefaultQuadSegments))
}

func TestBufferSegment(t *testing.T) {
	poly := BufferSegment(orb.Point{0, 0}, orb.Point{1, 0}, 0.1, DefaultQuadSegments)
	require.Len(t, poly, 1)
	assert.True(t, IsValid(orb.MultiPolygon{poly}))
	assert.Greater(t, signedArea(poly[0]), 0.0)
	assert.True(t, planar.PolygonContains(poly, orb.Point{0.5, 0.05}))
	assert.True(t, planar.PolygonContains(poly, orb.Point{1.05, 0}))
	assert.False(t, planar.PolygonContains(poly, orb.Point{0.5, 0.2}))
	// Rectangle plus a full circle.
	assert.InDelta(t, 0.2+math.Pi*0.01, planar.Area(poly), 1e-3)
}

func TestNearestPointOnLine(t *testing.T) {
	line := orb.LineString{{0, 0}, {1, 0}, {1, 1}}
	assert.Equal(t, orb.Point{0.5, 0}, NearestPointOnLine(line, orb.Point{0.5, -1}))
	assert.Equal(t, orb.Point{1, 0.5}, NearestPointOnLine(line, orb.Point{2, 0.5}))
	assert.Equal(t, orb.Point{0, 0}, NearestPointOnLine(line, orb.Point{-3, 0}))
	assert.Equal(t, orb.Point{4, 4}, NearestPointOnLine(orb.LineString{{4, 4}}, orb.Point{0, 0}))
}

func TestRegion_ContainsAndBoundaryDistance(t *testing.T) {
	r, err := NewRegion(square(0, 0, 2), square(1, 1, 2))
	require.NoError(t, err)
	assert.True(t, r.Contains(orb.Point{1.5, 1.5}))
	assert.True(t, r.Contains(orb.Point{2.5, 2.5}))
	assert.False(t, r.Contains(orb.Point{2.5, 0.5}))

	// Nearest union-boundary point is the reflex corner at (2, 1).
	assert.InDelta(t, math.Sqrt(0.5), r.BoundaryDistance(orb.Point{1.5, 1.5}), 1e-9)
	assert.InDelta(t, 0.5, r.BoundaryDistance(orb.Point{0.5, 1}), 1e-9)

	empty, err := NewRegion()
	require.NoError(t, err)
	assert.True(t, empty.Empty())
	assert.True(t, math.IsInf(empty.BoundaryDistance(orb.Point{0, 0}), 1))
}

func TestRegion_RayHit(t *testing.T) {
	circle, err := NewRegion(BufferPoint(orb.Point{0, 0}, 2, DefaultQuadSegments))
	require.NoError(t, err)
	hit, ok := circle.RayHit(orb.Point{0, 0}, orb.Point{1, 0}, 5)
	require.True(t, ok)
	assert.InDelta(t, 2.0, hit[0], 1e-9)
	assert.InDelta(t, 0.0, hit[1], 1e-9)

	hit, ok = circle.RayHit(orb.Point{0.5, 0}, orb.Point{0.5, 1}, 5)
	require.True(t, ok)
	assert.InDelta(t, math.Sqrt(4-0.25), hit[1], 0.01)

	_, ok = circle.RayHit(orb.Point{0, 0}, orb.Point{0, 0}, 5)
	assert.False(t, ok, "zero direction")

	_, ok = circle.RayHit(orb.Point{10, 10}, orb.Point{11, 11}, 5)
	assert.False(t, ok, "ray pointing away")
}

func TestRegion_RayHitSkipsInteriorEdges(t *testing.T) {
	r, err := NewRegion(square(0, 0, 2), square(1, 1, 2))
	require.NoError(t, err)
	hit, ok := r.RayHit(orb.Point{0.5, 0.5}, orb.Point{1.5, 1.5}, 5)
	require.True(t, ok)
	assert.InDelta(t, 3.0, hit[0], 1e-9)
	assert.InDelta(t, 3.0, hit[1], 1e-9)
}

func TestRegionOf_KeepsShape(t *testing.T) {
	mp := orb.MultiPolygon{square(0, 0, 1), square(3, 0, 1)}
	r, err := RegionOf(mp)
	require.NoError(t, err)
	assert.Equal(t, mp, r.Parts())
	assert.Equal(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4, 1}}, r.Bound())
	assert.True(t, r.Contains(orb.Point{3.5, 0.5}))
	assert.False(t, r.Contains(orb.Point{2, 0.5}))
	assert.InDelta(t, 1.0, r.BoundaryDistance(orb.Point{2, 0.5}), 1e-9)
}
