package windfield

import (
	"fmt"

	"github.com/couchcryptid/storm-exposure/internal/geometry"
	"github.com/paulmach/orb"
)

// DefaultAlpha is the concavity parameter of the envelope alpha shape.
const DefaultAlpha = 0.6

// EnvelopeOptions tunes envelope construction.
type EnvelopeOptions struct {
	Alpha        float64
	GapThreshold int
	ArcSamples   int
}

// DefaultEnvelopeOptions returns the calibrated defaults.
func DefaultEnvelopeOptions() EnvelopeOptions {
	return EnvelopeOptions{Alpha: DefaultAlpha, GapThreshold: DefaultGapThreshold, ArcSamples: DefaultArcSamples}
}

// Envelope is the storm's wind-threshold footprint over its lifetime.
// It is read-only after construction and safe for concurrent queries.
type Envelope struct {
	Geometry   orb.MultiPolygon
	Centerline orb.LineString
	HullPoints []orb.Point
	Segments   []Segment

	region geometry.Region
}

// Empty reports whether no segment produced a polygon.
func (e Envelope) Empty() bool { return len(e.Geometry) == 0 }

// Contains reports whether p (lon, lat) lies in or on the envelope.
func (e Envelope) Contains(p orb.Point) bool { return e.region.Contains(p) }

// BoundaryDistance returns the planar distance in degrees from p to the
// envelope boundary.
func (e Envelope) BoundaryDistance(p orb.Point) float64 { return e.region.BoundaryDistance(p) }

// RayHit returns the nearest boundary crossing of the ray from origin
// through the given point, limited to length degrees.
func (e Envelope) RayHit(origin, through orb.Point, length float64) (orb.Point, bool) {
	return e.region.RayHit(origin, through, length)
}

// BuildEnvelope builds the alpha-shape envelope of an imputed track.
//
// Each segment contributes its track points plus arc samples (and the
// diagonal destination) of every quadrant with a usable radius. Segments
// with three or more points become concave hulls, and the hulls are
// dissolved into one valid multipolygon. When no segment
// yields a hull the envelope is empty and has no centerline. An error means
// the overlay engine rejected the hulls.
func BuildEnvelope(it ImputedTrack, opts EnvelopeOptions) (Envelope, error) {
	if opts.ArcSamples <= 0 {
		opts.ArcSamples = DefaultArcSamples
	}
	segments := Segments(it.HasRadii(), opts.GapThreshold)

	var (
		hulls   []orb.Polygon
		allPts  []orb.Point
		centers = make(orb.LineString, len(it.Steps))
	)
	for i, s := range it.Steps {
		centers[i] = orb.Point{s.Observation.Lon, s.Observation.Lat}
	}

	for _, seg := range segments {
		pts := segmentPoints(it, seg, opts.ArcSamples, centers)
		allPts = append(allPts, pts...)
		hull := geometry.AlphaShape(pts, opts.Alpha)
		hulls = append(hulls, hull...)
	}

	empty := Envelope{Segments: segments, HullPoints: allPts}
	if len(hulls) == 0 {
		return empty, nil
	}

	geom := orb.MultiPolygon(hulls)
	if len(segments) > 1 || !geometry.IsValid(geom) {
		var err error
		if geom, err = geometry.Dissolve(hulls...); err != nil {
			return empty, fmt.Errorf("dissolve envelope hulls: %w", err)
		}
	}
	if len(geom) == 0 {
		return empty, nil
	}
	region, err := geometry.RegionOf(geom)
	if err != nil {
		return empty, fmt.Errorf("envelope region: %w", err)
	}

	return Envelope{
		Geometry:   geom,
		Centerline: centers,
		HullPoints: allPts,
		Segments:   segments,
		region:     region,
	}, nil
}

func segmentPoints(it ImputedTrack, seg Segment, samples int, centers orb.LineString) []orb.Point {
	var pts []orb.Point
	for i := seg.Start; i <= seg.End; i++ {
		center := centers[i]
		pts = append(pts, center)
		step := it.Steps[i]
		if !step.HasRadii() {
			continue
		}
		for _, q := range quadrantsOf(step.Effective) {
			pts = append(pts, quadrantArc(center, q, step.Effective[q], samples)...)
			pts = append(pts, diagonalPoint(center, q, step.Effective[q]))
		}
	}
	return pts
}
