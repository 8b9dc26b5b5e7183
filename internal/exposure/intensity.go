package exposure

import (
	"errors"
	"math"
	"sort"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/geodesy"
	"github.com/couchcryptid/storm-exposure/internal/geometry"
	"github.com/couchcryptid/storm-exposure/internal/windfield"
	"github.com/paulmach/orb"
)

// rayLengthDeg bounds the search for the envelope edge beyond the point.
const rayLengthDeg = 5.0

var (
	// ErrRayMissesEnvelope is returned when the ray from the track through the
	// point never crosses the envelope boundary. The point cannot be evaluated.
	ErrRayMissesEnvelope = errors.New("ray does not intersect envelope boundary")
	// ErrNoIntensity is returned when no observation reports a max wind.
	ErrNoIntensity = errors.New("track has no max wind observations")
	// ErrNoEnvelope is returned when the storm has no envelope to decay toward.
	ErrNoEnvelope = errors.New("storm has no wind envelope")
)

// WindRadiiSet holds the radii of all three thresholds at one instant.
type WindRadiiSet struct {
	R34 domain.Radii
	R50 domain.Radii
	R64 domain.Radii
}

// RadiiSetOf copies the radii of an observation.
func RadiiSetOf(o domain.Observation) WindRadiiSet {
	return WindRadiiSet{R34: o.Radii34, R50: o.Radii50, R64: o.Radii64}
}

// At returns the radii for threshold t.
func (s WindRadiiSet) At(t domain.Threshold) domain.Radii {
	switch t {
	case domain.Threshold34:
		return s.R34
	case domain.Threshold50:
		return s.R50
	case domain.Threshold64:
		return s.R64
	}
	return domain.Radii{}
}

// IntensityEstimate is the wind model's answer for one point.
type IntensityEstimate struct {
	WindKt        float64
	CenterWindKt  float64
	DistanceNM    float64 // point to the nearest track position
	EdgeNM        float64 // nearest track position to the envelope edge along the ray
	NearestTrack  orb.Point
	RMWNM         float64
	RMWEstimated  bool
	InsideEyewall bool
	Tier          domain.Threshold // innermost radii quadrilateral holding the point, 0 if none
	Source        domain.WindSource
}

// DistanceToEdgeNM is how far past the point the envelope edge lies.
func (e IntensityEstimate) DistanceToEdgeNM() float64 {
	return math.Max(e.EdgeNM-e.DistanceNM, 0)
}

// EstimateWind estimates the maximum sustained wind a point experienced.
//
// The point is projected onto the envelope centerline. Center wind and RMW
// there are interpolated from the two nearest observations. Inside the RMW the
// wind plateaus at the center wind; beyond it the wind decays linearly toward
// the floor of the innermost radii quadrilateral holding the point (or 64 kt
// when none does), reaching the floor at the envelope edge along the ray from
// the track through the point. radii may be nil.
func EstimateWind(point orb.Point, track domain.StormTrack, envelope windfield.Envelope, radii *WindRadiiSet) (IntensityEstimate, error) {
	if envelope.Empty() || len(envelope.Centerline) == 0 {
		return IntensityEstimate{}, ErrNoEnvelope
	}
	obs := track.Observations()

	nearest := geometry.NearestPointOnLine(envelope.Centerline, point)
	center, err := centerWind(nearest, obs)
	if err != nil {
		return IntensityEstimate{}, err
	}
	rmw, estimated := radiusOfMaxWind(nearest, obs, center)
	rmw = math.Max(rmw, 0)

	dist := geodesy.Distance(nearest.Lat(), nearest.Lon(), point.Lat(), point.Lon())
	edge, err := edgeDistance(nearest, point, envelope)
	if err != nil {
		return IntensityEstimate{}, err
	}

	var tier domain.Threshold
	if radii != nil {
		tier = radiiTier(point, nearest, dist, *radii)
	}
	inside := dist <= rmw || isClose(dist, rmw, 1e-6)
	source := classify(inside, tier)

	return IntensityEstimate{
		WindKt:        windFor(source, center, dist, rmw, edge),
		CenterWindKt:  center,
		DistanceNM:    dist,
		EdgeNM:        edge,
		NearestTrack:  nearest,
		RMWNM:         rmw,
		RMWEstimated:  estimated,
		InsideEyewall: inside,
		Tier:          tier,
		Source:        source,
	}, nil
}

// classify picks the wind model branch.
func classify(insideEyewall bool, tier domain.Threshold) domain.WindSource {
	switch {
	case insideEyewall:
		return domain.WindSourcePlateau
	case tier == domain.Threshold64:
		return domain.WindSourceDecayTo64
	case tier == domain.Threshold50:
		return domain.WindSourceDecayTo50
	case tier == domain.Threshold34:
		return domain.WindSourceDecayTo34
	}
	return domain.WindSourceDecayEnvelope
}

// windFor applies the branch's profile. Tier decays never drop below their
// floor; the envelope decay is bounded by the clamped fraction alone.
func windFor(source domain.WindSource, center, dist, rmw, edge float64) float64 {
	var floor float64
	switch source {
	case domain.WindSourcePlateau:
		return center
	case domain.WindSourceDecayTo64, domain.WindSourceDecayEnvelope:
		floor = 64
	case domain.WindSourceDecayTo50:
		floor = 50
	case domain.WindSourceDecayTo34:
		floor = 34
	}

	span := math.Max(edge-rmw, 0)
	if span == 0 {
		return center
	}
	frac := clamp01(math.Max(dist-rmw, 0) / span)
	w := center - frac*(center-floor)
	if source != domain.WindSourceDecayEnvelope {
		w = math.Max(w, floor)
	}
	return w
}

type ranked struct {
	obs  domain.Observation
	dist float64
}

// nearestObservations orders observations by great-circle distance from p.
func nearestObservations(p orb.Point, obs []domain.Observation, keep func(domain.Observation) bool) []ranked {
	out := make([]ranked, 0, len(obs))
	for _, o := range obs {
		if keep != nil && !keep(o) {
			continue
		}
		out = append(out, ranked{obs: o, dist: geodesy.Distance(p.Lat(), p.Lon(), o.Lat, o.Lon)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].dist < out[j].dist })
	return out
}

// centerWind weights the max wind of the two nearest observations by distance.
func centerWind(p orb.Point, obs []domain.Observation) (float64, error) {
	near := nearestObservations(p, obs, func(o domain.Observation) bool { return o.MaxWind != nil })
	switch {
	case len(near) == 0:
		return 0, ErrNoIntensity
	case len(near) == 1 || isClose(near[0].dist, near[1].dist, 1e-6):
		return *near[0].obs.MaxWind, nil
	}
	a, b := near[0], near[1]
	ratio := a.dist / (a.dist + b.dist)
	return *a.obs.MaxWind + ratio*(*b.obs.MaxWind-*a.obs.MaxWind), nil
}

// radiusOfMaxWind interpolates RMW from the two nearest observations that
// report one, falling back to an estimate from the center wind when none do.
func radiusOfMaxWind(p orb.Point, obs []domain.Observation, center float64) (float64, bool) {
	near := nearestObservations(p, obs, func(o domain.Observation) bool { return o.RMW != nil })
	switch {
	case len(near) == 0:
		return estimateRMW(center), true
	case len(near) == 1 || isClose(near[0].dist, near[1].dist, 1e-6):
		return *near[0].obs.RMW, false
	}
	a, b := near[0], near[1]
	ratio := a.dist / (a.dist + b.dist)
	return *a.obs.RMW + ratio*(*b.obs.RMW-*a.obs.RMW), false
}

// estimateRMW is the climatological RMW for a center wind.
func estimateRMW(centerKt float64) float64 {
	switch {
	case math.IsNaN(centerKt):
		return 30
	case centerKt >= 96:
		return 20
	case centerKt >= 64:
		return 30
	}
	return 40
}

// edgeDistance is the great-circle distance from the track position to the
// nearest envelope boundary crossing along the ray through the point.
func edgeDistance(origin, point orb.Point, envelope windfield.Envelope) (float64, error) {
	if math.Abs(point[0]-origin[0]) <= 1e-12 && math.Abs(point[1]-origin[1]) <= 1e-12 {
		return 0, nil
	}
	hit, ok := envelope.RayHit(origin, point, rayLengthDeg)
	if !ok {
		return 0, ErrRayMissesEnvelope
	}
	return geodesy.Distance(origin.Lat(), origin.Lon(), hit.Lat(), hit.Lon()), nil
}

// radiiTier returns the strongest threshold whose quadrilateral holds the
// point. A threshold needs all four quadrants reported to count.
func radiiTier(point, center orb.Point, distNM float64, radii WindRadiiSet) domain.Threshold {
	q := domain.QuadrantOf(point.Lat()-center.Lat(), point.Lon()-center.Lon())
	for _, th := range domain.Thresholds {
		r := radii.At(th)
		if r.Complete() && distNM <= r[q] {
			return th
		}
	}
	return 0
}

func isClose(a, b, rel float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= rel*math.Max(math.Abs(a), math.Abs(b))
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

func nearestOnCenterline(env windfield.Envelope, p orb.Point) orb.Point {
	return geometry.NearestPointOnLine(env.Centerline, p)
}
