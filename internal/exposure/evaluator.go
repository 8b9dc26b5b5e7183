package exposure

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/geodesy"
	"github.com/couchcryptid/storm-exposure/internal/observability"
	"github.com/couchcryptid/storm-exposure/internal/windfield"
	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/couchcryptid/storm-exposure/internal/exposure"

// Model is everything about one storm that does not depend on the query
// point. It is read-only once built and shared across point evaluations.
type Model struct {
	Track           domain.StormTrack
	Threshold       domain.Threshold
	Imputed         windfield.ImputedTrack
	Envelope        windfield.Envelope
	Timeline        *Timeline
	Intensification Intensification
}

// BuildModel imputes, envelopes, and interpolates a storm track.
func BuildModel(track domain.StormTrack, p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	it := windfield.Impute(track, p.Threshold)
	tl, err := NewTimeline(it, p.Interval, p.EdgeBufferDeg, p.polygonOptions())
	if err != nil {
		return nil, fmt.Errorf("build timeline for %s: %w", track.StormID, err)
	}
	env, err := windfield.BuildEnvelope(it, p.envelopeOptions())
	if err != nil {
		return nil, fmt.Errorf("build envelope for %s: %w", track.StormID, err)
	}
	return &Model{
		Track:           track,
		Threshold:       p.Threshold,
		Imputed:         it,
		Envelope:        env,
		Timeline:        tl,
		Intensification: SummarizeIntensification(track),
	}, nil
}

// Footprint is the area used to decide whether a point was under the storm:
// the wind coverage union when any step produced a polygon, otherwise the
// envelope.
func (m *Model) Footprint() Footprint {
	if cov := m.Timeline.Coverage(); !cov.Empty() {
		return cov
	}
	return m.Envelope
}

// Evaluator turns storms and query points into exposure records.
type Evaluator struct {
	params  Params
	workers int
	cache   *ModelCache
	metrics *observability.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWorkers bounds how many points are evaluated concurrently.
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCache reuses storm models across calls.
func WithCache(c *ModelCache) Option { return func(e *Evaluator) { e.cache = c } }

// WithMetrics records evaluation metrics.
func WithMetrics(m *observability.Metrics) Option { return func(e *Evaluator) { e.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(e *Evaluator) { e.logger = l } }

// NewEvaluator creates an evaluator. Params are validated up front.
func NewEvaluator(p Params, opts ...Option) (*Evaluator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	e := &Evaluator{
		params:  p,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Params returns the evaluator's parameters.
func (e *Evaluator) Params() Params { return e.params }

// Model returns the storm model for track, building and caching it on a miss.
func (e *Evaluator) Model(ctx context.Context, track domain.StormTrack) (*Model, error) {
	key := track.Revision() + "|" + e.params.cacheKey()
	if e.cache != nil {
		if m, ok := e.cache.get(key); ok {
			e.countCache("hit")
			return m, nil
		}
		e.countCache("miss")
	}

	_, span := e.tracer.Start(ctx, "exposure.build_model", trace.WithAttributes(
		attribute.String("storm.id", track.StormID),
		attribute.Int("storm.observations", track.Len()),
	))
	defer span.End()

	start := time.Now()
	m, err := BuildModel(track, e.params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.ModelBuildDuration.Observe(time.Since(start).Seconds())
	}
	span.SetAttributes(
		attribute.Int("envelope.segments", len(m.Envelope.Segments)),
		attribute.Bool("envelope.empty", m.Envelope.Empty()),
		attribute.Int("timeline.steps", m.Timeline.Len()),
	)
	if m.Envelope.Empty() {
		e.logger.Debug("storm has no envelope", "storm_id", track.StormID, "threshold", e.params.Threshold.String())
	}

	if e.cache != nil {
		e.cache.put(key, m)
	}
	return m, nil
}

// Evaluate produces one record per query point for a storm. Points that
// cannot be evaluated yield records tagged with the error; only context
// cancellation or an unusable track fails the whole call. With InsideOnly,
// points outside the storm footprint are dropped.
func (e *Evaluator) Evaluate(ctx context.Context, track domain.StormTrack, points []domain.QueryPoint) ([]domain.ExposureRecord, error) {
	ctx, span := e.tracer.Start(ctx, "exposure.evaluate_storm", trace.WithAttributes(
		attribute.String("storm.id", track.StormID),
		attribute.Int("points", len(points)),
	))
	defer span.End()
	start := time.Now()

	m, err := e.Model(ctx, track)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	footprint := m.Footprint()
	results := make([]*domain.ExposureRecord, len(points))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, p := range points {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pt := orb.Point{p.Lon, p.Lat}
			if e.params.InsideOnly && !footprint.Contains(pt) {
				e.countPoint("skipped")
				return nil
			}
			rec := e.EvaluatePoint(m, p)
			results[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("evaluate %s: %w", track.StormID, err)
	}

	records := make([]domain.ExposureRecord, 0, len(points))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}

	if e.metrics != nil {
		e.metrics.StormsEvaluated.Inc()
		e.metrics.StormEvaluateDuration.Observe(time.Since(start).Seconds())
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	e.logger.Info("storm evaluated",
		"storm_id", track.StormID,
		"points", len(points),
		"records", len(records),
		"duration", time.Since(start),
	)
	return records, nil
}

// EvaluatePoint runs the wind, duration, and lead-time models for one point.
func (e *Evaluator) EvaluatePoint(m *Model, p domain.QueryPoint) domain.ExposureRecord {
	rec := domain.NewExposureRecord(m.Track, p, m.Threshold)
	pt := orb.Point{p.Lon, p.Lat}

	nearestObs := nearestRawObservation(m, pt)
	radii := RadiiSetOf(nearestObs)
	est, err := EstimateWind(pt, m.Track, m.Envelope, &radii)
	if err != nil {
		rec.WindSource = domain.WindSourceError
		rec.WindError = err.Error()
		e.countPoint("error")
		e.logger.Debug("wind estimate failed", "storm_id", m.Track.StormID, "point_id", p.ID, "error", err)
	} else {
		rec.MaxWindKt = floatPtr(est.WindKt)
		rec.CenterWindKt = floatPtr(est.CenterWindKt)
		rec.DistanceToEdgeNM = floatPtr(est.DistanceToEdgeNM())
		rec.NearestTrackLat = floatPtr(est.NearestTrack.Lat())
		rec.NearestTrackLon = floatPtr(est.NearestTrack.Lon())
		rec.RadiusMaxWindNM = floatPtr(est.RMWNM)
		rec.InsideEyewall = est.InsideEyewall
		rec.WindSource = est.Source
		e.countPoint("ok")
	}

	fp := Footprints{}
	switch e.params.Fallback {
	case FallbackEnvelope:
		if !m.Envelope.Empty() {
			fp.Envelope = m.Envelope
		}
	default:
		if cov := m.Timeline.Coverage(); !cov.Empty() {
			fp.Coverage = cov
		} else if !m.Envelope.Empty() {
			fp.Envelope = m.Envelope
		}
	}
	dur := EvaluateDuration(pt, m.Timeline, fp)
	rec.DurationHours = dur.Hours
	rec.ExposureWindowHours = dur.WindowHours
	rec.FirstEntry = dur.FirstEntry
	rec.LastExit = dur.LastExit
	rec.ContinuousExposure = dur.Continuous
	rec.InterpolatedPoints = dur.Steps
	rec.DurationSource = dur.Source
	if e.metrics != nil {
		e.metrics.DurationSources.WithLabelValues(string(dur.Source)).Inc()
	}

	approach, approachNM := closestApproach(m.Timeline, pt)
	rec.ClosestApproach = approach.Time
	rec.ClosestApproachNM = approachNM

	q := domain.QuadrantOf(p.Lat-nearestObs.Lat, p.Lon-nearestObs.Lon)
	rec.NearestQuadrant = q.String()
	if nearestObs.Radii64.Valid(q) {
		r := nearestObs.Radii64[q]
		rec.Radius64NM = floatPtr(r)
		rec.Within64kt = geodesy.Distance(p.Lat, p.Lon, nearestObs.Lat, nearestObs.Lon) <= r
	}

	rec.LeadTimes = LeadTimes(m.Track, approach.Time)
	v := ValidateLeadTimes(rec.LeadTimes)
	rec.LeadTimesValid = v.Valid
	rec.LeadTimeViolations = v.Violations
	return rec
}

// closestApproach finds the interpolated step nearest the point.
func closestApproach(tl *Timeline, p orb.Point) (domain.Observation, float64) {
	best := math.Inf(1)
	var at domain.Observation
	for _, s := range tl.Steps {
		if d := geodesy.Distance(s.Lat, s.Lon, p.Lat(), p.Lon()); d < best {
			best, at = d, s
		}
	}
	return at, best
}

// nearestRawObservation is the best-track fix closest to the point's
// projection on the centerline, or to the point itself without an envelope.
func nearestRawObservation(m *Model, p orb.Point) domain.Observation {
	anchor := p
	if !m.Envelope.Empty() {
		anchor = nearestOnCenterline(m.Envelope, p)
	}
	best := math.Inf(1)
	var at domain.Observation
	for i := 0; i < m.Track.Len(); i++ {
		o := m.Track.At(i)
		if d := math.Hypot(o.Lat-anchor.Lat(), o.Lon-anchor.Lon()); d < best {
			best, at = d, o
		}
	}
	return at
}

func (e *Evaluator) countPoint(outcome string) {
	if e.metrics != nil {
		e.metrics.PointsEvaluated.WithLabelValues(outcome).Inc()
	}
}

func (e *Evaluator) countCache(result string) {
	if e.metrics != nil {
		e.metrics.EnvelopeCache.WithLabelValues(result).Inc()
	}
}
