package exposure

import (
	"fmt"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/geometry"
	"github.com/couchcryptid/storm-exposure/internal/windfield"
	"github.com/paulmach/orb"
)

// Footprint is an area that can confirm a point was under the storm.
// windfield.Envelope and geometry.Region satisfy it.
type Footprint interface {
	Contains(p orb.Point) bool
	BoundaryDistance(p orb.Point) float64
}

// Footprints are the candidates for confirming exposure when the timeline
// reads zero. Coverage is preferred; Envelope is consulted only when Coverage
// is nil.
type Footprints struct {
	Coverage Footprint
	Envelope Footprint
}

// confirming returns the footprint that holds p, if any.
func (f Footprints) confirming(p orb.Point) Footprint {
	if f.Coverage != nil {
		if f.Coverage.Contains(p) {
			return f.Coverage
		}
		return nil
	}
	if f.Envelope != nil && f.Envelope.Contains(p) {
		return f.Envelope
	}
	return nil
}

// Timeline is the interpolated track with one instantaneous wind polygon per
// step. It is built once per storm and shared read-only across points.
type Timeline struct {
	Threshold     domain.Threshold
	Interval      time.Duration
	EdgeBufferDeg float64
	Steps         []domain.Observation
	Polygons      []windfield.WindPolygon // zero value where the step has no polygon
	present       []bool
	complete      []bool
	coverage      geometry.Region
}

// NewTimeline interpolates the imputed track to interval and builds every
// step's wind polygon.
func NewTimeline(it windfield.ImputedTrack, interval time.Duration, edgeBufferDeg float64, opts windfield.PolygonOptions) (*Timeline, error) {
	steps, err := windfield.Interpolate(it.Observations(), interval)
	if err != nil {
		return nil, fmt.Errorf("interpolate track: %w", err)
	}

	tl := &Timeline{
		Threshold:     it.Threshold,
		Interval:      interval,
		EdgeBufferDeg: edgeBufferDeg,
		Steps:         steps,
		Polygons:      make([]windfield.WindPolygon, len(steps)),
		present:       make([]bool, len(steps)),
		complete:      make([]bool, len(steps)),
	}
	var parts []orb.Polygon
	for i, s := range steps {
		radii := s.RadiiAt(it.Threshold)
		tl.complete[i] = radii.Complete()
		poly, ok := windfield.BuildWindPolygon(orb.Point{s.Lon, s.Lat}, radii, opts)
		if !ok {
			continue
		}
		tl.Polygons[i] = poly
		tl.present[i] = true
		parts = append(parts, poly.Geometry...)
	}
	if tl.coverage, err = geometry.NewRegion(parts...); err != nil {
		return nil, fmt.Errorf("dissolve wind coverage: %w", err)
	}
	return tl, nil
}

// Len returns the number of interpolated steps.
func (tl *Timeline) Len() int { return len(tl.Steps) }

// HasPolygon reports whether step i produced a wind polygon.
func (tl *Timeline) HasPolygon(i int) bool { return tl.present[i] }

// Coverage is the union of every step's wind polygon.
func (tl *Timeline) Coverage() geometry.Region { return tl.coverage }

// Inside returns the per-step containment series for p.
func (tl *Timeline) Inside(p orb.Point) []bool {
	out := make([]bool, len(tl.Steps))
	for i := range tl.Steps {
		out[i] = tl.present[i] && tl.Polygons[i].Contains(p)
	}
	return out
}

// longestCompleteRun returns the longest run of steps with all four
// quadrants reported.
func (tl *Timeline) longestCompleteRun() (start, end int, ok bool) {
	bestLen := 0
	runStart := -1
	for i, c := range tl.complete {
		if !c {
			runStart = -1
			continue
		}
		if runStart < 0 {
			runStart = i
		}
		if n := i - runStart + 1; n > bestLen {
			bestLen, start, end = n, runStart, i
		}
	}
	return start, end, bestLen > 0
}

// DurationResult describes how long a point sat inside the wind field.
type DurationResult struct {
	Hours       float64
	WindowHours float64
	FirstEntry  *time.Time
	LastExit    *time.Time
	Continuous  bool
	Steps       int
	Source      domain.DurationSource
}

// EvaluateDuration measures the point's exposure over the timeline.
//
// Duration counts inside steps; the window spans the first through last
// inside step, one interval per step, so Hours never exceeds WindowHours.
// When no step holds the point but a footprint confirms it, the longest run
// of fully observed steps is scaled by the point's distance to that
// footprint's edge.
func EvaluateDuration(point orb.Point, tl *Timeline, fp Footprints) DurationResult {
	res := DurationResult{Steps: tl.Len(), Source: domain.DurationTimeline}
	inside := tl.Inside(point)

	first, last, count := -1, -1, 0
	for i, in := range inside {
		if !in {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		count++
	}

	if count > 0 {
		res.Hours = hours(tl.Interval) * float64(count)
		res.WindowHours = hours(tl.Interval) * float64(last-first+1)
		res.FirstEntry = timePtr(tl.Steps[first].Time)
		res.LastExit = timePtr(tl.Steps[last].Time)
		res.Continuous = count == last-first+1
		return res
	}

	confirm := fp.confirming(point)
	if confirm == nil {
		return res
	}
	return edgeFallback(point, tl, confirm)
}

func edgeFallback(point orb.Point, tl *Timeline, confirm Footprint) DurationResult {
	res := DurationResult{Steps: tl.Len(), Source: domain.DurationEdgeInterpolationFailed}
	start, end, ok := tl.longestCompleteRun()
	if !ok {
		return res
	}

	run := hours(tl.Interval) * float64(end-start+1)
	d := confirm.BoundaryDistance(point)
	buffer := tl.EdgeBufferDeg
	if buffer <= 0 {
		buffer = DefaultEdgeBufferDeg
	}

	res.Source = domain.DurationEdgeInterpolation
	res.WindowHours = run
	res.FirstEntry = timePtr(tl.Steps[start].Time)
	res.LastExit = timePtr(tl.Steps[end].Time)
	if d >= buffer {
		// Far from the edge the timeline should not have read zero, so only
		// one interval is credited.
		res.Hours = hours(tl.Interval)
	} else {
		res.Hours = run * d / buffer
	}
	return res
}

func hours(d time.Duration) float64 { return d.Hours() }

func timePtr(t time.Time) *time.Time { return &t }
