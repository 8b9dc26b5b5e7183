// Package windfield builds the storm's spatial wind-field model from a best
// track: imputed wind radii, gap-aware segments, the alpha-shape envelope,
// time-interpolated fixes, and per-step wind polygons.
package windfield

import (
	"math"

	"github.com/couchcryptid/storm-exposure/internal/domain"
)

// ImputedStep is one track fix with its effective radii at a single threshold.
type ImputedStep struct {
	Observation domain.Observation
	// Effective holds the observed radius, an imputed estimate, or NaN when
	// the quadrant is still missing. Imputed estimates may be 0.
	Effective  domain.Radii
	Imputed    [4]bool
	Ratio      float64
	AnyImputed bool
}

// HasRadii reports whether any quadrant has a usable effective radius.
func (s ImputedStep) HasRadii() bool { return s.Effective.Count() > 0 }

// ImputedTrack is a derived view of a StormTrack with gaps in the radii of
// one threshold filled by proportional carry-forward. Raw observations are
// never modified.
type ImputedTrack struct {
	Track     domain.StormTrack
	Threshold domain.Threshold
	Steps     []ImputedStep
}

// Impute fills missing quadrant radii at threshold th.
//
// A step is imputable when it has at least two observed quadrants, or the
// previous step did. A missing quadrant becomes previous effective × ratio,
// where ratio is the mean current/previous over quadrants observed at both
// steps. The ratio carries forward when no overlap exists, seeded at 1.0.
func Impute(track domain.StormTrack, th domain.Threshold) ImputedTrack {
	obs := track.Observations()
	steps := make([]ImputedStep, len(obs))
	lastRatio := 1.0

	for i, o := range obs {
		raw := o.RadiiAt(th)
		step := ImputedStep{Observation: o, Effective: domain.Missing()}
		for _, q := range domain.Quadrants {
			if raw.Valid(q) {
				step.Effective[q] = raw[q]
			}
		}

		ratio := lastRatio
		if i > 0 {
			if r, ok := overlapRatio(raw, steps[i-1].Effective); ok {
				ratio = r
				lastRatio = r
			}
		}
		step.Ratio = ratio

		prevDefined := 0
		if i > 0 {
			prevDefined = obs[i-1].RadiiAt(th).Count()
		}
		defined := raw.Count()
		imputable := defined < 4 && (defined >= 2 || prevDefined >= 2)

		if imputable && i > 0 {
			prev := steps[i-1].Effective
			for _, q := range domain.Quadrants {
				if raw.Valid(q) || math.IsNaN(prev[q]) {
					continue
				}
				v := 0.0
				if prev[q] > 0 {
					v = math.Max(prev[q]*ratio, 0)
				}
				step.Effective[q] = v
				step.Imputed[q] = true
				step.AnyImputed = true
			}
		}
		steps[i] = step
	}

	return ImputedTrack{Track: track, Threshold: th, Steps: steps}
}

// overlapRatio is the mean of current/previous over quadrants present in both.
func overlapRatio(current, prevEffective domain.Radii) (float64, bool) {
	var sum float64
	n := 0
	for _, q := range domain.Quadrants {
		if current.Valid(q) && prevEffective[q] > 0 {
			sum += current[q] / prevEffective[q]
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return math.Max(sum/float64(n), 0), true
}

// HasRadii returns the per-step "has any usable radius" series.
func (it ImputedTrack) HasRadii() []bool {
	out := make([]bool, len(it.Steps))
	for i, s := range it.Steps {
		out[i] = s.HasRadii()
	}
	return out
}

// Observations returns the track fixes with the threshold's radii replaced
// by the effective radii. Quadrants still missing are reported as 0.
func (it ImputedTrack) Observations() []domain.Observation {
	out := make([]domain.Observation, len(it.Steps))
	for i, s := range it.Steps {
		var r domain.Radii
		for _, q := range domain.Quadrants {
			if s.Effective.Valid(q) {
				r[q] = s.Effective[q]
			}
		}
		out[i] = s.Observation.WithRadii(it.Threshold, r)
	}
	return out
}

// ImputedCount returns how many steps received at least one estimate.
func (it ImputedTrack) ImputedCount() int {
	n := 0
	for _, s := range it.Steps {
		if s.AnyImputed {
			n++
		}
	}
	return n
}
