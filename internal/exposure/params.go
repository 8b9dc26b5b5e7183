// Package exposure evaluates a storm's wind field at query points: the wind
// experienced, how long the point sat above the wind threshold, and the
// warning lead time before closest approach for each hurricane category.
package exposure

import (
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/windfield"
)

// DefaultEdgeBufferDeg is the distance from the confirming footprint's edge
// beyond which the duration fallback reports the full run. It is a
// calibration against a single storm, not a physical constant.
const DefaultEdgeBufferDeg = 0.2

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid exposure parameters")

// FallbackFootprint selects which footprint may confirm exposure when the
// timeline reads zero.
type FallbackFootprint string

const (
	FallbackCoverage FallbackFootprint = "coverage"
	FallbackEnvelope FallbackFootprint = "envelope"
)

// Params are the tunable model parameters.
type Params struct {
	Alpha           float64           `yaml:"alpha" json:"alpha"`
	Threshold       domain.Threshold  `yaml:"threshold" json:"threshold"`
	Interval        time.Duration     `yaml:"interval" json:"interval"`
	GapThreshold    int               `yaml:"gap_threshold" json:"gap_threshold"`
	EdgeBufferDeg   float64           `yaml:"edge_buffer_deg" json:"edge_buffer_deg"`
	ArcSamples      int               `yaml:"arc_samples" json:"arc_samples"`
	SparseBufferDeg float64           `yaml:"sparse_buffer_deg" json:"sparse_buffer_deg"`
	Fallback        FallbackFootprint `yaml:"fallback" json:"fallback"`
	// InsideOnly drops query points outside the storm's footprint instead of
	// emitting a record for them.
	InsideOnly bool `yaml:"inside_only" json:"inside_only"`
}

// DefaultParams returns the calibrated defaults.
func DefaultParams() Params {
	return Params{
		Alpha:           windfield.DefaultAlpha,
		Threshold:       domain.Threshold64,
		Interval:        windfield.DefaultInterval,
		GapThreshold:    windfield.DefaultGapThreshold,
		EdgeBufferDeg:   DefaultEdgeBufferDeg,
		ArcSamples:      windfield.DefaultArcSamples,
		SparseBufferDeg: windfield.DefaultSparseBufferDeg,
		Fallback:        FallbackCoverage,
	}
}

// Validate reports the first invalid parameter.
func (p Params) Validate() error {
	switch {
	case !(p.Alpha > 0):
		return fmt.Errorf("alpha %v must be positive: %w", p.Alpha, ErrInvalidParams)
	case !p.Threshold.Valid():
		return fmt.Errorf("threshold %d: %w", int(p.Threshold), ErrInvalidParams)
	case p.Interval <= 0:
		return fmt.Errorf("interval %s must be positive: %w", p.Interval, ErrInvalidParams)
	case p.GapThreshold < 1:
		return fmt.Errorf("gap threshold %d must be at least 1: %w", p.GapThreshold, ErrInvalidParams)
	case !(p.EdgeBufferDeg > 0):
		return fmt.Errorf("edge buffer %v must be positive: %w", p.EdgeBufferDeg, ErrInvalidParams)
	case p.ArcSamples < 2:
		return fmt.Errorf("arc samples %d must be at least 2: %w", p.ArcSamples, ErrInvalidParams)
	case !(p.SparseBufferDeg > 0):
		return fmt.Errorf("sparse buffer %v must be positive: %w", p.SparseBufferDeg, ErrInvalidParams)
	case p.Fallback != FallbackCoverage && p.Fallback != FallbackEnvelope:
		return fmt.Errorf("fallback footprint %q: %w", p.Fallback, ErrInvalidParams)
	}
	return nil
}

func (p Params) envelopeOptions() windfield.EnvelopeOptions {
	return windfield.EnvelopeOptions{Alpha: p.Alpha, GapThreshold: p.GapThreshold, ArcSamples: p.ArcSamples}
}

func (p Params) polygonOptions() windfield.PolygonOptions {
	return windfield.PolygonOptions{ArcSamples: p.ArcSamples, SparseBufferDeg: p.SparseBufferDeg}
}

// cacheKey identifies everything a storm model depends on besides the track.
func (p Params) cacheKey() string {
	return fmt.Sprintf("%s|a=%g|g=%d|i=%s|s=%d|b=%g|e=%g",
		p.Threshold, p.Alpha, p.GapThreshold, p.Interval, p.ArcSamples, p.SparseBufferDeg, p.EdgeBufferDeg)
}
