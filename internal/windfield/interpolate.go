package windfield

import (
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
)

// DefaultInterval is the resampling step of the interpolated track.
const DefaultInterval = 15 * time.Minute

var (
	// ErrEmptyTrack is returned when there is nothing to interpolate.
	ErrEmptyTrack = errors.New("no observations to interpolate")
	// ErrInvalidInterval is returned for a non-positive interval.
	ErrInvalidInterval = errors.New("interpolation interval must be positive")
)

// Interpolate resamples observations to a fixed interval by linear
// interpolation of every numeric field. An optional field missing on either
// side stays missing, and a radius missing on either side is reported as 0.
// The first and last observations are preserved exactly.
func Interpolate(obs []domain.Observation, interval time.Duration) ([]domain.Observation, error) {
	if len(obs) == 0 {
		return nil, ErrEmptyTrack
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval %s: %w", interval, ErrInvalidInterval)
	}

	out := []domain.Observation{obs[0]}
	for i := 0; i+1 < len(obs); i++ {
		a, b := obs[i], obs[i+1]
		delta := b.Time.Sub(a.Time)
		if delta < 0 {
			return nil, fmt.Errorf("observation %d at %s: %w", i+1, b.Time.Format(time.RFC3339), domain.ErrUnsortedTrack)
		}
		if delta == 0 {
			continue
		}
		steps := int(delta / interval)
		for s := 1; s <= steps; s++ {
			at := a.Time.Add(time.Duration(s) * interval)
			if at.After(b.Time) {
				at = b.Time
			}
			frac := float64(at.Sub(a.Time)) / float64(delta)
			out = append(out, lerpObservation(a, b, frac, at))
		}
	}

	if len(obs) > 1 {
		last := obs[len(obs)-1]
		if n := len(out); out[n-1].Time.Equal(last.Time) {
			out[n-1] = last
		} else {
			out = append(out, last)
		}
	}
	return out, nil
}

func lerpObservation(a, b domain.Observation, frac float64, at time.Time) domain.Observation {
	return domain.Observation{
		Time:        at,
		Status:      a.Status,
		Lat:         lerp(a.Lat, b.Lat, frac),
		Lon:         lerp(a.Lon, b.Lon, frac),
		MaxWind:     lerpOptional(a.MaxWind, b.MaxWind, frac),
		MinPressure: lerpOptional(a.MinPressure, b.MinPressure, frac),
		RMW:         lerpOptional(a.RMW, b.RMW, frac),
		Radii34:     lerpRadii(a.Radii34, b.Radii34, frac),
		Radii50:     lerpRadii(a.Radii50, b.Radii50, frac),
		Radii64:     lerpRadii(a.Radii64, b.Radii64, frac),
	}
}

func lerp(a, b, frac float64) float64 { return a + (b-a)*frac }

func lerpOptional(a, b *float64, frac float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return domain.Float(lerp(*a, *b, frac))
}

func lerpRadii(a, b domain.Radii, frac float64) domain.Radii {
	var out domain.Radii
	for _, q := range domain.Quadrants {
		if a.Valid(q) && b.Valid(q) {
			out[q] = lerp(a[q], b[q], frac)
		}
	}
	return out
}
