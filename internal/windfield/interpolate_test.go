package windfield_test

import (
	"testing"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/windfield"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate_SixHoursAtFifteenMinutes(t *testing.T) {
	a := fix(0, 25, -85, domain.Radii{100, 80, 60, 40})
	a.RMW = domain.Float(20)
	b := fix(6, 26, -86, domain.Radii{50, 40, 0, 20})
	b.MaxWind = domain.Float(120)
	b.RMW = domain.Float(10)

	out, err := windfield.Interpolate([]domain.Observation{a, b}, 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, out, 25)

	assert.Equal(t, a, out[0])
	assert.Equal(t, b, out[24])

	mid := out[12]
	assert.Equal(t, start.Add(3*time.Hour), mid.Time)
	assert.InDelta(t, 25.5, mid.Lat, 1e-12)
	assert.InDelta(t, -85.5, mid.Lon, 1e-12)
	assert.InDelta(t, 110, *mid.MaxWind, 1e-12)
	assert.InDelta(t, 15, *mid.RMW, 1e-12)
	assert.InDelta(t, 75, mid.Radii64[domain.NE], 1e-12)
	assert.InDelta(t, 0, mid.Radii64[domain.SW], 0, "missing on one side stays missing")
	assert.InDelta(t, 30, mid.Radii64[domain.NW], 1e-12)
	assert.Nil(t, mid.MinPressure)

	for i := 1; i < len(out); i++ {
		assert.Equal(t, 15*time.Minute, out[i].Time.Sub(out[i-1].Time))
	}
}

func TestInterpolate_UnevenGapKeepsLastObservation(t *testing.T) {
	a := fix(0, 25, -85, domain.Radii{})
	b := fix(1.25, 26, -86, domain.Radii{})

	out, err := windfield.Interpolate([]domain.Observation{a, b}, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, start.Add(time.Hour), out[2].Time)
	assert.Equal(t, b, out[3])
}

func TestInterpolate_MultipleSegments(t *testing.T) {
	obs := []domain.Observation{
		fix(0, 25, -85, domain.Radii{}),
		fix(6, 26, -86, domain.Radii{}),
		fix(9, 26.5, -86.5, domain.Radii{}),
	}
	out, err := windfield.Interpolate(obs, time.Hour)
	require.NoError(t, err)
	require.Len(t, out, 10)
	assert.Equal(t, obs[1], out[6], "interior observations land on the grid")
	assert.Equal(t, obs[2], out[9])
}

func TestInterpolate_SingleObservation(t *testing.T) {
	a := fix(0, 25, -85, domain.Radii{})
	out, err := windfield.Interpolate([]domain.Observation{a}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []domain.Observation{a}, out)
}

func TestInterpolate_Errors(t *testing.T) {
	_, err := windfield.Interpolate(nil, time.Hour)
	assert.ErrorIs(t, err, windfield.ErrEmptyTrack)

	a := fix(0, 25, -85, domain.Radii{})
	b := fix(6, 26, -86, domain.Radii{})
	_, err = windfield.Interpolate([]domain.Observation{a, b}, 0)
	assert.ErrorIs(t, err, windfield.ErrInvalidInterval)

	_, err = windfield.Interpolate([]domain.Observation{b, a}, time.Hour)
	assert.ErrorIs(t, err, domain.ErrUnsortedTrack)
}
