package windfield_test

import (
	"testing"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/geodesy"
	"github.com/couchcryptid/storm-exposure/internal/geometry"
	"github.com/couchcryptid/storm-exposure/internal/windfield"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onOrInside(env windfield.Envelope, p orb.Point) bool {
	return env.Contains(p) || env.BoundaryDistance(p) < 1e-9
}

func TestBuildEnvelope_ContainsTrackAndDiagonals(t *testing.T) {
	radii := domain.Radii{60, 45, 30, 40}
	track := straightTrack(t, 6, radii)
	env, err := windfield.BuildEnvelope(windfield.Impute(track, domain.Threshold64), windfield.DefaultEnvelopeOptions())
	require.NoError(t, err)

	require.False(t, env.Empty())
	assert.True(t, geometry.IsValid(env.Geometry))
	require.Len(t, env.Segments, 1)
	assert.Len(t, env.Centerline, track.Len())

	for i := 0; i < track.Len(); i++ {
		o := track.At(i)
		assert.True(t, env.Contains(orb2(o.Lon, o.Lat)), "center %d", i)
		for _, q := range domain.Quadrants {
			startB, endB := q.BearingRange()
			lon, lat := geodesy.Destination(o.Lat, o.Lon, (startB+endB)/2, radii[q])
			assert.True(t, onOrInside(env, orb2(lon, lat)), "fix %d quadrant %s", i, q)
		}
	}

	far := orb2(-70, 10)
	assert.False(t, env.Contains(far))
	assert.Greater(t, env.BoundaryDistance(far), 5.0)
}

func TestBuildEnvelope_RayHitLeavesEnvelope(t *testing.T) {
	track := straightTrack(t, 4, domain.Radii{60, 60, 60, 60})
	env, err := windfield.BuildEnvelope(windfield.Impute(track, domain.Threshold64), windfield.DefaultEnvelopeOptions())
	require.NoError(t, err)
	require.False(t, env.Empty())

	o := track.At(0)
	center := orb2(o.Lon, o.Lat)
	// Heading south-east, away from the rest of the track.
	hit, ok := env.RayHit(center, orb2(o.Lon+1, o.Lat-1), 5)
	require.True(t, ok)
	assert.Less(t, hit.Lat(), o.Lat)
	assert.Greater(t, hit.Lon(), o.Lon)
	assert.InDelta(t, 0, env.BoundaryDistance(hit), 1e-9)
}

func TestBuildEnvelope_SplitsAtRadiiGaps(t *testing.T) {
	radii := domain.Radii{50, 50, 50, 50}
	var obs []domain.Observation
	for i := 0; i < 13; i++ {
		r := radii
		if i >= 4 && i <= 9 {
			r = domain.Radii{}
		}
		obs = append(obs, fix(float64(6*i), 20+0.5*float64(i), -60-0.5*float64(i), r))
	}
	track := mustTrack(t, obs...)
	env, err := windfield.BuildEnvelope(windfield.Impute(track, domain.Threshold64), windfield.DefaultEnvelopeOptions())
	require.NoError(t, err)

	require.Len(t, env.Segments, 2)
	assert.Equal(t, 0, env.Segments[0].Start)
	assert.Equal(t, 10, env.Segments[1].Start)
	require.False(t, env.Empty())
	assert.True(t, geometry.IsValid(env.Geometry))
	for _, i := range []int{0, 1, 2, 3, 10, 11, 12} {
		assert.True(t, env.Contains(orb2(obs[i].Lon, obs[i].Lat)), "fix %d", i)
	}
}

func TestBuildEnvelope_NoRadiiTwoFixes(t *testing.T) {
	track := mustTrack(t,
		fix(0, 25, -85, domain.Radii{}),
		fix(6, 26, -86, domain.Radii{}),
	)
	env, err := windfield.BuildEnvelope(windfield.Impute(track, domain.Threshold64), windfield.DefaultEnvelopeOptions())
	require.NoError(t, err)

	assert.True(t, env.Empty())
	assert.Nil(t, env.Centerline)
	assert.False(t, env.Contains(orb2(-85, 25)))
}
