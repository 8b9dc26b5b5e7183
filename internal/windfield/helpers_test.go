package windfield_test

import (
	"testing"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2021, 8, 28, 0, 0, 0, 0, time.UTC)

func fix(hours float64, lat, lon float64, r64 domain.Radii) domain.Observation {
	return domain.Observation{
		Time:    start.Add(time.Duration(hours * float64(time.Hour))),
		Lat:     lat,
		Lon:     lon,
		MaxWind: domain.Float(100),
		Radii64: r64,
	}
}

func mustTrack(t *testing.T, obs ...domain.Observation) domain.StormTrack {
	t.Helper()
	track, err := domain.NewStormTrack("AL092021", "IDA", obs)
	require.NoError(t, err)
	return track
}

// straightTrack moves north-west half a degree every six hours with the same
// radii at every fix.
func straightTrack(t *testing.T, n int, r domain.Radii) domain.StormTrack {
	t.Helper()
	obs := make([]domain.Observation, n)
	for i := range obs {
		obs[i] = fix(float64(6*i), 25+0.5*float64(i), -85-0.5*float64(i), r)
	}
	return mustTrack(t, obs...)
}

func orb2(lon, lat float64) orb.Point { return orb.Point{lon, lat} }
