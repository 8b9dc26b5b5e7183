package exposure_test

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/geodesy"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2021, 8, 26, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// northboundTrack runs due north along 90W from 25N, half a degree every six
// hours, at 120 kt with a 20 nm RMW and the given 64 kt radii.
func northboundTrack(t *testing.T, n int, r64 domain.Radii) domain.StormTrack {
	t.Helper()
	obs := make([]domain.Observation, n)
	for i := range obs {
		obs[i] = domain.Observation{
			Time:    start.Add(time.Duration(6*i) * time.Hour),
			Status:  "HU",
			Lat:     25 + 0.5*float64(i),
			Lon:     -90,
			MaxWind: domain.Float(120),
			RMW:     domain.Float(20),
			Radii64: r64,
		}
	}
	track, err := domain.NewStormTrack("AL092021", "IDA", obs)
	require.NoError(t, err)
	return track
}

// eastOf returns the point on the same parallel exactly nm great-circle
// nautical miles east of (lat, lon).
func eastOf(lat, lon, nm float64) orb.Point {
	c := nm / geodesy.EarthRadiusNM
	dlon := 2 * math.Asin(math.Sin(c/2)/math.Cos(lat*math.Pi/180))
	return orb.Point{lon + dlon*180/math.Pi, lat}
}

// idaTrack reaches cat1 at hour 0, cat2 at +12h, cat3 at +24h and cat4 at
// +36h, peaking at 130 kt.
func idaTrack(t *testing.T) domain.StormTrack {
	t.Helper()
	winds := []float64{65, 75, 85, 90, 100, 105, 115, 130, 120}
	obs := make([]domain.Observation, len(winds))
	for i, w := range winds {
		obs[i] = domain.Observation{
			Time:    start.Add(time.Duration(6*i) * time.Hour),
			Status:  "HU",
			Lat:     22 + 0.8*float64(i),
			Lon:     -83 - 0.6*float64(i),
			MaxWind: domain.Float(w),
			Radii64: domain.Radii{40, 35, 25, 30},
		}
	}
	track, err := domain.NewStormTrack("AL092021", "IDA", obs)
	require.NoError(t, err)
	return track
}

type stubFootprint struct {
	contains bool
	distance float64
}

func (s stubFootprint) Contains(orb.Point) bool             { return s.contains }
func (s stubFootprint) BoundaryDistance(orb.Point) float64 { return s.distance }
