package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/adapter/export"
	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var processed = time.Date(2021, 8, 30, 12, 0, 0, 0, time.UTC)

func sampleRecord() domain.ExposureRecord {
	entry := time.Date(2021, 8, 29, 14, 0, 0, 0, time.UTC)
	exit := entry.Add(6 * time.Hour)
	return domain.ExposureRecord{
		ID:                  "AL092021_0011223344556677",
		StormID:             "AL092021",
		StormName:           "IDA",
		PointID:             "22057021200",
		Lat:                 29.108,
		Lon:                 -90.2003,
		Threshold:           "64kt",
		MaxWindKt:           domain.Float(118.5),
		WindSource:          domain.WindSourceDecayTo64,
		DurationHours:       6.25,
		ExposureWindowHours: 6.25,
		FirstEntry:          &entry,
		LastExit:            &exit,
		ContinuousExposure:  true,
		InterpolatedPoints:  145,
		DurationSource:      domain.DurationTimeline,
		ClosestApproach:     entry.Add(3 * time.Hour),
		ClosestApproachNM:   4.2,
		NearestQuadrant:     "NE",
		LeadTimes:           domain.LeadTimes{Cat1: domain.Float(58), Cat4: domain.Float(17)},
		LeadTimesValid:      false,
		LeadTimeViolations:  []string{"cat4 reached but cat2 never was", "x"},
		ProcessedAt:         processed,
	}
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w := export.NewCSVWriter(&buf)

	require.NoError(t, w.Write(sampleRecord()))
	require.NoError(t, w.Write(sampleRecord()))
	require.NoError(t, w.Flush())
	assert.Equal(t, 2, w.Rows())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, export.Columns, rows[0])

	got := make(map[string]string, len(export.Columns))
	for i, col := range rows[0] {
		got[col] = rows[1][i]
	}
	assert.Equal(t, "22057021200", got["point_id"])
	assert.Equal(t, "118.5", got["max_wind_experienced_kt"])
	assert.Empty(t, got["center_wind_kt"])
	assert.Equal(t, "rmw_decay_to_64kt", got["wind_source"])
	assert.Equal(t, "2021-08-29T14:00:00Z", got["first_entry_time"])
	assert.Equal(t, "true", got["continuous_exposure"])
	assert.Equal(t, "145", got["interpolated_points_count"])
	assert.Equal(t, "58", got["lead_time_cat1_h"])
	assert.Empty(t, got["lead_time_cat2_h"])
	assert.Equal(t, "cat4 reached but cat2 never was; x", got["lead_time_violations"])
	assert.Equal(t, "2021-08-30T12:00:00Z", got["processed_at"])
}

func TestCSVWriter_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	w := export.NewCSVWriter(&buf)
	require.NoError(t, w.Flush())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Zero(t, w.Rows())
}

func TestRecordCollection(t *testing.T) {
	fc, err := export.RecordCollection([]domain.ExposureRecord{sampleRecord()})
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, orb.Point{-90.2003, 29.108}, f.Geometry)
	assert.Equal(t, "AL092021_0011223344556677", f.ID)
	assert.Equal(t, "22057021200", f.Properties.MustString("point_id"))
	assert.InDelta(t, 118.5, f.Properties.MustFloat64("max_wind_experienced_kt"), 1e-9)

	var buf bytes.Buffer
	require.NoError(t, export.WriteGeoJSON(&buf, fc))
	back, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, back.Features, 1)
}

func TestModelCollection(t *testing.T) {
	start := time.Date(2021, 8, 29, 0, 0, 0, 0, time.UTC)
	obs := make([]domain.Observation, 4)
	for i := range obs {
		obs[i] = domain.Observation{
			Time:    start.Add(time.Duration(6*i) * time.Hour),
			Lat:     27 + 0.6*float64(i),
			Lon:     -89.5 - 0.3*float64(i),
			MaxWind: domain.Float(130 - 10*float64(i)),
			Radii64: domain.Radii{45, 35, 30, 40},
		}
	}
	track, err := domain.NewStormTrack("AL092021", "IDA", obs)
	require.NoError(t, err)
	m, err := exposure.BuildModel(track, exposure.DefaultParams())
	require.NoError(t, err)

	fc := export.ModelCollection(m)

	require.Len(t, fc.Features, 3)
	kinds := make([]string, 0, 3)
	for _, f := range fc.Features {
		kinds = append(kinds, f.Properties.MustString("kind"))
		assert.Equal(t, "AL092021", f.Properties.MustString("storm_id"))
		assert.Equal(t, "64kt", f.Properties.MustString("threshold"))
	}
	assert.Equal(t, []string{export.KindEnvelope, export.KindCoverage, export.KindTrack}, kinds)
	assert.IsType(t, orb.MultiPolygon{}, fc.Features[0].Geometry)
	assert.InDelta(t, 130, fc.Features[0].Properties.MustFloat64("peak_wind_kt"), 1e-9)
	assert.Len(t, fc.Features[2].Geometry, 4)
}

func TestModelCollection_NoRadii(t *testing.T) {
	start := time.Date(2021, 8, 29, 0, 0, 0, 0, time.UTC)
	track, err := domain.NewStormTrack("AL012020", "ARTHUR", []domain.Observation{
		{Time: start, Lat: 30, Lon: -75},
		{Time: start.Add(6 * time.Hour), Lat: 31, Lon: -74},
	})
	require.NoError(t, err)
	m, err := exposure.BuildModel(track, exposure.DefaultParams())
	require.NoError(t, err)

	fc := export.ModelCollection(m)

	require.Len(t, fc.Features, 1)
	assert.Equal(t, export.KindTrack, fc.Features[0].Properties.MustString("kind"))
}
