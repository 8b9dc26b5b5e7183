// Package export writes exposure records and storm footprints as CSV and
// GeoJSON.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
)

// Columns is the CSV header, one column per record field.
var Columns = []string{
	"id", "storm_id", "storm_name", "point_id", "lat", "lon", "wind_threshold",
	"max_wind_experienced_kt", "center_wind_kt", "distance_to_envelope_edge_nm",
	"nearest_track_lat", "nearest_track_lon", "radius_max_wind_nm",
	"inside_eyewall", "wind_source", "wind_error",
	"duration_in_envelope_hours", "exposure_window_hours",
	"first_entry_time", "last_exit_time", "continuous_exposure",
	"interpolated_points_count", "duration_source",
	"closest_approach_time", "closest_approach_distance_nm",
	"nearest_quadrant", "radius_64_nm", "within_64kt",
	"lead_time_cat1_h", "lead_time_cat2_h", "lead_time_cat3_h", "lead_time_cat4_h", "lead_time_cat5_h",
	"lead_times_valid", "lead_time_violations",
	"processed_at",
}

// CSVWriter streams records as CSV, writing the header before the first row.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
	rows        int
}

// NewCSVWriter wraps w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write appends records.
func (c *CSVWriter) Write(records ...domain.ExposureRecord) error {
	if !c.wroteHeader {
		if err := c.w.Write(Columns); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		c.wroteHeader = true
	}
	for i := range records {
		if err := c.w.Write(row(&records[i])); err != nil {
			return fmt.Errorf("write csv row %s: %w", records[i].ID, err)
		}
		c.rows++
	}
	return nil
}

// Rows returns the number of records written.
func (c *CSVWriter) Rows() int { return c.rows }

// Flush writes buffered rows, emitting the header even when no record was
// written.
func (c *CSVWriter) Flush() error {
	if !c.wroteHeader {
		if err := c.Write(); err != nil {
			return err
		}
	}
	c.w.Flush()
	return c.w.Error()
}

func row(r *domain.ExposureRecord) []string {
	return []string{
		r.ID, r.StormID, r.StormName, r.PointID, formatFloat(r.Lat), formatFloat(r.Lon), r.Threshold,
		optFloat(r.MaxWindKt), optFloat(r.CenterWindKt), optFloat(r.DistanceToEdgeNM),
		optFloat(r.NearestTrackLat), optFloat(r.NearestTrackLon), optFloat(r.RadiusMaxWindNM),
		strconv.FormatBool(r.InsideEyewall), string(r.WindSource), r.WindError,
		formatFloat(r.DurationHours), formatFloat(r.ExposureWindowHours),
		optTime(r.FirstEntry), optTime(r.LastExit), strconv.FormatBool(r.ContinuousExposure),
		strconv.Itoa(r.InterpolatedPoints), string(r.DurationSource),
		formatTime(r.ClosestApproach), formatFloat(r.ClosestApproachNM),
		r.NearestQuadrant, optFloat(r.Radius64NM), strconv.FormatBool(r.Within64kt),
		optFloat(r.LeadTimes.Cat1), optFloat(r.LeadTimes.Cat2), optFloat(r.LeadTimes.Cat3),
		optFloat(r.LeadTimes.Cat4), optFloat(r.LeadTimes.Cat5),
		strconv.FormatBool(r.LeadTimesValid), strings.Join(r.LeadTimeViolations, "; "),
		formatTime(r.ProcessedAt),
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func optTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
