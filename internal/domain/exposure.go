package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// QueryPoint is a location to evaluate, typically a census-tract centroid.
// ID is opaque and carried through to the output untouched.
type QueryPoint struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// WindSource records which branch of the wind model produced an estimate.
type WindSource string

const (
	WindSourcePlateau       WindSource = "rmw_plateau"
	WindSourceDecayTo64     WindSource = "rmw_decay_to_64kt"
	WindSourceDecayTo50     WindSource = "rmw_decay_to_50kt"
	WindSourceDecayTo34     WindSource = "rmw_decay_to_34kt"
	WindSourceDecayEnvelope WindSource = "rmw_decay_to_envelope"
	WindSourceError         WindSource = "error"
)

// DurationSource records how the exposure duration was derived.
type DurationSource string

const (
	DurationTimeline                DurationSource = "timeline"
	DurationEdgeInterpolation       DurationSource = "edge_interpolation"
	DurationEdgeInterpolationFailed DurationSource = "edge_interpolation_failed"
)

// LeadTimes holds the hours between a storm first reaching each category and
// its closest approach. Nil means the category was never reached.
type LeadTimes struct {
	Cat1 *float64 `json:"cat1_h"`
	Cat2 *float64 `json:"cat2_h"`
	Cat3 *float64 `json:"cat3_h"`
	Cat4 *float64 `json:"cat4_h"`
	Cat5 *float64 `json:"cat5_h"`
}

// Get returns the lead time for c.
func (l LeadTimes) Get(c Category) *float64 {
	switch c {
	case Cat1:
		return l.Cat1
	case Cat2:
		return l.Cat2
	case Cat3:
		return l.Cat3
	case Cat4:
		return l.Cat4
	case Cat5:
		return l.Cat5
	}
	return nil
}

// Set stores the lead time for c.
func (l *LeadTimes) Set(c Category, v *float64) {
	switch c {
	case Cat1:
		l.Cat1 = v
	case Cat2:
		l.Cat2 = v
	case Cat3:
		l.Cat3 = v
	case Cat4:
		l.Cat4 = v
	case Cat5:
		l.Cat5 = v
	}
}

// ExposureRecord is the per (storm, query point) result. It is derived once
// and never mutated.
type ExposureRecord struct {
	ID        string  `json:"id"`
	StormID   string  `json:"storm_id"`
	StormName string  `json:"storm_name,omitempty"`
	PointID   string  `json:"point_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Threshold string  `json:"wind_threshold"`

	// Wind model.
	MaxWindKt        *float64   `json:"max_wind_experienced_kt,omitempty"`
	CenterWindKt     *float64   `json:"center_wind_kt,omitempty"`
	DistanceToEdgeNM *float64   `json:"distance_to_envelope_edge_nm,omitempty"`
	NearestTrackLat  *float64   `json:"nearest_track_lat,omitempty"`
	NearestTrackLon  *float64   `json:"nearest_track_lon,omitempty"`
	RadiusMaxWindNM  *float64   `json:"radius_max_wind_nm,omitempty"`
	InsideEyewall    bool       `json:"inside_eyewall"`
	WindSource       WindSource `json:"wind_source"`
	WindError        string     `json:"wind_error,omitempty"`

	// Duration.
	DurationHours       float64        `json:"duration_in_envelope_hours"`
	ExposureWindowHours float64        `json:"exposure_window_hours"`
	FirstEntry          *time.Time     `json:"first_entry_time,omitempty"`
	LastExit            *time.Time     `json:"last_exit_time,omitempty"`
	ContinuousExposure  bool           `json:"continuous_exposure"`
	InterpolatedPoints  int            `json:"interpolated_points_count"`
	DurationSource      DurationSource `json:"duration_source"`

	// Closest approach.
	ClosestApproach   time.Time `json:"closest_approach_time"`
	ClosestApproachNM float64   `json:"closest_approach_distance_nm"`
	NearestQuadrant   string    `json:"nearest_quadrant"`
	Radius64NM        *float64  `json:"radius_64_nm,omitempty"`
	Within64kt        bool      `json:"within_64kt"`

	// Lead times.
	LeadTimes          LeadTimes `json:"lead_times"`
	LeadTimesValid     bool      `json:"lead_times_valid"`
	LeadTimeViolations []string  `json:"lead_time_violations,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
}

// NewExposureRecord starts a record with its identity fields set.
func NewExposureRecord(track StormTrack, p QueryPoint, t Threshold) ExposureRecord {
	return ExposureRecord{
		ID:          generateID(track.StormID, p.ID, t),
		StormID:     track.StormID,
		StormName:   track.Name,
		PointID:     p.ID,
		Lat:         p.Lat,
		Lon:         p.Lon,
		Threshold:   t.String(),
		ProcessedAt: clock.Now().UTC(),
	}
}

// generateID produces a deterministic record ID so replays of the same storm
// overwrite rather than duplicate downstream.
func generateID(stormID, pointID string, t Threshold) string {
	input := fmt.Sprintf("%s|%s|%d", stormID, pointID, t)
	hash := sha256.Sum256([]byte(input))
	return stormID + "_" + hex.EncodeToString(hash[:8])
}
