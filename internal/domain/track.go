package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInsufficientTrack is returned when a track has fewer than two observations.
	ErrInsufficientTrack = errors.New("track needs at least two observations")
	// ErrUnsortedTrack is returned when timestamps are not strictly increasing.
	ErrUnsortedTrack = errors.New("track timestamps must be strictly increasing")
	// ErrInvalidCoordinate is returned for latitudes or longitudes out of range.
	ErrInvalidCoordinate = errors.New("coordinate out of range")
	// ErrInvalidRadius is returned for negative wind radii.
	ErrInvalidRadius = errors.New("wind radius must be positive when present")
	// ErrInvalidThreshold is returned when a wind threshold is not 34, 50, or 64 kt.
	ErrInvalidThreshold = errors.New("wind threshold must be 34kt, 50kt, or 64kt")
)

// Quadrant is a compass quadrant of the storm-relative wind field.
type Quadrant int

const (
	NE Quadrant = iota
	SE
	SW
	NW
)

// Quadrants lists the quadrants in the order HURDAT2 reports them.
var Quadrants = [4]Quadrant{NE, SE, SW, NW}

func (q Quadrant) String() string {
	switch q {
	case NE:
		return "NE"
	case SE:
		return "SE"
	case SW:
		return "SW"
	case NW:
		return "NW"
	}
	return "Quadrant(" + strconv.Itoa(int(q)) + ")"
}

// BearingRange returns the start and end bearings of the quadrant arc.
func (q Quadrant) BearingRange() (start, end float64) {
	start = 90 * float64(q)
	return start, start + 90
}

// QuadrantOf classifies an offset from the storm center by the signs of its
// latitude and longitude deltas.
func QuadrantOf(dLat, dLon float64) Quadrant {
	switch {
	case dLat >= 0 && dLon >= 0:
		return NE
	case dLat < 0 && dLon >= 0:
		return SE
	case dLat < 0 && dLon < 0:
		return SW
	}
	return NW
}

// Threshold is a wind-radii threshold in knots.
type Threshold int

const (
	Threshold34 Threshold = 34
	Threshold50 Threshold = 50
	Threshold64 Threshold = 64
)

// Thresholds lists the radii thresholds from strongest to weakest.
var Thresholds = [3]Threshold{Threshold64, Threshold50, Threshold34}

// ParseThreshold accepts "64", "64kt", or "64KT".
func ParseThreshold(s string) (Threshold, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "kt")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse threshold %q: %w", s, ErrInvalidThreshold)
	}
	t := Threshold(n)
	if !t.Valid() {
		return 0, fmt.Errorf("parse threshold %q: %w", s, ErrInvalidThreshold)
	}
	return t, nil
}

// Valid reports whether t is one of the reported radii thresholds.
func (t Threshold) Valid() bool {
	return t == Threshold34 || t == Threshold50 || t == Threshold64
}

func (t Threshold) String() string { return strconv.Itoa(int(t)) + "kt" }

// Knots returns the threshold as a wind speed.
func (t Threshold) Knots() float64 { return float64(t) }

// MarshalText encodes the threshold as "64kt".
func (t Threshold) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal threshold %d: %w", int(t), ErrInvalidThreshold)
	}
	return []byte(t.String()), nil
}

// UnmarshalText accepts any form ParseThreshold does.
func (t *Threshold) UnmarshalText(b []byte) error {
	v, err := ParseThreshold(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Radii holds wind radii in nautical miles in NE, SE, SW, NW order.
// A value that is zero, negative, or NaN means the quadrant was not observed.
type Radii [4]float64

// Missing returns radii with every quadrant unobserved.
func Missing() Radii {
	nan := math.NaN()
	return Radii{nan, nan, nan, nan}
}

// Valid reports whether quadrant q holds a usable radius.
func (r Radii) Valid(q Quadrant) bool {
	v := r[q]
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Count returns the number of usable quadrants.
func (r Radii) Count() int {
	n := 0
	for _, q := range Quadrants {
		if r.Valid(q) {
			n++
		}
	}
	return n
}

// Complete reports whether all four quadrants are usable.
func (r Radii) Complete() bool { return r.Count() == 4 }

// Observation is one best-track fix.
type Observation struct {
	Time        time.Time `json:"time"`
	RecordID    string    `json:"record_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	MaxWind     *float64  `json:"max_wind,omitempty"`
	MinPressure *float64  `json:"min_pressure,omitempty"`
	Radii34     Radii     `json:"radii_34"`
	Radii50     Radii     `json:"radii_50"`
	Radii64     Radii     `json:"radii_64"`
	RMW         *float64  `json:"radius_max_wind,omitempty"`
}

// RadiiAt returns the observed radii for a threshold.
func (o Observation) RadiiAt(t Threshold) Radii {
	switch t {
	case Threshold34:
		return o.Radii34
	case Threshold50:
		return o.Radii50
	case Threshold64:
		return o.Radii64
	}
	return Radii{}
}

// WithRadii returns a copy of o with the radii for t replaced.
func (o Observation) WithRadii(t Threshold, r Radii) Observation {
	switch t {
	case Threshold34:
		o.Radii34 = r
	case Threshold50:
		o.Radii50 = r
	case Threshold64:
		o.Radii64 = r
	}
	return o
}

// Validate checks coordinate ranges and radii signs.
func (o Observation) Validate() error {
	if math.IsNaN(o.Lat) || o.Lat < -90 || o.Lat > 90 {
		return fmt.Errorf("latitude %v: %w", o.Lat, ErrInvalidCoordinate)
	}
	if math.IsNaN(o.Lon) || o.Lon < -180 || o.Lon > 180 {
		return fmt.Errorf("longitude %v: %w", o.Lon, ErrInvalidCoordinate)
	}
	for _, t := range Thresholds {
		for _, v := range o.RadiiAt(t) {
			if v < 0 {
				return fmt.Errorf("%s radius %v: %w", t, v, ErrInvalidRadius)
			}
		}
	}
	return nil
}

// StormTrack is an ordered, immutable sequence of observations for one storm.
type StormTrack struct {
	StormID string
	Name    string
	obs     []Observation
}

// NewStormTrack validates and copies observations into a track.
func NewStormTrack(stormID, name string, obs []Observation) (StormTrack, error) {
	if len(obs) < 2 {
		return StormTrack{}, fmt.Errorf("storm %s: %w", stormID, ErrInsufficientTrack)
	}
	for i, o := range obs {
		if err := o.Validate(); err != nil {
			return StormTrack{}, fmt.Errorf("storm %s observation %d: %w", stormID, i, err)
		}
		if i > 0 && !o.Time.After(obs[i-1].Time) {
			return StormTrack{}, fmt.Errorf("storm %s observation %d at %s: %w",
				stormID, i, o.Time.Format(time.RFC3339), ErrUnsortedTrack)
		}
	}
	cp := make([]Observation, len(obs))
	copy(cp, obs)
	return StormTrack{StormID: stormID, Name: name, obs: cp}, nil
}

// Len returns the number of observations.
func (t StormTrack) Len() int { return len(t.obs) }

// At returns observation i.
func (t StormTrack) At(i int) Observation { return t.obs[i] }

// Observations returns a copy of the observations.
func (t StormTrack) Observations() []Observation {
	cp := make([]Observation, len(t.obs))
	copy(cp, t.obs)
	return cp
}

// Start and End return the first and last observation times.
func (t StormTrack) Start() time.Time { return t.obs[0].Time }

func (t StormTrack) End() time.Time { return t.obs[len(t.obs)-1].Time }

// Revision identifies the track content for caching: the storm id plus a
// hash of every observation, so a corrected fix yields a new revision.
func (t StormTrack) Revision() string {
	if len(t.obs) == 0 {
		return t.StormID
	}
	h := sha256.New()
	for _, o := range t.obs {
		fmt.Fprintf(h, "%d|%s|%s|%g|%g|%s|%s|%s|%v|%v|%v\n",
			o.Time.UnixNano(), o.RecordID, o.Status, o.Lat, o.Lon,
			optional(o.MaxWind), optional(o.MinPressure), optional(o.RMW),
			o.Radii34, o.Radii50, o.Radii64)
	}
	return t.StormID + "@" + hex.EncodeToString(h.Sum(nil)[:12])
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// Float returns a pointer to v, for optional observation fields.
func Float(v float64) *float64 { return &v }
