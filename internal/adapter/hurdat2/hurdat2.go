// Package hurdat2 reads the NHC HURDAT2 best-track text format.
//
// A file is a sequence of storms, each a header line
//
//	AL092021,                IDA,     40,
//
// followed by that many data lines of date, time, record identifier, status,
// position, intensity, wind radii for 34/50/64 kt in NE/SE/SW/NW order, and
// (since 2021) the radius of maximum wind.
package hurdat2

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
)

// missingValue marks an unreported numeric field.
const missingValue = "-999"

var (
	// ErrStormNotFound is returned by the lookup helpers.
	ErrStormNotFound = errors.New("storm not found")
	// ErrNoHeader is returned when data lines appear before any storm header.
	ErrNoHeader = errors.New("data line before storm header")
)

// Storm is one parsed storm, before cleaning.
type Storm struct {
	ID           string
	Name         string
	Observations []domain.Observation
	// Skipped counts data lines that could not be parsed.
	Skipped int
}

// Year returns the season from the storm identifier (AL092021 → 2021).
func (s Storm) Year() int {
	if len(s.ID) < 4 {
		return 0
	}
	y, err := strconv.Atoi(s.ID[len(s.ID)-4:])
	if err != nil {
		return 0
	}
	return y
}

// ParseFile parses the HURDAT2 file at path.
func ParseFile(path string) ([]Storm, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hurdat2: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads every storm from r. Malformed data lines are skipped and
// counted on their storm; a data line with no preceding header fails.
func Parse(r io.Reader) ([]Storm, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var storms []Storm
	var cur *Storm
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read hurdat2: %w", err)
		}
		fields := trimFields(rec)
		if len(fields) == 0 {
			continue
		}

		if id, name, ok := parseHeader(fields); ok {
			storms = append(storms, Storm{ID: id, Name: name})
			cur = &storms[len(storms)-1]
			continue
		}
		if cur == nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, ErrNoHeader)
		}

		obs, err := parseObservation(fields)
		if err != nil {
			cur.Skipped++
			continue
		}
		cur.Observations = append(cur.Observations, obs)
	}
	return storms, nil
}

// trimFields trims whitespace and drops the empty field left by a trailing
// comma.
func trimFields(rec []string) []string {
	out := make([]string, 0, len(rec))
	for _, f := range rec {
		out = append(out, strings.TrimSpace(f))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func parseHeader(fields []string) (id, name string, ok bool) {
	if len(fields) != 3 || !isStormID(fields[0]) {
		return "", "", false
	}
	if _, err := strconv.Atoi(fields[2]); err != nil {
		return "", "", false
	}
	name = fields[1]
	if name == "" {
		name = "UNNAMED"
	}
	return fields[0], name, true
}

// isStormID matches a two-letter basin, two-digit number, and four-digit year.
func isStormID(s string) bool {
	if len(s) != 8 {
		return false
	}
	for i, c := range s {
		switch {
		case i < 2 && (c < 'A' || c > 'Z'):
			return false
		case i >= 2 && (c < '0' || c > '9'):
			return false
		}
	}
	return true
}

func parseObservation(f []string) (domain.Observation, error) {
	if len(f) < 7 {
		return domain.Observation{}, fmt.Errorf("%d fields", len(f))
	}
	hhmm := f[1]
	if len(hhmm) < 4 {
		hhmm = strings.Repeat("0", 4-len(hhmm)) + hhmm
	}
	t, err := time.Parse("20060102 1504", f[0]+" "+hhmm)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("timestamp: %w", err)
	}
	lat, err := ParseCoordinate(f[4])
	if err != nil {
		return domain.Observation{}, err
	}
	lon, err := ParseCoordinate(f[5])
	if err != nil {
		return domain.Observation{}, err
	}

	obs := domain.Observation{
		Time:     t.UTC(),
		RecordID: f[2],
		Status:   f[3],
		Lat:      lat,
		Lon:      lon,
	}
	if obs.MaxWind, err = optional(f, 6, false); err != nil {
		return domain.Observation{}, fmt.Errorf("max wind: %w", err)
	}
	if obs.MinPressure, err = optional(f, 7, false); err != nil {
		return domain.Observation{}, fmt.Errorf("min pressure: %w", err)
	}
	for i, th := range []domain.Threshold{domain.Threshold34, domain.Threshold50, domain.Threshold64} {
		var r domain.Radii
		for q := range r {
			v, err := optional(f, 8+4*i+q, true)
			if err != nil {
				return domain.Observation{}, fmt.Errorf("%s radius: %w", th, err)
			}
			if v != nil {
				r[q] = *v
			}
		}
		obs = obs.WithRadii(th, r)
	}
	if obs.RMW, err = optional(f, 20, true); err != nil {
		return domain.Observation{}, fmt.Errorf("radius of max wind: %w", err)
	}
	return obs, nil
}

// optional parses field i, treating absent, empty, and -999 (and 0 when
// zeroMissing) as unreported.
func optional(f []string, i int, zeroMissing bool) (*float64, error) {
	if i >= len(f) || f[i] == "" || f[i] == missingValue {
		return nil, nil
	}
	v, err := strconv.ParseFloat(f[i], 64)
	if err != nil {
		return nil, err
	}
	if zeroMissing && v == 0 {
		return nil, nil
	}
	return &v, nil
}

// ParseCoordinate converts "28.0N" or "94.8W" to signed decimal degrees.
func ParseCoordinate(s string) (float64, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("coordinate %q: %w", s, domain.ErrInvalidCoordinate)
	}
	hemi := s[len(s)-1]
	v, err := strconv.ParseFloat(s[:len(s)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("coordinate %q: %w", s, domain.ErrInvalidCoordinate)
	}
	switch hemi {
	case 'N', 'E':
		return v, nil
	case 'S', 'W':
		return -v, nil
	}
	return 0, fmt.Errorf("coordinate %q: %w", s, domain.ErrInvalidCoordinate)
}
