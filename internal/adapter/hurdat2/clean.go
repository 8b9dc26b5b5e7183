package hurdat2

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/couchcryptid/storm-exposure/internal/domain"
)

// Plausible sustained wind range in knots; readings outside it are dropped.
const (
	minPlausibleWind = 10
	maxPlausibleWind = 200
)

// CleanStats counts what Clean removed.
type CleanStats struct {
	Input             int
	InvalidCoordinate int
	ImplausibleWind   int
	DuplicateTime     int
}

// Dropped is the total number of removed observations.
func (c CleanStats) Dropped() int {
	return c.InvalidCoordinate + c.ImplausibleWind + c.DuplicateTime
}

// Clean turns a parsed storm into a validated track. Observations with
// out-of-range coordinates or an implausible wind are dropped, the rest are
// sorted by time, and later fixes sharing a timestamp are dropped.
func Clean(s Storm) (domain.StormTrack, CleanStats, error) {
	stats := CleanStats{Input: len(s.Observations)}
	kept := make([]domain.Observation, 0, len(s.Observations))
	for _, o := range s.Observations {
		if !validCoordinate(o.Lat, o.Lon) {
			stats.InvalidCoordinate++
			continue
		}
		if o.MaxWind != nil && (*o.MaxWind < minPlausibleWind || *o.MaxWind > maxPlausibleWind) {
			stats.ImplausibleWind++
			continue
		}
		kept = append(kept, o)
	}

	slices.SortStableFunc(kept, func(a, b domain.Observation) int {
		return a.Time.Compare(b.Time)
	})
	unique := kept[:0]
	for _, o := range kept {
		if n := len(unique); n > 0 && o.Time.Equal(unique[n-1].Time) {
			stats.DuplicateTime++
			continue
		}
		unique = append(unique, o)
	}
	kept = unique

	track, err := domain.NewStormTrack(s.ID, s.Name, kept)
	if err != nil {
		return domain.StormTrack{}, stats, fmt.Errorf("clean %s: %w", s.ID, err)
	}
	return track, stats, nil
}

func validCoordinate(lat, lon float64) bool {
	return !math.IsNaN(lat) && !math.IsNaN(lon) &&
		lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// FindByID returns the storm with the given identifier, e.g. AL092021.
func FindByID(storms []Storm, id string) (Storm, error) {
	for _, s := range storms {
		if strings.EqualFold(s.ID, id) {
			return s, nil
		}
	}
	return Storm{}, fmt.Errorf("%s: %w", id, ErrStormNotFound)
}

// FindByName returns the storm with the given name in the given season.
func FindByName(storms []Storm, name string, year int) (Storm, error) {
	for _, s := range storms {
		if strings.EqualFold(s.Name, name) && s.Year() == year {
			return s, nil
		}
	}
	return Storm{}, fmt.Errorf("%s %d: %w", name, year, ErrStormNotFound)
}

// Lookup resolves "AL092021" or "IDA 2021" style keys.
func Lookup(storms []Storm, key string) (Storm, error) {
	key = strings.TrimSpace(key)
	if isStormID(strings.ToUpper(key)) {
		return FindByID(storms, key)
	}
	if i := strings.LastIndexByte(key, ' '); i > 0 {
		var year int
		if _, err := fmt.Sscanf(key[i+1:], "%d", &year); err == nil {
			return FindByName(storms, strings.TrimSpace(key[:i]), year)
		}
	}
	return Storm{}, fmt.Errorf("%s: %w", key, ErrStormNotFound)
}
