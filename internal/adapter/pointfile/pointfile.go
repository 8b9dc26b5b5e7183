// Package pointfile loads query points (typically census-tract centroids)
// from CSV or GeoJSON files.
package pointfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrDuplicateID   = errors.New("duplicate point id")
	ErrUnsupported   = errors.New("unsupported point file")
)

// Accepted header names, compared case-insensitively.
var (
	idColumns  = []string{"id", "point_id", "geoid", "tract"}
	latColumns = []string{"lat", "latitude", "intptlat"}
	lonColumns = []string{"lon", "lng", "longitude", "intptlon"}
)

// Load reads points from path, choosing the format by extension.
func Load(path string) ([]domain.QueryPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open points: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".geojson", ".json":
		return ReadGeoJSON(f)
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
}

// ReadCSV reads points from a CSV with a header row naming id, latitude, and
// longitude columns. Other columns are ignored.
func ReadCSV(r io.Reader) ([]domain.QueryPoint, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read points header: %w", err)
	}
	idCol, latCol, lonCol := column(header, idColumns), column(header, latColumns), column(header, lonColumns)
	switch {
	case idCol < 0:
		return nil, fmt.Errorf("id: %w", ErrMissingColumn)
	case latCol < 0:
		return nil, fmt.Errorf("latitude: %w", ErrMissingColumn)
	case lonCol < 0:
		return nil, fmt.Errorf("longitude: %w", ErrMissingColumn)
	}

	var points []domain.QueryPoint
	seen := make(map[string]struct{})
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read points: %w", err)
		}
		line, _ := cr.FieldPos(0)
		p, err := parseRow(rec, idCol, latCol, lonCol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("line %d: %s: %w", line, p.ID, ErrDuplicateID)
		}
		seen[p.ID] = struct{}{}
		points = append(points, p)
	}
	return points, nil
}

func parseRow(rec []string, idCol, latCol, lonCol int) (domain.QueryPoint, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(rec[latCol]), 64)
	if err != nil {
		return domain.QueryPoint{}, fmt.Errorf("latitude %q: %w", rec[latCol], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(rec[lonCol]), 64)
	if err != nil {
		return domain.QueryPoint{}, fmt.Errorf("longitude %q: %w", rec[lonCol], err)
	}
	return newPoint(strings.TrimSpace(rec[idCol]), lat, lon)
}

// ReadGeoJSON reads point features. The id comes from the feature id or an
// id-like property.
func ReadGeoJSON(r io.Reader) ([]domain.QueryPoint, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read points: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse points geojson: %w", err)
	}

	points := make([]domain.QueryPoint, 0, len(fc.Features))
	seen := make(map[string]struct{}, len(fc.Features))
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("feature %d: %s geometry: %w", i, f.Geometry.GeoJSONType(), ErrUnsupported)
		}
		id := featureID(f)
		if id == "" {
			return nil, fmt.Errorf("feature %d: id: %w", i, ErrMissingColumn)
		}
		p, err := newPoint(id, pt.Lat(), pt.Lon())
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("feature %d: %s: %w", i, p.ID, ErrDuplicateID)
		}
		seen[p.ID] = struct{}{}
		points = append(points, p)
	}
	return points, nil
}

func featureID(f *geojson.Feature) string {
	if f.ID != nil {
		return fmt.Sprint(f.ID)
	}
	for _, k := range idColumns {
		for name, v := range f.Properties {
			if strings.EqualFold(name, k) && v != nil {
				return fmt.Sprint(v)
			}
		}
	}
	return ""
}

func newPoint(id string, lat, lon float64) (domain.QueryPoint, error) {
	if id == "" {
		return domain.QueryPoint{}, fmt.Errorf("id: %w", ErrMissingColumn)
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return domain.QueryPoint{}, fmt.Errorf("point %s (%v, %v): %w", id, lat, lon, domain.ErrInvalidCoordinate)
	}
	return domain.QueryPoint{ID: id, Lat: lat, Lon: lon}, nil
}

func column(header []string, names []string) int {
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		for _, n := range names {
			if strings.EqualFold(h, n) {
				return i
			}
		}
	}
	return -1
}
