package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature kinds in a storm collection.
const (
	KindEnvelope = "envelope"
	KindCoverage = "coverage"
	KindTrack    = "track"
)

// ModelCollection renders a storm model as features: the envelope, the wind
// coverage union, and the best track. Empty footprints are omitted.
func ModelCollection(m *exposure.Model) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	base := func(kind string) geojson.Properties {
		return geojson.Properties{
			"storm_id":  m.Track.StormID,
			"name":      m.Track.Name,
			"threshold": m.Threshold.String(),
			"kind":      kind,
		}
	}

	if !m.Envelope.Empty() {
		f := geojson.NewFeature(m.Envelope.Geometry)
		f.Properties = base(KindEnvelope)
		f.Properties["segments"] = len(m.Envelope.Segments)
		f.Properties["imputed_steps"] = m.Imputed.ImputedCount()
		if v := m.Intensification.PeakWindKt; v != nil {
			f.Properties["peak_wind_kt"] = *v
		}
		if v := m.Intensification.MaxChange24hKt; v != nil {
			f.Properties["max_intensification_kt_per_24h"] = *v
		}
		fc.Append(f)
	}

	if cov := m.Timeline.Coverage(); !cov.Empty() {
		f := geojson.NewFeature(cov.Parts())
		f.Properties = base(KindCoverage)
		f.Properties["steps"] = m.Timeline.Len()
		fc.Append(f)
	}

	track := make(orb.LineString, 0, m.Track.Len())
	for i := 0; i < m.Track.Len(); i++ {
		o := m.Track.At(i)
		track = append(track, orb.Point{o.Lon, o.Lat})
	}
	f := geojson.NewFeature(track)
	f.Properties = base(KindTrack)
	f.Properties["start"] = m.Track.Start()
	f.Properties["end"] = m.Track.End()
	fc.Append(f)

	return fc
}

// RecordCollection renders records as point features whose properties are
// the record's JSON fields.
func RecordCollection(records []domain.ExposureRecord) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for i := range records {
		r := &records[i]
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode record %s: %w", r.ID, err)
		}
		var props geojson.Properties
		if err := json.Unmarshal(data, &props); err != nil {
			return nil, fmt.Errorf("encode record %s: %w", r.ID, err)
		}
		f := geojson.NewFeature(orb.Point{r.Lon, r.Lat})
		f.ID = r.ID
		f.Properties = props
		fc.Append(f)
	}
	return fc, nil
}

// WriteGeoJSON encodes fc to w.
func WriteGeoJSON(w io.Writer, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}
