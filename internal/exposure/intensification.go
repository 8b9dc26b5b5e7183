package exposure

import (
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
)

const intensificationWindow = 24 * time.Hour

// Intensification summarises how quickly a storm strengthened. It is the same
// for every point of a storm.
type Intensification struct {
	MaxChange24hKt *float64   `json:"max_intensification_kt_per_24h,omitempty"`
	MaxChangeAt    *time.Time `json:"time_of_max_intensification,omitempty"`
	Cat4First      *time.Time `json:"cat4_first_time,omitempty"`
	PeakWindKt     *float64   `json:"peak_wind_kt,omitempty"`
}

// SummarizeIntensification computes the largest 24 hour wind change, when it
// ended, the first time the storm reached category 4, and the peak wind.
// Only pairs of fixes exactly 24 hours apart are compared, so special
// landfall fixes between synoptic times do not distort the rate.
func SummarizeIntensification(track domain.StormTrack) Intensification {
	var out Intensification
	wind := make(map[int64]float64, track.Len())
	for i := 0; i < track.Len(); i++ {
		o := track.At(i)
		if o.MaxWind != nil {
			wind[o.Time.Unix()] = *o.MaxWind
		}
	}

	for i := 0; i < track.Len(); i++ {
		o := track.At(i)
		if o.MaxWind == nil {
			continue
		}
		w := *o.MaxWind
		if out.PeakWindKt == nil || w > *out.PeakWindKt {
			out.PeakWindKt = floatPtr(w)
		}
		if out.Cat4First == nil && w >= domain.Cat4.Knots() {
			out.Cat4First = timePtr(o.Time)
		}
		before, ok := wind[o.Time.Add(-intensificationWindow).Unix()]
		if !ok {
			continue
		}
		if change := w - before; out.MaxChange24hKt == nil || change > *out.MaxChange24hKt {
			out.MaxChange24hKt = floatPtr(change)
			out.MaxChangeAt = timePtr(o.Time)
		}
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }
