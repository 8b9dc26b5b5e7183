package exposure

import (
	"fmt"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
)

// leadTimeToleranceHours is how much a higher category's lead time may exceed
// the one below it before the pair is flagged.
const leadTimeToleranceHours = 6.0

// CategoryOnset returns when the track first reached category c, or false if
// it never did.
func CategoryOnset(track domain.StormTrack, c domain.Category) (time.Time, bool) {
	for i := 0; i < track.Len(); i++ {
		o := track.At(i)
		if o.MaxWind != nil && *o.MaxWind >= c.Knots() {
			return o.Time, true
		}
	}
	return time.Time{}, false
}

// LeadTimes returns, per category, the hours from the storm first reaching it
// to the closest approach. Negative values mean the storm strengthened after
// passing; nil means the category was never reached.
func LeadTimes(track domain.StormTrack, closestApproach time.Time) domain.LeadTimes {
	var out domain.LeadTimes
	for _, c := range domain.Categories {
		onset, ok := CategoryOnset(track, c)
		if !ok {
			continue
		}
		h := closestApproach.Sub(onset).Hours()
		out.Set(c, &h)
	}
	return out
}

// LeadTimeValidation is the result of checking lead times for consistency.
type LeadTimeValidation struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

// ValidateLeadTimes checks that a missing category is never followed by a
// present higher one, and that lead times do not grow by more than six hours
// from one category to the next. Violations are reported, not corrected.
func ValidateLeadTimes(l domain.LeadTimes) LeadTimeValidation {
	var violations []string

	var missing domain.Category
	for _, c := range domain.Categories {
		v := l.Get(c)
		if v == nil {
			if missing == 0 {
				missing = c
			}
			continue
		}
		if missing != 0 {
			violations = append(violations, fmt.Sprintf("%s reached but %s never was", c, missing))
		}
	}

	var prev domain.Category
	for _, c := range domain.Categories {
		v := l.Get(c)
		if v == nil {
			continue
		}
		if prev != 0 {
			p := *l.Get(prev)
			if *v > p+leadTimeToleranceHours {
				violations = append(violations, fmt.Sprintf("%s lead %.1fh exceeds %s lead %.1fh", c, *v, prev, p))
			}
		}
		prev = c
	}

	return LeadTimeValidation{Valid: len(violations) == 0, Violations: violations}
}
