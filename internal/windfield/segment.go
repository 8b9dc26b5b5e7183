package windfield

// DefaultGapThreshold is the number of consecutive steps without radii that
// splits a track. Smaller values fracture smooth ocean tracks; larger values
// bridge land crossings.
const DefaultGapThreshold = 5

// Segment is an inclusive index range of a track.
type Segment struct {
	ID    int `json:"id"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of steps in the segment.
func (s Segment) Len() int { return s.End - s.Start + 1 }

// SegmentIDs assigns a segment id to every step. The id starts at 1 and
// increments when a step with radii follows at least gapThreshold
// consecutive steps without.
func SegmentIDs(hasRadii []bool, gapThreshold int) []int {
	if gapThreshold < 1 {
		gapThreshold = 1
	}
	ids := make([]int, len(hasRadii))
	id, missing := 1, 0
	for i, has := range hasRadii {
		if has {
			if missing >= gapThreshold {
				id++
			}
			missing = 0
		} else {
			missing++
		}
		ids[i] = id
	}
	return ids
}

// Segments partitions the steps into contiguous, non-overlapping runs.
func Segments(hasRadii []bool, gapThreshold int) []Segment {
	ids := SegmentIDs(hasRadii, gapThreshold)
	var out []Segment
	for i, id := range ids {
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, Segment{ID: id, Start: i, End: i})
			continue
		}
		out[len(out)-1].End = i
	}
	return out
}
