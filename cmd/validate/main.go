// Command validate performs end-to-end integrity checks on a HURDAT2 file and
// the exposure model built from it: parse coverage, track cleaning, envelope
// geometry, lead-time consistency, and (optionally) an exported exposure CSV.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -hurdat2 data/hurdat2-1851-2023.txt \
//	  -storms AL092021,AL122005 \
//	  -points data/tl_2019_22_tract_centroids.csv \
//	  -exposure-csv out/exposure.csv
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/adapter/export"
	"github.com/couchcryptid/storm-exposure/internal/adapter/hurdat2"
	"github.com/couchcryptid/storm-exposure/internal/adapter/pointfile"
	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/couchcryptid/storm-exposure/internal/geometry"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
)

// Records carry a processing timestamp; pin it so repeated runs agree.
var processedAt = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

// durationTolerance absorbs float noise when comparing hour sums.
const durationTolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	hurdat2Path string
	storms      []string
	pointsPath  string
	exposureCSV string
	threshold   string
}

func main() {
	var o options
	var storms string
	flag.StringVar(&o.hurdat2Path, "hurdat2", "", "path to a HURDAT2 best-track file")
	flag.StringVar(&storms, "storms", "", "comma-separated storm ids or \"NAME YEAR\" keys; empty checks every storm")
	flag.StringVar(&o.pointsPath, "points", "", "optional query points to evaluate against each storm")
	flag.StringVar(&o.exposureCSV, "exposure-csv", "", "optional exposure CSV to check")
	flag.StringVar(&o.threshold, "threshold", "64kt", "wind radii threshold")
	flag.Parse()

	if o.hurdat2Path == "" {
		flag.Usage()
		os.Exit(1)
	}
	for _, s := range strings.Split(storms, ",") {
		if s = strings.TrimSpace(s); s != "" {
			o.storms = append(o.storms, s)
		}
	}

	os.Exit(run(o, os.Stdout))
}

func run(o options, out io.Writer) int {
	domain.SetClock(clockwork.NewFakeClockAt(processedAt))
	defer domain.SetClock(nil)

	fmt.Fprintln(out, "=== Storm Exposure Integrity Validation ===")
	fmt.Fprintln(out)

	params := exposure.DefaultParams()
	th, err := domain.ParseThreshold(o.threshold)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	params.Threshold = th

	all, err := hurdat2.ParseFile(o.hurdat2Path)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load HURDAT2: %v\n", err)
		return 1
	}
	storms, err := selectStorms(all, o.storms)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	var points []domain.QueryPoint
	if o.pointsPath != "" {
		if points, err = pointfile.Load(o.pointsPath); err != nil {
			fmt.Fprintf(out, "FATAL: load points: %v\n", err)
			return 1
		}
	}

	cleaning, tracks := validateCleaning(storms)
	models, envelopes := validateEnvelopes(tracks, params)
	phases := []*phase{
		validateParse(storms),
		cleaning,
		envelopes,
		validateLeadTimes(tracks),
	}

	var records []domain.ExposureRecord
	if len(points) > 0 {
		evaluator, err := exposure.NewEvaluator(params)
		if err != nil {
			fmt.Fprintf(out, "FATAL: %v\n", err)
			return 1
		}
		recPhase := &phase{name: "Exposure records"}
		for _, m := range models {
			recs, err := evaluator.Evaluate(context.Background(), m.Track, points)
			if err != nil {
				recPhase.errorf("%s: evaluate: %v", m.Track.StormID, err)
				continue
			}
			records = append(records, recs...)
		}
		checkRecords(recPhase, records)
		phases = append(phases, recPhase)
	}

	if o.exposureCSV != "" {
		phases = append(phases, validateExposureCSV(o.exposureCSV, all))
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Storms: %d checked, %d with tracks, %d with envelopes; %d records evaluated\n",
		len(storms), len(tracks), len(models), len(records))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func selectStorms(all []hurdat2.Storm, keys []string) ([]hurdat2.Storm, error) {
	if len(keys) == 0 {
		return all, nil
	}
	out := make([]hurdat2.Storm, 0, len(keys))
	for _, k := range keys {
		s, err := hurdat2.Lookup(all, k)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ── Phases ──

func validateParse(storms []hurdat2.Storm) *phase {
	p := &phase{name: "HURDAT2 parse"}
	for _, s := range storms {
		if s.Skipped > 0 {
			p.errorf("%s %s: %d unparseable data lines", s.ID, s.Name, s.Skipped)
		}
		if len(s.Observations) == 0 {
			p.errorf("%s %s: no observations", s.ID, s.Name)
		}
	}
	return p
}

func validateCleaning(storms []hurdat2.Storm) (*phase, []domain.StormTrack) {
	p := &phase{name: "Track cleaning"}
	tracks := make([]domain.StormTrack, 0, len(storms))
	for _, s := range storms {
		track, _, err := hurdat2.Clean(s)
		if err != nil {
			p.errorf("%s %s: %v", s.ID, s.Name, err)
			continue
		}
		for i := 1; i < track.Len(); i++ {
			if !track.At(i).Time.After(track.At(i - 1).Time) {
				p.errorf("%s: fix %d at %s not after previous", track.StormID, i, track.At(i).Time.Format(time.RFC3339))
			}
		}
		tracks = append(tracks, track)
	}
	return p, tracks
}

// validateEnvelopes builds a model per track. Tracks with no radii at the
// threshold are expected to have empty envelopes and are not returned.
func validateEnvelopes(tracks []domain.StormTrack, params exposure.Params) ([]*exposure.Model, *phase) {
	p := &phase{name: "Envelope geometry"}
	var models []*exposure.Model
	for _, track := range tracks {
		m, err := exposure.BuildModel(track, params)
		if err != nil {
			p.errorf("%s: build model: %v", track.StormID, err)
			continue
		}
		withRadii := slices.Contains(m.Imputed.HasRadii(), true)
		if m.Envelope.Empty() {
			if withRadii && len(m.Envelope.Segments) > 0 {
				p.errorf("%s: %d radii segments but empty envelope", track.StormID, len(m.Envelope.Segments))
			}
			continue
		}
		if !withRadii {
			p.errorf("%s: envelope built without any radii", track.StormID)
		}
		if !geometry.IsValid(m.Envelope.Geometry) {
			p.errorf("%s: envelope geometry is not valid", track.StormID)
		}
		for _, step := range m.Imputed.Steps {
			if !step.Effective.Complete() || slices.Min(step.Effective[:]) <= 0 {
				continue
			}
			o := step.Observation
			if !m.Envelope.Contains(orb.Point{o.Lon, o.Lat}) {
				p.errorf("%s: fix at %s (%.1f, %.1f) lies outside its envelope",
					track.StormID, o.Time.Format(time.RFC3339), o.Lat, o.Lon)
			}
		}
		models = append(models, m)
	}
	return models, p
}

// validateLeadTimes checks lead times measured to the end of each track.
func validateLeadTimes(tracks []domain.StormTrack) *phase {
	p := &phase{name: "Lead-time consistency"}
	for _, track := range tracks {
		v := exposure.ValidateLeadTimes(exposure.LeadTimes(track, track.End()))
		for _, msg := range v.Violations {
			p.errorf("%s: %s", track.StormID, msg)
		}
	}
	return p
}

func checkRecords(p *phase, records []domain.ExposureRecord) {
	seen := make(map[string]bool, len(records))
	for i := range records {
		r := &records[i]
		if seen[r.ID] {
			p.errorf("%s: duplicate record id", r.ID)
		}
		seen[r.ID] = true
		checkDurations(p, r.ID, r.DurationHours, r.ExposureWindowHours)
		if r.DurationHours > 0 && (r.FirstEntry == nil || r.LastExit == nil) {
			p.errorf("%s: exposed %.2fh without entry/exit times", r.ID, r.DurationHours)
		}
		if r.FirstEntry != nil && r.LastExit != nil && r.LastExit.Before(*r.FirstEntry) {
			p.errorf("%s: last exit before first entry", r.ID)
		}
		if !r.LeadTimesValid {
			p.errorf("%s: lead times invalid: %s", r.ID, strings.Join(r.LeadTimeViolations, "; "))
		}
	}
}

func checkDurations(p *phase, id string, duration, window float64) {
	if duration < 0 || math.IsNaN(duration) {
		p.errorf("%s: duration %v", id, duration)
	}
	if duration > window+durationTolerance {
		p.errorf("%s: duration %.4fh exceeds window %.4fh", id, duration, window)
	}
}

// validateExposureCSV checks an exported CSV against the record schema.
func validateExposureCSV(path string, storms []hurdat2.Storm) *phase {
	p := &phase{name: "Exposure CSV"}
	rows, err := loadCSV(path)
	if err != nil {
		p.errorf("load: %v", err)
		return p
	}
	if len(rows) == 0 {
		p.errorf("empty file")
		return p
	}
	if !slices.Equal(rows[0], export.Columns) {
		p.errorf("header mismatch: got %d columns, want %d", len(rows[0]), len(export.Columns))
		return p
	}

	col := make(map[string]int, len(export.Columns))
	for i, c := range export.Columns {
		col[c] = i
	}
	known := make(map[string]bool, len(storms))
	for _, s := range storms {
		known[s.ID] = true
	}

	seen := make(map[string]int)
	for i, row := range rows[1:] {
		line := i + 2
		id := row[col["id"]]
		if prev, ok := seen[id]; ok {
			p.errorf("line %d: id %s duplicates line %d", line, id, prev)
		}
		seen[id] = line
		if sid := row[col["storm_id"]]; !known[sid] {
			p.errorf("line %d: unknown storm %q", line, sid)
		}
		duration, err1 := strconv.ParseFloat(row[col["duration_in_envelope_hours"]], 64)
		window, err2 := strconv.ParseFloat(row[col["exposure_window_hours"]], 64)
		if err1 != nil || err2 != nil {
			p.errorf("line %d: unparseable duration or window", line)
			continue
		}
		checkDurations(p, fmt.Sprintf("line %d", line), duration, window)
	}
	return p
}

func loadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).ReadAll()
}
