package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/adapter/export"
	"github.com/couchcryptid/storm-exposure/internal/adapter/hurdat2"
	"github.com/couchcryptid/storm-exposure/internal/adapter/pointfile"
	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"
)

type summary struct {
	RunID    string
	Storms   int
	Failed   int
	Records  int
	Filtered int
	Elapsed  time.Duration
}

type stormResult struct {
	model   *exposure.Model
	records []domain.ExposureRecord
}

func run(ctx context.Context, o options, logger *slog.Logger) (summary, error) {
	start := time.Now()
	sum := summary{RunID: uuid.NewString()}
	logger = logger.With("run_id", sum.RunID)

	params, err := o.params()
	if err != nil {
		return sum, err
	}
	points, err := pointfile.Load(o.pointsPath)
	if err != nil {
		return sum, err
	}
	storms, err := selectStorms(o)
	if err != nil {
		return sum, err
	}
	logger.Info("batch starting",
		"storms", len(storms),
		"points", len(points),
		"threshold", params.Threshold.String(),
		"min_duration_h", o.minDuration,
	)

	evaluator, err := exposure.NewEvaluator(params,
		exposure.WithWorkers(o.workers),
		exposure.WithCache(exposure.NewModelCache(len(storms))),
		exposure.WithLogger(logger),
	)
	if err != nil {
		return sum, err
	}

	results := make([]*stormResult, len(storms))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.stormWorkers)
	for i, s := range storms {
		g.Go(func() error {
			res, err := evaluateStorm(gctx, logger, evaluator, s, points, o.stormTimeout, o.envelopes != "")
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("storm skipped", "storm_id", s.ID, "name", s.Name, "error", err)
				mu.Lock()
				sum.Failed++
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	var records []domain.ExposureRecord
	var models []*exposure.Model
	for _, res := range results {
		if res == nil {
			continue
		}
		sum.Storms++
		if res.model != nil {
			models = append(models, res.model)
		}
		kept := filterMinDuration(res.records, o.minDuration)
		sum.Filtered += len(res.records) - len(kept)
		records = append(records, kept...)
	}
	sum.Records = len(records)

	if err := writeOutputs(o, records, models); err != nil {
		return sum, err
	}
	sum.Elapsed = time.Since(start)
	return sum, nil
}

func selectStorms(o options) ([]hurdat2.Storm, error) {
	all, err := hurdat2.ParseFile(o.hurdat2Path)
	if err != nil {
		return nil, err
	}
	if len(o.storms) == 0 {
		return all, nil
	}
	out := make([]hurdat2.Storm, 0, len(o.storms))
	for _, key := range o.storms {
		s, err := hurdat2.Lookup(all, key)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func evaluateStorm(ctx context.Context, logger *slog.Logger, e *exposure.Evaluator, s hurdat2.Storm, points []domain.QueryPoint, timeout time.Duration, wantModel bool) (*stormResult, error) {
	track, stats, err := hurdat2.Clean(s)
	if err != nil {
		return nil, err
	}
	if stats.Dropped() > 0 || s.Skipped > 0 {
		logger.Debug("storm cleaned", "storm_id", s.ID, "dropped", stats.Dropped(), "unparsed", s.Skipped)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	records, err := e.Evaluate(ctx, track, points)
	if err != nil {
		return nil, err
	}
	res := &stormResult{records: records}
	if wantModel {
		// Served from the evaluator's cache.
		if res.model, err = e.Model(ctx, track); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// filterMinDuration keeps records with at least minHours of exposure. A zero
// minimum keeps everything.
func filterMinDuration(records []domain.ExposureRecord, minHours float64) []domain.ExposureRecord {
	if minHours <= 0 {
		return records
	}
	out := make([]domain.ExposureRecord, 0, len(records))
	for _, r := range records {
		if r.DurationHours >= minHours {
			out = append(out, r)
		}
	}
	return out
}

func writeOutputs(o options, records []domain.ExposureRecord, models []*exposure.Model) error {
	var errs []error
	if o.outCSV != "" {
		errs = append(errs, writeFile(o.outCSV, func(f *os.File) error {
			w := export.NewCSVWriter(f)
			if err := w.Write(records...); err != nil {
				return err
			}
			return w.Flush()
		}))
	}
	if o.outGeoJSON != "" {
		errs = append(errs, writeFile(o.outGeoJSON, func(f *os.File) error {
			fc, err := export.RecordCollection(records)
			if err != nil {
				return err
			}
			return export.WriteGeoJSON(f, fc)
		}))
	}
	if o.envelopes != "" {
		errs = append(errs, writeFile(o.envelopes, func(f *os.File) error {
			fc := geojson.NewFeatureCollection()
			for _, m := range models {
				fc.Features = append(fc.Features, export.ModelCollection(m).Features...)
			}
			return export.WriteGeoJSON(f, fc)
		}))
	}
	return errors.Join(errs...)
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
