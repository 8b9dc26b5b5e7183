// Command exposure-batch evaluates HURDAT2 storms against a set of query
// points and writes one exposure record per storm and point.
//
// Usage:
//
//	go run ./cmd/exposure-batch \
//	  -hurdat2 data/hurdat2-1851-2023.txt \
//	  -points data/tl_2019_22_tract_centroids.csv \
//	  -storms AL092021,"KATRINA 2005" \
//	  -min-duration 0.25 \
//	  -out-csv out/exposure.csv \
//	  -out-geojson out/exposure.geojson \
//	  -envelopes out/envelopes.geojson
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/config"
	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/couchcryptid/storm-exposure/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env.local")

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := observability.NewLogger(opts.logLevel, opts.logFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), logger)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer observability.ShutdownTracing(context.Background(), shutdownTracing, logger)

	summary, err := run(ctx, opts, logger)
	if err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
	logger.Info("batch complete",
		"run_id", summary.RunID,
		"storms", summary.Storms,
		"failed_storms", summary.Failed,
		"records", summary.Records,
		"filtered", summary.Filtered,
		"duration", summary.Elapsed,
	)
}

type options struct {
	hurdat2Path  string
	pointsPath   string
	storms       []string
	paramsFile   string
	threshold    string
	alpha        float64
	interval     time.Duration
	fallback     string
	insideOnly   bool
	minDuration  float64
	workers      int
	stormWorkers int
	stormTimeout time.Duration
	outCSV       string
	outGeoJSON   string
	envelopes    string
	logLevel     string
	logFormat    string
}

func parseFlags(args []string) (options, error) {
	var o options
	var storms string
	fs := flag.NewFlagSet("exposure-batch", flag.ContinueOnError)
	fs.StringVar(&o.hurdat2Path, "hurdat2", "", "path to a HURDAT2 best-track file")
	fs.StringVar(&o.pointsPath, "points", "", "path to query points (.csv or .geojson)")
	fs.StringVar(&storms, "storms", "", "comma-separated storm ids or \"NAME YEAR\" keys; empty evaluates every storm")
	fs.StringVar(&o.paramsFile, "params", "", "YAML file of exposure parameters")
	fs.StringVar(&o.threshold, "threshold", "", "wind radii threshold: 34kt, 50kt, or 64kt")
	fs.Float64Var(&o.alpha, "alpha", 0, "envelope alpha-shape concavity")
	fs.DurationVar(&o.interval, "interval", 0, "track interpolation step")
	fs.StringVar(&o.fallback, "fallback", "", "duration fallback footprint: coverage or envelope")
	fs.BoolVar(&o.insideOnly, "inside-only", false, "drop points outside each storm's footprint")
	fs.Float64Var(&o.minDuration, "min-duration", 0.25, "drop records with less exposure than this many hours; 0 keeps all")
	fs.IntVar(&o.workers, "workers", runtime.GOMAXPROCS(0), "concurrent point evaluations per storm")
	fs.IntVar(&o.stormWorkers, "storm-workers", 2, "storms evaluated concurrently")
	fs.DurationVar(&o.stormTimeout, "storm-timeout", 5*time.Minute, "time limit per storm")
	fs.StringVar(&o.outCSV, "out-csv", "", "write records as CSV to this path")
	fs.StringVar(&o.outGeoJSON, "out-geojson", "", "write records as GeoJSON points to this path")
	fs.StringVar(&o.envelopes, "envelopes", "", "write storm envelopes as GeoJSON to this path")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level")
	fs.StringVar(&o.logFormat, "log-format", "text", "log format: json or text")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.hurdat2Path == "" || o.pointsPath == "" {
		return o, fmt.Errorf("-hurdat2 and -points are required")
	}
	if o.outCSV == "" && o.outGeoJSON == "" && o.envelopes == "" {
		return o, fmt.Errorf("at least one of -out-csv, -out-geojson, -envelopes is required")
	}
	if o.minDuration < 0 {
		return o, fmt.Errorf("-min-duration must not be negative")
	}
	if o.stormWorkers < 1 || o.workers < 1 {
		return o, fmt.Errorf("-workers and -storm-workers must be positive")
	}
	for _, s := range strings.Split(storms, ",") {
		if s = strings.TrimSpace(s); s != "" {
			o.storms = append(o.storms, s)
		}
	}
	return o, nil
}

// params layers the YAML file and flag overrides over the model defaults.
func (o options) params() (exposure.Params, error) {
	p := exposure.DefaultParams()
	if o.paramsFile != "" {
		var err error
		if p, err = config.LoadParamsFile(o.paramsFile, p); err != nil {
			return p, err
		}
	}
	if o.threshold != "" {
		th, err := domain.ParseThreshold(o.threshold)
		if err != nil {
			return p, err
		}
		p.Threshold = th
	}
	if o.alpha > 0 {
		p.Alpha = o.alpha
	}
	if o.interval > 0 {
		p.Interval = o.interval
	}
	if o.fallback != "" {
		p.Fallback = exposure.FallbackFootprint(o.fallback)
	}
	if o.insideOnly {
		p.InsideOnly = true
	}
	return p, p.Validate()
}
