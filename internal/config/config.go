package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/couchcryptid/storm-exposure/internal/observability"
	"github.com/goccy/go-yaml"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Exposure model configuration.
	Exposure          exposure.Params
	ParamsFile        string
	Workers           int
	StormTimeout      time.Duration
	EnvelopeCacheSize int
	QueryPointsPath   string

	Tracing observability.TracingConfig
}

// Load reads configuration from environment variables, applying defaults where unset.
// Exposure parameters start from the model defaults, are overlaid by
// EXPOSURE_PARAMS_FILE when set, and finally by individual EXPOSURE_* variables.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	paramsFile := os.Getenv("EXPOSURE_PARAMS_FILE")
	params := exposure.DefaultParams()
	if paramsFile != "" {
		if params, err = LoadParamsFile(paramsFile, params); err != nil {
			return nil, err
		}
	}
	if params, err = applyParamEnv(params); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	stormTimeout, err := parseDuration("EXPOSURE_STORM_TIMEOUT", "2m")
	if err != nil {
		return nil, err
	}

	workers, err := parseInt("EXPOSURE_WORKERS", runtime.GOMAXPROCS(0))
	if err != nil || workers < 1 {
		return nil, errors.New("invalid EXPOSURE_WORKERS")
	}

	cacheSize, err := parseInt("ENVELOPE_CACHE_SIZE", 64)
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid ENVELOPE_CACHE_SIZE")
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "storm-tracks"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "storm-exposure"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storm-exposure"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		Exposure:          params,
		ParamsFile:        paramsFile,
		Workers:           workers,
		StormTimeout:      stormTimeout,
		EnvelopeCacheSize: cacheSize,
		QueryPointsPath:   os.Getenv("QUERY_POINTS_PATH"),

		Tracing: observability.TracingConfigFromEnv(),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// LoadParamsFile overlays the YAML document at path onto base. Keys absent
// from the file keep their base values.
func LoadParamsFile(path string, base exposure.Params) (exposure.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read params file: %w", err)
	}
	p := base
	if err := yaml.Unmarshal(data, &p); err != nil {
		return base, fmt.Errorf("parse params file %s: %w", path, err)
	}
	return p, nil
}

func applyParamEnv(p exposure.Params) (exposure.Params, error) {
	if s := os.Getenv("EXPOSURE_ALPHA"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return p, errors.New("invalid EXPOSURE_ALPHA")
		}
		p.Alpha = v
	}
	if s := os.Getenv("EXPOSURE_WIND_THRESHOLD"); s != "" {
		th, err := domain.ParseThreshold(s)
		if err != nil {
			return p, errors.New("invalid EXPOSURE_WIND_THRESHOLD")
		}
		p.Threshold = th
	}
	if s := os.Getenv("EXPOSURE_INTERVAL"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return p, errors.New("invalid EXPOSURE_INTERVAL")
		}
		p.Interval = d
	}
	if s := os.Getenv("EXPOSURE_GAP_THRESHOLD"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, errors.New("invalid EXPOSURE_GAP_THRESHOLD")
		}
		p.GapThreshold = n
	}
	if s := os.Getenv("EXPOSURE_EDGE_BUFFER_DEG"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return p, errors.New("invalid EXPOSURE_EDGE_BUFFER_DEG")
		}
		p.EdgeBufferDeg = v
	}
	if s := os.Getenv("EXPOSURE_FALLBACK"); s != "" {
		p.Fallback = exposure.FallbackFootprint(s)
	}
	if s := os.Getenv("EXPOSURE_INSIDE_ONLY"); s != "" {
		p.InsideOnly = s == "true"
	}
	return p, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
