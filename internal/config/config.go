package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Live sample ingestion.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSampleTopic   string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Refresh and rendering.
	RefreshInterval time.Duration
	DefaultMetric   domain.MetricKind
	TextureWidth    int
	TextureHeight   int
	ViewportWidth   int
	ViewportHeight  int
	FrameRate       int
	SyntheticSeed   int64

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Tracing.
	TracingEnabled  bool
	TracingExporter string
	OTLPEndpoint    string
}

// FrameInterval is the render loop period derived from FrameRate.
func (c *Config) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.FrameRate)
}

// Load reads configuration from environment variables, applying defaults where unset.
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

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}

	defaultMetric, err := domain.ParseMetricKind(sharedcfg.EnvOrDefault("DEFAULT_METRIC", "aqi"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_METRIC: %w", err)
	}

	textureWidth, err := parseBoundedInt("TEXTURE_WIDTH", 1024, 8192)
	if err != nil {
		return nil, err
	}
	textureHeight, err := parseBoundedInt("TEXTURE_HEIGHT", 512, 4096)
	if err != nil {
		return nil, err
	}
	viewportWidth, err := parseBoundedInt("VIEWPORT_WIDTH", 960, 8192)
	if err != nil {
		return nil, err
	}
	viewportHeight, err := parseBoundedInt("VIEWPORT_HEIGHT", 540, 8192)
	if err != nil {
		return nil, err
	}
	frameRate, err := parseBoundedInt("FRAME_RATE", 30, 240)
	if err != nil {
		return nil, err
	}

	seed, err := strconv.ParseInt(sharedcfg.EnvOrDefault("SYNTHETIC_SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid SYNTHETIC_SEED")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSampleTopic:   sharedcfg.EnvOrDefault("KAFKA_SAMPLE_TOPIC", "geo-samples"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "geo-heat-overlay"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		RefreshInterval: refreshInterval,
		DefaultMetric:   defaultMetric,
		TextureWidth:    textureWidth,
		TextureHeight:   textureHeight,
		ViewportWidth:   viewportWidth,
		ViewportHeight:  viewportHeight,
		FrameRate:       frameRate,
		SyntheticSeed:   seed,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		TracingEnabled:  os.Getenv("TRACING_ENABLED") == "true",
		TracingExporter: strings.ToLower(sharedcfg.EnvOrDefault("TRACING_EXPORTER", "stdout")),
		OTLPEndpoint:    os.Getenv("OTLP_ENDPOINT"),
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaSampleTopic == "" {
		return nil, errors.New("KAFKA_SAMPLE_TOPIC is required when KAFKA_ENABLED is true")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	switch cfg.TracingExporter {
	case "stdout", "otlp", "otlpgrpc":
	default:
		return nil, fmt.Errorf("invalid TRACING_EXPORTER %q", cfg.TracingExporter)
	}

	return cfg, nil
}

func parsePositiveDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parseBoundedInt(name string, def, max int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > max {
		return 0, fmt.Errorf("invalid %s: must be between 1 and %d", name, max)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
