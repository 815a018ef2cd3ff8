package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	MongoURI                    string
	DatabaseName                string
	MongoServerSelectionTimeout time.Duration
	MongoConnectTimeout         time.Duration

	ConfigFile   string
	LocalStorage string
	S3Bucket     string
	S3Path       string
	AWSRegion    string
	DownloadDir  string
	FetchTimeout time.Duration
	ReportDir    string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	PushgatewayURL  string

	Quality QualityThresholds

	// Kafka alert publishing. Empty brokers disable it.
	KafkaBrokers    []string
	KafkaAlertTopic string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Query benchmark CloudWatch export. An empty namespace disables it.
	CloudWatchNamespace string
	Environment         string
}

// QualityThresholds drive alerting in the quality engine.
type QualityThresholds struct {
	MaxNullPercentage      float64
	MaxDuplicatePercentage float64
	TemperatureMin         float64
	TemperatureMax         float64
	PressureMin            float64
	PressureMax            float64
}

// DefaultQualityThresholds returns the alerting thresholds used when the
// environment does not override them.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MaxNullPercentage:      20,
		MaxDuplicatePercentage: 0.5,
		TemperatureMin:         -50,
		TemperatureMax:         60,
		PressureMin:            900,
		PressureMax:            1050,
	}
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	serverSelection, err := parseDuration("MONGO_SERVER_SELECTION_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	connect, err := parseDuration("MONGO_CONNECT_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	quality, err := loadQualityThresholds()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		MongoURI:                    sharedcfg.EnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		DatabaseName:                sharedcfg.EnvOrDefault("DATABASE_NAME", "greencoop_forecast"),
		MongoServerSelectionTimeout: serverSelection,
		MongoConnectTimeout:         connect,

		ConfigFile:   sharedcfg.EnvOrDefault("CONFIG_FILE", "config/sources_config.yaml"),
		LocalStorage: strings.TrimSpace(os.Getenv("LOCAL_STORAGE")),
		S3Bucket:     os.Getenv("S3_BUCKET"),
		S3Path:       sharedcfg.EnvOrDefault("S3_PATH", "data"),
		AWSRegion:    sharedcfg.EnvOrDefault("AWS_REGION", "eu-west-3"),
		DownloadDir:  sharedcfg.EnvOrDefault("DOWNLOAD_DIR", os.TempDir()),
		FetchTimeout: fetchTimeout,
		ReportDir:    sharedcfg.EnvOrDefault("REPORT_DIR", "logs"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),

		Quality: quality,

		KafkaBrokers:    parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "weather-quality-alerts"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		CloudWatchNamespace: os.Getenv("CLOUDWATCH_NAMESPACE"),
		Environment:         sharedcfg.EnvOrDefault("ENV", "prod"),
	}

	if cfg.MongoURI == "" {
		return nil, errors.New("MONGODB_URI is required")
	}
	if cfg.DatabaseName == "" {
		return nil, errors.New("DATABASE_NAME is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.Quality.TemperatureMin >= cfg.Quality.TemperatureMax {
		return nil, errors.New("QUALITY_TEMPERATURE_MIN must be below QUALITY_TEMPERATURE_MAX")
	}
	if cfg.Quality.PressureMin >= cfg.Quality.PressureMax {
		return nil, errors.New("QUALITY_PRESSURE_MIN must be below QUALITY_PRESSURE_MAX")
	}

	return cfg, nil
}

// UseS3 reports whether batch records are read from and written to S3.
// A non-empty LOCAL_STORAGE always wins.
func (c *Config) UseS3() bool {
	return c.LocalStorage == ""
}

func loadQualityThresholds() (QualityThresholds, error) {
	q := DefaultQualityThresholds()
	fields := []struct {
		key string
		dst *float64
	}{
		{"QUALITY_MAX_NULL_PERCENTAGE", &q.MaxNullPercentage},
		{"QUALITY_MAX_DUPLICATE_PERCENTAGE", &q.MaxDuplicatePercentage},
		{"QUALITY_TEMPERATURE_MIN", &q.TemperatureMin},
		{"QUALITY_TEMPERATURE_MAX", &q.TemperatureMax},
		{"QUALITY_PRESSURE_MIN", &q.PressureMin},
		{"QUALITY_PRESSURE_MAX", &q.PressureMax},
	}
	for _, f := range fields {
		s := os.Getenv(f.key)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return q, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		*f.dst = v
	}
	if q.MaxNullPercentage < 0 || q.MaxNullPercentage > 100 {
		return q, errors.New("QUALITY_MAX_NULL_PERCENTAGE must be within [0, 100]")
	}
	if q.MaxDuplicatePercentage < 0 || q.MaxDuplicatePercentage > 100 {
		return q, errors.New("QUALITY_MAX_DUPLICATE_PERCENTAGE must be within [0, 100]")
	}
	return q, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return sharedcfg.ParseBrokers(s)
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
