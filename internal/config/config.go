package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Defaults for the NOAA open-data bucket.
const (
	DefaultBucket = "noaa-nexrad-level2"
	DefaultRegion = "us-east-1"
)

// Config holds all service settings, populated from environment variables.
// Per-run query parameters (station, time range, field, azimuth) come from
// CLI flags instead; see cmd/composite.
type Config struct {
	Bucket string
	Region string

	LogLevel  string
	LogFormat string

	// MetricsAddr enables the /healthz, /readyz and /metrics HTTP server
	// during a run when non-empty. Empty disables it.
	MetricsAddr     string
	ShutdownTimeout time.Duration

	// ErrorPolicy controls per-file read/decode failures: "skip" or "abort".
	ErrorPolicy string
	// DecodeMode selects the archive decode entry point: "generic" or "native".
	DecodeMode string

	// Kafka profile sink configuration.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	kafkaTopic := os.Getenv("KAFKA_TOPIC")
	kafkaEnabled := kafkaTopic != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		Bucket:          envOrDefault("NEXRAD_BUCKET", DefaultBucket),
		Region:          envOrDefault("NEXRAD_BUCKET_REGION", DefaultRegion),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		ShutdownTimeout: shutdownTimeout,
		ErrorPolicy:     envOrDefault("EXTRACT_ERROR_POLICY", "skip"),
		DecodeMode:      envOrDefault("DECODE_MODE", "generic"),
		KafkaBrokers:    parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:      kafkaTopic,
		KafkaEnabled:    kafkaEnabled,
	}

	if cfg.Bucket == "" {
		return nil, errors.New("NEXRAD_BUCKET is required")
	}
	if cfg.ErrorPolicy != "skip" && cfg.ErrorPolicy != "abort" {
		return nil, fmt.Errorf("invalid EXTRACT_ERROR_POLICY %q (want skip or abort)", cfg.ErrorPolicy)
	}
	if cfg.DecodeMode != "generic" && cfg.DecodeMode != "native" {
		return nil, fmt.Errorf("invalid DECODE_MODE %q (want generic or native)", cfg.DecodeMode)
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_TOPIC is set but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
