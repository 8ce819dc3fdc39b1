package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all CLI settings, populated from environment variables.
type Config struct {
	// Credentials, validated before any network call is made.
	GoogleMapsAPIKey string
	GeminiAPIKey     string

	GeminiModel string

	// Per-service HTTP timeouts.
	PlacesTimeout  time.Duration
	WeatherTimeout time.Duration
	GeminiTimeout  time.Duration

	// Backoff before the single bounded retry on transport errors / 5xx.
	RetryBackoff time.Duration

	LogLevel  string
	LogFormat string

	// Optional report publishing. Disabled when no brokers are configured.
	KafkaBrokers []string
	KafkaTopic   string

	// Optional Pushgateway delivery for run metrics.
	MetricsPushURL string
	MetricsJobName string
}

// ReportPublishingEnabled reports whether the final report should also be
// published to Kafka.
func (c *Config) ReportPublishingEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults
// where unset. Both API credentials are required; a missing credential is a
// configuration error surfaced before any component runs.
func Load() (*Config, error) {
	placesTimeout, err := parseDuration("PLACES_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := parseDuration("WEATHER_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	geminiTimeout, err := parseDuration("GEMINI_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	retryBackoff, err := parseDuration("HTTP_RETRY_BACKOFF", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      envOrDefault("GEMINI_MODEL", "gemini-pro"),
		PlacesTimeout:    placesTimeout,
		WeatherTimeout:   weatherTimeout,
		GeminiTimeout:    geminiTimeout,
		RetryBackoff:     retryBackoff,
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "text"),
		KafkaBrokers:     parseBrokers(os.Getenv("REPORT_KAFKA_BROKERS")),
		KafkaTopic:       envOrDefault("REPORT_KAFKA_TOPIC", "infrastructure-reports"),
		MetricsPushURL:   os.Getenv("METRICS_PUSH_URL"),
		MetricsJobName:   envOrDefault("METRICS_JOB_NAME", "infrascan"),
	}

	if cfg.GoogleMapsAPIKey == "" {
		return nil, errors.New("GOOGLE_MAPS_API_KEY is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	if cfg.ReportPublishingEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("REPORT_KAFKA_TOPIC must not be empty when brokers are set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
