package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMapsKey   = "maps-test-key"
	testGeminiKey = "gemini-test-key"
)

func setRequiredKeys(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_MAPS_API_KEY", testMapsKey)
	t.Setenv("GEMINI_API_KEY", testGeminiKey)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredKeys(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testMapsKey, cfg.GoogleMapsAPIKey)
	assert.Equal(t, testGeminiKey, cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-pro", cfg.GeminiModel)
	assert.Equal(t, 10*time.Second, cfg.PlacesTimeout)
	assert.Equal(t, 10*time.Second, cfg.WeatherTimeout)
	assert.Equal(t, 30*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.ReportPublishingEnabled())
	assert.Equal(t, "infrastructure-reports", cfg.KafkaTopic)
	assert.Empty(t, cfg.MetricsPushURL)
	assert.Equal(t, "infrascan", cfg.MetricsJobName)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequiredKeys(t)
	t.Setenv("GEMINI_MODEL", "gemini-1.5-flash")
	t.Setenv("PLACES_TIMEOUT", "3s")
	t.Setenv("WEATHER_TIMEOUT", "4s")
	t.Setenv("GEMINI_TIMEOUT", "45s")
	t.Setenv("HTTP_RETRY_BACKOFF", "1s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("REPORT_KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("REPORT_KAFKA_TOPIC", "custom-reports")
	t.Setenv("METRICS_PUSH_URL", "http://pushgateway:9091")
	t.Setenv("METRICS_JOB_NAME", "infrascan-dev")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	assert.Equal(t, 3*time.Second, cfg.PlacesTimeout)
	assert.Equal(t, 4*time.Second, cfg.WeatherTimeout)
	assert.Equal(t, 45*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.ReportPublishingEnabled())
	assert.Equal(t, "custom-reports", cfg.KafkaTopic)
	assert.Equal(t, "http://pushgateway:9091", cfg.MetricsPushURL)
	assert.Equal(t, "infrascan-dev", cfg.MetricsJobName)
}

func TestLoad_MissingMapsKey(t *testing.T) {
	t.Setenv("GOOGLE_MAPS_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", testGeminiKey)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_MAPS_API_KEY")
}

func TestLoad_MissingGeminiKey(t *testing.T) {
	t.Setenv("GOOGLE_MAPS_API_KEY", testMapsKey)
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoad_InvalidTimeout(t *testing.T) {
	setRequiredKeys(t)
	t.Setenv("PLACES_TIMEOUT", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLACES_TIMEOUT")
}

func TestLoad_NegativeTimeout(t *testing.T) {
	setRequiredKeys(t)
	t.Setenv("GEMINI_TIMEOUT", "-5s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_TIMEOUT")
}

func TestLoad_BrokerListTrimmed(t *testing.T) {
	setRequiredKeys(t)
	t.Setenv("REPORT_KAFKA_BROKERS", " broker1:9092 ,, broker2:9092 ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}
