package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNewsKey = "news-test-key"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Empty(t, cfg.Render)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "https://covid.ourworldindata.org/data/owid-covid-data.csv", cfg.DataURL)
	assert.Equal(t, 2*time.Minute, cfg.DataTimeout)
	assert.False(t, cfg.NewsEnabled())
	assert.Equal(t, "https://newsapi.org", cfg.NewsBaseURL)
	assert.Equal(t, 10*time.Second, cfg.NewsTimeout)
	assert.InDelta(t, 30.0, cfg.NewsRatePerMinute, 1e-9)
	assert.Equal(t, 4, cfg.NewsConcurrency)
	assert.Equal(t, 6*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 256, cfg.CacheSize)
	assert.Equal(t, CacheBackendMemory, cfg.CacheBackend)
	assert.Equal(t, "@daily", cfg.RefreshSchedule)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "covid-country-snapshots", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATA_URL", "file:///tmp/owid.csv")
	t.Setenv("NEWS_API_KEY", testNewsKey)
	t.Setenv("NEWS_RATE_PER_MINUTE", "0")
	t.Setenv("NEWS_CONCURRENCY", "2")
	t.Setenv("CACHE_TTL", "15m")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REFRESH_SCHEDULE", "0 */6 * * *")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "file:///tmp/owid.csv", cfg.DataURL)
	assert.True(t, cfg.NewsEnabled())
	assert.Equal(t, testNewsKey, cfg.NewsAPIKey)
	assert.Zero(t, cfg.NewsRatePerMinute)
	assert.Equal(t, 2, cfg.NewsConcurrency)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, CacheBackendRedis, cfg.CacheBackend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "0 */6 * * *", cfg.RefreshSchedule)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("NEWS_API_KEY", "from-env")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load([]string{"--news-api-key", testNewsKey, "--http-addr", ":7070", "--render", "Europe"})
	require.NoError(t, err)

	assert.Equal(t, testNewsKey, cfg.NewsAPIKey)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "Europe", cfg.Render)
}

func TestLoad_Help(t *testing.T) {
	_, err := Load([]string{"--help"})
	require.Error(t, err)
	assert.ErrorIs(t, err, pflag.ErrHelp)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		message string
	}{
		{"unknown flag", nil, []string{"--nope"}, "parse flags"},
		{"bad shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "soon"}, nil, "SHUTDOWN_TIMEOUT"},
		{"negative shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "-1s"}, nil, "SHUTDOWN_TIMEOUT"},
		{"zero data timeout", map[string]string{"DATA_TIMEOUT": "0s"}, nil, "DATA_TIMEOUT"},
		{"bad news timeout", map[string]string{"NEWS_TIMEOUT": "-1s"}, nil, "NEWS_TIMEOUT"},
		{"bad cache ttl", map[string]string{"CACHE_TTL": "forever"}, nil, "CACHE_TTL"},
		{"bad concurrency", map[string]string{"NEWS_CONCURRENCY": "0"}, nil, "NEWS_CONCURRENCY"},
		{"bad cache size", map[string]string{"CACHE_SIZE": "lots"}, nil, "CACHE_SIZE"},
		{"negative rate", map[string]string{"NEWS_RATE_PER_MINUTE": "-5"}, nil, "NEWS_RATE_PER_MINUTE"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, nil, "LOG_FORMAT"},
		{"unknown cache backend", map[string]string{"CACHE_BACKEND": "memcached"}, nil, "CACHE_BACKEND"},
		{"redis without address", map[string]string{"CACHE_BACKEND": "redis"}, nil, "REDIS_ADDR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
