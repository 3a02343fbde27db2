package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"PORT":          "",
		"CURRENCY":      "",
		"STOCK_BACKEND": "",
		"SEED_ITEMS":    "",
		"REDIS_URL":     "",
		"LANE_ID":       "",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "lane-1", cfg.LaneID)
	require.Equal(t, "€", cfg.Currency)
	require.Equal(t, StockBackendMemory, cfg.StockBackend)
	require.Equal(t, 10, cfg.SeedItems)
	require.True(t, cfg.MetricsEnabled)
	require.Equal(t, 30*time.Second, cfg.BreakerOpenFor)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"PORT":                  ":9090",
		"CURRENCY":              "IDR",
		"STOCK_BACKEND":         "Redis",
		"REDIS_URL":             "redis://localhost:6379/0",
		"SEED_ITEMS":            "25",
		"SEED_RANDOM":           "42",
		"CORS_ALLOWED_ORIGINS":  "http://a.test, ,http://b.test",
		"OBS_ENABLE_TRACING":    "yes",
		"BREAKER_OPEN_FOR":      "5s",
		"BREAKER_FAILURE_RATIO": "0.25",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, "IDR", cfg.Currency)
	require.Equal(t, StockBackendRedis, cfg.StockBackend)
	require.Equal(t, 25, cfg.SeedItems)
	require.Equal(t, int64(42), cfg.SeedRandom)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	require.True(t, cfg.TracingEnabled)
	require.Equal(t, 5*time.Second, cfg.BreakerOpenFor)
	require.Equal(t, 0.25, cfg.BreakerFailureRatio)
	require.Equal(t, 10, cfg.BreakerMinRequests)
}

func TestLoadValidation(t *testing.T) {
	_, err := LoadForTests(map[string]string{"STOCK_BACKEND": "redis", "REDIS_URL": ""})
	require.Error(t, err)

	_, err = LoadForTests(map[string]string{"STOCK_BACKEND": "postgres"})
	require.Error(t, err)

	_, err = LoadForTests(map[string]string{"STOCK_BACKEND": "", "SEED_ITEMS": "-1"})
	require.Error(t, err)
}
