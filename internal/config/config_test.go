package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/conecta",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "conecta", cfg.MetricsNamespace)
	require.True(t, cfg.MetricsEnabled)
	require.Equal(t, 5*time.Minute, cfg.PriceCacheTTL)
	require.Equal(t, 20, cfg.QuotationPageSize)
}

func TestLoadRequiredVars(t *testing.T) {
	for _, missing := range []string{"DATABASE_URL", "REDIS_URL", "JWT_SECRET"} {
		env := baseEnv()
		env[missing] = ""
		_, err := LoadForTests(env)
		require.Error(t, err, "expected error when %s is missing", missing)
	}
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["APP_ENV"] = "production"
	env["PORT"] = "9000"
	env["CORS_ALLOWED_ORIGINS"] = "https://app.conectapr.com.br, https://admin.conectapr.com.br"
	env["PRICE_CACHE_TTL"] = "30s"
	env["QUOTATION_PAGE_SIZE"] = "50"
	env["OBS_ENABLE_PROMETHEUS"] = "false"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)

	require.Equal(t, "production", cfg.AppEnv)
	require.Equal(t, []string{"https://app.conectapr.com.br", "https://admin.conectapr.com.br"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 30*time.Second, cfg.PriceCacheTTL)
	require.Equal(t, 50, cfg.QuotationPageSize)
	require.False(t, cfg.MetricsEnabled)
}

func TestLoadBadIntFallsBack(t *testing.T) {
	for _, raw := range []string{"50x", "abc", "-3", "0"} {
		env := baseEnv()
		env["QUOTATION_PAGE_SIZE"] = raw
		cfg, err := LoadForTests(env)
		require.NoError(t, err)
		require.Equal(t, 20, cfg.QuotationPageSize, "raw value %q", raw)
	}
}

func TestLoadBadDurationFallsBack(t *testing.T) {
	env := baseEnv()
	env["PRICE_CACHE_TTL"] = "not-a-duration"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, cfg.PriceCacheTTL)
}

func TestHTTPAddr(t *testing.T) {
	cases := []struct {
		port string
		want string
	}{
		{"8080", ":8080"},
		{":9000", ":9000"},
		{"", ":8080"},
	}
	for _, tc := range cases {
		cfg := &Config{Port: tc.port}
		require.Equal(t, tc.want, cfg.HTTPAddr())
	}
}
