package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseWith(t *testing.T, vars map[string]string) *Config {
	t.Helper()
	cfg := &Config{}
	require.NoError(t, env.ParseWithOptions(cfg, env.Options{Environment: vars}))
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := parseWith(t, map[string]string{})

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, 2500*time.Millisecond, cfg.GeoProviderTimeout)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Len(t, cfg.AllowedOrigins, 5)
	assert.Equal(t, []string{"127.0.0.1", "::1"}, cfg.TrustedProxies)
	assert.Contains(t, cfg.AllowedOrigins, "https://tarotreadingbymayanov.com")
	assert.False(t, cfg.GA4Enabled())
	assert.False(t, cfg.MetaEnabled())
	assert.False(t, cfg.RedisEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestOverrides(t *testing.T) {
	cfg := parseWith(t, map[string]string{
		"PORT":                 "9000",
		"GEO_PROVIDER_TIMEOUT": "1s",
		"REDIS_ADDR":           "localhost:6379",
		"GA4_MEASUREMENT_ID":   "G-TEST",
		"GA4_API_SECRET":       "secret",
		"ALLOWED_ORIGINS":      "https://a.example,https://b.example",
		"TRUSTED_PROXIES":      "10.0.0.0/8,172.17.0.1",
	})

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, time.Second, cfg.GeoProviderTimeout)
	assert.True(t, cfg.RedisEnabled())
	assert.True(t, cfg.GA4Enabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8", "172.17.0.1"}, cfg.TrustedProxies)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"half configured ga4", map[string]string{"GA4_MEASUREMENT_ID": "G-TEST"}},
		{"half configured pixel", map[string]string{"META_ACCESS_TOKEN": "token"}},
		{"production without jwt secret", map[string]string{"PRODUCTION": "true"}},
		{"zero provider timeout", map[string]string{"GEO_PROVIDER_TIMEOUT": "0s"}},
		{"bad origin", map[string]string{"ALLOWED_ORIGINS": "not-a-url"}},
		{"bad proxy", map[string]string{"TRUSTED_PROXIES": "proxy.internal"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, parseWith(t, tt.vars).Validate())
		})
	}
}
