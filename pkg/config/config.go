// Package config loads the runtime configuration for the tarot site backend.
package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is parsed from the environment after an optional .env file is loaded.
type Config struct {
	// Server
	Port               string        `env:"PORT" envDefault:"3001"`
	GinMode            string        `env:"GIN_MODE" envDefault:"debug"`
	ServerReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	ServerWriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	ServerIdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	Production         bool          `env:"PRODUCTION" envDefault:"false"`
	TrustedProxies     []string      `env:"TRUSTED_PROXIES" envSeparator:"," envDefault:"127.0.0.1,::1"`
	AllowedOrigins     []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000,https://tarotreadingbymayanov.com,https://www.tarotreadingbymayanov.com,https://mayanov-tarot.onrender.com"`

	// Logging
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogToFile     bool   `env:"LOG_TO_FILE" envDefault:"false"`
	LogDirectory  string `env:"LOG_DIRECTORY" envDefault:"logs"`
	LogJSONFormat bool   `env:"LOG_JSON" envDefault:"true"`

	// Performance
	SlowOperationThreshold time.Duration `env:"SLOW_OPERATION_THRESHOLD" envDefault:"500ms"`
	SlowQueryThreshold     time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"50ms"`

	// Locale resolution
	GeoProviderTimeout time.Duration `env:"GEO_PROVIDER_TIMEOUT" envDefault:"2500ms"`
	CountryCookieTTL   time.Duration `env:"COUNTRY_COOKIE_TTL" envDefault:"8760h"`

	// Redis country store; empty address keeps the cookie store
	RedisAddr         string        `env:"REDIS_ADDR"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisDB           int           `env:"REDIS_DB" envDefault:"0"`
	RedisConnectRetry time.Duration `env:"REDIS_CONNECT_RETRY" envDefault:"30s"`

	// Visitor sessions
	SessionTTL             time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`

	// Analytics sinks; a sink without credentials is absent
	GA4MeasurementID string        `env:"GA4_MEASUREMENT_ID"`
	GA4APISecret     string        `env:"GA4_API_SECRET"`
	GA4Endpoint      string        `env:"GA4_ENDPOINT" envDefault:"https://www.google-analytics.com/mp/collect"`
	MetaPixelID      string        `env:"META_PIXEL_ID"`
	MetaAccessToken  string        `env:"META_ACCESS_TOKEN"`
	MetaGraphURL     string        `env:"META_GRAPH_URL" envDefault:"https://graph.facebook.com/v18.0"`
	SinkQueueSize    int           `env:"SINK_QUEUE_SIZE" envDefault:"1024"`
	SinkWorkers      int           `env:"SINK_WORKERS" envDefault:"2"`
	SinkTimeout      time.Duration `env:"SINK_TIMEOUT" envDefault:"5s"`

	// Event ledger database: file path for sqlite3, libsql:// URL for Turso
	DatabaseURL       string        `env:"DATABASE_URL" envDefault:"file:data/events.db?_journal_mode=WAL"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"3"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Admin
	AdminUsersFile string        `env:"ADMIN_USERS_FILE" envDefault:"data/admin_users.csv"`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// Email
	ResendAPIKey  string `env:"RESEND_API_KEY"`
	EmailFrom     string `env:"ADMIN_EMAIL_FROM" envDefault:"noreply@tarotreadingbymayanov.com"`
	EmailFromName string `env:"ADMIN_EMAIL_FROM_NAME" envDefault:"Mayanov Tarot"`
	AdminURL      string `env:"ADMIN_URL" envDefault:"https://tarotreadingbymayanov.com/admin"`
}

// Load reads a .env file when present, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration overrides from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.GeoProviderTimeout <= 0 {
		return fmt.Errorf("invalid GEO_PROVIDER_TIMEOUT: %s (must be positive)", c.GeoProviderTimeout)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("invalid SESSION_TTL: %s (must be positive)", c.SessionTTL)
	}
	if c.SinkQueueSize < 1 || c.SinkWorkers < 1 {
		return fmt.Errorf("SINK_QUEUE_SIZE and SINK_WORKERS must be at least 1")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("invalid TOKEN_TTL: %s (must be positive)", c.TokenTTL)
	}
	if c.Production && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if (c.GA4MeasurementID == "") != (c.GA4APISecret == "") {
		return fmt.Errorf("GA4_MEASUREMENT_ID and GA4_API_SECRET must be set together")
	}
	if (c.MetaPixelID == "") != (c.MetaAccessToken == "") {
		return fmt.Errorf("META_PIXEL_ID and META_ACCESS_TOKEN must be set together")
	}
	for _, proxy := range c.TrustedProxies {
		proxy = strings.TrimSpace(proxy)
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", proxy)
			}
		}
	}
	for _, origin := range c.AllowedOrigins {
		u, err := url.Parse(strings.TrimSpace(origin))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid ALLOWED_ORIGINS entry %q", origin)
		}
	}
	return nil
}

// GA4Enabled reports whether the analytics sink is configured.
func (c *Config) GA4Enabled() bool { return c.GA4MeasurementID != "" && c.GA4APISecret != "" }

// MetaEnabled reports whether the ad-pixel sink is configured.
func (c *Config) MetaEnabled() bool { return c.MetaPixelID != "" && c.MetaAccessToken != "" }

// RedisEnabled reports whether the redis country store replaces the cookie store.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// LogOverrides prints every setting that differs from its default, the way
// operators expect to see them at boot. Secrets are masked.
func (c *Config) LogOverrides() {
	defaults := &Config{}
	_ = env.ParseWithOptions(defaults, env.Options{Environment: map[string]string{}})

	check := func(key string, val, def any, secret bool) {
		if fmt.Sprint(val) == fmt.Sprint(def) {
			return
		}
		if secret {
			log.Printf("Config override: %s=****", key)
			return
		}
		log.Printf("Config override: %s=%v (default: %v)", key, val, def)
	}

	check("PORT", c.Port, defaults.Port, false)
	check("TRUSTED_PROXIES", c.TrustedProxies, defaults.TrustedProxies, false)
	check("LOG_LEVEL", c.LogLevel, defaults.LogLevel, false)
	check("GEO_PROVIDER_TIMEOUT", c.GeoProviderTimeout, defaults.GeoProviderTimeout, false)
	check("SESSION_TTL", c.SessionTTL, defaults.SessionTTL, false)
	check("REDIS_ADDR", c.RedisAddr, defaults.RedisAddr, false)
	check("DATABASE_URL", c.DatabaseURL, defaults.DatabaseURL, true)
	check("ADMIN_USERS_FILE", c.AdminUsersFile, defaults.AdminUsersFile, false)
	check("JWT_SECRET", c.JWTSecret, defaults.JWTSecret, true)
	check("GA4_MEASUREMENT_ID", c.GA4MeasurementID, defaults.GA4MeasurementID, false)
	check("META_PIXEL_ID", c.MetaPixelID, defaults.MetaPixelID, false)
}
