package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/astraljournal/lunarlog/internal/upstream"
)

// Config represents the runtime configuration for the lunarlog backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Upstream    UpstreamConfig    `mapstructure:"upstream"`
	Auth        AuthConfig        `mapstructure:"auth"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// UpstreamConfig groups the third-party API clients.
type UpstreamConfig struct {
	Astronomy UpstreamAPIConfig `mapstructure:"astronomy"`
	Tarot     UpstreamAPIConfig `mapstructure:"tarot"`
}

// UpstreamAPIConfig describes one third-party API endpoint.
type UpstreamAPIConfig struct {
	BaseURL      string          `mapstructure:"base_url"`
	APIKeyHeader string          `mapstructure:"api_key_header"`
	APIKey       string          `mapstructure:"api_key"`
	Timeout      time.Duration   `mapstructure:"timeout"`
	Quirks       upstream.Quirks `mapstructure:"quirks"`
}

// AuthConfig captures authentication settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// RateLimitConfig controls the per-client request budget.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	// Store selects where counters live: "memory" or "database".
	Store string `mapstructure:"store"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MaintenanceConfig controls the background cleanup jobs.
type MaintenanceConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// MoonRetentionDays is how long stale astronomical rows are kept before
	// being purged.
	MoonRetentionDays int    `mapstructure:"moon_retention_days"`
	Schedule          string `mapstructure:"schedule"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("LUNARLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate rejects configurations the server cannot start with. Missing or
// malformed upstream and signing settings are startup-fatal rather than
// surfacing later as broken requests.
func (c *Config) Validate() error {
	if c.Auth.JWT.Secret == "" {
		return errors.New("config: auth.jwt.secret is required")
	}
	if strings.TrimSpace(c.Upstream.Astronomy.BaseURL) == "" {
		return errors.New("config: upstream.astronomy.base_url is required")
	}
	if strings.TrimSpace(c.Upstream.Tarot.BaseURL) == "" {
		return errors.New("config: upstream.tarot.base_url is required")
	}
	if c.Upstream.Astronomy.APIKeyHeader != "" && c.Upstream.Astronomy.APIKey == "" {
		return errors.New("config: upstream.astronomy.api_key is required when api_key_header is set")
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/lunarlog.sqlite")

	v.SetDefault("upstream.astronomy.api_key_header", "X-Api-Key")
	v.SetDefault("upstream.astronomy.timeout", "15s")
	v.SetDefault("upstream.tarot.timeout", "15s")
	v.SetDefault("upstream.tarot.quirks.retry_get_as_post", []string{"/yesno"})

	v.SetDefault("auth.jwt.issuer", "lunarlog")
	v.SetDefault("auth.jwt.access_token_ttl", "24h")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.store", "memory")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.moon_retention_days", 7)
	v.SetDefault("maintenance.schedule", "@daily")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
