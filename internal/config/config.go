package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultPort                 = 9000
	defaultEnvironment          = "development"
	defaultLogLevel             = "info"
	defaultMetricsPort          = "2112"
	defaultPostgresPort         = "5432"
	defaultPostgresUser         = "postgres"
	defaultPostgresDBName       = "workouts"
	defaultRedisPort            = "6379"
	defaultWriteRateLimitPerMin = 120
	defaultExerciseCacheSizeMB  = 8
	defaultExerciseCacheTTL     = 5 * time.Minute
)

type Config struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Environment string `toml:"environment"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// prometheus
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`
	RunMigrations  bool   `toml:"run_migrations"`

	// redis, used for request rate limiting; empty host disables it
	RedisHost                   string `toml:"redis_host"`
	RedisPort                   string `toml:"redis_port"`
	WriteRateLimitAllowedPerMin int    `toml:"write_rate_limit_allowed_per_min"`

	// exercise catalog cache
	ExerciseCacheSizeMB int      `toml:"exercise_cache_size_mb"`
	ExerciseCacheTTL    Duration `toml:"exercise_cache_ttl"`

	CorsAllowedOrigins []string `toml:"cors_allowed_origins"`
	MCPEnabled         bool     `toml:"mcp_enabled"`
}

// Duration lets TOML values like "5m" decode into a time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}

	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Load reads the TOML file at path and returns the section for env,
// with defaults applied for unset values.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return fromToml(&t, env)
}

// Parse is like Load but decodes the given TOML content.
func Parse(env, content string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(content, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return fromToml(&t, env)
}

func fromToml(t *Toml, env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Environment == "" {
		c.Environment = defaultEnvironment
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.PrometheusMetricsPort == "" {
		c.PrometheusMetricsPort = defaultMetricsPort
	}
	if c.PostgresPort == "" {
		c.PostgresPort = defaultPostgresPort
	}
	if c.PostgresUser == "" {
		c.PostgresUser = defaultPostgresUser
	}
	if c.PostgresDBName == "" {
		c.PostgresDBName = defaultPostgresDBName
	}
	if c.RedisPort == "" {
		c.RedisPort = defaultRedisPort
	}
	if c.WriteRateLimitAllowedPerMin == 0 {
		c.WriteRateLimitAllowedPerMin = defaultWriteRateLimitPerMin
	}
	if c.ExerciseCacheSizeMB == 0 {
		c.ExerciseCacheSizeMB = defaultExerciseCacheSizeMB
	}
	if c.ExerciseCacheTTL.Duration == 0 {
		c.ExerciseCacheTTL.Duration = defaultExerciseCacheTTL
	}
}

func (c *Config) validate() error {
	if c.PostgresHost == "" {
		return errors.New("postgres_host must be set")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.WriteRateLimitAllowedPerMin < 0 {
		return fmt.Errorf("invalid write rate limit: %d", c.WriteRateLimitAllowedPerMin)
	}
	return nil
}

// RateLimitEnabled reports whether a redis instance is configured for rate limiting.
func (c *Config) RateLimitEnabled() bool {
	return c.RedisHost != ""
}
