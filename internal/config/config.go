// Package config provides application configuration loaded from environment
// variables (optionally layered over a YAML file) with defaults and validation.
// It centralizes settings such as server timeouts, logging, the database,
// mounted resource kinds, rate limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ConfigPathEnv names the environment variable pointing at an optional YAML file.
const ConfigPathEnv = "CONFIG_PATH"

// KnownResources lists the resource kinds this binary can mount.
var KnownResources = []string{"people", "keyboards"}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          `yaml:"enable_hsts" env:"ENABLE_HSTS" env-default:"false"`
	HSTSMaxAge time.Duration `yaml:"hsts_max_age" env:"HSTS_MAX_AGE" env-default:"4320h"`
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    `yaml:"enabled" env:"OTEL_ENABLED" env-default:"false"`
	Endpoint    string  `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	Insecure    bool    `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`
	ServiceName string  `yaml:"service_name" env:"OTEL_SERVICE_NAME" env-default:"ruser"`
	SampleRatio float64 `yaml:"sample_ratio" env:"OTEL_TRACES_SAMPLER_ARG" env-default:"1.0"`
}

// DBConfig defines the embedded database settings.
type DBConfig struct {
	Driver       string        `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"` // sqlite (pure Go) | sqlite3 (CGO)
	Path         string        `yaml:"path" env:"DB_PATH" env-default:"data/app.db"`
	MaxOpenConns int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"5"`
	BusyTimeout  time.Duration `yaml:"busy_timeout" env:"DB_BUSY_TIMEOUT" env-default:"5s"`
	SlowQuery    time.Duration `yaml:"slow_query" env:"DB_SLOW_QUERY" env-default:"200ms"`
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        `yaml:"port" env:"PORT" env-default:"3003"`
	ReadTimeout       time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" env-default:"15s"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT" env-default:"10s"`
	WriteTimeout      time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" env-default:"20s"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxHeaderBytes    int           `yaml:"max_header_bytes" env:"MAX_HEADER_BYTES" env-default:"1048576"`
	GinMode           string        `yaml:"gin_mode" env:"GIN_MODE" env-default:"release"` // debug|release|test

	// Logging / Docs
	LogLevel       string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"` // debug|info|warn|error|fatal|panic
	LogPretty      bool   `yaml:"log_pretty" env:"LOG_PRETTY" env-default:"false"`
	SwaggerEnabled bool   `yaml:"swagger_enabled" env:"SWAGGER_ENABLED" env-default:"false"`
	APIBasePath    string `yaml:"api_base_path" env:"API_BASE_PATH" env-default:"/"`

	// Storage
	DB DBConfig `yaml:"db"`

	// Resource kinds mounted by the router, e.g. "people,keyboards".
	Resources []string `yaml:"resources" env:"RESOURCES" env-separator:"," env-default:"people,keyboards"`

	// Rate limiting
	RateRPS   float64 `yaml:"rate_rps" env:"RATE_RPS" env-default:"5"`
	RateBurst int     `yaml:"rate_burst" env:"RATE_BURST" env-default:"10"`

	// Tokens charged per create; reads cost one.
	RateWriteCost int `yaml:"rate_write_cost" env:"RATE_WRITE_COST" env-default:"2"`

	// Web protection
	CORS     CORSConfig     `yaml:"cors"`
	Security SecurityConfig `yaml:"security"`

	// Idempotency
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl" env:"IDEMPOTENCY_TTL" env-default:"24h"`

	// Observability
	OTEL OTELConfig `yaml:"otel"`
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from the YAML file named by CONFIG_PATH (when set)
// and the environment, applies defaults, normalizes values, and validates the
// result. Environment variables win over file values.
func Load() (Config, error) {
	var cfg Config
	if path := strings.TrimSpace(os.Getenv(ConfigPathEnv)); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}

	cfg.normalize()
	return cfg, cfg.Validate()
}

func (cfg *Config) normalize() {
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	cfg.GinMode = strings.ToLower(strings.TrimSpace(cfg.GinMode))
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	cfg.APIBasePath = normalizeBasePath(cfg.APIBasePath)
	cfg.CORS.AllowedOrigins = cleanList(cfg.CORS.AllowedOrigins, false)
	cfg.Resources = cleanList(cfg.Resources, true)
}

// Validate reports the first invalid setting.
func (cfg Config) Validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be > 0")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite", "sqlite3":
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, sqlite3")
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if cfg.DB.MaxOpenConns < 1 {
		return errors.New("DB_MAX_OPEN_CONNS must be >= 1")
	}
	if cfg.DB.BusyTimeout < 0 {
		return errors.New("DB_BUSY_TIMEOUT must be >= 0")
	}
	if len(cfg.Resources) == 0 {
		return errors.New("RESOURCES must name at least one resource kind")
	}
	for _, r := range cfg.Resources {
		if !isKnownResource(r) {
			return fmt.Errorf("RESOURCES: unknown resource kind %q (known: %s)", r, strings.Join(KnownResources, ", "))
		}
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.RateWriteCost < 1 {
		return errors.New("RATE_WRITE_COST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (cfg Config) Addr() string { return ":" + cfg.Port }

func isKnownResource(name string) bool {
	for _, k := range KnownResources {
		if k == name {
			return true
		}
	}
	return false
}

// cleanList trims entries, drops empties and (optionally) lowercases and
// de-duplicates while preserving order.
func cleanList(in []string, fold bool) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, p := range in {
		t := strings.TrimSpace(p)
		if fold {
			t = strings.ToLower(t)
		}
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}
