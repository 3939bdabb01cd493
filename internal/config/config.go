// Package config loads the boxgrid configuration file.
package config

import (
	"fmt"
	"time"
)

// Config is the main configuration structure for boxgrid.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Board         BoardConfig         `yaml:"board"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Preview       PreviewConfig       `yaml:"preview"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	Host           string        `yaml:"host"`
	HTTPPort       int           `yaml:"http_port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	// RateLimit applies per client to preview lookups and sign-in.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled           *bool   `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// On reports whether rate limiting applies. It defaults to true.
func (r RateLimitConfig) On() bool {
	return r.Enabled == nil || *r.Enabled
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.HTTPPort)
}

// BoardConfig configures the layout engine.
type BoardConfig struct {
	// IDStrategy is "uuid" or "sequence".
	IDStrategy string `yaml:"id_strategy"`
	RowHeight  int    `yaml:"row_height"`
}

type AuthConfig struct {
	Enabled       bool           `yaml:"enabled"`
	SessionSecret string         `yaml:"session_secret"`
	SessionTTL    time.Duration  `yaml:"session_ttl"`
	CookieName    string         `yaml:"cookie_name"`
	CookieSecure  bool           `yaml:"cookie_secure"`
	Identity      IdentityConfig `yaml:"identity"`
}

// IdentityConfig selects how sign-in credentials are verified.
type IdentityConfig struct {
	Mode          string `yaml:"mode"`
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	HMACSecret    string `yaml:"hmac_secret"`
	PublicKeyFile string `yaml:"public_key_file"`
	UserInfoURL   string `yaml:"userinfo_url"`
}

type PreviewConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	AllowPrivate bool          `yaml:"allow_private"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	MetricsEnabled *bool         `yaml:"metrics_enabled"`
	Tracing        TracingConfig `yaml:"tracing"`
}

// MetricsOn reports whether /metrics is served. It defaults to true.
func (o ObservabilityConfig) MetricsOn() bool {
	return o.MetricsEnabled == nil || *o.MetricsEnabled
}

// TracingConfig controls OpenTelemetry tracing. An empty endpoint disables it.
type TracingConfig struct {
	Endpoint     string            `yaml:"endpoint"`
	ServiceName  string            `yaml:"service_name"`
	Environment  string            `yaml:"environment"`
	SamplingRate float64           `yaml:"sampling_rate"`
	Insecure     bool              `yaml:"insecure"`
	Attributes   map[string]string `yaml:"attributes"`
}

// Load reads, merges, decodes, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.RateLimit.RequestsPerSecond == 0 {
		cfg.Server.RateLimit.RequestsPerSecond = 2
	}
	if cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = 10
	}

	if cfg.Board.IDStrategy == "" {
		cfg.Board.IDStrategy = "uuid"
	}
	if cfg.Board.RowHeight == 0 {
		cfg.Board.RowHeight = 48
	}

	applyStorageDefaults(&cfg.Storage)

	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "__session"
	}
	if cfg.Auth.Identity.Mode == "" {
		cfg.Auth.Identity.Mode = "jwt"
	}

	if cfg.Preview.Timeout == 0 {
		cfg.Preview.Timeout = 10 * time.Second
	}
	if cfg.Preview.CacheTTL == 0 {
		cfg.Preview.CacheTTL = 10 * time.Minute
	}
	if cfg.Preview.MaxBodyBytes == 0 {
		cfg.Preview.MaxBodyBytes = 2 << 20
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.Tracing.ServiceName == "" {
		cfg.Observability.Tracing.ServiceName = "boxgrid"
	}
	if cfg.Observability.Tracing.SamplingRate == 0 {
		cfg.Observability.Tracing.SamplingRate = 1
	}
}
