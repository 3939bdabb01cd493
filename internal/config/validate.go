package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidationError lists every problem found in a config.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(e.Issues, "\n  - ")
}

// Validate checks cross-field constraints. It expects defaults to be applied.
func Validate(cfg *Config) error {
	var issues []string
	add := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	if cfg.Server.HTTPPort < 0 || cfg.Server.HTTPPort > 65535 {
		add("server.http_port must be between 0 and 65535")
	}
	if cfg.Server.RateLimit.RequestsPerSecond < 0 || cfg.Server.RateLimit.Burst < 0 {
		add("server.rate_limit values must not be negative")
	}

	switch cfg.Board.IDStrategy {
	case "uuid", "sequence":
	default:
		add("board.id_strategy must be uuid or sequence, got %q", cfg.Board.IDStrategy)
	}
	if cfg.Board.RowHeight < 1 {
		add("board.row_height must be positive")
	}

	storage := cfg.Storage
	if strings.TrimSpace(storage.NamespaceDefault) == "" {
		add("storage.namespace_default must not be empty")
	}
	if storage.WriteTimeout < 0 || storage.LoadTimeout < 0 {
		add("storage timeouts must not be negative")
	}
	if storage.Local.TombstoneRetention <= 0 {
		add("storage.local.tombstone_retention must be positive")
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(storage.Local.CompactionSchedule); err != nil {
		add("storage.local.compaction_schedule: %v", err)
	}
	switch strings.ToLower(storage.Remote.Driver) {
	case "none", "memory":
	case "postgres", "cockroach":
		if strings.TrimSpace(storage.Remote.DSN) == "" {
			add("storage.remote.dsn is required for driver %q", storage.Remote.Driver)
		}
	case "s3":
		if strings.TrimSpace(storage.Remote.S3.Bucket) == "" {
			add("storage.remote.s3.bucket is required for driver s3")
		}
	default:
		add("storage.remote.driver must be none, memory, postgres, cockroach or s3, got %q", storage.Remote.Driver)
	}

	if cfg.Auth.Enabled {
		if strings.TrimSpace(cfg.Auth.SessionSecret) == "" {
			add("auth.session_secret is required when auth is enabled")
		}
		if cfg.Auth.SessionTTL <= 0 {
			add("auth.session_ttl must be positive")
		}
		identity := cfg.Auth.Identity
		switch identity.Mode {
		case "jwt":
			if identity.HMACSecret == "" && identity.PublicKeyFile == "" {
				add("auth.identity needs hmac_secret or public_key_file in jwt mode")
			}
		case "userinfo":
			if identity.UserInfoURL == "" {
				add("auth.identity.userinfo_url is required in userinfo mode")
			}
		default:
			add("auth.identity.mode must be jwt or userinfo, got %q", identity.Mode)
		}
	}

	if cfg.Preview.MaxBodyBytes < 0 {
		add("preview.max_body_bytes must not be negative")
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level must be debug, info, warn or error, got %q", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		add("logging.format must be json or text, got %q", cfg.Logging.Format)
	}

	if rate := cfg.Observability.Tracing.SamplingRate; rate < 0 || rate > 1 {
		add("observability.tracing.sampling_rate must be between 0 and 1")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
