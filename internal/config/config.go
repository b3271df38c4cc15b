// Package config loads and validates the mailer's configuration per §3,
// using the same koanf-layered loader (defaults → YAML file → env vars)
// the teacher uses in its own internal/config/config.go, retargeted from
// the multi-tenant platform's config surface to the mailer's.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the complete, immutable-after-construction mailer
// configuration (§3).
type Config struct {
	Host   string `mapstructure:"host" validate:"required"`
	Port   int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Secure bool   `mapstructure:"secure"`

	Auth AuthConfig `mapstructure:"auth"`

	From string `mapstructure:"from" validate:"required,mailaddr"`

	RetryAttempts int  `mapstructure:"retry_attempts" validate:"min=0"`
	TimeoutMs     int  `mapstructure:"timeout_ms" validate:"min=1"`
	KeepAlive     bool `mapstructure:"keep_alive"`
	PoolSize      int  `mapstructure:"pool_size" validate:"min=1"`

	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	Logging      LoggingConfig      `mapstructure:"logging"`

	secureForced bool
}

// AuthConfig holds SMTP AUTH LOGIN credentials.
type AuthConfig struct {
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
}

// RateLimitingConfig mirrors the rateLimiting block of §3, expressed in
// milliseconds the way the source config surface names them.
type RateLimitingConfig struct {
	PerRecipient           bool `mapstructure:"per_recipient"`
	BurstLimit             int  `mapstructure:"burst_limit" validate:"min=1"`
	CooldownPeriodMs       int  `mapstructure:"cooldown_period_ms" validate:"min=0"`
	BanDurationMs          int  `mapstructure:"ban_duration_ms" validate:"min=0"`
	MaxConsecutiveFailures int  `mapstructure:"max_consecutive_failures" validate:"min=1"`
	FailureCooldownMs      int  `mapstructure:"failure_cooldown_ms" validate:"min=0"`
	MaxRapidAttempts       int  `mapstructure:"max_rapid_attempts" validate:"min=1"`
	RapidPeriodMs          int  `mapstructure:"rapid_period_ms" validate:"min=0"`
}

// LoggingConfig mirrors the logging block of §3.
type LoggingConfig struct {
	Level        string   `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format       string   `mapstructure:"format" validate:"oneof=json text"`
	CustomFields []string `mapstructure:"custom_fields"`
	Destination  string   `mapstructure:"destination"`
}

// Timeout returns TimeoutMs as a time.Duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// CooldownPeriod, BanDuration, FailureCooldown, and RapidPeriod convert the
// rate-limiting block's millisecond fields to time.Duration for
// internal/ratelimit.Config.
func (r RateLimitingConfig) CooldownPeriod() time.Duration { return time.Duration(r.CooldownPeriodMs) * time.Millisecond }
func (r RateLimitingConfig) BanDuration() time.Duration    { return time.Duration(r.BanDurationMs) * time.Millisecond }
func (r RateLimitingConfig) FailureCooldown() time.Duration {
	return time.Duration(r.FailureCooldownMs) * time.Millisecond
}
func (r RateLimitingConfig) RapidPeriod() time.Duration { return time.Duration(r.RapidPeriodMs) * time.Millisecond }

// defaults returns §3's documented defaults as a flat map using koanf's "."
// delimiter for nested keys.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"port":           25,
		"secure":         false,
		"from":           "",
		"retry_attempts": 3,
		"timeout_ms":     5000,
		"keep_alive":     false,
		"pool_size":      5,

		"rate_limiting.per_recipient":            true,
		"rate_limiting.burst_limit":              5,
		"rate_limiting.cooldown_period_ms":       1000,
		"rate_limiting.ban_duration_ms":          7_200_000,
		"rate_limiting.max_consecutive_failures": 3,
		"rate_limiting.failure_cooldown_ms":      300_000,
		"rate_limiting.max_rapid_attempts":       10,
		"rate_limiting.rapid_period_ms":          10_000,

		"logging.level":         "info",
		"logging.format":        "json",
		"logging.custom_fields": []string{},
	}
}

// Load reads the configuration from defaults, an optional YAML file, and
// environment variables (prefix MAILER_). Later sources override earlier
// ones. The result is passed through Normalize before it is returned, so
// port==465 already has secure=true here.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("MAILER_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "MAILER_"))
		// Only the section prefix becomes a "." separator; underscores inside
		// a field name (burst_limit, timeout_ms) are kept.
		for _, section := range []string{"rate_limiting", "logging", "auth"} {
			if strings.HasPrefix(key, section+"_") {
				return section + "." + strings.TrimPrefix(key, section+"_")
			}
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Normalize()
	return &cfg, nil
}

// Normalize applies §3's "port 465 forces secure" rule. It runs after
// unmarshaling and before validation so a caller who only set port: 465
// doesn't also have to set secure: true. It does not log anything itself —
// no logger exists yet at the point Load calls it — it only records whether
// the flip happened so the caller can warn once a logger is available
// (see SecureForced).
func (c *Config) Normalize() {
	if c.Port == 465 && !c.Secure {
		c.Secure = true
		c.secureForced = true
	}
}

// SecureForced reports whether Normalize flipped Secure to true because
// Port was 465. Callers that have a logger by the time they observe this
// (cmd/mailer/main.go) should emit a single Warn, per §3/SPEC_FULL.md §A.1.
func (c Config) SecureForced() bool {
	return c.secureForced
}
