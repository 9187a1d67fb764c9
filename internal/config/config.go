package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// EnvPrefix prefixes every environment variable read by Load.
// Nested keys use a double underscore: PARANOIA_POSNET__BASE_URL.
const EnvPrefix = "PARANOIA_"

// Config holds all application configuration
type Config struct {
	Logger    LoggerConfig    `koanf:"logger"`
	Posnet    PosnetConfig    `koanf:"posnet"`
	Transport TransportConfig `koanf:"transport"`
	Secrets   SecretsConfig   `koanf:"secrets"`
	Audit     AuditConfig     `koanf:"audit"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	TestCard  TestCardConfig  `koanf:"testcard"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string `koanf:"level" validate:"oneof=debug info warn error"`
	Development bool   `koanf:"development"`
}

// PosnetConfig holds the Posnet endpoint and merchant credentials
type PosnetConfig struct {
	BaseURL        string `koanf:"base_url" validate:"required,url"`
	Username       string `koanf:"username" validate:"required"`
	Password       string `koanf:"password"`
	PasswordSecret string `koanf:"password_secret"` // Secret path resolved through the secrets backend
	ClientID       string `koanf:"client_id" validate:"required"`
	TerminalID     string `koanf:"terminal_id" validate:"required"`

	DefaultCurrency string        `koanf:"default_currency" validate:"oneof=TR US EU"`
	StrictCurrency  bool          `koanf:"strict_currency"`
	Timeout         time.Duration `koanf:"timeout" validate:"required"`
}

// TransportConfig holds retry, rate limit and circuit breaker settings
type TransportConfig struct {
	InsecureSkipVerify bool    `koanf:"insecure_skip_verify"`
	MaxRetries         int     `koanf:"max_retries" validate:"min=0,max=10"`
	RateLimit          float64 `koanf:"rate_limit" validate:"min=0"`
	RateBurst          int     `koanf:"rate_burst" validate:"min=0"`

	BreakerMaxFailures uint32        `koanf:"breaker_max_failures" validate:"required"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout" validate:"required"`
}

// SecretsConfig selects the backend used to resolve posnet.password_secret
type SecretsConfig struct {
	Backend   string `koanf:"backend" validate:"oneof=env local vault aws"`
	LocalPath string `koanf:"local_path"`

	VaultAddress   string `koanf:"vault_address"`
	VaultAuth      string `koanf:"vault_auth" validate:"omitempty,oneof=token approle"`
	VaultToken     string `koanf:"vault_token"`
	VaultRoleID    string `koanf:"vault_role_id"`
	VaultSecretID  string `koanf:"vault_secret_id"`
	VaultMountPath string `koanf:"vault_mount_path"`
	VaultField     string `koanf:"vault_field"`

	AWSRegion   string `koanf:"aws_region"`
	AWSProfile  string `koanf:"aws_profile"`
	AWSEndpoint string `koanf:"aws_endpoint"`

	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// AuditConfig enables the PostgreSQL audit trail when DatabaseURL is set
type AuditConfig struct {
	DatabaseURL string `koanf:"database_url"`
}

// MetricsConfig enables the /metrics and /health server when Addr is set
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// TestCardConfig is the card used by lifecycle scenarios against a test terminal
type TestCardConfig struct {
	CardNumber   string `koanf:"card_number"`
	SecurityCode string `koanf:"security_code"`
	ExpireMonth  string `koanf:"expire_month"`
	ExpireYear   string `koanf:"expire_year"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"logger.level":       "info",
		"logger.development": false,

		"posnet.default_currency": "TR",
		"posnet.strict_currency":  false,
		"posnet.timeout":          "60s",

		"transport.max_retries":          2,
		"transport.rate_limit":           0,
		"transport.rate_burst":           1,
		"transport.breaker_max_failures": 5,
		"transport.breaker_timeout":      "30s",

		"secrets.backend":          "env",
		"secrets.vault_auth":       "token",
		"secrets.vault_mount_path": "secret",
		"secrets.vault_field":      "value",
		"secrets.cache_ttl":        "5m",
	}
}

// Load reads defaults, then the optional YAML file at path, then PARANOIA_
// environment variables, and validates the result
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, EnvPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if c.Posnet.Password == "" && c.Posnet.PasswordSecret == "" {
		return errors.New("config validation failed: posnet.password or posnet.password_secret is required")
	}
	if c.Posnet.Password != "" && c.Posnet.PasswordSecret != "" {
		return errors.New("config validation failed: set only one of posnet.password and posnet.password_secret")
	}

	switch c.Secrets.Backend {
	case "local":
		if c.Secrets.LocalPath == "" {
			return errors.New("config validation failed: secrets.local_path is required for the local backend")
		}
	case "vault":
		if c.Secrets.VaultAddress == "" {
			return errors.New("config validation failed: secrets.vault_address is required for the vault backend")
		}
	case "aws":
		if c.Secrets.AWSRegion == "" {
			return errors.New("config validation failed: secrets.aws_region is required for the aws backend")
		}
	}
	return nil
}

// HasTestCard reports whether a complete test card is configured
func (c *TestCardConfig) HasTestCard() bool {
	return c.CardNumber != "" && c.ExpireMonth != "" && c.ExpireYear != ""
}
