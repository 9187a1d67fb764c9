package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
logger:
  level: debug
posnet:
  base_url: https://setmpos.ykb.com/PosnetWebService/XML
  username: posnetuser
  password: s3cret
  client_id: "6706598320"
  terminal_id: "67005551"
  timeout: 30s
transport:
  max_retries: 1
  rate_limit: 5
testcard:
  card_number: "4506349116608409"
  security_code: "000"
  expire_month: "03"
  expire_year: "2027"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paranoia.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "https://setmpos.ykb.com/PosnetWebService/XML", cfg.Posnet.BaseURL)
	assert.Equal(t, "6706598320", cfg.Posnet.ClientID)
	assert.Equal(t, 30*time.Second, cfg.Posnet.Timeout)
	assert.Equal(t, 1, cfg.Transport.MaxRetries)
	assert.Equal(t, 5.0, cfg.Transport.RateLimit)
	assert.True(t, cfg.TestCard.HasTestCard())

	t.Run("defaults fill the rest", func(t *testing.T) {
		assert.Equal(t, "TR", cfg.Posnet.DefaultCurrency)
		assert.False(t, cfg.Posnet.StrictCurrency)
		assert.Equal(t, 1, cfg.Transport.RateBurst)
		assert.Equal(t, uint32(5), cfg.Transport.BreakerMaxFailures)
		assert.Equal(t, 30*time.Second, cfg.Transport.BreakerTimeout)
		assert.Equal(t, "env", cfg.Secrets.Backend)
		assert.Equal(t, 5*time.Minute, cfg.Secrets.CacheTTL)
		assert.Empty(t, cfg.Audit.DatabaseURL)
	})
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("PARANOIA_POSNET__TERMINAL_ID", "67000001")
	t.Setenv("PARANOIA_POSNET__STRICT_CURRENCY", "true")
	t.Setenv("PARANOIA_TRANSPORT__BREAKER_TIMEOUT", "1m")
	t.Setenv("PARANOIA_METRICS__ADDR", ":9090")

	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "67000001", cfg.Posnet.TerminalID)
	assert.True(t, cfg.Posnet.StrictCurrency)
	assert.Equal(t, time.Minute, cfg.Transport.BreakerTimeout)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoad_EnvironmentOnly(t *testing.T) {
	t.Setenv("PARANOIA_POSNET__BASE_URL", "https://posnet.test/XML")
	t.Setenv("PARANOIA_POSNET__USERNAME", "user")
	t.Setenv("PARANOIA_POSNET__PASSWORD_SECRET", "POSNET_PASSWORD")
	t.Setenv("PARANOIA_POSNET__CLIENT_ID", "1")
	t.Setenv("PARANOIA_POSNET__TERMINAL_ID", "2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "POSNET_PASSWORD", cfg.Posnet.PasswordSecret)
	assert.Empty(t, cfg.Posnet.Password)
	assert.Equal(t, 60*time.Second, cfg.Posnet.Timeout)
	assert.False(t, cfg.TestCard.HasTestCard())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "config file")
}

func validConfig() *Config {
	return &Config{
		Logger: LoggerConfig{Level: "info"},
		Posnet: PosnetConfig{
			BaseURL:         "https://posnet.test/XML",
			Username:        "user",
			Password:        "s3cret",
			ClientID:        "1",
			TerminalID:      "2",
			DefaultCurrency: "TR",
			Timeout:         time.Minute,
		},
		Transport: TransportConfig{
			MaxRetries:         2,
			RateBurst:          1,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Secrets: SecretsConfig{Backend: "env"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing base url", mutate: func(c *Config) { c.Posnet.BaseURL = "" }, wantErr: "BaseURL"},
		{name: "malformed base url", mutate: func(c *Config) { c.Posnet.BaseURL = "not a url" }, wantErr: "BaseURL"},
		{name: "unknown default currency", mutate: func(c *Config) { c.Posnet.DefaultCurrency = "GB" }, wantErr: "DefaultCurrency"},
		{name: "unknown log level", mutate: func(c *Config) { c.Logger.Level = "trace" }, wantErr: "Level"},
		{name: "unknown secrets backend", mutate: func(c *Config) { c.Secrets.Backend = "gcp" }, wantErr: "Backend"},
		{
			name:    "no password",
			mutate:  func(c *Config) { c.Posnet.Password = "" },
			wantErr: "posnet.password or posnet.password_secret is required",
		},
		{
			name:    "password and secret",
			mutate:  func(c *Config) { c.Posnet.PasswordSecret = "posnet/password" },
			wantErr: "set only one of",
		},
		{
			name:    "local backend without path",
			mutate:  func(c *Config) { c.Secrets.Backend = "local" },
			wantErr: "secrets.local_path",
		},
		{
			name:    "vault backend without address",
			mutate:  func(c *Config) { c.Secrets.Backend = "vault" },
			wantErr: "secrets.vault_address",
		},
		{
			name:    "aws backend without region",
			mutate:  func(c *Config) { c.Secrets.Backend = "aws" },
			wantErr: "secrets.aws_region",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
