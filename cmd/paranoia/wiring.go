package main

import (
	"context"
	"fmt"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
	"github.com/blackbunny/paranoia/internal/adapters/posnet"
	"github.com/blackbunny/paranoia/internal/adapters/postgres"
	"github.com/blackbunny/paranoia/internal/adapters/secrets"
	"github.com/blackbunny/paranoia/internal/adapters/transport"
	"github.com/blackbunny/paranoia/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// dependencies are the wired components of one CLI run
type dependencies struct {
	adapter   ports.PaymentAdapter
	transport *transport.HTTPTransport
	dbPool    *pgxpool.Pool
}

func (d *dependencies) Close() {
	if d.dbPool != nil {
		d.dbPool.Close()
	}
}

// initLogger builds the zap logger from the logger config section
func initLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func initDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	password, err := resolvePassword(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	deps := &dependencies{}

	var audit ports.AuditRecorder
	if cfg.Audit.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Audit.DatabaseURL), logger)
		if err != nil {
			return nil, fmt.Errorf("audit database: %w", err)
		}
		repo := postgres.NewAuditRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		deps.dbPool = pool
		audit = repo
	}

	deps.transport = transport.NewHTTPTransport(
		transportConfig(cfg),
		nil,
		logger,
		transport.NewCommunicationLogger(logger, posnet.MaskDocument),
	)

	adapterConfig := posnet.DefaultConfig(posnet.Credentials{
		Username:   cfg.Posnet.Username,
		Password:   password,
		MerchantID: cfg.Posnet.ClientID,
		TerminalID: cfg.Posnet.TerminalID,
	})
	adapterConfig.DefaultCurrency = cfg.Posnet.DefaultCurrency
	adapterConfig.StrictCurrency = cfg.Posnet.StrictCurrency

	deps.adapter = posnet.NewAdapter(adapterConfig, deps.transport, audit, logger)
	return deps, nil
}

func transportConfig(cfg *config.Config) *transport.Config {
	tc := transport.DefaultConfig(cfg.Posnet.BaseURL)
	tc.Timeout = cfg.Posnet.Timeout
	tc.InsecureSkipVerify = cfg.Transport.InsecureSkipVerify
	tc.MaxRetries = cfg.Transport.MaxRetries
	tc.RateLimit = cfg.Transport.RateLimit
	tc.RateBurst = cfg.Transport.RateBurst
	tc.CircuitBreaker.MaxFailures = cfg.Transport.BreakerMaxFailures
	tc.CircuitBreaker.Timeout = cfg.Transport.BreakerTimeout
	return tc
}

func secretsConfig(cfg config.SecretsConfig) *secrets.Config {
	vault := secrets.DefaultVaultConfig(cfg.VaultAddress)
	vault.AuthMethod = cfg.VaultAuth
	vault.Token = cfg.VaultToken
	vault.RoleID = cfg.VaultRoleID
	vault.SecretID = cfg.VaultSecretID
	vault.MountPath = cfg.VaultMountPath
	vault.Field = cfg.VaultField
	vault.CacheTTL = cfg.CacheTTL

	aws := secrets.DefaultAWSSecretsManagerConfig(cfg.AWSRegion)
	aws.Profile = cfg.AWSProfile
	aws.Endpoint = cfg.AWSEndpoint
	aws.CacheTTL = cfg.CacheTTL

	return &secrets.Config{
		Backend:   cfg.Backend,
		LocalPath: cfg.LocalPath,
		Vault:     vault,
		AWS:       aws,
	}
}

// resolvePassword returns posnet.password, or reads posnet.password_secret from the secrets backend
func resolvePassword(ctx context.Context, cfg *config.Config, logger *zap.Logger) (string, error) {
	if cfg.Posnet.Password != "" {
		return cfg.Posnet.Password, nil
	}

	manager, err := secrets.NewSecretManager(ctx, secretsConfig(cfg.Secrets), logger)
	if err != nil {
		return "", fmt.Errorf("secrets backend: %w", err)
	}

	password, err := secrets.Resolve(ctx, manager, cfg.Posnet.PasswordSecret)
	if err != nil {
		return "", fmt.Errorf("resolve posnet password: %w", err)
	}
	logger.Info("Resolved Posnet password from secrets backend",
		zap.String("backend", cfg.Secrets.Backend),
		zap.String("path", cfg.Posnet.PasswordSecret),
	)
	return password, nil
}
