// Package secrets resolves bank credentials from the environment, local files,
// HashiCorp Vault or AWS Secrets Manager.
package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
	"go.uber.org/zap"
)

// Supported secret backends
const (
	BackendEnv   = "env"
	BackendLocal = "local"
	BackendVault = "vault"
	BackendAWS   = "aws"
)

// Config selects and configures a secret backend
type Config struct {
	Backend   string
	LocalPath string
	Vault     *VaultConfig
	AWS       *AWSSecretsManagerConfig
}

// NewSecretManager creates the secret manager for cfg.Backend
func NewSecretManager(ctx context.Context, cfg *Config, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	switch cfg.Backend {
	case BackendEnv, "":
		return NewEnvSecretManager(), nil
	case BackendLocal:
		return NewLocalSecretManager(cfg.LocalPath, logger), nil
	case BackendVault:
		if cfg.Vault == nil {
			return nil, fmt.Errorf("vault backend selected without vault configuration")
		}
		return NewVaultAdapter(ctx, cfg.Vault, logger)
	case BackendAWS:
		if cfg.AWS == nil {
			return nil, fmt.Errorf("aws backend selected without aws configuration")
		}
		return NewAWSSecretsManagerAdapter(ctx, cfg.AWS, logger)
	default:
		return nil, fmt.Errorf("unsupported secrets backend: %s", cfg.Backend)
	}
}

// Resolve returns the value of the secret at path
func Resolve(ctx context.Context, manager ports.SecretManagerAdapter, path string) (string, error) {
	secret, err := manager.GetSecret(ctx, path)
	if err != nil {
		return "", err
	}
	value := strings.TrimSpace(secret.Value)
	if value == "" {
		return "", fmt.Errorf("secret %s is empty", path)
	}
	return value, nil
}
