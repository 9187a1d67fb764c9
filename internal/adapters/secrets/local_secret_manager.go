package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackbunny/paranoia/internal/adapters/ports"
	"go.uber.org/zap"
)

// ErrSecretNotFound is returned when a backend has no secret at the requested path
var ErrSecretNotFound = errors.New("secret not found")

// localSecretManager reads secrets from files under a base directory.
// WARNING: This is for development only. Use AWS Secrets Manager or Vault in production.
type localSecretManager struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalSecretManager creates a new local filesystem secret manager
func NewLocalSecretManager(basePath string, logger *zap.Logger) ports.SecretManagerAdapter {
	return &localSecretManager{
		basePath: basePath,
		logger:   logger,
	}
}

// GetSecret reads a plain text or {"value": ...} JSON secret file
func (m *localSecretManager) GetSecret(ctx context.Context, secretPath string) (*ports.Secret, error) {
	filePath := filepath.Join(m.basePath, filepath.Clean("/"+secretPath))

	m.logger.Debug("Reading secret from filesystem",
		zap.String("path", secretPath),
	)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, secretPath)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	var secretData struct {
		Value     string            `json:"value"`
		Version   string            `json:"version"`
		Tags      map[string]string `json:"tags"`
		CreatedAt string            `json:"created_at"`
	}
	if err := json.Unmarshal(data, &secretData); err == nil && secretData.Value != "" {
		version := secretData.Version
		if version == "" {
			version = "v1"
		}
		return &ports.Secret{
			Value:     secretData.Value,
			Version:   version,
			Metadata:  secretData.Tags,
			CreatedAt: secretData.CreatedAt,
		}, nil
	}

	return &ports.Secret{
		Value:   strings.TrimRight(string(data), "\r\n"),
		Version: "v1",
	}, nil
}

// envSecretManager treats the secret path as an environment variable name
type envSecretManager struct {
	lookup func(string) (string, bool)
}

// NewEnvSecretManager creates a secret manager backed by the process environment
func NewEnvSecretManager() ports.SecretManagerAdapter {
	return &envSecretManager{lookup: os.LookupEnv}
}

func (m *envSecretManager) GetSecret(ctx context.Context, name string) (*ports.Secret, error) {
	value, ok := m.lookup(name)
	if !ok || value == "" {
		return nil, fmt.Errorf("%w: environment variable %s", ErrSecretNotFound, name)
	}
	return &ports.Secret{Value: value, Version: "env"}, nil
}
