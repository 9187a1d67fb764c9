package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string            // The secret value (e.g. a bank password)
	Version   string            // Secret version identifier
	Metadata  map[string]string // Additional secret metadata
	CreatedAt string            // When this version was created
}

// SecretManagerAdapter defines the port for reading bank credentials from a secret store.
// Path format depends on the backend:
//   - local: file path relative to the base directory
//   - AWS:   secret name or ARN
//   - Vault: path under the KV mount (e.g. "paranoia/posnet")
type SecretManagerAdapter interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
