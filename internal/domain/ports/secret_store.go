package ports

import "context"

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value    string
	Version  string
	Metadata map[string]string
}

// SecretStore reads bank API credentials (client secret, client certificate)
// from Vault, AWS Secrets Manager or local files.
type SecretStore interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
