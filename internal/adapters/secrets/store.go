package secrets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain/ports"
)

// Backends understood by New
const (
	BackendLocal = "local"
	BackendVault = "vault"
	BackendAWS   = "aws"
)

// Config selects and configures the secret backend
type Config struct {
	Backend   string
	LocalPath string
	Vault     VaultConfig
	AWS       AWSConfig
	CacheTTL  time.Duration
}

// New builds the configured store wrapped in a cache
func New(ctx context.Context, cfg Config, logger *zap.Logger) (ports.SecretStore, error) {
	var (
		store ports.SecretStore
		err   error
	)

	switch cfg.Backend {
	case BackendLocal, "":
		logger.Warn("Using local file secret store, not for production use",
			zap.String("path", cfg.LocalPath))
		store = NewLocalStore(cfg.LocalPath, logger)
	case BackendVault:
		store, err = NewVaultStore(ctx, cfg.Vault, logger)
	case BackendAWS:
		store, err = NewAWSStore(ctx, cfg.AWS, logger)
	default:
		return nil, fmt.Errorf("unknown secret backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return NewCachedStore(store, cfg.CacheTTL, logger), nil
}
