package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain/ports"
)

// LocalStore reads secrets from files under a base directory.
// For development and the sandbox only.
type LocalStore struct {
	basePath string
	logger   *zap.Logger
}

var _ ports.SecretStore = (*LocalStore)(nil)

// NewLocalStore creates a store rooted at basePath
func NewLocalStore(basePath string, logger *zap.Logger) *LocalStore {
	return &LocalStore{basePath: basePath, logger: logger}
}

// GetSecret reads basePath/path. Plain files are returned trimmed, JSON files
// follow the "path#field" convention of the other stores.
func (s *LocalStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	name, field := splitField(path)

	filePath := filepath.Join(s.basePath, filepath.Clean("/"+name))
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("secret not found: %s", name)
		}
		return nil, fmt.Errorf("read secret %s: %w", name, err)
	}

	value, metadata, err := pickField(strings.TrimSpace(string(data)), field)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", name, err)
	}

	s.logger.Debug("Secret read from filesystem", zap.String("path", name))
	return &ports.Secret{Value: value, Version: "local", Metadata: metadata}, nil
}
