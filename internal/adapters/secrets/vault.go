package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain/ports"
)

// VaultConfig contains configuration for the HashiCorp Vault store
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string

	// Authentication method: "token", "approle", "kubernetes"
	AuthMethod string

	Token string

	RoleID   string
	SecretID string

	K8sTokenPath string
	K8sRole      string

	// Vault Enterprise namespace
	Namespace string

	// KV secrets engine mount path (default: "secret")
	MountPath string

	// KV version: "v1" or "v2" (default: "v2")
	KVVersion string

	TLSSkipVerify bool
}

// DefaultVaultConfig returns default configuration for the Vault store
func DefaultVaultConfig(address string) VaultConfig {
	return VaultConfig{
		Address:      address,
		AuthMethod:   "token",
		MountPath:    "secret",
		KVVersion:    "v2",
		K8sTokenPath: "/var/run/secrets/kubernetes.io/serviceaccount/token",
	}
}

// VaultStore reads bank credentials from a Vault KV engine
type VaultStore struct {
	client *vault.Client
	config VaultConfig
	logger *zap.Logger
}

var _ ports.SecretStore = (*VaultStore)(nil)

// NewVaultStore creates and authenticates a Vault client
func NewVaultStore(ctx context.Context, cfg VaultConfig, logger *zap.Logger) (*VaultStore, error) {
	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}
	if cfg.KVVersion == "" {
		cfg.KVVersion = "v2"
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address
	if cfg.TLSSkipVerify {
		if err := vaultConfig.ConfigureTLS(&vault.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("configure TLS: %w", err)
		}
	}

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("create Vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("authenticate with Vault: %w", err)
	}

	logger.Info("Vault secret store initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
		zap.String("kv_version", cfg.KVVersion),
	)

	return &VaultStore{client: client, config: cfg, logger: logger}, nil
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg VaultConfig) error {
	var login map[string]interface{}
	var loginPath string

	switch cfg.AuthMethod {
	case "token", "":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		loginPath = "auth/approle/login"
		login = map[string]interface{}{"role_id": cfg.RoleID, "secret_id": cfg.SecretID}

	case "kubernetes":
		if cfg.K8sTokenPath == "" || cfg.K8sRole == "" {
			return fmt.Errorf("k8s_token_path and k8s_role are required for Kubernetes auth")
		}
		jwt, err := os.ReadFile(cfg.K8sTokenPath)
		if err != nil {
			return fmt.Errorf("read service account token: %w", err)
		}
		loginPath = "auth/kubernetes/login"
		login = map[string]interface{}{"jwt": string(jwt), "role": cfg.K8sRole}

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}

	resp, err := client.Logical().WriteWithContext(ctx, loginPath, login)
	if err != nil {
		return fmt.Errorf("%s login failed: %w", cfg.AuthMethod, err)
	}
	if resp == nil || resp.Auth == nil {
		return fmt.Errorf("%s login returned no auth info", cfg.AuthMethod)
	}
	client.SetToken(resp.Auth.ClientToken)
	return nil
}

// GetSecret reads path from the KV engine. "path#field" selects a field of the
// secret; the default field is "value".
func (s *VaultStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	name, field := splitField(path)

	fullPath := fmt.Sprintf("%s/%s", s.config.MountPath, name)
	if s.config.KVVersion == "v2" {
		fullPath = fmt.Sprintf("%s/data/%s", s.config.MountPath, name)
	}

	start := time.Now()
	secret, err := s.client.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		s.logger.Error("Failed to read secret from Vault", zap.String("path", name), zap.Error(err))
		return nil, fmt.Errorf("read secret %s from Vault: %w", name, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found: %s", name)
	}

	data := secret.Data
	version := "1"
	if s.config.KVVersion == "v2" {
		inner, ok := secret.Data["data"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid KV v2 secret format at %s", name)
		}
		data = inner
		if metadata, ok := secret.Data["metadata"].(map[string]interface{}); ok {
			if v, ok := metadata["version"].(json.Number); ok {
				version = v.String()
			}
		}
	}

	value, metadata, err := fromMap(data, field)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", name, err)
	}

	s.logger.Debug("Secret retrieved from Vault",
		zap.String("path", name),
		zap.String("version", version),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &ports.Secret{Value: value, Version: version, Metadata: metadata}, nil
}
