// Package bootstrap builds the bank API client and its secret-backed credentials
// from configuration. It is shared by the service process and the operator CLI.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/adapters/openbanking"
	"github.com/kevin07696/openbanking-service/internal/adapters/secrets"
	"github.com/kevin07696/openbanking-service/internal/config"
	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	pkghttp "github.com/kevin07696/openbanking-service/pkg/http"
	"github.com/kevin07696/openbanking-service/pkg/resilience"
	"github.com/kevin07696/openbanking-service/pkg/security"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

const bankAPITimeout = 30 * time.Second

// SecretStore builds the configured secret backend
func SecretStore(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretStore, error) {
	vaultCfg := secrets.DefaultVaultConfig(cfg.VaultAddress)
	if cfg.VaultAuthMethod != "" {
		vaultCfg.AuthMethod = cfg.VaultAuthMethod
	}
	vaultCfg.Token = cfg.VaultToken
	vaultCfg.RoleID = cfg.VaultRoleID
	vaultCfg.SecretID = cfg.VaultSecretID
	vaultCfg.K8sRole = cfg.VaultK8sRole
	vaultCfg.Namespace = cfg.VaultNamespace
	if cfg.VaultMountPath != "" {
		vaultCfg.MountPath = cfg.VaultMountPath
	}

	return secrets.New(ctx, secrets.Config{
		Backend:   cfg.Backend,
		LocalPath: cfg.LocalPath,
		Vault:     vaultCfg,
		AWS: secrets.AWSConfig{
			Region:   cfg.AWSRegion,
			Profile:  cfg.AWSProfile,
			Endpoint: cfg.AWSEndpoint,
		},
		CacheTTL: cfg.CacheTTL,
	}, logger)
}

// Resolve returns inline when set and otherwise reads path from the store.
// Both empty resolves to "".
func Resolve(ctx context.Context, store ports.SecretStore, inline, path string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if path == "" {
		return "", nil
	}
	if store == nil {
		return "", fmt.Errorf("secret %s: no secret store configured", path)
	}
	secret, err := store.GetSecret(ctx, path)
	if err != nil {
		return "", fmt.Errorf("secret %s: %w", path, err)
	}
	return secret.Value, nil
}

// ClientCertificate loads the mTLS certificate of the configuration, nil when none is configured
func ClientCertificate(ctx context.Context, store ports.SecretStore, cfg config.OpenBankingConfig) (*tls.Certificate, error) {
	if !cfg.HasCertificate() {
		return nil, nil
	}

	pfx, err := Resolve(ctx, store, cfg.CertificateBase64, cfg.CertificatePath)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}
	password, err := Resolve(ctx, store, cfg.CertificatePassword, cfg.CertificatePasswordPath)
	if err != nil {
		return nil, fmt.Errorf("load client certificate password: %w", err)
	}
	return pkghttp.LoadPKCS12Certificate(pfx, password)
}

// OpenBankingClient builds the bank API client. The client secret and certificate are
// read once; rotating them needs a restart. The service account is not needed here,
// so the directory and administration commands work without it.
func OpenBankingClient(ctx context.Context, cfg config.OpenBankingConfig, store ports.SecretStore, clock timeutil.Clock, logger *zap.Logger) (*openbanking.Client, error) {
	if cfg.ClientID == "" || !cfg.HasClientSecret() {
		return nil, domain.NewConfigurationError("Open Banking client id and client secret are required.")
	}
	if !cfg.Sandbox() && !cfg.HasCertificate() {
		return nil, domain.NewConfigurationError("A client certificate is required in production.")
	}

	clientSecret, err := Resolve(ctx, store, cfg.ClientSecret, cfg.ClientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("load client secret: %w", err)
	}

	httpCfg := pkghttp.OpenBankingClientConfig()
	cert, err := ClientCertificate(ctx, store, cfg)
	if err != nil {
		return nil, err
	}
	if cert != nil {
		httpCfg = httpCfg.WithClientCertificate(cert)
	}

	portLogger := security.NewZapLogger(logger)
	opts := []openbanking.Option{openbanking.WithClock(clock)}
	if cfg.Sniff {
		opts = append(opts, openbanking.WithSniffer(openbanking.NewLogSniffer(portLogger)))
	}

	client := openbanking.NewClient(openbanking.Config{
		Mode: openbanking.Mode(cfg.Mode),
		Credentials: openbanking.Credentials{
			ClientID:     cfg.ClientID,
			ClientSecret: clientSecret,
		},
		Purpose:            openbanking.PurposeFor(cfg.OrganizationID),
		TokenLifetimeRatio: cfg.TokenLifetimeRatio,
		AuthBaseURL:        cfg.AuthBaseURL,
		APIBaseURL:         cfg.APIBaseURL,
		RequestsPerSecond:  cfg.RequestsPerSecond,
		Burst:              cfg.Burst,
		CircuitBreaker:     resilience.DefaultCircuitBreakerConfig(),
	}, pkghttp.NewHTTPClient(httpCfg, bankAPITimeout), portLogger, opts...)

	logger.Info("Open Banking client ready",
		zap.String("mode", cfg.Mode),
		zap.String("flow", string(cfg.Flow)),
		zap.Bool("mtls", cert != nil),
		zap.Bool("sniff", cfg.Sniff),
	)
	return client, nil
}
