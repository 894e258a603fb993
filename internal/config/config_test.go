package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

func wellDefined() OpenBankingConfig {
	ob := Default().OpenBanking
	ob.ClientID = "client"
	ob.ClientSecretPath = "openbanking/client#secret"
	ob.AccountIBAN = "SE4550000000058398257466"
	ob.AccountName = "Payout Account"
	ob.AccountBIC = "ESSESESS"
	return ob
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("OPP_MODE", "")

	cfg, err := LoadFromEnv()

	require.NoError(t, err)
	assert.Equal(t, "sandbox", cfg.OpenBanking.Mode)
	assert.Equal(t, models.FlowDecoupled, cfg.OpenBanking.Flow)
	assert.Equal(t, 0.5, cfg.OpenBanking.TokenLifetimeRatio)
	assert.Equal(t, 2*time.Second, cfg.OpenBanking.PollInterval)
	assert.Equal(t, "openbanking:tab", cfg.Redis.ChannelPrefix)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.True(t, cfg.OpenBanking.Sandbox())
	assert.False(t, cfg.OpenBanking.IsWellDefined())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("OPP_MODE", "production")
	t.Setenv("OPP_FLOW", "redirect")
	t.Setenv("OPP_OK_URL", "https://shop.example/ok")
	t.Setenv("OPP_POLL_INTERVAL", "3")
	t.Setenv("OPP_TIMEOUT", "90s")
	t.Setenv("OPP_TOKEN_LIFETIME_RATIO", "0.8")
	t.Setenv("OPP_API_KEYS", "key-a, key-b,,")
	t.Setenv("OPP_CONCURRENCY", "not-a-number")
	t.Setenv("DATABASE_URL", "postgres://localhost/openbanking")

	cfg, err := LoadFromEnv()

	require.NoError(t, err)
	assert.False(t, cfg.OpenBanking.Sandbox())
	assert.Equal(t, models.FlowRedirect, cfg.OpenBanking.Flow)
	assert.Equal(t, 3*time.Second, cfg.OpenBanking.PollInterval)
	assert.Equal(t, 90*time.Second, cfg.OpenBanking.Timeout)
	assert.Equal(t, 0.8, cfg.OpenBanking.TokenLifetimeRatio)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.Server.APIKeys)
	assert.Equal(t, 4, cfg.Payments.Concurrency)
	assert.Equal(t, "postgres://localhost/openbanking", cfg.Database.URL)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: staging
server:
  port: 8181
  api_keys: [yaml-key]
open_banking:
  client_id: from-yaml
  account_iban: SE4550000000058398257466
  account_name: Payout Account
  account_bic: ESSESESS
  client_secret_path: openbanking/client
  poll_interval: 1s
  timeout: 2m
payments:
  concurrency: 8
`), 0o600))
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("OPP_CLIENT_ID", "from-env")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, []string{"yaml-key"}, cfg.Server.APIKeys)
	assert.Equal(t, "from-env", cfg.OpenBanking.ClientID)
	assert.Equal(t, time.Second, cfg.OpenBanking.PollInterval)
	assert.Equal(t, 2*time.Minute, cfg.OpenBanking.Timeout)
	assert.Equal(t, 8, cfg.Payments.Concurrency)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.True(t, cfg.OpenBanking.IsWellDefined())
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()

	assert.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "unknown mode", mutate: func(c *Config) { c.OpenBanking.Mode = "test" }, wantErr: "Unknown mode"},
		{name: "unknown flow", mutate: func(c *Config) { c.OpenBanking.Flow = "embedded" }, wantErr: "Unknown authorization flow"},
		{name: "ratio above one", mutate: func(c *Config) { c.OpenBanking.TokenLifetimeRatio = 1.5 }, wantErr: "Token lifetime ratio"},
		{name: "ratio zero", mutate: func(c *Config) { c.OpenBanking.TokenLifetimeRatio = 0 }, wantErr: "Token lifetime ratio"},
		{name: "timeout shorter than poll", mutate: func(c *Config) { c.OpenBanking.Timeout = time.Second }, wantErr: "Poll interval"},
		{name: "redirect without callback", mutate: func(c *Config) { c.OpenBanking.Flow = models.FlowRedirect }, wantErr: "OK callback URL"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Payments.Concurrency = 0 }, wantErr: "concurrency"},
		{name: "production without api keys", mutate: func(c *Config) { c.Environment = "production" }, wantErr: "OPP_API_KEYS"},
		{name: "unsigned webhook", mutate: func(c *Config) { c.Webhook.URL = "https://relay.example/events" }, wantErr: "signing secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
			assert.True(t, domain.IsDomainError(err, domain.ErrorCodeConfiguration))
		})
	}
}

func TestIsWellDefined(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ob *OpenBankingConfig)
		want   bool
	}{
		{name: "complete sandbox", mutate: func(ob *OpenBankingConfig) {}, want: true},
		{name: "no client id", mutate: func(ob *OpenBankingConfig) { ob.ClientID = "" }},
		{name: "no secret", mutate: func(ob *OpenBankingConfig) { ob.ClientSecretPath = "" }},
		{name: "inline secret", mutate: func(ob *OpenBankingConfig) { ob.ClientSecretPath = ""; ob.ClientSecret = "s" }, want: true},
		{name: "no account bic", mutate: func(ob *OpenBankingConfig) { ob.AccountBIC = "" }},
		{name: "production without certificate", mutate: func(ob *OpenBankingConfig) { ob.Mode = "production" }},
		{name: "production with certificate", mutate: func(ob *OpenBankingConfig) {
			ob.Mode = "production"
			ob.CertificatePath = "openbanking/certificate"
		}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ob := wellDefined()
			tt.mutate(&ob)
			assert.Equal(t, tt.want, ob.IsWellDefined())
		})
	}
}

func TestStore_Reload(t *testing.T) {
	first := Default()
	first.Server.APIKeys = []string{"old"}

	next := Default()
	next.Server.APIKeys = []string{"new"}
	var loadErr error

	store := NewStore(first, func() (*Config, error) {
		if loadErr != nil {
			return nil, loadErr
		}
		return next, nil
	})
	assert.Equal(t, []string{"old"}, store.APIKeys())

	cfg, err := store.Reload()
	require.NoError(t, err)
	assert.Same(t, next, cfg)
	assert.Equal(t, []string{"new"}, store.APIKeys())

	loadErr = errors.New("invalid file")
	cfg, err = store.Reload()
	assert.ErrorContains(t, err, "invalid file")
	assert.Same(t, next, cfg)
	assert.Same(t, next, store.Get())
}
