package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/config"
	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

type mapStore map[string]string

func (m mapStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	v, ok := m[path]
	if !ok {
		return nil, errors.New("secret not found")
	}
	return &ports.Secret{Value: v}, nil
}

func TestResolve(t *testing.T) {
	store := mapStore{"openbanking/client#secret": "from-store"}

	tests := []struct {
		name    string
		store   ports.SecretStore
		inline  string
		path    string
		want    string
		wantErr string
	}{
		{name: "inline wins", store: store, inline: "inline", path: "openbanking/client#secret", want: "inline"},
		{name: "from store", store: store, path: "openbanking/client#secret", want: "from-store"},
		{name: "nothing configured", store: store},
		{name: "missing secret", store: store, path: "openbanking/other", wantErr: "secret openbanking/other: secret not found"},
		{name: "no store", path: "openbanking/client#secret", wantErr: "no secret store configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(context.Background(), tt.store, tt.inline, tt.path)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientCertificate_NoneConfigured(t *testing.T) {
	cert, err := ClientCertificate(context.Background(), mapStore{}, config.Default().OpenBanking)

	require.NoError(t, err)
	assert.Nil(t, cert)
}

func TestClientCertificate_InvalidBundle(t *testing.T) {
	cfg := config.Default().OpenBanking
	cfg.CertificatePath = "openbanking/certificate"

	_, err := ClientCertificate(context.Background(), mapStore{"openbanking/certificate": "bm90IGEgcGZ4"}, cfg)

	assert.Error(t, err)
}

func TestOpenBankingClient(t *testing.T) {
	t.Run("incomplete configuration", func(t *testing.T) {
		_, err := OpenBankingClient(context.Background(), config.Default().OpenBanking, mapStore{}, timeutil.SystemClock{}, zap.NewNop())

		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeConfiguration))
	})

	t.Run("production without certificate", func(t *testing.T) {
		cfg := config.Default().OpenBanking
		cfg.Mode = "production"
		cfg.ClientID = "client"
		cfg.ClientSecret = "inline"

		_, err := OpenBankingClient(context.Background(), cfg, nil, timeutil.SystemClock{}, zap.NewNop())

		assert.ErrorContains(t, err, "client certificate is required")
	})

	t.Run("sandbox from secret store", func(t *testing.T) {
		cfg := config.Default().OpenBanking
		cfg.ClientID = "client"
		cfg.ClientSecretPath = "openbanking/client#secret"
		cfg.Sniff = true

		client, err := OpenBankingClient(context.Background(), cfg, mapStore{"openbanking/client#secret": "s3cret"}, timeutil.SystemClock{}, zap.NewNop())

		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("unreadable secret", func(t *testing.T) {
		cfg := config.Default().OpenBanking
		cfg.ClientID = "client"
		cfg.ClientSecretPath = "openbanking/missing"

		_, err := OpenBankingClient(context.Background(), cfg, mapStore{}, timeutil.SystemClock{}, zap.NewNop())

		assert.ErrorContains(t, err, "load client secret")
	})
}
