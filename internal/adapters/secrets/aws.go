package secrets

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain/ports"
)

// AWSConfig contains configuration for the AWS Secrets Manager store
type AWSConfig struct {
	Region string

	// Profile selects a shared config profile for local development
	Profile string

	// Endpoint overrides the service endpoint (LocalStack)
	Endpoint string
}

// SecretsManagerAPI is the subset of the AWS client the store uses
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSStore reads bank credentials from AWS Secrets Manager
type AWSStore struct {
	client SecretsManagerAPI
	logger *zap.Logger
}

var _ ports.SecretStore = (*AWSStore)(nil)

// NewAWSStore loads the default credential chain and creates the client
func NewAWSStore(ctx context.Context, cfg AWSConfig, logger *zap.Logger) (*AWSStore, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOptions []func(*secretsmanager.Options)
	if cfg.Endpoint != "" {
		clientOptions = append(clientOptions, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	logger.Info("AWS Secrets Manager store initialized", zap.String("region", cfg.Region))
	return NewAWSStoreWithClient(secretsmanager.NewFromConfig(awsConfig, clientOptions...), logger), nil
}

// NewAWSStoreWithClient uses an existing client
func NewAWSStoreWithClient(client SecretsManagerAPI, logger *zap.Logger) *AWSStore {
	return &AWSStore{client: client, logger: logger}
}

// GetSecret reads a secret by name or ARN. "name#field" picks a field of a JSON secret.
// Binary secrets are returned base64 encoded, the form the certificate loader expects.
func (s *AWSStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	name, field := splitField(path)

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if err != nil {
		s.logger.Error("Failed to read secret from AWS", zap.String("path", name), zap.Error(err))
		return nil, fmt.Errorf("get secret %s: %w", name, err)
	}

	secret := &ports.Secret{
		Version:  aws.ToString(result.VersionId),
		Metadata: make(map[string]string),
	}
	if result.SecretString != nil {
		value, metadata, err := pickField(aws.ToString(result.SecretString), field)
		if err != nil {
			return nil, fmt.Errorf("secret %s: %w", name, err)
		}
		secret.Value = value
		for k, v := range metadata {
			secret.Metadata[k] = v
		}
	} else {
		if field != "" {
			return nil, fmt.Errorf("secret %s is binary, cannot select %q", name, field)
		}
		secret.Value = base64.StdEncoding.EncodeToString(result.SecretBinary)
	}
	if secret.Value == "" {
		return nil, fmt.Errorf("secret %s is empty", name)
	}

	if result.ARN != nil {
		secret.Metadata["arn"] = *result.ARN
	}
	return secret, nil
}
