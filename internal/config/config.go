package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
)

// ConfigFileEnv names an optional YAML file applied before environment variables
const ConfigFileEnv = "OPP_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	Environment string            `yaml:"environment"`
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Webhook     WebhookConfig     `yaml:"webhook"`
	Secrets     SecretsConfig     `yaml:"secrets"`
	OpenBanking OpenBankingConfig `yaml:"open_banking"`
	Payments    PaymentsConfig    `yaml:"payments"`
}

// ServerConfig holds the HTTP API, metrics and gRPC health settings
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MetricsPort    int    `yaml:"metrics_port"`
	GRPCHealthPort int    `yaml:"grpc_health_port"` // 0 disables the gRPC health server

	// APIKeys are accepted in the X-API-Key header; comma separated in OPP_API_KEYS
	APIKeys []string `yaml:"api_keys"`

	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	TrustProxy        bool          `yaml:"trust_proxy"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration. An empty URL keeps records in memory.
type DatabaseConfig struct {
	URL          string        `yaml:"url"`
	MaxConns     int32         `yaml:"max_conns"`
	MinConns     int32         `yaml:"min_conns"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	AutoMigrate  bool          `yaml:"auto_migrate"`
}

// RedisConfig holds the pub/sub notifier settings. An empty Addr disables it.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

// WebhookConfig holds the UI relay settings. An empty URL disables it.
type WebhookConfig struct {
	URL        string `yaml:"url"`
	Secret     string `yaml:"secret"`
	SecretPath string `yaml:"secret_path"`
	Attempts   int    `yaml:"attempts"`
}

// SecretsConfig selects where bank credentials are read from
type SecretsConfig struct {
	Backend   string        `yaml:"backend"` // local, vault, aws
	LocalPath string        `yaml:"local_path"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	VaultAddress    string `yaml:"vault_address"`
	VaultAuthMethod string `yaml:"vault_auth_method"`
	VaultToken      string `yaml:"vault_token"`
	VaultRoleID     string `yaml:"vault_role_id"`
	VaultSecretID   string `yaml:"vault_secret_id"`
	VaultK8sRole    string `yaml:"vault_k8s_role"`
	VaultMountPath  string `yaml:"vault_mount_path"`
	VaultNamespace  string `yaml:"vault_namespace"`

	AWSRegion   string `yaml:"aws_region"`
	AWSProfile  string `yaml:"aws_profile"`
	AWSEndpoint string `yaml:"aws_endpoint"`
}

// OpenBankingConfig holds the bank API credentials and the service account payments are made from
type OpenBankingConfig struct {
	Mode string                   `yaml:"mode"` // sandbox, production
	Flow models.AuthorizationFlow `yaml:"flow"`

	ClientID         string `yaml:"client_id"`
	ClientSecret     string `yaml:"client_secret"`
	ClientSecretPath string `yaml:"client_secret_path"`

	CertificateBase64       string `yaml:"certificate_base64"`
	CertificatePath         string `yaml:"certificate_path"`
	CertificatePassword     string `yaml:"certificate_password"`
	CertificatePasswordPath string `yaml:"certificate_password_path"`

	AccountIBAN    string `yaml:"account_iban"`
	AccountName    string `yaml:"account_name"`
	AccountBIC     string `yaml:"account_bic"`
	PersonalID     string `yaml:"personal_id"`
	OrganizationID string `yaml:"organization_id"`

	PollInterval       time.Duration `yaml:"poll_interval"`
	Timeout            time.Duration `yaml:"timeout"`
	TokenLifetimeRatio float64       `yaml:"token_lifetime_ratio"`

	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	DirectoryCacheTTL time.Duration `yaml:"directory_cache_ttl"`
	Sniff             bool          `yaml:"sniff"`

	// AuthBaseURL and APIBaseURL override the hosts of Mode
	AuthBaseURL string `yaml:"auth_base_url"`
	APIBaseURL  string `yaml:"api_base_url"`
}

// PaymentsConfig holds the outbound payment flow settings
type PaymentsConfig struct {
	Concurrency int    `yaml:"concurrency"`
	OkURL       string `yaml:"ok_url"`
	NokURL      string `yaml:"nok_url"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			MetricsPort:       9090,
			GRPCHealthPort:    50051,
			RequestsPerSecond: 2,
			Burst:             10,
			ShutdownTimeout:   30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:     10,
			MinConns:     2,
			QueryTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			ChannelPrefix: "openbanking:tab",
		},
		Webhook: WebhookConfig{
			Attempts: 3,
		},
		Secrets: SecretsConfig{
			Backend:         "local",
			LocalPath:       "./secrets",
			CacheTTL:        5 * time.Minute,
			VaultAuthMethod: "token",
			VaultMountPath:  "secret",
		},
		OpenBanking: OpenBankingConfig{
			Mode:               "sandbox",
			Flow:               models.FlowDecoupled,
			PollInterval:       2 * time.Second,
			Timeout:            5 * time.Minute,
			TokenLifetimeRatio: 0.5,
			RequestsPerSecond:  10,
			Burst:              20,
			DirectoryCacheTTL:  time.Hour,
		},
		Payments: PaymentsConfig{
			Concurrency: 4,
		},
	}
}

// Load applies the YAML file named by OPP_CONFIG_FILE (if any) and then the
// environment on top of the defaults, and validates the result
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from the defaults and the environment only
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	s := &c.Server
	s.Host = getEnv("SERVER_HOST", s.Host)
	s.Port = getEnvAsInt("SERVER_PORT", s.Port)
	s.MetricsPort = getEnvAsInt("METRICS_PORT", s.MetricsPort)
	s.GRPCHealthPort = getEnvAsInt("GRPC_HEALTH_PORT", s.GRPCHealthPort)
	s.APIKeys = getEnvAsList("OPP_API_KEYS", s.APIKeys)
	s.RequestsPerSecond = getEnvAsFloat("OPP_RATE_LIMIT_RPS", s.RequestsPerSecond)
	s.Burst = getEnvAsInt("OPP_RATE_LIMIT_BURST", s.Burst)
	s.TrustProxy = getEnvAsBool("OPP_TRUST_PROXY", s.TrustProxy)
	s.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", s.ShutdownTimeout)

	d := &c.Database
	d.URL = getEnv("DATABASE_URL", d.URL)
	d.MaxConns = int32(getEnvAsInt("DB_MAX_CONNS", int(d.MaxConns)))
	d.MinConns = int32(getEnvAsInt("DB_MIN_CONNS", int(d.MinConns)))
	d.QueryTimeout = getEnvAsDuration("DB_QUERY_TIMEOUT", d.QueryTimeout)
	d.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", d.AutoMigrate)

	r := &c.Redis
	r.Addr = getEnv("REDIS_ADDR", r.Addr)
	r.Password = getEnv("REDIS_PASSWORD", r.Password)
	r.DB = getEnvAsInt("REDIS_DB", r.DB)
	r.ChannelPrefix = getEnv("REDIS_CHANNEL_PREFIX", r.ChannelPrefix)

	w := &c.Webhook
	w.URL = getEnv("OPP_WEBHOOK_URL", w.URL)
	w.Secret = getEnv("OPP_WEBHOOK_SECRET", w.Secret)
	w.SecretPath = getEnv("OPP_WEBHOOK_SECRET_PATH", w.SecretPath)
	w.Attempts = getEnvAsInt("OPP_WEBHOOK_ATTEMPTS", w.Attempts)

	sec := &c.Secrets
	sec.Backend = getEnv("SECRET_MANAGER", sec.Backend)
	sec.LocalPath = getEnv("SECRETS_PATH", sec.LocalPath)
	sec.CacheTTL = getEnvAsDuration("SECRET_CACHE_TTL", sec.CacheTTL)
	sec.VaultAddress = getEnv("VAULT_ADDR", sec.VaultAddress)
	sec.VaultAuthMethod = getEnv("VAULT_AUTH_METHOD", sec.VaultAuthMethod)
	sec.VaultToken = getEnv("VAULT_TOKEN", sec.VaultToken)
	sec.VaultRoleID = getEnv("VAULT_ROLE_ID", sec.VaultRoleID)
	sec.VaultSecretID = getEnv("VAULT_SECRET_ID", sec.VaultSecretID)
	sec.VaultK8sRole = getEnv("VAULT_K8S_ROLE", sec.VaultK8sRole)
	sec.VaultMountPath = getEnv("VAULT_MOUNT_PATH", sec.VaultMountPath)
	sec.VaultNamespace = getEnv("VAULT_NAMESPACE", sec.VaultNamespace)
	sec.AWSRegion = getEnv("AWS_REGION", sec.AWSRegion)
	sec.AWSProfile = getEnv("AWS_PROFILE", sec.AWSProfile)
	sec.AWSEndpoint = getEnv("AWS_SECRETS_ENDPOINT", sec.AWSEndpoint)

	ob := &c.OpenBanking
	ob.Mode = getEnv("OPP_MODE", ob.Mode)
	ob.Flow = models.AuthorizationFlow(getEnv("OPP_FLOW", string(ob.Flow)))
	ob.ClientID = getEnv("OPP_CLIENT_ID", ob.ClientID)
	ob.ClientSecret = getEnv("OPP_CLIENT_SECRET", ob.ClientSecret)
	ob.ClientSecretPath = getEnv("OPP_CLIENT_SECRET_PATH", ob.ClientSecretPath)
	ob.CertificateBase64 = getEnv("OPP_CERTIFICATE", ob.CertificateBase64)
	ob.CertificatePath = getEnv("OPP_CERTIFICATE_PATH", ob.CertificatePath)
	ob.CertificatePassword = getEnv("OPP_CERTIFICATE_PASSWORD", ob.CertificatePassword)
	ob.CertificatePasswordPath = getEnv("OPP_CERTIFICATE_PASSWORD_PATH", ob.CertificatePasswordPath)
	ob.AccountIBAN = getEnv("OPP_ACCOUNT_IBAN", ob.AccountIBAN)
	ob.AccountName = getEnv("OPP_ACCOUNT_NAME", ob.AccountName)
	ob.AccountBIC = getEnv("OPP_ACCOUNT_BIC", ob.AccountBIC)
	ob.PersonalID = getEnv("OPP_PERSONAL_ID", ob.PersonalID)
	ob.OrganizationID = getEnv("OPP_ORGANIZATION_ID", ob.OrganizationID)
	ob.PollInterval = getEnvAsDuration("OPP_POLL_INTERVAL", ob.PollInterval)
	ob.Timeout = getEnvAsDuration("OPP_TIMEOUT", ob.Timeout)
	ob.TokenLifetimeRatio = getEnvAsFloat("OPP_TOKEN_LIFETIME_RATIO", ob.TokenLifetimeRatio)
	ob.RequestsPerSecond = getEnvAsFloat("OPP_API_RPS", ob.RequestsPerSecond)
	ob.Burst = getEnvAsInt("OPP_API_BURST", ob.Burst)
	ob.DirectoryCacheTTL = getEnvAsDuration("OPP_DIRECTORY_CACHE_TTL", ob.DirectoryCacheTTL)
	ob.Sniff = getEnvAsBool("OPP_SNIFF", ob.Sniff)
	ob.AuthBaseURL = getEnv("OPP_AUTH_BASE_URL", ob.AuthBaseURL)
	ob.APIBaseURL = getEnv("OPP_API_BASE_URL", ob.APIBaseURL)

	p := &c.Payments
	p.Concurrency = getEnvAsInt("OPP_CONCURRENCY", p.Concurrency)
	p.OkURL = getEnv("OPP_OK_URL", p.OkURL)
	p.NokURL = getEnv("OPP_NOK_URL", p.NokURL)
}

// Sandbox reports whether the sandbox bank environment is used
func (c *OpenBankingConfig) Sandbox() bool {
	return c.Mode != "production"
}

// HasClientSecret reports whether a secret is configured inline or by path
func (c *OpenBankingConfig) HasClientSecret() bool {
	return c.ClientSecret != "" || c.ClientSecretPath != ""
}

// HasCertificate reports whether a client certificate is configured inline or by path
func (c *OpenBankingConfig) HasCertificate() bool {
	return c.CertificateBase64 != "" || c.CertificatePath != ""
}

// IsWellDefined reports whether everything needed to move money is present.
// A service that is not well defined still serves the ASPSP directory.
func (c *OpenBankingConfig) IsWellDefined() bool {
	if c.ClientID == "" || !c.HasClientSecret() {
		return false
	}
	if c.AccountIBAN == "" || c.AccountName == "" || c.AccountBIC == "" {
		return false
	}
	if c.PollInterval <= 0 || c.Timeout <= 0 {
		return false
	}
	if !c.Sandbox() && !c.HasCertificate() {
		return false
	}
	return true
}

// Validate checks the values that would make the service misbehave rather than fail fast
func (c *Config) Validate() error {
	ob := c.OpenBanking

	switch ob.Mode {
	case "sandbox", "production":
	default:
		return domain.NewConfigurationError(fmt.Sprintf("Unknown mode %q, expected sandbox or production.", ob.Mode))
	}
	switch ob.Flow {
	case models.FlowDecoupled, models.FlowRedirect:
	default:
		return domain.NewConfigurationError(fmt.Sprintf("Unknown authorization flow %q, expected decoupled or redirect.", ob.Flow))
	}
	if ob.TokenLifetimeRatio <= 0 || ob.TokenLifetimeRatio > 1 {
		return domain.NewConfigurationError("Token lifetime ratio must be in (0, 1].")
	}
	if ob.PollInterval <= 0 || ob.Timeout < ob.PollInterval {
		return domain.NewConfigurationError("Poll interval must be positive and not longer than the timeout.")
	}
	if ob.Flow == models.FlowRedirect && c.Payments.OkURL == "" {
		return domain.NewConfigurationError("The redirect flow needs an OK callback URL.")
	}
	if c.Payments.Concurrency < 1 {
		return domain.NewConfigurationError("Payment concurrency must be at least 1.")
	}
	if c.Server.Port <= 0 || c.Server.MetricsPort <= 0 {
		return domain.NewConfigurationError("Server and metrics ports must be set.")
	}
	if c.Environment == "production" && len(c.Server.APIKeys) == 0 {
		return domain.NewConfigurationError("OPP_API_KEYS is required in production.")
	}
	if c.Webhook.URL != "" && c.Webhook.Secret == "" && c.Webhook.SecretPath == "" {
		return domain.NewConfigurationError("A webhook URL needs a signing secret.")
	}
	return nil
}

// Address returns the HTTP API listen address
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("2s") and bare seconds ("2")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
