package openbanking

import (
	"context"
	"strings"

	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/pkg/resilience"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

// Mode selects the bank API environment
type Mode string

const (
	ModeSandbox    Mode = "sandbox"
	ModeProduction Mode = "production"
)

// Hosts returns the authentication and API base URLs of the environment
func (m Mode) Hosts() (authHost, apiHost string) {
	if m == ModeProduction {
		return "https://auth.openbankingplatform.com/", "https://api.openbankingplatform.com/"
	}
	return "https://auth.sandbox.openbankingplatform.com/", "https://api.sandbox.openbankingplatform.com/"
}

// Purpose is the second half of every token scope
type Purpose string

const (
	PurposePrivate   Purpose = "private"
	PurposeCorporate Purpose = "corporate"
)

// PurposeFor returns corporate when an organization id is configured
func PurposeFor(organizationID string) Purpose {
	if strings.TrimSpace(organizationID) != "" {
		return PurposeCorporate
	}
	return PurposePrivate
}

// API families, the first half of every token scope
const (
	FamilyAccountInformation = "accountinformation"
	FamilyPaymentInitiation  = "paymentinitiation"
	FamilyASPSPInformation   = "aspspinformation"
)

// Scope builds the token scope for an API family
func Scope(family string, purpose Purpose) string {
	return family + " " + string(purpose)
}

// Config configures a Client
type Config struct {
	Mode        Mode
	Credentials Credentials
	Purpose     Purpose

	TokenLifetimeRatio float64

	// AuthBaseURL and APIBaseURL override the hosts derived from Mode
	AuthBaseURL string
	APIBaseURL  string

	RequestsPerSecond float64
	Burst             int
	CircuitBreaker    resilience.CircuitBreakerConfig
}

type options struct {
	clock   timeutil.Clock
	sniffer Sniffer
}

// Option customizes a Client
type Option func(*options)

// WithClock replaces the clock used for token expiry
func WithClock(clock timeutil.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithSniffer mirrors all traffic to s
func WithSniffer(s Sniffer) Option {
	return func(o *options) { o.sniffer = s }
}

// Client is the typed bank API client. Every operation obtains a bearer token for its
// API family and decodes the response into domain models.
type Client struct {
	transport *Transport
	tokens    *TokenCache
	purpose   Purpose
	logger    ports.Logger
}

var (
	_ ports.ConsentAPI           = (*Client)(nil)
	_ ports.AccountAPI           = (*Client)(nil)
	_ ports.PaymentInitiationAPI = (*Client)(nil)
	_ ports.DirectoryAPI         = (*Client)(nil)
)

// NewClient creates a bank API client on top of httpClient
func NewClient(cfg Config, httpClient ports.HTTPClient, logger ports.Logger, opts ...Option) *Client {
	o := options{clock: timeutil.SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	authHost, apiHost := cfg.Mode.Hosts()
	if cfg.AuthBaseURL != "" {
		authHost = cfg.AuthBaseURL
	}
	if cfg.APIBaseURL != "" {
		apiHost = cfg.APIBaseURL
	}

	purpose := cfg.Purpose
	if purpose == "" {
		purpose = PurposePrivate
	}

	transport := NewTransport(TransportConfig{
		AuthBaseURL:       authHost,
		APIBaseURL:        apiHost,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		CircuitBreaker:    cfg.CircuitBreaker,
	}, httpClient, logger, o.sniffer)

	return &Client{
		transport: transport,
		tokens:    NewTokenCache(transport, cfg.Credentials, o.clock, cfg.TokenLifetimeRatio, logger),
		purpose:   purpose,
		logger:    logger,
	}
}

// Token returns a bearer token for the API family, mainly for diagnostics
func (c *Client) Token(ctx context.Context, family string) (string, error) {
	return c.tokens.GetToken(ctx, Scope(family, c.purpose))
}

// authorized runs call with a token for family. A 401 drops the token and retries once
// with a fresh one.
func (c *Client) authorized(ctx context.Context, family string, call func(token string) ([]byte, error)) ([]byte, error) {
	scope := Scope(family, c.purpose)

	token, err := c.tokens.GetToken(ctx, scope)
	if err != nil {
		return nil, err
	}

	body, err := call(token)
	if err == nil || !isUnauthorized(err) {
		return body, err
	}

	c.logger.Warn("bearer token refused, refreshing", ports.String("scope", scope))
	c.tokens.Invalidate(scope)
	if token, err = c.tokens.GetToken(ctx, scope); err != nil {
		return nil, err
	}
	return call(token)
}

func (c *Client) get(ctx context.Context, family, path string, headers ...models.Header) ([]byte, error) {
	return c.authorized(ctx, family, func(token string) ([]byte, error) {
		return c.transport.Get(ctx, token, path, headers...)
	})
}

func (c *Client) post(ctx context.Context, family, path string, body interface{}, headers ...models.Header) ([]byte, error) {
	return c.authorized(ctx, family, func(token string) ([]byte, error) {
		return c.transport.Post(ctx, token, path, body, headers...)
	})
}

func (c *Client) put(ctx context.Context, family, path string, body interface{}, headers ...models.Header) ([]byte, error) {
	return c.authorized(ctx, family, func(token string) ([]byte, error) {
		return c.transport.Put(ctx, token, path, body, headers...)
	})
}

func (c *Client) delete(ctx context.Context, family, path string, headers ...models.Header) error {
	_, err := c.authorized(ctx, family, func(token string) ([]byte, error) {
		return nil, c.transport.Delete(ctx, token, path, headers...)
	})
	return err
}
