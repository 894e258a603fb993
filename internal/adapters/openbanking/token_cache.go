package openbanking

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	pkgerrors "github.com/kevin07696/openbanking-service/pkg/errors"
	"github.com/kevin07696/openbanking-service/pkg/observability"
	"github.com/kevin07696/openbanking-service/pkg/resilience"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

// DefaultTokenLifetimeRatio is the share of expires_in a token is trusted for
const DefaultTokenLifetimeRatio = 0.5

const tokenPath = "connect/token"

// Credentials identify this TPP at the token endpoint
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Token is a bearer token and the instant it stops being handed out
type Token struct {
	Value  string
	Expiry time.Time
}

// Valid reports whether the token may still be used at now
func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.Expiry)
}

// TokenCache hands out client-credentials bearer tokens per scope, refreshing them on expiry.
// Concurrent misses on the same scope may each exchange; the last insert wins.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[string]Token

	transport   *Transport
	credentials Credentials
	clock       timeutil.Clock
	ratio       float64
	backoff     resilience.BackoffStrategy
	attempts    int
	logger      ports.Logger
}

// NewTokenCache creates a token cache. A ratio outside (0, 1] falls back to the default.
func NewTokenCache(transport *Transport, credentials Credentials, clock timeutil.Clock, ratio float64, logger ports.Logger) *TokenCache {
	if ratio <= 0 || ratio > 1 {
		ratio = DefaultTokenLifetimeRatio
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &TokenCache{
		tokens:      make(map[string]Token),
		transport:   transport,
		credentials: credentials,
		clock:       clock,
		ratio:       ratio,
		backoff:     resilience.TokenExchangeBackoff(),
		attempts:    3,
		logger:      logger,
	}
}

// GetToken returns a valid bearer token for scope, exchanging credentials on a miss
func (c *TokenCache) GetToken(ctx context.Context, scope string) (string, error) {
	c.mu.Lock()
	cached, found := c.tokens[scope]
	c.mu.Unlock()

	now := c.clock.Now()
	if found && cached.Valid(now) {
		observability.RecordTokenCacheHit()
		return cached.Value, nil
	}

	if found {
		observability.RecordTokenCacheMiss("expired")
	} else {
		observability.RecordTokenCacheMiss("not_found")
	}

	token, err := c.exchange(ctx, scope)
	if err != nil {
		observability.RecordTokenExchangeFailure()
		return "", err
	}

	c.mu.Lock()
	c.tokens[scope] = token
	c.mu.Unlock()

	return token.Value, nil
}

// Invalidate drops the cached token for scope, typically after the API refused it
func (c *TokenCache) Invalidate(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, scope)
}

func (c *TokenCache) exchange(ctx context.Context, scope string) (Token, error) {
	form := url.Values{}
	form.Set("client_id", c.credentials.ClientID)
	form.Set("client_secret", c.credentials.ClientSecret)
	form.Set("scope", scope)
	form.Set("grant_type", "client_credentials")

	var body []byte
	err := resilience.Retry(ctx, c.attempts, c.backoff, pkgerrors.IsRetriable, func() error {
		var postErr error
		body, postErr = c.transport.PostForm(ctx, tokenPath, form)
		return postErr
	})
	if err != nil {
		c.logger.Error("token exchange failed", ports.String("scope", scope), ports.Err(err))
		if apiErr, ok := pkgerrors.AsAPIError(err); ok && apiErr.StatusCode != 0 {
			return Token{}, domain.WrapError(domain.ErrorCodeAuthenticationFailed, apiErr.Message, err)
		}
		return Token{}, err
	}

	var resp tokenResponseJSON
	if err := decode(body, "token", "exchange", &resp); err != nil {
		return Token{}, domain.WrapError(domain.ErrorCodeAuthenticationFailed, "Invalid response from token endpoint.", err)
	}
	if *resp.TokenType != "Bearer" {
		return Token{}, domain.NewAuthenticationError("Unsupported token type: " + *resp.TokenType)
	}

	lifetime := time.Duration(float64(*resp.ExpiresIn) * c.ratio * float64(time.Second))
	c.logger.Debug("token issued",
		ports.String("scope", scope),
		ports.Duration("lifetime", lifetime),
	)

	return Token{Value: *resp.AccessToken, Expiry: c.clock.Now().Add(lifetime)}, nil
}

// isUnauthorized reports a 401 from the API, the signal to drop the cached token
func isUnauthorized(err error) bool {
	var apiErr *pkgerrors.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 401
}
