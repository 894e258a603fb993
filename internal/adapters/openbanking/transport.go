package openbanking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/openbanking-service/internal/domain"
	"github.com/kevin07696/openbanking-service/internal/domain/models"
	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	pkgerrors "github.com/kevin07696/openbanking-service/pkg/errors"
	"github.com/kevin07696/openbanking-service/pkg/observability"
	"github.com/kevin07696/openbanking-service/pkg/resilience"
	"golang.org/x/time/rate"
)

const (
	jsonContentType = "application/json"
	formContentType = "application/x-www-form-urlencoded"

	maxResponseBytes = 10 << 20
)

// TransportConfig configures the raw bank API transport
type TransportConfig struct {
	AuthBaseURL string // token endpoint host
	APIBaseURL  string // resource endpoints host

	// RequestsPerSecond throttles outbound calls; zero disables throttling
	RequestsPerSecond float64
	Burst             int

	CircuitBreaker resilience.CircuitBreakerConfig
}

// Transport performs authenticated JSON and form requests against the bank API
// and translates non-2xx answers into *pkgerrors.APIError.
type Transport struct {
	authBaseURL string
	apiBaseURL  string
	httpClient  ports.HTTPClient
	logger      ports.Logger
	sniffer     Sniffer
	limiter     *rate.Limiter
	breaker     *resilience.CircuitBreaker
	requestID   func() string
}

// NewTransport creates a transport. A nil sniffer disables traffic mirroring.
func NewTransport(cfg TransportConfig, httpClient ports.HTTPClient, logger ports.Logger, sniffer Sniffer) *Transport {
	if sniffer == nil {
		sniffer = noopSniffer{}
	}

	breakerCfg := cfg.CircuitBreaker
	if breakerCfg.MaxFailures == 0 {
		breakerCfg = resilience.DefaultCircuitBreakerConfig()
	}
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		observability.SetCircuitOpen(to == resilience.StateOpen)
		logger.Warn("bank api circuit breaker state changed",
			ports.String("from", from.String()),
			ports.String("to", to.String()),
		)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Transport{
		authBaseURL: strings.TrimRight(cfg.AuthBaseURL, "/") + "/",
		apiBaseURL:  strings.TrimRight(cfg.APIBaseURL, "/") + "/",
		httpClient:  httpClient,
		logger:      logger,
		sniffer:     sniffer,
		limiter:     limiter,
		breaker:     resilience.NewCircuitBreaker(breakerCfg),
		requestID:   func() string { return uuid.New().String() },
	}
}

// Get fetches path on the API host
func (t *Transport) Get(ctx context.Context, token, path string, headers ...models.Header) ([]byte, error) {
	return t.do(ctx, http.MethodGet, t.apiBaseURL+path, token, "", nil, headers)
}

// Post sends body as JSON to path on the API host
func (t *Transport) Post(ctx context.Context, token, path string, body interface{}, headers ...models.Header) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return t.do(ctx, http.MethodPost, t.apiBaseURL+path, token, jsonContentType, payload, headers)
}

// Put sends body as JSON to path on the API host
func (t *Transport) Put(ctx context.Context, token, path string, body interface{}, headers ...models.Header) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return t.do(ctx, http.MethodPut, t.apiBaseURL+path, token, jsonContentType, payload, headers)
}

// Delete removes the resource at path on the API host
func (t *Transport) Delete(ctx context.Context, token, path string, headers ...models.Header) error {
	_, err := t.do(ctx, http.MethodDelete, t.apiBaseURL+path, token, "", nil, headers)
	return err
}

// PostForm posts form-encoded values to path on the authentication host, unauthenticated
func (t *Transport) PostForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	return t.do(ctx, http.MethodPost, t.authBaseURL+path, "", formContentType, []byte(form.Encode()), nil)
}

func (t *Transport) do(ctx context.Context, method, target, token, contentType string, payload []byte, headers []models.Header) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, domain.WrapError(domain.ErrorCodeTransport, "bank API request throttled", err)
		}
	}

	var body []byte
	err := t.breaker.Execute(func() error {
		var callErr error
		body, callErr = t.roundTrip(ctx, method, target, token, contentType, payload, headers)
		return callErr
	}, tripsBreaker)

	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return nil, domain.WrapError(domain.ErrorCodeTransport, "bank API temporarily unavailable", err)
	}
	return body, err
}

func (t *Transport) roundTrip(ctx context.Context, method, target, token, contentType string, payload []byte, headers []models.Header) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := t.requestID()
	req.Header.Set("Accept", jsonContentType)
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}

	t.sniffer.Request(method, target, req.Header, payload)

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		observability.RecordAPIRequest(method, "error", elapsed.Seconds())
		t.sniffer.Failure(method, target, err)
		t.logger.Warn("bank api request failed",
			ports.String("method", method),
			ports.String("request_id", requestID),
			ports.Err(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeTransport,
			fmt.Sprintf("%s %s failed", method, req.URL.Path),
			pkgerrors.NewAPIError(0, err.Error(), "", requestID))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		observability.RecordAPIRequest(method, "error", elapsed.Seconds())
		return nil, domain.WrapError(domain.ErrorCodeTransport, "failed to read response body",
			pkgerrors.NewAPIError(0, err.Error(), "", requestID))
	}

	observability.RecordAPIRequest(method, strconv.Itoa(resp.StatusCode), elapsed.Seconds())
	t.sniffer.Response(method, target, resp.StatusCode, body, elapsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := errorMessage(body)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, pkgerrors.NewAPIError(resp.StatusCode, message, string(body), requestID)
	}

	return body, nil
}

// errorMessage picks the most specific human readable text out of an error body:
// the first TPP message, the "error" field, a JSON string, then the raw text.
func errorMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var envelope struct {
		TppMessages []tppMessageJSON `json:"tppMessages"`
		Error       string           `json:"error"`
	}
	if json.Unmarshal(trimmed, &envelope) == nil {
		for _, m := range envelope.TppMessages {
			if m.Text != "" {
				return m.Text
			}
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}

	var text string
	if json.Unmarshal(trimmed, &text) == nil && text != "" {
		return text
	}

	return string(trimmed)
}

// tripsBreaker counts only infrastructure failures: no response, 5xx and throttling.
// Business rejections (4xx) say nothing about the bank's availability.
func tripsBreaker(err error) bool {
	if domain.IsDomainError(err, domain.ErrorCodeTransport) {
		return !errors.Is(err, context.Canceled)
	}
	return pkgerrors.IsRetriable(err)
}
