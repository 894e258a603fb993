package notification

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	pkgerrors "github.com/kevin07696/openbanking-service/pkg/errors"
	"github.com/kevin07696/openbanking-service/pkg/observability"
	"github.com/kevin07696/openbanking-service/pkg/resilience"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

// Webhook headers
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEventType = "X-Webhook-Event-Type"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderEventID   = "X-Webhook-ID"
)

// WebhookConfig configures delivery to the UI relay
type WebhookConfig struct {
	URL      string
	Secret   string
	Attempts int
	Backoff  resilience.BackoffStrategy
}

// WebhookNotifier posts signed events to a relay that forwards them to browser tabs
type WebhookNotifier struct {
	cfg        WebhookConfig
	httpClient ports.HTTPClient
	clock      timeutil.Clock
	logger     *zap.Logger
}

var _ ports.Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a webhook notifier. Zero Attempts means three, a nil Backoff
// uses resilience.NotificationBackoff.
func NewWebhookNotifier(cfg WebhookConfig, httpClient ports.HTTPClient, clock timeutil.Clock, logger *zap.Logger) *WebhookNotifier {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff == nil {
		cfg.Backoff = resilience.NotificationBackoff()
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &WebhookNotifier{
		cfg:        cfg,
		httpClient: httpClient,
		clock:      clock,
		logger:     logger,
	}
}

// Push delivers one event, retrying network failures, throttling and 5xx answers
func (n *WebhookNotifier) Push(ctx context.Context, tabIDs []string, event ports.EventType, payload interface{}) error {
	envelope := newEnvelope(tabIDs, event, payload, n.clock.Now())
	body, err := envelope.marshal()
	if err != nil {
		return err
	}
	signature := Sign(body, n.cfg.Secret)

	err = resilience.Retry(ctx, n.cfg.Attempts, n.cfg.Backoff, pkgerrors.IsRetriable, func() error {
		return n.deliver(ctx, envelope, body, signature)
	})
	if err != nil {
		observability.RecordNotification(string(event), "failed")
		n.logger.Warn("Webhook delivery failed",
			zap.String("event", string(event)),
			zap.String("event_id", envelope.ID),
			zap.Error(err),
		)
		return fmt.Errorf("deliver %s event: %w", event, err)
	}

	observability.RecordNotification(string(event), "delivered")
	n.logger.Debug("Webhook delivered",
		zap.String("event", string(event)),
		zap.String("event_id", envelope.ID),
		zap.Int("tabs", len(tabIDs)),
	)
	return nil
}

func (n *WebhookNotifier) deliver(ctx context.Context, envelope Envelope, body []byte, signature string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderEventType, string(envelope.Event))
	req.Header.Set(HeaderTimestamp, envelope.Timestamp.Format(time.RFC3339))
	req.Header.Set(HeaderEventID, envelope.ID)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return pkgerrors.NewAPIError(0, err.Error(), "", envelope.ID)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return pkgerrors.NewAPIError(resp.StatusCode, fmt.Sprintf("relay answered HTTP %d", resp.StatusCode), string(respBody), envelope.ID)
}

// Sign returns the hex encoded HMAC-SHA256 of payload under secret
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify checks a signature produced by Sign in constant time
func Verify(payload []byte, secret, signature string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hmac.Equal(h.Sum(nil), expected)
}
