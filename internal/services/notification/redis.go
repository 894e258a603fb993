package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain/ports"
	"github.com/kevin07696/openbanking-service/pkg/observability"
	"github.com/kevin07696/openbanking-service/pkg/timeutil"
)

// Publisher is the part of a redis client the notifier needs; *redis.Client satisfies it
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes each event on one channel per browser tab
type RedisNotifier struct {
	client Publisher
	prefix string
	clock  timeutil.Clock
	logger *zap.Logger
}

var _ ports.Notifier = (*RedisNotifier)(nil)

// NewRedisNotifier creates a notifier publishing on "<prefix>:<tabID>"
func NewRedisNotifier(client Publisher, prefix string, clock timeutil.Clock, logger *zap.Logger) *RedisNotifier {
	if prefix == "" {
		prefix = "openbanking:tab"
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &RedisNotifier{client: client, prefix: prefix, clock: clock, logger: logger}
}

// Channel returns the channel a tab listens on
func (n *RedisNotifier) Channel(tabID string) string {
	return n.prefix + ":" + tabID
}

func (n *RedisNotifier) Push(ctx context.Context, tabIDs []string, event ports.EventType, payload interface{}) error {
	body, err := newEnvelope(tabIDs, event, payload, n.clock.Now()).marshal()
	if err != nil {
		return err
	}

	var errs []error
	for _, tabID := range tabIDs {
		receivers, err := n.client.Publish(ctx, n.Channel(tabID), body).Result()
		if err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", n.Channel(tabID), err))
			continue
		}
		if receivers == 0 {
			n.logger.Debug("No subscriber for tab",
				zap.String("event", string(event)),
				zap.String("tab_id", tabID),
			)
		}
	}

	if err := errors.Join(errs...); err != nil {
		observability.RecordNotification(string(event), "failed")
		return err
	}
	observability.RecordNotification(string(event), "delivered")
	return nil
}
