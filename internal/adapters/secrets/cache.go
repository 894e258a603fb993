package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/kevin07696/openbanking-service/internal/domain/ports"
)

// CachedStore keeps secrets in memory for ttl so a token refresh never waits on the vault
type CachedStore struct {
	next   ports.SecretStore
	cache  *gocache.Cache
	logger *zap.Logger
}

var _ ports.SecretStore = (*CachedStore)(nil)

// NewCachedStore wraps next. A ttl of zero disables caching.
func NewCachedStore(next ports.SecretStore, ttl time.Duration, logger *zap.Logger) ports.SecretStore {
	if ttl <= 0 {
		return next
	}
	return &CachedStore{
		next:   next,
		cache:  gocache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func (c *CachedStore) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if v, ok := c.cache.Get(path); ok {
		c.logger.Debug("Secret retrieved from cache", zap.String("path", path))
		return v.(*ports.Secret), nil
	}
	secret, err := c.next.GetSecret(ctx, path)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(path, secret)
	return secret, nil
}

// Invalidate drops path so the next read goes to the backend
func (c *CachedStore) Invalidate(path string) {
	c.cache.Delete(path)
}

// splitField splits "name#field" into the secret name and the JSON field to pick
func splitField(path string) (string, string) {
	if i := strings.LastIndex(path, "#"); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

// pickField returns the value stored under field. Without a field a JSON object
// yields its "value" key; anything else is returned as is.
func pickField(raw string, field string) (string, map[string]string, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		if field != "" {
			return "", nil, fmt.Errorf("secret is not a JSON object, cannot select %q", field)
		}
		return raw, nil, nil
	}
	return fromMap(data, field)
}

func fromMap(data map[string]interface{}, field string) (string, map[string]string, error) {
	key := field
	if key == "" {
		key = "value"
	}
	value, ok := data[key].(string)
	if !ok || value == "" {
		return "", nil, fmt.Errorf("secret has no string field %q", key)
	}

	metadata := make(map[string]string)
	for k, v := range data {
		if s, ok := v.(string); ok && k != key {
			metadata[k] = s
		}
	}
	return value, metadata, nil
}
