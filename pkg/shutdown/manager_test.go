package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestManager_ShutsDownInReverseOrder(t *testing.T) {
	manager := NewManager(zap.NewNop(), time.Second)

	var order []string
	manager.RegisterNoErr("database", func() { order = append(order, "database") })
	manager.Register("flows", func(ctx context.Context) error {
		order = append(order, "flows")
		return errors.New("flows still running")
	})
	manager.RegisterNoErr("http", func() { order = append(order, "http") })

	errs := manager.Shutdown()

	assert.Equal(t, []string{"http", "flows", "database"}, order)
	assert.Len(t, errs, 1)
	assert.EqualError(t, errs["flows"], "flows still running")
}

func TestManager_WaitForShutdownOnContext(t *testing.T) {
	manager := NewManager(zap.NewNop(), time.Second)
	closed := false
	manager.RegisterNoErr("cache", func() { closed = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errs := manager.WaitForShutdown(ctx)
	assert.Empty(t, errs)
	assert.True(t, closed)
}
