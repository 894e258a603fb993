package timeutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNow_AlwaysUTC(t *testing.T) {
	now := Now()

	if now.Location() != time.UTC {
		t.Errorf("Now() returned non-UTC timezone: %v", now.Location())
	}
}

func TestDateHelpers(t *testing.T) {
	noon := time.Date(2025, 11, 20, 12, 30, 45, 0, time.UTC)

	assert.Equal(t, "2025-11-20", FormatDate(noon))
	assert.Equal(t, time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC), Tomorrow(noon))
	assert.False(t, IsDateOnly(noon))
	assert.True(t, IsDateOnly(StartOfDay(noon)))

	parsed, err := ParseDate("2025-12-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), parsed)

	_, err = ParseDate("31/12/2025")
	assert.Error(t, err)
}

func TestManualClock(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)

	require.NoError(t, clock.Sleep(context.Background(), 2*time.Second))
	clock.Advance(time.Minute)

	assert.Equal(t, start.Add(62*time.Second), clock.Now())
	assert.Equal(t, []time.Duration{2 * time.Second}, clock.Sleeps())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, clock.Sleep(ctx, time.Second), context.Canceled)
}

func TestSystemClock_SleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SystemClock{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
