package utils

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeySet(t *testing.T) {
	set := NewKeySet()
	assert.True(t, set.Add("현대자동차_아이오닉5"))
	assert.False(t, set.Add("현대자동차_아이오닉5"))
	assert.True(t, set.Add("기아_EV6"))
	assert.Equal(t, 2, set.Count())
}

func TestRetryWithBackoff_SingleAttemptReturnsError(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := RetryWithBackoff(context.Background(), 1, func() error {
		calls++
		return boom
	}, Discard())

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, boom)
}

func TestRetryWithBackoff_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), 3, func() error {
		calls++
		return nil
	}, Discard())

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, 3, func() error {
		return errors.New("fail")
	}, Discard())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiter_Wait(t *testing.T) {
	limiter := NewRateLimiter(20)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	limiter := NewRateLimiter(10_000)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.Canceled)
}

type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	if d > 0 {
		c.slept = append(c.slept, d)
		c.now = c.now.Add(d)
	}
	return nil
}

func TestThrottle_WaitsWhenQuotaReached(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 7, 12, 2, 0, 0, 0, time.UTC)}
	throttle := NewThrottle(3, 0, Discard())
	throttle.now = clock.Now
	throttle.sleep = clock.Sleep

	ctx := context.Background()
	require.NoError(t, throttle.Wait(ctx))
	require.NoError(t, throttle.Wait(ctx))
	assert.Empty(t, clock.slept)

	require.NoError(t, throttle.Wait(ctx))
	require.Len(t, clock.slept, 1)
	assert.Equal(t, time.Minute, clock.slept[0])
	assert.Equal(t, 1, throttle.Count())
}

func TestThrottle_ResetsAfterAMinute(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 7, 12, 2, 0, 0, 0, time.UTC)}
	throttle := NewThrottle(3, 0, Discard())
	throttle.now = clock.Now
	throttle.sleep = clock.Sleep

	ctx := context.Background()
	require.NoError(t, throttle.Wait(ctx))
	require.NoError(t, throttle.Wait(ctx))
	clock.now = clock.now.Add(61 * time.Second)
	require.NoError(t, throttle.Wait(ctx))

	assert.Empty(t, clock.slept)
	assert.Equal(t, 1, throttle.Count())
}

func TestThrottle_FixedDelay(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 7, 12, 2, 0, 0, 0, time.UTC)}
	throttle := NewThrottle(60, 1000, Discard())
	throttle.now = clock.Now
	throttle.sleep = clock.Sleep

	require.NoError(t, throttle.Wait(context.Background()))
	assert.Equal(t, []time.Duration{time.Second}, clock.slept)
}

func TestLogger_DebugSwitch(t *testing.T) {
	var out bytes.Buffer
	logger := NewLoggerTo(&out, &out)

	logger.Debug("hidden %d", 1)
	assert.Empty(t, out.String())

	logger.SetDebug(true)
	logger.Debug("shown %d", 2)
	logger.Info("info line")
	logger.Error("error line")

	lines := out.String()
	assert.Contains(t, lines, "[DEBUG]")
	assert.Contains(t, lines, "shown 2")
	assert.Contains(t, lines, "[INFO]")
	assert.True(t, strings.Contains(lines, "[ERROR]"))
}
