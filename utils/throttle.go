package utils

import (
	"context"
	"time"
)

// Throttle caps API calls per minute and sleeps a fixed delay before every call.
// It mirrors the quota handling of the spreadsheet uploader: a counter that resets
// every minute, not a token bucket.
type Throttle struct {
	maxPerMinute int
	delay        time.Duration
	logger       *Logger

	count      int
	windowFrom time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewThrottle creates a throttle allowing maxPerMinute calls with delayMs between them
func NewThrottle(maxPerMinute, delayMs int, logger *Logger) *Throttle {
	if maxPerMinute <= 0 {
		maxPerMinute = 60
	}
	return &Throttle{
		maxPerMinute: maxPerMinute,
		delay:        time.Duration(delayMs) * time.Millisecond,
		logger:       logger,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Wait accounts for one request, blocking when the per-minute quota is used up
func (t *Throttle) Wait(ctx context.Context) error {
	now := t.now()
	if t.windowFrom.IsZero() {
		t.windowFrom = now
	}
	t.count++

	if now.Sub(t.windowFrom) >= time.Minute {
		t.count = 1
		t.windowFrom = now
	}

	if t.count >= t.maxPerMinute {
		remaining := time.Minute - now.Sub(t.windowFrom)
		if remaining > 0 {
			t.logger.Info("API quota reached, waiting %.1fs", remaining.Seconds())
			if err := t.sleep(ctx, remaining); err != nil {
				return err
			}
		}
		t.count = 1
		t.windowFrom = t.now()
	}

	return t.sleep(ctx, t.delay)
}

// Count returns the number of calls accounted in the current window
func (t *Throttle) Count() int {
	return t.count
}
