package weread

import (
	"context"
	"log"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 5 * time.Second
	retryJitterWindow  = 3 * time.Second
)

// RetryPolicy controls how often and how long a failed call is retried.
// Jitter and Sleep are injectable so tests run without real waits.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      func() time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy makes 3 attempts, waiting 5s plus up to 3s of
// clock-derived jitter between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultRetryDelay,
		Jitter:      clockJitter(retryJitterWindow),
		Sleep:       sleepContext,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. The last error is returned unchanged.
func (p RetryPolicy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !isRetryableError(err) || attempt >= attempts || ctx.Err() != nil {
			return err
		}

		delay := p.delay()
		log.Printf("WeRead: %s attempt %d/%d failed: %v, retrying in %s", name, attempt, attempts, err, delay)

		if serr := p.sleep(ctx, delay); serr != nil {
			return err
		}
	}
}

func (p RetryPolicy) delay() time.Duration {
	d := p.BaseDelay
	if p.Jitter != nil {
		d += p.Jitter()
	}
	return d
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

// clockJitter derives jitter from the wall clock, like now_ms % window.
func clockJitter(window time.Duration) func() time.Duration {
	return func() time.Duration {
		ms := window.Milliseconds()
		if ms <= 0 {
			return 0
		}
		return time.Duration(time.Now().UnixMilli()%ms) * time.Millisecond
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
