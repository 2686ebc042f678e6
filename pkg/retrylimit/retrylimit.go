// Package retrylimit paces outbound platform calls with an adaptive rate limit
// and retries them with exponential backoff.
//
// Example usage:
//
//	lim := retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5)
//	err := retrylimit.Do(ctx, lim, retrylimit.DefaultConfig(), func(ctx context.Context) error {
//	    return createCommand(ctx)
//	})
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AdaptiveLimiter is a rate limit that grows on success and shrinks when the
// remote side pushes back.
type AdaptiveLimiter struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	cooldown  time.Duration
	lastError time.Time
	now       func() time.Time
}

// NewAdaptiveLimiter creates a limiter starting at initial requests per second,
// bounded by [min, max]. stepUp is added on success; stepDown multiplies the
// rate on pushback (0.5 halves it).
func NewAdaptiveLimiter(initial, min, max, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if min <= 0 {
		min = 1
	}
	if max < min {
		max = min
	}
	if initial < min {
		initial = min
	}
	if initial > max {
		initial = max
	}
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, burstFor(initial)),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
		cooldown: 10 * time.Second,
		now:      time.Now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Success raises the rate, unless pushback was seen within the cooldown.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.now().Sub(a.lastError) > a.cooldown {
		a.set(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited lowers the rate.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = a.now()
	a.set(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// Limit returns the current requests per second.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.limiter.Limit()
}

func (a *AdaptiveLimiter) set(l rate.Limit) {
	l = max(a.minLimit, min(a.maxLimit, l))
	if l != a.limiter.Limit() {
		a.limiter.SetLimit(l)
		a.limiter.SetBurst(burstFor(l))
	}
}

func burstFor(l rate.Limit) int {
	return max(1, int(l))
}

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// FatalError stops retries immediately.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

// Fatal marks err as not worth retrying.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// Classifier decides whether err is retryable and whether it signals pushback.
type Classifier func(err error) (retry, pushback bool)

// DefaultClassifier retries everything that is not fatal. 429 and 5xx count as
// pushback; other 4xx are treated as fatal.
func DefaultClassifier(err error) (retry, pushback bool) {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return false, false
	}
	code, ok := statusOf(err)
	if !ok {
		return true, false
	}
	switch {
	case code == http.StatusTooManyRequests, code >= 500 && code < 600:
		return true, true
	case code >= 400 && code < 500:
		return false, false
	}
	return true, false
}

func statusOf(err error) (int, bool) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

// Config configures Do.
type Config struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	RateLimitDelay time.Duration
	Multiplier     float64
	Jitter         bool
	Classifier     Classifier
	Logger         *slog.Logger
	OnRetry        func(attempt int, err error)
}

// DefaultConfig returns the settings used for command registration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		RateLimitDelay: time.Second,
		Multiplier:     2.0,
		Jitter:         true,
		Classifier:     DefaultClassifier,
	}
}

// ErrAttemptsExceeded is wrapped into the error Do returns when it gives up.
var ErrAttemptsExceeded = errors.New("max attempts exceeded")

// Do runs fn until it succeeds, returns a non-retryable error, ctx is done, or
// MaxAttempts is reached. lim may be nil.
func Do(ctx context.Context, lim *AdaptiveLimiter, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Classifier == nil {
		cfg.Classifier = DefaultClassifier
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			if lim != nil {
				lim.Success()
			}
			if attempt > 1 {
				logger.Debug("retry succeeded", "attempt", attempt)
			}
			return nil
		}
		lastErr = err

		retry, pushback := cfg.Classifier(err)
		if !retry {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		wait := delay
		if pushback {
			if lim != nil {
				lim.RateLimited()
			}
			wait = max(wait, cfg.RateLimitDelay)
		}
		if cfg.Jitter {
			wait = addJitter(wait)
		}
		logger.Warn("request failed, retrying", "attempt", attempt, "pushback", pushback, "sleep", wait, "error", err)

		if err := sleep(ctx, wait); err != nil {
			return err
		}
		delay = min(time.Duration(float64(delay)*cfg.Multiplier), cfg.MaxDelay)
	}

	return fmt.Errorf("%w (%d): %w", ErrAttemptsExceeded, cfg.MaxAttempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// addJitter adds up to 25% to delay.
func addJitter(delay time.Duration) time.Duration {
	if delay < 4 {
		return delay
	}
	return delay + rand.N(delay/4)
}
