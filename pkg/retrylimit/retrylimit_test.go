package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

func fastConfig(attempts int) Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	cfg.RateLimitDelay = time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), nil, fastConfig(5), func(context.Context) error {
		calls++
		if calls < 3 {
			return statusErr(503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), nil, fastConfig(3), func(context.Context) error {
		calls++
		return errors.New("flaky")
	})
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrAttemptsExceeded)
	assert.ErrorContains(t, err, "flaky")
}

func TestDo_StopsOnFatalAndClientErrors(t *testing.T) {
	for _, fail := range []error{Fatal(errors.New("bad")), statusErr(400), fmt.Errorf("wrapped: %w", statusErr(403))} {
		calls := 0
		err := Do(context.Background(), nil, fastConfig(5), func(context.Context) error {
			calls++
			return fail
		})
		assert.Equal(t, 1, calls, fail.Error())
		assert.ErrorIs(t, err, fail)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Do(ctx, nil, fastConfig(3), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDo_PushbackLowersLimit(t *testing.T) {
	lim := NewAdaptiveLimiter(8, 1, 10, 1, 0.5)
	calls := 0
	err := Do(context.Background(), lim, fastConfig(3), func(context.Context) error {
		calls++
		if calls == 1 {
			return statusErr(429)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, rate.Limit(4), lim.Limit())
}

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	lim := NewAdaptiveLimiter(2, 1, 3, 1, 0.1)
	lim.RateLimited()
	assert.Equal(t, rate.Limit(1), lim.Limit())

	lim.lastError = time.Time{}
	for i := 0; i < 5; i++ {
		lim.Success()
	}
	assert.Equal(t, rate.Limit(3), lim.Limit())
}

func TestAdaptiveLimiter_SuccessHeldDuringCooldown(t *testing.T) {
	lim := NewAdaptiveLimiter(4, 1, 10, 1, 0.5)
	lim.RateLimited()
	lim.Success()
	assert.Equal(t, rate.Limit(2), lim.Limit())
}

func TestDefaultClassifier(t *testing.T) {
	retry, push := DefaultClassifier(statusErr(500))
	assert.True(t, retry)
	assert.True(t, push)

	retry, push = DefaultClassifier(errors.New("dial tcp: timeout"))
	assert.True(t, retry)
	assert.False(t, push)

	retry, _ = DefaultClassifier(statusErr(404))
	assert.False(t, retry)
}
