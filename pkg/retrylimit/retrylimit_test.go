package retrylimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr int

func (e statusErr) Error() string { return "status" }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.RateLimitDelay = time.Millisecond
	cfg.Jitter = false
	cfg.InitialRate, cfg.MinRate, cfg.MaxRate = 1000, 1, 1000
	cfg.Status = func(err error) (int, bool) {
		var s statusErr
		if errors.As(err, &s) {
			return int(s), true
		}
		return 0, false
	}
	return cfg
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	r := New(testConfig(), zerolog.Nop())
	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return statusErr(503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnClientErrorAndPermanent(t *testing.T) {
	r := New(testConfig(), zerolog.Nop())

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return statusErr(403)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	calls = 0
	err = r.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(boom)
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDo_GivesUp(t *testing.T) {
	r := New(testConfig(), zerolog.Nop())
	err := r.Do(context.Background(), func(context.Context) error { return errors.New("flaky") })
	require.ErrorIs(t, err, ErrAttempts)
}

func TestDo_RateLimitThrottles(t *testing.T) {
	r := New(testConfig(), zerolog.Nop())
	before := r.Limiter().Limit()
	calls := 0
	require.NoError(t, r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return statusErr(429)
		}
		return nil
	}))
	assert.Less(t, r.Limiter().Limit(), before)
}

func TestDo_ContextCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.InitialDelay = time.Hour
	r := New(cfg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	err := r.Do(ctx, func(context.Context) error {
		cancel()
		return errors.New("flaky")
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestLimiter_Bounds(t *testing.T) {
	l := NewLimiter(4, 2, 6, 1, 0.5)
	l.Throttled()
	assert.Equal(t, 2.0, l.Limit())
	l.Throttled()
	assert.Equal(t, 2.0, l.Limit(), "never below min")

	l.lastError = time.Time{}
	for i := 0; i < 10; i++ {
		l.Success()
	}
	assert.Equal(t, 6.0, l.Limit(), "never above max")
}
