// Package retrylimit sends outbound requests (replies, typing indicators)
// through an adaptive rate limiter and retries the ones the remote side
// rejected for load reasons.
//
//	r := retrylimit.New(retrylimit.DefaultConfig(), logger)
//	err := r.Do(ctx, func(ctx context.Context) error {
//	    _, err := session.ChannelMessageSend(channelID, text)
//	    return err
//	})
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Limiter is a token bucket whose rate grows after successes and shrinks
// after rate-limit responses, between Min and Max requests per second.
type Limiter struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	min, max  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	calm      time.Duration
	lastError time.Time
	now       func() time.Time
}

// NewLimiter returns a limiter starting at initial requests per second.
// stepDown multiplies the rate after a failure (0.5 halves it).
func NewLimiter(initial, min, max, stepUp rate.Limit, stepDown float64) *Limiter {
	min = max1(min)
	initial = max1(initial)
	if max < min {
		max = min
	}
	return &Limiter{
		limiter:  rate.NewLimiter(initial, int(initial)),
		min:      min,
		max:      max,
		stepUp:   stepUp,
		stepDown: stepDown,
		calm:     10 * time.Second,
		now:      time.Now,
	}
}

func max1(l rate.Limit) rate.Limit {
	if l < 1 {
		return 1
	}
	return l
}

func (l *Limiter) Wait(ctx context.Context) error { return l.limiter.Wait(ctx) }

// Success raises the rate unless a failure happened recently.
func (l *Limiter) Success() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.now().Sub(l.lastError) > l.calm {
		l.set(l.limiter.Limit() + l.stepUp)
	}
}

// Throttled lowers the rate.
func (l *Limiter) Throttled() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastError = l.now()
	l.set(rate.Limit(float64(l.limiter.Limit()) * l.stepDown))
}

// Limit returns the current requests per second.
func (l *Limiter) Limit() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return float64(l.limiter.Limit())
}

func (l *Limiter) set(limit rate.Limit) {
	limit = min(max(limit, l.min), l.max)
	if limit != l.limiter.Limit() {
		l.limiter.SetLimit(limit)
		l.limiter.SetBurst(max(1, int(limit)))
	}
}

// PermanentError stops retries immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// ErrAttempts is returned when every attempt failed.
var ErrAttempts = errors.New("max attempts exceeded")

// StatusFunc extracts an HTTP status code from a transport error.
type StatusFunc func(error) (int, bool)

type Config struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	RateLimitDelay time.Duration
	Multiplier     float64
	Jitter         bool
	// Status classifies errors; without it every error is retried with
	// backoff and nothing counts as a rate limit.
	Status StatusFunc

	InitialRate, MinRate, MaxRate rate.Limit
}

// DefaultConfig suits chat replies: a few quick attempts.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    4,
		InitialDelay:   250 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		RateLimitDelay: time.Second,
		Multiplier:     2,
		Jitter:         true,
		InitialRate:    5,
		MinRate:        1,
		MaxRate:        20,
	}
}

// Retrier runs requests through a shared Limiter.
type Retrier struct {
	cfg Config
	lim *Limiter
	log zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	return &Retrier{
		cfg: cfg,
		lim: NewLimiter(cfg.InitialRate, cfg.MinRate, cfg.MaxRate, 1, 0.5),
		log: log.With().Str("component", "retrylimit").Logger(),
	}
}

func (r *Retrier) Limiter() *Limiter { return r.lim }

// Do calls fn until it succeeds, returns a PermanentError, ctx ends or the
// attempts run out.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := r.cfg.InitialDelay
	var last error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := r.lim.Wait(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			r.lim.Success()
			if attempt > 1 {
				r.log.Debug().Int("attempt", attempt).Float64("rps", r.lim.Limit()).Msg("[Retry] success after retries")
			}
			return nil
		}
		last = err

		var perm *PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		wait := delay
		switch code := r.status(err); {
		case code == http.StatusTooManyRequests:
			r.lim.Throttled()
			wait = r.cfg.RateLimitDelay
			r.log.Warn().Int("attempt", attempt).Float64("rps", r.lim.Limit()).Msg("[Retry] rate limited")
		case code >= 500 && code < 600:
			r.lim.Throttled()
			r.log.Warn().Err(err).Int("attempt", attempt).Dur("sleep", wait).Msg("[Retry] server error")
		case code >= 400:
			return err
		default:
			r.log.Warn().Err(err).Int("attempt", attempt).Dur("sleep", wait).Msg("[Retry] request failed")
		}

		if r.cfg.Jitter {
			wait = jitter(wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		delay = min(time.Duration(float64(delay)*r.cfg.Multiplier), r.cfg.MaxDelay)
	}
	return fmt.Errorf("%w (%d): %w", ErrAttempts, r.cfg.MaxAttempts, last)
}

func (r *Retrier) status(err error) int {
	if r.cfg.Status == nil {
		return 0
	}
	if code, ok := r.cfg.Status(err); ok {
		return code
	}
	return 0
}

// jitter adds up to 25% to d.
func jitter(d time.Duration) time.Duration {
	if d < 4 {
		return d
	}
	return d + time.Duration(rand.Int64N(int64(d/4)))
}
