package resilience

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/NathanNam/caltrain-commuter-app/errors"
)

// Attempt describes a failed attempt that is about to be retried.
type Attempt struct {
	// Index is the 0-based index of the failed attempt.
	Index int
	// Delay is the backoff before the next attempt.
	Delay time.Duration
	// Kind is the error kind of the failure.
	Kind string
}

// RetryPolicy configures retry behavior.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	// BaseDelay is the backoff before the first retry.
	BaseDelay time.Duration `mapstructure:"base_delay"`
	// MaxDelay caps every backoff, jitter included.
	MaxDelay time.Duration `mapstructure:"max_delay"`
	// BackoffMultiplier is the exponential growth factor.
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
	// RetryableStatusCodes lists the upstream HTTP statuses worth retrying.
	RetryableStatusCodes []int `mapstructure:"retryable_status_codes"`
	// RetryableKinds lists the error kinds worth retrying.
	RetryableKinds []string `mapstructure:"retryable_kinds"`
	// OnRetry is called before each backoff sleep.
	OnRetry func(a Attempt, err error) `mapstructure:"-"`

	rand  func() float64
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the default policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:           3,
		BaseDelay:            time.Second,
		MaxDelay:             30 * time.Second,
		BackoffMultiplier:    2,
		RetryableStatusCodes: []int{429, 502, 503, 504},
		RetryableKinds: []string{
			errors.ErrCodeConnectionReset.Kind(),
			errors.ErrCodeHostNotFound.Kind(),
			errors.ErrCodeConnectionRefused.Kind(),
			errors.ErrCodeTimeout.Kind(),
		},
	}
}

// ApplyDefaults fills zero fields from DefaultRetryPolicy. MaxRetries is
// left alone since zero is a valid setting.
func (p *RetryPolicy) ApplyDefaults() {
	d := DefaultRetryPolicy()
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.BackoffMultiplier <= 0 {
		p.BackoffMultiplier = d.BackoffMultiplier
	}
	if p.RetryableStatusCodes == nil {
		p.RetryableStatusCodes = d.RetryableStatusCodes
	}
	if p.RetryableKinds == nil {
		p.RetryableKinds = d.RetryableKinds
	}
}

// IsRetryable reports whether err should be retried under p.
// Breaker rejections and cancellations never are.
func (p RetryPolicy) IsRetryable(err error) bool {
	switch errors.CodeOf(err) {
	case "", errors.ErrCodeCircuitOpen, errors.ErrCodeCanceled:
		return false
	case errors.ErrCodeHTTPStatus:
		return slices.Contains(p.RetryableStatusCodes, errors.StatusCodeOf(err))
	}
	return slices.Contains(p.RetryableKinds, errors.KindOf(err))
}

// Backoff returns the delay after the failed attempt with 0-based index n.
func (p RetryPolicy) Backoff(n int) time.Duration {
	random := p.rand
	if random == nil {
		random = rand.Float64
	}
	base := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(n))
	d := base + random()*0.1*base
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

// Retry executes fn until it succeeds, fails with a non-retryable error, or
// MaxRetries retries are used up. The error of the final attempt is returned
// as is.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func() (T, error)) (T, error) {
	var zero T
	p.ApplyDefaults()
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, contextError(err)
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		if attempt >= p.MaxRetries || !p.IsRetryable(err) {
			return zero, err
		}

		delay := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(Attempt{Index: attempt, Delay: delay, Kind: errors.KindOf(err)}, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, contextError(err)
		}
	}
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, p RetryPolicy, fn func() error) error {
	_, err := Retry(ctx, p, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func contextError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Timeout("fetch", err)
	}
	return errors.Canceled("fetch", err)
}
