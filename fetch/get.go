package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/NathanNam/caltrain-commuter-app/cache"
	"github.com/NathanNam/caltrain-commuter-app/errors"
	"github.com/NathanNam/caltrain-commuter-app/httpclient"
	"github.com/NathanNam/caltrain-commuter-app/logger"
	"github.com/NathanNam/caltrain-commuter-app/observability"
	"github.com/NathanNam/caltrain-commuter-app/resilience"
)

// Outcome values of the fetch.outcome counter.
const (
	OutcomeSuccess          = "success"
	OutcomeRetryableFailure = "retryable_failure"
	OutcomeTerminalFailure  = "terminal_failure"
	OutcomeCircuitRejected  = "circuit_rejected"
)

// Options configures a single Get call. Nil policy pointers fall back to
// the orchestrator defaults.
type Options[T any] struct {
	// Upstream names the breaker. Defaults to the URL host.
	Upstream string
	// CacheKey enables caching when non-empty.
	CacheKey string
	// Cache sets the entry TTL and stale window.
	Cache cache.EntryConfig
	// Retry overrides the retry policy.
	Retry *resilience.RetryPolicy
	// Breaker is used when the upstream's breaker is first created.
	Breaker *resilience.CircuitBreakerConfig
	// Parser decodes the body. Defaults to JSON.
	Parser Parser[T]
	// Validate checks the decoded value against its struct tags. Only
	// applies to the default parser.
	Validate bool
	// Headers are sent with every attempt.
	Headers map[string]string
}

// Get fetches url and decodes the body into T through the cache, retry,
// breaker, transport and parser layers.
func Get[T any](ctx context.Context, o *Orchestrator, rawURL string, opts Options[T]) (T, error) {
	upstream := opts.Upstream
	if upstream == "" {
		upstream = hostOf(rawURL)
	}
	policy := o.retry
	if opts.Retry != nil {
		policy = *opts.Retry
		policy.ApplyDefaults()
	}

	callID := o.newCallID()
	ctx = logger.ContextWithCallID(ctx, callID)
	ctx, span := observability.StartSpan(ctx, observability.SpanFetch, trace.WithAttributes(
		attribute.String(observability.AttrUpstream, upstream),
		attribute.String(observability.AttrURL, rawURL),
		attribute.String(observability.AttrCallID, callID),
	))
	defer span.End()

	start := o.now()
	var (
		result T
		err    error
	)
	if opts.CacheKey == "" {
		result, err = attempt(ctx, o, rawURL, upstream, policy, opts)
	} else {
		span.SetAttributes(attribute.String(observability.AttrCacheKey, opts.CacheKey))
		result, err = cached(ctx, o, rawURL, upstream, policy, opts)
	}

	outcome := classifyOutcome(policy, err)
	labels := map[string]string{"upstream": upstream}
	o.sink.Record(ctx, observability.MetricFetchDuration, float64(o.now().Sub(start))/float64(time.Millisecond), labels)
	o.sink.Add(ctx, observability.MetricFetchOutcome, 1, map[string]string{"upstream": upstream, "outcome": outcome})
	span.SetAttributes(attribute.String(observability.AttrOutcome, outcome))

	if err != nil {
		observability.SetSpanError(span, err)
		o.log.WithContext(ctx).Warn("fetch failed", logger.MergeWithError(logger.Fields(
			logger.FieldUpstream, upstream,
			"outcome", outcome,
		), err))
		var zero T
		return zero, err
	}
	return result, nil
}

func cached[T any](ctx context.Context, o *Orchestrator, rawURL, upstream string, policy resilience.RetryPolicy, opts Options[T]) (T, error) {
	var zero T
	v, err := o.cache.Get(ctx, opts.CacheKey, func(ctx context.Context) (any, error) {
		return attempt(ctx, o, rawURL, upstream, policy, opts)
	}, opts.Cache)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, errors.Validation(fmt.Sprintf("cached value for %q is %T, not %T", opts.CacheKey, v, zero)).
			WithDetail("cache_key", opts.CacheKey).
			WithUpstream(upstream)
	}
	return typed, nil
}

// attempt runs the retry, breaker, transport and parser layers.
func attempt[T any](ctx context.Context, o *Orchestrator, rawURL, upstream string, policy resilience.RetryPolicy, opts Options[T]) (T, error) {
	parse := opts.Parser
	if parse == nil {
		parse = JSON[T](opts.Validate)
	}
	breakerCfg := o.breaker
	if opts.Breaker != nil {
		breakerCfg = *opts.Breaker
	}
	cb := o.breakers.Get(upstream, breakerCfg)

	hook := policy.OnRetry
	policy.OnRetry = func(a resilience.Attempt, err error) {
		o.sink.Add(ctx, observability.MetricFetchRetry, 1, map[string]string{
			"upstream":   upstream,
			"attempt":    strconv.Itoa(a.Index + 1),
			"error_kind": a.Kind,
		})
		o.log.WithContext(ctx).Debug("retrying", logger.MergeWithError(logger.Fields(
			logger.FieldUpstream, upstream,
			logger.FieldAttempt, a.Index+1,
			"delay_ms", a.Delay.Milliseconds(),
		), err))
		if hook != nil {
			hook(a, err)
		}
	}

	return resilience.Retry(ctx, policy, func() (T, error) {
		return resilience.ExecuteValue(cb, func() (T, error) {
			var zero T
			resp, err := o.transport.Do(ctx, httpclient.Request{
				Method:  http.MethodGet,
				URL:     rawURL,
				Headers: opts.Headers,
			})
			if err != nil {
				return zero, tagUpstream(err, upstream, func(err error) *errors.AppError {
					return errors.Transport(errors.ErrCodeTransport, err)
				})
			}
			v, err := parse(resp.Body)
			if err != nil {
				return zero, tagUpstream(err, upstream, func(err error) *errors.AppError {
					return errors.Parse("response body", err)
				})
			}
			return v, nil
		})
	})
}

// classifyOutcome maps the final error of a call to its outcome label.
func classifyOutcome(policy resilience.RetryPolicy, err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.IsCircuitOpen(err):
		return OutcomeCircuitRejected
	case policy.IsRetryable(err):
		return OutcomeRetryableFailure
	default:
		return OutcomeTerminalFailure
	}
}

// tagUpstream attributes err to upstream. Errors outside the taxonomy are
// wrapped by wrap first.
func tagUpstream(err error, upstream string, wrap func(error) *errors.AppError) error {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return wrap(err).WithUpstream(upstream)
	}
	if appErr.Upstream == "" {
		appErr.Upstream = upstream
	}
	return err
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
