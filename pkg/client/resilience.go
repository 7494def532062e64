package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/rhuss/respkit/pkg/debug"
	"github.com/rhuss/respkit/pkg/observability"
	"github.com/sony/gobreaker"
)

// RetryConfig controls retries of 429, 5xx and transport failures.
// MaxRetries of zero disables retrying.
type RetryConfig struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	JitterDelay time.Duration
}

// DefaultRetryConfig retries twice with exponential backoff.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:  2,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    8 * time.Second,
	JitterDelay: 250 * time.Millisecond,
}

// BreakerConfig configures the optional circuit breaker. The breaker
// trips after FailureThreshold consecutive failures, or when at least
// MinRequests were seen in Interval and FailureRatio of them failed.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	FailureRatio     float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns breaker settings suitable for a single endpoint.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		FailureRatio:     0.5,
		MinRequests:      10,
	}
}

// retryable reports whether a failed attempt should be tried again.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var re *ResponseError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return !errors.Is(err, ErrMissingID)
}

// breakerFailure reports whether err says something about the endpoint's
// health. Client mistakes such as 404 or 400 do not count.
func breakerFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var re *ResponseError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return true
}

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.FailureThreshold > 0 && counts.ConsecutiveFailures >= cfg.FailureThreshold {
				return true
			}
			if counts.Requests < cfg.MinRequests || counts.Requests == 0 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool { return !breakerFailure(err) },
	})
}

// execute runs attempt under the retry policy and, when configured, the
// circuit breaker. The returned error is the last attempt's error, never a
// retry policy wrapper.
func (c *Client) execute(ctx context.Context, op string, attempt func() (*http.Response, error)) (*http.Response, error) {
	var last error
	tracked := func() (*http.Response, error) {
		resp, err := attempt()
		last = err
		return resp, err
	}

	run := func() (*http.Response, error) {
		resp, err := failsafe.With(c.retryPolicy(op)).WithContext(ctx).Get(tracked)
		if err != nil && last != nil && ctx.Err() == nil {
			err = last
		}
		return resp, err
	}

	if c.breaker == nil {
		return run()
	}
	out, err := c.breaker.Execute(func() (any, error) { return run() })
	if err != nil {
		return nil, err
	}
	return out.(*http.Response), nil
}

// retryAfterDelay returns the server's Retry-After hint, bounded by limit
// when limit is set, or -1 so the configured backoff applies.
func retryAfterDelay(err error, limit time.Duration) time.Duration {
	var re *ResponseError
	if !errors.As(err, &re) || re.RetryAfter <= 0 {
		return -1
	}
	if limit > 0 && re.RetryAfter > limit {
		return limit
	}
	return re.RetryAfter
}

// retryPolicy builds the per-operation policy, counting scheduled retries.
func (c *Client) retryPolicy(op string) retrypolicy.RetryPolicy[*http.Response] {
	cfg := c.retry
	b := retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(_ *http.Response, err error) bool { return retryable(err) }).
		WithMaxRetries(cfg.MaxRetries).
		WithDelayFunc(func(exec failsafe.ExecutionAttempt[*http.Response]) time.Duration {
			return retryAfterDelay(exec.LastError(), cfg.MaxDelay)
		}).
		OnRetry(func(e failsafe.ExecutionEvent[*http.Response]) {
			observability.ClientRetriesTotal.WithLabelValues(op).Inc()
			debug.Log("client", "retrying", "operation", op, "attempt", e.Attempts(), "error", e.LastError())
		})
	switch {
	case cfg.BaseDelay <= 0:
		b = b.WithDelay(0)
	case cfg.MaxDelay > cfg.BaseDelay:
		b = b.WithBackoff(cfg.BaseDelay, cfg.MaxDelay)
	default:
		b = b.WithDelay(cfg.BaseDelay)
	}
	if cfg.JitterDelay > 0 && cfg.JitterDelay < cfg.BaseDelay {
		b = b.WithJitter(cfg.JitterDelay)
	}
	return b.Build()
}
