package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether an identity may make another request. When it
// refuses, retryAfter says how long the caller should wait.
type Limiter interface {
	Allow(ctx context.Context, id *Identity) (retryAfter time.Duration, err error)
}

// TierLimit is the sustained rate and burst of one service tier. A zero
// RequestsPerMinute means unlimited.
type TierLimit struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// TokenBucketLimiter keeps one token bucket per subject and tier in memory.
type TokenBucketLimiter struct {
	tiers    map[string]TierLimit
	fallback TierLimit

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewTokenBucketLimiter limits each tier as configured; tiers missing from
// the map use fallback.
func NewTokenBucketLimiter(tiers map[string]TierLimit, fallback TierLimit) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		tiers:    tiers,
		fallback: fallback,
		buckets:  make(map[string]*rate.Limiter),
	}
}

func (l *TokenBucketLimiter) Allow(_ context.Context, id *Identity) (time.Duration, error) {
	tier := id.TierOrDefault()
	limit, ok := l.tiers[tier]
	if !ok {
		limit = l.fallback
	}
	if limit.RequestsPerMinute <= 0 {
		return 0, nil
	}

	b := l.bucket(id.Subject+"/"+tier, limit)
	res := b.Reserve()
	if d := res.Delay(); d > 0 {
		res.Cancel()
		return d, ErrTooManyRequests
	}
	return 0, nil
}

func (l *TokenBucketLimiter) bucket(key string, limit TierLimit) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	burst := limit.Burst
	if burst <= 0 {
		burst = limit.RequestsPerMinute
	}
	b := rate.NewLimiter(rate.Every(time.Minute/time.Duration(limit.RequestsPerMinute)), burst)
	l.buckets[key] = b
	return b
}
