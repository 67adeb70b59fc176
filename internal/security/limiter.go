// Package security tracks authentication failures and throttles login
// traffic. It is the only shared mutable state in the auth core; all access
// goes through a single mutex so concurrent attempts see a consistent
// window.
package security

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrLockedOut means the account accumulated too many recent failures.
	ErrLockedOut = errors.New("security: account locked out")
	// ErrThrottled means the origin is sending attempts faster than allowed.
	ErrThrottled = errors.New("security: origin throttled")
)

const (
	defaultMaxFailures = 5
	defaultLockout     = 30 * time.Minute
	defaultOriginRate  = rate.Limit(10.0 / 60.0) // 10 attempts per minute
	defaultOriginBurst = 10
)

// Limiter combines a per-username failure window with lockout and a
// per-origin token bucket.
type Limiter struct {
	mu          sync.Mutex
	maxFailures int
	lockout     time.Duration
	failures    map[string][]time.Time
	locked      map[string]time.Time
	origins     map[string]*originBucket
	originRate  rate.Limit
	originBurst int
	now         func() time.Time
}

type originBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// LimiterOption configures Limiter behavior.
type LimiterOption func(*Limiter)

// WithMaxFailures sets how many failures inside the lockout window trigger
// a lockout.
func WithMaxFailures(n int) LimiterOption {
	return func(l *Limiter) {
		if n > 0 {
			l.maxFailures = n
		}
	}
}

// WithLockout sets both the failure window and the lockout duration.
func WithLockout(d time.Duration) LimiterOption {
	return func(l *Limiter) {
		if d > 0 {
			l.lockout = d
		}
	}
}

// WithOriginRate sets the per-origin token bucket parameters.
func WithOriginRate(r rate.Limit, burst int) LimiterOption {
	return func(l *Limiter) {
		if r > 0 && burst > 0 {
			l.originRate = r
			l.originBurst = burst
		}
	}
}

// WithNow overrides the clock, for tests.
func WithNow(fn func() time.Time) LimiterOption {
	return func(l *Limiter) {
		if fn != nil {
			l.now = fn
		}
	}
}

func NewLimiter(opts ...LimiterOption) *Limiter {
	l := &Limiter{
		maxFailures: defaultMaxFailures,
		lockout:     defaultLockout,
		failures:    make(map[string][]time.Time),
		locked:      make(map[string]time.Time),
		origins:     make(map[string]*originBucket),
		originRate:  defaultOriginRate,
		originBurst: defaultOriginBurst,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether an authentication attempt may proceed. The lockout
// check runs first so a locked account cannot probe the origin budget.
func (l *Limiter) Allow(username, origin string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()

	if until, ok := l.locked[username]; ok {
		if now.Before(until) {
			return ErrLockedOut
		}
		delete(l.locked, username)
		delete(l.failures, username)
	}

	if origin != "" {
		b, ok := l.origins[origin]
		if !ok {
			b = &originBucket{lim: rate.NewLimiter(l.originRate, l.originBurst)}
			l.origins[origin] = b
		}
		b.seen = now
		if !b.lim.AllowN(now, 1) {
			return ErrThrottled
		}
	}
	return nil
}

// Fail records a failed attempt. It returns true when the failure tips the
// account into lockout, so the caller can audit the lockout once.
func (l *Limiter) Fail(username string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cutoff := now.Add(-l.lockout)

	kept := l.failures[username][:0]
	for _, ts := range l.failures[username] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	l.failures[username] = kept

	if len(kept) >= l.maxFailures {
		if _, already := l.locked[username]; !already {
			l.locked[username] = now.Add(l.lockout)
			return true
		}
	}
	return false
}

// Reset clears failure state after a successful authentication.
func (l *Limiter) Reset(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, username)
	delete(l.locked, username)
}

// Sweep drops origin buckets idle longer than ttl, expired lockouts, and
// failure windows that no longer hold a countable entry. Callers run it
// periodically to bound memory under adversarial login traffic.
func (l *Limiter) Sweep(ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, b := range l.origins {
		if now.Sub(b.seen) > ttl {
			delete(l.origins, k)
		}
	}
	for u, until := range l.locked {
		if !now.Before(until) {
			delete(l.locked, u)
			delete(l.failures, u)
		}
	}
	cutoff := now.Add(-l.lockout)
	for u, stamps := range l.failures {
		kept := stamps[:0]
		for _, ts := range stamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(l.failures, u)
			continue
		}
		l.failures[u] = kept
	}
}
