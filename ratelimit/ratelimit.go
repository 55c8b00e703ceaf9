// Package ratelimit implements tiered fixed-window request quotas. Three
// independent counters cover unauthenticated, authenticated, and bulk traffic;
// exhausting one tier never blocks another. Counters are per-process: construct
// one Limiter at the composition root and inject it, never share a package
// singleton.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLimited is returned by Check when the tier's window budget is spent.
// The accompanying Result still carries limit, remaining, and reset so the
// caller can emit informational headers on the 429 path.
var ErrLimited = errors.New("rate limited")

// Tier selects which quota counter a request consumes.
type Tier string

const (
	// TierUnauthenticated covers requests with no valid bearer token.
	TierUnauthenticated Tier = "unauthenticated"
	// TierAuthenticated covers requests made by a verified principal.
	TierAuthenticated Tier = "authenticated"
	// TierBulk covers export/import/bulk paths regardless of auth state.
	TierBulk Tier = "bulk"
)

// Quota is the budget for one tier: Limit requests per Window.
type Quota struct {
	Limit  int
	Window time.Duration
}

// DefaultQuotas returns per-minute budgets suitable for a single API
// instance: a low unauthenticated ceiling, a higher authenticated one,
// and the lowest ceiling for bulk operations.
func DefaultQuotas() map[Tier]Quota {
	return map[Tier]Quota{
		TierUnauthenticated: {Limit: 100, Window: time.Minute},
		TierAuthenticated:   {Limit: 600, Window: time.Minute},
		TierBulk:            {Limit: 10, Window: time.Minute},
	}
}

// Result reports the state of a tier's window after a Check call. It is
// populated on both the allowed and the limited path.
type Result struct {
	// Limit is the tier's budget per window.
	Limit int
	// Remaining is the number of requests left in the current window.
	Remaining int
	// Reset is when the current window ends and the counter replenishes.
	Reset time.Time
	// RetryAfter is how long the caller should wait before retrying.
	// Zero when the request was allowed.
	RetryAfter time.Duration
}

type window struct {
	start time.Time
	count int
}

// Limiter holds one fixed-window counter per tier behind a single mutex.
// Contention is a map lookup and an integer increment, short enough for the
// request path.
type Limiter struct {
	mu      sync.Mutex
	quotas  map[Tier]Quota
	windows map[Tier]*window
	now     func() time.Time
}

// New creates a Limiter with the given per-tier quotas. Every tier must have
// a positive limit and window.
func New(quotas map[Tier]Quota) (*Limiter, error) {
	if len(quotas) == 0 {
		return nil, errors.New("ratelimit: no quotas configured")
	}
	qs := make(map[Tier]Quota, len(quotas))
	ws := make(map[Tier]*window, len(quotas))
	for tier, q := range quotas {
		if q.Limit <= 0 {
			return nil, fmt.Errorf("ratelimit: tier %q: limit must be positive", tier)
		}
		if q.Window <= 0 {
			return nil, fmt.Errorf("ratelimit: tier %q: window must be positive", tier)
		}
		qs[tier] = q
		ws[tier] = &window{}
	}
	return &Limiter{quotas: qs, windows: ws, now: time.Now}, nil
}

// Check consumes one unit of the tier's budget. It returns ErrLimited when
// the window is exhausted; the Result is valid either way.
func (l *Limiter) Check(tier Tier) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.quotas[tier]
	if !ok {
		return Result{}, fmt.Errorf("ratelimit: unknown tier %q", tier)
	}
	w := l.windows[tier]

	now := l.now()
	if w.start.IsZero() || now.Sub(w.start) >= q.Window {
		w.start = now
		w.count = 0
	}
	reset := w.start.Add(q.Window)

	if w.count >= q.Limit {
		return Result{
			Limit:      q.Limit,
			Remaining:  0,
			Reset:      reset,
			RetryAfter: reset.Sub(now),
		}, ErrLimited
	}

	w.count++
	return Result{
		Limit:     q.Limit,
		Remaining: q.Limit - w.count,
		Reset:     reset,
	}, nil
}

// Quota returns the configured budget for a tier and whether it exists.
func (l *Limiter) Quota(tier Tier) (Quota, bool) {
	q, ok := l.quotas[tier]
	return q, ok
}
