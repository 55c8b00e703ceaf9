// Package activity tracks per-principal last-seen timestamps to enforce
// idle-session timeouts. It is defense-in-depth on top of token expiry, not a
// security boundary by itself: a stale record denies a request even when the
// bearer token is still cryptographically valid.
package activity

import (
	"context"
	"sync"
	"time"
)

// Tracker records and queries session activity. Implementations must be safe
// for concurrent use from the request-handling pool.
type Tracker interface {
	// Track records activity for the principal at the current time.
	Track(ctx context.Context, principalID string) error
	// IsActive reports whether the principal has been seen within the idle
	// timeout. Absence of a record means inactive.
	IsActive(ctx context.Context, principalID string) (bool, error)
	// Invalidate removes the principal's record, e.g. on logout.
	Invalidate(ctx context.Context, principalID string) error
	// Sweep removes records older than the idle timeout. Intended for a
	// periodic trigger, not the request path.
	Sweep(ctx context.Context) error
}

// MemoryTracker is the single-process Tracker: a mutex-guarded map of
// last-activity timestamps. Construct one per composition root; never share a
// process-wide singleton.
type MemoryTracker struct {
	mu          sync.Mutex
	lastSeen    map[string]time.Time
	idleTimeout time.Duration
	now         func() time.Time
}

// NewMemoryTracker creates a tracker with the given idle timeout.
func NewMemoryTracker(idleTimeout time.Duration) *MemoryTracker {
	return &MemoryTracker{
		lastSeen:    make(map[string]time.Time),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Track records the principal as active now.
func (t *MemoryTracker) Track(_ context.Context, principalID string) error {
	if principalID == "" {
		return nil
	}
	t.mu.Lock()
	t.lastSeen[principalID] = t.now()
	t.mu.Unlock()
	return nil
}

// IsActive reports whether the principal was seen within the idle timeout.
func (t *MemoryTracker) IsActive(_ context.Context, principalID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen, ok := t.lastSeen[principalID]
	if !ok {
		return false, nil
	}
	return t.now().Sub(seen) < t.idleTimeout, nil
}

// Invalidate drops the principal's record.
func (t *MemoryTracker) Invalidate(_ context.Context, principalID string) error {
	t.mu.Lock()
	delete(t.lastSeen, principalID)
	t.mu.Unlock()
	return nil
}

// Sweep removes every record older than the idle timeout and returns nil.
func (t *MemoryTracker) Sweep(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.idleTimeout)
	for id, seen := range t.lastSeen {
		if !seen.After(cutoff) {
			delete(t.lastSeen, id)
		}
	}
	return nil
}

// Len returns the number of tracked principals.
func (t *MemoryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSeen)
}
