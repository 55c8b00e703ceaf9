package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBackendUnavailable indicates the shared activity store is unreachable.
var ErrBackendUnavailable = errors.New("activity backend unavailable")

// RedisTracker is the multi-instance Tracker variant: last-activity is a
// Redis key with the idle timeout as TTL, so expiry doubles as the sweep.
// Choose it at composition time when the API runs more than one replica.
type RedisTracker struct {
	client      redis.UniversalClient
	prefix      string
	idleTimeout time.Duration
}

// NewRedisTracker creates a tracker on the given client. prefix namespaces
// the keys; "sa" is used when empty.
func NewRedisTracker(client redis.UniversalClient, prefix string, idleTimeout time.Duration) *RedisTracker {
	if prefix == "" {
		prefix = "sa"
	}
	return &RedisTracker{client: client, prefix: prefix, idleTimeout: idleTimeout}
}

func (t *RedisTracker) key(principalID string) string {
	return t.prefix + ":" + principalID
}

// Track sets the principal's key with the idle timeout as TTL.
func (t *RedisTracker) Track(ctx context.Context, principalID string) error {
	if principalID == "" {
		return nil
	}
	if err := t.client.Set(ctx, t.key(principalID), time.Now().Unix(), t.idleTimeout).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// IsActive reports whether the principal's key still exists.
func (t *RedisTracker) IsActive(ctx context.Context, principalID string) (bool, error) {
	n, err := t.client.Exists(ctx, t.key(principalID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return n > 0, nil
}

// Invalidate deletes the principal's key.
func (t *RedisTracker) Invalidate(ctx context.Context, principalID string) error {
	if err := t.client.Del(ctx, t.key(principalID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Sweep is a no-op: key TTLs already reap idle records.
func (t *RedisTracker) Sweep(context.Context) error { return nil }
