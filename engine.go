package securecore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/caredesk/securecore/activity"
	"github.com/caredesk/securecore/audit"
	"github.com/caredesk/securecore/fieldcrypt"
	"github.com/caredesk/securecore/password"
	"github.com/caredesk/securecore/policy"
	"github.com/caredesk/securecore/ratelimit"
	"github.com/caredesk/securecore/token"
)

// Engine orchestrates the credential flows: login with lockout and MFA,
// token refresh, logout, and request authentication. Configure it through
// [New] and treat it as immutable once built.
type Engine struct {
	config   Config
	users    UserStore
	tokens   *token.Service
	hasher   *password.Hasher
	cipher   *fieldcrypt.Cipher
	policy   policy.Enforcer
	activity activity.Tracker
	limiter  *ratelimit.Limiter
	audit    *audit.Recorder
	metrics  *Metrics
	totp     *totpManager
	log      *slog.Logger
	now      func() time.Time
}

// Close drains the audit buffer and stops its goroutine.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Tokens exposes the token service for callers that validate tokens outside
// the Engine, e.g. middleware on a read-only replica.
func (e *Engine) Tokens() *token.Service {
	if e == nil {
		return nil
	}
	return e.tokens
}

// FieldCipher exposes the field-encryption primitive built from the
// configured key.
func (e *Engine) FieldCipher() *fieldcrypt.Cipher {
	if e == nil {
		return nil
	}
	return e.cipher
}

// RateLimiter exposes the tiered limiter for the HTTP middleware.
func (e *Engine) RateLimiter() *ratelimit.Limiter {
	if e == nil {
		return nil
	}
	return e.limiter
}

// Check consumes one unit of the tier's rate budget and counts limited
// requests in the engine metrics.
func (e *Engine) Check(tier ratelimit.Tier) (ratelimit.Result, error) {
	if e == nil || e.limiter == nil {
		return ratelimit.Result{}, ErrEngineNotReady
	}
	result, err := e.limiter.Check(tier)
	if errors.Is(err, ratelimit.ErrLimited) {
		e.metricInc(MetricRateLimitHit)
	}
	return result, err
}

// Audit enqueues an entry on the engine's recorder, filling the source
// address, user agent, and correlation id from ctx when the entry leaves
// them empty. Used by callers that compose their own entries, e.g. the HTTP
// middleware.
func (e *Engine) Audit(ctx context.Context, entry audit.Entry) {
	if e == nil {
		return
	}
	if entry.SourceIP == "" {
		entry.SourceIP = clientIPFromContext(ctx)
	}
	if entry.UserAgent == "" {
		entry.UserAgent = userAgentFromContext(ctx)
	}
	if entry.CorrelationID == "" {
		entry.CorrelationID = correlationIDFromContext(ctx)
	}
	e.audit.Record(ctx, entry)
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports audit entries lost to buffer backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.users != nil && e.tokens != nil && e.hasher != nil
}
