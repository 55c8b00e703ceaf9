package securecore

import (
	"context"
	"fmt"

	"github.com/caredesk/securecore/audit"
	"github.com/caredesk/securecore/token"
)

// RefreshTokens validates the refresh token, re-checks that the referenced
// account is still active and unlocked, and issues a brand-new pair. A user
// deactivated or locked after issuance cannot refresh.
func (e *Engine) RefreshTokens(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	record, err := e.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if record == nil {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrInvalidCredentials
	}
	if !record.Active {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrAccountInactive
	}
	if record.LockedUntil != nil && record.LockedUntil.After(e.now()) {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrAccountLocked
	}

	pair, err := e.tokens.Issue(record.ID, string(record.Role))
	if err != nil {
		return nil, err
	}
	_ = e.activity.Track(ctx, record.ID)

	e.metricInc(MetricRefreshSuccess)
	return &LoginResult{
		Principal:    Principal{ID: record.ID, Role: record.Role},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout invalidates the principal's activity record. The tokens themselves
// remain valid until natural expiry; there is no revocation list.
func (e *Engine) Logout(ctx context.Context, principalID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if err := e.activity.Invalidate(ctx, principalID); err != nil {
		return err
	}
	e.metricInc(MetricLogout)
	e.audit.Record(ctx, audit.Entry{
		ActorID:       principalID,
		Action:        audit.ActionLogout,
		EntityType:    "session",
		SourceIP:      clientIPFromContext(ctx),
		UserAgent:     userAgentFromContext(ctx),
		CorrelationID: correlationIDFromContext(ctx),
		Success:       true,
	})
	return nil
}

// Authenticate is the request pipeline: validate the access token, build the
// principal, reject idle sessions, and refresh the activity record. It does
// not consult the policy set; see Authorize.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	if !e.ready() {
		return Principal{}, ErrEngineNotReady
	}

	claims, err := e.tokens.ValidateAccess(accessToken)
	if err != nil {
		return Principal{}, err
	}
	principal := Principal{ID: claims.Subject, Role: Role(claims.Role)}

	active, err := e.activity.IsActive(ctx, principal.ID)
	if err != nil {
		return Principal{}, err
	}
	if !active {
		return Principal{}, ErrSessionExpired
	}
	_ = e.activity.Track(ctx, principal.ID)

	return principal, nil
}

// Authorize asks the policy set whether the principal's role may perform the
// action on the resource.
func (e *Engine) Authorize(principal Principal, resource, action string) error {
	if e == nil || e.policy == nil {
		return ErrEngineNotReady
	}
	if !e.policy.Enforce(string(principal.Role), resource, action) {
		e.metricInc(MetricPermissionDenied)
		return ErrPermissionDenied
	}
	return nil
}

// ValidateAccessToken validates an access token without touching activity
// state. Useful for stateless checks such as websocket upgrades.
func (e *Engine) ValidateAccessToken(accessToken string) (*token.Claims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return e.tokens.ValidateAccess(accessToken)
}
