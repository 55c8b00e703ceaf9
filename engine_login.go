package securecore

import (
	"context"
	"fmt"
	"time"

	"github.com/caredesk/securecore/audit"
)

// Login verifies the username/password pair and, when the account has MFA
// enrolled, the supplied code. mfaCode may be a TOTP code or a backup code;
// pass "" when the account has no MFA.
//
// Unknown usernames and wrong passwords both return ErrInvalidCredentials.
// A locked or inactive account is rejected before the password is checked,
// so lockout state never leaks password correctness.
func (e *Engine) Login(ctx context.Context, username, pw, mfaCode string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := e.now()
	record, err := e.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if record == nil {
		// Unknown user: same failure as a wrong password.
		e.metricInc(MetricLoginFailure)
		e.auditLogin(ctx, "", username, start, false, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if !record.Active {
		e.metricInc(MetricLoginFailure)
		e.auditLogin(ctx, record.ID, username, start, false, ErrAccountInactive)
		return nil, ErrAccountInactive
	}
	if record.LockedUntil != nil && record.LockedUntil.After(e.now()) {
		e.metricInc(MetricLoginFailure)
		e.auditLogin(ctx, record.ID, username, start, false, ErrAccountLocked)
		return nil, ErrAccountLocked
	}

	ok, err := e.hasher.Verify(pw, record.PasswordHash)
	if err != nil {
		// A Verify error means the stored hash is malformed, not that the
		// store is down.
		return nil, fmt.Errorf("%w: %v", ErrCredentialCorrupt, err)
	}
	if !ok {
		if err := e.recordFailure(ctx, record); err != nil {
			return nil, err
		}
		e.auditLogin(ctx, record.ID, username, start, false, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	e.maybeUpgradeHash(ctx, record, pw)

	if record.MFAEnrolled() {
		if mfaCode == "" {
			e.metricInc(MetricMFARequired)
			e.auditLogin(ctx, record.ID, username, start, false, ErrMFARequired)
			return nil, ErrMFARequired
		}
		if err := e.verifyMFA(ctx, record, mfaCode); err != nil {
			e.auditLogin(ctx, record.ID, username, start, false, err)
			return nil, err
		}
	}

	if err := e.users.RecordLoginSuccess(ctx, record.ID, e.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	pair, err := e.tokens.Issue(record.ID, string(record.Role))
	if err != nil {
		return nil, err
	}
	_ = e.activity.Track(ctx, record.ID)

	e.metricInc(MetricLoginSuccess)
	e.auditLogin(ctx, record.ID, username, start, true, nil)

	return &LoginResult{
		Principal:    Principal{ID: record.ID, Role: record.Role},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// maybeUpgradeHash rehashes the verified password when the stored hash uses
// a weaker cost profile than the current configuration. Best effort; a store
// failure only logs.
func (e *Engine) maybeUpgradeHash(ctx context.Context, record *CredentialRecord, pw string) {
	upgrade, err := e.hasher.NeedsUpgrade(record.PasswordHash)
	if err != nil || !upgrade {
		return
	}
	newHash, err := e.hasher.Hash(pw)
	if err != nil {
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, record.ID, newHash); err != nil {
		e.log.Warn("password hash upgrade failed", "user_id", record.ID, "error", err)
		return
	}
	record.PasswordHash = newHash
}

// recordFailure bumps the failed-attempt counter and arms the lock when the
// threshold is reached.
func (e *Engine) recordFailure(ctx context.Context, record *CredentialRecord) error {
	attempts := record.FailedAttempts + 1

	var lockedUntil *time.Time
	if attempts >= e.config.MaxFailedAttempts {
		until := e.now().Add(e.config.LockoutDuration)
		lockedUntil = &until
		e.metricInc(MetricLoginLockout)
		e.log.Warn("account locked after repeated login failures",
			"user_id", record.ID,
			"failed_attempts", attempts,
			"locked_until", until)
	}

	if err := e.users.RecordLoginFailure(ctx, record.ID, attempts, lockedUntil); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	e.metricInc(MetricLoginFailure)
	return nil
}

// verifyMFA tries the code as TOTP first, then against each stored backup
// code hash. A matching backup code is consumed.
func (e *Engine) verifyMFA(ctx context.Context, record *CredentialRecord, code string) error {
	ok, err := e.totp.VerifyCode(record.MFASecret, code, e.now())
	if err != nil {
		return err
	}
	if ok {
		e.metricInc(MetricMFASuccess)
		return nil
	}

	canonical := canonicalBackupCode(code)
	for i, hash := range record.BackupCodes {
		match, err := e.hasher.Verify(canonical, hash)
		if err != nil {
			continue
		}
		if match {
			remaining := make([]string, 0, len(record.BackupCodes)-1)
			remaining = append(remaining, record.BackupCodes[:i]...)
			remaining = append(remaining, record.BackupCodes[i+1:]...)
			if err := e.users.ReplaceBackupCodes(ctx, record.ID, remaining); err != nil {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			record.BackupCodes = remaining
			e.metricInc(MetricBackupCodeUsed)
			e.metricInc(MetricMFASuccess)
			return nil
		}
	}

	e.metricInc(MetricMFAFailure)
	return ErrMFAInvalid
}

func (e *Engine) auditLogin(ctx context.Context, actorID, username string, start time.Time, success bool, cause error) {
	entry := audit.Entry{
		ActorID:       actorID,
		Action:        audit.ActionLogin,
		EntityType:    "credential",
		EntityID:      username,
		SourceIP:      clientIPFromContext(ctx),
		UserAgent:     userAgentFromContext(ctx),
		CorrelationID: correlationIDFromContext(ctx),
		Duration:      e.now().Sub(start),
		Success:       success,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	e.audit.Record(ctx, entry)
}
