package securecore

import (
	"context"
	"fmt"

	"github.com/caredesk/securecore/audit"
)

// EnrollMFA generates a TOTP secret and a fresh backup-code set for the
// user, persists the secret and the code hashes, and returns the plaintext
// material exactly once. Re-enrolling replaces both.
func (e *Engine) EnrollMFA(ctx context.Context, userID string) (*MFASetup, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	record, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if record == nil {
		return nil, ErrInvalidCredentials
	}

	secret, secretBase32, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	codes, hashes, err := e.newBackupCodeSet()
	if err != nil {
		return nil, err
	}

	if err := e.users.SaveMFASecret(ctx, userID, secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := e.users.ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.audit.Record(ctx, audit.Entry{
		ActorID:       userID,
		Action:        audit.ActionUpdate,
		EntityType:    "mfa_enrollment",
		EntityID:      userID,
		SourceIP:      clientIPFromContext(ctx),
		UserAgent:     userAgentFromContext(ctx),
		CorrelationID: correlationIDFromContext(ctx),
		Success:       true,
	})

	return &MFASetup{
		Secret:       secret,
		SecretBase32: secretBase32,
		ProvisionURI: e.totp.ProvisionURI(secretBase32, record.Username),
		BackupCodes:  codes,
	}, nil
}

// RegenerateBackupCodes replaces the stored backup-code set for a user with
// MFA enrolled and returns the new plaintext codes. Previously unused codes
// stop working.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	record, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if record == nil {
		return nil, ErrInvalidCredentials
	}
	if !record.MFAEnrolled() {
		return nil, ErrMFANotEnrolled
	}

	codes, hashes, err := e.newBackupCodeSet()
	if err != nil {
		return nil, err
	}
	if err := e.users.ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricBackupCodeRegenerated)
	return codes, nil
}

// newBackupCodeSet generates the configured number of codes and hashes each
// with the same memory-hard primitive used for passwords, so a leaked store
// resists table-scan brute force.
func (e *Engine) newBackupCodeSet() ([]string, []string, error) {
	codes, err := generateBackupCodes(e.config.BackupCodeCount)
	if err != nil {
		return nil, nil, err
	}
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hash, err := e.hasher.Hash(canonicalBackupCode(code))
		if err != nil {
			return nil, nil, err
		}
		hashes = append(hashes, hash)
	}
	return codes, hashes, nil
}
