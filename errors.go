package securecore

import "errors"

var (
	// ErrInvalidCredentials covers both unknown username and wrong password;
	// the API boundary never distinguishes the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive rejects logins for deactivated accounts.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountLocked rejects logins while locked_until is in the future,
	// regardless of password correctness.
	ErrAccountLocked = errors.New("account locked")
	// ErrMFARequired is returned when the account has MFA enrolled and no
	// code was supplied.
	ErrMFARequired = errors.New("mfa code required")
	// ErrMFAInvalid is returned when neither the TOTP code nor any backup
	// code matched.
	ErrMFAInvalid = errors.New("invalid mfa code")
	// ErrMFANotEnrolled is returned by MFA management calls for accounts
	// without an enrolled secret.
	ErrMFANotEnrolled = errors.New("mfa not enrolled")
	// ErrPermissionDenied is the policy enforcer's rejection.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrSessionExpired rejects authenticated requests whose principal has
	// been idle past the configured timeout.
	ErrSessionExpired = errors.New("session expired")
	// ErrStoreUnavailable wraps credential-store failures.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrCredentialCorrupt wraps unreadable stored credential material, e.g.
	// a malformed password hash. The store answered; its data is bad.
	ErrCredentialCorrupt = errors.New("credential data corrupt")
	// ErrEngineNotReady is returned when a nil or unbuilt Engine is used.
	ErrEngineNotReady = errors.New("engine not initialized")
)
