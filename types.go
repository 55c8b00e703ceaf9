package securecore

import (
	"context"
	"time"
)

// Role is the closed set of staff roles the policy set knows about.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleNurse        Role = "nurse"
	RoleReceptionist Role = "receptionist"
)

// Valid reports whether the role is one of the known staff roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleNurse, RoleReceptionist:
		return true
	}
	return false
}

// Principal is the authenticated identity derived from a validated access
// token. It is built per request and never persisted.
type Principal struct {
	ID   string
	Role Role
}

// CredentialRecord is the per-user credential state the Engine reads and
// mutates. MFASecret is nil until the user enrolls; BackupCodes holds one
// password-style hash per unused code.
type CredentialRecord struct {
	ID             string
	Username       string
	PasswordHash   string
	Role           Role
	Active         bool
	MFASecret      []byte
	BackupCodes    []string
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
}

// MFAEnrolled reports whether the record carries an MFA secret.
func (r *CredentialRecord) MFAEnrolled() bool {
	return len(r.MFASecret) > 0
}

// UserStore is the interface callers implement to connect the Engine to
// their user database. Unknown users are (nil, nil), never an error; any
// non-nil error is treated as a backend failure, not a missing user.
type UserStore interface {
	// GetByUsername returns the credential record, or (nil, nil) when the
	// username does not exist.
	GetByUsername(ctx context.Context, username string) (*CredentialRecord, error)
	// GetByID returns the credential record, or (nil, nil) when unknown.
	GetByID(ctx context.Context, id string) (*CredentialRecord, error)
	// RecordLoginFailure persists the failed-attempt counter and, when the
	// lockout threshold was reached, the lock-until timestamp.
	RecordLoginFailure(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error
	// RecordLoginSuccess clears the counter and lock and stamps last-login.
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error
	// UpdatePasswordHash replaces the stored hash, e.g. when login upgrades
	// an old cost profile.
	UpdatePasswordHash(ctx context.Context, id string, newHash string) error
	// SaveMFASecret stores the enrolled secret for the user.
	SaveMFASecret(ctx context.Context, id string, secret []byte) error
	// ReplaceBackupCodes swaps the stored backup-code hash list wholesale,
	// both on regeneration and on single-use consumption.
	ReplaceBackupCodes(ctx context.Context, id string, hashes []string) error
}

// LoginResult is returned by Engine.Login on success.
type LoginResult struct {
	Principal    Principal
	AccessToken  string
	RefreshToken string
}

// MFASetup is returned by Engine.EnrollMFA: the raw secret (also persisted),
// the otpauth:// provisioning URI for authenticator apps, and the plaintext
// backup codes. The plaintext codes exist only in this value; the store keeps
// hashes.
type MFASetup struct {
	Secret       []byte
	SecretBase32 string
	ProvisionURI string
	BackupCodes  []string
}
