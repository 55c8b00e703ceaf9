// Package postgres persists credential records and audit entries in
// PostgreSQL via pgx. MFA secrets are encrypted at rest with the field
// cipher; the database only ever sees the envelope.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	securecore "github.com/caredesk/securecore"
	"github.com/caredesk/securecore/fieldcrypt"
)

// Querier is the slice of the pgx API the store needs. *pgxpool.Pool,
// *pgx.Conn, and pgx.Tx all satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserStore implements securecore.UserStore on a users table.
type UserStore struct {
	db     Querier
	cipher *fieldcrypt.Cipher
}

// NewUserStore wires the store. cipher encrypts MFA secrets at rest and is
// required.
func NewUserStore(db Querier, cipher *fieldcrypt.Cipher) (*UserStore, error) {
	if db == nil {
		return nil, errors.New("postgres: querier required")
	}
	if cipher == nil {
		return nil, errors.New("postgres: field cipher required")
	}
	return &UserStore{db: db, cipher: cipher}, nil
}

const userColumns = `id, username, password_hash, role, active, mfa_secret_enc, backup_codes, failed_attempts, locked_until, last_login_at`

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*securecore.CredentialRecord, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return s.scanRecord(row)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*securecore.CredentialRecord, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return s.scanRecord(row)
}

func (s *UserStore) scanRecord(row pgx.Row) (*securecore.CredentialRecord, error) {
	var (
		record    securecore.CredentialRecord
		role      string
		secretEnc *string
	)
	err := row.Scan(
		&record.ID,
		&record.Username,
		&record.PasswordHash,
		&role,
		&record.Active,
		&secretEnc,
		&record.BackupCodes,
		&record.FailedAttempts,
		&record.LockedUntil,
		&record.LastLoginAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scan user: %w", err)
	}
	record.Role = securecore.Role(role)

	if secretEnc != nil && *secretEnc != "" {
		plaintext, err := s.cipher.Decrypt(*secretEnc)
		if err != nil {
			return nil, fmt.Errorf("postgres: decrypt mfa secret: %w", err)
		}
		record.MFASecret = []byte(plaintext)
	}
	return &record, nil
}

func (s *UserStore) RecordLoginFailure(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET failed_attempts = $2, locked_until = $3 WHERE id = $1`,
		id, failedAttempts, lockedUntil)
	if err != nil {
		return fmt.Errorf("postgres: record login failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: user %s not found", id)
	}
	return nil
}

func (s *UserStore) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET failed_attempts = 0, locked_until = NULL, last_login_at = $2 WHERE id = $1`,
		id, at)
	if err != nil {
		return fmt.Errorf("postgres: record login success: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: user %s not found", id)
	}
	return nil
}

func (s *UserStore) UpdatePasswordHash(ctx context.Context, id string, newHash string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, newHash)
	if err != nil {
		return fmt.Errorf("postgres: update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: user %s not found", id)
	}
	return nil
}

func (s *UserStore) SaveMFASecret(ctx context.Context, id string, secret []byte) error {
	envelope, err := s.cipher.Encrypt(string(secret))
	if err != nil {
		return fmt.Errorf("postgres: encrypt mfa secret: %w", err)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET mfa_secret_enc = $2 WHERE id = $1`, id, envelope)
	if err != nil {
		return fmt.Errorf("postgres: save mfa secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: user %s not found", id)
	}
	return nil
}

func (s *UserStore) ReplaceBackupCodes(ctx context.Context, id string, hashes []string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET backup_codes = $2 WHERE id = $1`, id, hashes)
	if err != nil {
		return fmt.Errorf("postgres: replace backup codes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: user %s not found", id)
	}
	return nil
}
