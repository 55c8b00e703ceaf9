package securecore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/caredesk/securecore/fieldcrypt"
	"github.com/caredesk/securecore/ratelimit"
)

// Config is the startup configuration surface. All of it is consumed at
// Build time; the Engine treats it as immutable afterwards.
type Config struct {
	// AccessTokenSecret and RefreshTokenSecret sign the two token kinds.
	// They must differ so leaking one cannot mint the other kind.
	AccessTokenSecret  string        `env:"SC_ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string        `env:"SC_REFRESH_TOKEN_SECRET"`
	AccessTokenTTL     time.Duration `env:"SC_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL    time.Duration `env:"SC_REFRESH_TOKEN_TTL" envDefault:"168h"`
	TokenIssuer        string        `env:"SC_TOKEN_ISSUER" envDefault:"caredesk"`

	// FieldEncryptionKey is the base64 encoding of exactly 32 raw bytes.
	// A wrong length is a startup error, never a runtime one.
	FieldEncryptionKey string `env:"SC_FIELD_ENCRYPTION_KEY"`

	// MaxFailedAttempts failed logins lock the account for LockoutDuration.
	MaxFailedAttempts int           `env:"SC_MAX_FAILED_ATTEMPTS" envDefault:"5"`
	LockoutDuration   time.Duration `env:"SC_LOCKOUT_DURATION" envDefault:"15m"`

	// IdleTimeout bounds how long a principal may stay inactive before
	// authenticated requests are rejected.
	IdleTimeout time.Duration `env:"SC_IDLE_TIMEOUT" envDefault:"30m"`

	// Per-tier rate limits, each over a one-minute fixed window.
	UnauthenticatedRateLimit int `env:"SC_RATE_LIMIT_UNAUTHENTICATED" envDefault:"100"`
	AuthenticatedRateLimit   int `env:"SC_RATE_LIMIT_AUTHENTICATED" envDefault:"600"`
	BulkRateLimit            int `env:"SC_RATE_LIMIT_BULK" envDefault:"10"`

	// MFAIssuer names this deployment in authenticator apps.
	MFAIssuer string `env:"SC_MFA_ISSUER" envDefault:"CareDesk"`
	// BackupCodeCount is how many codes EnrollMFA hands out.
	BackupCodeCount int `env:"SC_BACKUP_CODE_COUNT" envDefault:"10"`

	// AuditBufferSize is the queue depth between request handlers and the
	// audit sink goroutine.
	AuditBufferSize int `env:"SC_AUDIT_BUFFER_SIZE" envDefault:"256"`
	// AuditDropIfFull drops entries instead of blocking when the buffer
	// fills.
	AuditDropIfFull bool `env:"SC_AUDIT_DROP_IF_FULL" envDefault:"true"`
}

// Validate checks the configuration the way Build will consume it.
func (c Config) Validate() error {
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		return errors.New("config: both token secrets are required")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("config: access and refresh token secrets must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}
	if _, err := c.fieldKey(); err != nil {
		return err
	}
	if c.MaxFailedAttempts <= 0 {
		return errors.New("config: max failed attempts must be positive")
	}
	if c.LockoutDuration <= 0 {
		return errors.New("config: lockout duration must be positive")
	}
	if c.IdleTimeout <= 0 {
		return errors.New("config: idle timeout must be positive")
	}
	if c.UnauthenticatedRateLimit <= 0 || c.AuthenticatedRateLimit <= 0 || c.BulkRateLimit <= 0 {
		return errors.New("config: rate limits must be positive")
	}
	if c.BackupCodeCount <= 0 {
		return errors.New("config: backup code count must be positive")
	}
	return nil
}

func (c Config) fieldKey() ([]byte, error) {
	if c.FieldEncryptionKey == "" {
		return nil, errors.New("config: field encryption key is required")
	}
	key, err := base64.StdEncoding.DecodeString(c.FieldEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("config: field encryption key is not valid base64: %w", err)
	}
	if len(key) != fieldcrypt.KeySize {
		return nil, fmt.Errorf("config: field encryption key must decode to %d bytes, got %d", fieldcrypt.KeySize, len(key))
	}
	return key, nil
}

func (c Config) quotas() map[ratelimit.Tier]ratelimit.Quota {
	return map[ratelimit.Tier]ratelimit.Quota{
		ratelimit.TierUnauthenticated: {Limit: c.UnauthenticatedRateLimit, Window: time.Minute},
		ratelimit.TierAuthenticated:   {Limit: c.AuthenticatedRateLimit, Window: time.Minute},
		ratelimit.TierBulk:            {Limit: c.BulkRateLimit, Window: time.Minute},
	}
}
