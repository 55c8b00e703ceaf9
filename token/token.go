// Package token issues and validates the signed session tokens that form the
// trust boundary of the securecore engine. Access and refresh tokens are signed
// with independent secrets so that leaking one key never allows minting tokens
// of the other kind.
package token

import (
	"bytes"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates the two token kinds issued as a [Pair]. A token validated
// as one kind is never accepted where the other kind is required.
type Kind string

const (
	// KindAccess marks short-lived tokens presented on every request.
	KindAccess Kind = "access"
	// KindRefresh marks long-lived tokens used only to mint new pairs.
	KindRefresh Kind = "refresh"
)

var (
	// ErrInvalidToken is returned when a token fails signature verification,
	// is expired, or is otherwise malformed.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongKind is returned when a structurally valid token carries the
	// wrong kind claim, e.g. a refresh token presented as an access token.
	// Kind confusion is a distinct failure from ErrInvalidToken on purpose.
	ErrWrongKind = errors.New("wrong token kind")
)

// Config holds the signing material and lifetimes for a [Service].
// AccessSecret and RefreshSecret must differ.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Claims is the decoded claim set of a validated token.
type Claims struct {
	Role string `json:"role"`
	Kind Kind   `json:"tk"`
	jwt.RegisteredClaims
}

// Pair bundles the access and refresh tokens issued together for one subject.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Service signs and validates session tokens. It is stateless per call and
// safe for unsynchronized concurrent use.
type Service struct {
	config Config
	now    func() time.Time
}

// NewService validates cfg and returns a ready Service.
func NewService(cfg Config) (*Service, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token: both signing secrets are required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("token: access and refresh secrets must be independent")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway configuration")
	}
	return &Service{config: cfg, now: time.Now}, nil
}

// Issue creates a fresh token pair for the subject. Each token carries its own
// unique id, issued-at, expiry, and kind claim.
func (s *Service) Issue(subject, role string) (Pair, error) {
	access, err := s.sign(subject, role, KindAccess, s.config.AccessTTL, s.config.AccessSecret)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.sign(subject, role, KindRefresh, s.config.RefreshTTL, s.config.RefreshSecret)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateAccess verifies the signature, expiry, and kind of an access token.
func (s *Service) ValidateAccess(tokenStr string) (*Claims, error) {
	return s.parse(tokenStr, KindAccess, s.config.AccessSecret)
}

// ValidateRefresh verifies the signature, expiry, and kind of a refresh token.
func (s *Service) ValidateRefresh(tokenStr string) (*Claims, error) {
	return s.parse(tokenStr, KindRefresh, s.config.RefreshSecret)
}

// Rotate validates a refresh token and issues a brand-new pair for the same
// subject and role. The presented token is never extended.
func (s *Service) Rotate(refreshToken string) (Pair, error) {
	claims, err := s.ValidateRefresh(refreshToken)
	if err != nil {
		return Pair{}, err
	}
	return s.Issue(claims.Subject, claims.Role)
}

func (s *Service) sign(subject, role string, kind Kind, ttl time.Duration, secret []byte) (string, error) {
	now := s.now()
	claims := Claims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *Service) parse(tokenStr string, kind Kind, secret []byte) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
