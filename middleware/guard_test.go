package middleware

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	securecore "github.com/caredesk/securecore"
	"github.com/caredesk/securecore/audit"
	"github.com/caredesk/securecore/password"
	"github.com/caredesk/securecore/policy"
)

type staticUserStore struct {
	record *securecore.CredentialRecord
}

func (s *staticUserStore) GetByUsername(_ context.Context, username string) (*securecore.CredentialRecord, error) {
	if s.record != nil && s.record.Username == username {
		cp := *s.record
		return &cp, nil
	}
	return nil, nil
}

func (s *staticUserStore) GetByID(_ context.Context, id string) (*securecore.CredentialRecord, error) {
	if s.record != nil && s.record.ID == id {
		cp := *s.record
		return &cp, nil
	}
	return nil, nil
}

func (s *staticUserStore) RecordLoginFailure(_ context.Context, _ string, attempts int, lockedUntil *time.Time) error {
	s.record.FailedAttempts = attempts
	s.record.LockedUntil = lockedUntil
	return nil
}

func (s *staticUserStore) RecordLoginSuccess(_ context.Context, _ string, at time.Time) error {
	s.record.FailedAttempts = 0
	s.record.LockedUntil = nil
	s.record.LastLoginAt = &at
	return nil
}

func (s *staticUserStore) UpdatePasswordHash(_ context.Context, _ string, newHash string) error {
	s.record.PasswordHash = newHash
	return nil
}

func (s *staticUserStore) SaveMFASecret(_ context.Context, _ string, secret []byte) error {
	s.record.MFASecret = secret
	return nil
}

func (s *staticUserStore) ReplaceBackupCodes(_ context.Context, _ string, hashes []string) error {
	s.record.BackupCodes = hashes
	return nil
}

func testEngineAndToken(t *testing.T, sink audit.Sink, rules []policy.Rule) (*securecore.Engine, string) {
	t.Helper()

	cfg := securecore.Config{
		AccessTokenSecret:        "middleware-access-secret",
		RefreshTokenSecret:       "middleware-refresh-secret",
		AccessTokenTTL:           15 * time.Minute,
		RefreshTokenTTL:          24 * time.Hour,
		TokenIssuer:              "caredesk-test",
		FieldEncryptionKey:       base64.StdEncoding.EncodeToString(make([]byte, 32)),
		MaxFailedAttempts:        5,
		LockoutDuration:          15 * time.Minute,
		IdleTimeout:              30 * time.Minute,
		UnauthenticatedRateLimit: 100,
		AuthenticatedRateLimit:   600,
		BulkRateLimit:            10,
		MFAIssuer:                "CareDesk",
		BackupCodeCount:          2,
		AuditBufferSize:          64,
	}

	store := &staticUserStore{}
	builder := securecore.New().
		WithConfig(cfg).
		WithUserStore(store).
		WithAuditSink(sink).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if rules != nil {
		builder = builder.WithPolicy(policy.NewStatic(rules))
	}
	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	store.record = &securecore.CredentialRecord{
		ID:           "u-1",
		Username:     "dr.chen",
		PasswordHash: testPasswordHash(t),
		Role:         securecore.RoleDoctor,
		Active:       true,
	}

	result, err := engine.Login(context.Background(), "dr.chen", testPassword, "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return engine, result.AccessToken
}

const testPassword = "Str0ng&Secret!"

// testPasswordHash hashes testPassword once per test binary; argon2id is
// deliberately slow.
var cachedHash string

func testPasswordHash(t *testing.T) string {
	t.Helper()
	if cachedHash != "" {
		return cachedHash
	}
	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	cachedHash = hash
	return cachedHash
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := securecore.PrincipalFromContext(r.Context()); !ok {
			http.Error(w, "no principal", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardAllowsAuthorizedRequest(t *testing.T) {
	sink := audit.NewChannelSink(16)
	engine, token := testEngineAndToken(t, sink, []policy.Rule{
		{Role: "doctor", Resource: "patients", Action: "read"},
	})

	handler := Guard(engine, "patients", "read", audit.ActionRead)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/patients/42", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("User-Agent", "emr-client/1.0")
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	engine.Close()
	select {
	case entry := <-sink.Entries():
		// First entry is the login; the request entry follows.
		if entry.Action == audit.ActionLogin {
			entry = <-sink.Entries()
		}
		if entry.Action != audit.ActionRead || entry.ActorID != "u-1" {
			t.Fatalf("unexpected audit entry: %+v", entry)
		}
		if entry.StatusCode != http.StatusOK || !entry.Success {
			t.Fatalf("entry status = %d success = %v", entry.StatusCode, entry.Success)
		}
		if entry.SourceIP != "203.0.113.7" {
			t.Fatalf("entry source ip = %q, want 203.0.113.7", entry.SourceIP)
		}
		if entry.UserAgent != "emr-client/1.0" {
			t.Fatalf("entry user agent = %q", entry.UserAgent)
		}
		if entry.CorrelationID != "req-123" {
			t.Fatalf("entry correlation id = %q, want req-123", entry.CorrelationID)
		}
	default:
		t.Fatal("no audit entry recorded")
	}
}

func TestGuardForbiddenEntryCarriesRequestContext(t *testing.T) {
	sink := audit.NewChannelSink(16)
	engine, token := testEngineAndToken(t, sink, []policy.Rule{
		{Role: "doctor", Resource: "patients", Action: "read"},
	})
	handler := Guard(engine, "patients", "delete", audit.ActionDelete)(okHandler())

	req := httptest.NewRequest(http.MethodDelete, "/patients/42", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("User-Agent", "emr-client/1.0")
	req.Header.Set("X-Request-ID", "req-456")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	engine.Close()
	for {
		select {
		case entry := <-sink.Entries():
			if entry.Action != audit.ActionDelete {
				continue
			}
			if entry.Success || entry.StatusCode != http.StatusForbidden {
				t.Fatalf("unexpected denial entry: %+v", entry)
			}
			if entry.SourceIP != "203.0.113.7" || entry.UserAgent != "emr-client/1.0" || entry.CorrelationID != "req-456" {
				t.Fatalf("denial entry missing request context: %+v", entry)
			}
			return
		default:
			t.Fatal("no denial entry recorded")
		}
	}
}

func TestGuardRejectsMissingToken(t *testing.T) {
	engine, _ := testEngineAndToken(t, nil, nil)
	handler := Guard(engine, "patients", "read", audit.ActionRead)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/patients/42", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGuardRejectsGarbageToken(t *testing.T) {
	engine, _ := testEngineAndToken(t, nil, nil)
	handler := Guard(engine, "patients", "read", audit.ActionRead)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/patients/42", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGuardForbidsUnlistedTuple(t *testing.T) {
	engine, token := testEngineAndToken(t, nil, []policy.Rule{
		{Role: "doctor", Resource: "patients", Action: "read"},
	})
	handler := Guard(engine, "patients", "delete", audit.ActionDelete)(okHandler())

	req := httptest.NewRequest(http.MethodDelete, "/patients/42", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"", "", false},
		{"Basic abc", "", false},
		{"bearer abc", "", false},
	}
	for _, tc := range cases {
		got, ok := bearerToken(tc.header)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("bearerToken(%q) = (%q, %v), want (%q, %v)", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:5120"
	if got := clientIP(r); got != "10.1.2.3" {
		t.Fatalf("clientIP = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.9" {
		t.Fatalf("clientIP with forwarded header = %q", got)
	}
}
