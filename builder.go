package securecore

import (
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

// Builder assembles an Engine from configuration and caller-supplied
// dependencies. Zero-value defaults: a no-op audit sink, deny-all policy,
// an in-memory activity tracker, and slog.Default logging.
type Builder struct {
	config    Config
	users     UserStore
	enforcer  policy.Enforcer
	tracker   activity.Tracker
	auditSink audit.Sink
	log       *slog.Logger

	built bool
}

// New starts a Builder.
func New() *Builder {
	return &Builder{}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithUserStore supplies the credential backend. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithPolicy supplies the policy enforcer. Defaults to deny-all when unset.
func (b *Builder) WithPolicy(enforcer policy.Enforcer) *Builder {
	b.enforcer = enforcer
	return b
}

// WithActivityTracker supplies the session activity backend. Defaults to an
// in-memory tracker sized by the configured idle timeout.
func (b *Builder) WithActivityTracker(tracker activity.Tracker) *Builder {
	b.tracker = tracker
	return b
}

// WithAuditSink supplies the audit persistence target. Defaults to a no-op
// sink.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger supplies the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(log *slog.Logger) *Builder {
	b.log = log
	return b
}

// Build validates the configuration and wires the Engine. A Builder can be
// used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	cfg := b.config

	tokens, err := token.NewService(token.Config{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        cfg.TokenIssuer,
	})
	if err != nil {
		return nil, err
	}

	key, err := cfg.fieldKey()
	if err != nil {
		return nil, err
	}
	cipher, err := fieldcrypt.New(key)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		return nil, err
	}

	limiter, err := ratelimit.New(cfg.quotas())
	if err != nil {
		return nil, err
	}

	log := b.log
	if log == nil {
		log = slog.Default()
	}

	enforcer := b.enforcer
	if enforcer == nil {
		enforcer = policy.NewStatic(nil)
	}

	tracker := b.tracker
	if tracker == nil {
		tracker = activity.NewMemoryTracker(cfg.IdleTimeout)
	}

	recorder := audit.NewRecorder(audit.Config{
		BufferSize: cfg.AuditBufferSize,
		DropIfFull: cfg.AuditDropIfFull,
	}, b.auditSink, log)

	b.built = true

	return &Engine{
		config:   cfg,
		users:    b.users,
		tokens:   tokens,
		hasher:   hasher,
		cipher:   cipher,
		policy:   enforcer,
		activity: tracker,
		limiter:  limiter,
		audit:    recorder,
		metrics:  NewMetrics(),
		totp:     newTOTPManager(cfg.MFAIssuer),
		log:      log,
		now:      time.Now,
	}, nil
}
