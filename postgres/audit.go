package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/caredesk/securecore/audit"
)

// AuditSink appends trail entries to an audit_log table. Rows are insert-only;
// no update or delete statement exists here.
type AuditSink struct {
	db Querier
}

func NewAuditSink(db Querier) (*AuditSink, error) {
	if db == nil {
		return nil, errors.New("postgres: querier required")
	}
	return &AuditSink{db: db}, nil
}

func (s *AuditSink) Write(ctx context.Context, entry audit.Entry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_log (
			occurred_at, actor_id, action, entity_type, entity_id,
			changes, source_ip, user_agent, correlation_id,
			status_code, duration_ns, success, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.Timestamp,
		nullable(entry.ActorID),
		string(entry.Action),
		nullable(entry.EntityType),
		nullable(entry.EntityID),
		entry.Changes,
		nullable(entry.SourceIP),
		nullable(entry.UserAgent),
		nullable(entry.CorrelationID),
		entry.StatusCode,
		entry.Duration.Nanoseconds(),
		entry.Success,
		nullable(entry.Error),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert audit entry: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
