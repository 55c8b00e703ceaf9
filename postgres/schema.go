package postgres

import (
	"context"
	"fmt"
)

// Schema is the DDL the store expects. Run it through EnsureSchema at
// startup or manage the tables with external migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	username        TEXT NOT NULL UNIQUE,
	password_hash   TEXT NOT NULL,
	role            TEXT NOT NULL,
	active          BOOLEAN NOT NULL DEFAULT TRUE,
	mfa_secret_enc  TEXT,
	backup_codes    TEXT[] NOT NULL DEFAULT '{}',
	failed_attempts INTEGER NOT NULL DEFAULT 0,
	locked_until    TIMESTAMPTZ,
	last_login_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS audit_log (
	id             BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	occurred_at    TIMESTAMPTZ NOT NULL,
	actor_id       TEXT,
	action         TEXT NOT NULL,
	entity_type    TEXT,
	entity_id      TEXT,
	changes        JSONB,
	source_ip      TEXT,
	user_agent     TEXT,
	correlation_id TEXT,
	status_code    INTEGER,
	duration_ns    BIGINT,
	success        BOOLEAN NOT NULL,
	error          TEXT
);

CREATE INDEX IF NOT EXISTS audit_log_actor_idx ON audit_log (actor_id, occurred_at);
CREATE INDEX IF NOT EXISTS audit_log_entity_idx ON audit_log (entity_type, entity_id);
`

// EnsureSchema creates the tables when they do not exist.
func EnsureSchema(ctx context.Context, db Querier) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}
