// Package postgres opens the database and applies the schema at startup.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects via the pgx stdlib driver and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Schema is the registry's full DDL. Statements are idempotent so startup
// can apply them unconditionally.
const Schema = `
CREATE TABLE IF NOT EXISTS institutions (
	wallet             TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	email_domain       TEXT NOT NULL,
	verified           BOOLEAN NOT NULL DEFAULT FALSE,
	active             BOOLEAN NOT NULL DEFAULT TRUE,
	total_certificates_issued BIGINT NOT NULL DEFAULT 0,
	registered_at      TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS institutions_email_domain_key
	ON institutions (LOWER(email_domain));

CREATE TABLE IF NOT EXISTS employers (
	wallet        TEXT PRIMARY KEY,
	company_name  TEXT NOT NULL,
	vat_number    TEXT NOT NULL DEFAULT '',
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	registered_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS certificates (
	id                 BIGSERIAL PRIMARY KEY,
	document_hash      TEXT NOT NULL UNIQUE,
	student_wallet     TEXT NOT NULL,
	institution_wallet TEXT NOT NULL,
	metadata_uri       TEXT NOT NULL DEFAULT '',
	graduation_year    INTEGER NOT NULL,
	issue_date         TIMESTAMPTZ NOT NULL,
	revoked            BOOLEAN NOT NULL DEFAULT FALSE,
	revoked_at         TIMESTAMPTZ,
	revocation_reason  TEXT
);

CREATE INDEX IF NOT EXISTS certificates_student_idx
	ON certificates (student_wallet);
CREATE INDEX IF NOT EXISTS certificates_institution_idx
	ON certificates (institution_wallet);

CREATE TABLE IF NOT EXISTS commitments (
	commitment    TEXT PRIMARY KEY,
	role          SMALLINT NOT NULL,
	proof_ref     TEXT NOT NULL,
	registered_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS component_versions (
	component TEXT PRIMARY KEY,
	version   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS upgrade_history (
	id                 BIGSERIAL PRIMARY KEY,
	component          TEXT NOT NULL,
	version            TEXT NOT NULL,
	applied_at         TIMESTAMPTZ NOT NULL,
	upgrader           TEXT NOT NULL,
	implementation_ref TEXT NOT NULL,
	notes              TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS upgrade_history_component_idx
	ON upgrade_history (component, id);

CREATE TABLE IF NOT EXISTS audit_outbox (
	id           UUID PRIMARY KEY,
	event_id     UUID NOT NULL,
	event_type   TEXT NOT NULL,
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS audit_outbox_pending_idx
	ON audit_outbox (created_at) WHERE published_at IS NULL;

CREATE TABLE IF NOT EXISTS audit_events (
	id         UUID PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	actor      TEXT NOT NULL,
	action     TEXT NOT NULL,
	subject    TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT ''
);
`

// EnsureSchema applies the DDL.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
