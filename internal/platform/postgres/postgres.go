// Package postgres opens the shared database/sql pool over the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects and pings the database. Returns nil when url is empty.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	if url == "" {
		return nil, nil
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Schema creates the tables the service needs when they are missing.
const Schema = `
CREATE TABLE IF NOT EXISTS trust_sources (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	organization_id   TEXT NOT NULL,
	organization_name TEXT NOT NULL DEFAULT '',
	board_id          TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS trust_sources_org_idx ON trust_sources (organization_id, category);

CREATE TABLE IF NOT EXISTS trust_records (
	id          TEXT PRIMARY KEY,
	source_id   TEXT NOT NULL REFERENCES trust_sources (id) ON DELETE CASCADE,
	summary     TEXT NOT NULL,
	search_text TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS trust_records_source_idx ON trust_records (source_id);

CREATE TABLE IF NOT EXISTS audit_outbox (
	id             UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	processed_at   TIMESTAMPTZ
);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
