// Package postgres wires the database/sql pool over the pgx driver and owns
// the schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Schema is the authoritative DDL. sim_events.seq is a BIGSERIAL so
// insertion order is recoverable even for same-timestamp events; the
// uniqueness of iccid/msisdn is what the identifier allocator leans on.
const Schema = `
CREATE TABLE IF NOT EXISTS customers (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT customers_email_key UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS tariff_plans (
	id                  UUID PRIMARY KEY,
	name                TEXT NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	monthly_price_cents BIGINT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	CONSTRAINT tariff_plans_name_key UNIQUE (name)
);

CREATE TABLE IF NOT EXISTS sim_cards (
	id             UUID PRIMARY KEY,
	iccid          TEXT NOT NULL,
	msisdn         TEXT,
	carrier        TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	customer_id    UUID REFERENCES customers (id),
	tariff_plan_id UUID REFERENCES tariff_plans (id),
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	CONSTRAINT sim_cards_iccid_key UNIQUE (iccid),
	CONSTRAINT sim_cards_msisdn_key UNIQUE (msisdn)
);

CREATE INDEX IF NOT EXISTS sim_cards_status_idx ON sim_cards (status);

CREATE TABLE IF NOT EXISTS sim_events (
	id          UUID PRIMARY KEY,
	sim_card_id UUID NOT NULL REFERENCES sim_cards (id),
	seq         BIGSERIAL,
	type        TEXT NOT NULL,
	old_status  TEXT,
	new_status  TEXT,
	note        TEXT NOT NULL DEFAULT '',
	created_by  UUID,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS sim_events_sim_card_id_idx ON sim_events (sim_card_id, created_at, seq);

CREATE TABLE IF NOT EXISTS activation_codes (
	code        TEXT PRIMARY KEY,
	sim_card_id UUID REFERENCES sim_cards (id),
	status      TEXT NOT NULL,
	expires_at  TIMESTAMPTZ,
	used_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS billing_accounts (
	id             UUID PRIMARY KEY,
	account_number TEXT NOT NULL,
	customer_id    UUID NOT NULL REFERENCES customers (id),
	status         TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	CONSTRAINT billing_accounts_account_number_key UNIQUE (account_number)
);

CREATE TABLE IF NOT EXISTS bills (
	id                 UUID PRIMARY KEY,
	account_id         UUID NOT NULL REFERENCES billing_accounts (id),
	bill_month         TEXT NOT NULL,
	total_amount_cents BIGINT NOT NULL,
	status             TEXT NOT NULL,
	issue_date         TIMESTAMPTZ NOT NULL,
	due_date           TIMESTAMPTZ,
	created_at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS bills_account_id_idx ON bills (account_id, bill_month);
`

// Migrate applies the schema. Idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
