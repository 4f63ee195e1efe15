package database

import (
	"context"
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations(ctx context.Context) error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createEventsTable,
		createReservationsTable,
		createReservationsIndexes,
		createMetricsTable,
		createErrorLogsTable,
		createCleanupLogsTable,
		createMailOutboxTable,
		addMailOutboxClaim,
		createEventOutboxTable,
	}

	for i, migration := range migrations {
		slog.Debug("Running migration", "step", i+1)
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully", "count", len(migrations))
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(128) PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    display_name VARCHAR(255) NOT NULL DEFAULT '',
    role VARCHAR(20) NOT NULL DEFAULT 'user',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (role IN ('user', 'admin'))
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id VARCHAR(64) PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    venue VARCHAR(500) NOT NULL,
    starts_at TIMESTAMPTZ NOT NULL,
    available_tickets INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (available_tickets >= 0)
);`

const createReservationsTable = `
CREATE TABLE IF NOT EXISTS reservations (
    id UUID PRIMARY KEY,
    user_id VARCHAR(128) NOT NULL,
    event_id VARCHAR(64) NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    date VARCHAR(64) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'confirmed',
    email_sent BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'confirmed', 'expired', 'cancelled'))
);`

const createReservationsIndexes = `
CREATE INDEX IF NOT EXISTS reservations_user_id_idx ON reservations (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS reservations_pending_created_at_idx
ON reservations (created_at) WHERE status = 'pending';`

const createMetricsTable = `
CREATE TABLE IF NOT EXISTS metrics (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    value DOUBLE PRECISION NOT NULL,
    labels JSONB NOT NULL DEFAULT '{}',
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createErrorLogsTable = `
CREATE TABLE IF NOT EXISTS error_logs (
    id BIGSERIAL PRIMARY KEY,
    type VARCHAR(50) NOT NULL,
    reservation_id VARCHAR(64),
    user_id VARCHAR(128),
    event_id VARCHAR(64),
    error TEXT NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createCleanupLogsTable = `
CREATE TABLE IF NOT EXISTS cleanup_logs (
    id BIGSERIAL PRIMARY KEY,
    processed_count INTEGER NOT NULL,
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createMailOutboxTable = `
CREATE TABLE IF NOT EXISTS mail_outbox (
    id UUID PRIMARY KEY,
    recipient VARCHAR(255) NOT NULL,
    template VARCHAR(100) NOT NULL,
    data JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sent_at TIMESTAMPTZ,
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT
);
CREATE INDEX IF NOT EXISTS mail_outbox_unsent_idx ON mail_outbox (created_at) WHERE sent_at IS NULL;`

const addMailOutboxClaim = `
ALTER TABLE mail_outbox ADD COLUMN IF NOT EXISTS claimed_until TIMESTAMPTZ;`

const createEventOutboxTable = `
CREATE TABLE IF NOT EXISTS event_outbox (
    id UUID PRIMARY KEY,
    subject VARCHAR(100) NOT NULL,
    payload JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    published_at TIMESTAMPTZ,
    claimed_until TIMESTAMPTZ,
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT
);
CREATE INDEX IF NOT EXISTS event_outbox_unpublished_idx ON event_outbox (created_at) WHERE published_at IS NULL;`
