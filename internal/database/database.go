// Package database owns the PostgreSQL connection pool and schema setup.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/zerolog/log"
)

// Connect opens a pgx connection pool and verifies it with a ping,
// retrying with exponential backoff so the service survives a database
// that comes up slightly after it does.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 30 * time.Second

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return pool.Ping(pingCtx)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("database not ready, retrying")
	}

	if err := backoff.RetryNotify(ping, backoff.WithContext(bo, ctx), notify); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS notification_records (
	id                   TEXT PRIMARY KEY,
	session_id           TEXT NOT NULL,
	lead                 JSONB NOT NULL DEFAULT '{}'::jsonb,
	priority             TEXT NOT NULL,
	target_team          TEXT NOT NULL,
	sent_at              TIMESTAMPTZ NOT NULL,
	expected_response_by TIMESTAMPTZ NOT NULL,
	responded            BOOLEAN NOT NULL DEFAULT FALSE,
	responded_at         TIMESTAMPTZ,
	reminder_sent        BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_notification_records_session
	ON notification_records (session_id);

CREATE TABLE IF NOT EXISTS session_summaries (
	session_id       TEXT PRIMARY KEY,
	started_at       TIMESTAMPTZ NOT NULL,
	closed_at        TIMESTAMPTZ NOT NULL,
	duration_seconds BIGINT NOT NULL DEFAULT 0,
	message_count    INT NOT NULL,
	outcome          TEXT NOT NULL,
	zone_id          TEXT NOT NULL,
	escalated        BOOLEAN NOT NULL DEFAULT FALSE,
	lead_fields      INT NOT NULL DEFAULT 0
);
`

// Migrate applies the application schema and River's own job tables.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("failed to migrate river schema: %w", err)
	}
	if len(res.Versions) > 0 {
		log.Info().Int("applied", len(res.Versions)).Msg("river migrations applied")
	}

	return nil
}
