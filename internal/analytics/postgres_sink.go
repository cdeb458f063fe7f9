package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink persists closed-session summaries for offline reporting.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

func (s *PostgresSink) StoreSummary(ctx context.Context, summary SessionSummary) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO session_summaries (session_id, started_at, closed_at, duration_seconds, message_count, outcome, zone_id, escalated, lead_fields)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (session_id) DO NOTHING
    `, summary.SessionID, summary.StartedAt, summary.ClosedAt, int(summary.Duration.Seconds()),
		summary.MessageCount, string(summary.Outcome), string(summary.ZoneID), summary.Escalated, summary.LeadFields)
	if err != nil {
		return fmt.Errorf("insert session summary: %w", err)
	}
	return nil
}
