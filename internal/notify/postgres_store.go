package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadflow/internal/escalate"
	"github.com/leadflow/internal/score"
)

// PostgresRecordStore persists notification records in Postgres.
type PostgresRecordStore struct {
	pool *pgxpool.Pool
}

func NewPostgresRecordStore(pool *pgxpool.Pool) *PostgresRecordStore {
	return &PostgresRecordStore{pool: pool}
}

func (s *PostgresRecordStore) Create(ctx context.Context, rec *Record) error {
	leadJSON, err := json.Marshal(rec.Lead)
	if err != nil {
		return fmt.Errorf("marshal lead snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
        INSERT INTO notification_records (id, session_id, lead, priority, target_team, sent_at, expected_response_by, responded, reminder_sent)
        VALUES ($1,$2,$3,$4,$5,$6,$7,false,false)
    `, rec.ID, rec.SessionID, leadJSON, string(rec.Priority), string(rec.TargetTeam), rec.SentAt, rec.ExpectedResponseBy)
	if err != nil {
		return fmt.Errorf("insert notification record: %w", err)
	}
	return nil
}

func (s *PostgresRecordStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT id, session_id, lead, priority, target_team, sent_at, expected_response_by,
               responded, coalesce(responded_at, to_timestamp(0)), reminder_sent
        FROM notification_records WHERE id=$1
    `, id)
	return scanRecord(row)
}

func (s *PostgresRecordStore) MarkResponded(ctx context.Context, id string, at time.Time) (*Record, error) {
	_, err := s.pool.Exec(ctx, `
        UPDATE notification_records
        SET responded=true, responded_at=$2
        WHERE id=$1 AND responded=false
    `, id, at)
	if err != nil {
		return nil, fmt.Errorf("mark responded: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *PostgresRecordStore) MarkReminderSent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE notification_records SET reminder_sent=true WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var leadJSON []byte
	var priority, team string
	var respondedAt time.Time
	if err := row.Scan(&rec.ID, &rec.SessionID, &leadJSON, &priority, &team,
		&rec.SentAt, &rec.ExpectedResponseBy, &rec.Responded, &respondedAt, &rec.ReminderSent); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("scan notification record: %w", err)
	}
	if err := json.Unmarshal(leadJSON, &rec.Lead); err != nil {
		return nil, fmt.Errorf("decode lead snapshot: %w", err)
	}
	rec.Priority = score.Priority(priority)
	rec.TargetTeam = escalate.Team(team)
	if rec.Responded {
		rec.RespondedAt = respondedAt
		rec.ResponseTime = respondedAt.Sub(rec.SentAt)
	}
	return &rec, nil
}
