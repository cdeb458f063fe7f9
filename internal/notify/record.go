package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/leadflow/internal/escalate"
	"github.com/leadflow/internal/score"
	"github.com/leadflow/internal/session"
)

var ErrRecordNotFound = errors.New("notification record not found")

// Record tracks one sent escalation and its human response, and drives the
// single follow-up reminder.
type Record struct {
	ID                 string           `json:"id"`
	SessionID          string           `json:"session_id"`
	Lead               session.LeadData `json:"lead"`
	Priority           score.Priority   `json:"priority"`
	TargetTeam         escalate.Team    `json:"target_team"`
	SentAt             time.Time        `json:"sent_at"`
	ExpectedResponseBy time.Time        `json:"expected_response_by"`
	Responded          bool             `json:"responded"`
	RespondedAt        time.Time        `json:"responded_at,omitempty"`
	ResponseTime       time.Duration    `json:"response_time,omitempty"`
	ReminderSent       bool             `json:"reminder_sent"`
}

// RecordStore persists notification records.
type RecordStore interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	MarkResponded(ctx context.Context, id string, at time.Time) (*Record, error)
	MarkReminderSent(ctx context.Context, id string) error
}

// MemoryRecordStore is a threadsafe in-memory store for tests and
// single-node deployments.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string]*Record)}
}

func (s *MemoryRecordStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *rec
	s.records[rec.ID] = &clone
	return nil
}

func (s *MemoryRecordStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *MemoryRecordStore) MarkResponded(_ context.Context, id string, at time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	if !rec.Responded {
		rec.Responded = true
		rec.RespondedAt = at
		rec.ResponseTime = at.Sub(rec.SentAt)
	}
	clone := *rec
	return &clone, nil
}

func (s *MemoryRecordStore) MarkReminderSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec.ReminderSent = true
	return nil
}
