// Package analytics records conversation telemetry and aggregates the
// rolling funnel metrics the business watches: conversion, bounce, per-zone
// and per-intent performance. Recording is strictly fire-and-log: a failure
// here must never affect the reply already computed for the user.
package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leadflow/internal/escalate"
	"github.com/leadflow/internal/geo"
	"github.com/leadflow/internal/intent"
	"github.com/leadflow/internal/session"
)

// Outcome tags a closed session.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeEscalated Outcome = "escalated"
	OutcomeExpired   Outcome = "expired"
)

// MessageEvent is one entry of a session's timeline.
type MessageEvent struct {
	At         time.Time   `json:"at"`
	StepID     string      `json:"step_id"`
	Intent     intent.Kind `json:"intent"`
	Confidence float64     `json:"confidence"`
}

// SessionSummary is emitted when a session closes, whatever the reason.
type SessionSummary struct {
	SessionID    string        `json:"session_id"`
	StartedAt    time.Time     `json:"started_at"`
	ClosedAt     time.Time     `json:"closed_at"`
	Duration     time.Duration `json:"duration"`
	MessageCount int           `json:"message_count"`
	Outcome      Outcome       `json:"outcome"`
	ZoneID       geo.ZoneID    `json:"zone_id"`
	Escalated    bool          `json:"escalated"`
	LeadFields   int           `json:"lead_fields"`
}

// SummarySink receives closed-session summaries, typically for persistence.
type SummarySink interface {
	StoreSummary(ctx context.Context, s SessionSummary) error
}

type intentStats struct {
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type zoneStats struct {
	Conversations int `json:"conversations"`
	Leads         int `json:"leads"`
}

// Aggregates is the rolling metrics snapshot served by the analytics API.
type Aggregates struct {
	Conversations  int                        `json:"conversations"`
	Leads          int                        `json:"leads"`
	Bounces        int                        `json:"bounces"`
	ConversionRate float64                    `json:"conversion_rate"`
	BounceRate     float64                    `json:"bounce_rate"`
	PerZone        map[geo.ZoneID]zoneStats   `json:"per_zone"`
	IntentAverages map[intent.Kind]float64    `json:"intent_averages"`
	IntentCounts   map[intent.Kind]int        `json:"intent_counts"`
	Escalations    map[escalate.Team]int      `json:"escalations"`
	Outcomes       map[Outcome]int            `json:"outcomes"`
	IntentRanges   map[intent.Kind][2]float64 `json:"intent_ranges"`
}

// Recorder accumulates telemetry in memory. All methods are threadsafe.
type Recorder struct {
	mu sync.Mutex

	timelines map[string][]MessageEvent
	zoneBySid map[string]geo.ZoneID
	escalated map[string]bool

	conversations int
	leads         int
	bounces       int
	perZone       map[geo.ZoneID]*zoneStats
	perIntent     map[intent.Kind]*intentStats
	escalations   map[escalate.Team]int
	outcomes      map[Outcome]int

	sink SummarySink
	now  func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{
		timelines:   make(map[string][]MessageEvent),
		zoneBySid:   make(map[string]geo.ZoneID),
		escalated:   make(map[string]bool),
		perZone:     make(map[geo.ZoneID]*zoneStats),
		perIntent:   make(map[intent.Kind]*intentStats),
		escalations: make(map[escalate.Team]int),
		outcomes:    make(map[Outcome]int),
		now:         time.Now,
	}
}

// WithSink attaches a persistence sink for closed-session summaries.
func (r *Recorder) WithSink(sink SummarySink) *Recorder {
	r.sink = sink
	return r
}

// WithClock overrides the time source, for tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// RecordMessage appends one message to the session timeline and updates the
// per-intent confidence distribution.
func (r *Recorder) RecordMessage(sessionID, stepID string, intents []intent.Intent, zone geo.Zone) {
	r.mu.Lock()
	defer r.mu.Unlock()

	top := intent.Top(intents)
	r.timelines[sessionID] = append(r.timelines[sessionID], MessageEvent{
		At:         r.now(),
		StepID:     stepID,
		Intent:     top.Kind,
		Confidence: top.Confidence,
	})
	r.zoneBySid[sessionID] = zone.ID

	for _, it := range intents {
		stats, ok := r.perIntent[it.Kind]
		if !ok {
			stats = &intentStats{Min: it.Confidence, Max: it.Confidence}
			r.perIntent[it.Kind] = stats
		}
		stats.Count++
		stats.Sum += it.Confidence
		if it.Confidence < stats.Min {
			stats.Min = it.Confidence
		}
		if it.Confidence > stats.Max {
			stats.Max = it.Confidence
		}
	}
}

// RecordEscalation registers a fired escalation for the session.
func (r *Recorder) RecordEscalation(sessionID string, verdict escalate.Verdict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.escalated[sessionID] = true
	r.escalations[verdict.TargetTeam]++
}

// RecordSessionClose finalizes a session: updates the funnel aggregates,
// emits the summary to the sink and releases the timeline.
func (r *Recorder) RecordSessionClose(c *session.Context, outcome Outcome) {
	r.mu.Lock()

	now := r.now()
	zoneID, ok := r.zoneBySid[c.SessionID]
	if !ok {
		zoneID = geo.ZoneOther
	}
	escalated := r.escalated[c.SessionID]
	isLead := escalated || c.HasField(session.FieldPhone) || c.HasField(session.FieldEmail)

	r.conversations++
	if isLead {
		r.leads++
	}
	if c.MessageCount < 3 {
		r.bounces++
	}
	zs, ok := r.perZone[zoneID]
	if !ok {
		zs = &zoneStats{}
		r.perZone[zoneID] = zs
	}
	zs.Conversations++
	if isLead {
		zs.Leads++
	}
	r.outcomes[outcome]++

	summary := SessionSummary{
		SessionID:    c.SessionID,
		StartedAt:    c.StartTime,
		ClosedAt:     now,
		Duration:     now.Sub(c.StartTime),
		MessageCount: c.MessageCount,
		Outcome:      outcome,
		ZoneID:       zoneID,
		Escalated:    escalated,
		LeadFields:   len(c.LeadData),
	}

	delete(r.timelines, c.SessionID)
	delete(r.zoneBySid, c.SessionID)
	delete(r.escalated, c.SessionID)
	sink := r.sink
	r.mu.Unlock()

	if sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := sink.StoreSummary(ctx, summary); err != nil {
			log.Error().Err(err).Str("session_id", summary.SessionID).Msg("failed to persist session summary")
		}
	}
}

// Timeline returns a copy of the live timeline for a session.
func (r *Recorder) Timeline(sessionID string) []MessageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.timelines[sessionID]
	out := make([]MessageEvent, len(events))
	copy(out, events)
	return out
}

// Snapshot returns the rolling aggregates.
func (r *Recorder) Snapshot() Aggregates {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg := Aggregates{
		Conversations:  r.conversations,
		Leads:          r.leads,
		Bounces:        r.bounces,
		PerZone:        make(map[geo.ZoneID]zoneStats, len(r.perZone)),
		IntentAverages: make(map[intent.Kind]float64, len(r.perIntent)),
		IntentCounts:   make(map[intent.Kind]int, len(r.perIntent)),
		IntentRanges:   make(map[intent.Kind][2]float64, len(r.perIntent)),
		Escalations:    make(map[escalate.Team]int, len(r.escalations)),
		Outcomes:       make(map[Outcome]int, len(r.outcomes)),
	}
	if r.conversations > 0 {
		agg.ConversionRate = float64(r.leads) / float64(r.conversations)
		agg.BounceRate = float64(r.bounces) / float64(r.conversations)
	}
	for id, zs := range r.perZone {
		agg.PerZone[id] = *zs
	}
	for kind, stats := range r.perIntent {
		agg.IntentCounts[kind] = stats.Count
		agg.IntentRanges[kind] = [2]float64{stats.Min, stats.Max}
		if stats.Count > 0 {
			agg.IntentAverages[kind] = stats.Sum / float64(stats.Count)
		}
	}
	for team, n := range r.escalations {
		agg.Escalations[team] = n
	}
	for outcome, n := range r.outcomes {
		agg.Outcomes[outcome] = n
	}
	return agg
}
