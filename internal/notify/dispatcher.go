// Package notify formats escalation verdicts into chat-ops cards and
// delivers them to the right team channel. Delivery never fails the caller:
// every error path is logged and the user-facing conversation continues.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/leadflow/internal/escalate"
	"github.com/leadflow/internal/geo"
	"github.com/leadflow/internal/score"
	"github.com/leadflow/internal/session"
)

// DefaultSLA is the expected human response window per priority tier.
var DefaultSLA = map[score.Priority]time.Duration{
	score.PriorityImmediate: 2 * time.Hour,
	score.PriorityHigh:      4 * time.Hour,
	score.PriorityMedium:    8 * time.Hour,
	score.PriorityLow:       24 * time.Hour,
}

// ReminderScheduler queues the single follow-up reminder for a record.
// The production implementation inserts a deferred job; tests use stubs.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, recordID string, at time.Time) error
}

// NopScheduler discards reminders. Used when no job queue is configured.
type NopScheduler struct{}

func (NopScheduler) ScheduleReminder(context.Context, string, time.Time) error { return nil }

// Dispatcher routes escalation cards to team webhook channels.
type Dispatcher struct {
	channels    map[escalate.Team]string
	sla         map[score.Priority]time.Duration
	transport   Transport
	records     RecordStore
	scheduler   ReminderScheduler
	sendTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDispatcher wires the dispatcher. channels maps team name to webhook
// URL; a missing team falls back to the general channel. A nil sla map uses
// DefaultSLA.
func NewDispatcher(channels map[escalate.Team]string, sla map[score.Priority]time.Duration,
	transport Transport, records RecordStore, scheduler ReminderScheduler) *Dispatcher {
	if sla == nil {
		sla = DefaultSLA
	}
	return &Dispatcher{
		channels:    channels,
		sla:         sla,
		transport:   transport,
		records:     records,
		scheduler:   scheduler,
		sendTimeout: 5 * time.Second,
		now:         time.Now,
		limiters:    make(map[string]*rate.Limiter),
	}
}

// WithClock overrides the time source, for tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// WithScheduler swaps the reminder scheduler in after construction. The job
// queue needs the dispatcher to exist before it can be built, so startup
// wires the two in this order.
func (d *Dispatcher) WithScheduler(s ReminderScheduler) *Dispatcher {
	d.scheduler = s
	return d
}

// SLA returns the response window for a priority tier.
func (d *Dispatcher) SLA(p score.Priority) time.Duration {
	if v, ok := d.sla[p]; ok {
		return v
	}
	return DefaultSLA[score.PriorityLow]
}

// Dispatch sends the escalation card and creates the notification record.
// It never returns an error: failures are logged and nil is returned, so the
// conversation response to the end user is unaffected.
func (d *Dispatcher) Dispatch(ctx context.Context, c *session.Context, verdict escalate.Verdict, leadScore int, zone geo.Zone) *Record {
	webhookURL := d.channelFor(verdict.TargetTeam)
	if webhookURL == "" {
		log.Warn().Str("team", string(verdict.TargetTeam)).Msg("no webhook channel configured, dropping notification")
		return nil
	}

	if !d.limiterFor(webhookURL).Allow() {
		log.Warn().
			Str("team", string(verdict.TargetTeam)).
			Str("session_id", c.SessionID).
			Msg("notification channel rate limited, dropping")
		return nil
	}

	card := BuildCard(c, verdict, leadScore, zone)

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	if err := d.transport.Send(sendCtx, webhookURL, card); err != nil {
		// delivery failures are logged, never surfaced to the conversation
		log.Error().
			Err(err).
			Str("team", string(verdict.TargetTeam)).
			Str("session_id", c.SessionID).
			Msg("notification delivery failed")
		return nil
	}

	now := d.now()
	rec := &Record{
		ID:                 uuid.NewString(),
		SessionID:          c.SessionID,
		Lead:               c.LeadData.Clone(),
		Priority:           verdict.Priority,
		TargetTeam:         verdict.TargetTeam,
		SentAt:             now,
		ExpectedResponseBy: now.Add(d.SLA(verdict.Priority)),
	}
	if err := d.records.Create(ctx, rec); err != nil {
		log.Error().Err(err).Str("notification_id", rec.ID).Msg("failed to persist notification record")
		return rec
	}
	if err := d.scheduler.ScheduleReminder(ctx, rec.ID, rec.ExpectedResponseBy); err != nil {
		log.Error().Err(err).Str("notification_id", rec.ID).Msg("failed to schedule follow-up reminder")
	}

	log.Info().
		Str("notification_id", rec.ID).
		Str("session_id", c.SessionID).
		Str("team", string(verdict.TargetTeam)).
		Str("priority", string(verdict.Priority)).
		Int("score", leadScore).
		Msg("escalation notification sent")
	return rec
}

// MarkResponded records a human response, which cancels the pending
// reminder: a responded record is skipped when its reminder job fires.
func (d *Dispatcher) MarkResponded(ctx context.Context, notificationID string) (*Record, error) {
	rec, err := d.records.MarkResponded(ctx, notificationID, d.now())
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("notification_id", rec.ID).
		Dur("response_time", rec.ResponseTime).
		Msg("notification response recorded")
	return rec, nil
}

// SendReminder delivers the single follow-up for an unanswered record. Safe
// to call more than once: responded or already-reminded records are skipped,
// so at most one reminder ever goes out per record.
func (d *Dispatcher) SendReminder(ctx context.Context, notificationID string) error {
	rec, err := d.records.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if rec.Responded || rec.ReminderSent {
		return nil
	}

	webhookURL := d.channelFor(rec.TargetTeam)
	if webhookURL == "" {
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	if err := d.transport.Send(sendCtx, webhookURL, BuildReminderCard(rec)); err != nil {
		// surfaced so the job queue retries the delivery; the flags above
		// still guarantee at most one reminder actually lands
		return fmt.Errorf("reminder delivery failed: %w", err)
	}
	return d.records.MarkReminderSent(ctx, notificationID)
}

func (d *Dispatcher) channelFor(team escalate.Team) string {
	if url, ok := d.channels[team]; ok && url != "" {
		return url
	}
	return d.channels[escalate.TeamGeneral]
}

// limiterFor returns the per-channel rate limiter, creating it on first use.
// A channel absorbs short bursts but is capped at one card per two seconds.
func (d *Dispatcher) limiterFor(webhookURL string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[webhookURL]
	if !ok {
		l = rate.NewLimiter(rate.Every(2*time.Second), 5)
		d.limiters[webhookURL] = l
	}
	return l
}
