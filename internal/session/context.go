// Package session owns the per-conversation state: the collected lead data,
// the position in the scripted flow and the escalations already fired. Each
// context is owned exclusively by its session, so no cross-session locking is
// needed.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/leadflow/internal/intent"
)

// Lead data field names. Fields merge additively into the session and are
// write-once unless explicitly corrected.
const (
	FieldCompanyName     = "company_name"
	FieldContactName     = "contact_name"
	FieldPhone           = "phone"
	FieldEmail           = "email"
	FieldLocation        = "location"
	FieldCompanySize     = "company_size"
	FieldServiceInterest = "service_interest"
	FieldTimeline        = "timeline"
	FieldBudgetRange     = "budget_range"
)

// LeadData maps field name to collected value.
type LeadData map[string]string

// Clone returns an independent copy, safe to hand to async consumers.
func (d LeadData) Clone() LeadData {
	out := make(LeadData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Context is the full per-session conversation state.
type Context struct {
	SessionID          string          `json:"session_id"`
	StartTime          time.Time       `json:"start_time"`
	LastActivity       time.Time       `json:"last_activity"`
	CurrentStepID      string          `json:"current_step_id"`
	MessageCount       int             `json:"message_count"`
	LeadData           LeadData        `json:"lead_data"`
	IntentsHistory     []intent.Intent `json:"intents_history"`
	EscalationExecuted map[string]bool `json:"escalation_executed"`
	EscalationRank     int             `json:"escalation_rank,omitempty"`
	RetryCount         int             `json:"retry_count"`
}

// New creates a fresh context positioned at the given initial step.
func New(initialStep string, now time.Time) *Context {
	return &Context{
		SessionID:          uuid.NewString(),
		StartTime:          now,
		LastActivity:       now,
		CurrentStepID:      initialStep,
		LeadData:           make(LeadData),
		EscalationExecuted: make(map[string]bool),
	}
}

// Touch records inbound activity on the session.
func (c *Context) Touch(now time.Time) {
	c.LastActivity = now
	c.MessageCount++
}

// SetField stores a lead field. Existing values win unless overwrite is set,
// which keeps fields write-once-per-session while still allowing explicit
// corrections.
func (c *Context) SetField(name, value string, overwrite bool) bool {
	if value == "" {
		return false
	}
	if _, exists := c.LeadData[name]; exists && !overwrite {
		return false
	}
	c.LeadData[name] = value
	return true
}

// HasField reports whether a lead field has been collected.
func (c *Context) HasField(name string) bool {
	_, ok := c.LeadData[name]
	return ok
}

// RecordIntents appends a message's recognition result to the history.
func (c *Context) RecordIntents(intents []intent.Intent) {
	c.IntentsHistory = append(c.IntentsHistory, intents...)
}

// MarkEscalated records that an escalation fired this session. A repeat of a
// type that already fired is suppressed, and so is anything at or below the
// highest priority rank already sent: once the emergency team has been
// alerted, a later medium-tier lead card for the same conversation is noise.
// Returns false when the escalation is suppressed.
func (c *Context) MarkEscalated(escalationType string, rank int) bool {
	if c.EscalationExecuted == nil {
		c.EscalationExecuted = make(map[string]bool)
	}
	if c.EscalationExecuted[escalationType] {
		return false
	}
	if len(c.EscalationExecuted) > 0 && rank <= c.EscalationRank {
		return false
	}
	c.EscalationExecuted[escalationType] = true
	if rank > c.EscalationRank {
		c.EscalationRank = rank
	}
	return true
}

// Expired reports whether the session exceeded the inactivity window.
func (c *Context) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(c.LastActivity) > window
}
