// Package pipeline wires the conversation stages together: session state,
// lead extraction, intent recognition, flow transition, scoring, escalation
// and analytics. One ProcessMessage call runs one inbound message through
// all of them and always produces a user-facing reply.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leadflow/internal/analytics"
	"github.com/leadflow/internal/escalate"
	"github.com/leadflow/internal/flow"
	"github.com/leadflow/internal/geo"
	"github.com/leadflow/internal/intent"
	"github.com/leadflow/internal/metrics"
	"github.com/leadflow/internal/notify"
	"github.com/leadflow/internal/score"
	"github.com/leadflow/internal/session"
)

// maxConcurrentDispatches bounds the escalation goroutines so a slow or
// down webhook endpoint cannot pile up unbounded work.
const maxConcurrentDispatches = 16

// dispatchTimeout is the budget for one async escalation delivery.
const dispatchTimeout = 10 * time.Second

// Response is what the chat surface renders for one processed message.
type Response struct {
	SessionID      string            `json:"session_id"`
	Reply          string            `json:"reply"`
	Options        []string          `json:"options,omitempty"`
	StepID         string            `json:"step_id"`
	Score          int               `json:"score"`
	Priority       score.Priority    `json:"priority"`
	Zone           geo.ZoneID        `json:"zone"`
	Escalated      bool              `json:"escalated"`
	EscalationType escalate.Type     `json:"escalation_type,omitempty"`
	Terminal       bool              `json:"terminal"`
	Analytics      ResponseAnalytics `json:"analytics"`
}

// ResponseAnalytics is the per-message slice of session analytics handed
// back to the chat surface.
type ResponseAnalytics struct {
	MessageCount  int         `json:"message_count"`
	TopIntent     intent.Kind `json:"top_intent"`
	TopConfidence float64     `json:"top_confidence"`
}

// Deps collects everything the pipeline needs. All fields are required
// except Dispatcher, Recorder, Experiments and Metrics, which degrade to
// no-ops when nil.
type Deps struct {
	Store       session.Store
	Classifier  *geo.Classifier
	Recognizer  *intent.Recognizer
	Machine     *flow.Machine
	Scorer      *score.Scorer
	Evaluator   *escalate.Evaluator
	Dispatcher  *notify.Dispatcher
	Recorder    *analytics.Recorder
	Experiments *analytics.Engine
	Metrics     *metrics.Metrics
}

// Pipeline orchestrates the conversation stages.
type Pipeline struct {
	deps Deps
	now  func() time.Time

	sem chan struct{}
	wg  sync.WaitGroup
}

func New(deps Deps) *Pipeline {
	return &Pipeline{
		deps: deps,
		now:  time.Now,
		sem:  make(chan struct{}, maxConcurrentDispatches),
	}
}

// WithClock overrides the time source for tests.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// ProcessMessage runs one inbound message through every stage. A missing or
// corrupted session starts a fresh conversation instead of failing; the only
// errors returned are persistence failures on the way out.
func (p *Pipeline) ProcessMessage(ctx context.Context, sessionID, message string) (*Response, error) {
	started := p.now()

	sess, fresh := p.loadOrCreate(ctx, sessionID)

	// a brand-new session with no message just gets the greeting
	if fresh && strings.TrimSpace(message) == "" {
		res := p.deps.Machine.Greeting(sess)
		if err := p.deps.Store.Put(ctx, sess); err != nil {
			return nil, err
		}
		if p.deps.Metrics != nil {
			p.deps.Metrics.ActiveSessions.Inc()
		}
		return &Response{
			SessionID: sess.SessionID,
			Reply:     res.Reply,
			Options:   res.Options,
			StepID:    res.StepID,
			Zone:      geo.ZoneOther,
			Priority:  score.PriorityLow,
		}, nil
	}

	sess.Touch(p.now())

	flow.ExtractLead(sess, message, p.deps.Classifier)
	intents := p.deps.Recognizer.Recognize(message)
	sess.RecordIntents(intents)

	zone := p.zoneFor(sess, message)
	extras := map[string]string{"zone_sla": zone.ResponseSLA}

	res := p.deps.Machine.Advance(sess, message, intents, extras)

	leadScore := p.deps.Scorer.Score(sess.LeadData, sess.IntentsHistory, zone, sess.MessageCount)
	priority := score.PriorityFor(leadScore)

	verdict := p.deps.Evaluator.Evaluate(sess, intents, zone, leadScore)
	escalated := false
	if verdict.Required && sess.MarkEscalated(string(verdict.Type), verdict.Priority.Rank()) {
		escalated = true
		if p.deps.Recorder != nil {
			p.deps.Recorder.RecordEscalation(sess.SessionID, verdict)
		}
		if p.deps.Dispatcher != nil {
			p.dispatchAsync(sess, verdict, leadScore, zone)
		}
		// An explicit operator request takes over the conversation on the
		// spot. Emergencies alert the team right away but the bot stays on
		// the step that collects a callback number, and high-value alerts
		// run silently so the flow keeps gathering contact details.
		if verdict.Priority == score.PriorityImmediate && verdict.Type == escalate.TypeQualifiedLead &&
			!res.EmergencyForced && res.StepID != flow.StepEmergencyFlow {
			res = p.deps.Machine.Escalate(sess, extras)
		}
	}

	if p.deps.Recorder != nil {
		p.deps.Recorder.RecordMessage(sess.SessionID, res.StepID, intents, zone)
	}
	if p.deps.Metrics != nil {
		p.deps.Metrics.MessagesProcessed.WithLabelValues(string(intent.Top(intents).Kind)).Inc()
		p.deps.Metrics.LeadScore.Observe(float64(leadScore))
		p.deps.Metrics.ProcessingDuration.Observe(p.now().Sub(started).Seconds())
		if fresh {
			p.deps.Metrics.ActiveSessions.Inc()
		}
	}

	terminal := p.deps.Machine.IsTerminal(res.StepID)
	if terminal {
		p.closeSession(ctx, sess, escalatedOutcome(sess))
	} else if err := p.deps.Store.Put(ctx, sess); err != nil {
		return nil, err
	}

	top := intent.Top(intents)
	return &Response{
		SessionID:      sess.SessionID,
		Reply:          res.Reply,
		Options:        res.Options,
		StepID:         res.StepID,
		Score:          leadScore,
		Priority:       priority,
		Zone:           zone.ID,
		Escalated:      escalated,
		EscalationType: verdict.Type,
		Terminal:       terminal,
		Analytics: ResponseAnalytics{
			MessageCount:  sess.MessageCount,
			TopIntent:     top.Kind,
			TopConfidence: top.Confidence,
		},
	}, nil
}

// CloseExpired is the hook the session store calls when a session times out.
func (p *Pipeline) CloseExpired(c *session.Context) {
	if p.deps.Recorder != nil {
		p.deps.Recorder.RecordSessionClose(c, analytics.OutcomeExpired)
	}
	// an abandoned conversation still counts against its variant; without
	// this observation both arms only measure conversion-given-completion
	if p.deps.Experiments != nil {
		converted := 0.0
		if len(c.EscalationExecuted) > 0 {
			converted = 1.0
		}
		p.deps.Experiments.RecordValue(GreetingExperiment, c.SessionID, converted)
	}
	if p.deps.Metrics != nil {
		p.deps.Metrics.ActiveSessions.Dec()
		p.deps.Metrics.SessionsClosed.WithLabelValues(string(analytics.OutcomeExpired)).Inc()
	}
}

// Wait blocks until in-flight escalation deliveries finish. Used on shutdown.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// GreetingExperiment is the running A/B test on conversation openers. New
// sessions are assigned a variant; closed sessions report conversion.
const GreetingExperiment = "greeting_style"

func (p *Pipeline) loadOrCreate(ctx context.Context, sessionID string) (*session.Context, bool) {
	if sessionID == "" {
		return p.newSession(), true
	}
	sess, err := p.deps.Store.Get(ctx, sessionID)
	switch {
	case err == nil:
		return sess, false
	case errors.Is(err, session.ErrCorrupted):
		log.Warn().Str("session_id", sessionID).Msg("session state unreadable, starting over")
	case !errors.Is(err, session.ErrNotFound):
		log.Error().Err(err).Str("session_id", sessionID).Msg("session load failed, starting over")
	}
	return p.newSession(), true
}

func (p *Pipeline) newSession() *session.Context {
	sess := session.New(p.deps.Machine.InitialStep(), p.now())
	if p.deps.Experiments != nil {
		p.deps.Experiments.Assign(GreetingExperiment, sess.SessionID)
	}
	return sess
}

// zoneFor prefers the location already captured on the session over
// re-classifying the current message.
func (p *Pipeline) zoneFor(sess *session.Context, message string) geo.Zone {
	if loc, ok := sess.LeadData[session.FieldLocation]; ok {
		if zone := p.deps.Classifier.Classify(loc); zone.ID != geo.ZoneOther {
			return zone
		}
	}
	return p.deps.Classifier.Classify(message)
}

func (p *Pipeline) dispatchAsync(sess *session.Context, verdict escalate.Verdict, leadScore int, zone geo.Zone) {
	snapshot := *sess
	snapshot.LeadData = sess.LeadData.Clone()

	p.wg.Add(1)
	select {
	case p.sem <- struct{}{}:
	default:
		// dispatch queue saturated: run inline rather than drop the lead,
		// the dispatcher's own timeout still bounds the work
		p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		p.deliver(ctx, &snapshot, verdict, leadScore, zone)
		return
	}

	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		p.deliver(ctx, &snapshot, verdict, leadScore, zone)
	}()
}

func (p *Pipeline) deliver(ctx context.Context, sess *session.Context, verdict escalate.Verdict, leadScore int, zone geo.Zone) {
	rec := p.deps.Dispatcher.Dispatch(ctx, sess, verdict, leadScore, zone)
	if p.deps.Metrics == nil {
		return
	}
	if rec != nil {
		p.deps.Metrics.EscalationsSent.WithLabelValues(string(verdict.TargetTeam), string(verdict.Priority)).Inc()
	} else {
		p.deps.Metrics.NotificationsFailed.Inc()
	}
}

func (p *Pipeline) closeSession(ctx context.Context, sess *session.Context, outcome analytics.Outcome) {
	if p.deps.Recorder != nil {
		p.deps.Recorder.RecordSessionClose(sess, outcome)
	}
	if p.deps.Experiments != nil {
		converted := 0.0
		if outcome == analytics.OutcomeEscalated || len(sess.EscalationExecuted) > 0 {
			converted = 1.0
		}
		p.deps.Experiments.RecordValue(GreetingExperiment, sess.SessionID, converted)
	}
	if p.deps.Metrics != nil {
		p.deps.Metrics.ActiveSessions.Dec()
		p.deps.Metrics.SessionsClosed.WithLabelValues(string(outcome)).Inc()
	}
	if err := p.deps.Store.Delete(ctx, sess.SessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("failed to delete closed session")
	}
}

func escalatedOutcome(sess *session.Context) analytics.Outcome {
	if len(sess.EscalationExecuted) > 0 {
		return analytics.OutcomeEscalated
	}
	return analytics.OutcomeCompleted
}
