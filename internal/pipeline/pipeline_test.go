package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leadflow/internal/analytics"
	"github.com/leadflow/internal/catalog"
	"github.com/leadflow/internal/escalate"
	"github.com/leadflow/internal/flow"
	"github.com/leadflow/internal/geo"
	"github.com/leadflow/internal/intent"
	"github.com/leadflow/internal/notify"
	"github.com/leadflow/internal/score"
	"github.com/leadflow/internal/session"
)

// offHours keeps the business-hours bonus out of score assertions.
var offHours = time.Date(2025, time.March, 2, 22, 0, 0, 0, time.UTC) // Sunday

type capturingTransport struct {
	mu    sync.Mutex
	sends []capturedSend
}

type capturedSend struct {
	url  string
	card notify.Card
}

func (t *capturingTransport) Send(_ context.Context, url string, card notify.Card) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends = append(t.sends, capturedSend{url: url, card: card})
	return nil
}

func (t *capturingTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sends)
}

func (t *capturingTransport) urls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sends))
	for i, s := range t.sends {
		out[i] = s.url
	}
	return out
}

func newTestPipeline(t *testing.T) (*Pipeline, *capturingTransport, *analytics.Recorder) {
	t.Helper()

	transport := &capturingTransport{}
	dispatcher := notify.NewDispatcher(map[escalate.Team]string{
		escalate.TeamEmergency: "https://hooks.test/emergency",
		escalate.TeamSales:     "https://hooks.test/sales",
		escalate.TeamSupport:   "https://hooks.test/support",
		escalate.TeamGeneral:   "https://hooks.test/general",
	}, nil, transport, notify.NewMemoryRecordStore(), notify.NopScheduler{})

	recorder := analytics.NewRecorder()

	clock := func() time.Time { return offHours }
	p := New(Deps{
		Store:      session.NewMemoryStore(30 * time.Minute).WithClock(clock),
		Classifier: geo.NewClassifier(geo.DefaultZones()),
		Recognizer: intent.NewRecognizer(intent.DefaultCategories()),
		Machine:    flow.NewMachine(flow.DefaultSteps(catalog.Default().Names())),
		Scorer:     score.NewScorer().WithClock(clock),
		Evaluator:  escalate.NewEvaluator(),
		Dispatcher: dispatcher,
		Recorder:   recorder,
	}).WithClock(clock)
	return p, transport, recorder
}

func TestNewSessionGetsGreeting(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	resp, err := p.ProcessMessage(context.Background(), "", "")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a session id to be assigned")
	}
	if resp.StepID != flow.StepGreeting {
		t.Fatalf("step = %q, want %q", resp.StepID, flow.StepGreeting)
	}
	if resp.Reply == "" {
		t.Fatal("greeting reply is empty")
	}
}

func TestEmergencyMessageAlertsTeamAndStaysInEmergencyFlow(t *testing.T) {
	p, transport, _ := newTestPipeline(t)

	resp, err := p.ProcessMessage(context.Background(), "", "EMERGENZA - il nostro server è down, siamo fermi!")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	if resp.StepID != flow.StepEmergencyFlow {
		t.Fatalf("step = %q, want %q", resp.StepID, flow.StepEmergencyFlow)
	}
	if !resp.Escalated {
		t.Fatal("expected an escalation on an emergency message")
	}
	if resp.EscalationType != escalate.TypeEmergency {
		t.Fatalf("escalation type = %q, want %q", resp.EscalationType, escalate.TypeEmergency)
	}

	p.Wait()
	if transport.count() != 1 {
		t.Fatalf("sends = %d, want 1", transport.count())
	}
	if transport.sends[0].url != "https://hooks.test/emergency" {
		t.Fatalf("notified %q, want the emergency channel", transport.sends[0].url)
	}

	// the follow-up with the phone number completes the handoff
	resp2, err := p.ProcessMessage(context.Background(), resp.SessionID, "Mi chiamate allo 039 123 4567")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if resp2.StepID != flow.StepEscalation {
		t.Fatalf("step = %q, want %q", resp2.StepID, flow.StepEscalation)
	}
	if !resp2.Terminal {
		t.Fatal("escalation step should be terminal")
	}
	p.Wait()
	if transport.count() != 1 {
		t.Fatalf("sends after phone = %d, want still 1 (deduplicated)", transport.count())
	}
}

func TestEveryMessageProducesAReply(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	messages := []string{
		"ciao", "", "???", "EMERGENZA down", "no", "039 1234567", "grazie",
	}
	sessionID := ""
	for i, msg := range messages {
		resp, err := p.ProcessMessage(context.Background(), sessionID, msg)
		if err != nil {
			t.Fatalf("message %d (%q): %v", i, msg, err)
		}
		if strings.TrimSpace(resp.Reply) == "" {
			t.Fatalf("message %d (%q) produced an empty reply", i, msg)
		}
		sessionID = resp.SessionID
	}
}

func TestUnknownSessionStartsFresh(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	resp, err := p.ProcessMessage(context.Background(), "no-such-session", "buongiorno")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if resp.SessionID == "no-such-session" {
		t.Fatal("expected a fresh session id for an unknown session")
	}
	if resp.Reply == "" {
		t.Fatal("expected a reply for the restarted conversation")
	}
}

func TestQualifiedLeadEscalatesOnce(t *testing.T) {
	p, transport, _ := newTestPipeline(t)

	ctx := context.Background()
	resp, err := p.ProcessMessage(ctx, "", "Buongiorno, siamo un'azienda di Vimercate")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	sid := resp.SessionID

	// walk the flow far enough to hand over contact details
	script := []string{
		"50+",
		"Ci serve sicurezza informatica e un firewall serio",
		"Subito, è urgente",
		"ACME Srl",
		"Mario Rossi",
		"+39 039 555 0101",
		"mario.rossi@acme.it",
	}
	var last *Response
	for _, msg := range script {
		last, err = p.ProcessMessage(ctx, sid, msg)
		if err != nil {
			t.Fatalf("ProcessMessage(%q): %v", msg, err)
		}
	}

	if last.Score < score.ThresholdImmediate {
		t.Fatalf("score = %d, want >= %d for a 50+ Vimercate security lead", last.Score, score.ThresholdImmediate)
	}

	p.Wait()
	if transport.count() == 0 {
		t.Fatal("expected at least one escalation notification")
	}
	// "Subito, è urgente" is a timeline answer, not an incident report
	for _, url := range transport.urls() {
		if url == "https://hooks.test/emergency" {
			t.Fatal("sales conversation must not page the emergency team")
		}
	}

	// replaying more messages on the same session must not re-notify
	// with the same escalation type
	before := transport.count()
	if _, err := p.ProcessMessage(ctx, sid, "ci siete ancora?"); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	p.Wait()
	if transport.count() != before {
		t.Fatalf("sends grew from %d to %d on a repeat message", before, transport.count())
	}
}

func TestSessionCloseFeedsAnalytics(t *testing.T) {
	p, _, recorder := newTestPipeline(t)

	ctx := context.Background()
	resp, err := p.ProcessMessage(ctx, "", "EMERGENZA server down")
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if _, err := p.ProcessMessage(ctx, resp.SessionID, "039 1234567"); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	agg := recorder.Snapshot()
	if agg.Outcomes[analytics.OutcomeEscalated] != 1 {
		t.Fatalf("escalated outcomes = %d, want 1", agg.Outcomes[analytics.OutcomeEscalated])
	}
}

func TestExpiredSessionCountsAgainstItsVariant(t *testing.T) {
	now := offHours
	clock := func() time.Time { return now }
	store := session.NewMemoryStore(30 * time.Minute).WithClock(clock)

	engine := analytics.NewEngine().WithClock(clock)
	engine.Register(analytics.Experiment{
		TestID:   GreetingExperiment,
		Variants: []analytics.VariantStats{{ID: "formal"}, {ID: "friendly"}},
	})

	p := New(Deps{
		Store:       store,
		Classifier:  geo.NewClassifier(geo.DefaultZones()),
		Recognizer:  intent.NewRecognizer(intent.DefaultCategories()),
		Machine:     flow.NewMachine(flow.DefaultSteps(catalog.Default().Names())),
		Scorer:      score.NewScorer().WithClock(clock),
		Evaluator:   escalate.NewEvaluator(),
		Experiments: engine,
	}).WithClock(clock)
	store.OnExpire(p.CloseExpired)

	if _, err := p.ProcessMessage(context.Background(), "", "buongiorno"); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	now = now.Add(31 * time.Minute)
	if swept := store.Sweep(); swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	total, converted := 0, 0.0
	for _, exp := range engine.Snapshot() {
		if exp.TestID != GreetingExperiment {
			continue
		}
		for _, v := range exp.Variants {
			total += v.Count
			converted += v.TotalValue
		}
	}
	if total != 1 {
		t.Fatalf("variant observations = %d, want 1 for the abandoned session", total)
	}
	if converted != 0 {
		t.Fatalf("conversion total = %v, want 0 for the abandoned session", converted)
	}
}
