package escalate

import (
	"testing"
	"time"

	"github.com/leadflow/internal/geo"
	"github.com/leadflow/internal/intent"
	"github.com/leadflow/internal/score"
	"github.com/leadflow/internal/session"
)

func newCtx() *session.Context {
	return session.New("greeting", time.Now())
}

func TestEmergencyIntentEscalatesImmediately(t *testing.T) {
	e := NewEvaluator()
	intents := []intent.Intent{{Kind: intent.KindEmergency, Confidence: 0.95}}

	v := e.Evaluate(newCtx(), intents, geo.OtherZone(), 10)
	if !v.Required {
		t.Fatal("emergency must require escalation")
	}
	if v.Type != TypeEmergency || v.Priority != score.PriorityImmediate || v.TargetTeam != TeamEmergency {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestHighScoreEscalatesImmediately(t *testing.T) {
	e := NewEvaluator()

	v := e.Evaluate(newCtx(), nil, geo.OtherZone(), 85)
	if !v.Required || v.Priority != score.PriorityImmediate || v.TargetTeam != TeamSales {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestHumanRequestEscalates(t *testing.T) {
	e := NewEvaluator()
	intents := []intent.Intent{{Kind: intent.KindHumanRequest, Confidence: 0.6}}

	v := e.Evaluate(newCtx(), intents, geo.OtherZone(), 10)
	if !v.Required || v.TargetTeam != TeamSupport {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestHighTierNeedsPhone(t *testing.T) {
	e := NewEvaluator()

	c := newCtx()
	v := e.Evaluate(c, nil, geo.OtherZone(), 65)
	if v.Required {
		t.Fatalf("score 65 without contact should not escalate, got %+v", v)
	}

	c.SetField(session.FieldPhone, "039 6085000", false)
	v = e.Evaluate(c, nil, geo.OtherZone(), 65)
	if !v.Required || v.Priority != score.PriorityHigh {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestPremiumZoneServiceIntentEscalatesHigh(t *testing.T) {
	e := NewEvaluator()
	zone := geo.NewClassifier(geo.DefaultZones()).Classify("vimercate")

	c := newCtx()
	c.RecordIntents([]intent.Intent{{Kind: intent.KindSecurity, Confidence: 0.5}})

	v := e.Evaluate(c, nil, zone, 20)
	if !v.Required || v.Priority != score.PriorityHigh || v.TargetTeam != TeamSales {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestMediumTierNeedsMinimalContact(t *testing.T) {
	e := NewEvaluator()

	c := newCtx()
	if v := e.Evaluate(c, nil, geo.OtherZone(), 40); v.Required {
		t.Fatalf("no contact data should stay low: %+v", v)
	}

	c.SetField(session.FieldEmail, "info@rossisrl.it", false)
	v := e.Evaluate(c, nil, geo.OtherZone(), 40)
	if !v.Required || v.Priority != score.PriorityMedium || v.Type != TypeQualifiedLead {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestLowTierDoesNotEscalate(t *testing.T) {
	e := NewEvaluator()

	v := e.Evaluate(newCtx(), nil, geo.OtherZone(), 5)
	if v.Required || v.Type != TypeNone || v.Priority != score.PriorityLow {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	e := NewEvaluator()
	c := newCtx()
	c.SetField(session.FieldPhone, "039 123", false)
	intents := []intent.Intent{{Kind: intent.KindQuoteRequest, Confidence: 0.5}}

	first := e.Evaluate(c, intents, geo.OtherZone(), 62)
	for i := 0; i < 10; i++ {
		if again := e.Evaluate(c, intents, geo.OtherZone(), 62); again != first {
			t.Fatalf("verdict changed between calls: %+v vs %+v", first, again)
		}
	}
}
