package score

import (
	"testing"
	"time"

	"github.com/leadflow/internal/geo"
	"github.com/leadflow/internal/intent"
	"github.com/leadflow/internal/session"
)

// Sunday 22:00 keeps the business-hours bonus out of threshold assertions.
var offHours = time.Date(2025, time.March, 2, 22, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func premiumZone() geo.Zone {
	return geo.NewClassifier(geo.DefaultZones()).Classify("vimercate")
}

func TestHotLeadScoresImmediate(t *testing.T) {
	s := NewScorer().WithClock(fixedClock(offHours))
	lead := session.LeadData{
		session.FieldCompanySize:     "50+",
		session.FieldLocation:        "Vimercate",
		session.FieldServiceInterest: "sicurezza",
	}

	got := s.Score(lead, nil, premiumZone(), 3)
	if got < 80 {
		t.Fatalf("expected score >= 80, got %d", got)
	}
	if PriorityFor(got) != PriorityImmediate {
		t.Fatalf("expected immediate priority, got %s", PriorityFor(got))
	}
}

func TestColdLeadScoresLow(t *testing.T) {
	s := NewScorer().WithClock(fixedClock(offHours))
	lead := session.LeadData{
		session.FieldCompanySize: "1-5",
		session.FieldLocation:    "Roma",
		session.FieldTimeline:    "nessuna fretta",
	}
	other := geo.NewClassifier(geo.DefaultZones()).Classify("Roma")

	got := s.Score(lead, nil, other, 2)
	if got >= 35 {
		t.Fatalf("expected score < 35, got %d", got)
	}
	if PriorityFor(got) != PriorityLow {
		t.Fatalf("expected low priority, got %s", PriorityFor(got))
	}
}

func TestScoreMonotonicInCompanySize(t *testing.T) {
	s := NewScorer().WithClock(fixedClock(offHours))
	zone := premiumZone()
	sizes := []string{"", "1-4", "5-9", "10-19", "20-49", "50+", "200 dipendenti"}

	prev := -1
	for _, size := range sizes {
		lead := session.LeadData{session.FieldCompanySize: size}
		got := s.Score(lead, nil, zone, 3)
		if got < prev {
			t.Fatalf("score decreased from %d to %d at size %q", prev, got, size)
		}
		prev = got
	}
}

func TestScoreClampedAndDeterministic(t *testing.T) {
	s := NewScorer().WithClock(fixedClock(offHours))
	lead := session.LeadData{
		session.FieldCompanySize:     "200",
		session.FieldServiceInterest: "sicurezza e backup",
		session.FieldTimeline:        "subito, urgente",
	}
	history := []intent.Intent{
		{Kind: intent.KindEmergency, Confidence: 1},
		{Kind: intent.KindQuoteRequest, Confidence: 0.8},
	}

	first := s.Score(lead, history, premiumZone(), 12)
	if first > 100 || first < 0 {
		t.Fatalf("score out of range: %d", first)
	}
	if first != 100 {
		t.Fatalf("stacked signals should clamp to 100, got %d", first)
	}
	for i := 0; i < 5; i++ {
		if again := s.Score(lead, history, premiumZone(), 12); again != first {
			t.Fatalf("scoring not deterministic: %d vs %d", first, again)
		}
	}
}

func TestEmergencyIntentRaisesScore(t *testing.T) {
	s := NewScorer().WithClock(fixedClock(offHours))
	lead := session.LeadData{session.FieldCompanySize: "20-49"}

	base := s.Score(lead, nil, geo.OtherZone(), 2)
	withEmergency := s.Score(lead, []intent.Intent{{Kind: intent.KindEmergency, Confidence: 1}}, geo.OtherZone(), 2)
	if withEmergency-base != 35 {
		t.Fatalf("emergency should add 35 points, added %d", withEmergency-base)
	}
}

func TestRepeatedIntentCountedOnce(t *testing.T) {
	s := NewScorer().WithClock(fixedClock(offHours))
	once := s.Score(nil, []intent.Intent{{Kind: intent.KindQuoteRequest}}, geo.OtherZone(), 2)
	thrice := s.Score(nil, []intent.Intent{
		{Kind: intent.KindQuoteRequest},
		{Kind: intent.KindQuoteRequest},
		{Kind: intent.KindQuoteRequest},
	}, geo.OtherZone(), 2)
	if once != thrice {
		t.Fatalf("repeated intent inflated score: %d vs %d", once, thrice)
	}
}

func TestEngagementBonus(t *testing.T) {
	s := NewScorer().WithClock(fixedClock(offHours))
	low := s.Score(nil, nil, premiumZone(), 3)
	high := s.Score(nil, nil, premiumZone(), 8)
	if high-low != 10 {
		t.Fatalf("expected +10 engagement bonus, got %d", high-low)
	}
}

func TestPriorityThresholds(t *testing.T) {
	cases := map[int]Priority{
		100: PriorityImmediate,
		80:  PriorityImmediate,
		79:  PriorityHigh,
		60:  PriorityHigh,
		59:  PriorityMedium,
		35:  PriorityMedium,
		34:  PriorityLow,
		0:   PriorityLow,
	}
	for score, want := range cases {
		if got := PriorityFor(score); got != want {
			t.Fatalf("score %d: expected %s, got %s", score, want, got)
		}
	}
}

func TestPriorityRankOrdering(t *testing.T) {
	ranked := []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityImmediate}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Rank() <= ranked[i-1].Rank() {
			t.Fatalf("%s should outrank %s", ranked[i], ranked[i-1])
		}
	}
	if Priority("bogus").Rank() != 0 {
		t.Fatal("unknown priority must rank lowest")
	}
}
