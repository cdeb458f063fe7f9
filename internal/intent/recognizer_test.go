package intent

import "testing"

func TestEmergencyPhrasesRankFirst(t *testing.T) {
	r := NewRecognizer(DefaultCategories())

	for _, msg := range []string{
		"EMERGENZA - il nostro server è down!",
		"il server è bloccato, tutto fermo",
		"abbiamo preso un ransomware",
		"server down da stamattina",
	} {
		intents := r.Recognize(msg)
		top := Top(intents)
		if top.Kind != KindEmergency {
			t.Fatalf("%q: expected emergency on top, got %s", msg, top.Kind)
		}
		if top.Confidence < 0.7 {
			t.Fatalf("%q: emergency confidence %.2f below 0.7", msg, top.Confidence)
		}
	}
}

func TestUrgencyAloneIsNotAnEmergency(t *testing.T) {
	r := NewRecognizer(DefaultCategories())

	// a prospect answering the timeline question with urgency words must not
	// be routed into the incident flow
	for _, msg := range []string{
		"Subito, è urgente",
		"ci serve con urgenza un preventivo",
		"il progetto è urgente, entro il mese",
	} {
		for _, it := range r.Recognize(msg) {
			if it.Kind == KindEmergency {
				t.Fatalf("%q classified as emergency (%.2f)", msg, it.Confidence)
			}
		}
	}
}

func TestQuoteRequestRecognized(t *testing.T) {
	r := NewRecognizer(DefaultCategories())

	intents := r.Recognize("vorrei un preventivo per la gestione dei nostri pc")
	if Top(intents).Kind != KindQuoteRequest {
		t.Fatalf("expected quote_request, got %s", Top(intents).Kind)
	}
}

func TestGeneralFallbackWhenNothingClears(t *testing.T) {
	r := NewRecognizer(DefaultCategories())

	intents := r.Recognize("buongiorno, come va?")
	if len(intents) != 1 {
		t.Fatalf("expected single fallback intent, got %d", len(intents))
	}
	if intents[0].Kind != KindGeneral {
		t.Fatalf("expected general fallback, got %s", intents[0].Kind)
	}
}

func TestEmptyMessageFallsBackToGeneral(t *testing.T) {
	r := NewRecognizer(DefaultCategories())

	if Top(r.Recognize("   ")).Kind != KindGeneral {
		t.Fatal("blank message must classify as general")
	}
}

func TestConfidenceNeverExceedsOne(t *testing.T) {
	r := NewRecognizer(DefaultCategories())

	for _, it := range r.Recognize("emergenza urgente virus ransomware attacco down bloccato") {
		if it.Confidence > 1.0 || it.Confidence < 0 {
			t.Fatalf("confidence out of range: %v", it)
		}
	}
}

func TestRecognizeIsDeterministic(t *testing.T) {
	r := NewRecognizer(DefaultCategories())
	msg := "preventivo per firewall e backup, sede a monza"

	first := r.Recognize(msg)
	for i := 0; i < 10; i++ {
		again := r.Recognize(msg)
		if len(again) != len(first) {
			t.Fatal("result set size changed between calls")
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("ordering changed between calls: %v vs %v", first[j], again[j])
			}
		}
	}
}

func TestHasAbove(t *testing.T) {
	intents := []Intent{
		{Kind: KindSecurity, Confidence: 0.6},
		{Kind: KindSupport, Confidence: 0.3},
	}
	if !HasAbove(intents, KindSecurity, 0.5) {
		t.Fatal("expected security above 0.5")
	}
	if HasAbove(intents, KindSupport, 0.5) {
		t.Fatal("support should not clear 0.5")
	}
}
