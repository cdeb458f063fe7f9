package geo

import "testing"

func TestClassifyPremiumZone(t *testing.T) {
	c := NewClassifier(DefaultZones())

	zone := c.Classify("Siamo un'azienda di Vimercate, 30 dipendenti")
	if zone.ID != ZonePremium {
		t.Fatalf("expected premium zone, got %s", zone.ID)
	}
	if zone.PriorityWeight != 35 {
		t.Fatalf("unexpected weight %d", zone.PriorityWeight)
	}
}

func TestClassifyUnknownLocationFallsBack(t *testing.T) {
	c := NewClassifier(DefaultZones())

	zone := c.Classify("La nostra sede è a Roma")
	if zone.ID != ZoneOther {
		t.Fatalf("expected other zone, got %s", zone.ID)
	}
	if zone.PriorityWeight != 0 {
		t.Fatalf("other zone must carry zero weight, got %d", zone.PriorityWeight)
	}
}

func TestClassifyPriorityOrderWins(t *testing.T) {
	c := NewClassifier(DefaultZones())

	// text mentioning both a premium and an extended town must resolve to
	// the premium zone because it is declared first
	zone := c.Classify("uffici a Milano e sede operativa ad Arcore")
	if zone.ID != ZonePremium {
		t.Fatalf("expected premium zone to win, got %s", zone.ID)
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	c := NewClassifier(DefaultZones())

	if got := c.Classify("CONCOREZZO").ID; got != ZonePremium {
		t.Fatalf("expected premium zone, got %s", got)
	}
}

func TestZoneByIDUnknownReturnsFallback(t *testing.T) {
	c := NewClassifier(DefaultZones())

	if got := c.ZoneByID("atlantis").ID; got != ZoneOther {
		t.Fatalf("expected fallback zone, got %s", got)
	}
}
