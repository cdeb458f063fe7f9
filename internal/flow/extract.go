package flow

import (
	"regexp"
	"strings"

	"github.com/leadflow/internal/geo"
	"github.com/leadflow/internal/session"
)

var companySizeRe = regexp.MustCompile(`(\d+)\s*(dipendenti|persone|postazioni|pc|utenti)`)

// ExtractLead opportunistically harvests lead fields from any message,
// regardless of which step asked for them. A prospect who opens with
// "siamo 60 dipendenti a Vimercate, mi chiamate al 039 123456?" should not
// be asked those questions again. Existing fields are never overwritten.
func ExtractLead(c *session.Context, message string, classifier *geo.Classifier) {
	if email := ExtractEmail(message); email != "" {
		c.SetField(session.FieldEmail, email, false)
	}
	if phone := ExtractPhone(message); phone != "" {
		c.SetField(session.FieldPhone, phone, false)
	}

	if m := companySizeRe.FindStringSubmatch(strings.ToLower(message)); m != nil {
		c.SetField(session.FieldCompanySize, m[1], false)
	}

	if zone, town := classifier.Match(message); zone.ID != geo.ZoneOther && town != "" {
		c.SetField(session.FieldLocation, town, false)
	}

	lowered := strings.ToLower(message)
	switch {
	case strings.Contains(lowered, "subito"),
		strings.Contains(lowered, "urgente"),
		strings.Contains(lowered, "questa settimana"):
		c.SetField(session.FieldTimeline, "subito", false)
	case strings.Contains(lowered, "entro un mese"),
		strings.Contains(lowered, "entro il mese"):
		c.SetField(session.FieldTimeline, "entro un mese", false)
	}
}
