// Package score turns everything known about a lead into a 0-100 commercial
// value and a priority tier. Scoring is a pure function: identical inputs
// always produce the identical score.
package score

import (
	"strconv"
	"strings"
	"time"

	"github.com/leadflow/internal/geo"
	"github.com/leadflow/internal/intent"
	"github.com/leadflow/internal/session"
)

// Priority is the tier a lead score maps to.
type Priority string

const (
	PriorityImmediate Priority = "immediate"
	PriorityHigh      Priority = "high"
	PriorityMedium    Priority = "medium"
	PriorityLow       Priority = "low"
)

// Canonical tier thresholds. The legacy system carried a second 85/70/50
// table in one module; 80/60/35 is the confirmed business table.
const (
	ThresholdImmediate = 80
	ThresholdHigh      = 60
	ThresholdMedium    = 35
)

// Rank orders priorities for comparison: immediate outranks high outranks
// medium outranks low.
func (p Priority) Rank() int {
	switch p {
	case PriorityImmediate:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// PriorityFor maps a score to its tier.
func PriorityFor(score int) Priority {
	switch {
	case score >= ThresholdImmediate:
		return PriorityImmediate
	case score >= ThresholdHigh:
		return PriorityHigh
	case score >= ThresholdMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Scorer computes lead scores. The clock only feeds the business-hours
// bucket, so a fixed clock makes the whole computation reproducible.
type Scorer struct {
	now func() time.Time
}

func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Score combines lead data, intent history, zone and engagement into a
// clamped [0,100] integer.
func (s *Scorer) Score(lead session.LeadData, history []intent.Intent, zone geo.Zone, messageCount int) int {
	total := 0

	total += companySizePoints(lead[session.FieldCompanySize])
	total += zonePoints(zone)
	total += intentPoints(history, lead)
	total += timelinePoints(lead[session.FieldTimeline])

	if messageCount >= 8 {
		total += 10
	}
	if businessHours(s.now()) {
		total += 5
	}

	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	return total
}

// companySizePoints buckets the collected company_size string. Accepted
// shapes: "50+", "20-49", "circa 30 dipendenti". The lower bound of a range
// decides the bucket, which keeps the function monotonic in company size.
func companySizePoints(raw string) int {
	size := parseCompanySize(raw)
	switch {
	case size >= 50:
		return 30
	case size >= 20:
		return 25
	case size >= 10:
		return 18
	case size >= 5:
		return 12
	case size >= 1:
		return 5
	default:
		return 0
	}
}

func parseCompanySize(raw string) int {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return 0
	}
	// grab the first integer in the string
	start := -1
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, _ := strconv.Atoi(raw[start:i])
			return n
		}
	}
	if start >= 0 {
		n, _ := strconv.Atoi(raw[start:])
		return n
	}
	return 0
}

func zonePoints(zone geo.Zone) int {
	switch zone.ID {
	case geo.ZonePremium:
		return 30
	case geo.ZoneSecondary:
		return 20
	case geo.ZoneExtended:
		return 10
	default:
		return 0
	}
}

// intentPoints awards each signal kind at most once regardless of how many
// messages repeated it.
func intentPoints(history []intent.Intent, lead session.LeadData) int {
	seen := map[intent.Kind]bool{}
	for _, it := range history {
		seen[it.Kind] = true
	}

	// declared service interest counts as a signal even when the intent
	// never surfaced in a message
	interest := strings.ToLower(lead[session.FieldServiceInterest])
	if strings.Contains(interest, "sicurezza") || strings.Contains(interest, "firewall") {
		seen[intent.KindSecurity] = true
	}
	if strings.Contains(interest, "backup") || strings.Contains(interest, "disaster") {
		seen[intent.KindBackup] = true
	}

	total := 0
	if seen[intent.KindEmergency] {
		total += 35
	}
	if seen[intent.KindSecurity] {
		total += 20
	}
	if seen[intent.KindQuoteRequest] {
		total += 15
	}
	if seen[intent.KindBackup] {
		total += 10
	}
	return total
}

func timelinePoints(raw string) int {
	timeline := strings.ToLower(raw)
	switch {
	case timeline == "":
		return 0
	case strings.Contains(timeline, "subito"),
		strings.Contains(timeline, "urgente"),
		strings.Contains(timeline, "immediat"),
		strings.Contains(timeline, "questa settimana"):
		return 25
	case strings.Contains(timeline, "mese"),
		strings.Contains(timeline, "30 giorni"):
		return 12
	default:
		return 0
	}
}

// businessHours reports whether t falls inside the sales team's working
// window (Mon-Fri, 9-18 local time).
func businessHours(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return t.Hour() >= 9 && t.Hour() < 18
}
