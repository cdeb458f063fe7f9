// Package escalate decides whether a conversation must be handed off to a
// human team. The evaluator is a pure function over the session, the intent
// history and the lead score: no side effects, no clock, no randomness.
package escalate

import (
	"github.com/leadflow/internal/geo"
	"github.com/leadflow/internal/intent"
	"github.com/leadflow/internal/score"
	"github.com/leadflow/internal/session"
)

// Type classifies why an escalation fired.
type Type string

const (
	TypeEmergency     Type = "emergency"
	TypeHighValue     Type = "high_value"
	TypeQualifiedLead Type = "qualified_lead"
	TypeNone          Type = "none"
)

// Team names the human group a verdict routes to. Each team maps to an
// outbound webhook channel in the dispatcher configuration.
type Team string

const (
	TeamEmergency Team = "emergency"
	TeamSales     Team = "sales"
	TeamSupport   Team = "support"
	TeamGeneral   Team = "general"
)

// Verdict is the evaluator's output.
type Verdict struct {
	Required   bool           `json:"required"`
	Type       Type           `json:"type"`
	Priority   score.Priority `json:"priority"`
	TargetTeam Team           `json:"target_team"`
	Reason     string         `json:"reason"`
}

// Evaluator applies the escalation rule tiers strictly in priority order.
type Evaluator struct{}

func NewEvaluator() *Evaluator { return &Evaluator{} }

// Evaluate returns the first matching tier: immediate, high, medium, low.
// The low tier means no escalation is required.
func (e *Evaluator) Evaluate(c *session.Context, intents []intent.Intent, zone geo.Zone, leadScore int) Verdict {
	// immediate tier
	switch {
	case intent.HasAbove(intents, intent.KindEmergency, 0.7):
		return Verdict{
			Required:   true,
			Type:       TypeEmergency,
			Priority:   score.PriorityImmediate,
			TargetTeam: TeamEmergency,
			Reason:     "emergenza tecnica segnalata dal cliente",
		}
	case leadScore >= score.ThresholdImmediate:
		return Verdict{
			Required:   true,
			Type:       TypeHighValue,
			Priority:   score.PriorityImmediate,
			TargetTeam: TeamSales,
			Reason:     "lead ad altissimo valore commerciale",
		}
	case intent.HasAbove(intents, intent.KindHumanRequest, 0.4):
		return Verdict{
			Required:   true,
			Type:       TypeQualifiedLead,
			Priority:   score.PriorityImmediate,
			TargetTeam: TeamSupport,
			Reason:     "richiesta esplicita di parlare con un operatore",
		}
	}

	// high tier
	if leadScore >= score.ThresholdHigh && c.HasField(session.FieldPhone) {
		return Verdict{
			Required:   true,
			Type:       TypeHighValue,
			Priority:   score.PriorityHigh,
			TargetTeam: TeamSales,
			Reason:     "lead qualificato con recapito telefonico",
		}
	}
	if zone.ID == geo.ZonePremium && hasQualifyingServiceIntent(c) {
		return Verdict{
			Required:   true,
			Type:       TypeHighValue,
			Priority:   score.PriorityHigh,
			TargetTeam: TeamSales,
			Reason:     "interesse su servizi chiave in zona primaria",
		}
	}

	// medium tier
	if leadScore >= score.ThresholdMedium && hasMinimalContact(c) {
		return Verdict{
			Required:   true,
			Type:       TypeQualifiedLead,
			Priority:   score.PriorityMedium,
			TargetTeam: TeamSales,
			Reason:     "lead con dati di contatto minimi",
		}
	}

	return Verdict{Required: false, Type: TypeNone, Priority: score.PriorityLow, TargetTeam: TeamGeneral}
}

// hasQualifyingServiceIntent checks the session history for service intents
// the sales team wants to jump on even before a full score builds up.
func hasQualifyingServiceIntent(c *session.Context) bool {
	for _, it := range c.IntentsHistory {
		switch it.Kind {
		case intent.KindSecurity, intent.KindQuoteRequest, intent.KindBackup:
			return true
		}
	}
	return false
}

func hasMinimalContact(c *session.Context) bool {
	return c.HasField(session.FieldPhone) || c.HasField(session.FieldEmail)
}
