package notify

import (
	"fmt"
	"strings"

	"github.com/leadflow/internal/escalate"
	"github.com/leadflow/internal/geo"
	"github.com/leadflow/internal/score"
	"github.com/leadflow/internal/session"
)

// Card is the outbound chat-ops payload. The field naming is a compatibility
// contract with the receiving webhook consumer and must not change.
type Card struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments"`
}

type Attachment struct {
	Color   string       `json:"color"`
	Title   string       `json:"title"`
	Fields  []CardField  `json:"fields"`
	Actions []CardAction `json:"actions,omitempty"`
}

type CardField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type CardAction struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	URL   string `json:"url,omitempty"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

// priorityColor maps a tier to the card's visual marker.
func priorityColor(p score.Priority) string {
	switch p {
	case score.PriorityImmediate:
		return "#d32f2f"
	case score.PriorityHigh:
		return "#f57c00"
	case score.PriorityMedium:
		return "#fbc02d"
	default:
		return "#388e3c"
	}
}

func priorityMarker(p score.Priority) string {
	switch p {
	case score.PriorityImmediate:
		return "🔴"
	case score.PriorityHigh:
		return "🟠"
	case score.PriorityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}

// BuildCard assembles the escalation card for a lead.
func BuildCard(c *session.Context, verdict escalate.Verdict, leadScore int, zone geo.Zone) Card {
	lead := c.LeadData
	summary := fmt.Sprintf("%s Nuovo lead %s: %s",
		priorityMarker(verdict.Priority), verdict.Priority, verdict.Reason)

	fields := []CardField{
		{Title: "Azienda", Value: orDash(lead[session.FieldCompanyName]), Short: true},
		{Title: "Referente", Value: orDash(lead[session.FieldContactName]), Short: true},
		{Title: "Telefono", Value: orDash(lead[session.FieldPhone]), Short: true},
		{Title: "Email", Value: orDash(lead[session.FieldEmail]), Short: true},
		{Title: "Zona", Value: string(zone.ID), Short: true},
		{Title: "Servizio richiesto", Value: orDash(lead[session.FieldServiceInterest]), Short: true},
		{Title: "Dimensione azienda", Value: orDash(lead[session.FieldCompanySize]), Short: true},
		{Title: "Tempistiche", Value: orDash(lead[session.FieldTimeline]), Short: true},
		{Title: "Punteggio lead", Value: fmt.Sprintf("%d/100", leadScore), Short: true},
		{Title: "Sessione", Value: c.SessionID, Short: true},
	}

	var actions []CardAction
	if phone := lead[session.FieldPhone]; phone != "" {
		actions = append(actions, CardAction{
			Type: "button",
			Text: "Chiama",
			URL:  "tel:" + strings.ReplaceAll(phone, " ", ""),
		})
	}
	if email := lead[session.FieldEmail]; email != "" {
		actions = append(actions, CardAction{
			Type: "button",
			Text: "Scrivi email",
			URL:  "mailto:" + email,
		})
	}
	actions = append(actions, CardAction{
		Type:  "button",
		Text:  "Segna come gestito",
		Name:  "mark_handled",
		Value: c.SessionID,
	})

	return Card{
		Text: summary,
		Attachments: []Attachment{{
			Color:   priorityColor(verdict.Priority),
			Title:   fmt.Sprintf("Escalation %s → team %s", verdict.Type, verdict.TargetTeam),
			Fields:  fields,
			Actions: actions,
		}},
	}
}

// BuildReminderCard assembles the single follow-up reminder for an
// unanswered notification.
func BuildReminderCard(rec *Record) Card {
	return Card{
		Text: fmt.Sprintf("⏰ Promemoria: il lead %s (priorità %s) non ha ancora ricevuto risposta",
			orDash(rec.Lead[session.FieldCompanyName]), rec.Priority),
		Attachments: []Attachment{{
			Color: priorityColor(rec.Priority),
			Title: "Lead in attesa di risposta",
			Fields: []CardField{
				{Title: "Referente", Value: orDash(rec.Lead[session.FieldContactName]), Short: true},
				{Title: "Telefono", Value: orDash(rec.Lead[session.FieldPhone]), Short: true},
				{Title: "Inviato", Value: rec.SentAt.Format("02/01/2006 15:04"), Short: true},
				{Title: "Risposta attesa entro", Value: rec.ExpectedResponseBy.Format("02/01/2006 15:04"), Short: true},
			},
		}},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
