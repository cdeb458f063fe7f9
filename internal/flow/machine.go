// Package flow drives the scripted qualification conversation. The script is
// a data-driven step table (steps.go); Machine is the pure transition
// function evaluated once per inbound message.
package flow

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/leadflow/internal/intent"
	"github.com/leadflow/internal/session"
)

// maxFieldRetries bounds re-prompts for an invalid answer. On the third
// consecutive failure the raw text is stored as-is and the flow moves on
// rather than trapping the prospect in a validation loop.
const maxFieldRetries = 3

const emergencyConfidence = 0.7

// Result describes the outcome of one transition.
type Result struct {
	StepID           string
	Reply            string
	Options          []string
	Advanced         bool
	ValidationFailed bool
	EmergencyForced  bool
}

// Machine owns the immutable step table.
type Machine struct {
	steps map[string]Step
}

func NewMachine(steps map[string]Step) *Machine {
	return &Machine{steps: steps}
}

// InitialStep is where new sessions start.
func (m *Machine) InitialStep() string { return StepGreeting }

// Greeting renders the opening message for a brand-new session.
func (m *Machine) Greeting(c *session.Context) Result {
	step := m.steps[StepGreeting]
	return Result{
		StepID:  StepGreeting,
		Reply:   m.render(step.Prompt, c, nil),
		Options: step.Options,
	}
}

// Advance evaluates one inbound message against the current step.
// Rule order, per transition: emergency intent first, then field validation
// (failures re-prompt the same step), then the step's declared next id.
func (m *Machine) Advance(c *session.Context, message string, intents []intent.Intent, extras map[string]string) Result {
	// 1. emergency always wins, whatever step we are on
	if intent.HasAbove(intents, intent.KindEmergency, emergencyConfidence) &&
		c.CurrentStepID != StepEmergencyFlow && c.CurrentStepID != StepEscalation {
		c.CurrentStepID = StepEmergencyFlow
		c.RetryCount = 0
		step := m.steps[StepEmergencyFlow]
		return Result{
			StepID:          StepEmergencyFlow,
			Reply:           m.render(step.Prompt, c, extras),
			Options:         step.Options,
			Advanced:        true,
			EmergencyForced: true,
		}
	}

	step, ok := m.steps[c.CurrentStepID]
	if !ok {
		// unknown position: restart rather than fail the conversation
		log.Warn().Str("session_id", c.SessionID).Str("step", c.CurrentStepID).Msg("unknown step, restarting flow")
		c.CurrentStepID = StepGreeting
		return m.Greeting(c)
	}

	if step.Terminal {
		return Result{StepID: step.ID, Reply: m.render(step.Prompt, c, extras), Options: step.Options}
	}

	// 2. apply the message to the first missing required field
	if missing := m.firstMissingRequired(step, c); missing != nil {
		value, valid := validateField(*missing, message)
		if valid {
			c.SetField(missing.Name, value, false)
			c.RetryCount = 0
		} else {
			c.RetryCount++
			if c.RetryCount < maxFieldRetries {
				return Result{
					StepID:           step.ID,
					Reply:            missing.Ask,
					Options:          step.Options,
					ValidationFailed: true,
				}
			}
			// give up validating: keep the raw answer and move on
			c.SetField(missing.Name, strings.TrimSpace(message), false)
			c.RetryCount = 0
		}
		if next := m.firstMissingRequired(step, c); next != nil {
			return Result{StepID: step.ID, Reply: next.Ask, Options: step.Options}
		}
	}

	// 3. advance via the declared next step
	next, ok := m.steps[step.Next]
	if !ok {
		next = m.steps[StepCompletion]
	}
	c.CurrentStepID = next.ID
	c.RetryCount = 0
	return Result{
		StepID:   next.ID,
		Reply:    m.render(next.Prompt, c, extras),
		Options:  next.Options,
		Advanced: true,
	}
}

// CompleteEscalation moves a session onto the terminal escalation step once
// the dispatcher has been invoked.
func (m *Machine) CompleteEscalation(c *session.Context) {
	c.CurrentStepID = StepEscalation
}

// Escalate moves the session onto the terminal escalation step and returns
// its rendered prompt, replacing whatever reply the transition produced.
func (m *Machine) Escalate(c *session.Context, extras map[string]string) Result {
	m.CompleteEscalation(c)
	step := m.steps[StepEscalation]
	return Result{
		StepID:   StepEscalation,
		Reply:    m.render(step.Prompt, c, extras),
		Options:  step.Options,
		Advanced: true,
	}
}

// IsTerminal reports whether a step id ends the conversation.
func (m *Machine) IsTerminal(stepID string) bool {
	step, ok := m.steps[stepID]
	return ok && step.Terminal
}

func (m *Machine) firstMissingRequired(step Step, c *session.Context) *FieldDef {
	for i := range step.Fields {
		f := &step.Fields[i]
		if f.Required && !c.HasField(f.Name) {
			return f
		}
	}
	return nil
}

// render substitutes {field} placeholders from the lead data plus any extra
// values the caller provides (e.g. zone SLA text).
func (m *Machine) render(prompt string, c *session.Context, extras map[string]string) string {
	out := prompt
	for name, value := range c.LeadData {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	for name, value := range extras {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	// drop unresolved placeholders instead of leaking braces to the user
	for {
		open := strings.Index(out, "{")
		if open < 0 {
			break
		}
		closing := strings.Index(out[open:], "}")
		if closing < 0 {
			break
		}
		out = out[:open] + out[open+closing+1:]
	}
	return strings.Join(strings.Fields(out), " ")
}
