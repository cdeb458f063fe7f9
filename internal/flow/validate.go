package flow

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`(\+?\d[\d\s\-/.]{5,}\d)`)
)

// validateField checks raw input against the field's declared type and
// returns the normalized value to store. ok is false when the input does not
// satisfy the type, which triggers a re-prompt of the same step.
func validateField(def FieldDef, raw string) (value string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	switch def.Type {
	case FieldEmail:
		if m := emailRe.FindString(raw); m != "" {
			return strings.ToLower(m), true
		}
		return "", false
	case FieldPhone:
		if m := phoneRe.FindString(raw); m != "" {
			return strings.TrimSpace(m), true
		}
		return "", false
	case FieldChoice:
		lowered := strings.ToLower(raw)
		for _, choice := range def.Choices {
			if strings.Contains(lowered, strings.ToLower(choice)) {
				return choice, true
			}
		}
		return "", false
	default: // FieldText
		return raw, true
	}
}

// ExtractEmail pulls the first email address out of free text, if any.
func ExtractEmail(text string) string {
	return strings.ToLower(emailRe.FindString(text))
}

// ExtractPhone pulls the first phone-looking token out of free text, if any.
func ExtractPhone(text string) string {
	return strings.TrimSpace(phoneRe.FindString(text))
}
