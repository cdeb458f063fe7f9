// Package intent classifies the purpose behind a chat message. Recognition is
// keyword driven: cheap, deterministic and good enough to route a B2B sales
// conversation without calling out to a model.
package intent

import (
	"sort"
	"strings"
)

// Intent is one classified purpose behind a message. Immutable once computed.
type Intent struct {
	Kind       Kind    `json:"kind"`
	Confidence float64 `json:"confidence"`
	MatchCount int     `json:"match_count"`
}

// Recognizer scores a message against every category. Stateless and safe for
// concurrent use.
type Recognizer struct {
	categories []Category
}

func NewRecognizer(categories []Category) *Recognizer {
	return &Recognizer{categories: categories}
}

// Recognize returns every category clearing its threshold, ordered by
// descending confidence with ties broken by declaration order. When nothing
// clears, a single catch-all "general" intent is returned, so the result is
// never empty.
func (r *Recognizer) Recognize(text string) []Intent {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return []Intent{{Kind: KindGeneral, Confidence: 0.1}}
	}

	msgLen := float64(len(normalized))
	var results []Intent
	for _, cat := range r.categories {
		matched := 0
		coverage := 0.0
		for _, kw := range cat.Keywords {
			if strings.Contains(normalized, kw) {
				matched++
				coverage += float64(len(kw)) / msgLen
			}
		}
		if matched == 0 {
			continue
		}
		confidence := coverage*cat.Weight + float64(matched)*0.1
		if confidence > 1.0 {
			confidence = 1.0
		}
		if confidence < cat.Threshold {
			continue
		}
		results = append(results, Intent{Kind: cat.Kind, Confidence: confidence, MatchCount: matched})
	}

	if len(results) == 0 {
		return []Intent{{Kind: KindGeneral, Confidence: 0.1}}
	}

	// stable sort keeps declaration order for equal confidences
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}

// Top returns the highest ranked intent of a recognition result.
func Top(intents []Intent) Intent {
	if len(intents) == 0 {
		return Intent{Kind: KindGeneral, Confidence: 0.1}
	}
	return intents[0]
}

// HasAbove reports whether kind appears in intents with at least the given
// confidence.
func HasAbove(intents []Intent, kind Kind, confidence float64) bool {
	for _, it := range intents {
		if it.Kind == kind && it.Confidence >= confidence {
			return true
		}
	}
	return false
}
