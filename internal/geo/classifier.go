// Package geo maps free text to the geographic coverage zone a prospect
// belongs to. Zone membership drives lead scoring and the response-time
// guarantees quoted back to the customer.
package geo

import "strings"

// Classifier matches free text against a priority-ordered zone list.
// It is stateless and safe for concurrent use.
type Classifier struct {
	zones    []Zone
	fallback Zone
}

// NewClassifier builds a classifier over the given ordered zone list.
// An empty list still yields a total classifier that always answers
// with the fallback zone.
func NewClassifier(zones []Zone) *Classifier {
	return &Classifier{zones: zones, fallback: OtherZone()}
}

// Classify returns the first zone whose keyword set matches a substring of
// the lower-cased text, or the "other" zone when nothing matches. It never
// fails and has no side effects.
func (c *Classifier) Classify(text string) Zone {
	zone, _ := c.Match(text)
	return zone
}

// Match behaves like Classify but also reports the keyword that matched,
// which callers use to capture the prospect's town as a lead field. The
// keyword is empty for the fallback zone.
func (c *Classifier) Match(text string) (Zone, string) {
	normalized := strings.ToLower(text)
	for _, zone := range c.zones {
		for _, kw := range zone.Keywords {
			if strings.Contains(normalized, kw) {
				return zone, kw
			}
		}
	}
	return c.fallback, ""
}

// ZoneByID looks up a configured zone. The fallback zone is returned for
// unknown ids so callers never have to handle a missing zone.
func (c *Classifier) ZoneByID(id ZoneID) Zone {
	for _, zone := range c.zones {
		if zone.ID == id {
			return zone
		}
	}
	return c.fallback
}
