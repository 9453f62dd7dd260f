package masking

import "regexp"

// Rule represents a single PII detection rule. Replace receives the full
// match and the configured mask character and returns the partially-obscured
// replacement.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace func(match string, maskChar byte) string
}

// Finding represents a detection result
type Finding struct {
	EntityType string `json:"entityType"`
	Count      int    `json:"count"`
}

// Result contains the result of masking text through the engine
type Result struct {
	MaskedText string    `json:"maskedText"`
	Findings   []Finding `json:"findings"`
	Original   string    `json:"-"` // Never serialize original text
}
