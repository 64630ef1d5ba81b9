package classifier

import "strings"

// OverrideConfidence is reported when a keyword forces the Unproductive label.
const OverrideConfidence = 0.99

// unproductiveKeywords are checked in order against the lowercased raw text.
var unproductiveKeywords = []string{
	"obrigado",
	"parabéns",
	"bom dia",
	"boa tarde",
	"boa noite",
	"feliz",
	"ótimo",
	"valeu",
}

// Keywords returns the override keywords in match order.
func Keywords() []string {
	out := make([]string, len(unproductiveKeywords))
	copy(out, unproductiveKeywords)
	return out
}

// CheckOverride applies the rule layer that runs before the model. A keyword
// hit yields Unproductive at OverrideConfidence; empty or blank text yields
// Unproductive at 0. When neither applies ok is false and the caller must
// fall back to the model.
func CheckOverride(text string) (result Result, ok bool) {
	lower := strings.ToLower(text)
	for _, kw := range unproductiveKeywords {
		if strings.Contains(lower, kw) {
			return Result{Category: Unproductive, Confidence: OverrideConfidence}, true
		}
	}
	if strings.TrimSpace(text) == "" {
		return Result{Category: Unproductive, Confidence: 0}, true
	}
	return Result{}, false
}

// MatchedKeyword returns the first override keyword found in text, if any.
func MatchedKeyword(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range unproductiveKeywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}
