package triage

import (
	"github.com/mailtriage/mailtriage/internal/classifier"
	"github.com/mailtriage/mailtriage/internal/reply"
)

// Summary counts a batch of analyses.
type Summary struct {
	Total        int
	Productive   int
	Unproductive int
	BySubtype    map[reply.Subtype]int
	NeedReview   int // below ReviewThreshold and not decided by a keyword
}

// ReviewThreshold is the confidence under which a model decision is flagged
// for a human to look at.
const ReviewThreshold = 0.6

// NeedsReview reports whether an analysis is a low-confidence model decision.
func NeedsReview(a *Analysis) bool {
	return a.Confidence > 0 && a.Confidence < ReviewThreshold
}

// Summarize generates a summary of analyses.
func Summarize(analyses []*Analysis) Summary {
	summary := Summary{
		Total:     len(analyses),
		BySubtype: make(map[reply.Subtype]int),
	}

	for _, a := range analyses {
		switch a.Category {
		case classifier.Productive:
			summary.Productive++
		case classifier.Unproductive:
			summary.Unproductive++
		}
		summary.BySubtype[a.Subtype]++
		if NeedsReview(a) {
			summary.NeedReview++
		}
	}

	return summary
}

// FilterByCategory returns the analyses with the given category.
func FilterByCategory(analyses []*Analysis, category classifier.Category) []*Analysis {
	var filtered []*Analysis
	for _, a := range analyses {
		if a.Category == category {
			filtered = append(filtered, a)
		}
	}
	return filtered
}
