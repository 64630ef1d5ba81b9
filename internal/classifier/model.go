package classifier

import (
	"fmt"

	"github.com/mailtriage/mailtriage/internal/textnorm"
)

// Result is the outcome of classifying one email.
type Result struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// Model is a TF-IDF vectorizer paired with a logistic-regression classifier
// fit on the same corpus. A Model is immutable once Fit returns it and is
// safe for concurrent use.
type Model struct {
	vectorizer *Vectorizer
	lr         *LogisticRegression
}

// Fit builds a Model from labeled examples. The vectorizer is fit first,
// then the classifier on the vectorized corpus; a partially fit model is
// never returned.
func Fit(examples []LabeledExample, opts Options) (*Model, error) {
	if len(examples) == 0 {
		return nil, fmt.Errorf("fit: corpus is empty")
	}

	docs := make([]string, len(examples))
	labels := make([]Category, len(examples))
	for i, ex := range examples {
		if !ex.Label.Valid() {
			return nil, fmt.Errorf("fit: example %d has unknown label %q", i, ex.Label)
		}
		docs[i] = ex.Text
		labels[i] = ex.Label
	}

	vec := NewVectorizer(textnorm.Normalize)
	if err := vec.Fit(docs); err != nil {
		return nil, fmt.Errorf("fit vectorizer: %w", err)
	}

	xs := make([]SparseVector, len(docs))
	for i, doc := range docs {
		xs[i] = vec.Transform(doc)
	}

	lr, err := FitLogisticRegression(xs, labels, vec.NumFeatures(), opts)
	if err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}

	return &Model{vectorizer: vec, lr: lr}, nil
}

// Predict scores text with the statistical model only. Unknown vocabulary
// contributes nothing; it never fails.
func (m *Model) Predict(text string) Result {
	category, p := m.lr.Predict(m.vectorizer.Transform(text))
	return Result{Category: category, Confidence: p}
}

// Probabilities returns the per-class probabilities for text.
func (m *Model) Probabilities(text string) map[Category]float64 {
	probs := m.lr.PredictProba(m.vectorizer.Transform(text))
	out := make(map[Category]float64, len(probs))
	for i, c := range m.lr.Classes() {
		out[c] = probs[i]
	}
	return out
}

// Vectorizer exposes the fitted vectorizer for inspection.
func (m *Model) Vectorizer() *Vectorizer { return m.vectorizer }

// Iterations returns the number of gradient steps used during fitting.
func (m *Model) Iterations() int { return m.lr.Iterations() }

// Converged reports whether fitting reached its tolerance.
func (m *Model) Converged() bool { return m.lr.Converged() }
