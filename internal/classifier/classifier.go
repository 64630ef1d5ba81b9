// Package classifier decides whether an email needs action. A keyword rule
// layer runs first; everything else is scored by a TF-IDF + logistic
// regression model fit once on an embedded corpus.
package classifier

import "fmt"

// Classifier combines the keyword override with the fitted model.
type Classifier struct {
	model *Model
}

// New fits a classifier on the embedded corpus.
func New(opts Options) (*Classifier, error) {
	corpus, err := DefaultCorpus()
	if err != nil {
		return nil, err
	}
	return NewFromCorpus(corpus, opts)
}

// NewFromCorpus fits a classifier on the given examples.
func NewFromCorpus(corpus []LabeledExample, opts Options) (*Classifier, error) {
	model, err := Fit(corpus, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}
	return &Classifier{model: model}, nil
}

// Classify runs the keyword override and falls back to the model.
func (c *Classifier) Classify(text string) Result {
	if r, ok := CheckOverride(text); ok {
		return r
	}
	return c.model.Predict(text)
}

// Model returns the underlying fitted model.
func (c *Classifier) Model() *Model { return c.model }
