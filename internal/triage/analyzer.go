// Package triage wires the classifier and the reply engine into the single
// entry point used by the web server, the CLI and the inbox watcher.
package triage

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mailtriage/mailtriage/internal/classifier"
	"github.com/mailtriage/mailtriage/internal/reply"
)

// Analysis is the record returned for one email.
type Analysis struct {
	ID         string              `json:"id"`
	Category   classifier.Category `json:"category"`
	Confidence float64             `json:"confidence"`
	Subtype    reply.Subtype       `json:"subtype"`
	Reply      string              `json:"reply"`
	Protocol   string              `json:"protocol,omitempty"`
	CharsRead  int                 `json:"chars_read,omitempty"`
}

// Analyzer holds the process-wide fitted model and reply templates. It is
// built once at startup and shared read-only between requests.
type Analyzer struct {
	classifier *classifier.Classifier
	replies    *reply.Engine
}

// NewAnalyzer fits the classifier and loads the reply templates.
func NewAnalyzer(opts classifier.Options) (*Analyzer, error) {
	c, err := classifier.New(opts)
	if err != nil {
		return nil, err
	}
	engine, err := reply.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reply templates: %w", err)
	}
	return &Analyzer{classifier: c, replies: engine}, nil
}

// Classify returns the category and confidence for text.
func (a *Analyzer) Classify(text string) classifier.Result {
	return a.classifier.Classify(text)
}

// Respond renders the reply for an already classified email.
func (a *Analyzer) Respond(text string, category classifier.Category, subtype reply.Subtype) (string, error) {
	return a.replies.Generate(text, category, subtype)
}

// Analyze classifies text, detects its subtype and renders the reply.
func (a *Analyzer) Analyze(text string) (*Analysis, error) {
	result := a.Classify(text)
	subtype := reply.DetectSubtype(text, result.Category)

	body, err := a.Respond(text, result.Category, subtype)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	}

	protocol, _ := reply.ExtractProtocol(text)
	return &Analysis{
		ID:         uuid.NewString(),
		Category:   result.Category,
		Confidence: Round(result.Confidence, 3),
		Subtype:    subtype,
		Reply:      body,
		Protocol:   protocol,
	}, nil
}

// AnalyzeDocument is Analyze for text extracted from a file; it also
// records how many characters were read.
func (a *Analyzer) AnalyzeDocument(text string) (*Analysis, error) {
	analysis, err := a.Analyze(text)
	if err != nil {
		return nil, err
	}
	analysis.CharsRead = utf8.RuneCountInString(text)
	return analysis, nil
}

// Classifier exposes the underlying classifier.
func (a *Analyzer) Classifier() *classifier.Classifier { return a.classifier }

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
