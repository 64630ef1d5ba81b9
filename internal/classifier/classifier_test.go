package classifier

import (
	"math"
	"strings"
	"testing"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := New(Options{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestDefaultCorpus(t *testing.T) {
	corpus, err := DefaultCorpus()
	if err != nil {
		t.Fatalf("DefaultCorpus() error: %v", err)
	}
	if len(corpus) != 19 {
		t.Fatalf("got %d examples, want 19", len(corpus))
	}
	counts := map[Category]int{}
	for _, ex := range corpus {
		counts[ex.Label]++
	}
	if counts[Productive] != 10 || counts[Unproductive] != 9 {
		t.Errorf("got %v, want 10 productive and 9 unproductive", counts)
	}
}

func TestParseCorpusErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid yaml", "productive: [unterminated"},
		{"missing category", "productive:\n  - \"preciso de ajuda\"\n"},
		{"blank example", "productive:\n  - \"  \"\nunproductive:\n  - \"valeu\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCorpus([]byte(tt.data)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestKeywordOverride(t *testing.T) {
	c := newTestClassifier(t)

	for _, kw := range Keywords() {
		inputs := []string{
			kw,
			strings.ToUpper(kw),
			"estou com erro no sistema, " + kw + " desde já",
			"protocolo 123456 " + kw,
		}
		for _, in := range inputs {
			got := c.Classify(in)
			if got.Category != Unproductive || got.Confidence != OverrideConfidence {
				t.Errorf("Classify(%q) = %+v, want Unproductive/%.2f", in, got, OverrideConfidence)
			}
		}
	}
}

func TestKeywordOrder(t *testing.T) {
	kw, ok := MatchedKeyword("Bom dia! Muito obrigado pela ajuda")
	if !ok || kw != "obrigado" {
		t.Errorf("got %q, %v; want first keyword in list order", kw, ok)
	}
	if _, ok := MatchedKeyword("preciso de suporte"); ok {
		t.Error("unexpected keyword match")
	}
}

func TestEmptyInput(t *testing.T) {
	c := newTestClassifier(t)
	for _, in := range []string{"", "   ", "\n\t "} {
		got := c.Classify(in)
		if got.Category != Unproductive || got.Confidence != 0 {
			t.Errorf("Classify(%q) = %+v, want Unproductive/0", in, got)
		}
	}
}

func TestCheckOverrideFallsThrough(t *testing.T) {
	if _, ok := CheckOverride("não consigo acessar o sistema"); ok {
		t.Error("override should not fire without keywords")
	}
}

func TestModelSeparatesTrainingSet(t *testing.T) {
	corpus, err := DefaultCorpus()
	if err != nil {
		t.Fatal(err)
	}
	model, err := Fit(corpus, Options{})
	if err != nil {
		t.Fatalf("Fit() error: %v", err)
	}

	for _, ex := range corpus {
		got := model.Predict(ex.Text)
		if got.Category != ex.Label {
			t.Errorf("Predict(%q) = %s, want %s", ex.Text, got.Category, ex.Label)
		}
		if got.Confidence <= 0.5 {
			t.Errorf("Predict(%q) confidence = %.3f, want > 0.5", ex.Text, got.Confidence)
		}
	}
}

func TestPipelineOnTrainingSet(t *testing.T) {
	c := newTestClassifier(t)
	corpus, _ := DefaultCorpus()
	for _, ex := range corpus {
		got := c.Classify(ex.Text)
		if got.Category != ex.Label || got.Confidence <= 0.5 {
			t.Errorf("Classify(%q) = %+v, want %s with confidence > 0.5", ex.Text, got, ex.Label)
		}
	}
}

func TestUnknownVocabulary(t *testing.T) {
	c := newTestClassifier(t)
	got := c.Classify("xyzzy qwerty zzzz")
	if !got.Category.Valid() {
		t.Fatalf("invalid category %q", got.Category)
	}
	if got.Confidence < 0.5 || got.Confidence > 1 {
		t.Errorf("confidence %.3f outside [0.5, 1]", got.Confidence)
	}
}

func TestProbabilitiesSumToOne(t *testing.T) {
	c := newTestClassifier(t)
	probs := c.Model().Probabilities("não consigo recuperar a senha do sistema")
	if len(probs) != 2 {
		t.Fatalf("got %d classes, want 2", len(probs))
	}
	var sum float64
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities sum to %f", sum)
	}
}

func TestPredictTieGoesToFirstClass(t *testing.T) {
	lr := &LogisticRegression{
		classes:    []Category{Productive, Unproductive},
		weights:    [][]float64{{0, 0}, {0, 0}},
		intercepts: []float64{0, 0},
	}
	got, p := lr.Predict(SparseVector{Indices: []int{0}, Values: []float64{1}})
	if got != Productive || p != 0.5 {
		t.Errorf("got %s/%.2f, want Productive/0.50", got, p)
	}
}

func TestFitLogisticRegressionErrors(t *testing.T) {
	x := SparseVector{Indices: []int{0}, Values: []float64{1}}
	if _, err := FitLogisticRegression(nil, nil, 1, Options{}); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := FitLogisticRegression([]SparseVector{x, x}, []Category{Productive, Productive}, 1, Options{}); err == nil {
		t.Error("expected error for a single class")
	}
	if _, err := FitLogisticRegression([]SparseVector{x}, []Category{Productive, Unproductive}, 1, Options{}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestFitRejectsUnknownLabel(t *testing.T) {
	_, err := Fit([]LabeledExample{{Text: "preciso de ajuda", Label: "Spam"}}, Options{})
	if err == nil {
		t.Error("expected error for unknown label")
	}
}
