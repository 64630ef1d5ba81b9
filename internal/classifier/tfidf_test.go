package classifier

import (
	"math"
	"strings"
	"testing"
)

func TestVectorizerIDF(t *testing.T) {
	v := NewVectorizer(strings.ToLower)
	if err := v.Fit([]string{"aa bb", "aa cc"}); err != nil {
		t.Fatal(err)
	}

	if got := v.Terms(); strings.Join(got, ",") != "aa,bb,cc" {
		t.Errorf("terms = %v, want sorted vocabulary", got)
	}

	tests := []struct {
		term string
		want float64
	}{
		{"aa", 1},
		{"bb", math.Log(3.0/2.0) + 1},
		{"cc", math.Log(3.0/2.0) + 1},
	}
	for _, tt := range tests {
		got, ok := v.IDF(tt.term)
		if !ok || math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("IDF(%q) = %f, %v; want %f", tt.term, got, ok, tt.want)
		}
	}
	if _, ok := v.IDF("zz"); ok {
		t.Error("unknown term should not have an IDF")
	}
}

func TestVectorizerTransform(t *testing.T) {
	v := NewVectorizer(strings.ToLower)
	if err := v.Fit([]string{"aa bb", "aa cc"}); err != nil {
		t.Fatal(err)
	}

	vec := v.Transform("AA bb bb zz")
	if len(vec.Indices) != 2 {
		t.Fatalf("got %d non-zero features, want 2", len(vec.Indices))
	}
	if math.Abs(vec.SquaredNorm()-1) > 1e-12 {
		t.Errorf("vector not L2-normalized: %f", vec.SquaredNorm())
	}
	// bb appears twice with a higher idf, so it must outweigh aa.
	if vec.Values[1] <= vec.Values[0] {
		t.Errorf("weights = %v, want bb > aa", vec.Values)
	}

	empty := v.Transform("zz yy")
	if len(empty.Indices) != 0 {
		t.Errorf("unknown terms should produce the zero vector, got %+v", empty)
	}
}

func TestVectorizerSkipsSingleRuneTokens(t *testing.T) {
	v := NewVectorizer(strings.ToLower)
	if err := v.Fit([]string{"a bb c"}); err != nil {
		t.Fatal(err)
	}
	if v.NumFeatures() != 1 {
		t.Errorf("got %d features, want 1", v.NumFeatures())
	}
}

func TestVectorizerFitErrors(t *testing.T) {
	v := NewVectorizer(strings.ToLower)
	if err := v.Fit(nil); err == nil {
		t.Error("expected error for no documents")
	}
	if err := v.Fit([]string{"a", "b"}); err == nil {
		t.Error("expected error for empty vocabulary")
	}
}
