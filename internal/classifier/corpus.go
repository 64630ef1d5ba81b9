package classifier

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var corpusFile []byte

// Category is the top-level label assigned to an email.
type Category string

const (
	Productive   Category = "Productive"   // requires action
	Unproductive Category = "Unproductive" // no action needed
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == Productive || c == Unproductive
}

// LabeledExample is a single training email.
type LabeledExample struct {
	Text  string
	Label Category
}

type corpusDoc struct {
	Productive   []string `yaml:"productive"`
	Unproductive []string `yaml:"unproductive"`
}

// DefaultCorpus returns the embedded training set, productive examples first.
func DefaultCorpus() ([]LabeledExample, error) {
	return ParseCorpus(corpusFile)
}

// ParseCorpus decodes a corpus document with "productive" and
// "unproductive" lists of example texts.
func ParseCorpus(data []byte) ([]LabeledExample, error) {
	var doc corpusDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}

	examples := make([]LabeledExample, 0, len(doc.Productive)+len(doc.Unproductive))
	add := func(texts []string, label Category) error {
		for i, text := range texts {
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("corpus: %s example %d is empty", strings.ToLower(string(label)), i)
			}
			examples = append(examples, LabeledExample{Text: text, Label: label})
		}
		return nil
	}
	if err := add(doc.Productive, Productive); err != nil {
		return nil, err
	}
	if err := add(doc.Unproductive, Unproductive); err != nil {
		return nil, err
	}

	if len(doc.Productive) == 0 || len(doc.Unproductive) == 0 {
		return nil, fmt.Errorf("corpus: both categories need at least one example")
	}
	return examples, nil
}
