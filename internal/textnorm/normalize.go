// Package textnorm turns free-form Portuguese email text into the
// space-separated stem sequence consumed by the classifier.
package textnorm

import (
	_ "embed"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/portuguese"
	"golang.org/x/text/unicode/norm"
)

//go:embed stopwords_pt.txt
var stopwordsFile string

// minTokenRunes is the shortest token kept; anything of this length or
// shorter is dropped.
const minTokenRunes = 2

// maxStemPasses bounds the fixed-point stemming loop.
const maxStemPasses = 8

var (
	urlPattern       = regexp.MustCompile(`http\S+|www\.\S+`)
	nonLetterPattern = regexp.MustCompile(`[^\p{L}\p{M}]+`)

	stopwords = loadStopwords(stopwordsFile)
)

func loadStopwords(data string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(data, "\n") {
		w := strings.TrimSpace(line)
		if w == "" {
			continue
		}
		set[norm.NFC.String(w)] = struct{}{}
	}
	return set
}

// IsStopword reports whether w (lowercase) is in the Portuguese stopword list.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// Normalize lowercases text, strips URLs and every non-letter run, drops
// stopwords and short tokens, and reduces the survivors to their stems.
// Normalize(Normalize(x)) == Normalize(x) for every x.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(norm.NFC.String(text))
	text = urlPattern.ReplaceAllString(text, " ")
	text = nonLetterPattern.ReplaceAllString(text, " ")

	tokens := strings.Fields(text)
	stems := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !keep(tok) {
			continue
		}
		s := Stem(tok)
		// A stem may itself collapse into a stopword or a short token.
		if !keep(s) {
			continue
		}
		stems = append(stems, s)
	}
	return strings.Join(stems, " ")
}

func keep(tok string) bool {
	if utf8.RuneCountInString(tok) <= minTokenRunes {
		return false
	}
	return !IsStopword(tok)
}

// Stem applies the Portuguese Snowball stemmer until the word stops
// changing, so an already-stemmed word is returned unchanged.
func Stem(word string) string {
	for i := 0; i < maxStemPasses; i++ {
		env := snowballstem.NewEnv(word)
		portuguese.Stem(env)
		next := env.Current()
		if next == word {
			return word
		}
		word = next
	}
	return word
}
