package reply

import (
	"regexp"
	"strings"

	"github.com/mailtriage/mailtriage/internal/classifier"
)

// Subtype refines a category into the intent used to pick a reply.
type Subtype string

const (
	SubtypeStatus     Subtype = "status"     // asks for progress on a case
	SubtypeAttachment Subtype = "attachment" // sends a file
	SubtypeSupport    Subtype = "support"    // reports a problem
	SubtypeThanks     Subtype = "thanks"
	SubtypeGreetings  Subtype = "greetings" // seasonal wishes, congratulations
	SubtypeQuestion   Subtype = "question"  // productive fallback
	SubtypeOther      Subtype = "other"     // unproductive fallback
)

// AllSubtypes lists every subtype DetectSubtype can return.
var AllSubtypes = []Subtype{
	SubtypeStatus,
	SubtypeAttachment,
	SubtypeSupport,
	SubtypeThanks,
	SubtypeGreetings,
	SubtypeQuestion,
	SubtypeOther,
}

// Valid reports whether s is a known subtype.
func (s Subtype) Valid() bool {
	for _, known := range AllSubtypes {
		if s == known {
			return true
		}
	}
	return false
}

type subtypeRule struct {
	subtype Subtype
	pattern *regexp.Regexp
}

// wordStart anchors an alternation at the beginning of a word. Go's \b is
// ASCII-only and would split words at accented letters.
const wordStart = `(?:^|[^\p{L}\p{N}_])`

func wordRule(s Subtype, alternation string) subtypeRule {
	return subtypeRule{subtype: s, pattern: regexp.MustCompile(wordStart + `(?:` + alternation + `)`)}
}

// subtypeRules are tried in order; the first match wins.
var subtypeRules = []subtypeRule{
	wordRule(SubtypeStatus, `status|andament|protocol|atualiza[çc][ãa]o|posi[çc][ãa]o|previs[ãa]o`),
	wordRule(SubtypeAttachment, `anex|arquivo|documento|comprovante`),
	wordRule(SubtypeSupport, `erro|falha|bug|n[ãa]o consigo|indispon[íi]vel|bloque|senha|acesso|suporte`),
	wordRule(SubtypeThanks, `obrigad|valeu|agrade[cç]`),
	wordRule(SubtypeGreetings, `feliz natal|feliz ano novo|boas festas|parab[ée]ns|bom dia|boa tarde|boa noite`),
}

// Subtypes returns the pattern-backed subtypes in priority order.
func Subtypes() []Subtype {
	out := make([]Subtype, len(subtypeRules))
	for i, r := range subtypeRules {
		out[i] = r.subtype
	}
	return out
}

// DetectSubtype returns the first subtype whose pattern matches the
// lowercased text. Without a match it falls back to SubtypeQuestion for
// productive mail and SubtypeOther otherwise.
func DetectSubtype(text string, category classifier.Category) Subtype {
	t := strings.ToLower(text)
	for _, r := range subtypeRules {
		if r.pattern.MatchString(t) {
			return r.subtype
		}
	}
	if category == classifier.Productive {
		return SubtypeQuestion
	}
	return SubtypeOther
}
