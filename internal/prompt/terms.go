package prompt

import (
	"regexp"
	"strings"
)

// MaxTerms caps the number of auto-extracted glossary candidates.
const MaxTerms = 20

var (
	reCapitalized = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)
	reParenthesis = regexp.MustCompile(`\([^)]+\)`)
	reBracketed   = regexp.MustCompile(`\[[^\]]+\]`)
	reAllCaps     = regexp.MustCompile(`\b[A-Z]{2,}\b`)
	reQuoted      = regexp.MustCompile(`"[^"]{3,}"`)
)

// commonWords are sentence-initial words that look like names but are not.
var commonWords = map[string]struct{}{
	"The": {}, "This": {}, "That": {}, "There": {}, "Their": {}, "They": {},
	"When": {}, "What": {}, "Where": {}, "Who": {}, "Why": {}, "How": {},
}

// Terms are glossary candidates found in a batch. Simple terms (at most three
// words) are inlined in the prompt; complex terms are listed one per line.
type Terms struct {
	Simple  []string
	Complex []string
}

// Empty reports whether no terms were found.
func (t Terms) Empty() bool { return len(t.Simple) == 0 && len(t.Complex) == 0 }

// All returns simple terms followed by complex ones.
func (t Terms) All() []string {
	return append(append([]string(nil), t.Simple...), t.Complex...)
}

// ExtractTerms collects proper-noun and special-term candidates from texts:
// capitalized words of three or more letters first, then parenthesised,
// bracketed, all-caps and quoted spans. Duplicates and common capitalized
// function words are dropped and the result is capped at MaxTerms.
func ExtractTerms(texts []string) Terms {
	all := strings.Join(texts, " ")

	var candidates []string
	candidates = append(candidates, reCapitalized.FindAllString(all, -1)...)
	for _, re := range []*regexp.Regexp{reParenthesis, reBracketed, reAllCaps, reQuoted} {
		candidates = append(candidates, re.FindAllString(all, -1)...)
	}

	var (
		terms Terms
		seen  = make(map[string]struct{}, len(candidates))
		count int
	)
	for _, c := range candidates {
		if count == MaxTerms {
			break
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if _, common := commonWords[c]; common || len(c) <= 2 {
			continue
		}
		if len(strings.Fields(c)) > 3 {
			terms.Complex = append(terms.Complex, c)
		} else {
			terms.Simple = append(terms.Simple, c)
		}
		count++
	}
	return terms
}
