// Package placeholder shields inline subtitle markup (HTML-style tags such as
// <i> or <font color="...">, and ASS override blocks such as {\an8}) from the
// translation model by replacing each occurrence with a numbered marker
// ([PH0], [PH1], …). Numbering is shared across a whole batch so a marker
// that the model moves between entries still restores to the right tag.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ASS/SSA override blocks: {\an8}, {\i1}, {\pos(10,20)}
	reOverride = regexp.MustCompile(`\{\\[^}]*\}`)

	// HTML-style tags: opening, closing, and self-closing
	reTag = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)

	// placeholder reference in translated text
	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Set holds the originals captured while protecting one batch.
type Set struct {
	markers []string
}

// Len reports how many markers were issued.
func (s *Set) Len() int { return len(s.markers) }

// Protect replaces markup in text with the next free markers of the set.
func (s *Set) Protect(text string) string {
	replace := func(match string) string {
		id := "[PH" + strconv.Itoa(len(s.markers)) + "]"
		s.markers = append(s.markers, match)
		return id
	}
	// Override blocks first: they may contain characters the tag pattern
	// would otherwise split on.
	text = reOverride.ReplaceAllStringFunc(text, replace)
	text = reTag.ReplaceAllStringFunc(text, replace)
	return text
}

// Restore substitutes [PHn] markers back with their originals. Unknown
// indices are left as-is.
func (s *Set) Restore(text string) string {
	return Restore(text, s.markers)
}

// Missing returns the marker indices absent from texts taken together.
func (s *Set) Missing(texts []string) []int {
	joined := strings.Join(texts, "\n")
	var missing []int
	for i := range s.markers {
		if !strings.Contains(joined, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}

// ProtectAll protects every text with batch-wide numbering.
func ProtectAll(texts []string) ([]string, *Set) {
	set := &Set{}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = set.Protect(t)
	}
	return out, set
}

// Protect protects a single text and returns the captured originals.
func Protect(text string) (string, []string) {
	set := &Set{}
	text = set.Protect(text)
	return text, set.markers
}

// Restore substitutes [PHn] markers in text with markers[n].
func Restore(text string, markers []string) string {
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sub[1])
		if err != nil || idx < 0 || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// InstructionHint is appended to the prompt when markup is protected.
func InstructionHint() string {
	return "Keep every [PHn] marker exactly as written and in the same entry. Do not translate, move, or remove them."
}
