// Package reconcile aligns an untrusted model reply back onto the fixed
// positions of a batch. It always yields exactly one text per source cue:
// missing or empty entries fall back to the source text and surplus entries
// are dropped.
package reconcile

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/valpere/vietsub/internal/postprocess"
)

var reMarker = regexp.MustCompile(`\[\d+\]\s*`)

// Outcome is the result of reconciling one reply.
type Outcome struct {
	// Texts has exactly one entry per source.
	Texts []string
	// Fragments is the number of entries found in the reply.
	Fragments int
	// Missing counts sources beyond the last fragment.
	Missing int
	// Extra counts fragments beyond the last source.
	Extra int
	// Empty counts aligned fragments that were blank.
	Empty int
	// Structured is true when the reply was parsed as JSON.
	Structured bool
}

// Aligned reports whether the reply carried exactly one entry per source.
func (o Outcome) Aligned() bool { return o.Missing == 0 && o.Extra == 0 }

// Fallbacks is how many positions kept their source text.
func (o Outcome) Fallbacks() int { return o.Missing + o.Empty }

// Reconcile maps reply onto sources. A JSON reply ({"translations": [...]}
// or a bare array of strings) is tried first; otherwise the reply is split on
// [n] markers and the preamble before the first marker is discarded.
func Reconcile(reply string, sources []string) Outcome {
	cleaned := postprocess.Clean(reply)

	fragments, structured := ParseStructured(cleaned)
	if !structured {
		fragments = SplitMarkers(cleaned)
	}

	out := Outcome{
		Texts:      make([]string, len(sources)),
		Fragments:  len(fragments),
		Structured: structured,
	}
	for i, src := range sources {
		if i >= len(fragments) {
			out.Texts[i] = src
			out.Missing++
			continue
		}
		text := postprocess.CleanFragment(fragments[i], src)
		if text == "" {
			out.Texts[i] = src
			out.Empty++
			continue
		}
		out.Texts[i] = text
	}
	if len(fragments) > len(sources) {
		out.Extra = len(fragments) - len(sources)
	}
	return out
}

// SplitMarkers splits reply on [n] markers and drops the text before the
// first marker.
func SplitMarkers(reply string) []string {
	parts := reMarker.Split(reply, -1)
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}

// ParseStructured decodes a JSON reply into its list of translations.
func ParseStructured(reply string) ([]string, bool) {
	content := strings.TrimSpace(reply)
	if content == "" || (content[0] != '{' && content[0] != '[') {
		return nil, false
	}
	// ASS-style \N line breaks are not valid JSON escapes.
	content = strings.ReplaceAll(content, `\N`, `\n`)

	var translations []string
	if err := json.Unmarshal([]byte(content), &translations); err == nil {
		return translations, true
	}

	var wrapped struct {
		Translations []string `json:"translations"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && wrapped.Translations != nil {
		return wrapped.Translations, true
	}

	// Any single array-of-strings field.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &fields); err == nil {
		for _, v := range fields {
			if err := json.Unmarshal(v, &translations); err == nil {
				return translations, true
			}
		}
	}
	return nil, false
}
