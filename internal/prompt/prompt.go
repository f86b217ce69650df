// Package prompt composes one translation request per batch: the instruction,
// a read-only context block carried from the previous batch, glossary hints
// and the numbered source cues.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valpere/vietsub/internal/batcher"
	"github.com/valpere/vietsub/internal/placeholder"
)

// SystemPrompt states the reply contract shared by every request.
const SystemPrompt = `You are an assistant that translates subtitles into standard, natural and easy to understand Vietnamese. Follow these rules:

1. Keep the formatting of the original subtitles and any HTML tags.
2. Keep style and tone consistent across the whole translation.
3. Translate proper names and technical terms consistently.
4. Preserve the context of the dialogue.
5. Do not add notes or commentary to the translation.
6. Translate only the entries numbered as [number] and ignore the Context entries.
7. Translate special terms consistently with the context.`

const structuredRule = `

Reply with a JSON object of the form {"translations": ["...", "..."]} containing exactly one string per numbered entry, in order.`

// GlossaryEntry is a fixed translation supplied by the user.
type GlossaryEntry struct {
	Source string
	Target string
}

// Options tunes Compose.
type Options struct {
	// Instruction is the caller-supplied guidance; DefaultInstruction when empty.
	Instruction string
	Glossary    []GlossaryEntry
	// Structured asks the model for a JSON reply instead of [n] markers.
	Structured bool
	// ProtectMarkup replaces inline tags with [PHn] markers in the body.
	ProtectMarkup bool
}

// Request is the composed prompt for one batch.
type Request struct {
	System      string
	Instruction string
	Context     []string
	Terms       Terms
	Glossary    []GlossaryEntry
	// Segments are the texts sent for translation, after markup protection.
	Segments   []string
	Body       string
	Prompt     string
	Structured bool
	// Markup restores protected tags; nil when ProtectMarkup was off.
	Markup *placeholder.Set
}

// Compose builds the request for batch b.
func Compose(b batcher.Batch, opts Options) Request {
	texts := b.Texts()
	req := Request{
		System:      SystemPrompt,
		Instruction: strings.TrimSpace(opts.Instruction),
		Terms:       ExtractTerms(texts),
		Glossary:    relevantGlossary(opts.Glossary, texts),
		Segments:    texts,
		Structured:  opts.Structured,
	}
	if req.Instruction == "" {
		req.Instruction = DefaultInstruction
	}
	for _, c := range b.Context {
		req.Context = append(req.Context, c.Text)
	}
	if opts.ProtectMarkup {
		req.Segments, req.Markup = placeholder.ProtectAll(texts)
	}
	if opts.Structured {
		req.System += structuredRule
	}

	req.Body = NumberedBody(req.Segments)
	req.Prompt = render(req)
	return req
}

// NumberedBody renders segments as "[1] text" entries separated by blank lines.
func NumberedBody(segments []string) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, s)
	}
	return strings.Join(parts, "\n\n")
}

func render(req Request) string {
	var sb strings.Builder

	sb.WriteString(req.Instruction)
	sb.WriteString("\n\n")

	if len(req.Context) > 0 {
		sb.WriteString("Previous subtitles for context (reference only, do NOT translate again):\n\n")
		for i, c := range req.Context {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			fmt.Fprintf(&sb, "[Context %d] %s", i+1, c)
		}
		sb.WriteString("\n\n")
	}

	sb.WriteString("Translate the following subtitles into Vietnamese, keeping the formatting and the number of lines. Each subtitle is numbered in square brackets. IMPORTANT: keep formatting tags such as <i> and <b> if present.")
	if req.Markup != nil && req.Markup.Len() > 0 {
		sb.WriteString(" ")
		sb.WriteString(placeholder.InstructionHint())
	}
	if req.Structured {
		sb.WriteString(" Reply with the JSON object only.")
	}

	if !req.Terms.Empty() {
		sb.WriteString("\n\nProper names and special terms to keep or translate consistently:")
		if len(req.Terms.Simple) > 0 {
			sb.WriteString(" ")
			sb.WriteString(strings.Join(req.Terms.Simple, ", "))
		}
		if len(req.Terms.Complex) > 0 {
			sb.WriteString("\nComplex terms:")
			for _, t := range req.Terms.Complex {
				fmt.Fprintf(&sb, "\n- \"%s\"", t)
			}
		}
	}

	if len(req.Glossary) > 0 {
		sb.WriteString("\n\nTERMINOLOGY (use these exact translations):")
		for _, g := range req.Glossary {
			fmt.Fprintf(&sb, "\n  %s → %s", g.Source, g.Target)
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString(req.Body)
	return sb.String()
}

// relevantGlossary keeps the entries whose source term occurs in texts,
// sorted by source term.
func relevantGlossary(entries []GlossaryEntry, texts []string) []GlossaryEntry {
	if len(entries) == 0 {
		return nil
	}
	all := strings.ToLower(strings.Join(texts, "\n"))
	var out []GlossaryEntry
	for _, e := range entries {
		if e.Source == "" || e.Target == "" {
			continue
		}
		if strings.Contains(all, strings.ToLower(e.Source)) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}
