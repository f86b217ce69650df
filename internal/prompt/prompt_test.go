package prompt_test

import (
	"strings"
	"testing"
	"time"

	"github.com/valpere/vietsub/internal/batcher"
	"github.com/valpere/vietsub/internal/prompt"
	"github.com/valpere/vietsub/internal/srt"
)

func batchOf(texts ...string) batcher.Batch {
	cues := make([]srt.Cue, len(texts))
	for i, text := range texts {
		start := time.Duration(i) * time.Second
		cues[i] = srt.NewCue("x", start, start+500*time.Millisecond, text)
	}
	return batcher.Batch{Cues: cues}
}

func TestCompose_Body(t *testing.T) {
	req := prompt.Compose(batchOf("Hello.", "How are you?"), prompt.Options{})
	want := "[1] Hello.\n\n[2] How are you?"
	if req.Body != want {
		t.Errorf("body = %q, want %q", req.Body, want)
	}
	if !strings.HasSuffix(req.Prompt, want) {
		t.Error("prompt should end with the numbered body")
	}
	if req.Instruction != prompt.DefaultInstruction {
		t.Errorf("expected default instruction, got %q", req.Instruction)
	}
	if req.System != prompt.SystemPrompt {
		t.Error("expected plain system prompt")
	}
}

func TestCompose_NoContextForFirstBatch(t *testing.T) {
	req := prompt.Compose(batchOf("Hi"), prompt.Options{Instruction: "Be terse."})
	if strings.Contains(req.Prompt, "[Context") {
		t.Error("first batch should not carry a context block")
	}
	if !strings.HasPrefix(req.Prompt, "Be terse.") {
		t.Errorf("instruction should lead the prompt, got %q", req.Prompt[:20])
	}
}

func TestCompose_Context(t *testing.T) {
	b := batchOf("Next line")
	b.Context = batchOf("a", "b", "c").Cues
	req := prompt.Compose(b, prompt.Options{})
	for i, want := range []string{"[Context 1] a", "[Context 2] b", "[Context 3] c"} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("context entry %d missing %q", i, want)
		}
	}
	if strings.Index(req.Prompt, "[Context 3]") > strings.Index(req.Prompt, "[1] Next line") {
		t.Error("context must precede the numbered body")
	}
	if !strings.Contains(req.Prompt, "do NOT translate") {
		t.Error("context block must be labelled as reference only")
	}
}

func TestCompose_TermsAndGlossary(t *testing.T) {
	b := batchOf("Watson, come here.", "The game is afoot, Watson.")
	req := prompt.Compose(b, prompt.Options{
		Glossary: []prompt.GlossaryEntry{
			{Source: "game", Target: "trò chơi"},
			{Source: "Moriarty", Target: "Moriarty"},
		},
	})
	if len(req.Terms.Simple) != 1 || req.Terms.Simple[0] != "Watson" {
		t.Errorf("unexpected terms %+v", req.Terms)
	}
	if len(req.Glossary) != 1 || req.Glossary[0].Source != "game" {
		t.Errorf("expected only the matching glossary entry, got %+v", req.Glossary)
	}
	if !strings.Contains(req.Prompt, "game → trò chơi") {
		t.Error("glossary entry missing from prompt")
	}
}

func TestCompose_Structured(t *testing.T) {
	req := prompt.Compose(batchOf("Hi"), prompt.Options{Structured: true})
	if !req.Structured || !strings.Contains(req.System, `{"translations"`) {
		t.Error("structured mode should extend the system prompt")
	}
}

func TestCompose_ProtectMarkup(t *testing.T) {
	req := prompt.Compose(batchOf("<i>Hello</i>", "Bye"), prompt.Options{ProtectMarkup: true})
	if req.Segments[0] != "[PH0]Hello[PH1]" {
		t.Errorf("unexpected protected segment %q", req.Segments[0])
	}
	if req.Markup == nil || req.Markup.Len() != 2 {
		t.Fatal("expected two captured tags")
	}
	if got := req.Markup.Restore(req.Segments[0]); got != "<i>Hello</i>" {
		t.Errorf("restore = %q", got)
	}
	if !strings.Contains(req.Prompt, "[PHn]") {
		t.Error("prompt should carry the marker hint")
	}
}

func TestExtractTerms(t *testing.T) {
	texts := []string{
		`The FBI agent Mulder (Fox) said "trust no one" [whispering]`,
		`When Mulder left, Scully said "I want to believe in something more"`,
	}
	terms := prompt.ExtractTerms(texts)
	all := strings.Join(terms.All(), "|")

	for _, want := range []string{"Mulder", "Fox", "Scully", "(Fox)", "[whispering]", "FBI", `"trust no one"`} {
		if !strings.Contains(all, want) {
			t.Errorf("expected term %q in %q", want, all)
		}
	}
	for _, banned := range []string{"The|", "When|"} {
		if strings.Contains(all+"|", banned) {
			t.Errorf("common word %q should be filtered", banned)
		}
	}
	if strings.Count(all, "Mulder|") > 1 {
		t.Error("terms should be deduplicated")
	}
	if len(terms.Complex) != 1 || terms.Complex[0] != `"I want to believe in something more"` {
		t.Errorf("unexpected complex terms %v", terms.Complex)
	}
}

func TestExtractTerms_Cap(t *testing.T) {
	var words []string
	for c := 'A'; c <= 'Z'; c++ {
		words = append(words, string(c)+"bcd")
	}
	terms := prompt.ExtractTerms([]string{strings.Join(words, " ")})
	if n := len(terms.All()); n != prompt.MaxTerms {
		t.Errorf("expected %d terms, got %d", prompt.MaxTerms, n)
	}
}

func TestResolveInstruction(t *testing.T) {
	anime, _ := prompt.Preset("anime")
	cases := []struct {
		name, instruction, preset, iso, want string
	}{
		{"explicit wins", "Custom", "anime", "ja", "Custom"},
		{"preset", "", "Anime", "ja", anime},
		{"language suggestion", "", "", "ja", prompt.Suggest("ja")},
		{"default", "", "unknown", "xx", prompt.DefaultInstruction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := prompt.ResolveInstruction(tc.instruction, tc.preset, tc.iso); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPresetNames(t *testing.T) {
	names := prompt.PresetNames()
	if len(names) != 5 || names[0] != "adult" {
		t.Errorf("unexpected presets %v", names)
	}
}
