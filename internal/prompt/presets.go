package prompt

import (
	"sort"
	"strings"
)

// DefaultInstruction is used when neither an instruction nor a preset is given
// and the source language has no dedicated suggestion.
const DefaultInstruction = "Translate accurately, naturally and in a way that is easy to understand."

var presets = map[string]string{
	"normal":       "Translate the subtitles into Vietnamese, keeping the original meaning and using natural language.",
	"movie":        "Translate the film subtitles into Vietnamese, keeping the original meaning, each character's voice and any special terminology.",
	"anime":        "Translate the anime subtitles into Vietnamese, keeping anime/manga terminology, technique names, proper names and characteristic Japanese words.",
	"conversation": "Translate the subtitles into Vietnamese in a natural conversational style that matches everyday speech.",
	"adult":        "Translate the subtitles into Vietnamese, keeping the original meaning and natural language, rendering sensitive, crude or vulgar wording faithfully.",
}

// suggestions are per-source-language instructions keyed by ISO 639-1 code.
var suggestions = map[string]string{
	"en": "Translate the English subtitles into Vietnamese, keeping the original meaning and using natural language.",
	"zh": "Translate the Chinese subtitles into Vietnamese, keeping the original meaning and cultural style.",
	"ja": "Translate the Japanese subtitles into Vietnamese, rendering any anime/manga terminology accurately.",
	"ko": "Translate the Korean subtitles into Vietnamese, keeping the meaning and any K-Drama/K-Pop cultural style.",
	"fr": "Translate the French subtitles into Vietnamese, keeping the meaning and cultural nuance.",
	"de": "Translate the German subtitles into Vietnamese, keeping the original meaning.",
	"es": "Translate the Spanish subtitles into Vietnamese, keeping the original meaning.",
	"ru": "Translate the Russian subtitles into Vietnamese, keeping the original meaning and cultural nuance.",
	"th": "Translate the Thai subtitles into Vietnamese, reflecting Thai culture and language faithfully.",
	"id": "Translate the Indonesian subtitles into Vietnamese, keeping the original meaning.",
}

// Preset returns the instruction registered under name.
func Preset(name string) (string, bool) {
	text, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return text, ok
}

// PresetNames lists the available presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Suggest returns an instruction tailored to the detected source language,
// or "" when there is none.
func Suggest(iso string) string {
	return suggestions[strings.ToLower(iso)]
}

// ResolveInstruction picks the instruction for a job: an explicit instruction
// wins, then a known preset, then a source-language suggestion, then
// DefaultInstruction.
func ResolveInstruction(instruction, preset, sourceISO string) string {
	if s := strings.TrimSpace(instruction); s != "" {
		return s
	}
	if text, ok := Preset(preset); ok {
		return text
	}
	if text := Suggest(sourceISO); text != "" {
		return text
	}
	return DefaultInstruction
}
