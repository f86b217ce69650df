// Package postprocess removes common LLM artifacts from translation replies.
//
// Clean is applied to the whole reply before reconciliation; CleanFragment is
// applied to each aligned entry afterwards.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes reply-level artifacts and returns the trimmed result:
//  1. Thinking / reasoning block removal
//  2. Markdown code fence unwrapping
//  3. Instruction echo removal (prompt leakage)
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = unwrapCodeFence(text)
	text = removeInstructionEchoes(text)
	return strings.TrimSpace(text)
}

// CleanFragment tidies one aligned entry. Outer quotes are only stripped when
// the source line was not itself quoted.
func CleanFragment(fragment, source string) string {
	fragment = strings.TrimSpace(fragment)
	fragment = reBlankRun.ReplaceAllString(fragment, "\n")
	if !isQuoteWrapped(strings.TrimSpace(source)) {
		fragment = removeQuoteWrapping(fragment)
	}
	return fragment
}

var reBlankRun = regexp.MustCompile(`\n[ \t]*\n+`)

// --- thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Each tag variant is listed explicitly because RE2 has no backreferences.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- code fences ---

var codeFenceRe = regexp.MustCompile("(?s)^```[A-Za-z]*\\s*\n(.*?)\n?```$")

func unwrapCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// --- instruction echoes ---

// echoPatterns match introductory phrases that LLMs sometimes prepend even
// when instructed not to. Each pattern is anchored to the start and requires
// a colon.
var echoPatterns = []*regexp.Regexp{
	// "Here is / Here's [the] [Vietnamese|translated] translation[s]:"
	regexp.MustCompile(`(?i)^here(?:'s| is| are)(?: the)? (?:vietnamese |translated |refined )?(?:translations?|subtitles?|text)(?: in vietnamese)?\s*:`),
	// "[The] [Vietnamese] translation[s]:"
	regexp.MustCompile(`(?i)^(?:the )?(?:vietnamese |refined )?(?:translations?|translated text|translated subtitles)\s*:`),
	// "Certainly / Sure / Of course[,] here is [the] translation:"
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]? here(?:'s| is| are)(?: the)? (?:vietnamese |translated |refined )?(?:translations?|subtitles?|text)\s*:`),
	// "Bản dịch:" / "Bản dịch tiếng Việt:"
	regexp.MustCompile(`(?i)^bản dịch(?: tiếng việt)?\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// --- quote wrapping ---

func isQuoteWrapped(text string) bool {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return false
	}
	first, last := runes[0], runes[n-1]
	return (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’')
}

// removeQuoteWrapping strips one matching pair of outer quotes when the entire
// text is wrapped in them. Supported pairs:
//
//	"…"  '…'  «…»  “…”  ‘…’
func removeQuoteWrapping(text string) string {
	if !isQuoteWrapped(text) {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[1 : len(runes)-1]))
}
