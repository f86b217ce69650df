package postprocess

import "testing"

func TestRemoveThinkingBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no thinking blocks",
			input:    "[1] Xin chào",
			expected: "[1] Xin chào",
		},
		{
			name:     "think block before reply",
			input:    "<think>The user wants Vietnamese</think>\n[1] Xin chào",
			expected: "[1] Xin chào",
		},
		{
			name:     "reasoning block",
			input:    "Start<reasoning>Analyzing the grammar</reasoning>End",
			expected: "StartEnd",
		},
		{
			name:     "multiple thinking blocks",
			input:    "<thinking>First</thinking>middle<thinking>Second</thinking>",
			expected: "middle",
		},
		{
			name:     "truncated thinking block (no closing)",
			input:    "<thinking>Translation in progress",
			expected: "",
		},
		{
			name:     "truncated thinking in middle",
			input:    "[1] Một<thinking>Incomplete",
			expected: "[1] Một",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeThinkingBlocks(tt.input)
			if result != tt.expected {
				t.Errorf("removeThinkingBlocks(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestUnwrapCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json fence",
			input:    "```json\n{\"translations\": [\"a\"]}\n```",
			expected: "{\"translations\": [\"a\"]}",
		},
		{
			name:     "bare fence",
			input:    "```\n[1] Một\n\n[2] Hai\n```",
			expected: "[1] Một\n\n[2] Hai",
		},
		{
			name:     "no fence",
			input:    "[1] Một",
			expected: "[1] Một",
		},
		{
			name:     "fence not wrapping the whole reply",
			input:    "Note:\n```\n[1] Một\n```",
			expected: "Note:\n```\n[1] Một\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := unwrapCodeFence(tt.input)
			if result != tt.expected {
				t.Errorf("unwrapCodeFence(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveInstructionEchoes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no echo",
			input:    "[1] Xin chào",
			expected: "[1] Xin chào",
		},
		{
			name:     "here's translation echo",
			input:    "Here's the translation: [1] Xin chào",
			expected: "[1] Xin chào",
		},
		{
			name:     "here are vietnamese translations",
			input:    "Here are the Vietnamese translations:\n[1] Một",
			expected: "[1] Một",
		},
		{
			name:     "the translation echo",
			input:    "The translation: [1] Một",
			expected: "[1] Một",
		},
		{
			name:     "sure echo",
			input:    "Sure, here's the translated text: [1] Một",
			expected: "[1] Một",
		},
		{
			name:     "vietnamese echo",
			input:    "Bản dịch: [1] Một",
			expected: "[1] Một",
		},
		{
			name:     "echo not at start (should not match)",
			input:    "[1] Here's the translation: Một",
			expected: "[1] Here's the translation: Một",
		},
		{
			name:     "echo without colon (should not match)",
			input:    "Here's the translation text",
			expected: "Here's the translation text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeInstructionEchoes(tt.input)
			if result != tt.expected {
				t.Errorf("removeInstructionEchoes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveQuoteWrapping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "single char", input: "a", expected: "a"},
		{name: "no quotes", input: "Xin chào", expected: "Xin chào"},
		{name: "double quotes", input: "\"Xin chào\"", expected: "Xin chào"},
		{name: "guillemets", input: "«Xin chào»", expected: "Xin chào"},
		{name: "curly double quotes", input: "“Xin chào”", expected: "Xin chào"},
		{name: "unmatched quotes", input: "\"Xin chào'", expected: "\"Xin chào'"},
		{name: "only opening quote", input: "\"Xin chào", expected: "\"Xin chào"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeQuoteWrapping(tt.input)
			if result != tt.expected {
				t.Errorf("removeQuoteWrapping(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "thinking + fence",
			input:    "<think>ok</think>\n```\n[1] Một\n```",
			expected: "[1] Một",
		},
		{
			name:     "thinking + echo",
			input:    "<reasoning>r</reasoning>Here's the translation:\n[1] Một",
			expected: "[1] Một",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Clean(tt.input)
			if result != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCleanFragment(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		source   string
		expected string
	}{
		{
			name:     "trims trailing blank lines",
			fragment: "Xin chào\n\n",
			source:   "Hello",
			expected: "Xin chào",
		},
		{
			name:     "collapses blank line inside entry",
			fragment: "Dòng một\n\nDòng hai",
			source:   "Line one\nLine two",
			expected: "Dòng một\nDòng hai",
		},
		{
			name:     "strips added quotes",
			fragment: "\"Xin chào\"",
			source:   "Hello",
			expected: "Xin chào",
		},
		{
			name:     "keeps quotes present in source",
			fragment: "\"Xin chào\"",
			source:   "\"Hello\"",
			expected: "\"Xin chào\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanFragment(tt.fragment, tt.source)
			if result != tt.expected {
				t.Errorf("CleanFragment(%q, %q) = %q, want %q", tt.fragment, tt.source, result, tt.expected)
			}
		})
	}
}
