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
			input:    `{"duplicate": false}`,
			expected: `{"duplicate": false}`,
		},
		{
			name:     "think block before payload",
			input:    `<think>compare slugs first</think>{"duplicate": true}`,
			expected: `{"duplicate": true}`,
		},
		{
			name:     "reasoning block",
			input:    "Start<reasoning>Analyzing</reasoning>End",
			expected: "StartEnd",
		},
		{
			name:     "multiple blocks",
			input:    "<thinking>First</thinking>middle<reflection>Second</reflection>",
			expected: "middle",
		},
		{
			name:     "truncated block",
			input:    "<thinking>The model was cut off",
			expected: "",
		},
		{
			name:     "truncated block after content",
			input:    `{"a":1}<thinking>Incomplete`,
			expected: `{"a":1}`,
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

func TestRemoveEchoes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no echo",
			input:    `{"title": "x"}`,
			expected: `{"title": "x"}`,
		},
		{
			name:     "here is the json",
			input:    `Here is the JSON: {"title": "x"}`,
			expected: `{"title": "x"}`,
		},
		{
			name:     "sure plus here is",
			input:    `Sure! Here's the requested JSON object: {"title": "x"}`,
			expected: `{"title": "x"}`,
		},
		{
			name:     "spanish echo",
			input:    `Aquí tienes el JSON: {"title": "x"}`,
			expected: `{"title": "x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeEchoes(tt.input)
			if result != tt.expected {
				t.Errorf("removeEchoes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveQuoteWrapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"hola"`, "hola"},
		{`'hola'`, "hola"},
		{"«hola»", "hola"},
		{"“hola”", "hola"},
		{`"hola'`, `"hola'`},
		{`"`, `"`},
	}

	for _, tt := range tests {
		if got := removeQuoteWrapping(tt.input); got != tt.expected {
			t.Errorf("removeQuoteWrapping(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain object",
			input:    ` {"duplicate": true} `,
			expected: `{"duplicate": true}`,
		},
		{
			name:     "fenced with language",
			input:    "```json\n{\"duplicate\": false}\n```",
			expected: `{"duplicate": false}`,
		},
		{
			name:     "fenced without language",
			input:    "```\n[1, 2]\n```",
			expected: `[1, 2]`,
		},
		{
			name:     "leading prose",
			input:    `The verdict follows. {"duplicate": false} Thanks.`,
			expected: `{"duplicate": false}`,
		},
		{
			name:     "thinking then fence",
			input:    "<think>hmm</think>```json\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "no json",
			input:    "nothing to see",
			expected: "nothing to see",
		},
		{
			name:     "empty",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.expected {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
