package deck

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name           string
		input          string
		expectedCount  int
		expectedPrompt string
		expectedAnswer string
	}{
		{
			name:           "simple pair",
			input:          "Q: The weather is lovely today.\nA: El clima está precioso hoy.",
			expectedCount:  1,
			expectedPrompt: "The weather is lovely today.",
			expectedAnswer: "El clima está precioso hoy.",
		},
		{
			name: "multiline answer",
			input: `
Q: List the articles.
A: el
la
los
`,
			expectedCount:  1,
			expectedPrompt: "List the articles.",
			expectedAnswer: "el\nla\nlos",
		},
		{
			name: "two entries separated by new prompt",
			input: `
Q: First sentence
A: Primera frase

Q: Second sentence
A: Segunda frase
`,
			expectedCount: 2,
		},
		{
			name: "separator line ends an entry",
			input: `
Q: One
A: Uno
---
Q: Two
A: Dos
`,
			expectedCount: 2,
		},
		{
			name:          "no entries, just prose",
			input:         "This file has no cards in it.",
			expectedCount: 0,
		},
		{
			name:           "prefix with no space",
			input:          "Q:Sentence\nA:Frase",
			expectedCount:  1,
			expectedPrompt: "Sentence",
			expectedAnswer: "Frase",
		},
		{
			name:          "prompt without answer is still an entry",
			input:         "Q: Untranslated sentence",
			expectedCount: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(entries) != tc.expectedCount {
				t.Fatalf("Expected %d entries, but got %d", tc.expectedCount, len(entries))
			}

			if tc.expectedCount == 1 && tc.expectedPrompt != "" {
				e := entries[0]
				if e.Prompt != tc.expectedPrompt {
					t.Errorf("Expected Prompt to be %q, but got %q", tc.expectedPrompt, e.Prompt)
				}
				if e.Answer != tc.expectedAnswer {
					t.Errorf("Expected Answer to be %q, but got %q", tc.expectedAnswer, e.Answer)
				}
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	e := Entry{
		Prompt: "  What a lovely day \r\n",
		Answer: "Qué día tan bonito.",
	}
	expected := "what a lovely day\nqué día tan bonito."
	if got := Normalize(e); got != expected {
		t.Errorf("Expected normalized string to be %q, but got %q", expected, got)
	}
}

func TestHash(t *testing.T) {
	t.Run("hash is deterministic", func(t *testing.T) {
		e1 := Entry{Prompt: "Test"}
		e2 := Entry{Prompt: "Test"}
		if Hash(e1) != Hash(e2) {
			t.Error("Expected hashes for identical entries to be the same")
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		e1 := Entry{Prompt: "  what a lovely day ", Answer: "Qué día."}
		e2 := Entry{Prompt: "What A Lovely Day", Answer: "Qué día."}
		if Hash(e1) != Hash(e2) {
			t.Error("Expected hashes to match after normalization, but they differ")
		}
	})

	t.Run("different entries have different hashes", func(t *testing.T) {
		e1 := Entry{Prompt: "Entry 1"}
		e2 := Entry{Prompt: "Entry 2"}
		if Hash(e1) == Hash(e2) {
			t.Error("Expected hashes for different entries to differ")
		}
	})

	t.Run("field boundary is preserved", func(t *testing.T) {
		e1 := Entry{Prompt: "ab", Answer: "c"}
		e2 := Entry{Prompt: "a", Answer: "bc"}
		if Hash(e1) == Hash(e2) {
			t.Error("Expected field boundaries to affect the hash")
		}
	})
}
