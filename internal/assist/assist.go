// Package assist provides the optional AI helpers used when creating cards:
// generating a practice paragraph, translating it, and synthesizing audio.
//
// All three calls are independent and best-effort. A failure in any of them
// is surfaced to the caller, who saves the card anyway with whatever the
// user filled in manually.
package assist

import "context"

// Generator produces study material for new cards.
type Generator interface {
	// GenerateSentence returns a short practice paragraph about the topic.
	GenerateSentence(ctx context.Context, topic string) (string, error)
	// Translate returns the text translated into the configured target
	// language.
	Translate(ctx context.Context, text string) (string, error)
	// Synthesize returns spoken audio for the text as a data URI.
	Synthesize(ctx context.Context, text string) (string, error)
}
