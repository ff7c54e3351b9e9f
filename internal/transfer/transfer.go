// Package transfer implements the JSON bulk export/import format for cards.
//
// The format is a JSON array of card records. Export always writes the
// canonical field names; import additionally accepts the legacy aliases
// "prompt" (for "question") and "dueAt" (for "nextReview").
package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudtardis/dads-english-app/internal/domain"
)

// ErrInvalidPayload is returned when an import payload is not a JSON array
// of card records. Nothing is imported in that case.
var ErrInvalidPayload = errors.New("transfer: payload is not a JSON array of cards")

type record struct {
	ID          string  `json:"id"`
	Question    string  `json:"question"`
	Prompt      string  `json:"prompt,omitempty"` // import alias for question
	Answer      string  `json:"answer"`
	AudioData   *string `json:"audioData"`
	Interval    int     `json:"interval"`
	Repetitions int     `json:"repetitions"`
	EaseFactor  float64 `json:"easeFactor"`
	NextReview  *int64  `json:"nextReview"`      // epoch milliseconds
	DueAt       *int64  `json:"dueAt,omitempty"` // import alias for nextReview
}

// Export serializes the cards to the transfer format.
func Export(cards []domain.Card) ([]byte, error) {
	records := make([]record, len(cards))
	for i, c := range cards {
		r := record{
			ID:          c.ID,
			Question:    c.Prompt,
			Answer:      c.Answer,
			Interval:    c.Interval,
			Repetitions: c.Repetitions,
			EaseFactor:  c.EaseFactor,
		}
		if c.AudioData != "" {
			audio := c.AudioData
			r.AudioData = &audio
		}
		due := c.DueAt.UnixMilli()
		r.NextReview = &due
		records[i] = r
	}
	return json.MarshalIndent(records, "", "  ")
}

// Import parses a transfer payload into cards. A payload that is not a
// JSON array is rejected with ErrInvalidPayload before anything else
// happens; the caller's collection is never touched on error.
func Import(data []byte) ([]domain.Card, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: got %s", ErrInvalidPayload, typeErr.Value)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	cards := make([]domain.Card, 0, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: record %d has no id", ErrInvalidPayload, i)
		}
		c := domain.Card{
			ID:          r.ID,
			Prompt:      r.Question,
			Answer:      r.Answer,
			Interval:    r.Interval,
			Repetitions: r.Repetitions,
			EaseFactor:  r.EaseFactor,
		}
		if c.Prompt == "" {
			c.Prompt = r.Prompt
		}
		if r.AudioData != nil {
			c.AudioData = *r.AudioData
		}
		switch {
		case r.NextReview != nil:
			c.DueAt = time.UnixMilli(*r.NextReview).UTC()
		case r.DueAt != nil:
			c.DueAt = time.UnixMilli(*r.DueAt).UTC()
		default:
			return nil, fmt.Errorf("%w: record %d has no due time", ErrInvalidPayload, i)
		}
		cards = append(cards, c)
	}
	return cards, nil
}
