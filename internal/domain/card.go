package domain

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultEase is the ease factor assigned to a card that has never been
// reviewed. It matches the SM-2 starting ease.
const DefaultEase = 2.5

// Card is a single prompt/answer flashcard together with its scheduling state.
type Card struct {
	ID          string
	Prompt      string
	Answer      string
	AudioData   string // data-URI audio clip, empty when the card has none
	Interval    int    // days until the next review; 0 until first review
	Repetitions int    // consecutive successful reviews since the last reset
	EaseFactor  float64
	DueAt       time.Time
}

// New creates a card with a fresh random ID and initial scheduling state.
// The card is immediately due.
func New(prompt, answer string, now time.Time) (Card, error) {
	id, err := gonanoid.New()
	if err != nil {
		return Card{}, err
	}
	return NewWithID(id, prompt, answer, now), nil
}

// NewWithID creates a card with the given ID, used for cards whose identity
// is derived from their content (deck-sourced cards).
func NewWithID(id, prompt, answer string, now time.Time) Card {
	return Card{
		ID:         id,
		Prompt:     prompt,
		Answer:     answer,
		EaseFactor: DefaultEase,
		DueAt:      now,
	}
}

// Due reports whether the card is eligible for review at the given time.
func (c Card) Due(now time.Time) bool {
	return !c.DueAt.After(now)
}
