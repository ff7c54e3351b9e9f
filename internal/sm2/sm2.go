// Package sm2 implements the SM-2 family spaced repetition scheduler.
//
// The scheduler is a pure function over a card's scheduling fields: given a
// performance rating and the review time, it returns the card with updated
// interval, repetition count, ease factor and due date. The current time is
// always passed in by the caller, never read from the wall clock.
package sm2

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cloudtardis/dads-english-app/internal/domain"
)

// ErrInvalidRating is returned when a rating is outside the configured
// model's domain. Use errors.Is to check.
var ErrInvalidRating = errors.New("sm2: invalid rating")

// Model selects which rating scale the scheduler accepts.
type Model int

const (
	// Graded is the classic SM-2 model: quality scores 0 through 5,
	// where a quality below 3 is a failed recall.
	Graded Model = iota + 1
	// Binary is the coarse model: Hard (forgot) or Easy (recalled).
	Binary
)

// String returns "Graded" or "Binary", or "Model(n)" for invalid values.
func (m Model) String() string {
	switch m {
	case Graded:
		return "Graded"
	case Binary:
		return "Binary"
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// Rating is the user's assessment of a recall attempt. Its meaning depends
// on the scheduler's model: under Graded it is the SM-2 quality score 0..5,
// under Binary only Hard and Easy are valid.
type Rating int

const (
	Hard Rating = 0 // Binary model: failed recall
	Easy Rating = 5 // Binary model: successful recall
)

const oneDay = 24 * time.Hour

// Config configures a Scheduler. Zero values produce defaults; see field
// comments.
type Config struct {
	Model          Model   // zero → Graded
	MinEase        float64 // zero → 1.3
	MaxEase        float64 // zero → 2.5; ceiling applied by the Binary model only
	SecondInterval int     // zero → 6 (Graded) or 3 (Binary); interval after the second success
	HardPenalty    float64 // zero → 0.15; Binary ease reduction on Hard
	EasyBonus      float64 // zero → 0.05; Binary ease gain on Easy
}

// Scheduler computes review schedules for cards. Safe for concurrent use;
// it holds no mutable state.
type Scheduler struct {
	model          Model
	minEase        float64
	maxEase        float64
	secondInterval int
	hardPenalty    float64
	easyBonus      float64
}

// New creates a Scheduler from the given config. Zero-value fields are
// filled with defaults; inconsistent values return an error.
func New(cfg Config) (*Scheduler, error) {
	model := cfg.Model
	if model == 0 {
		model = Graded
	}
	if model != Graded && model != Binary {
		return nil, fmt.Errorf("sm2: unknown model %d", int(cfg.Model))
	}

	minEase := cfg.MinEase
	if minEase == 0 {
		minEase = 1.3
	}
	if minEase < 1 {
		return nil, fmt.Errorf("sm2: min ease %v must be at least 1", minEase)
	}

	maxEase := cfg.MaxEase
	if maxEase == 0 {
		maxEase = domain.DefaultEase
	}
	if maxEase < minEase {
		return nil, fmt.Errorf("sm2: max ease %v below min ease %v", maxEase, minEase)
	}

	second := cfg.SecondInterval
	if second == 0 {
		if model == Binary {
			second = 3
		} else {
			second = 6
		}
	}
	if second < 1 {
		return nil, fmt.Errorf("sm2: second interval %d must be positive", second)
	}

	hardPenalty := cfg.HardPenalty
	if hardPenalty == 0 {
		hardPenalty = 0.15
	}
	easyBonus := cfg.EasyBonus
	if easyBonus == 0 {
		easyBonus = 0.05
	}

	return &Scheduler{
		model:          model,
		minEase:        minEase,
		maxEase:        maxEase,
		secondInterval: second,
		hardPenalty:    hardPenalty,
		easyBonus:      easyBonus,
	}, nil
}

// Model returns the configured rating model.
func (s *Scheduler) Model() Model { return s.model }

// ValidRating reports whether r is in the configured model's domain.
// Callers are expected to validate input before calling Review.
func (s *Scheduler) ValidRating(r Rating) bool {
	if s.model == Binary {
		return r == Hard || r == Easy
	}
	return r >= 0 && r <= 5
}

// Review applies a rating to the card at the given time and returns the
// updated card. The input card is not mutated. The rating must already be
// valid for the configured model; Review is total over valid input.
func (s *Scheduler) Review(card domain.Card, r Rating, now time.Time) domain.Card {
	if s.model == Binary {
		card = s.reviewBinary(card, r)
	} else {
		card = s.reviewGraded(card, r)
	}
	card.DueAt = now.Add(time.Duration(card.Interval) * oneDay)
	return card
}

func (s *Scheduler) reviewGraded(card domain.Card, quality Rating) domain.Card {
	if quality < 3 {
		card.Repetitions = 0
		card.Interval = 1
		return card
	}

	card.Interval = s.nextInterval(card)
	card.Repetitions++

	// Standard SM-2 ease adjustment, floored so intervals cannot shrink
	// forever. The graded model has no ceiling.
	q := float64(quality)
	ease := card.EaseFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	card.EaseFactor = math.Max(s.minEase, ease)
	return card
}

func (s *Scheduler) reviewBinary(card domain.Card, r Rating) domain.Card {
	if r == Hard {
		card.Repetitions = 0
		card.Interval = 1
		card.EaseFactor = math.Max(s.minEase, card.EaseFactor-s.hardPenalty)
		return card
	}

	card.Interval = s.nextInterval(card)
	card.Repetitions++
	card.EaseFactor = math.Min(card.EaseFactor+s.easyBonus, s.maxEase)
	return card
}

// nextInterval computes the interval for a successful recall: 1 day after
// the first success, the configured second interval after the next, then
// the previous interval scaled by the ease factor.
func (s *Scheduler) nextInterval(card domain.Card) int {
	switch card.Repetitions {
	case 0:
		return 1
	case 1:
		return s.secondInterval
	default:
		return int(math.Round(float64(card.Interval) * card.EaseFactor))
	}
}
