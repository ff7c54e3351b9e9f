package sm2

import (
	"math"
	"testing"
	"time"

	"github.com/cloudtardis/dads-english-app/internal/domain"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func mustScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func newCard() domain.Card {
	return domain.NewWithID("c1", "prompt", "answer", t0)
}

func assertFloat(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestNewDefaults(t *testing.T) {
	s := mustScheduler(t, Config{})
	if s.Model() != Graded {
		t.Errorf("Model = %v, want Graded", s.Model())
	}
	if s.secondInterval != 6 {
		t.Errorf("secondInterval = %d, want 6", s.secondInterval)
	}

	b := mustScheduler(t, Config{Model: Binary})
	if b.secondInterval != 3 {
		t.Errorf("binary secondInterval = %d, want 3", b.secondInterval)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"unknown model", Config{Model: Model(9)}},
		{"min ease below 1", Config{MinEase: 0.5}},
		{"max ease below min", Config{MinEase: 2.0, MaxEase: 1.5}},
		{"negative second interval", Config{SecondInterval: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Error("New should reject config")
			}
		})
	}
}

func TestValidRating(t *testing.T) {
	g := mustScheduler(t, Config{})
	for r := Rating(0); r <= 5; r++ {
		if !g.ValidRating(r) {
			t.Errorf("graded: rating %d should be valid", r)
		}
	}
	if g.ValidRating(-1) || g.ValidRating(6) {
		t.Error("graded: out-of-range rating should be invalid")
	}

	b := mustScheduler(t, Config{Model: Binary})
	if !b.ValidRating(Hard) || !b.ValidRating(Easy) {
		t.Error("binary: Hard and Easy should be valid")
	}
	if b.ValidRating(3) {
		t.Error("binary: 3 should be invalid")
	}
}

func TestGradedNewCardPerfectRecall(t *testing.T) {
	s := mustScheduler(t, Config{})
	c := s.Review(newCard(), 5, t0)

	if c.Interval != 1 {
		t.Errorf("Interval = %d, want 1", c.Interval)
	}
	if c.Repetitions != 1 {
		t.Errorf("Repetitions = %d, want 1", c.Repetitions)
	}
	assertFloat(t, "EaseFactor", c.EaseFactor, 2.6)
	wantDue := t0.Add(24 * time.Hour)
	if !c.DueAt.Equal(wantDue) {
		t.Errorf("DueAt = %v, want %v", c.DueAt, wantDue)
	}
}

func TestGradedSecondSuccess(t *testing.T) {
	s := mustScheduler(t, Config{})
	c := s.Review(newCard(), 5, t0)
	c = s.Review(c, 5, t0.Add(24*time.Hour))

	if c.Interval != 6 {
		t.Errorf("Interval = %d, want 6", c.Interval)
	}
	if c.Repetitions != 2 {
		t.Errorf("Repetitions = %d, want 2", c.Repetitions)
	}
}

func TestGradedFailureResets(t *testing.T) {
	s := mustScheduler(t, Config{})
	for quality := Rating(0); quality < 3; quality++ {
		c := newCard()
		c.Interval = 42
		c.Repetitions = 7
		c.EaseFactor = 2.1

		c = s.Review(c, quality, t0)
		if c.Repetitions != 0 {
			t.Errorf("quality %d: Repetitions = %d, want 0", quality, c.Repetitions)
		}
		if c.Interval != 1 {
			t.Errorf("quality %d: Interval = %d, want 1", quality, c.Interval)
		}
		// Ease is untouched on a failed recall.
		assertFloat(t, "EaseFactor", c.EaseFactor, 2.1)
	}
}

func TestGradedEaseFloor(t *testing.T) {
	s := mustScheduler(t, Config{})
	c := newCard()
	// Quality 3 lowers ease by 0.14 per success; it must never pass 1.3.
	for i := 0; i < 20; i++ {
		c = s.Review(c, 3, t0)
		if c.EaseFactor < 1.3 {
			t.Fatalf("iteration %d: EaseFactor = %v, below floor", i, c.EaseFactor)
		}
	}
	assertFloat(t, "EaseFactor after floor", c.EaseFactor, 1.3)
}

func TestGradedMatureInterval(t *testing.T) {
	s := mustScheduler(t, Config{})
	c := newCard()
	c.Interval = 6
	c.Repetitions = 2
	c.EaseFactor = 2.5

	c = s.Review(c, 4, t0)
	if c.Interval != 15 { // round(6 * 2.5)
		t.Errorf("Interval = %d, want 15", c.Interval)
	}
	if c.Repetitions != 3 {
		t.Errorf("Repetitions = %d, want 3", c.Repetitions)
	}
}

func TestBinaryHardResets(t *testing.T) {
	s := mustScheduler(t, Config{Model: Binary})
	c := newCard()
	c.Interval = 12
	c.Repetitions = 4
	c.EaseFactor = 2.4

	c = s.Review(c, Hard, t0)
	if c.Repetitions != 0 {
		t.Errorf("Repetitions = %d, want 0", c.Repetitions)
	}
	if c.Interval != 1 {
		t.Errorf("Interval = %d, want 1", c.Interval)
	}
	assertFloat(t, "EaseFactor", c.EaseFactor, 2.25)
	wantDue := t0.Add(24 * time.Hour)
	if !c.DueAt.Equal(wantDue) {
		t.Errorf("DueAt = %v, want %v", c.DueAt, wantDue)
	}
}

func TestBinaryHardEaseFloor(t *testing.T) {
	s := mustScheduler(t, Config{Model: Binary})
	c := newCard()
	c.EaseFactor = 1.35

	c = s.Review(c, Hard, t0)
	assertFloat(t, "EaseFactor", c.EaseFactor, 1.3)

	c = s.Review(c, Hard, t0)
	assertFloat(t, "EaseFactor after repeat", c.EaseFactor, 1.3)
}

func TestBinaryEasyProgression(t *testing.T) {
	s := mustScheduler(t, Config{Model: Binary})

	c := s.Review(newCard(), Easy, t0)
	if c.Interval != 1 || c.Repetitions != 1 {
		t.Errorf("first Easy: interval=%d reps=%d, want 1/1", c.Interval, c.Repetitions)
	}

	c = s.Review(c, Easy, t0)
	if c.Interval != 3 || c.Repetitions != 2 {
		t.Errorf("second Easy: interval=%d reps=%d, want 3/2", c.Interval, c.Repetitions)
	}
}

func TestBinaryEasyMatureCard(t *testing.T) {
	s := mustScheduler(t, Config{Model: Binary})
	c := newCard()
	c.Interval = 6
	c.Repetitions = 2
	c.EaseFactor = 2.5

	c = s.Review(c, Easy, t0)
	if c.Interval != 15 { // round(6 * 2.5)
		t.Errorf("Interval = %d, want 15", c.Interval)
	}
	if c.Repetitions != 3 {
		t.Errorf("Repetitions = %d, want 3", c.Repetitions)
	}
	// Ease gain is capped at the ceiling: min(2.55, 2.5) = 2.5.
	assertFloat(t, "EaseFactor", c.EaseFactor, 2.5)
}

func TestDueAtExact(t *testing.T) {
	for _, model := range []Model{Graded, Binary} {
		s := mustScheduler(t, Config{Model: model})
		c := newCard()
		c.Interval = 6
		c.Repetitions = 2

		c = s.Review(c, Easy, t0)
		wantDue := t0.Add(time.Duration(c.Interval) * 24 * time.Hour)
		if !c.DueAt.Equal(wantDue) {
			t.Errorf("%v: DueAt = %v, want %v", model, c.DueAt, wantDue)
		}
	}
}

func TestReviewDoesNotMutateInput(t *testing.T) {
	s := mustScheduler(t, Config{})
	in := newCard()
	_ = s.Review(in, 5, t0)

	if in.Interval != 0 || in.Repetitions != 0 || in.EaseFactor != domain.DefaultEase {
		t.Errorf("input card mutated: %+v", in)
	}
}
