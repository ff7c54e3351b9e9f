// Package session owns the in-memory card collection for a study session.
//
// The collection is the single source of truth while the session is open.
// Every mutation is written through to the store asynchronously: writes are
// serialized in call order by a single writer goroutine, so a later snapshot
// can never be overtaken by an earlier one.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cloudtardis/dads-english-app/internal/domain"
	"github.com/cloudtardis/dads-english-app/internal/sm2"
)

var (
	// ErrNotFound is returned when no card with the given ID exists.
	ErrNotFound = errors.New("session: card not found")
)

// Store is the persistence collaborator for a session.
type Store interface {
	// LoadAll returns every stored card.
	LoadAll(ctx context.Context) ([]domain.Card, error)
	// ReplaceAll atomically replaces the entire stored set.
	ReplaceAll(ctx context.Context, cards []domain.Card) error
}

// Clock supplies the current time. Injected so scheduling is deterministic
// under test.
type Clock func() time.Time

// Session holds the card collection and the currently relevant scheduling
// state for one user session. Methods are safe for concurrent use.
type Session struct {
	sched *sm2.Scheduler
	store Store
	clock Clock
	log   *slog.Logger

	mu     sync.Mutex
	cards  []domain.Card
	closed bool

	queue    chan []domain.Card
	done     chan struct{}
	warnOnce sync.Once
}

// New creates a session backed by the given store and scheduler and starts
// the persistence writer. Call Close to flush pending writes.
func New(store Store, sched *sm2.Scheduler, clock Clock, log *slog.Logger) *Session {
	if clock == nil {
		clock = time.Now
	}
	s := &Session{
		sched: sched,
		store: store,
		clock: clock,
		log:   log,
		queue: make(chan []domain.Card, 1),
		done:  make(chan struct{}),
	}
	go s.flushLoop()
	return s
}

// Load populates the session from the store. A load failure degrades to an
// empty in-memory session: the error is logged once and not returned, so a
// broken store never prevents a session from starting.
func (s *Session) Load(ctx context.Context) {
	cards, err := s.store.LoadAll(ctx)
	if err != nil {
		s.log.Warn("could not load cards, starting with an empty session", "error", err)
		return
	}
	s.mu.Lock()
	s.cards = cards
	s.mu.Unlock()
}

// Len returns the number of cards in the session.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cards)
}

// Scheduler returns the session's scheduler, for rating validation by the
// caller.
func (s *Session) Scheduler() *sm2.Scheduler { return s.sched }

// Snapshot returns a copy of the full collection in stable order.
func (s *Session) Snapshot() []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() []domain.Card {
	out := make([]domain.Card, len(s.cards))
	copy(out, s.cards)
	return out
}

// Get returns the card with the given ID.
func (s *Session) Get(id string) (domain.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cards {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Card{}, false
}

// NextDue returns the due card with the earliest due date, or false if no
// card is due. Ties keep the card that appears first in the collection.
func (s *Session) NextDue() (domain.Card, bool) {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()

	var best domain.Card
	found := false
	for _, c := range s.cards {
		if !c.Due(now) {
			continue
		}
		if !found || c.DueAt.Before(best.DueAt) {
			best = c
			found = true
		}
	}
	return best, found
}

// DueCount returns how many cards are currently due.
func (s *Session) DueCount() int {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.cards {
		if c.Due(now) {
			n++
		}
	}
	return n
}

// Rate applies a rating to the card with the given ID and persists the
// result. The rating must be valid for the configured model; invalid
// ratings return ErrInvalidRating.
func (s *Session) Rate(id string, r sm2.Rating) (domain.Card, error) {
	if !s.sched.ValidRating(r) {
		return domain.Card{}, sm2.ErrInvalidRating
	}
	now := s.clock()

	s.mu.Lock()
	for i := range s.cards {
		if s.cards[i].ID != id {
			continue
		}
		s.cards[i] = s.sched.Review(s.cards[i], r, now)
		updated := s.cards[i]
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.persist(snap)
		return updated, nil
	}
	s.mu.Unlock()
	return domain.Card{}, ErrNotFound
}

// AdvanceDay shifts every card's due date one day into the past, leaving
// interval, repetitions and ease untouched. Each call shifts a further day.
func (s *Session) AdvanceDay() {
	s.mu.Lock()
	for i := range s.cards {
		s.cards[i].DueAt = s.cards[i].DueAt.Add(-24 * time.Hour)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.persist(snap)
}

// Add appends a card to the collection and persists.
func (s *Session) Add(card domain.Card) {
	s.mu.Lock()
	s.cards = append(s.cards, card)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.persist(snap)
}

// Remove deletes the card with the given ID. Returns ErrNotFound if it
// does not exist.
func (s *Session) Remove(id string) error {
	s.mu.Lock()
	for i := range s.cards {
		if s.cards[i].ID != id {
			continue
		}
		s.cards = append(s.cards[:i], s.cards[i+1:]...)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.persist(snap)
		return nil
	}
	s.mu.Unlock()
	return ErrNotFound
}

// Replace swaps the entire collection, used by import and deck sync.
func (s *Session) Replace(cards []domain.Card) {
	s.mu.Lock()
	s.cards = make([]domain.Card, len(cards))
	copy(s.cards, cards)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.persist(snap)
}

// persist enqueues a snapshot for the writer goroutine. If a snapshot is
// already pending it is replaced, which preserves last-write-wins in call
// order while keeping callers non-blocking.
func (s *Session) persist(snap []domain.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.queue <- snap:
			return
		default:
		}
		select {
		case <-s.queue: // discard the stale pending snapshot
		default:
		}
	}
}

func (s *Session) flushLoop() {
	for snap := range s.queue {
		if err := s.store.ReplaceAll(context.Background(), snap); err != nil {
			s.warnOnce.Do(func() {
				s.log.Warn("saving cards failed, changes this session may not be durable", "error", err)
			})
		}
	}
	close(s.done)
}

// Close flushes any pending write and stops the writer goroutine.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}
