package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	apperrors "github.com/louisbranch/quizroom/internal/platform/errors"
	"github.com/louisbranch/quizroom/internal/platform/id"
	"github.com/louisbranch/quizroom/internal/platform/timeouts"
	"github.com/louisbranch/quizroom/internal/quiz/domain"
	"github.com/louisbranch/quizroom/internal/quiz/pubsub"
	"github.com/louisbranch/quizroom/internal/quiz/storage"
)

// Registry maps game IDs to live sessions. At most one session exists per
// game at any time; concurrent lookups for the same game share a single
// hydration and receive the same session.
type Registry struct {
	stores    storage.Stores
	publisher pubsub.Publisher
	clock     func() time.Time
	idGen     func() (string, error)
	grace     time.Duration

	mu      sync.Mutex
	entries map[string]*registryEntry
}

// registryEntry is the singleflight slot for one game. The creator hydrates
// outside the registry lock and closes ready when the outcome is known;
// waiters block on ready without holding the lock.
type registryEntry struct {
	ready   chan struct{}
	session *Session
	err     error
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithClock injects the registry's time source.
func WithClock(clock func() time.Time) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

// WithIDGenerator injects the registry's ID source.
func WithIDGenerator(gen func() (string, error)) RegistryOption {
	return func(r *Registry) { r.idGen = gen }
}

// WithEvictionGrace overrides how long an ended session lingers before
// eviction.
func WithEvictionGrace(grace time.Duration) RegistryOption {
	return func(r *Registry) { r.grace = grace }
}

// NewRegistry builds a registry over the given stores and event publisher.
func NewRegistry(stores storage.Stores, publisher pubsub.Publisher, opts ...RegistryOption) *Registry {
	r := &Registry{
		stores:    stores,
		publisher: publisher,
		clock:     time.Now,
		idGen:     id.NewID,
		grace:     timeouts.SessionGrace,
		entries:   make(map[string]*registryEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the live session for gameID, hydrating it from
// storage on first access. A missing game is a not-found error; a failed
// hydration leaves no entry behind, so a later call retries cleanly.
func (r *Registry) GetOrCreate(ctx context.Context, gameID string) (*Session, error) {
	r.mu.Lock()
	if e, ok := r.entries[gameID]; ok {
		r.mu.Unlock()
		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.err != nil {
			return nil, e.err
		}
		return e.session, nil
	}
	e := &registryEntry{ready: make(chan struct{})}
	r.entries[gameID] = e
	r.mu.Unlock()

	s, err := r.hydrate(ctx, gameID)
	if err != nil {
		r.mu.Lock()
		if r.entries[gameID] == e {
			delete(r.entries, gameID)
		}
		r.mu.Unlock()
		e.err = err
		close(e.ready)
		return nil, err
	}
	e.session = s
	close(e.ready)

	// A game hydrated in its terminal state is only read from; let it
	// age out like any other ended session.
	if s.Game().Status == domain.StatusEnded {
		r.scheduleEvict(s)
	}
	return s, nil
}

// Remove drops the registered session for gameID, but only when it still
// is s; a session recreated after eviction is never removed by a stale
// timer.
func (r *Registry) Remove(gameID string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[gameID]
	if !ok || e.session != s {
		return false
	}
	delete(r.entries, gameID)
	return true
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close evicts every session, draining their event queues.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := make([]*registryEntry, 0, len(r.entries))
	for gameID, e := range r.entries {
		entries = append(entries, e)
		delete(r.entries, gameID)
	}
	r.mu.Unlock()

	for _, e := range entries {
		<-e.ready
		if e.session != nil {
			e.session.Close()
		}
	}
}

// hydrate reconstructs a session from durable storage. Roster is always
// loaded; question content and recorded answers only matter once the game
// has started.
func (r *Registry) hydrate(ctx context.Context, gameID string) (*Session, error) {
	loadCtx, cancel := context.WithTimeout(ctx, timeouts.StorageWrite)
	defer cancel()

	game, err := r.stores.Games.GetGame(loadCtx, gameID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.WithMetadata(apperrors.CodeNotFound, "game not found",
				map[string]string{"GameID": gameID})
		}
		return nil, storeErr("load game", err)
	}

	players, err := r.stores.Players.ListPlayers(loadCtx, gameID)
	if err != nil {
		return nil, storeErr("load players", err)
	}
	roster := make(map[string]domain.Player, len(players))
	for _, player := range players {
		roster[player.UserID] = player
	}

	s := &Session{
		gameID:      gameID,
		stores:      r.stores,
		queue:       pubsub.NewQueue(r.publisher),
		clock:       r.clock,
		idGen:       r.idGen,
		onEnded:     r.scheduleEvict,
		game:        game,
		roster:      roster,
		lastTouched: r.clock().UTC(),
	}

	if game.Status == domain.StatusStarted {
		questions, options, err := loadContent(loadCtx, r.stores.Questions, gameID)
		if err != nil {
			s.queue.Close()
			return nil, storeErr("load questions", err)
		}
		answers, err := r.stores.Answers.ListAnswersForGame(loadCtx, gameID)
		if err != nil {
			s.queue.Close()
			return nil, storeErr("load answers", err)
		}
		s.questions = questions
		s.optionsByQuestion = options
		s.answered = make(map[string]map[string]struct{}, len(roster))
		s.cursors = make(map[string]int, len(roster))
		for userID := range roster {
			s.answered[userID] = make(map[string]struct{})
		}
		for _, answer := range answers {
			set, ok := s.answered[answer.UserID]
			if !ok {
				// Answers from a player who has since left stay on
				// record but carry no live cursor.
				continue
			}
			set[answer.QuestionID] = struct{}{}
		}
		for userID := range roster {
			s.advanceCursorLocked(userID)
		}
	}

	return s, nil
}

// scheduleEvict arms a one-shot timer that removes the session once it has
// been quiet for the grace period, rearming while reads keep touching it.
func (r *Registry) scheduleEvict(s *Session) {
	time.AfterFunc(r.grace, func() {
		if !s.idleSince(r.grace) {
			r.scheduleEvict(s)
			return
		}
		if r.Remove(s.GameID(), s) {
			log.Printf("session evicted game_id=%s", s.GameID())
			s.Close()
		}
	})
}
