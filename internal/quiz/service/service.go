// Package service is the transport-agnostic inbound surface of the
// coordinator. It owns game creation and the read paths, validates join
// grants, and routes every per-game mutation through the session registry
// so that one game's operations stay serialized.
package service

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/louisbranch/quizroom/internal/platform/errors"
	"github.com/louisbranch/quizroom/internal/platform/id"
	"github.com/louisbranch/quizroom/internal/platform/timeouts"
	"github.com/louisbranch/quizroom/internal/quiz/domain"
	"github.com/louisbranch/quizroom/internal/quiz/event"
	"github.com/louisbranch/quizroom/internal/quiz/invite"
	"github.com/louisbranch/quizroom/internal/quiz/pubsub"
	"github.com/louisbranch/quizroom/internal/quiz/session"
	"github.com/louisbranch/quizroom/internal/quiz/storage"
)

// Service coordinates games, rosters, and answers over durable stores and
// an event publisher.
type Service struct {
	stores   storage.Stores
	registry *session.Registry
	lobby    *pubsub.Queue
	grants   invite.JoinGrantConfig
	clock    func() time.Time
	idGen    func() (string, error)
}

// Option customizes a Service.
type Option func(*Service)

// WithClock injects the service's time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithIDGenerator injects the service's ID source.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.idGen = gen }
}

// WithJoinGrants enables grant-based joining with the given config.
func WithJoinGrants(cfg invite.JoinGrantConfig) Option {
	return func(s *Service) { s.grants = cfg }
}

// New builds a Service. The registry shares the service's clock and ID
// generator so tests can pin both in one place.
func New(stores storage.Stores, publisher pubsub.Publisher, opts ...Option) *Service {
	s := &Service{
		stores: stores,
		lobby:  pubsub.NewQueue(publisher),
		clock:  time.Now,
		idGen:  id.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = session.NewRegistry(stores, publisher,
		session.WithClock(s.clock),
		session.WithIDGenerator(s.idGen),
	)
	return s
}

// Close drains the lobby queue and evicts every live session.
func (s *Service) Close() {
	s.registry.Close()
	s.lobby.Close()
}

// Registry exposes the session registry, mainly for tests and diagnostics.
func (s *Service) Registry() *session.Registry {
	return s.registry
}

// CreateGame persists a new game in WAITING and announces it to the lobby.
func (s *Service) CreateGame(ctx context.Context, input domain.CreateGameInput) (domain.Game, error) {
	game, err := domain.CreateGame(input, s.clock, s.idGen)
	if err != nil {
		return domain.Game{}, err
	}

	writeCtx, cancel := context.WithTimeout(ctx, timeouts.StorageWrite)
	defer cancel()
	if err := s.stores.Games.CreateGame(writeCtx, game); err != nil {
		return domain.Game{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "persist game", err)
	}

	s.lobby.Enqueue(event.LobbyChannel, event.NameGameCreated, event.GameCreated{
		Game: event.GamePayload{
			ID:          game.ID,
			Name:        game.Name,
			OwnerUserID: game.OwnerUserID,
			Status:      game.Status.String(),
			CreatedAt:   game.CreatedAt,
		},
	})
	return game, nil
}

// GetGame reads a game straight from the store; no session is hydrated.
func (s *Service) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	game, err := s.stores.Games.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Game{}, apperrors.WithMetadata(apperrors.CodeNotFound, "game not found",
				map[string]string{"GameID": gameID})
		}
		return domain.Game{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "load game", err)
	}
	return game, nil
}

// ListGames pages through games in creation order.
func (s *Service) ListGames(ctx context.Context, pageSize int, pageToken string) (storage.GamePage, error) {
	page, err := s.stores.Games.ListGames(ctx, pageSize, pageToken)
	if err != nil {
		return storage.GamePage{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "list games", err)
	}
	return page, nil
}

// ListPlayers returns a game's roster in join order.
func (s *Service) ListPlayers(ctx context.Context, gameID string) ([]domain.Player, error) {
	if _, err := s.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	players, err := s.stores.Players.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, "list players", err)
	}
	return players, nil
}

// RequestJoin notifies the game owner that userID wants in. Nothing is
// persisted; a request not yet accepted simply disappears on restart.
func (s *Service) RequestJoin(ctx context.Context, gameID, userID string) error {
	sess, err := s.registry.GetOrCreate(ctx, gameID)
	if err != nil {
		return err
	}
	return sess.RequestJoin(ctx, userID)
}

// AcceptJoin admits requesterID into the game on the owner's say-so.
func (s *Service) AcceptJoin(ctx context.Context, gameID, deciderID, requesterID string) (domain.Player, error) {
	sess, err := s.registry.GetOrCreate(ctx, gameID)
	if err != nil {
		return domain.Player{}, err
	}
	return sess.AcceptJoin(ctx, deciderID, requesterID)
}

// IssueJoinGrant mints a signed grant that lets userID join without a
// separate owner decision at redemption time.
func (s *Service) IssueJoinGrant(ctx context.Context, gameID, callerID, userID string) (string, error) {
	if !s.grants.Enabled() {
		return "", apperrors.New(apperrors.CodeJoinGrantInvalid, "join grants are not configured")
	}
	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return "", err
	}
	if callerID != game.OwnerUserID {
		return "", apperrors.New(apperrors.CodeActorNotOwner, "only the owner can issue join grants")
	}
	if game.Status != domain.StatusWaiting {
		return "", apperrors.WithMetadata(apperrors.CodeGameStatusDisallowsOp,
			"join grants are only issued while waiting",
			map[string]string{"Status": game.Status.String()})
	}
	return invite.IssueJoinGrant(gameID, userID, s.grants)
}

// JoinWithGrant validates the grant and admits its subject.
func (s *Service) JoinWithGrant(ctx context.Context, gameID, userID, grant string) (domain.Player, error) {
	if !s.grants.Enabled() {
		return domain.Player{}, apperrors.New(apperrors.CodeJoinGrantInvalid, "join grants are not configured")
	}
	if _, err := invite.ValidateJoinGrant(grant, invite.JoinGrantExpectation{
		GameID: gameID,
		UserID: userID,
	}, s.grants); err != nil {
		return domain.Player{}, err
	}
	sess, err := s.registry.GetOrCreate(ctx, gameID)
	if err != nil {
		return domain.Player{}, err
	}
	return sess.AdmitWithGrant(ctx, userID)
}

// StartGame moves a waiting game into play.
func (s *Service) StartGame(ctx context.Context, gameID, callerID string) error {
	sess, err := s.registry.GetOrCreate(ctx, gameID)
	if err != nil {
		return err
	}
	return sess.Start(ctx, callerID)
}

// SubmitAnswer applies one answer submission to a running game.
func (s *Service) SubmitAnswer(ctx context.Context, gameID, userID, questionID, optionID string) (session.SubmitAnswerResult, error) {
	sess, err := s.registry.GetOrCreate(ctx, gameID)
	if err != nil {
		return session.SubmitAnswerResult{}, err
	}
	return sess.SubmitAnswer(ctx, userID, questionID, optionID)
}

// LeaveGame removes userID from the roster.
func (s *Service) LeaveGame(ctx context.Context, gameID, userID string) error {
	sess, err := s.registry.GetOrCreate(ctx, gameID)
	if err != nil {
		return err
	}
	return sess.Leave(ctx, userID)
}

// EndGame terminates a game. Players keep their recorded scores.
func (s *Service) EndGame(ctx context.Context, gameID, callerID string) error {
	sess, err := s.registry.GetOrCreate(ctx, gameID)
	if err != nil {
		return err
	}
	return sess.End(ctx, callerID)
}

// DeleteGame removes a game and its dependent rows, then drops the live
// session so later lookups see not-found. The lobby broadcast goes out on
// the service's own queue: the session's queue may already have been
// closed by an eviction racing this call, which would silently drop the
// event.
func (s *Service) DeleteGame(ctx context.Context, gameID, callerID string) error {
	sess, err := s.registry.GetOrCreate(ctx, gameID)
	if err != nil {
		return err
	}
	if err := sess.Delete(ctx, callerID); err != nil {
		return err
	}
	s.lobby.Enqueue(event.LobbyChannel, event.NameGameDeleted, event.GameDeleted{GameID: gameID})
	if s.registry.Remove(gameID, sess) {
		sess.Close()
	}
	return nil
}
