// Package session implements the game-session coordinator: the in-memory
// session that owns one game's lifecycle, roster, and answer protocol, and
// the registry that maps game IDs to live sessions.
//
// A session is a reconstructible cache over durable storage. All mutating
// operations on one game are serialized by the session mutex; the lock is
// held across the in-memory transition and the durable write only, never
// across event delivery.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/louisbranch/quizroom/internal/platform/errors"
	"github.com/louisbranch/quizroom/internal/platform/timeouts"
	"github.com/louisbranch/quizroom/internal/quiz/domain"
	"github.com/louisbranch/quizroom/internal/quiz/event"
	"github.com/louisbranch/quizroom/internal/quiz/pubsub"
	"github.com/louisbranch/quizroom/internal/quiz/storage"
)

// Session owns one game's live state. All exported methods are safe for
// concurrent use; operations on different sessions never contend.
type Session struct {
	gameID  string
	stores  storage.Stores
	queue   *pubsub.Queue
	clock   func() time.Time
	idGen   func() (string, error)
	onEnded func(*Session)

	mu                sync.Mutex
	game              domain.Game
	roster            map[string]domain.Player
	questions         []domain.Question
	optionsByQuestion map[string][]domain.Option
	answered          map[string]map[string]struct{}
	cursors           map[string]int
	lastTouched       time.Time
	deleted           bool
}

// SubmitAnswerResult reports the outcome of one accepted submission.
type SubmitAnswerResult struct {
	Accepted  bool
	IsCorrect bool
	NewScore  int
	// Completed reports whether the submitting player has now answered
	// every question. Completion never ends the game by itself.
	Completed bool
}

// GameID returns the game this session coordinates.
func (s *Session) GameID() string {
	return s.gameID
}

// Game returns a snapshot of the cached game record.
func (s *Session) Game() domain.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game
}

// Roster returns a snapshot of the current players.
func (s *Session) Roster() []domain.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	players := make([]domain.Player, 0, len(s.roster))
	for _, player := range s.roster {
		players = append(players, player)
	}
	return players
}

// Close drains and stops the session's event queue.
func (s *Session) Close() {
	s.queue.Close()
}

func (s *Session) touch() {
	s.lastTouched = s.clock().UTC()
}

// guardLocked rejects operations on a session whose game was deleted out
// from under it. Callers hold s.mu.
func (s *Session) guardLocked() error {
	if s.deleted {
		return apperrors.WithMetadata(apperrors.CodeNotFound, "game not found",
			map[string]string{"GameID": s.gameID})
	}
	return nil
}

// idleSince reports whether no operation touched the session within d.
func (s *Session) idleSince(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock().UTC().Sub(s.lastTouched) >= d
}

func storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeouts.StorageWrite)
}

// storeErr maps storage failures that are not handled explicitly to the
// retryable Unavailable kind; the durable write aborted, so the caller
// may safely retry.
func storeErr(op string, err error) *apperrors.Error {
	return apperrors.Wrap(apperrors.CodeStorageUnavailable, op, err)
}

// RequestJoin asks the game owner to admit requesterID. The roster is not
// mutated; the owner is notified on their user channel.
func (s *Session) RequestJoin(ctx context.Context, requesterID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.game.Status != domain.StatusWaiting {
		return apperrors.WithMetadata(apperrors.CodeGameStatusDisallowsOp,
			"join requests are only accepted while waiting",
			map[string]string{"Status": s.game.Status.String()})
	}
	if requesterID == s.game.OwnerUserID {
		return apperrors.New(apperrors.CodeActorIsOwner, "owner cannot join their own game")
	}
	if _, ok := s.roster[requesterID]; ok {
		return apperrors.New(apperrors.CodePlayerAlreadyJoined, "requester is already a player")
	}

	s.queue.Enqueue(event.UserChannel(s.game.OwnerUserID), event.NameJoinRequest, event.JoinRequest{
		GameID:      s.gameID,
		RequesterID: requesterID,
	})
	return nil
}

// AcceptJoin admits requesterID into the roster. Only the owner decides.
func (s *Session) AcceptJoin(ctx context.Context, deciderID, requesterID string) (domain.Player, error) {
	if err := ctx.Err(); err != nil {
		return domain.Player{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.guardLocked(); err != nil {
		return domain.Player{}, err
	}
	if s.game.Status != domain.StatusWaiting {
		return domain.Player{}, apperrors.WithMetadata(apperrors.CodeGameStatusDisallowsOp,
			"players can only be admitted while waiting",
			map[string]string{"Status": s.game.Status.String()})
	}
	if deciderID != s.game.OwnerUserID {
		return domain.Player{}, apperrors.New(apperrors.CodeActorNotOwner, "only the owner can accept join requests")
	}
	return s.admitLocked(ctx, requesterID)
}

// AdmitWithGrant admits userID on the strength of an already-validated
// join grant, skipping the owner decision.
func (s *Session) AdmitWithGrant(ctx context.Context, userID string) (domain.Player, error) {
	if err := ctx.Err(); err != nil {
		return domain.Player{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.guardLocked(); err != nil {
		return domain.Player{}, err
	}
	if s.game.Status != domain.StatusWaiting {
		return domain.Player{}, apperrors.WithMetadata(apperrors.CodeGameStatusDisallowsOp,
			"players can only be admitted while waiting",
			map[string]string{"Status": s.game.Status.String()})
	}
	return s.admitLocked(ctx, userID)
}

// admitLocked creates the player record and publishes admission events.
// Callers hold s.mu and have validated lifecycle state and authority.
func (s *Session) admitLocked(ctx context.Context, userID string) (domain.Player, error) {
	if userID == s.game.OwnerUserID {
		return domain.Player{}, apperrors.New(apperrors.CodeActorIsOwner, "owner is never a player")
	}
	if _, ok := s.roster[userID]; ok {
		return domain.Player{}, apperrors.New(apperrors.CodePlayerAlreadyJoined, "user is already a player")
	}

	player := domain.NewPlayer(s.gameID, userID, s.clock)
	writeCtx, cancel := storeCtx(ctx)
	defer cancel()
	if err := s.stores.Players.CreatePlayer(writeCtx, player); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return domain.Player{}, apperrors.New(apperrors.CodePlayerAlreadyJoined, "user is already a player")
		}
		return domain.Player{}, storeErr("persist player", err)
	}
	s.roster[userID] = player

	s.queue.Enqueue(event.GameChannel(s.gameID), event.NamePlayerJoined, event.PlayerJoined{
		Player: playerPayload(player),
	})
	s.queue.Enqueue(event.UserChannel(userID), event.NameJoinAccepted, event.JoinAccepted{
		GameID: s.gameID,
	})
	return player, nil
}

// Start transitions the game to STARTED and points every player's cursor
// at the first question in creation order.
func (s *Session) Start(ctx context.Context, callerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.game.Status != domain.StatusWaiting {
		return apperrors.WithMetadata(apperrors.CodeGameStatusDisallowsOp,
			"game can only start from waiting",
			map[string]string{"Status": s.game.Status.String()})
	}
	if callerID != s.game.OwnerUserID {
		return apperrors.New(apperrors.CodeActorNotOwner, "only the owner can start the game")
	}
	if len(s.roster) == 0 {
		return apperrors.New(apperrors.CodeGameRosterEmpty, "game has no players")
	}

	loadCtx, cancel := storeCtx(ctx)
	defer cancel()
	questions, options, err := loadContent(loadCtx, s.stores.Questions, s.gameID)
	if err != nil {
		return storeErr("load questions", err)
	}

	writeCtx, cancelWrite := storeCtx(ctx)
	defer cancelWrite()
	if err := s.stores.Games.UpdateGameStatus(writeCtx, s.gameID, domain.StatusStarted); err != nil {
		return storeErr("persist game status", err)
	}

	s.game.Status = domain.StatusStarted
	s.game.UpdatedAt = s.clock().UTC()
	s.questions = questions
	s.optionsByQuestion = options
	s.answered = make(map[string]map[string]struct{}, len(s.roster))
	s.cursors = make(map[string]int, len(s.roster))
	for userID := range s.roster {
		s.answered[userID] = make(map[string]struct{})
		s.cursors[userID] = 0
	}

	s.queue.Enqueue(event.GameChannel(s.gameID), event.NameGameStarted, event.GameStarted{})
	return nil
}

// SubmitAnswer validates and applies one submission. The precondition
// checks run in a fixed order and each failure is a distinct kind; a
// rejected submission leaves no state behind.
func (s *Session) SubmitAnswer(ctx context.Context, userID, questionID, optionID string) (SubmitAnswerResult, error) {
	if err := ctx.Err(); err != nil {
		return SubmitAnswerResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.guardLocked(); err != nil {
		return SubmitAnswerResult{}, err
	}
	if s.game.Status != domain.StatusStarted {
		return SubmitAnswerResult{}, apperrors.WithMetadata(apperrors.CodeGameStatusDisallowsOp,
			"answers are only accepted while started",
			map[string]string{"Status": s.game.Status.String()})
	}
	if _, ok := s.roster[userID]; !ok {
		return SubmitAnswerResult{}, apperrors.New(apperrors.CodeActorNotPlayer, "user is not a player in this game")
	}

	var question *domain.Question
	for i := range s.questions {
		if s.questions[i].ID == questionID {
			question = &s.questions[i]
			break
		}
	}
	if question == nil {
		return SubmitAnswerResult{}, apperrors.New(apperrors.CodeQuestionNotInGame, "question does not belong to this game")
	}

	var option *domain.Option
	for _, candidate := range s.optionsByQuestion[questionID] {
		if candidate.ID == optionID {
			opt := candidate
			option = &opt
			break
		}
	}
	if option == nil {
		return SubmitAnswerResult{}, apperrors.New(apperrors.CodeOptionNotInQuestion, "option does not belong to this question")
	}

	if _, dup := s.answered[userID][questionID]; dup {
		return SubmitAnswerResult{}, apperrors.New(apperrors.CodeAnswerAlreadyRecorded, "answer already recorded for this question")
	}

	answer, err := domain.NewAnswer(s.gameID, userID, questionID, optionID, s.clock, s.idGen)
	if err != nil {
		return SubmitAnswerResult{}, storeErr("create answer", err)
	}

	// The insert and score increment commit as one transaction; the
	// unique index on (user, question) backs the in-memory check above.
	writeCtx, cancel := storeCtx(ctx)
	defer cancel()
	newScore, err := s.stores.Answers.RecordAnswer(writeCtx, answer, option.Correct)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return SubmitAnswerResult{}, apperrors.New(apperrors.CodeAnswerAlreadyRecorded, "answer already recorded for this question")
		}
		return SubmitAnswerResult{}, storeErr("persist answer", err)
	}

	s.answered[userID][questionID] = struct{}{}
	player := s.roster[userID]
	player.Score = newScore
	s.roster[userID] = player
	s.advanceCursorLocked(userID)

	s.queue.Enqueue(event.GameChannel(s.gameID), event.NamePlayerAnswered, event.PlayerAnswered{
		UserID:     userID,
		QuestionID: questionID,
		IsCorrect:  option.Correct,
		NewScore:   newScore,
	})

	return SubmitAnswerResult{
		Accepted:  true,
		IsCorrect: option.Correct,
		NewScore:  newScore,
		Completed: s.cursors[userID] >= len(s.questions),
	}, nil
}

// advanceCursorLocked moves the user's cursor to the next unanswered
// question in fixed order.
func (s *Session) advanceCursorLocked(userID string) {
	cursor := s.cursors[userID]
	for cursor < len(s.questions) {
		if _, done := s.answered[userID][s.questions[cursor].ID]; !done {
			break
		}
		cursor++
	}
	s.cursors[userID] = cursor
}

// CurrentQuestion returns the question at the user's cursor, or false when
// the user has answered everything (or the game has not started).
func (s *Session) CurrentQuestion(userID string) (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game.Status != domain.StatusStarted {
		return domain.Question{}, false
	}
	cursor, ok := s.cursors[userID]
	if !ok || cursor >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[cursor], true
}

// Leave removes userID from the roster. The owner cannot leave; recorded
// answers are retained for history. Other players' progress is unaffected.
func (s *Session) Leave(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.game.Status != domain.StatusWaiting && s.game.Status != domain.StatusStarted {
		return apperrors.WithMetadata(apperrors.CodeGameStatusDisallowsOp,
			"game is already over",
			map[string]string{"Status": s.game.Status.String()})
	}
	if userID == s.game.OwnerUserID {
		return apperrors.New(apperrors.CodeActorIsOwner, "owner cannot leave their own game")
	}
	if _, ok := s.roster[userID]; !ok {
		return apperrors.New(apperrors.CodeActorNotPlayer, "user is not a player in this game")
	}

	writeCtx, cancel := storeCtx(ctx)
	defer cancel()
	if err := s.stores.Players.DeletePlayer(writeCtx, s.gameID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.New(apperrors.CodeActorNotPlayer, "user is not a player in this game")
		}
		return storeErr("delete player", err)
	}
	delete(s.roster, userID)
	delete(s.cursors, userID)
	delete(s.answered, userID)

	s.queue.Enqueue(event.GameChannel(s.gameID), event.NamePlayerLeft, event.PlayerLeft{UserID: userID})
	return nil
}

// End transitions the game to its terminal state, regardless of whether
// individual players have finished, and schedules registry eviction.
func (s *Session) End(ctx context.Context, callerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.touch()

	if err := s.guardLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if !s.game.Status.CanTransitionTo(domain.StatusEnded) {
		status := s.game.Status
		s.mu.Unlock()
		return apperrors.WithMetadata(apperrors.CodeGameStatusDisallowsOp,
			"game is already over",
			map[string]string{"Status": status.String()})
	}
	if callerID != s.game.OwnerUserID {
		s.mu.Unlock()
		return apperrors.New(apperrors.CodeActorNotOwner, "only the owner can end the game")
	}

	writeCtx, cancel := storeCtx(ctx)
	err := s.stores.Games.UpdateGameStatus(writeCtx, s.gameID, domain.StatusEnded)
	cancel()
	if err != nil {
		s.mu.Unlock()
		return storeErr("persist game status", err)
	}

	s.game.Status = domain.StatusEnded
	s.game.UpdatedAt = s.clock().UTC()
	s.queue.Enqueue(event.GameChannel(s.gameID), event.NameGameEnded, event.GameEnded{})
	onEnded := s.onEnded
	s.mu.Unlock()

	if onEnded != nil {
		onEnded(s)
	}
	return nil
}

// Delete removes the game and everything hanging off it. Running games
// must be ended first. The caller is responsible for dropping the session
// from the registry and for announcing the deletion on the lobby channel;
// this session's own queue may already be closed by eviction, so the
// broadcast cannot ride on it.
func (s *Session) Delete(ctx context.Context, callerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.guardLocked(); err != nil {
		return err
	}
	if s.game.Status == domain.StatusStarted {
		return apperrors.WithMetadata(apperrors.CodeGameStatusDisallowsOp,
			"running games must be ended before deletion",
			map[string]string{"Status": s.game.Status.String()})
	}
	if callerID != s.game.OwnerUserID {
		return apperrors.New(apperrors.CodeActorNotOwner, "only the owner can delete the game")
	}

	writeCtx, cancel := storeCtx(ctx)
	defer cancel()
	if err := s.stores.Games.DeleteGame(writeCtx, s.gameID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.deleted = true
			return apperrors.WithMetadata(apperrors.CodeNotFound, "game not found",
				map[string]string{"GameID": s.gameID})
		}
		return storeErr("delete game", err)
	}
	s.deleted = true
	return nil
}

func playerPayload(player domain.Player) event.PlayerPayload {
	return event.PlayerPayload{
		UserID:   player.UserID,
		GameID:   player.GameID,
		Score:    player.Score,
		JoinedAt: player.JoinedAt,
	}
}

func loadContent(ctx context.Context, store storage.QuestionStore, gameID string) ([]domain.Question, map[string][]domain.Option, error) {
	questions, err := store.ListQuestionsOrdered(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	options := make(map[string][]domain.Option, len(questions))
	for _, question := range questions {
		opts, err := store.GetOptionsForQuestion(ctx, question.ID)
		if err != nil {
			return nil, nil, err
		}
		options[question.ID] = opts
	}
	return questions, options, nil
}
