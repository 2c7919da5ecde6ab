// Package storage defines the durable store contracts consumed by the
// game-session coordinator. The store is the system of record; every
// mutation flows through a game session, but read-only surfaces may query
// the store directly.
package storage

import (
	"context"
	"errors"

	"github.com/louisbranch/quizroom/internal/quiz/domain"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness conflict on write.
	ErrAlreadyExists = errors.New("record already exists")
)

// GamePage is one page of game records.
type GamePage struct {
	Games         []domain.Game
	NextPageToken string
}

// GameStore persists game metadata and lifecycle status.
type GameStore interface {
	CreateGame(ctx context.Context, game domain.Game) error
	GetGame(ctx context.Context, gameID string) (domain.Game, error)
	ListGames(ctx context.Context, pageSize int, pageToken string) (GamePage, error)
	// UpdateGameStatus persists a lifecycle transition. The caller is
	// responsible for transition legality; the store only records it.
	UpdateGameStatus(ctx context.Context, gameID string, status domain.Status) error
	DeleteGame(ctx context.Context, gameID string) error
}

// PlayerStore persists roster membership and scores.
type PlayerStore interface {
	// CreatePlayer returns ErrAlreadyExists when the (game, user) pair
	// already holds a roster entry.
	CreatePlayer(ctx context.Context, player domain.Player) error
	GetPlayer(ctx context.Context, gameID, userID string) (domain.Player, error)
	ListPlayers(ctx context.Context, gameID string) ([]domain.Player, error)
	DeletePlayer(ctx context.Context, gameID, userID string) error
}

// QuestionStore persists quiz content. Creation is used by seeding and
// tests only; the coordinator never authors content.
type QuestionStore interface {
	CreateQuestion(ctx context.Context, question domain.Question) error
	CreateOption(ctx context.Context, option domain.Option) error
	// ListQuestionsOrdered returns a game's questions in creation order.
	ListQuestionsOrdered(ctx context.Context, gameID string) ([]domain.Question, error)
	GetOptionsForQuestion(ctx context.Context, questionID string) ([]domain.Option, error)
}

// AnswerStore persists accepted submissions.
type AnswerStore interface {
	FindAnswer(ctx context.Context, userID, questionID string) (domain.Answer, error)
	ListAnswersForGame(ctx context.Context, gameID string) ([]domain.Answer, error)
	// RecordAnswer atomically inserts the answer and, when correct is
	// true, increments the player's score by one, returning the new
	// score. A duplicate (user, question) pair returns ErrAlreadyExists
	// with no partial effect.
	RecordAnswer(ctx context.Context, answer domain.Answer, correct bool) (newScore int, err error)
}

// Stores bundles the store contracts a game session depends on.
type Stores struct {
	Games     GameStore
	Players   PlayerStore
	Questions QuestionStore
	Answers   AnswerStore
}
