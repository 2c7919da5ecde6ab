// Package domain holds the quiz game entities and their validation rules.
package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/quizroom/internal/platform/errors"
	"github.com/louisbranch/quizroom/internal/platform/id"
)

// Status is the lifecycle state of a game.
type Status int

const (
	// StatusUnspecified represents an invalid status value.
	StatusUnspecified Status = iota
	// StatusWaiting indicates the game is collecting players.
	StatusWaiting
	// StatusStarted indicates the quiz is in progress.
	StatusStarted
	// StatusEnded indicates the game reached its terminal state.
	StatusEnded
)

// String returns the canonical name of the status.
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "WAITING"
	case StatusStarted:
		return "STARTED"
	case StatusEnded:
		return "ENDED"
	default:
		return "UNSPECIFIED"
	}
}

// StatusFromString parses a canonical status name.
func StatusFromString(value string) Status {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "WAITING":
		return StatusWaiting
	case "STARTED":
		return StatusStarted
	case "ENDED":
		return StatusEnded
	default:
		return StatusUnspecified
	}
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
// Status only ever advances: WAITING -> STARTED -> ENDED, with
// WAITING -> ENDED as the owner-cancel path. Nothing moves backward.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusWaiting:
		return next == StatusStarted || next == StatusEnded
	case StatusStarted:
		return next == StatusEnded
	default:
		return false
	}
}

var (
	// ErrEmptyName indicates a missing game name.
	ErrEmptyName = apperrors.New(apperrors.CodeGameNameEmpty, "game name is required")
	// ErrOwnerMissing indicates a missing owner user id.
	ErrOwnerMissing = apperrors.New(apperrors.CodeGameOwnerMissing, "game owner is required")
)

// Game represents one hosted quiz instance.
type Game struct {
	ID          string
	Name        string
	OwnerUserID string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateGameInput describes the metadata needed to create a game.
type CreateGameInput struct {
	Name        string
	OwnerUserID string
}

// CreateGame creates a new game in WAITING with a generated ID and timestamps.
func CreateGame(input CreateGameInput, now func() time.Time, idGenerator func() (string, error)) (Game, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateGameInput(input)
	if err != nil {
		return Game{}, err
	}

	gameID, err := idGenerator()
	if err != nil {
		return Game{}, fmt.Errorf("generate game id: %w", err)
	}

	createdAt := now().UTC()
	return Game{
		ID:          gameID,
		Name:        normalized.Name,
		OwnerUserID: normalized.OwnerUserID,
		Status:      StatusWaiting,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NormalizeCreateGameInput trims and validates game input metadata.
func NormalizeCreateGameInput(input CreateGameInput) (CreateGameInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.OwnerUserID = strings.TrimSpace(input.OwnerUserID)
	if input.Name == "" {
		return CreateGameInput{}, ErrEmptyName
	}
	if input.OwnerUserID == "" {
		return CreateGameInput{}, ErrOwnerMissing
	}
	return input, nil
}
