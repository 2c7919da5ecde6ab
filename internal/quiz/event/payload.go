package event

import "time"

// PlayerPayload is the roster entry shape carried by player events.
type PlayerPayload struct {
	UserID   string    `json:"user_id"`
	GameID   string    `json:"game_id"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// GamePayload is the game shape carried by lobby events.
type GamePayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	OwnerUserID string    `json:"owner_user_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// GameCreated is published on the lobby channel when a game is created.
type GameCreated struct {
	Game GamePayload `json:"game"`
}

// GameDeleted is published on the lobby channel when a game is removed.
type GameDeleted struct {
	GameID string `json:"game_id"`
}

// PlayerJoined is published on the game channel when a player is admitted.
type PlayerJoined struct {
	Player PlayerPayload `json:"player"`
}

// PlayerLeft is published on the game channel when a player leaves.
type PlayerLeft struct {
	UserID string `json:"user_id"`
}

// GameStarted is published on the game channel on the STARTED transition.
type GameStarted struct{}

// PlayerAnswered is published on the game channel for each accepted answer.
type PlayerAnswered struct {
	UserID     string `json:"user_id"`
	QuestionID string `json:"question_id"`
	IsCorrect  bool   `json:"is_correct"`
	NewScore   int    `json:"new_score"`
}

// GameEnded is published on the game channel on the ENDED transition.
type GameEnded struct{}

// JoinRequest is delivered on the owner's user channel when someone asks
// to join. Join requests are never persisted; the owner's decision is the
// only record that survives.
type JoinRequest struct {
	GameID      string `json:"game_id"`
	RequesterID string `json:"requester_id"`
}

// JoinAccepted is delivered on the requester's user channel once admitted.
type JoinAccepted struct {
	GameID string `json:"game_id"`
}
