package domain

import "time"

// Player is a non-owner user admitted into a game's roster.
// Identity is the (UserID, GameID) pair; at most one record exists per pair.
type Player struct {
	UserID   string
	GameID   string
	Score    int
	JoinedAt time.Time
}

// NewPlayer creates a roster entry with a zero score.
func NewPlayer(gameID, userID string, now func() time.Time) Player {
	if now == nil {
		now = time.Now
	}
	return Player{
		UserID:   userID,
		GameID:   gameID,
		Score:    0,
		JoinedAt: now().UTC(),
	}
}
