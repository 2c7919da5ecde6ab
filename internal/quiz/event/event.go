// Package event defines the events a game session publishes and the
// channels they are delivered on.
package event

import "strings"

// Name identifies the kind of an event on the wire.
type Name string

// Lobby events, broadcast on the global games channel.
const (
	// NameGameCreated announces a new game to lobby listings.
	NameGameCreated Name = "game-created"
	// NameGameDeleted announces a game removal to lobby listings.
	NameGameDeleted Name = "game-deleted"
)

// Game-scoped events, broadcast on the game channel.
const (
	// NamePlayerJoined records a player being admitted to the roster.
	NamePlayerJoined Name = "player-joined"
	// NamePlayerLeft records a player leaving the roster.
	NamePlayerLeft Name = "player-left"
	// NameGameStarted records the WAITING -> STARTED transition.
	NameGameStarted Name = "game-started"
	// NamePlayerAnswered records an accepted answer submission.
	NamePlayerAnswered Name = "player-answered"
	// NameGameEnded records the transition to ENDED.
	NameGameEnded Name = "game-ended"
)

// User-scoped events, delivered on a single user's channel.
const (
	// NameJoinRequest notifies a game owner of a pending join request.
	NameJoinRequest Name = "join-request"
	// NameJoinAccepted notifies a requester that they were admitted.
	NameJoinAccepted Name = "join-accepted"
)

// IsValid reports whether the event name is usable.
func (n Name) IsValid() bool {
	return strings.TrimSpace(string(n)) != ""
}

// LobbyChannel carries game-created and game-deleted broadcasts.
const LobbyChannel = "games"

// GameChannel returns the channel carrying a single game's events.
func GameChannel(gameID string) string {
	return "game-" + gameID
}

// UserChannel returns the channel carrying one user's notifications.
func UserChannel(userID string) string {
	return "user-" + userID
}
