package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeGameNameEmpty               = "GAME_NAME_EMPTY"
	CodeGameOwnerMissing            = "GAME_OWNER_MISSING"
	CodeGameInvalidStatusTransition = "GAME_INVALID_STATUS_TRANSITION"
	CodeGameStatusDisallowsOp       = "GAME_STATUS_DISALLOWS_OPERATION"
	CodeGameRosterEmpty             = "GAME_ROSTER_EMPTY"
	CodeActorNotOwner               = "ACTOR_NOT_OWNER"
	CodeActorIsOwner                = "ACTOR_IS_OWNER"
	CodeActorNotPlayer              = "ACTOR_NOT_PLAYER"
	CodePlayerAlreadyJoined         = "PLAYER_ALREADY_JOINED"
	CodeAnswerAlreadyRecorded       = "ANSWER_ALREADY_RECORDED"
	CodeQuestionNotInGame           = "QUESTION_NOT_IN_GAME"
	CodeOptionNotInQuestion         = "OPTION_NOT_IN_QUESTION"
	CodeJoinGrantInvalid            = "JOIN_GRANT_INVALID"
	CodeJoinGrantExpired            = "JOIN_GRANT_EXPIRED"
	CodeJoinGrantMismatch           = "JOIN_GRANT_MISMATCH"
	CodeNotFound                    = "NOT_FOUND"
	CodeStorageUnavailable          = "STORAGE_UNAVAILABLE"
)

var messagesEnUS = map[string]string{
	CodeGameNameEmpty:               "Game name is required.",
	CodeGameOwnerMissing:            "Game owner is required.",
	CodeGameInvalidStatusTransition: "The game cannot move to that state.",
	CodeGameStatusDisallowsOp:       "The game is not in the right state for this action.",
	CodeGameRosterEmpty:             "The game needs at least one player before it can start.",
	CodeActorNotOwner:               "Only the game owner can do this.",
	CodeActorIsOwner:                "The game owner cannot do this.",
	CodeActorNotPlayer:              "You are not a player in this game.",
	CodePlayerAlreadyJoined:         "This player has already joined the game.",
	CodeAnswerAlreadyRecorded:       "An answer for this question was already recorded.",
	CodeQuestionNotInGame:           "That question does not belong to this game.",
	CodeOptionNotInQuestion:         "That option does not belong to this question.",
	CodeJoinGrantInvalid:            "The join grant is invalid.",
	CodeJoinGrantExpired:            "The join grant has expired.",
	CodeJoinGrantMismatch:           "The join grant does not match{{if .Field}} ({{.Field}}){{end}}.",
	CodeNotFound:                    "Not found.",
	CodeStorageUnavailable:          "The service is temporarily unavailable. Please try again.",
}
