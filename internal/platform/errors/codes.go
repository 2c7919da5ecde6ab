// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Game errors
	CodeGameNameEmpty               Code = "GAME_NAME_EMPTY"
	CodeGameOwnerMissing            Code = "GAME_OWNER_MISSING"
	CodeGameInvalidStatusTransition Code = "GAME_INVALID_STATUS_TRANSITION"
	CodeGameStatusDisallowsOp       Code = "GAME_STATUS_DISALLOWS_OPERATION"
	CodeGameRosterEmpty             Code = "GAME_ROSTER_EMPTY"

	// Actor errors
	CodeActorNotOwner  Code = "ACTOR_NOT_OWNER"
	CodeActorIsOwner   Code = "ACTOR_IS_OWNER"
	CodeActorNotPlayer Code = "ACTOR_NOT_PLAYER"

	// Roster errors
	CodePlayerAlreadyJoined Code = "PLAYER_ALREADY_JOINED"

	// Answer errors
	CodeAnswerAlreadyRecorded Code = "ANSWER_ALREADY_RECORDED"
	CodeQuestionNotInGame     Code = "QUESTION_NOT_IN_GAME"
	CodeOptionNotInQuestion   Code = "OPTION_NOT_IN_QUESTION"

	// Join grant errors
	CodeJoinGrantInvalid  Code = "JOIN_GRANT_INVALID"
	CodeJoinGrantExpired  Code = "JOIN_GRANT_EXPIRED"
	CodeJoinGrantMismatch Code = "JOIN_GRANT_MISMATCH"

	// Storage errors
	CodeNotFound           Code = "NOT_FOUND"
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeGameNameEmpty,
		CodeGameOwnerMissing,
		CodeQuestionNotInGame,
		CodeOptionNotInQuestion,
		CodeJoinGrantInvalid,
		CodeJoinGrantMismatch:
		return codes.InvalidArgument

	// FailedPrecondition - lifecycle state doesn't allow the operation
	case CodeGameInvalidStatusTransition,
		CodeGameStatusDisallowsOp,
		CodeGameRosterEmpty,
		CodeJoinGrantExpired:
		return codes.FailedPrecondition

	// PermissionDenied - caller lacks the required role
	case CodeActorNotOwner,
		CodeActorIsOwner,
		CodeActorNotPlayer:
		return codes.PermissionDenied

	// AlreadyExists - duplicate join or duplicate answer
	case CodePlayerAlreadyJoined,
		CodeAnswerAlreadyRecorded:
		return codes.AlreadyExists

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// Unavailable - transient storage outage, safe for the caller to retry
	case CodeStorageUnavailable:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}
