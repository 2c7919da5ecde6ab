package errors

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeGameNameEmpty, codes.InvalidArgument},
		{CodeGameOwnerMissing, codes.InvalidArgument},
		{CodeQuestionNotInGame, codes.InvalidArgument},
		{CodeOptionNotInQuestion, codes.InvalidArgument},
		{CodeGameStatusDisallowsOp, codes.FailedPrecondition},
		{CodeGameRosterEmpty, codes.FailedPrecondition},
		{CodeJoinGrantExpired, codes.FailedPrecondition},
		{CodeActorNotOwner, codes.PermissionDenied},
		{CodeActorIsOwner, codes.PermissionDenied},
		{CodeActorNotPlayer, codes.PermissionDenied},
		{CodePlayerAlreadyJoined, codes.AlreadyExists},
		{CodeAnswerAlreadyRecorded, codes.AlreadyExists},
		{CodeNotFound, codes.NotFound},
		{CodeStorageUnavailable, codes.Unavailable},
		{CodeUnknown, codes.Internal},
		{Code("SOMETHING_NEW"), codes.Internal},
	}
	for _, tt := range tests {
		if got := tt.code.GRPCCode(); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeActorNotOwner, "only the owner can do this")
	if !errors.Is(err, New(CodeActorNotOwner, "different message")) {
		t.Fatal("errors with the same code should match")
	}
	if errors.Is(err, New(CodeActorIsOwner, "only the owner can do this")) {
		t.Fatal("errors with different codes should not match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk i/o error")
	err := Wrap(CodeStorageUnavailable, "persist game", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause lost from chain")
	}
	if err.Error() != "persist game" {
		t.Fatalf("got message %q, want persist game", err.Error())
	}
}

func TestLocalizedMessage(t *testing.T) {
	err := New(CodeGameRosterEmpty, "game has no players")
	if got := err.LocalizedMessage("en-US"); got != "The game needs at least one player before it can start." {
		t.Fatalf("unexpected en-US message: %q", got)
	}
	if got := err.LocalizedMessage("pt-BR"); got == "" || got == string(CodeGameRosterEmpty) {
		t.Fatalf("pt-BR message missing: %q", got)
	}
	// Unsupported locales fall back to en-US.
	if got := err.LocalizedMessage("fr-FR"); got != err.LocalizedMessage("en-US") {
		t.Fatalf("fallback broken: %q", got)
	}
}

func TestToGRPCStatus(t *testing.T) {
	err := WithMetadata(CodeNotFound, "game not found", map[string]string{"GameID": "game-1"})

	st, ok := status.FromError(err.ToGRPCStatus("en-US"))
	if !ok {
		t.Fatal("not a grpc status")
	}
	if st.Code() != codes.NotFound {
		t.Fatalf("got code %v, want NotFound", st.Code())
	}
	if st.Message() != "game not found" {
		t.Fatalf("got message %q, want internal message", st.Message())
	}

	var info *errdetails.ErrorInfo
	var localized *errdetails.LocalizedMessage
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			info = d
		case *errdetails.LocalizedMessage:
			localized = d
		}
	}
	if info == nil {
		t.Fatal("missing ErrorInfo detail")
	}
	if info.Reason != string(CodeNotFound) || info.Domain != Domain {
		t.Fatalf("unexpected ErrorInfo: %+v", info)
	}
	if info.Metadata["GameID"] != "game-1" {
		t.Fatalf("metadata lost: %+v", info.Metadata)
	}
	if localized == nil {
		t.Fatal("missing LocalizedMessage detail")
	}
	if localized.Locale != "en-US" {
		t.Fatalf("got locale %q, want en-US", localized.Locale)
	}
}
