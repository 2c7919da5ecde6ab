package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"unicode"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/louisbranch/quizroom/internal/platform/errors"
	"github.com/louisbranch/quizroom/internal/quiz/domain"
	"github.com/louisbranch/quizroom/internal/quiz/event"
	"github.com/louisbranch/quizroom/internal/quiz/service"
)

type createGamePayload struct {
	Name        string `json:"name"`
	OwnerUserID string `json:"owner_user_id"`
}

type gameRefPayload struct {
	GameID   string `json:"game_id"`
	CallerID string `json:"caller_id"`
}

type listGamesPayload struct {
	PageSize  int    `json:"page_size"`
	PageToken string `json:"page_token"`
}

type joinDecisionPayload struct {
	GameID      string `json:"game_id"`
	DeciderID   string `json:"decider_id"`
	RequesterID string `json:"requester_id"`
}

type joinGrantIssuePayload struct {
	GameID   string `json:"game_id"`
	CallerID string `json:"caller_id"`
	UserID   string `json:"user_id"`
}

type joinGrantRedeemPayload struct {
	GameID string `json:"game_id"`
	UserID string `json:"user_id"`
	Grant  string `json:"grant"`
}

type answerPayload struct {
	GameID     string `json:"game_id"`
	UserID     string `json:"user_id"`
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

type gamesPagePayload struct {
	Games         []event.GamePayload `json:"games"`
	NextPageToken string              `json:"next_page_token,omitempty"`
}

type playersPayload struct {
	Players []event.PlayerPayload `json:"players"`
}

type joinGrantPayload struct {
	GameID string `json:"game_id"`
	Grant  string `json:"grant"`
}

type answerResultPayload struct {
	Accepted  bool `json:"accepted"`
	IsCorrect bool `json:"is_correct"`
	NewScore  int  `json:"new_score"`
	Completed bool `json:"completed"`
}

func gamePayload(game domain.Game) event.GamePayload {
	return event.GamePayload{
		ID:          game.ID,
		Name:        game.Name,
		OwnerUserID: game.OwnerUserID,
		Status:      game.Status.String(),
		CreatedAt:   game.CreatedAt,
	}
}

func playerPayload(player domain.Player) event.PlayerPayload {
	return event.PlayerPayload{
		UserID:   player.UserID,
		GameID:   player.GameID,
		Score:    player.Score,
		JoinedAt: player.JoinedAt,
	}
}

// localeFromRequest extracts the first language range of the upgrade
// request's Accept-Language header; catalog matching resolves the rest.
func localeFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := r.Header.Get("Accept-Language")
	if i := strings.IndexAny(header, ",;"); i >= 0 {
		header = header[:i]
	}
	return strings.TrimSpace(header)
}

// codeLabel renders a gRPC code the way the frame protocol spells error
// codes: PermissionDenied -> PERMISSION_DENIED.
func codeLabel(code codes.Code) string {
	var b strings.Builder
	for i, r := range code.String() {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// writeCommandError maps a coordinator error onto the wire: the gRPC code
// and machine-readable reason from the status details, plus the message
// localized for the connection's locale. Internal messages stay in logs.
func writeCommandError(peer *wsPeer, frameType string, requestID string, err error, locale string) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(apperrors.CodeUnknown, "internal error", err)
	}
	log.Printf("ws command=%s code=%s err=%v", frameType, appErr.Code, appErr)

	st := status.Convert(appErr.ToGRPCStatus(locale))
	label := codeLabel(st.Code())
	reason := string(appErr.Code)
	message := appErr.Message
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			reason = d.GetReason()
		case *errdetails.LocalizedMessage:
			message = d.GetMessage()
		}
	}
	payload, marshalErr := json.Marshal(wsErrorEnvelope{Error: wsError{
		Code:    label,
		Reason:  reason,
		Message: message,
	}})
	if marshalErr != nil {
		return marshalErr
	}
	return peer.writeFrame(wsFrame{Type: "error", RequestID: requestID, Payload: payload})
}

// dispatchCommand routes one coordinator command frame. It reports false
// for frame types it does not recognize.
func dispatchCommand(ctx context.Context, svc *service.Service, peer *wsPeer, frame wsFrame, locale string) bool {
	switch frame.Type {
	case "quiz.create":
		var payload createGamePayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid create payload")
			return true
		}
		game, err := svc.CreateGame(ctx, domain.CreateGameInput{
			Name:        payload.Name,
			OwnerUserID: payload.OwnerUserID,
		})
		if err != nil {
			_ = writeCommandError(peer, frame.Type, frame.RequestID, err, locale)
			return true
		}
		writeAck(peer, "quiz.created", frame.RequestID, event.GameCreated{Game: gamePayload(game)})
	case "quiz.game.get":
		var payload gameRefPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid game payload")
			return true
		}
		game, err := svc.GetGame(ctx, payload.GameID)
		if err != nil {
			_ = writeCommandError(peer, frame.Type, frame.RequestID, err, locale)
			return true
		}
		writeAck(peer, "quiz.game", frame.RequestID, event.GameCreated{Game: gamePayload(game)})
	case "quiz.games.list":
		var payload listGamesPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid list payload")
			return true
		}
		page, err := svc.ListGames(ctx, payload.PageSize, payload.PageToken)
		if err != nil {
			_ = writeCommandError(peer, frame.Type, frame.RequestID, err, locale)
			return true
		}
		games := make([]event.GamePayload, 0, len(page.Games))
		for _, game := range page.Games {
			games = append(games, gamePayload(game))
		}
		writeAck(peer, "quiz.games", frame.RequestID, gamesPagePayload{
			Games:         games,
			NextPageToken: page.NextPageToken,
		})
	case "quiz.players.list":
		var payload gameRefPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid players payload")
			return true
		}
		players, err := svc.ListPlayers(ctx, payload.GameID)
		if err != nil {
			_ = writeCommandError(peer, frame.Type, frame.RequestID, err, locale)
			return true
		}
		roster := make([]event.PlayerPayload, 0, len(players))
		for _, player := range players {
			roster = append(roster, playerPayload(player))
		}
		writeAck(peer, "quiz.players", frame.RequestID, playersPayload{Players: roster})
	case "quiz.join.request":
		var payload gameRefPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid join payload")
			return true
		}
		if err := svc.RequestJoin(ctx, payload.GameID, payload.CallerID); err != nil {
			_ = writeCommandError(peer, frame.Type, frame.RequestID, err, locale)
			return true
		}
		writeAck(peer, "quiz.join.requested", frame.RequestID, event.JoinRequest{
			GameID:      payload.GameID,
			RequesterID: payload.CallerID,
		})
	case "quiz.join.accept":
		var payload joinDecisionPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid accept payload")
			return true
		}
		player, err := svc.AcceptJoin(ctx, payload.GameID, payload.DeciderID, payload.RequesterID)
		if err != nil {
			_ = writeCommandError(peer, frame.Type, frame.RequestID, err, locale)
			return true
		}
		writeAck(peer, "quiz.join.accepted", frame.RequestID, event.PlayerJoined{Player: playerPayload(player)})
	case "quiz.join.grant.issue":
		var payload joinGrantIssuePayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid grant payload")
			return true
		}
		grant, err := svc.IssueJoinGrant(ctx, payload.GameID, payload.CallerID, payload.UserID)
		if err != nil {
			_ = writeCommandError(peer, frame.Type, frame.RequestID, err, locale)
			return true
		}
		writeAck(peer, "quiz.join.grant", frame.RequestID, joinGrantPayload{
			GameID: payload.GameID,
			Grant:  grant,
		})
	case "quiz.join.grant.redeem":
		var payload joinGrantRedeemPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid grant payload")
			return true
		}
		player, err := svc.JoinWithGrant(ctx, payload.GameID, payload.UserID, payload.Grant)
		if err != nil {
			_ = writeCommandError(peer, frame.Type, frame.RequestID, err, locale)
			return true
		}
		writeAck(peer, "quiz.joined", frame.RequestID, event.PlayerJoined{Player: playerPayload(player)})
	case "quiz.start":
		var payload gameRefPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid start payload")
			return true
		}
		if err := svc.StartGame(ctx, payload.GameID, payload.CallerID); err != nil {
			_ = writeCommandError(peer, frame.Type, frame.RequestID, err, locale)
			return true
		}
		writeAck(peer, "quiz.started", frame.RequestID, gameRefPayload{GameID: payload.GameID})
	case "quiz.answer":
		var payload answerPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid answer payload")
			return true
		}
		result, err := svc.SubmitAnswer(ctx, payload.GameID, payload.UserID, payload.QuestionID, payload.OptionID)
		if err != nil {
			_ = writeCommandError(peer, frame.Type, frame.RequestID, err, locale)
			return true
		}
		writeAck(peer, "quiz.answered", frame.RequestID, answerResultPayload{
			Accepted:  result.Accepted,
			IsCorrect: result.IsCorrect,
			NewScore:  result.NewScore,
			Completed: result.Completed,
		})
	case "quiz.leave":
		var payload gameRefPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid leave payload")
			return true
		}
		if err := svc.LeaveGame(ctx, payload.GameID, payload.CallerID); err != nil {
			_ = writeCommandError(peer, frame.Type, frame.RequestID, err, locale)
			return true
		}
		writeAck(peer, "quiz.left", frame.RequestID, gameRefPayload{GameID: payload.GameID})
	case "quiz.end":
		var payload gameRefPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid end payload")
			return true
		}
		if err := svc.EndGame(ctx, payload.GameID, payload.CallerID); err != nil {
			_ = writeCommandError(peer, frame.Type, frame.RequestID, err, locale)
			return true
		}
		writeAck(peer, "quiz.ended", frame.RequestID, gameRefPayload{GameID: payload.GameID})
	case "quiz.delete":
		var payload gameRefPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid delete payload")
			return true
		}
		if err := svc.DeleteGame(ctx, payload.GameID, payload.CallerID); err != nil {
			_ = writeCommandError(peer, frame.Type, frame.RequestID, err, locale)
			return true
		}
		writeAck(peer, "quiz.deleted", frame.RequestID, event.GameDeleted{GameID: payload.GameID})
	default:
		return false
	}
	return true
}

func writeAck(peer *wsPeer, frameType string, requestID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws ack marshal type=%s: %v", frameType, err)
		return
	}
	if err := peer.writeFrame(wsFrame{Type: frameType, RequestID: requestID, Payload: data}); err != nil {
		log.Printf("ws ack write type=%s: %v", frameType, err)
	}
}
