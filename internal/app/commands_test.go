package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/net/websocket"

	"github.com/louisbranch/quizroom/internal/quiz/domain"
	"github.com/louisbranch/quizroom/internal/quiz/event"
)

func dialHubWithLocale(t *testing.T, srv *httptest.Server, acceptLanguage string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	config, err := websocket.NewConfig(wsURL, srv.URL)
	if err != nil {
		t.Fatalf("websocket config: %v", err)
	}
	config.Header = http.Header{"Accept-Language": []string{acceptLanguage}}
	conn, err := websocket.DialConfig(config)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func createGameOverWS(t *testing.T, conn *websocket.Conn, name, ownerID string) event.GamePayload {
	t.Helper()
	writeFrame(t, conn, map[string]any{
		"type":       "quiz.create",
		"request_id": "req-create-1",
		"payload":    map[string]any{"name": name, "owner_user_id": ownerID},
	})
	got := readFrame(t, conn)
	if got.Type != "quiz.created" {
		t.Fatalf("frame type = %q, want %q", got.Type, "quiz.created")
	}
	if got.RequestID != "req-create-1" {
		t.Fatalf("ack request id = %q, want %q", got.RequestID, "req-create-1")
	}
	var created event.GameCreated
	if err := json.Unmarshal(got.Payload, &created); err != nil {
		t.Fatalf("decode created payload: %v", err)
	}
	return created.Game
}

func readErrorFrame(t *testing.T, conn *websocket.Conn) (wsFrame, wsError) {
	t.Helper()
	got := readFrame(t, conn)
	if got.Type != "error" {
		t.Fatalf("frame type = %q, want %q", got.Type, "error")
	}
	var envelope wsErrorEnvelope
	if err := json.Unmarshal(got.Payload, &envelope); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	return got, envelope.Error
}

func TestCommandCreateGameAcks(t *testing.T) {
	_, srv := newTestHubServer(t)
	conn := dialHub(t, srv)

	game := createGameOverWS(t, conn, "Friday Trivia", "owner-1")
	if game.ID == "" {
		t.Fatal("created game has no id")
	}
	if game.Name != "Friday Trivia" || game.OwnerUserID != "owner-1" {
		t.Fatalf("created game = %+v", game)
	}
	if game.Status != domain.StatusWaiting.String() {
		t.Fatalf("created game status = %q, want %q", game.Status, domain.StatusWaiting.String())
	}
}

func TestCommandGameLifecycle(t *testing.T) {
	_, srv := newTestHubServer(t)
	conn := dialHub(t, srv)

	game := createGameOverWS(t, conn, "Lifecycle", "owner-1")

	writeFrame(t, conn, map[string]any{
		"type":       "quiz.join.request",
		"request_id": "req-join-1",
		"payload":    map[string]any{"game_id": game.ID, "caller_id": "user-2"},
	})
	if got := readFrame(t, conn); got.Type != "quiz.join.requested" {
		t.Fatalf("frame type = %q, want %q", got.Type, "quiz.join.requested")
	}

	writeFrame(t, conn, map[string]any{
		"type":       "quiz.join.accept",
		"request_id": "req-accept-1",
		"payload": map[string]any{
			"game_id":      game.ID,
			"decider_id":   "owner-1",
			"requester_id": "user-2",
		},
	})
	got := readFrame(t, conn)
	if got.Type != "quiz.join.accepted" {
		t.Fatalf("frame type = %q, want %q", got.Type, "quiz.join.accepted")
	}
	var joined event.PlayerJoined
	if err := json.Unmarshal(got.Payload, &joined); err != nil {
		t.Fatalf("decode joined payload: %v", err)
	}
	if joined.Player.UserID != "user-2" || joined.Player.GameID != game.ID {
		t.Fatalf("joined player = %+v", joined.Player)
	}

	writeFrame(t, conn, map[string]any{
		"type":       "quiz.start",
		"request_id": "req-start-1",
		"payload":    map[string]any{"game_id": game.ID, "caller_id": "owner-1"},
	})
	if got := readFrame(t, conn); got.Type != "quiz.started" {
		t.Fatalf("frame type = %q, want %q", got.Type, "quiz.started")
	}

	writeFrame(t, conn, map[string]any{
		"type":       "quiz.end",
		"request_id": "req-end-1",
		"payload":    map[string]any{"game_id": game.ID, "caller_id": "owner-1"},
	})
	if got := readFrame(t, conn); got.Type != "quiz.ended" {
		t.Fatalf("frame type = %q, want %q", got.Type, "quiz.ended")
	}

	writeFrame(t, conn, map[string]any{
		"type":       "quiz.game.get",
		"request_id": "req-get-1",
		"payload":    map[string]any{"game_id": game.ID},
	})
	got = readFrame(t, conn)
	if got.Type != "quiz.game" {
		t.Fatalf("frame type = %q, want %q", got.Type, "quiz.game")
	}
	var fetched event.GameCreated
	if err := json.Unmarshal(got.Payload, &fetched); err != nil {
		t.Fatalf("decode game payload: %v", err)
	}
	if fetched.Game.Status != domain.StatusEnded.String() {
		t.Fatalf("game status = %q, want %q", fetched.Game.Status, domain.StatusEnded.String())
	}
}

func TestCommandErrorFrameCarriesReasonAndMessage(t *testing.T) {
	_, srv := newTestHubServer(t)
	conn := dialHub(t, srv)

	game := createGameOverWS(t, conn, "Guarded", "owner-1")

	writeFrame(t, conn, map[string]any{
		"type":       "quiz.start",
		"request_id": "req-start-2",
		"payload":    map[string]any{"game_id": game.ID, "caller_id": "user-2"},
	})
	frame, wireErr := readErrorFrame(t, conn)
	if frame.RequestID != "req-start-2" {
		t.Fatalf("error request id = %q, want %q", frame.RequestID, "req-start-2")
	}
	if wireErr.Code != "PERMISSION_DENIED" {
		t.Fatalf("error code = %q, want %q", wireErr.Code, "PERMISSION_DENIED")
	}
	if wireErr.Reason != "ACTOR_NOT_OWNER" {
		t.Fatalf("error reason = %q, want %q", wireErr.Reason, "ACTOR_NOT_OWNER")
	}
	if wireErr.Message != "Only the game owner can do this." {
		t.Fatalf("error message = %q", wireErr.Message)
	}
}

func TestCommandErrorLocalizedForAcceptLanguage(t *testing.T) {
	_, srv := newTestHubServer(t)
	conn := dialHubWithLocale(t, srv, "pt-BR,pt;q=0.9,en;q=0.8")

	game := createGameOverWS(t, conn, "Localizado", "owner-1")

	writeFrame(t, conn, map[string]any{
		"type":       "quiz.start",
		"request_id": "req-start-3",
		"payload":    map[string]any{"game_id": game.ID, "caller_id": "user-2"},
	})
	_, wireErr := readErrorFrame(t, conn)
	if wireErr.Reason != "ACTOR_NOT_OWNER" {
		t.Fatalf("error reason = %q, want %q", wireErr.Reason, "ACTOR_NOT_OWNER")
	}
	if wireErr.Message != "Apenas o dono do jogo pode fazer isso." {
		t.Fatalf("error message = %q", wireErr.Message)
	}
}

func TestCommandNotFoundError(t *testing.T) {
	_, srv := newTestHubServer(t)
	conn := dialHub(t, srv)

	writeFrame(t, conn, map[string]any{
		"type":       "quiz.game.get",
		"request_id": "req-get-2",
		"payload":    map[string]any{"game_id": "missing-game"},
	})
	_, wireErr := readErrorFrame(t, conn)
	if wireErr.Code != "NOT_FOUND" {
		t.Fatalf("error code = %q, want %q", wireErr.Code, "NOT_FOUND")
	}
	if wireErr.Reason != "NOT_FOUND" {
		t.Fatalf("error reason = %q, want %q", wireErr.Reason, "NOT_FOUND")
	}
}

func TestCommandMalformedPayloadRejected(t *testing.T) {
	_, srv := newTestHubServer(t)
	conn := dialHub(t, srv)

	writeFrame(t, conn, map[string]any{
		"type":       "quiz.create",
		"request_id": "req-bad-create",
		"payload":    "not an object",
	})
	frame, wireErr := readErrorFrame(t, conn)
	if frame.RequestID != "req-bad-create" {
		t.Fatalf("error request id = %q, want %q", frame.RequestID, "req-bad-create")
	}
	if wireErr.Code != "INVALID_ARGUMENT" {
		t.Fatalf("error code = %q, want %q", wireErr.Code, "INVALID_ARGUMENT")
	}
}
