package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/quizroom/internal/quiz/domain"
	"github.com/louisbranch/quizroom/internal/quiz/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quizroom.sqlite")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func seedGame(t *testing.T, store *Store, gameID string, now time.Time) domain.Game {
	t.Helper()
	game := domain.Game{
		ID:          gameID,
		Name:        "Trivia Night",
		OwnerUserID: "owner-1",
		Status:      domain.StatusWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.CreateGame(context.Background(), game); err != nil {
		t.Fatalf("seed game: %v", err)
	}
	return game
}

func seedPlayer(t *testing.T, store *Store, gameID, userID string, now time.Time) domain.Player {
	t.Helper()
	player := domain.Player{
		UserID:   userID,
		GameID:   gameID,
		JoinedAt: now,
	}
	if err := store.CreatePlayer(context.Background(), player); err != nil {
		t.Fatalf("seed player: %v", err)
	}
	return player
}

func seedQuestion(t *testing.T, store *Store, gameID, questionID string, position int, now time.Time) domain.Question {
	t.Helper()
	question := domain.Question{
		ID:        questionID,
		GameID:    gameID,
		Prompt:    "What color is the sky?",
		Position:  position,
		CreatedAt: now,
	}
	if err := store.CreateQuestion(context.Background(), question); err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return question
}

func seedOption(t *testing.T, store *Store, questionID, optionID string, correct bool) domain.Option {
	t.Helper()
	option := domain.Option{
		ID:         optionID,
		QuestionID: questionID,
		Label:      "Blue",
		Correct:    correct,
	}
	if err := store.CreateOption(context.Background(), option); err != nil {
		t.Fatalf("seed option: %v", err)
	}
	return option
}

func TestOpenAppliesPragmas(t *testing.T) {
	store := openTestStore(t)

	var foreignKeys int
	if err := store.sqlDB.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("query foreign_keys pragma: %v", err)
	}
	if foreignKeys != 1 {
		t.Fatalf("foreign_keys = %d, want 1", foreignKeys)
	}

	var journalMode string
	if err := store.sqlDB.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode pragma: %v", err)
	}
	if !strings.EqualFold(journalMode, "wal") {
		t.Fatalf("journal_mode = %q, want wal", journalMode)
	}

	var busyTimeout int
	if err := store.sqlDB.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("query busy_timeout pragma: %v", err)
	}
	if busyTimeout != 5000 {
		t.Fatalf("busy_timeout = %d, want 5000", busyTimeout)
	}
}

func TestGameCreateGet(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	expected := seedGame(t, store, "game-crud", now)

	got, err := store.GetGame(context.Background(), "game-crud")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if got != expected {
		t.Fatalf("got %+v, want %+v", got, expected)
	}
}

func TestGameCreateDuplicate(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	game := seedGame(t, store, "game-dup", now)

	if err := store.CreateGame(context.Background(), game); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}
}

func TestGetGameMissing(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetGame(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestListGamesPaging(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedGame(t, store, fmt.Sprintf("game-%02d", i), now)
	}

	page, err := store.ListGames(context.Background(), 2, "")
	if err != nil {
		t.Fatalf("list games: %v", err)
	}
	if len(page.Games) != 2 {
		t.Fatalf("got %d games, want 2", len(page.Games))
	}
	if page.Games[0].ID != "game-00" || page.Games[1].ID != "game-01" {
		t.Fatalf("unexpected page order: %s, %s", page.Games[0].ID, page.Games[1].ID)
	}
	if page.NextPageToken != "game-01" {
		t.Fatalf("got next page token %q, want game-01", page.NextPageToken)
	}

	page, err = store.ListGames(context.Background(), 10, page.NextPageToken)
	if err != nil {
		t.Fatalf("list games page 2: %v", err)
	}
	if len(page.Games) != 3 {
		t.Fatalf("got %d games, want 3", len(page.Games))
	}
	if page.NextPageToken != "" {
		t.Fatalf("got next page token %q, want empty", page.NextPageToken)
	}
}

func TestUpdateGameStatus(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	seedGame(t, store, "game-status", now)

	if err := store.UpdateGameStatus(context.Background(), "game-status", domain.StatusStarted); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err := store.GetGame(context.Background(), "game-status")
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if got.Status != domain.StatusStarted {
		t.Fatalf("got status %v, want started", got.Status)
	}
	if !got.UpdatedAt.After(now) {
		t.Fatalf("updated_at %v was not bumped past %v", got.UpdatedAt, now)
	}

	if err := store.UpdateGameStatus(context.Background(), "missing", domain.StatusEnded); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteGameCascades(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	seedGame(t, store, "game-del", now)
	seedPlayer(t, store, "game-del", "user-1", now)
	seedQuestion(t, store, "game-del", "q-1", 0, now)
	seedOption(t, store, "q-1", "opt-1", true)
	answer, err := domain.NewAnswer("game-del", "user-1", "q-1", "opt-1", func() time.Time { return now }, nil)
	if err != nil {
		t.Fatalf("new answer: %v", err)
	}
	if _, err := store.RecordAnswer(context.Background(), answer, true); err != nil {
		t.Fatalf("record answer: %v", err)
	}

	if err := store.DeleteGame(context.Background(), "game-del"); err != nil {
		t.Fatalf("delete game: %v", err)
	}

	if _, err := store.GetGame(context.Background(), "game-del"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("game survived delete: %v", err)
	}
	if _, err := store.GetPlayer(context.Background(), "game-del", "user-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("player survived delete: %v", err)
	}
	questions, err := store.ListQuestionsOrdered(context.Background(), "game-del")
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("questions survived delete: %d", len(questions))
	}
	if _, err := store.FindAnswer(context.Background(), "user-1", "q-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("answer survived delete: %v", err)
	}

	if err := store.DeleteGame(context.Background(), "game-del"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPlayerLifecycle(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	seedGame(t, store, "game-roster", now)

	first := seedPlayer(t, store, "game-roster", "user-a", now)
	seedPlayer(t, store, "game-roster", "user-b", now.Add(time.Minute))

	if err := store.CreatePlayer(context.Background(), first); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}

	players, err := store.ListPlayers(context.Background(), "game-roster")
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("got %d players, want 2", len(players))
	}
	if players[0].UserID != "user-a" || players[1].UserID != "user-b" {
		t.Fatalf("unexpected join order: %s, %s", players[0].UserID, players[1].UserID)
	}

	if err := store.DeletePlayer(context.Background(), "game-roster", "user-a"); err != nil {
		t.Fatalf("delete player: %v", err)
	}
	if err := store.DeletePlayer(context.Background(), "game-roster", "user-a"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	// Answers survive the player leaving.
	players, err = store.ListPlayers(context.Background(), "game-roster")
	if err != nil {
		t.Fatalf("list players after delete: %v", err)
	}
	if len(players) != 1 || players[0].UserID != "user-b" {
		t.Fatalf("unexpected roster after delete: %+v", players)
	}
}

func TestListQuestionsOrdered(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	seedGame(t, store, "game-q", now)
	seedQuestion(t, store, "game-q", "q-second", 1, now)
	seedQuestion(t, store, "game-q", "q-first", 0, now)
	seedOption(t, store, "q-first", "opt-1", true)
	seedOption(t, store, "q-first", "opt-2", false)

	questions, err := store.ListQuestionsOrdered(context.Background(), "game-q")
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}
	if questions[0].ID != "q-first" || questions[1].ID != "q-second" {
		t.Fatalf("unexpected question order: %s, %s", questions[0].ID, questions[1].ID)
	}

	options, err := store.GetOptionsForQuestion(context.Background(), "q-first")
	if err != nil {
		t.Fatalf("get options: %v", err)
	}
	if len(options) != 2 {
		t.Fatalf("got %d options, want 2", len(options))
	}
}

func TestRecordAnswerScoring(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	seedGame(t, store, "game-score", now)
	seedPlayer(t, store, "game-score", "user-1", now)
	seedQuestion(t, store, "game-score", "q-1", 0, now)
	seedQuestion(t, store, "game-score", "q-2", 1, now)
	seedOption(t, store, "q-1", "opt-right", true)
	seedOption(t, store, "q-2", "opt-wrong", false)

	clock := func() time.Time { return now }

	correct, err := domain.NewAnswer("game-score", "user-1", "q-1", "opt-right", clock, nil)
	if err != nil {
		t.Fatalf("new answer: %v", err)
	}
	score, err := store.RecordAnswer(context.Background(), correct, true)
	if err != nil {
		t.Fatalf("record correct answer: %v", err)
	}
	if score != 1 {
		t.Fatalf("got score %d, want 1", score)
	}

	wrong, err := domain.NewAnswer("game-score", "user-1", "q-2", "opt-wrong", clock, nil)
	if err != nil {
		t.Fatalf("new answer: %v", err)
	}
	score, err = store.RecordAnswer(context.Background(), wrong, false)
	if err != nil {
		t.Fatalf("record incorrect answer: %v", err)
	}
	if score != 1 {
		t.Fatalf("incorrect answer changed score: got %d, want 1", score)
	}

	player, err := store.GetPlayer(context.Background(), "game-score", "user-1")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if player.Score != 1 {
		t.Fatalf("persisted score %d, want 1", player.Score)
	}
}

func TestRecordAnswerDuplicate(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	seedGame(t, store, "game-dupanswer", now)
	seedPlayer(t, store, "game-dupanswer", "user-1", now)
	seedQuestion(t, store, "game-dupanswer", "q-1", 0, now)
	seedOption(t, store, "q-1", "opt-1", true)

	clock := func() time.Time { return now }
	first, err := domain.NewAnswer("game-dupanswer", "user-1", "q-1", "opt-1", clock, nil)
	if err != nil {
		t.Fatalf("new answer: %v", err)
	}
	if _, err := store.RecordAnswer(context.Background(), first, true); err != nil {
		t.Fatalf("record answer: %v", err)
	}

	// A different answer row for the same (user, question) pair must be
	// rejected without touching the score.
	second, err := domain.NewAnswer("game-dupanswer", "user-1", "q-1", "opt-1", clock, nil)
	if err != nil {
		t.Fatalf("new answer: %v", err)
	}
	if _, err := store.RecordAnswer(context.Background(), second, true); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}

	player, err := store.GetPlayer(context.Background(), "game-dupanswer", "user-1")
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if player.Score != 1 {
		t.Fatalf("duplicate submission changed score: got %d, want 1", player.Score)
	}
}

func TestRecordAnswerMissingPlayer(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	seedGame(t, store, "game-nop", now)
	seedQuestion(t, store, "game-nop", "q-1", 0, now)
	seedOption(t, store, "q-1", "opt-1", true)

	answer, err := domain.NewAnswer("game-nop", "ghost", "q-1", "opt-1", func() time.Time { return now }, nil)
	if err != nil {
		t.Fatalf("new answer: %v", err)
	}
	if _, err := store.RecordAnswer(context.Background(), answer, true); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}

	// The failed increment must roll the insert back with it.
	if _, err := store.FindAnswer(context.Background(), "ghost", "q-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("answer leaked from aborted transaction: %v", err)
	}
}

func TestListAnswersForGame(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	seedGame(t, store, "game-answers", now)
	seedPlayer(t, store, "game-answers", "user-1", now)
	seedQuestion(t, store, "game-answers", "q-1", 0, now)
	seedQuestion(t, store, "game-answers", "q-2", 1, now)
	seedOption(t, store, "q-1", "opt-1", true)
	seedOption(t, store, "q-2", "opt-2", false)

	for i, questionID := range []string{"q-1", "q-2"} {
		at := now.Add(time.Duration(i) * time.Second)
		answer, err := domain.NewAnswer("game-answers", "user-1", questionID, "opt-"+fmt.Sprint(i+1), func() time.Time { return at }, nil)
		if err != nil {
			t.Fatalf("new answer: %v", err)
		}
		if _, err := store.RecordAnswer(context.Background(), answer, false); err != nil {
			t.Fatalf("record answer %d: %v", i, err)
		}
	}

	answers, err := store.ListAnswersForGame(context.Background(), "game-answers")
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("got %d answers, want 2", len(answers))
	}
	if answers[0].QuestionID != "q-1" || answers[1].QuestionID != "q-2" {
		t.Fatalf("unexpected answer order: %s, %s", answers[0].QuestionID, answers[1].QuestionID)
	}
}
