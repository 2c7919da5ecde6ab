package seed

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	storagesqlite "github.com/louisbranch/quizroom/internal/quiz/storage/sqlite"
)

func TestRunSeedsGamesWithContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.sqlite")
	cfg := Config{
		DBPath:    path,
		Games:     2,
		Questions: 3,
		Owner:     "owner-test",
	}

	var out bytes.Buffer
	if err := Run(context.Background(), &out, cfg); err != nil {
		t.Fatalf("run seed: %v", err)
	}

	store, err := storagesqlite.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	}()

	page, err := store.ListGames(context.Background(), 10, "")
	if err != nil {
		t.Fatalf("list games: %v", err)
	}
	if len(page.Games) != 2 {
		t.Fatalf("got %d games, want 2", len(page.Games))
	}

	for _, game := range page.Games {
		if game.OwnerUserID != "owner-test" {
			t.Fatalf("got owner %q, want owner-test", game.OwnerUserID)
		}
		questions, err := store.ListQuestionsOrdered(context.Background(), game.ID)
		if err != nil {
			t.Fatalf("list questions: %v", err)
		}
		if len(questions) != 3 {
			t.Fatalf("got %d questions, want 3", len(questions))
		}
		for _, question := range questions {
			options, err := store.GetOptionsForQuestion(context.Background(), question.ID)
			if err != nil {
				t.Fatalf("get options: %v", err)
			}
			if len(options) != 4 {
				t.Fatalf("got %d options, want 4", len(options))
			}
			correct := 0
			for _, option := range options {
				if option.Correct {
					correct++
				}
			}
			if correct != 1 {
				t.Fatalf("got %d correct options, want 1", correct)
			}
		}
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	var out bytes.Buffer
	if err := Run(context.Background(), &out, Config{DBPath: "x", Games: 0, Questions: 1}); err == nil {
		t.Fatal("expected error for zero games")
	}
	if err := Run(context.Background(), nil, DefaultConfig()); err == nil {
		t.Fatal("expected error for nil output")
	}
}
