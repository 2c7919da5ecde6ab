// Package seed populates a local database with demo games and quiz
// content so the server has something to coordinate out of the box.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/louisbranch/quizroom/internal/platform/id"
	"github.com/louisbranch/quizroom/internal/quiz/domain"
	storagesqlite "github.com/louisbranch/quizroom/internal/quiz/storage/sqlite"
)

// Config holds seeding options.
type Config struct {
	DBPath    string
	Games     int
	Questions int
	Owner     string
	Verbose   bool
}

// DefaultConfig returns the standard demo seed.
func DefaultConfig() Config {
	return Config{
		DBPath:    "data/quizroom.db",
		Games:     3,
		Questions: 5,
		Owner:     "demo-owner",
	}
}

var prompts = []string{
	"Which planet has the longest day?",
	"What is the smallest prime number?",
	"Which ocean is the deepest?",
	"What year did the first moon landing happen?",
	"Which element has the symbol Fe?",
	"What is the capital of Australia?",
	"How many strings does a standard violin have?",
	"Which gas makes up most of Earth's atmosphere?",
}

// Run writes demo games with questions and options into the database at
// cfg.DBPath. It is safe to run against an existing database; every run
// creates fresh games.
func Run(ctx context.Context, out io.Writer, cfg Config) error {
	if out == nil {
		return errors.New("output is required")
	}
	if cfg.Games <= 0 || cfg.Questions <= 0 {
		return errors.New("games and questions must be positive")
	}

	store, err := storagesqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	for g := 0; g < cfg.Games; g++ {
		game, err := domain.CreateGame(domain.CreateGameInput{
			Name:        fmt.Sprintf("Demo Quiz %d", g+1),
			OwnerUserID: cfg.Owner,
		}, time.Now, id.NewID)
		if err != nil {
			return err
		}
		if err := store.CreateGame(ctx, game); err != nil {
			return fmt.Errorf("seed game %q: %w", game.Name, err)
		}

		for q := 0; q < cfg.Questions; q++ {
			questionID, err := id.NewID()
			if err != nil {
				return err
			}
			question := domain.Question{
				ID:        questionID,
				GameID:    game.ID,
				Prompt:    prompts[(g+q)%len(prompts)],
				Position:  q,
				CreatedAt: time.Now().UTC(),
			}
			if err := store.CreateQuestion(ctx, question); err != nil {
				return fmt.Errorf("seed question %d: %w", q, err)
			}
			for o := 0; o < 4; o++ {
				optionID, err := id.NewID()
				if err != nil {
					return err
				}
				option := domain.Option{
					ID:         optionID,
					QuestionID: questionID,
					Label:      fmt.Sprintf("Option %c", 'A'+o),
					Correct:    o == (g+q)%4,
				}
				if err := store.CreateOption(ctx, option); err != nil {
					return fmt.Errorf("seed option %d: %w", o, err)
				}
			}
		}

		if cfg.Verbose {
			fmt.Fprintf(out, "seeded game %s (%s) with %d questions\n", game.Name, game.ID, cfg.Questions)
		}
	}

	fmt.Fprintf(out, "seeded %d games owned by %s\n", cfg.Games, cfg.Owner)
	return nil
}
