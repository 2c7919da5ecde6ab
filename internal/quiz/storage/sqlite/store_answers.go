package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/quizroom/internal/quiz/domain"
	"github.com/louisbranch/quizroom/internal/quiz/storage"
)

// FindAnswer returns the recorded answer for one (user, question) pair.
func (s *Store) FindAnswer(ctx context.Context, userID, questionID string) (domain.Answer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Answer{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Answer{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	questionID = strings.TrimSpace(questionID)
	if userID == "" {
		return domain.Answer{}, fmt.Errorf("user id is required")
	}
	if questionID == "" {
		return domain.Answer{}, fmt.Errorf("question id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, user_id, game_id, question_id, option_id, created_at
		   FROM answers
		  WHERE user_id = ? AND question_id = ?`,
		userID,
		questionID,
	)
	return scanAnswer(row)
}

// ListAnswersForGame returns all answers recorded for a game in
// submission order. Used to rebuild session cursors on hydration.
func (s *Store) ListAnswersForGame(ctx context.Context, gameID string) ([]domain.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, fmt.Errorf("game id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, user_id, game_id, question_id, option_id, created_at
		   FROM answers
		  WHERE game_id = ?
		  ORDER BY created_at ASC, id ASC`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var answers []domain.Answer
	for rows.Next() {
		answer, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("list answers: %w", err)
		}
		answers = append(answers, answer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return answers, nil
}

// RecordAnswer atomically inserts the answer and applies the score change.
// The insert and the score increment share one transaction so a duplicate
// submission or a lost connection can never leave a half-applied result.
func (s *Store) RecordAnswer(ctx context.Context, answer domain.Answer, correct bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	answerID := strings.TrimSpace(answer.ID)
	userID := strings.TrimSpace(answer.UserID)
	gameID := strings.TrimSpace(answer.GameID)
	questionID := strings.TrimSpace(answer.QuestionID)
	optionID := strings.TrimSpace(answer.OptionID)
	if answerID == "" || userID == "" || gameID == "" || questionID == "" || optionID == "" {
		return 0, fmt.Errorf("answer id, user id, game id, question id, and option id are required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin record answer: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO answers (id, user_id, game_id, question_id, option_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		answerID,
		userID,
		gameID,
		questionID,
		optionID,
		toMillis(answer.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, storage.ErrAlreadyExists
		}
		return 0, fmt.Errorf("record answer: %w", err)
	}

	if correct {
		result, err := tx.ExecContext(
			ctx,
			`UPDATE players SET score = score + 1 WHERE game_id = ? AND user_id = ?`,
			gameID,
			userID,
		)
		if err != nil {
			return 0, fmt.Errorf("increment score: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("increment score: %w", err)
		}
		if affected == 0 {
			return 0, storage.ErrNotFound
		}
	}

	var score int
	row := tx.QueryRowContext(
		ctx,
		`SELECT score FROM players WHERE game_id = ? AND user_id = ?`,
		gameID,
		userID,
	)
	if err := row.Scan(&score); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("read score: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit record answer: %w", err)
	}
	return score, nil
}

func scanAnswer(row rowScanner) (domain.Answer, error) {
	var answer domain.Answer
	var createdAt int64
	err := row.Scan(
		&answer.ID,
		&answer.UserID,
		&answer.GameID,
		&answer.QuestionID,
		&answer.OptionID,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Answer{}, storage.ErrNotFound
		}
		return domain.Answer{}, fmt.Errorf("scan answer: %w", err)
	}
	answer.CreatedAt = fromMillis(createdAt)
	return answer, nil
}
