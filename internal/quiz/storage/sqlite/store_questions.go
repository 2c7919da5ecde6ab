package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/quizroom/internal/quiz/domain"
	"github.com/louisbranch/quizroom/internal/quiz/storage"
)

// CreateQuestion inserts one question record.
func (s *Store) CreateQuestion(ctx context.Context, question domain.Question) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	questionID := strings.TrimSpace(question.ID)
	gameID := strings.TrimSpace(question.GameID)
	prompt := strings.TrimSpace(question.Prompt)
	if questionID == "" {
		return fmt.Errorf("question id is required")
	}
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}
	if prompt == "" {
		return fmt.Errorf("question prompt is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO questions (id, game_id, prompt, explanation, position, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		questionID,
		gameID,
		prompt,
		question.Explanation,
		question.Position,
		toMillis(question.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// CreateOption inserts one option record.
func (s *Store) CreateOption(ctx context.Context, option domain.Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	optionID := strings.TrimSpace(option.ID)
	questionID := strings.TrimSpace(option.QuestionID)
	if optionID == "" {
		return fmt.Errorf("option id is required")
	}
	if questionID == "" {
		return fmt.Errorf("question id is required")
	}

	correct := 0
	if option.Correct {
		correct = 1
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO options (id, question_id, label, correct)
		 VALUES (?, ?, ?, ?)`,
		optionID,
		questionID,
		option.Label,
		correct,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create option: %w", err)
	}
	return nil
}

// ListQuestionsOrdered returns a game's questions in creation order.
func (s *Store) ListQuestionsOrdered(ctx context.Context, gameID string) ([]domain.Question, error) {
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
		`SELECT id, game_id, prompt, explanation, position, created_at
		   FROM questions
		  WHERE game_id = ?
		  ORDER BY position ASC, created_at ASC`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var question domain.Question
		var createdAt int64
		if err := rows.Scan(
			&question.ID,
			&question.GameID,
			&question.Prompt,
			&question.Explanation,
			&question.Position,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("list questions: %w", err)
		}
		question.CreatedAt = fromMillis(createdAt)
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// GetOptionsForQuestion returns a question's options in stored order.
func (s *Store) GetOptionsForQuestion(ctx context.Context, questionID string) ([]domain.Option, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return nil, fmt.Errorf("question id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, question_id, label, correct
		   FROM options
		  WHERE question_id = ?
		  ORDER BY position ASC, id ASC`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()

	var options []domain.Option
	for rows.Next() {
		var option domain.Option
		var correct int
		if err := rows.Scan(&option.ID, &option.QuestionID, &option.Label, &correct); err != nil {
			return nil, fmt.Errorf("list options: %w", err)
		}
		option.Correct = correct != 0
		options = append(options, option)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	return options, nil
}
