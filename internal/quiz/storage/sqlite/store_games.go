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

// CreateGame inserts one game record.
func (s *Store) CreateGame(ctx context.Context, game domain.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	gameID := strings.TrimSpace(game.ID)
	name := strings.TrimSpace(game.Name)
	owner := strings.TrimSpace(game.OwnerUserID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}
	if name == "" {
		return fmt.Errorf("game name is required")
	}
	if owner == "" {
		return fmt.Errorf("game owner is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO games (id, name, owner_user_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		gameID,
		name,
		owner,
		game.Status.String(),
		toMillis(game.CreatedAt),
		toMillis(game.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

// GetGame returns one game by ID.
func (s *Store) GetGame(ctx context.Context, gameID string) (domain.Game, error) {
	if err := ctx.Err(); err != nil {
		return domain.Game{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Game{}, fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return domain.Game{}, fmt.Errorf("game id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, owner_user_id, status, created_at, updated_at
		   FROM games
		  WHERE id = ?`,
		gameID,
	)
	return scanGame(row)
}

// ListGames returns one page of game records ordered by ID.
func (s *Store) ListGames(ctx context.Context, pageSize int, pageToken string) (storage.GamePage, error) {
	if err := ctx.Err(); err != nil {
		return storage.GamePage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.GamePage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.GamePage{}, fmt.Errorf("page size must be greater than zero")
	}
	pageToken = strings.TrimSpace(pageToken)

	page := storage.GamePage{
		Games: make([]domain.Game, 0, pageSize),
	}

	var (
		rows *sql.Rows
		err  error
	)
	if pageToken == "" {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, name, owner_user_id, status, created_at, updated_at
			   FROM games
			  ORDER BY id ASC
			  LIMIT ?`,
			pageSize+1,
		)
	} else {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, name, owner_user_id, status, created_at, updated_at
			   FROM games
			  WHERE id > ?
			  ORDER BY id ASC
			  LIMIT ?`,
			pageToken,
			pageSize+1,
		)
	}
	if err != nil {
		return storage.GamePage{}, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return storage.GamePage{}, fmt.Errorf("list games: %w", err)
		}
		page.Games = append(page.Games, game)
	}
	if err := rows.Err(); err != nil {
		return storage.GamePage{}, fmt.Errorf("list games: %w", err)
	}
	if len(page.Games) > pageSize {
		page.NextPageToken = page.Games[pageSize-1].ID
		page.Games = page.Games[:pageSize]
	}

	return page, nil
}

// UpdateGameStatus persists a lifecycle transition and bumps updated_at.
func (s *Store) UpdateGameStatus(ctx context.Context, gameID string, status domain.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}
	if status == domain.StatusUnspecified {
		return fmt.Errorf("game status is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE games SET status = ?, updated_at = ? WHERE id = ?`,
		status.String(),
		nowMillis(),
		gameID,
	)
	if err != nil {
		return fmt.Errorf("update game status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update game status: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteGame removes a game; players, questions, options, and answers
// cascade with it.
func (s *Store) DeleteGame(ctx context.Context, gameID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, gameID)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (domain.Game, error) {
	var game domain.Game
	var status string
	var createdAt int64
	var updatedAt int64
	err := row.Scan(
		&game.ID,
		&game.Name,
		&game.OwnerUserID,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Game{}, storage.ErrNotFound
		}
		return domain.Game{}, fmt.Errorf("scan game: %w", err)
	}
	game.Status = domain.StatusFromString(status)
	game.CreatedAt = fromMillis(createdAt)
	game.UpdatedAt = fromMillis(updatedAt)
	return game, nil
}
