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

// CreatePlayer inserts one roster entry. A duplicate (game, user) pair
// returns storage.ErrAlreadyExists.
func (s *Store) CreatePlayer(ctx context.Context, player domain.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	gameID := strings.TrimSpace(player.GameID)
	userID := strings.TrimSpace(player.UserID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if player.Score < 0 {
		return fmt.Errorf("score must not be negative")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO players (game_id, user_id, score, joined_at)
		 VALUES (?, ?, ?, ?)`,
		gameID,
		userID,
		player.Score,
		toMillis(player.JoinedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create player: %w", err)
	}
	return nil
}

// GetPlayer returns one roster entry.
func (s *Store) GetPlayer(ctx context.Context, gameID, userID string) (domain.Player, error) {
	if err := ctx.Err(); err != nil {
		return domain.Player{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Player{}, fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	userID = strings.TrimSpace(userID)
	if gameID == "" {
		return domain.Player{}, fmt.Errorf("game id is required")
	}
	if userID == "" {
		return domain.Player{}, fmt.Errorf("user id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT game_id, user_id, score, joined_at
		   FROM players
		  WHERE game_id = ? AND user_id = ?`,
		gameID,
		userID,
	)
	var player domain.Player
	var joinedAt int64
	err := row.Scan(&player.GameID, &player.UserID, &player.Score, &joinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Player{}, storage.ErrNotFound
		}
		return domain.Player{}, fmt.Errorf("get player: %w", err)
	}
	player.JoinedAt = fromMillis(joinedAt)
	return player, nil
}

// ListPlayers returns a game's roster ordered by join time.
func (s *Store) ListPlayers(ctx context.Context, gameID string) ([]domain.Player, error) {
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
		`SELECT game_id, user_id, score, joined_at
		   FROM players
		  WHERE game_id = ?
		  ORDER BY joined_at ASC, user_id ASC`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var player domain.Player
		var joinedAt int64
		if err := rows.Scan(&player.GameID, &player.UserID, &player.Score, &joinedAt); err != nil {
			return nil, fmt.Errorf("list players: %w", err)
		}
		player.JoinedAt = fromMillis(joinedAt)
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

// DeletePlayer removes one roster entry. Recorded answers are retained
// for history.
func (s *Store) DeletePlayer(ctx context.Context, gameID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	gameID = strings.TrimSpace(gameID)
	userID = strings.TrimSpace(userID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM players WHERE game_id = ? AND user_id = ?`,
		gameID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
