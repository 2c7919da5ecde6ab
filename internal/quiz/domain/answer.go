package domain

import (
	"fmt"
	"time"

	"github.com/louisbranch/quizroom/internal/platform/id"
)

// Answer records one accepted submission. At most one answer exists per
// (UserID, QuestionID) pair; the session's answer protocol enforces this
// together with the storage unique index.
type Answer struct {
	ID         string
	UserID     string
	GameID     string
	QuestionID string
	OptionID   string
	CreatedAt  time.Time
}

// NewAnswer creates an answer record with a generated ID and timestamp.
func NewAnswer(gameID, userID, questionID, optionID string, now func() time.Time, idGenerator func() (string, error)) (Answer, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	answerID, err := idGenerator()
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer id: %w", err)
	}
	return Answer{
		ID:         answerID,
		UserID:     userID,
		GameID:     gameID,
		QuestionID: questionID,
		OptionID:   optionID,
		CreatedAt:  now().UTC(),
	}, nil
}
