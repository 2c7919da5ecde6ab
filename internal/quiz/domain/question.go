package domain

import "time"

// Question belongs to exactly one game. Ascending Position defines the
// fixed question order for the quiz.
type Question struct {
	ID          string
	GameID      string
	Prompt      string
	Explanation string
	Position    int
	CreatedAt   time.Time
}

// Option is one choice for a question. The authoring workflow guarantees
// each question carries at least one correct option; the coordinator only
// reads that invariant.
type Option struct {
	ID         string
	QuestionID string
	Label      string
	Correct    bool
}
