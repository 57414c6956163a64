package models

import (
	"time"

	"github.com/google/uuid"
)

// Question is one multiple-choice question. Choices are ordered A–D and
// Correct holds the letter of the right choice as produced by the generator
// (clients normalize before comparing).
type Question struct {
	Question    string   `json:"question"`
	Choices     []string `json:"choices"`
	Correct     string   `json:"correct"`
	Explanation string   `json:"explanation,omitempty"`
}

type GenerateQuizRequest struct {
	NumQuestions int    `json:"num_questions"`
	Filename     string `json:"filename"`
}

type GenerateQuizResponse struct {
	OK   bool       `json:"ok"`
	Quiz []Question `json:"quiz"`
}

type AskRequest struct {
	Question string `json:"question"`
	Filename string `json:"filename"`
}

type AskResponse struct {
	OK     bool   `json:"ok"`
	Answer string `json:"answer"`
}

type SaveResultRequest struct {
	Filename string `json:"filename"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
	Percent  int    `json:"percent"`
}

// QuizResult is a persisted grading outcome.
type QuizResult struct {
	ID       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	Correct  int       `json:"correct"`
	Total    int       `json:"total"`
	Percent  int       `json:"percent"`
	TakenAt  time.Time `json:"taken_at"`
}
