package dto

import "time"

// StartAttemptRequest identifies the student starting (or resuming) a quiz.
type StartAttemptRequest struct {
	OwnerID uint `json:"owner_id" binding:"required"`
}

// RecordAnswerRequest upserts a single answer by question index. Exactly one
// of OptionIndex and Text should carry the value.
type RecordAnswerRequest struct {
	QuestionIndex int    `json:"question_index" binding:"min=0"`
	OptionIndex   *int   `json:"option_index,omitempty"`
	Text          string `json:"text,omitempty"`
}

type AnswerDTO struct {
	QuestionIndex int    `json:"question_index"`
	OptionIndex   *int   `json:"option_index,omitempty"`
	Text          string `json:"text,omitempty"`
}

// AttemptStateDTO is the full attempt view returned to the owning student.
type AttemptStateDTO struct {
	ID               uint        `json:"id"`
	QuizID           uint        `json:"quiz_id"`
	OwnerID          uint        `json:"owner_id"`
	Status           string      `json:"status"`
	StartedAt        time.Time   `json:"started_at"`
	DeadlineAt       time.Time   `json:"deadline_at"`
	SubmittedAt      *time.Time  `json:"submitted_at,omitempty"`
	RemainingSeconds int         `json:"remaining_seconds"`
	Answers          []AnswerDTO `json:"answers"`
	Grade            *float64    `json:"grade,omitempty"`
	Feedback         *string     `json:"feedback,omitempty"`
	Version          int         `json:"version"`
}

type RemainingTimeDTO struct {
	AttemptID        uint   `json:"attempt_id"`
	Status           string `json:"status"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
