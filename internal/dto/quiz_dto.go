package dto

import "time"

type CreateQuizRequest struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	DurationSeconds int    `json:"duration_seconds" binding:"required,min=1"`
	QuestionCount   int    `json:"question_count" binding:"required,min=1"`
}

type QuizResponseDTO struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	DurationSeconds int       `json:"duration_seconds"`
	QuestionCount   int       `json:"question_count"`
	CreatedAt       time.Time `json:"created_at"`
}
