package model

import (
	"time"
)

// AttemptAnswer is one recorded answer within an attempt, keyed by question
// index. The value is either a selected option index or free text; last
// write wins, there is no per-question versioning.
type AttemptAnswer struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	AttemptID     uint      `json:"attempt_id" gorm:"not null;index;uniqueIndex:idx_attempt_question"`
	QuestionIndex int       `json:"question_index" gorm:"not null;uniqueIndex:idx_attempt_question"`
	OptionIndex   *int      `json:"option_index,omitempty"`
	Text          string    `json:"text,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
