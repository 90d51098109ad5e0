package model

import (
	"time"

	"gorm.io/gorm"
)

// Quiz is the assessment definition a student attempts. The time limit is
// copied onto each attempt when it starts, so editing a quiz never moves the
// deadline of an attempt already in flight.
type Quiz struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	Title           string         `json:"title" gorm:"not null"`
	Description     string         `json:"description" gorm:"type:text"`
	DurationSeconds int            `json:"duration_seconds" gorm:"not null"`
	QuestionCount   int            `json:"question_count" gorm:"not null"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
