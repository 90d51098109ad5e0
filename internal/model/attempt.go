package model

import (
	"time"

	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptNotStarted AttemptStatus = "not_started"
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
)

// QuizAttempt is one student's instance of taking a timed quiz.
//
// StartedAt and DeadlineAt are set exactly once when the attempt is created
// and never recomputed; resuming after a reload or on another device does not
// extend the window. Status only moves forward:
// not_started -> in_progress -> submitted -> graded.
// Version increments on every grading write and backs the optimistic lock.
type QuizAttempt struct {
	ID              uint          `gorm:"primarykey" json:"id"`
	QuizID          uint          `json:"quiz_id" gorm:"not null;index;uniqueIndex:idx_owner_quiz"`
	Quiz            Quiz          `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
	OwnerID         uint          `json:"owner_id" gorm:"not null;index;uniqueIndex:idx_owner_quiz"`
	Status          AttemptStatus `json:"status" gorm:"default:'in_progress';index"`
	StartedAt       time.Time     `json:"started_at" gorm:"not null"`
	DurationSeconds int           `json:"duration_seconds" gorm:"not null"`
	DeadlineAt      time.Time     `json:"deadline_at" gorm:"not null"`
	SubmittedAt     *time.Time    `json:"submitted_at,omitempty"`

	// Grading result, written only through the versioned path.
	Grade    *float64   `json:"grade,omitempty"`
	Feedback *string    `json:"feedback,omitempty" gorm:"type:text"`
	GradedBy *uint      `json:"graded_by,omitempty"`
	GradedAt *time.Time `json:"graded_at,omitempty"`
	Version  int        `json:"version" gorm:"not null;default:0"`

	Answers   []AttemptAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (a *QuizAttempt) IsInProgress() bool {
	return a.Status == AttemptInProgress
}

// Closed reports whether the answer set is frozen.
func (a *QuizAttempt) Closed() bool {
	return a.Status == AttemptSubmitted || a.Status == AttemptGraded
}

// RemainingAt returns the time left before the deadline, clamped at zero.
func (a *QuizAttempt) RemainingAt(now time.Time) time.Duration {
	remaining := a.DeadlineAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ExpiredAt reports whether the attempt window has closed at the given time.
func (a *QuizAttempt) ExpiredAt(now time.Time) bool {
	return !now.Before(a.DeadlineAt)
}
