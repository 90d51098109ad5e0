package dto

import "time"

// GradeAttemptRequest is the teacher's grade write. ExpectedVersion is the
// version returned by the previous read or write; omit it only on the first
// grade of an attempt.
type GradeAttemptRequest struct {
	GraderID        uint    `json:"grader_id" binding:"required"`
	Grade           float64 `json:"grade" binding:"min=0,max=100"`
	Feedback        *string `json:"feedback,omitempty"`
	ExpectedVersion *int    `json:"expected_version,omitempty"`
}

// GradeResultDTO echoes the committed grade together with the new version the
// caller must supply on its next edit.
type GradeResultDTO struct {
	AttemptID uint      `json:"attempt_id"`
	Grade     float64   `json:"grade"`
	Feedback  *string   `json:"feedback,omitempty"`
	GradedAt  time.Time `json:"graded_at"`
	Version   int       `json:"version"`
}

// VersionConflictResponse is the distinct 409 body for a stale grading
// write; the caller should reload at CurrentVersion and re-grade.
type VersionConflictResponse struct {
	Message        string `json:"message"`
	CurrentVersion int    `json:"current_version"`
}

type FeedbackDraftDTO struct {
	AttemptID uint   `json:"attempt_id"`
	Draft     string `json:"draft"`
}
