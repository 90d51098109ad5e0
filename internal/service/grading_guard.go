package service

import (
	"fmt"

	"github.com/minhlq/Quokka/internal/dto"
	"github.com/minhlq/Quokka/internal/repository"
	"github.com/rs/zerolog/log"
)

// GradingGuard is the optimistic-locking write path shared by all grading.
// The grader's identity arrives explicitly in the request, never from
// ambient session state. The guard owns only the version arithmetic; grade
// range validation happens at the request binding.
type GradingGuard interface {
	GradeAttempt(attemptID uint, req dto.GradeAttemptRequest) (*dto.GradeResultDTO, error)
}

type gradingGuard struct {
	attemptRepo repository.AttemptRepository
	clock       Clock
}

func NewGradingGuard(attemptRepo repository.AttemptRepository, clock Clock) GradingGuard {
	return &gradingGuard{attemptRepo: attemptRepo, clock: clock}
}

// GradeAttempt writes grade and feedback against a submitted or graded
// attempt. With an expected version the write is conditional: a mismatch
// returns VersionConflictError carrying the stored version and writes
// nothing, so two concurrent graders holding the same version cannot both
// succeed. Without one the write is unconditional (first-time grading);
// either way the new version comes back for the caller's next edit.
func (g *gradingGuard) GradeAttempt(attemptID uint, req dto.GradeAttemptRequest) (*dto.GradeResultDTO, error) {
	attempt, err := g.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.Closed() {
		log.Warn().Uint("attemptID", attemptID).Str("status", string(attempt.Status)).
			Msg("Grade rejected: attempt not submitted")
		return nil, ErrInvalidState
	}

	gradedAt := g.clock.Now()
	attempt.Grade = &req.Grade
	attempt.Feedback = req.Feedback
	attempt.GradedBy = &req.GraderID
	attempt.GradedAt = &gradedAt

	if req.ExpectedVersion != nil {
		ok, err := g.attemptRepo.GradeWithVersion(attempt, *req.ExpectedVersion)
		if err != nil {
			return nil, fmt.Errorf("grading write failed: %w", err)
		}
		if !ok {
			current, err := g.attemptRepo.FindByID(attemptID)
			if err != nil {
				return nil, err
			}
			log.Warn().Uint("attemptID", attemptID).Int("expected", *req.ExpectedVersion).
				Int("stored", current.Version).Uint("graderID", req.GraderID).Msg("Stale grading write rejected")
			return nil, &VersionConflictError{AttemptID: attemptID, CurrentVersion: current.Version}
		}
	} else {
		if _, err := g.attemptRepo.GradeUnconditional(attempt); err != nil {
			return nil, fmt.Errorf("grading write failed: %w", err)
		}
	}

	log.Info().Uint("attemptID", attemptID).Uint("graderID", req.GraderID).
		Float64("grade", req.Grade).Int("version", attempt.Version).Msg("Attempt graded")
	return &dto.GradeResultDTO{
		AttemptID: attemptID,
		Grade:     req.Grade,
		Feedback:  req.Feedback,
		GradedAt:  gradedAt,
		Version:   attempt.Version,
	}, nil
}
