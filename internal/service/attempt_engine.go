package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/minhlq/Quokka/internal/dto"
	"github.com/minhlq/Quokka/internal/model"
	"github.com/minhlq/Quokka/internal/repository"
	"github.com/rs/zerolog/log"
)

// SubmitTrigger records whether a submission came from the student or from
// the countdown hitting zero. Both paths converge on the same idempotent
// Submit so a manual click racing the timer never surfaces an error.
type SubmitTrigger string

const (
	TriggerManual  SubmitTrigger = "manual"
	TriggerTimeout SubmitTrigger = "timeout"
)

// AttemptEngine owns the attempt state machine: start/resume, answer
// recording, remaining-time computation and submission.
type AttemptEngine interface {
	Start(ownerID, quizID uint) (*dto.AttemptStateDTO, error)
	RecordAnswer(attemptID uint, req dto.RecordAnswerRequest) error
	RemainingTime(attemptID uint) (time.Duration, error)
	Submit(attemptID uint, trigger SubmitTrigger) (*dto.AttemptStateDTO, error)
	GetAttempt(attemptID uint) (*dto.AttemptStateDTO, error)
}

type attemptEngine struct {
	quizRepo    repository.QuizRepository
	attemptRepo repository.AttemptRepository
	checkpoints repository.CheckpointStore
	sessions    *SessionRegistry
	clock       Clock
}

func NewAttemptEngine(
	quizRepo repository.QuizRepository,
	attemptRepo repository.AttemptRepository,
	checkpoints repository.CheckpointStore,
	sessions *SessionRegistry,
	clock Clock,
) AttemptEngine {
	return &attemptEngine{
		quizRepo:    quizRepo,
		attemptRepo: attemptRepo,
		checkpoints: checkpoints,
		sessions:    sessions,
		clock:       clock,
	}
}

// Start creates the attempt on the student's first call and resumes it on
// every later one; a second start for the same owner/quiz never creates a
// second attempt. Resuming an attempt whose deadline has already passed
// submits it before returning, so a client coming back after the window
// closed is never allowed to keep answering.
func (e *attemptEngine) Start(ownerID, quizID uint) (*dto.AttemptStateDTO, error) {
	attempt, err := e.attemptRepo.FindByOwnerAndQuiz(ownerID, quizID)
	if errors.Is(err, repository.ErrAttemptNotFound) {
		attempt, err = e.createAttempt(ownerID, quizID)
	}
	if err != nil {
		return nil, err
	}

	if attempt.Closed() {
		return e.toStateDTO(attempt, attempt.Answers), nil
	}

	sess := e.sessions.Get(attempt.ID)
	if sess == nil {
		sess = e.sessions.GetOrPut(attempt.ID, newAttemptSession(attempt, e.recoverAnswers(attempt)))
	}

	if attempt.ExpiredAt(e.clock.Now()) {
		log.Info().Uint("attemptID", attempt.ID).Msg("Resumed attempt past its deadline, submitting on catch-up")
		return e.Submit(attempt.ID, TriggerTimeout)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return e.toStateDTO(sess.attempt, sess.snapshotLocked()), nil
}

func (e *attemptEngine) createAttempt(ownerID, quizID uint) (*model.QuizAttempt, error) {
	quiz, err := e.quizRepo.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	attempt := &model.QuizAttempt{
		QuizID:          quizID,
		OwnerID:         ownerID,
		Status:          model.AttemptInProgress,
		StartedAt:       now,
		DurationSeconds: quiz.DurationSeconds,
		DeadlineAt:      now.Add(time.Duration(quiz.DurationSeconds) * time.Second),
	}
	if err := e.attemptRepo.Create(attempt); err != nil {
		log.Error().Err(err).Uint("quizID", quizID).Uint("ownerID", ownerID).Msg("Failed to create attempt")
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}
	log.Info().Uint("attemptID", attempt.ID).Uint("quizID", quizID).Uint("ownerID", ownerID).
		Time("deadline", attempt.DeadlineAt).Msg("Attempt started")
	return attempt, nil
}

// recoverAnswers seeds the in-memory answer set on resume. Durable rows are
// authoritative across devices; a local checkpoint only counts when the
// durable store has nothing, and is overwritten to match otherwise. This
// keeps a stale cache on one device from clobbering progress made on another.
func (e *attemptEngine) recoverAnswers(attempt *model.QuizAttempt) []model.AttemptAnswer {
	if len(attempt.Answers) > 0 {
		if err := e.checkpoints.Set(attempt.ID, attempt.Answers); err != nil {
			log.Warn().Err(err).Uint("attemptID", attempt.ID).Msg("Failed to refresh local checkpoint from durable answers")
		}
		return attempt.Answers
	}
	local, err := e.checkpoints.Get(attempt.ID)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attempt.ID).Msg("Failed to read local checkpoint, starting empty")
		return nil
	}
	return local
}

// RecordAnswer upserts the answer by question index, last write wins. Only
// legal while the attempt is in progress.
func (e *attemptEngine) RecordAnswer(attemptID uint, req dto.RecordAnswerRequest) error {
	sess, err := e.session(attemptID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if !sess.attempt.IsInProgress() {
		sess.mu.Unlock()
		return ErrInvalidState
	}
	sess.answers[req.QuestionIndex] = model.AttemptAnswer{
		AttemptID:     attemptID,
		QuestionIndex: req.QuestionIndex,
		OptionIndex:   req.OptionIndex,
		Text:          req.Text,
	}
	sess.writeSeq++
	seq := sess.writeSeq
	snapshot := sess.snapshotLocked()
	sess.mu.Unlock()

	// Write-through to the fast tier; it is a convenience cache, so failure
	// is logged and swallowed.
	if err := e.checkpoints.Set(attemptID, snapshot); err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("Local checkpoint write failed")
	} else {
		sess.markLocalSaved(seq)
	}
	return nil
}

// RemainingTime is a pure function of the fixed deadline and the clock;
// it never goes negative.
func (e *attemptEngine) RemainingTime(attemptID uint) (time.Duration, error) {
	if sess := e.sessions.Get(attemptID); sess != nil {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return sess.attempt.RemainingAt(e.clock.Now()), nil
	}
	attempt, err := e.attemptRepo.FindByID(attemptID)
	if err != nil {
		return 0, err
	}
	return attempt.RemainingAt(e.clock.Now()), nil
}

// Submit moves the attempt to submitted, freezes its answers and performs
// one final durable save before reporting success. A second submit on an
// already-submitted attempt is a no-op success, which is what lets a manual
// click and the timeout tick race safely.
func (e *attemptEngine) Submit(attemptID uint, trigger SubmitTrigger) (*dto.AttemptStateDTO, error) {
	sess := e.sessions.Get(attemptID)
	if sess == nil {
		attempt, err := e.attemptRepo.FindByID(attemptID)
		if err != nil {
			return nil, err
		}
		if attempt.Closed() {
			return e.toStateDTO(attempt, attempt.Answers), nil
		}
		if !attempt.IsInProgress() {
			return nil, ErrInvalidState
		}
		sess = e.sessions.GetOrPut(attemptID, newAttemptSession(attempt, e.recoverAnswers(attempt)))
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.attempt.Closed() {
		return e.toStateDTO(sess.attempt, sess.snapshotLocked()), nil
	}
	if !sess.attempt.IsInProgress() {
		return nil, ErrInvalidState
	}

	// Durable save first; the in-memory state only flips on success, so a
	// timeout submit that dies on the network leaves the attempt open for
	// the student's manual retry.
	answers := sess.snapshotLocked()
	if err := e.attemptRepo.ReplaceAnswers(attemptID, answers); err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Str("trigger", string(trigger)).Msg("Final answer save failed")
		return nil, fmt.Errorf("failed to persist answers on submit: %w", err)
	}
	submittedAt := e.clock.Now()
	pending := *sess.attempt
	pending.Status = model.AttemptSubmitted
	pending.SubmittedAt = &submittedAt
	if err := e.attemptRepo.Save(&pending); err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Str("trigger", string(trigger)).Msg("Submit save failed")
		return nil, fmt.Errorf("failed to submit attempt: %w", err)
	}

	*sess.attempt = pending
	sess.close()
	e.sessions.Remove(attemptID)
	if err := e.checkpoints.Delete(attemptID); err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("Failed to drop local checkpoint after submit")
	}

	log.Info().Uint("attemptID", attemptID).Str("trigger", string(trigger)).
		Int("answerCount", len(answers)).Msg("Attempt submitted")
	return e.toStateDTO(sess.attempt, answers), nil
}

func (e *attemptEngine) GetAttempt(attemptID uint) (*dto.AttemptStateDTO, error) {
	if sess := e.sessions.Get(attemptID); sess != nil {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return e.toStateDTO(sess.attempt, sess.snapshotLocked()), nil
	}
	attempt, err := e.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	return e.toStateDTO(attempt, attempt.Answers), nil
}

// session returns the live session for the attempt, rebuilding it from the
// durable store after a process restart.
func (e *attemptEngine) session(attemptID uint) (*attemptSession, error) {
	if sess := e.sessions.Get(attemptID); sess != nil {
		return sess, nil
	}
	attempt, err := e.attemptRepo.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.IsInProgress() {
		return nil, ErrInvalidState
	}
	return e.sessions.GetOrPut(attemptID, newAttemptSession(attempt, e.recoverAnswers(attempt))), nil
}

func (e *attemptEngine) toStateDTO(attempt *model.QuizAttempt, answers []model.AttemptAnswer) *dto.AttemptStateDTO {
	var resp dto.AttemptStateDTO
	if err := copier.Copy(&resp, attempt); err != nil {
		log.Error().Err(err).Uint("attemptID", attempt.ID).Msg("Failed to copy attempt to DTO")
	}
	resp.Status = string(attempt.Status)
	resp.RemainingSeconds = int(attempt.RemainingAt(e.clock.Now()).Seconds())
	resp.Answers = make([]dto.AnswerDTO, len(answers))
	for i, a := range answers {
		resp.Answers[i] = dto.AnswerDTO{QuestionIndex: a.QuestionIndex, OptionIndex: a.OptionIndex, Text: a.Text}
	}
	return &resp
}
