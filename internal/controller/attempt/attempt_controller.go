package attempt

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/minhlq/Quokka/internal/dto"
	"github.com/minhlq/Quokka/internal/repository"
	"github.com/minhlq/Quokka/internal/service"
	"github.com/rs/zerolog/log"
)

// AttemptController exposes the student-facing attempt lifecycle. Each
// started attempt is handed to the scheduler, which owns its countdown and
// autosave timers from then on.
type AttemptController struct {
	engine    service.AttemptEngine
	scheduler *service.AttemptScheduler
}

func NewAttemptController(engine service.AttemptEngine, scheduler *service.AttemptScheduler) *AttemptController {
	return &AttemptController{engine: engine, scheduler: scheduler}
}

// StartAttempt godoc
// @Summary (Student) Start or resume a quiz attempt
// @Description Starts a timed attempt, or resumes the existing one for this student and quiz. Resuming past the deadline returns the attempt already submitted.
// @Tags Student - Attempts
// @Accept json
// @Produce json
// @Param quiz_id path int true "Quiz ID"
// @Param body body dto.StartAttemptRequest true "Student identity"
// @Success 200 {object} dto.AttemptStateDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid ID or body"
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Failure 500 {object} dto.ErrorResponse
// @Router /quizzes/{quiz_id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	quizID, err := parseID(ctx, "quiz_id")
	if err != nil {
		return
	}
	var req dto.StartAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	state, err := c.engine.Start(req.OwnerID, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrQuizNotFound) {
			ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: err.Error()})
			return
		}
		log.Error().Err(err).Uint("quizID", quizID).Uint("ownerID", req.OwnerID).Msg("StartAttempt: Service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to start attempt", Details: []string{err.Error()}})
		return
	}
	c.scheduler.Track(state.ID)
	ctx.JSON(http.StatusOK, state)
}

// RecordAnswer godoc
// @Summary (Student) Record an answer
// @Description Upserts the answer for one question index; last write wins. Only allowed while the attempt is in progress.
// @Tags Student - Attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.RecordAnswerRequest true "Answer value (option index or free text)"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse "Invalid ID or body"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt no longer accepts answers"
// @Router /attempts/{attempt_id}/answers [put]
func (c *AttemptController) RecordAnswer(ctx *gin.Context) {
	attemptID, err := parseID(ctx, "attempt_id")
	if err != nil {
		return
	}
	var req dto.RecordAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	if err := c.engine.RecordAnswer(attemptID, req); err != nil {
		respondEngineError(ctx, err, "Failed to record answer")
		return
	}
	ctx.Status(http.StatusNoContent)
}

// RemainingTime godoc
// @Summary (Student) Get remaining time
// @Description Seconds left before the fixed deadline, never negative. Intended for a 1s UI poll.
// @Tags Student - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.RemainingTimeDTO
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /attempts/{attempt_id}/remaining [get]
func (c *AttemptController) RemainingTime(ctx *gin.Context) {
	attemptID, err := parseID(ctx, "attempt_id")
	if err != nil {
		return
	}
	state, err := c.engine.GetAttempt(attemptID)
	if err != nil {
		respondEngineError(ctx, err, "Failed to read remaining time")
		return
	}
	ctx.JSON(http.StatusOK, dto.RemainingTimeDTO{
		AttemptID:        attemptID,
		Status:           state.Status,
		RemainingSeconds: state.RemainingSeconds,
	})
}

// SubmitAttempt godoc
// @Summary (Student) Submit the attempt
// @Description Freezes the answers and submits. Submitting an already-submitted attempt is a success no-op, so a manual click racing the timeout never errors.
// @Tags Student - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptStateDTO
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 500 {object} dto.ErrorResponse "Durable save failed; retry is safe"
// @Router /attempts/{attempt_id}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	attemptID, err := parseID(ctx, "attempt_id")
	if err != nil {
		return
	}
	state, err := c.engine.Submit(attemptID, service.TriggerManual)
	if err != nil {
		respondEngineError(ctx, err, "Failed to submit attempt")
		return
	}
	ctx.JSON(http.StatusOK, state)
}

// GetAttempt godoc
// @Summary (Student) Get attempt state
// @Tags Student - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptStateDTO
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /attempts/{attempt_id} [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	attemptID, err := parseID(ctx, "attempt_id")
	if err != nil {
		return
	}
	state, err := c.engine.GetAttempt(attemptID)
	if err != nil {
		respondEngineError(ctx, err, "Failed to load attempt")
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func parseID(ctx *gin.Context, param string) (uint, error) {
	raw := ctx.Param(param)
	val, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + param + " format"})
		return 0, err
	}
	return uint(val), nil
}

func respondEngineError(ctx *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrAttemptNotFound):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: err.Error()})
	default:
		log.Error().Err(err).Msg(fallback)
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: fallback, Details: []string{err.Error()}})
	}
}
