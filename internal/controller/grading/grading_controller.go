package grading

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

// GradingController exposes the teacher-facing grading path and the quiz
// administration surface.
type GradingController struct {
	guard       service.GradingGuard
	feedbackSvc service.FeedbackService
	quizService service.QuizService
}

func NewGradingController(guard service.GradingGuard, feedbackSvc service.FeedbackService, quizService service.QuizService) *GradingController {
	return &GradingController{guard: guard, feedbackSvc: feedbackSvc, quizService: quizService}
}

// GradeAttempt godoc
// @Summary (Teacher) Grade a submitted attempt
// @Description Writes grade and feedback with optimistic locking. Send the expected_version from your last read or write; a stale version gets 409 with the current version and nothing is written. Re-grading an already-graded attempt is allowed.
// @Tags Teacher - Grading
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.GradeAttemptRequest true "Grade, feedback, grader identity, expected version"
// @Success 200 {object} dto.GradeResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid ID, grade out of 0-100, or bad body"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.VersionConflictResponse "Stale version - reload and re-grade"
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/attempts/{attempt_id}/grade [post]
func (c *GradingController) GradeAttempt(ctx *gin.Context) {
	attemptID, err := parseID(ctx, "attempt_id")
	if err != nil {
		return
	}
	var req dto.GradeAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	result, err := c.guard.GradeAttempt(attemptID, req)
	if err != nil {
		var conflict *service.VersionConflictError
		switch {
		case errors.As(err, &conflict):
			// Distinct from a generic failure: the fix is reload-and-regrade,
			// not retry.
			ctx.JSON(http.StatusConflict, dto.VersionConflictResponse{
				Message:        "Another grade was saved for this attempt since you loaded it. Reload and grade again.",
				CurrentVersion: conflict.CurrentVersion,
			})
		case errors.Is(err, repository.ErrAttemptNotFound):
			ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: err.Error()})
		case errors.Is(err, service.ErrInvalidState):
			ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "Attempt has not been submitted yet"})
		default:
			log.Error().Err(err).Uint("attemptID", attemptID).Msg("GradeAttempt: Service error")
			ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to grade attempt", Details: []string{err.Error()}})
		}
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// DraftFeedback godoc
// @Summary (Teacher) Draft feedback for a submitted attempt
// @Description Generates an AI feedback draft from the attempt's free-text answers as a starting point for the grader.
// @Tags Teacher - Grading
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.FeedbackDraftDTO
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt not submitted yet"
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/attempts/{attempt_id}/feedback-draft [post]
func (c *GradingController) DraftFeedback(ctx *gin.Context) {
	attemptID, err := parseID(ctx, "attempt_id")
	if err != nil {
		return
	}
	draft, err := c.feedbackSvc.DraftFeedback(attemptID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAttemptNotFound):
			ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: err.Error()})
		case errors.Is(err, service.ErrInvalidState):
			ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "Attempt has not been submitted yet"})
		default:
			log.Error().Err(err).Uint("attemptID", attemptID).Msg("DraftFeedback: Service error")
			ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to draft feedback", Details: []string{err.Error()}})
		}
		return
	}
	ctx.JSON(http.StatusOK, dto.FeedbackDraftDTO{AttemptID: attemptID, Draft: draft})
}

// CreateQuiz godoc
// @Summary (Teacher) Create a quiz
// @Tags Teacher - Quizzes
// @Accept json
// @Produce json
// @Param body body dto.CreateQuizRequest true "Quiz definition with time limit"
// @Success 201 {object} dto.QuizResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/quizzes [post]
func (c *GradingController) CreateQuiz(ctx *gin.Context) {
	var req dto.CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	quiz, err := c.quizService.CreateQuiz(req)
	if err != nil {
		log.Error().Err(err).Msg("CreateQuiz: Service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to create quiz", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusCreated, quiz)
}

// GetAllQuizzes godoc
// @Summary List quizzes
// @Tags Teacher - Quizzes
// @Produce json
// @Success 200 {array} dto.QuizResponseDTO
// @Failure 500 {object} dto.ErrorResponse
// @Router /quizzes [get]
func (c *GradingController) GetAllQuizzes(ctx *gin.Context) {
	quizzes, err := c.quizService.GetAllQuizzes()
	if err != nil {
		log.Error().Err(err).Msg("GetAllQuizzes: Service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to list quizzes", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, quizzes)
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
