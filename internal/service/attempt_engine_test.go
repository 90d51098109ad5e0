package service

import (
	"testing"
	"time"

	"github.com/minhlq/Quokka/internal/dto"
	"github.com/minhlq/Quokka/internal/model"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestStartIsIdempotentPerOwnerAndQuiz(t *testing.T) {
	h := newTestHarness()
	quizID := h.createQuiz(600)

	first, err := h.engine.Start(7, quizID)
	require.NoError(t, err)
	require.Equal(t, string(model.AttemptInProgress), first.Status)
	require.Equal(t, 600, first.RemainingSeconds)

	h.clock.Advance(30 * time.Second)
	second, err := h.engine.Start(7, quizID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "second start must resume, not create")
	require.Equal(t, first.StartedAt, second.StartedAt)
	require.Equal(t, first.DeadlineAt, second.DeadlineAt, "resume must never move the deadline")
	require.Equal(t, 570, second.RemainingSeconds)
}

func TestRemainingTimeMonotonicAndNeverNegative(t *testing.T) {
	h := newTestHarness()
	quizID := h.createQuiz(60)
	state, err := h.engine.Start(1, quizID)
	require.NoError(t, err)

	prev := time.Duration(1<<62 - 1)
	for i := 0; i < 10; i++ {
		remaining, err := h.engine.RemainingTime(state.ID)
		require.NoError(t, err)
		require.GreaterOrEqual(t, remaining, time.Duration(0))
		require.LessOrEqual(t, remaining, prev)
		prev = remaining
		h.clock.Advance(9 * time.Second)
	}
	remaining, err := h.engine.RemainingTime(state.ID)
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), remaining)
}

func TestResumePastDeadlineAutoSubmits(t *testing.T) {
	h := newTestHarness()
	quizID := h.createQuiz(60)
	state, err := h.engine.Start(3, quizID)
	require.NoError(t, err)

	require.NoError(t, h.engine.RecordAnswer(state.ID, dto.RecordAnswerRequest{QuestionIndex: 0, OptionIndex: intPtr(2)}))

	// Simulate the client disappearing and coming back at t=61.
	h.sessions.Remove(state.ID)
	h.clock.Advance(61 * time.Second)

	resumed, err := h.engine.Start(3, quizID)
	require.NoError(t, err)
	require.Equal(t, string(model.AttemptSubmitted), resumed.Status)
	require.Equal(t, 0, resumed.RemainingSeconds)

	err = h.engine.RecordAnswer(state.ID, dto.RecordAnswerRequest{QuestionIndex: 1, Text: "too late"})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestSubmitIdempotentUnderManualTimeoutRace(t *testing.T) {
	h := newTestHarness()
	quizID := h.createQuiz(120)
	state, err := h.engine.Start(5, quizID)
	require.NoError(t, err)

	require.NoError(t, h.engine.RecordAnswer(state.ID, dto.RecordAnswerRequest{QuestionIndex: 0, Text: "photosynthesis"}))
	require.NoError(t, h.engine.RecordAnswer(state.ID, dto.RecordAnswerRequest{QuestionIndex: 1, OptionIndex: intPtr(3)}))

	first, err := h.engine.Submit(state.ID, TriggerManual)
	require.NoError(t, err)
	second, err := h.engine.Submit(state.ID, TriggerTimeout)
	require.NoError(t, err, "the losing side of the race must still see success")

	require.Equal(t, string(model.AttemptSubmitted), first.Status)
	require.Equal(t, first.SubmittedAt, second.SubmittedAt)
	require.Equal(t, first.Answers, second.Answers)

	stored, err := h.attempts.FindByID(state.ID)
	require.NoError(t, err)
	require.Len(t, stored.Answers, 2)
}

func TestRecordAnswerRejectedAfterSubmit(t *testing.T) {
	h := newTestHarness()
	quizID := h.createQuiz(120)
	state, err := h.engine.Start(5, quizID)
	require.NoError(t, err)

	_, err = h.engine.Submit(state.ID, TriggerManual)
	require.NoError(t, err)

	err = h.engine.RecordAnswer(state.ID, dto.RecordAnswerRequest{QuestionIndex: 0, Text: "late"})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestLastWriteWinsPerQuestionIndex(t *testing.T) {
	h := newTestHarness()
	quizID := h.createQuiz(120)
	state, err := h.engine.Start(2, quizID)
	require.NoError(t, err)

	require.NoError(t, h.engine.RecordAnswer(state.ID, dto.RecordAnswerRequest{QuestionIndex: 4, OptionIndex: intPtr(1)}))
	require.NoError(t, h.engine.RecordAnswer(state.ID, dto.RecordAnswerRequest{QuestionIndex: 4, OptionIndex: intPtr(3)}))

	final, err := h.engine.Submit(state.ID, TriggerManual)
	require.NoError(t, err)
	require.Len(t, final.Answers, 1)
	require.Equal(t, 3, *final.Answers[0].OptionIndex)
}

func TestResumePrefersDurableOverStaleLocalCheckpoint(t *testing.T) {
	h := newTestHarness()
	quizID := h.createQuiz(600)
	state, err := h.engine.Start(9, quizID)
	require.NoError(t, err)

	// Durable copy: progress made on another device.
	durable := []model.AttemptAnswer{
		{QuestionIndex: 0, Text: "newer answer from device B"},
		{QuestionIndex: 1, OptionIndex: intPtr(2)},
	}
	require.NoError(t, h.attempts.ReplaceAnswers(state.ID, durable))
	// Stale local checkpoint on this device.
	require.NoError(t, h.checkpoints.Set(state.ID, []model.AttemptAnswer{{QuestionIndex: 0, Text: "stale"}}))

	h.sessions.Remove(state.ID)
	resumed, err := h.engine.Start(9, quizID)
	require.NoError(t, err)
	require.Len(t, resumed.Answers, 2)
	require.Equal(t, "newer answer from device B", resumed.Answers[0].Text)

	// Local checkpoint must be overwritten to match the durable copy.
	local, err := h.checkpoints.Get(state.ID)
	require.NoError(t, err)
	require.Len(t, local, 2)
	require.Equal(t, "newer answer from device B", local[0].Text)
}

func TestLocalCheckpointSeedsWhenDurableEmpty(t *testing.T) {
	h := newTestHarness()
	quizID := h.createQuiz(600)
	state, err := h.engine.Start(9, quizID)
	require.NoError(t, err)

	require.NoError(t, h.checkpoints.Set(state.ID, []model.AttemptAnswer{{QuestionIndex: 2, Text: "recovered draft"}}))

	h.sessions.Remove(state.ID)
	resumed, err := h.engine.Start(9, quizID)
	require.NoError(t, err)
	require.Len(t, resumed.Answers, 1)
	require.Equal(t, "recovered draft", resumed.Answers[0].Text)
}

func TestSubmitFailureLeavesAttemptOpenForRetry(t *testing.T) {
	h := newTestHarness()
	quizID := h.createQuiz(120)
	state, err := h.engine.Start(5, quizID)
	require.NoError(t, err)
	require.NoError(t, h.engine.RecordAnswer(state.ID, dto.RecordAnswerRequest{QuestionIndex: 0, Text: "a"}))

	h.attempts.failSaves = 1
	_, err = h.engine.Submit(state.ID, TriggerTimeout)
	require.Error(t, err)

	remaining, err := h.engine.RemainingTime(state.ID)
	require.NoError(t, err)
	require.Greater(t, remaining, time.Duration(0))

	// Manual submit is still a valid recovery path.
	final, err := h.engine.Submit(state.ID, TriggerManual)
	require.NoError(t, err)
	require.Equal(t, string(model.AttemptSubmitted), final.Status)
}

func TestFastTierFailureDoesNotBlockAnswerEntry(t *testing.T) {
	h := newTestHarness()
	quizID := h.createQuiz(120)
	state, err := h.engine.Start(5, quizID)
	require.NoError(t, err)

	h.checkpoints.failWrites = 5
	require.NoError(t, h.engine.RecordAnswer(state.ID, dto.RecordAnswerRequest{QuestionIndex: 0, Text: "kept in memory"}))

	final, err := h.engine.Submit(state.ID, TriggerManual)
	require.NoError(t, err)
	require.Len(t, final.Answers, 1)
}
