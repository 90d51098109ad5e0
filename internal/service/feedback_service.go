package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/minhlq/Quokka/config"
	"github.com/minhlq/Quokka/internal/repository"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// FeedbackService drafts feedback text for a submitted attempt's free-text
// answers, offered to the grader as a starting point. The grade itself is
// always teacher-authored through the GradingGuard.
type FeedbackService interface {
	DraftFeedback(attemptID uint) (string, error)
}

type geminiFeedbackService struct {
	model       *genai.GenerativeModel
	attemptRepo repository.AttemptRepository
}

func NewGeminiFeedbackService(cfg *config.Config, attemptRepo repository.AttemptRepository) (FeedbackService, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. FeedbackService will be non-functional.")
		return &geminiFeedbackService{attemptRepo: attemptRepo}, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	return &geminiFeedbackService{
		model:       client.GenerativeModel("gemini-1.5-flash"),
		attemptRepo: attemptRepo,
	}, nil
}

func (s *geminiFeedbackService) DraftFeedback(attemptID uint) (string, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return "", err
	}
	if !attempt.Closed() {
		return "", ErrInvalidState
	}
	if s.model == nil {
		return "", errors.New("feedback drafting is not configured (missing Gemini API key)")
	}

	var sb strings.Builder
	sb.WriteString("You are helping a teacher grade a quiz attempt. ")
	sb.WriteString("Draft short, constructive feedback for the student based on their free-text answers below. ")
	sb.WriteString("Do not assign a score.\n\n")
	for _, a := range attempt.Answers {
		if a.Text == "" {
			continue
		}
		fmt.Fprintf(&sb, "Question %d answer:\n%s\n\n", a.QuestionIndex+1, a.Text)
	}

	resp, err := s.model.GenerateContent(context.Background(), genai.Text(sb.String()))
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Gemini feedback draft failed")
		return "", fmt.Errorf("failed to generate feedback draft: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from Gemini")
	}
	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return out.String(), nil
}
