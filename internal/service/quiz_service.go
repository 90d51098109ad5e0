package service

import (
	"github.com/jinzhu/copier"
	"github.com/minhlq/Quokka/internal/dto"
	"github.com/minhlq/Quokka/internal/model"
	"github.com/minhlq/Quokka/internal/repository"
	"github.com/rs/zerolog/log"
)

type QuizService interface {
	CreateQuiz(req dto.CreateQuizRequest) (*dto.QuizResponseDTO, error)
	GetQuiz(id uint) (*dto.QuizResponseDTO, error)
	GetAllQuizzes() ([]dto.QuizResponseDTO, error)
}

type quizService struct {
	quizRepo repository.QuizRepository
}

func NewQuizService(quizRepo repository.QuizRepository) QuizService {
	return &quizService{quizRepo: quizRepo}
}

func (s *quizService) CreateQuiz(req dto.CreateQuizRequest) (*dto.QuizResponseDTO, error) {
	quiz := model.Quiz{
		Title:           req.Title,
		Description:     req.Description,
		DurationSeconds: req.DurationSeconds,
		QuestionCount:   req.QuestionCount,
	}
	if err := s.quizRepo.Create(&quiz); err != nil {
		log.Error().Err(err).Str("title", req.Title).Msg("Failed to create quiz")
		return nil, err
	}
	var resp dto.QuizResponseDTO
	copier.Copy(&resp, &quiz)
	return &resp, nil
}

func (s *quizService) GetQuiz(id uint) (*dto.QuizResponseDTO, error) {
	quiz, err := s.quizRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	var resp dto.QuizResponseDTO
	copier.Copy(&resp, quiz)
	return &resp, nil
}

func (s *quizService) GetAllQuizzes() ([]dto.QuizResponseDTO, error) {
	quizzes, err := s.quizRepo.FindAll()
	if err != nil {
		return nil, err
	}
	var resp []dto.QuizResponseDTO
	copier.Copy(&resp, &quizzes)
	return resp, nil
}
