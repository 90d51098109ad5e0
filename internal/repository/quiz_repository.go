package repository

import (
	"errors"

	"github.com/minhlq/Quokka/internal/model"
	"gorm.io/gorm"
)

var ErrQuizNotFound = errors.New("quiz not found")

type QuizRepository interface {
	Create(quiz *model.Quiz) error
	FindByID(id uint) (*model.Quiz, error)
	FindAll() ([]model.Quiz, error)
}

type quizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) Create(quiz *model.Quiz) error {
	return r.db.Create(quiz).Error
}

func (r *quizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.db.First(&quiz, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepository) FindAll() ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.db.Order("created_at DESC").Find(&quizzes).Error
	return quizzes, err
}
