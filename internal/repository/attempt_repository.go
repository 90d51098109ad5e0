package repository

import (
	"errors"

	"github.com/minhlq/Quokka/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAttemptNotFound is returned when no attempt row matches the lookup.
var ErrAttemptNotFound = errors.New("attempt not found")

// AttemptRepository is the durable store behind the attempt lifecycle.
//
// Save and ReplaceAnswers are the non-versioned checkpoint path: while an
// attempt is in progress only the owning student writes, so those need no
// lock. GradeWithVersion is the optimistic-locking path shared by all
// grading writes; it is a single conditional UPDATE, atomic at the database.
type AttemptRepository interface {
	Create(attempt *model.QuizAttempt) error
	FindByID(id uint) (*model.QuizAttempt, error)
	FindByOwnerAndQuiz(ownerID, quizID uint) (*model.QuizAttempt, error)
	Save(attempt *model.QuizAttempt) error
	ReplaceAnswers(attemptID uint, answers []model.AttemptAnswer) error
	GradeWithVersion(attempt *model.QuizAttempt, expectedVersion int) (bool, error)
	GradeUnconditional(attempt *model.QuizAttempt) (int, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(attempt *model.QuizAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *attemptRepository) FindByID(id uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.db.Preload("Answers").First(&attempt, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByOwnerAndQuiz(ownerID, quizID uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.db.Preload("Answers").
		Where("owner_id = ? AND quiz_id = ?", ownerID, quizID).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) Save(attempt *model.QuizAttempt) error {
	// Checkpoint write: attempt fields only, answers go through ReplaceAnswers.
	return r.db.Omit("Answers").Save(attempt).Error
}

func (r *attemptRepository) ReplaceAnswers(attemptID uint, answers []model.AttemptAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	for i := range answers {
		answers[i].AttemptID = attemptID
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"option_index", "text", "updated_at"}),
	}).Create(&answers).Error
}

// GradeWithVersion commits the grading fields of the attempt if and only if
// the stored version still equals expectedVersion, bumping the version by
// one. Returns false when the row has moved on (stale caller).
func (r *attemptRepository) GradeWithVersion(attempt *model.QuizAttempt, expectedVersion int) (bool, error) {
	res := r.db.Model(&model.QuizAttempt{}).
		Where("id = ? AND version = ?", attempt.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":    model.AttemptGraded,
			"grade":     attempt.Grade,
			"feedback":  attempt.Feedback,
			"graded_by": attempt.GradedBy,
			"graded_at": attempt.GradedAt,
			"version":   expectedVersion + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	attempt.Status = model.AttemptGraded
	attempt.Version = expectedVersion + 1
	return true, nil
}

// GradeUnconditional is the first-time grading write with no prior version
// to race against. The version still advances so the caller can do versioned
// edits from here on. Returns the new version.
func (r *attemptRepository) GradeUnconditional(attempt *model.QuizAttempt) (int, error) {
	res := r.db.Model(&model.QuizAttempt{}).
		Where("id = ?", attempt.ID).
		Updates(map[string]interface{}{
			"status":    model.AttemptGraded,
			"grade":     attempt.Grade,
			"feedback":  attempt.Feedback,
			"graded_by": attempt.GradedBy,
			"graded_at": attempt.GradedAt,
			"version":   gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrAttemptNotFound
	}
	var reloaded model.QuizAttempt
	if err := r.db.Select("version").First(&reloaded, attempt.ID).Error; err != nil {
		return 0, err
	}
	attempt.Status = model.AttemptGraded
	attempt.Version = reloaded.Version
	return reloaded.Version, nil
}
