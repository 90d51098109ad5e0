package service

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/minhlq/Quokka/internal/model"
	"github.com/minhlq/Quokka/internal/repository"
)

var errTransient = errors.New("transient store failure")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memQuizRepo struct {
	mu      sync.Mutex
	seq     uint
	quizzes map[uint]model.Quiz
}

func newMemQuizRepo() *memQuizRepo {
	return &memQuizRepo{quizzes: make(map[uint]model.Quiz)}
}

func (r *memQuizRepo) Create(quiz *model.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	quiz.ID = r.seq
	r.quizzes[quiz.ID] = *quiz
	return nil
}

func (r *memQuizRepo) FindByID(id uint) (*model.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return nil, repository.ErrQuizNotFound
	}
	return &quiz, nil
}

func (r *memQuizRepo) FindAll() ([]model.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Quiz, 0, len(r.quizzes))
	for _, q := range r.quizzes {
		out = append(out, q)
	}
	return out, nil
}

// memAttemptRepo mimics the gorm store, including the conditional versioned
// update. failSaves / failReplaces inject transient failures that decrement
// per call.
type memAttemptRepo struct {
	mu           sync.Mutex
	seq          uint
	attempts     map[uint]model.QuizAttempt
	answers      map[uint]map[int]model.AttemptAnswer
	failSaves    int
	failReplaces int
}

func newMemAttemptRepo() *memAttemptRepo {
	return &memAttemptRepo{
		attempts: make(map[uint]model.QuizAttempt),
		answers:  make(map[uint]map[int]model.AttemptAnswer),
	}
}

func (r *memAttemptRepo) Create(attempt *model.QuizAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	attempt.ID = r.seq
	r.attempts[attempt.ID] = *attempt
	return nil
}

func (r *memAttemptRepo) storedAnswers(id uint) []model.AttemptAnswer {
	byIndex := r.answers[id]
	out := make([]model.AttemptAnswer, 0, len(byIndex))
	for _, a := range byIndex {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionIndex < out[j].QuestionIndex })
	return out
}

func (r *memAttemptRepo) FindByID(id uint) (*model.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[id]
	if !ok {
		return nil, repository.ErrAttemptNotFound
	}
	attempt.Answers = r.storedAnswers(id)
	return &attempt, nil
}

func (r *memAttemptRepo) FindByOwnerAndQuiz(ownerID, quizID uint) (*model.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, attempt := range r.attempts {
		if attempt.OwnerID == ownerID && attempt.QuizID == quizID {
			attempt.Answers = r.storedAnswers(id)
			return &attempt, nil
		}
	}
	return nil, repository.ErrAttemptNotFound
}

func (r *memAttemptRepo) Save(attempt *model.QuizAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSaves > 0 {
		r.failSaves--
		return errTransient
	}
	if _, ok := r.attempts[attempt.ID]; !ok {
		return repository.ErrAttemptNotFound
	}
	stored := *attempt
	stored.Answers = nil
	r.attempts[attempt.ID] = stored
	return nil
}

func (r *memAttemptRepo) ReplaceAnswers(attemptID uint, answers []model.AttemptAnswer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failReplaces > 0 {
		r.failReplaces--
		return errTransient
	}
	byIndex := r.answers[attemptID]
	if byIndex == nil {
		byIndex = make(map[int]model.AttemptAnswer)
		r.answers[attemptID] = byIndex
	}
	for _, a := range answers {
		a.AttemptID = attemptID
		byIndex[a.QuestionIndex] = a
	}
	return nil
}

func (r *memAttemptRepo) GradeWithVersion(attempt *model.QuizAttempt, expectedVersion int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.attempts[attempt.ID]
	if !ok || stored.Version != expectedVersion {
		return false, nil
	}
	stored.Status = model.AttemptGraded
	stored.Grade = attempt.Grade
	stored.Feedback = attempt.Feedback
	stored.GradedBy = attempt.GradedBy
	stored.GradedAt = attempt.GradedAt
	stored.Version = expectedVersion + 1
	r.attempts[attempt.ID] = stored
	attempt.Status = model.AttemptGraded
	attempt.Version = stored.Version
	return true, nil
}

func (r *memAttemptRepo) GradeUnconditional(attempt *model.QuizAttempt) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.attempts[attempt.ID]
	if !ok {
		return 0, repository.ErrAttemptNotFound
	}
	stored.Status = model.AttemptGraded
	stored.Grade = attempt.Grade
	stored.Feedback = attempt.Feedback
	stored.GradedBy = attempt.GradedBy
	stored.GradedAt = attempt.GradedAt
	stored.Version++
	r.attempts[attempt.ID] = stored
	attempt.Status = model.AttemptGraded
	attempt.Version = stored.Version
	return stored.Version, nil
}

// memCheckpointStore is the fast-tier double. failWrites makes every Set
// fail while positive.
type memCheckpointStore struct {
	mu         sync.Mutex
	data       map[uint][]model.AttemptAnswer
	failWrites int
}

func newMemCheckpointStore() *memCheckpointStore {
	return &memCheckpointStore{data: make(map[uint][]model.AttemptAnswer)}
}

func (s *memCheckpointStore) Get(attemptID uint) ([]model.AttemptAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := s.data[attemptID]
	out := make([]model.AttemptAnswer, len(answers))
	copy(out, answers)
	return out, nil
}

func (s *memCheckpointStore) Set(attemptID uint, answers []model.AttemptAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites > 0 {
		s.failWrites--
		return errTransient
	}
	stored := make([]model.AttemptAnswer, len(answers))
	copy(stored, answers)
	s.data[attemptID] = stored
	return nil
}

func (s *memCheckpointStore) Delete(attemptID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, attemptID)
	return nil
}

// testHarness bundles an engine with its doubles.
type testHarness struct {
	clock       *fakeClock
	quizzes     *memQuizRepo
	attempts    *memAttemptRepo
	checkpoints *memCheckpointStore
	sessions    *SessionRegistry
	engine      AttemptEngine
}

func newTestHarness() *testHarness {
	h := &testHarness{
		clock:       newFakeClock(),
		quizzes:     newMemQuizRepo(),
		attempts:    newMemAttemptRepo(),
		checkpoints: newMemCheckpointStore(),
		sessions:    NewSessionRegistry(),
	}
	h.engine = NewAttemptEngine(h.quizzes, h.attempts, h.checkpoints, h.sessions, h.clock)
	return h
}

func (h *testHarness) createQuiz(durationSeconds int) uint {
	quiz := model.Quiz{Title: "algebra basics", DurationSeconds: durationSeconds, QuestionCount: 5}
	_ = h.quizzes.Create(&quiz)
	return quiz.ID
}
