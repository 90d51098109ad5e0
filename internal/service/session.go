package service

import (
	"sort"
	"sync"

	"github.com/minhlq/Quokka/internal/model"
)

// attemptSession is the in-memory state of one active attempt. Its mutex is
// the single mutual-exclusion point for that attempt: the student's answer
// writes, the two autosave cadences and submit all serialize behind it.
// Cross-attempt operations share nothing.
//
// The write sequence counters implement the dirty tracking of the autosave
// tiers: writeSeq bumps on every recorded answer, and each tier remembers the
// sequence it last persisted. A flush only clears dirtiness for the snapshot
// it actually saved, so an answer recorded mid-flush is never lost.
type attemptSession struct {
	mu       sync.Mutex
	attempt  *model.QuizAttempt
	answers  map[int]model.AttemptAnswer
	writeSeq uint64
	localSeq uint64
	durSeq   uint64
	done     chan struct{}
	closed   bool
}

func newAttemptSession(attempt *model.QuizAttempt, answers []model.AttemptAnswer) *attemptSession {
	byIndex := make(map[int]model.AttemptAnswer, len(answers))
	for _, a := range answers {
		byIndex[a.QuestionIndex] = a
	}
	return &attemptSession{
		attempt: attempt,
		answers: byIndex,
		done:    make(chan struct{}),
	}
}

// Done is closed the instant the attempt leaves in_progress; every timer
// watching this attempt exits on it.
func (s *attemptSession) Done() <-chan struct{} {
	return s.done
}

func (s *attemptSession) close() {
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// snapshotLocked copies the current answer set, ordered by question index.
// Caller must hold s.mu.
func (s *attemptSession) snapshotLocked() []model.AttemptAnswer {
	out := make([]model.AttemptAnswer, 0, len(s.answers))
	for _, a := range s.answers {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionIndex < out[j].QuestionIndex })
	return out
}

// snapshot returns the answer set together with the write sequence it
// captures, for flushers to mark saved afterwards.
func (s *attemptSession) snapshot() (uint64, []model.AttemptAnswer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeSeq, s.snapshotLocked()
}

func (s *attemptSession) localDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeSeq != s.localSeq
}

func (s *attemptSession) durableDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeSeq != s.durSeq
}

func (s *attemptSession) markLocalSaved(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.localSeq {
		s.localSeq = seq
	}
}

func (s *attemptSession) markDurableSaved(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.durSeq {
		s.durSeq = seq
	}
}

// SessionRegistry tracks the in-memory sessions of attempts currently being
// taken, one per attempt id.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[uint]*attemptSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[uint]*attemptSession)}
}

func (r *SessionRegistry) Get(attemptID uint) *attemptSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[attemptID]
}

// GetOrPut registers the candidate session unless one already exists, and
// returns whichever is registered. Two concurrent resumes of the same attempt
// end up sharing one session.
func (r *SessionRegistry) GetOrPut(attemptID uint, candidate *attemptSession) *attemptSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[attemptID]; ok {
		return existing
	}
	r.sessions[attemptID] = candidate
	return candidate
}

func (r *SessionRegistry) Remove(attemptID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, attemptID)
}
