package service

import (
	"sync"
	"time"

	"github.com/minhlq/Quokka/config"
	"github.com/rs/zerolog/log"
)

// AttemptScheduler owns the recurring timers of each active attempt: a
// countdown tick that detects deadline expiry, and the two autosave
// cadences. One goroutine per attempt, started when the attempt starts and
// stopped by the session's done channel the instant its status leaves
// in_progress.
//
// Expiry is detected by comparing the engine's remaining time against zero
// on every tick, never by counting ticks, so a delayed or coalesced tick
// (suspended tab, laptop sleep) still triggers exactly one submission.
type AttemptScheduler struct {
	engine   AttemptEngine
	autosave AutosaveCoordinator
	sessions *SessionRegistry
	cfg      config.Autosave

	mu     sync.Mutex
	active map[uint]struct{}
}

func NewAttemptScheduler(
	engine AttemptEngine,
	autosave AutosaveCoordinator,
	sessions *SessionRegistry,
	cfg *config.Config,
) *AttemptScheduler {
	return &AttemptScheduler{
		engine:   engine,
		autosave: autosave,
		sessions: sessions,
		cfg:      cfg.Autosave,
		active:   make(map[uint]struct{}),
	}
}

// Track starts the timers for an attempt. Tracking an attempt twice, or one
// with no live session, is a no-op.
func (s *AttemptScheduler) Track(attemptID uint) {
	sess := s.sessions.Get(attemptID)
	if sess == nil {
		return
	}
	s.mu.Lock()
	if _, ok := s.active[attemptID]; ok {
		s.mu.Unlock()
		return
	}
	s.active[attemptID] = struct{}{}
	s.mu.Unlock()

	go s.run(attemptID, sess.Done())
}

func (s *AttemptScheduler) run(attemptID uint, done <-chan struct{}) {
	defer func() {
		s.mu.Lock()
		delete(s.active, attemptID)
		s.mu.Unlock()
	}()

	countdown := time.NewTicker(s.cfg.TickInterval)
	local := time.NewTicker(s.cfg.LocalInterval)
	durable := time.NewTicker(s.cfg.DurableInterval)
	defer countdown.Stop()
	defer local.Stop()
	defer durable.Stop()

	log.Debug().Uint("attemptID", attemptID).Msg("Attempt timers started")
	for {
		select {
		case <-done:
			log.Debug().Uint("attemptID", attemptID).Msg("Attempt timers cancelled")
			return
		case <-countdown.C:
			remaining, err := s.engine.RemainingTime(attemptID)
			if err != nil {
				log.Warn().Err(err).Uint("attemptID", attemptID).Msg("Countdown tick could not read remaining time")
				return
			}
			if remaining <= 0 {
				s.autosave.SubmitWithRetry(attemptID)
				return
			}
		case <-local.C:
			s.autosave.FlushLocal(attemptID)
		case <-durable.C:
			s.autosave.FlushDurable(attemptID)
		}
	}
}
