package service

import (
	"errors"
	"sync"
	"time"

	"github.com/minhlq/Quokka/config"
	"github.com/minhlq/Quokka/internal/repository"
	"github.com/rs/zerolog/log"
)

// DegradedFunc receives the non-fatal "autosave degraded" signal after the
// durable tier (or a timeout-triggered submit) exhausts its retries. The
// fast tier keeps running and answer entry is never blocked.
type DegradedFunc func(attemptID uint, cause error)

// AutosaveCoordinator drives the two checkpoint cadences over each active
// attempt's answer set, and carries the bounded-backoff retry policy for the
// durable tier and for timeout-triggered submission.
type AutosaveCoordinator interface {
	FlushLocal(attemptID uint)
	FlushDurable(attemptID uint)
	SubmitWithRetry(attemptID uint)
	OnDegraded(fn DegradedFunc)
}

type autosaveCoordinator struct {
	sessions    *SessionRegistry
	attemptRepo repository.AttemptRepository
	checkpoints repository.CheckpointStore
	engine      AttemptEngine
	retryLimit  int
	retryBase   time.Duration

	mu        sync.Mutex
	listeners []DegradedFunc
}

func NewAutosaveCoordinator(
	sessions *SessionRegistry,
	attemptRepo repository.AttemptRepository,
	checkpoints repository.CheckpointStore,
	engine AttemptEngine,
	cfg *config.Config,
) AutosaveCoordinator {
	return &autosaveCoordinator{
		sessions:    sessions,
		attemptRepo: attemptRepo,
		checkpoints: checkpoints,
		engine:      engine,
		retryLimit:  cfg.Autosave.RetryLimit,
		retryBase:   cfg.Autosave.RetryBase,
	}
}

func (c *autosaveCoordinator) OnDegraded(fn DegradedFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *autosaveCoordinator) notifyDegraded(attemptID uint, cause error) {
	c.mu.Lock()
	listeners := make([]DegradedFunc, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(attemptID, cause)
	}
}

// FlushLocal writes the current answer set to the fast checkpoint tier.
// No retry: failure is logged and swallowed, the durable tier is the source
// of truth.
func (c *autosaveCoordinator) FlushLocal(attemptID uint) {
	sess := c.sessions.Get(attemptID)
	if sess == nil || !sess.localDirty() {
		return
	}
	seq, snapshot := sess.snapshot()
	if err := c.checkpoints.Set(attemptID, snapshot); err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("Local checkpoint flush failed")
		return
	}
	sess.markLocalSaved(seq)
}

// FlushDurable pushes the full answer set to the durable store, retrying up
// to the configured bound with exponential backoff. Exhaustion degrades the
// autosave without blocking answer entry; the fast tier remains the safety
// net. Dirtiness is cleared only for the snapshot actually saved, so answers
// recorded while a flush is in flight stay dirty for the next one.
func (c *autosaveCoordinator) FlushDurable(attemptID uint) {
	sess := c.sessions.Get(attemptID)
	if sess == nil || !sess.durableDirty() {
		return
	}
	seq, snapshot := sess.snapshot()

	err := c.withBackoff(attemptID, "durable checkpoint", func() error {
		return c.attemptRepo.ReplaceAnswers(attemptID, snapshot)
	})
	if err != nil {
		c.notifyDegraded(attemptID, err)
		return
	}
	sess.markDurableSaved(seq)
}

// SubmitWithRetry is the timeout-submit recovery path: the submit call
// itself (not a checkpoint) is retried under the same bound and backoff.
// If every try fails the clock-driven retries stop and the attempt stays
// in progress, so the student's manual submit still works.
func (c *autosaveCoordinator) SubmitWithRetry(attemptID uint) {
	err := c.withBackoff(attemptID, "timeout submit", func() error {
		_, err := c.engine.Submit(attemptID, TriggerTimeout)
		if errors.Is(err, repository.ErrAttemptNotFound) || errors.Is(err, ErrInvalidState) {
			// Not transient, nothing a retry can change.
			log.Warn().Err(err).Uint("attemptID", attemptID).Msg("Timeout submit not applicable")
			return nil
		}
		return err
	})
	if err != nil {
		log.Error().Err(err).Uint("attemptID", attemptID).Msg("Timeout submit failed after retries, awaiting manual submit")
		c.notifyDegraded(attemptID, err)
	}
}

// withBackoff runs op up to retryLimit times, sleeping base*2^n between
// tries, and returns the last error if every try failed.
func (c *autosaveCoordinator) withBackoff(attemptID uint, what string, op func() error) error {
	var err error
	for attempt := 0; attempt < c.retryLimit; attempt++ {
		if attempt > 0 {
			time.Sleep(c.retryBase << (attempt - 1))
		}
		if err = op(); err == nil {
			return nil
		}
		log.Warn().Err(err).Uint("attemptID", attemptID).Int("try", attempt+1).
			Msgf("Retryable failure on %s", what)
	}
	return err
}
