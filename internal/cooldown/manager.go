// Package cooldown owns the lifecycle of cooldown sessions.
package cooldown

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tradegate/internal/clock"
	"tradegate/internal/config"
	"tradegate/internal/errors"
	"tradegate/internal/exercise"
	"tradegate/internal/locking"
	"tradegate/internal/logging"
	"tradegate/internal/models"
	"tradegate/internal/store"
	"tradegate/internal/stream"
)

// Scorer is the slice of the discipline scorer the manager reports to.
type Scorer interface {
	SessionCompleted(ctx context.Context, userID string) error
	SessionSkipped(ctx context.Context, userID string) error
}

// Manager owns CooldownSession entities and enforces the per-user state
// machine: at most one active session per user, resolution only by
// completing every required exercise or by skipping with a penalty.
type Manager struct {
	store     store.DataStore
	cfg       config.CooldownConfig
	exercises *exercise.Registry
	locks     *locking.KeyedMutex
	clock     clock.Clock
	scorer    Scorer
	hub       *stream.Hub
	logger    zerolog.Logger
}

// NewManager creates a cooldown manager. The keyed mutex must be shared
// with the approval gate so check-then-act sequences for one user never
// interleave.
func NewManager(s store.DataStore, cfg config.CooldownConfig, reg *exercise.Registry, locks *locking.KeyedMutex, clk clock.Clock, scorer Scorer, hub *stream.Hub, logger zerolog.Logger) *Manager {
	return &Manager{
		store:     s,
		cfg:       cfg,
		exercises: reg,
		locks:     locks,
		clock:     clk,
		scorer:    scorer,
		hub:       hub,
		logger:    logger,
	}
}

// StartSession creates a session for the trigger, or returns the existing
// active session unchanged. The check-and-create is atomic per user.
func (m *Manager) StartSession(ctx context.Context, userID string, trigger models.Trigger) (*models.CooldownSession, error) {
	m.locks.Lock(userID)
	defer m.locks.Unlock(userID)

	return m.startSessionLocked(ctx, userID, trigger)
}

// StartSessionLocked is StartSession for callers that already hold the
// user's lock (the approval gate rejects and starts a session inside one
// critical section).
func (m *Manager) StartSessionLocked(ctx context.Context, userID string, trigger models.Trigger) (*models.CooldownSession, error) {
	return m.startSessionLocked(ctx, userID, trigger)
}

func (m *Manager) startSessionLocked(ctx context.Context, userID string, trigger models.Trigger) (*models.CooldownSession, error) {
	existing, err := m.store.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, errors.NewSessionError("", userID, "start", err)
	}
	if existing != nil {
		return existing, nil
	}

	now := m.clock.Now()
	session := &models.CooldownSession{
		ID:                uuid.New().String(),
		UserID:            userID,
		TriggerReason:     trigger,
		RequiredExercises: m.cfg.RequiredExercises(trigger.Kind),
		CreatedAt:         now,
		ExpiresAt:         now.Add(m.cfg.Duration),
	}

	if err := m.store.CreateSession(ctx, session); err != nil {
		return nil, errors.NewSessionError(session.ID, userID, "start", err)
	}

	logging.LogSessionEvent(m.logger, session, "started")
	if m.hub != nil {
		m.hub.Publish(stream.Event{
			Kind:    stream.EventSessionStarted,
			UserID:  userID,
			Session: session,
		})
	}

	return session, nil
}

// GetActiveSession returns the user's active session, or nil if the user
// may trade.
func (m *Manager) GetActiveSession(ctx context.Context, userID string) (*models.CooldownSession, error) {
	return m.store.GetActiveSession(ctx, userID)
}

// GetSession returns the session with the given ID.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*models.CooldownSession, error) {
	return m.store.GetSession(ctx, sessionID)
}

// CompleteExercise records a completed exercise on the session. Completing
// the same exercise twice is a no-op. When every required exercise is done
// the session transitions to Completed and the scorer is notified.
func (m *Manager) CompleteExercise(ctx context.Context, sessionID string, exerciseID models.ExerciseID, sub models.ExerciseSubmission) (*models.CooldownSession, error) {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, errors.NewSessionError(sessionID, "", "complete_exercise", err)
	}

	m.locks.Lock(session.UserID)
	defer m.locks.Unlock(session.UserID)

	// Re-read under the lock
	session, err = m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, errors.NewSessionError(sessionID, "", "complete_exercise", err)
	}

	if !session.IsActive() {
		return nil, errors.NewSessionError(sessionID, session.UserID, "complete_exercise", errors.ErrAlreadyResolved)
	}
	if !session.Requires(exerciseID) {
		return nil, errors.NewSessionError(sessionID, session.UserID, "complete_exercise",
			errors.Wrapf(errors.ErrUnknownExercise, "exercise %q not required by session", exerciseID))
	}

	if session.HasCompleted(exerciseID) {
		return session, nil
	}

	ex, err := m.exercises.Lookup(exerciseID)
	if err != nil {
		return nil, errors.NewSessionError(sessionID, session.UserID, "complete_exercise", err)
	}
	if err := ex.IsSatisfiedBy(sub); err != nil {
		return nil, errors.NewSessionError(sessionID, session.UserID, "complete_exercise", err)
	}

	session.ExercisesCompleted = append(session.ExercisesCompleted, models.ExerciseCompletion{
		ExerciseID:  exerciseID,
		CompletedAt: m.clock.Now(),
	})

	transition := "exercise_completed"
	if session.AllExercisesDone() {
		session.IsCompleted = true
		transition = "completed"
	}

	if err := m.store.UpdateSession(ctx, session); err != nil {
		return nil, errors.NewSessionError(sessionID, session.UserID, "complete_exercise", err)
	}

	logging.LogSessionEvent(m.logger, session, transition)

	if session.IsCompleted {
		if err := m.scorer.SessionCompleted(ctx, session.UserID); err != nil {
			m.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to apply completion reward")
		}
		if m.hub != nil {
			m.hub.Publish(stream.Event{
				Kind:    stream.EventSessionCompleted,
				UserID:  session.UserID,
				Session: session,
			})
		}
	}

	return session, nil
}

// SkipSession resolves an active session by accepting the discipline
// penalty. Cannot be undone.
func (m *Manager) SkipSession(ctx context.Context, sessionID string) (*models.CooldownSession, error) {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, errors.NewSessionError(sessionID, "", "skip", err)
	}

	m.locks.Lock(session.UserID)
	defer m.locks.Unlock(session.UserID)

	session, err = m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, errors.NewSessionError(sessionID, "", "skip", err)
	}

	if !session.IsActive() {
		return nil, errors.NewSessionError(sessionID, session.UserID, "skip", errors.ErrAlreadyResolved)
	}

	session.IsSkipped = true
	if err := m.store.UpdateSession(ctx, session); err != nil {
		return nil, errors.NewSessionError(sessionID, session.UserID, "skip", err)
	}

	logging.LogSessionEvent(m.logger, session, "skipped")

	if err := m.scorer.SessionSkipped(ctx, session.UserID); err != nil {
		m.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to apply skip penalty")
	}
	if m.hub != nil {
		m.hub.Publish(stream.Event{
			Kind:    stream.EventSessionSkipped,
			UserID:  session.UserID,
			Session: session,
		})
	}

	return session, nil
}
