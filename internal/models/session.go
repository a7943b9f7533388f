package models

import "time"

// ExerciseID identifies a remediation exercise in the catalog.
type ExerciseID string

const (
	ExerciseBreathing         ExerciseID = "breathing"
	ExerciseJournal           ExerciseID = "journal"
	ExercisePastMistakes      ExerciseID = "past_mistakes"
	ExerciseRiskVisualization ExerciseID = "risk_visualization"
)

// ExerciseCompletion records one completed exercise within a session.
type ExerciseCompletion struct {
	ExerciseID  ExerciseID
	CompletedAt time.Time
}

// ExerciseSubmission carries the user's input for an exercise attempt.
// Which fields matter depends on the exercise kind.
type ExerciseSubmission struct {
	DurationSeconds int
	Text            string
	Acknowledged    bool
	PositionSize    float64
}

// CooldownSession represents a mandatory pause with remediation exercises.
type CooldownSession struct {
	ID                 string
	UserID             string
	TriggerReason      Trigger
	RequiredExercises  []ExerciseID
	ExercisesCompleted []ExerciseCompletion
	CreatedAt          time.Time
	ExpiresAt          time.Time
	IsCompleted        bool
	IsSkipped          bool
}

// IsActive reports whether the session still blocks new approvals.
// An expired-but-incomplete session keeps blocking: discipline violations
// resolve by action, not by the clock.
func (s *CooldownSession) IsActive() bool {
	return !s.IsCompleted && !s.IsSkipped
}

// IsExpired reports whether the minimum-wait floor has passed.
func (s *CooldownSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// HasCompleted reports whether the given exercise has already been completed.
func (s *CooldownSession) HasCompleted(id ExerciseID) bool {
	for _, c := range s.ExercisesCompleted {
		if c.ExerciseID == id {
			return true
		}
	}
	return false
}

// Requires reports whether the given exercise is part of the required set.
func (s *CooldownSession) Requires(id ExerciseID) bool {
	for _, r := range s.RequiredExercises {
		if r == id {
			return true
		}
	}
	return false
}

// AllExercisesDone reports whether every required exercise has been completed.
func (s *CooldownSession) AllExercisesDone() bool {
	for _, r := range s.RequiredExercises {
		if !s.HasCompleted(r) {
			return false
		}
	}
	return true
}

// SessionState represents the per-user cooldown state machine position.
type SessionState string

const (
	SessionStateNone      SessionState = "NO_ACTIVE_SESSION"
	SessionStateActive    SessionState = "ACTIVE"
	SessionStateCompleted SessionState = "COMPLETED"
	SessionStateSkipped   SessionState = "SKIPPED"
	SessionStateBlocked   SessionState = "BLOCKED" // expired with exercises incomplete
)

// State returns the state machine position of the session at the given time.
func (s *CooldownSession) State(now time.Time) SessionState {
	switch {
	case s.IsCompleted:
		return SessionStateCompleted
	case s.IsSkipped:
		return SessionStateSkipped
	case s.IsExpired(now):
		return SessionStateBlocked
	default:
		return SessionStateActive
	}
}
