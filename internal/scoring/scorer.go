// Package scoring derives the discipline score from resolved cooldowns and
// terminal approvals.
package scoring

import (
	"context"

	"github.com/rs/zerolog"

	"tradegate/internal/clock"
	"tradegate/internal/config"
	"tradegate/internal/locking"
	"tradegate/internal/logging"
	"tradegate/internal/models"
	"tradegate/internal/store"
	"tradegate/internal/stream"
)

// Scorer owns the DisciplineProfile entities. All score mutations go
// through AdjustScore, a read-modify-write under per-user serialization;
// no caller ever increments a score directly.
type Scorer struct {
	store  store.DataStore
	cfg    config.ScoringConfig
	locks  *locking.KeyedMutex
	clock  clock.Clock
	hub    *stream.Hub
	logger zerolog.Logger
}

// New creates a scorer.
func New(s store.DataStore, cfg config.ScoringConfig, locks *locking.KeyedMutex, clk clock.Clock, hub *stream.Hub, logger zerolog.Logger) *Scorer {
	return &Scorer{
		store:  s,
		cfg:    cfg,
		locks:  locks,
		clock:  clk,
		hub:    hub,
		logger: logger,
	}
}

// Profile returns the user's discipline profile, lazily materializing the
// default (score 100) on first read. The default is not persisted until
// the first adjustment.
func (s *Scorer) Profile(ctx context.Context, userID string) (*models.DisciplineProfile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return models.NewDisciplineProfile(userID), nil
	}
	return profile, nil
}

// AdjustScore applies a delta to the user's score, clamped to [0, 100].
// A cooldown-skip adjustment also increments the violation count.
func (s *Scorer) AdjustScore(ctx context.Context, userID string, delta float64, reason models.ScoreReason) (*models.DisciplineProfile, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.Score = clamp(profile.Score + delta)
	if reason == models.ReasonCooldownSkipped {
		profile.ViolationCount++
	}
	profile.LastUpdated = s.clock.Now()

	if err := s.store.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	event := &models.ScoreEvent{
		UserID:    userID,
		Delta:     delta,
		Reason:    reason,
		Timestamp: profile.LastUpdated,
	}
	if err := s.store.RecordScoreEvent(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to record score event")
	}

	logging.LogScoreChange(s.logger, userID, delta, profile.Score, reason)
	if s.hub != nil {
		s.hub.Publish(stream.Event{
			Kind:   stream.EventScoreAdjusted,
			UserID: userID,
			Score:  event,
		})
	}

	return profile, nil
}

// SessionCompleted applies the completed-cooldown reward.
func (s *Scorer) SessionCompleted(ctx context.Context, userID string) error {
	_, err := s.AdjustScore(ctx, userID, s.cfg.CompletedDelta, models.ReasonCooldownCompleted)
	return err
}

// SessionSkipped applies the skip penalty and counts the violation.
func (s *Scorer) SessionSkipped(ctx context.Context, userID string) error {
	_, err := s.AdjustScore(ctx, userID, s.cfg.SkippedDelta, models.ReasonCooldownSkipped)
	return err
}

// ApprovalExecuted applies the used-approval reward.
func (s *Scorer) ApprovalExecuted(ctx context.Context, userID string) error {
	_, err := s.AdjustScore(ctx, userID, s.cfg.ExecutedDelta, models.ReasonApprovalExecuted)
	return err
}

// ApprovalExpired applies the abandoned-approval penalty.
func (s *Scorer) ApprovalExpired(ctx context.Context, userID string) error {
	_, err := s.AdjustScore(ctx, userID, s.cfg.ExpiredDelta, models.ReasonApprovalExpired)
	return err
}

func clamp(score float64) float64 {
	if score > models.MaxScore {
		return models.MaxScore
	}
	if score < models.MinScore {
		return models.MinScore
	}
	return score
}
