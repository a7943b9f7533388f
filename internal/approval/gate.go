// Package approval owns trade approvals: short-lived authorizations that
// every order must obtain before it may reach the broker.
package approval

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tradegate/internal/clock"
	"tradegate/internal/config"
	"tradegate/internal/cooldown"
	"tradegate/internal/detector"
	"tradegate/internal/errors"
	"tradegate/internal/history"
	"tradegate/internal/locking"
	"tradegate/internal/logging"
	"tradegate/internal/models"
	"tradegate/internal/store"
	"tradegate/internal/stream"
)

// Scorer is the slice of the discipline scorer the gate reports to.
type Scorer interface {
	ApprovalExecuted(ctx context.Context, userID string) error
	ApprovalExpired(ctx context.Context, userID string) error
}

// Rejection explains why an approval was refused: the trigger that fired
// and the session now blocking the user.
type Rejection struct {
	Trigger models.Trigger
	Session *models.CooldownSession
}

// Gate issues, validates and expires trade approvals. It consults the
// cooldown manager before issuing and runs trigger detection on every
// request. Rejections are side-effecting: a refused request still starts
// the cooldown session, because the goal is behavior correction, not
// silent retries.
type Gate struct {
	store    store.DataStore
	cfg      config.ApprovalConfig
	history  history.Reader
	window   config.HistoryConfig
	detector *detector.Detector
	cooldown *cooldown.Manager
	scorer   Scorer
	locks    *locking.KeyedMutex
	clock    clock.Clock
	hub      *stream.Hub
	logger   zerolog.Logger
}

// NewGate creates an approval gate. The keyed mutex must be the same
// instance the cooldown manager uses.
func NewGate(s store.DataStore, cfg config.ApprovalConfig, histCfg config.HistoryConfig, reader history.Reader, det *detector.Detector, cd *cooldown.Manager, scorer Scorer, locks *locking.KeyedMutex, clk clock.Clock, hub *stream.Hub, logger zerolog.Logger) *Gate {
	return &Gate{
		store:    s,
		cfg:      cfg,
		history:  reader,
		window:   histCfg,
		detector: det,
		cooldown: cd,
		scorer:   scorer,
		locks:    locks,
		clock:    clk,
		hub:      hub,
		logger:   logger,
	}
}

// RequestApproval runs the full gate sequence for one order intent.
// Exactly one of the returns is non-nil: an approved TradeApproval, or a
// Rejection carrying the blocking session.
func (g *Gate) RequestApproval(ctx context.Context, userID string, intent models.OrderIntent) (*models.TradeApproval, *Rejection, error) {
	g.locks.Lock(userID)
	defer g.locks.Unlock(userID)

	// An unresolved session rejects immediately, without re-running
	// detection.
	active, err := g.cooldown.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, nil, errors.NewApprovalError("", userID, "request", err)
	}
	if active != nil {
		return nil, &Rejection{Trigger: active.TriggerReason, Session: active}, nil
	}

	trades, err := g.history.RecentClosedTrades(ctx, userID, g.window.Window)
	if err != nil {
		// History outage is a retryable infrastructure failure, never a
		// detection result.
		return nil, nil, err
	}

	now := g.clock.Now()
	triggers := g.detector.Detect(trades, &intent, now)
	if primary := detector.Primary(triggers); primary != nil {
		logging.LogTrigger(g.logger, userID, *primary)
		g.publishWarnings(userID, triggers)

		session, err := g.cooldown.StartSessionLocked(ctx, userID, *primary)
		if err != nil {
			return nil, nil, errors.NewApprovalError("", userID, "request", err)
		}
		return nil, &Rejection{Trigger: *primary, Session: session}, nil
	}

	approval := &models.TradeApproval{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    intent.Symbol,
		Direction: intent.Direction,
		Status:    models.ApprovalApproved,
		CreatedAt: now,
		ExpiresAt: now.Add(g.cfg.Window),
	}
	if err := g.store.CreateApproval(ctx, approval); err != nil {
		return nil, nil, errors.NewApprovalError(approval.ID, userID, "request", err)
	}

	logging.LogApprovalEvent(g.logger, approval, "issued")
	if g.hub != nil {
		g.hub.Publish(stream.Event{
			Kind:     stream.EventApprovalIssued,
			UserID:   userID,
			Approval: approval,
		})
	}

	return approval, nil, nil
}

// ConsumeApproval marks an approval executed. Called by the order
// execution collaborator immediately before placing the order. Expiry is
// evaluated lazily here: a stale approval transitions to Expired as a side
// effect and the abandoned-approval penalty is applied exactly once.
func (g *Gate) ConsumeApproval(ctx context.Context, approvalID string) (*models.TradeApproval, error) {
	approval, err := g.store.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, errors.NewApprovalError(approvalID, "", "consume", err)
	}

	g.locks.Lock(approval.UserID)
	defer g.locks.Unlock(approval.UserID)

	// Re-read under the lock
	approval, err = g.store.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, errors.NewApprovalError(approvalID, "", "consume", err)
	}

	switch approval.Status {
	case models.ApprovalExecuted:
		return nil, errors.NewApprovalError(approvalID, approval.UserID, "consume", errors.ErrAlreadyConsumed)
	case models.ApprovalExpired, models.ApprovalRejected:
		return nil, errors.NewApprovalError(approvalID, approval.UserID, "consume", errors.ErrExpired)
	}

	now := g.clock.Now()
	if approval.IsExpired(now) {
		if err := g.expireLocked(ctx, approval); err != nil {
			return nil, err
		}
		return nil, errors.NewApprovalError(approvalID, approval.UserID, "consume", errors.ErrExpired)
	}

	approval.Status = models.ApprovalExecuted
	if err := g.store.UpdateApproval(ctx, approval); err != nil {
		return nil, errors.NewApprovalError(approvalID, approval.UserID, "consume", err)
	}

	logging.LogApprovalEvent(g.logger, approval, "executed")
	if err := g.scorer.ApprovalExecuted(ctx, approval.UserID); err != nil {
		g.logger.Error().Err(err).Str("approval_id", approvalID).Msg("Failed to apply execution reward")
	}
	if g.hub != nil {
		g.hub.Publish(stream.Event{
			Kind:     stream.EventApprovalConsumed,
			UserID:   approval.UserID,
			Approval: approval,
		})
	}

	return approval, nil
}

// GetApproval returns the approval with the given ID, lazily expiring it
// if its window has passed.
func (g *Gate) GetApproval(ctx context.Context, approvalID string) (*models.TradeApproval, error) {
	approval, err := g.store.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, err
	}

	if approval.Status == models.ApprovalApproved && approval.IsExpired(g.clock.Now()) {
		g.locks.Lock(approval.UserID)
		defer g.locks.Unlock(approval.UserID)

		approval, err = g.store.GetApproval(ctx, approvalID)
		if err != nil {
			return nil, err
		}
		if approval.Status == models.ApprovalApproved && approval.IsExpired(g.clock.Now()) {
			if err := g.expireLocked(ctx, approval); err != nil {
				return nil, err
			}
		}
	}
	return approval, nil
}

// SweepExpired transitions stale approved records to Expired for reporting.
// Lazy expiry at consume time remains the correctness path; the sweep only
// keeps listings and penalties timely for approvals nobody touches again.
func (g *Gate) SweepExpired(ctx context.Context) (int, error) {
	now := g.clock.Now()
	stale, err := g.store.GetApprovals(ctx, store.ApprovalFilter{
		Status:        models.ApprovalApproved,
		ExpiredBefore: now,
	})
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range stale {
		approval := stale[i]
		g.locks.Lock(approval.UserID)
		current, err := g.store.GetApproval(ctx, approval.ID)
		if err == nil && current.Status == models.ApprovalApproved && current.IsExpired(now) {
			if err := g.expireLocked(ctx, current); err == nil {
				swept++
			}
		}
		g.locks.Unlock(approval.UserID)
	}
	return swept, nil
}

// expireLocked transitions an approval to Expired and applies the
// abandoned-approval penalty once. Caller must hold the user's lock.
func (g *Gate) expireLocked(ctx context.Context, approval *models.TradeApproval) error {
	approval.Status = models.ApprovalExpired
	if err := g.store.UpdateApproval(ctx, approval); err != nil {
		return errors.NewApprovalError(approval.ID, approval.UserID, "expire", err)
	}

	logging.LogApprovalEvent(g.logger, approval, "expired")
	if err := g.scorer.ApprovalExpired(ctx, approval.UserID); err != nil {
		g.logger.Error().Err(err).Str("approval_id", approval.ID).Msg("Failed to apply expiry penalty")
	}
	if g.hub != nil {
		g.hub.Publish(stream.Event{
			Kind:     stream.EventApprovalExpired,
			UserID:   approval.UserID,
			Approval: approval,
		})
	}

	return nil
}

// publishWarnings surfaces every fired trigger as informational warnings.
func (g *Gate) publishWarnings(userID string, triggers []models.Trigger) {
	if g.hub == nil {
		return
	}
	for i := range triggers {
		g.hub.Publish(stream.Event{
			Kind:    stream.EventTriggerWarning,
			UserID:  userID,
			Trigger: &triggers[i],
		})
	}
}
