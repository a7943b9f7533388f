// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"tradegate/internal/models"
)

// DataStore defines the interface for discipline state persistence.
// Sessions, approvals and profiles are owned by their manager components;
// closed trades are a read-only mirror of the external journal store.
type DataStore interface {
	// Cooldown sessions
	CreateSession(ctx context.Context, session *models.CooldownSession) error
	GetSession(ctx context.Context, id string) (*models.CooldownSession, error)
	GetActiveSession(ctx context.Context, userID string) (*models.CooldownSession, error)
	UpdateSession(ctx context.Context, session *models.CooldownSession) error
	GetSessions(ctx context.Context, filter SessionFilter) ([]models.CooldownSession, error)

	// Trade approvals
	CreateApproval(ctx context.Context, approval *models.TradeApproval) error
	GetApproval(ctx context.Context, id string) (*models.TradeApproval, error)
	UpdateApproval(ctx context.Context, approval *models.TradeApproval) error
	GetApprovals(ctx context.Context, filter ApprovalFilter) ([]models.TradeApproval, error)

	// Discipline profiles
	GetProfile(ctx context.Context, userID string) (*models.DisciplineProfile, error)
	SaveProfile(ctx context.Context, profile *models.DisciplineProfile) error
	RecordScoreEvent(ctx context.Context, event *models.ScoreEvent) error

	// Closed trades (journal mirror, read side only in the core)
	RecentClosedTrades(ctx context.Context, userID string, since time.Time) ([]models.ClosedTrade, error)
	InsertClosedTrade(ctx context.Context, trade *models.ClosedTrade) error

	// Lifecycle
	Close() error
}

// SessionFilter represents filters for querying cooldown sessions.
type SessionFilter struct {
	UserID     string
	ActiveOnly bool
	Limit      int
}

// ApprovalFilter represents filters for querying trade approvals.
type ApprovalFilter struct {
	UserID        string
	Status        models.ApprovalStatus
	ExpiredBefore time.Time
	Limit         int
}
