package models

import "time"

// ApprovalStatus represents the state of a trade approval.
type ApprovalStatus string

const (
	ApprovalRequested ApprovalStatus = "REQUESTED"
	ApprovalApproved  ApprovalStatus = "APPROVED"
	ApprovalExecuted  ApprovalStatus = "EXECUTED"
	ApprovalExpired   ApprovalStatus = "EXPIRED"
	ApprovalRejected  ApprovalStatus = "REJECTED"
)

// IsTerminal reports whether the status admits no further transitions.
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalExecuted || s == ApprovalExpired || s == ApprovalRejected
}

// TradeApproval represents a short-lived authorization to execute one order.
type TradeApproval struct {
	ID        string
	UserID    string
	Symbol    string
	Direction Direction
	Status    ApprovalStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the approval window has passed.
func (a *TradeApproval) IsExpired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
