package models

import "time"

// Score bounds for the discipline score.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// DisciplineProfile is a decaying reputation metric derived from resolved
// cooldowns and terminal approvals. Mutated only by the scorer.
type DisciplineProfile struct {
	UserID         string
	Score          float64
	ViolationCount int
	LastUpdated    time.Time
}

// NewDisciplineProfile returns the lazily materialized default profile.
func NewDisciplineProfile(userID string) *DisciplineProfile {
	return &DisciplineProfile{
		UserID: userID,
		Score:  MaxScore,
	}
}

// ScoreReason identifies why a score adjustment was applied.
type ScoreReason string

const (
	ReasonCooldownCompleted ScoreReason = "cooldown_completed"
	ReasonCooldownSkipped   ScoreReason = "cooldown_skipped"
	ReasonApprovalExecuted  ScoreReason = "approval_executed"
	ReasonApprovalExpired   ScoreReason = "approval_expired"
)

// ScoreEvent records one applied score adjustment.
type ScoreEvent struct {
	UserID    string
	Delta     float64
	Reason    ScoreReason
	Timestamp time.Time
}
