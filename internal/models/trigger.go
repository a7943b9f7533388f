package models

import "time"

// TriggerKind represents a detected behavioral risk pattern.
type TriggerKind string

const (
	TriggerLossStreak        TriggerKind = "loss_streak"
	TriggerOvertrading       TriggerKind = "overtrading"
	TriggerRevengeTrade      TriggerKind = "revenge_trade"
	TriggerPerformanceDip    TriggerKind = "performance_dip"
	TriggerUnauthorizedTrade TriggerKind = "unauthorized_trade"
	TriggerOutsideHours      TriggerKind = "outside_hours"
	TriggerManual            TriggerKind = "manual"
)

// kindPriority is the fixed tie-break order used when triggers of equal
// severity fire together. Lower value wins.
var kindPriority = map[TriggerKind]int{
	TriggerLossStreak:        0,
	TriggerOvertrading:       1,
	TriggerRevengeTrade:      2,
	TriggerPerformanceDip:    3,
	TriggerUnauthorizedTrade: 4,
	TriggerOutsideHours:      5,
	TriggerManual:            6,
}

// Priority returns the tie-break rank of the kind.
func (k TriggerKind) Priority() int {
	if p, ok := kindPriority[k]; ok {
		return p
	}
	return len(kindPriority)
}

// Severity represents how serious a trigger is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank returns the numeric ordering of the severity. Higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Trigger represents a detected behavioral risk pattern. Triggers are
// ephemeral: produced by the detector and folded into the cooldown session
// they create, never persisted on their own.
type Trigger struct {
	Kind            TriggerKind
	Severity        Severity
	Detail          string
	SuggestedAction string
	DetectedAt      time.Time
}

// OutRanks reports whether t should win over other when selecting the
// primary trigger: higher severity first, then fixed kind priority.
func (t Trigger) OutRanks(other Trigger) bool {
	if t.Severity.Rank() != other.Severity.Rank() {
		return t.Severity.Rank() > other.Severity.Rank()
	}
	return t.Kind.Priority() < other.Kind.Priority()
}
