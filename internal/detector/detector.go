// Package detector implements the behavioral trigger rules. Detection is
// pure with respect to its inputs and safe to call concurrently.
package detector

import (
	"fmt"
	"time"

	"tradegate/internal/config"
	"tradegate/internal/models"
)

// Detector evaluates a user's recent closed trades against the behavioral
// rules. Rules are evaluated independently; multiple triggers may fire on
// one call.
type Detector struct {
	cfg config.DetectorConfig
}

// New creates a detector with the given thresholds.
func New(cfg config.DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect runs every rule over the trade window. Trades must be ordered by
// exit time, most recent first. The order intent is optional; without it
// the revenge-trade rule cannot fire.
func (d *Detector) Detect(trades []models.ClosedTrade, intent *models.OrderIntent, now time.Time) []models.Trigger {
	var triggers []models.Trigger

	if t, ok := d.checkLossStreak(trades, now); ok {
		triggers = append(triggers, t)
	}
	if t, ok := d.checkOvertrading(trades, now); ok {
		triggers = append(triggers, t)
	}
	if t, ok := d.checkRevengeTrade(trades, intent, now); ok {
		triggers = append(triggers, t)
	}
	if t, ok := d.checkPerformanceDip(trades, now); ok {
		triggers = append(triggers, t)
	}

	return triggers
}

// Primary selects the single trigger used as a session's reason: highest
// severity wins, ties broken by the fixed kind priority. Returns nil for an
// empty slice.
func Primary(triggers []models.Trigger) *models.Trigger {
	if len(triggers) == 0 {
		return nil
	}
	best := triggers[0]
	for _, t := range triggers[1:] {
		if t.OutRanks(best) {
			best = t
		}
	}
	return &best
}

// checkLossStreak counts the contiguous run of losses from the most recent
// trade backwards, stopping at the first non-negative trade.
func (d *Detector) checkLossStreak(trades []models.ClosedTrade, now time.Time) (models.Trigger, bool) {
	streak := 0
	for _, t := range trades {
		if !t.IsLoss() {
			break
		}
		streak++
	}

	if streak < d.cfg.LossStreakMedium {
		return models.Trigger{}, false
	}

	severity := models.SeverityMedium
	if streak >= d.cfg.LossStreakHigh {
		severity = models.SeverityHigh
	}

	return models.Trigger{
		Kind:            models.TriggerLossStreak,
		Severity:        severity,
		Detail:          fmt.Sprintf("%d consecutive losing trades", streak),
		SuggestedAction: "Step away from the screen and review what changed between your plan and your fills",
		DetectedAt:      now,
	}, true
}

// checkOvertrading counts trades closed inside the lookback window.
func (d *Detector) checkOvertrading(trades []models.ClosedTrade, now time.Time) (models.Trigger, bool) {
	cutoff := now.Add(-d.cfg.OvertradingWindow)
	count := 0
	for _, t := range trades {
		if t.ExitTime.After(cutoff) {
			count++
		}
	}

	if count < d.cfg.OvertradingMedium {
		return models.Trigger{}, false
	}

	severity := models.SeverityMedium
	if count >= d.cfg.OvertradingHigh {
		severity = models.SeverityHigh
	}

	return models.Trigger{
		Kind:            models.TriggerOvertrading,
		Severity:        severity,
		Detail:          fmt.Sprintf("%d trades closed in the last %s", count, d.cfg.OvertradingWindow),
		SuggestedAction: "Reduce trade frequency; quality over quantity",
		DetectedAt:      now,
	}, true
}

// checkRevengeTrade fires when the most recent trade was a loss and the new
// order targets the same symbol and direction inside the revenge window.
// High severity regardless of counts.
func (d *Detector) checkRevengeTrade(trades []models.ClosedTrade, intent *models.OrderIntent, now time.Time) (models.Trigger, bool) {
	if intent == nil || len(trades) == 0 {
		return models.Trigger{}, false
	}

	last := trades[0]
	if !last.IsLoss() {
		return models.Trigger{}, false
	}
	if last.Symbol != intent.Symbol || last.Direction != intent.Direction {
		return models.Trigger{}, false
	}
	if now.Sub(last.ExitTime) > d.cfg.RevengeWindow {
		return models.Trigger{}, false
	}

	return models.Trigger{
		Kind:     models.TriggerRevengeTrade,
		Severity: models.SeverityHigh,
		Detail: fmt.Sprintf("re-entering %s %s within %s of a losing exit",
			intent.Symbol, intent.Direction, d.cfg.RevengeWindow),
		SuggestedAction: "This looks like revenge trading; wait for a fresh setup",
		DetectedAt:      now,
	}, true
}

// checkPerformanceDip averages profit and loss over the last N trades.
func (d *Detector) checkPerformanceDip(trades []models.ClosedTrade, now time.Time) (models.Trigger, bool) {
	n := d.cfg.PerformanceDipTrades
	if n <= 0 || len(trades) < n {
		return models.Trigger{}, false
	}

	sum := 0.0
	for _, t := range trades[:n] {
		sum += t.ProfitOrLoss
	}
	avg := sum / float64(n)
	if avg >= 0 {
		return models.Trigger{}, false
	}

	severity := models.SeverityMedium
	if avg >= d.cfg.PerformanceDipLow {
		severity = models.SeverityLow
	}

	return models.Trigger{
		Kind:            models.TriggerPerformanceDip,
		Severity:        severity,
		Detail:          fmt.Sprintf("average P&L over last %d trades is %.2f", n, avg),
		SuggestedAction: "Recent performance is slipping; consider smaller size",
		DetectedAt:      now,
	}, true
}
