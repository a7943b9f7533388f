// Package models provides domain models for the discipline core.
package models

import "time"

// Direction represents the side of an order or trade.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// ClosedTrade represents a completed trade read from the journal store.
// Immutable once closed; this core never writes trades.
type ClosedTrade struct {
	ID           string
	UserID       string
	Symbol       string
	Direction    Direction
	ExitTime     time.Time
	ProfitOrLoss float64
}

// IsLoss reports whether the trade closed at a loss.
func (t ClosedTrade) IsLoss() bool {
	return t.ProfitOrLoss < 0
}

// OrderIntent represents an order a user wants approved for execution.
type OrderIntent struct {
	Symbol    string
	Direction Direction
}
