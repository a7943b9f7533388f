// Package history provides the read-only view over a user's closed trades.
// The journal store itself is an external collaborator; the core only
// consumes this query interface.
package history

import (
	"context"
	"time"

	"tradegate/internal/clock"
	"tradegate/internal/errors"
	"tradegate/internal/models"
	"tradegate/internal/resilience"
	"tradegate/internal/store"
)

// Reader reads a user's recent closed trades, ordered by exit time,
// most recent first.
type Reader interface {
	RecentClosedTrades(ctx context.Context, userID string, window time.Duration) ([]models.ClosedTrade, error)
}

// StoreReader adapts the persistence store to the Reader interface.
type StoreReader struct {
	store store.DataStore
	clock clock.Clock
}

// NewStoreReader creates a reader backed by the data store.
func NewStoreReader(s store.DataStore, clk clock.Clock) *StoreReader {
	return &StoreReader{store: s, clock: clk}
}

// RecentClosedTrades returns trades closed inside the window.
func (r *StoreReader) RecentClosedTrades(ctx context.Context, userID string, window time.Duration) ([]models.ClosedTrade, error) {
	since := r.clock.Now().Add(-window)
	return r.store.RecentClosedTrades(ctx, userID, since)
}

// ResilientReader wraps a Reader with a bounded timeout and a circuit
// breaker. Timeouts and open-circuit rejections surface as
// ErrTemporarilyUnavailable, the only retryable error class; they are never
// treated as a detection result.
type ResilientReader struct {
	inner   Reader
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

// NewResilientReader wraps the given reader.
func NewResilientReader(inner Reader, timeout time.Duration) *ResilientReader {
	return &ResilientReader{
		inner:   inner,
		breaker: resilience.NewCircuitBreaker("trade-history", resilience.DefaultCircuitBreakerConfig()),
		timeout: timeout,
	}
}

// RecentClosedTrades reads through the circuit breaker with a deadline.
func (r *ResilientReader) RecentClosedTrades(ctx context.Context, userID string, window time.Duration) ([]models.ClosedTrade, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	trades, err := resilience.ExecuteWithResult(r.breaker, ctx, func() ([]models.ClosedTrade, error) {
		return r.inner.RecentClosedTrades(ctx, userID, window)
	})
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded),
			errors.Is(err, context.Canceled),
			errors.Is(err, resilience.ErrCircuitOpen):
			return nil, errors.NewHistoryError(userID, "journal store unavailable",
				errors.Wrap(errors.ErrTemporarilyUnavailable, err.Error()))
		default:
			return nil, errors.NewHistoryError(userID, "journal store read failed",
				errors.Wrap(errors.ErrTemporarilyUnavailable, err.Error()))
		}
	}
	return trades, nil
}

// BreakerState exposes the circuit state for health reporting.
func (r *ResilientReader) BreakerState() resilience.CircuitState {
	return r.breaker.State()
}
