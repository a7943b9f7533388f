package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestManualClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	clk := NewManualClock(start)

	if !clk.Now().Equal(start) {
		t.Errorf("Expected %v, got %v", start, clk.Now())
	}

	clk.Advance(3 * time.Minute)
	if want := start.Add(3 * time.Minute); !clk.Now().Equal(want) {
		t.Errorf("Expected %v after advance, got %v", want, clk.Now())
	}

	clk.Set(start)
	if !clk.Now().Equal(start) {
		t.Errorf("Set did not move the clock back: %v", clk.Now())
	}
}

func TestSweeperRunsAndStops(t *testing.T) {
	var sweeps atomic.Int32
	s := NewSweeper(5*time.Millisecond, func(ctx context.Context) (int, error) {
		sweeps.Add(1)
		return 0, nil
	})

	s.Start(context.Background())

	deadline := time.After(time.Second)
	for sweeps.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("Sweeper never ticked")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	s.Stop()
	after := sweeps.Load()
	time.Sleep(20 * time.Millisecond)
	if sweeps.Load() != after {
		t.Error("Sweeper kept running after Stop")
	}

	// Stopping twice is safe.
	s.Stop()
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var sweeps atomic.Int32
	s := NewSweeper(5*time.Millisecond, func(ctx context.Context) (int, error) {
		sweeps.Add(1)
		return 0, nil
	})
	s.Start(ctx)

	cancel()
	time.Sleep(20 * time.Millisecond)
	after := sweeps.Load()
	time.Sleep(20 * time.Millisecond)
	if sweeps.Load() != after {
		t.Error("Sweeper kept running after context cancel")
	}

	s.Stop()
}
