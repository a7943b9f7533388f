package clock

import (
	"context"
	"sync"
	"time"
)

// SweepFunc marks expired records for reporting. Lazy expiry at read and
// consume time is the correctness path; the sweep is an optimization and
// must stay optional.
type SweepFunc func(ctx context.Context) (int, error)

// Sweeper runs a sweep function on a fixed interval.
type Sweeper struct {
	interval time.Duration
	fn       SweepFunc
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewSweeper creates a sweeper. It does not start until Start is called.
func NewSweeper(interval time.Duration, fn SweepFunc) *Sweeper {
	return &Sweeper{
		interval: interval,
		fn:       fn,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = s.fn(ctx)
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}
