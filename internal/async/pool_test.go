package async

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsSubmittedTasks(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Stop()

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		if !pool.Submit(func() {
			defer wg.Done()
			ran.Add(1)
		}) {
			wg.Done()
			t.Fatal("Submit refused with an empty queue")
		}
	}
	wg.Wait()

	if got := ran.Load(); got != 20 {
		t.Errorf("Expected 20 tasks run, got %d", got)
	}

	total, done := pool.Stats()
	if total != 20 || done != 20 {
		t.Errorf("Stats mismatch: total=%d done=%d", total, done)
	}
}

func TestWorkerPoolRejectsWhenStopped(t *testing.T) {
	pool := NewWorkerPool(1)

	if pool.Submit(func() {}) {
		t.Error("Submit must refuse before Start")
	}

	pool.Start()
	pool.Stop()

	if pool.Submit(func() {}) {
		t.Error("Submit must refuse after Stop")
	}

	// Stopping twice is safe.
	pool.Stop()
}

func TestWorkerPoolStopWaitsForInflight(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start()

	started := make(chan struct{})
	finished := make(chan struct{})
	pool.Submit(func() {
		close(started)
		time.Sleep(50 * time.Millisecond)
		close(finished)
	})

	<-started
	pool.Stop()

	select {
	case <-finished:
	default:
		t.Error("Stop returned before the in-flight task finished")
	}
}
