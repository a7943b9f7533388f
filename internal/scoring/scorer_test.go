package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tradegate/internal/clock"
	"tradegate/internal/config"
	"tradegate/internal/locking"
	"tradegate/internal/models"
	"tradegate/internal/store"
	"tradegate/internal/stream"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		CompletedDelta: 2,
		SkippedDelta:   -5,
		ExecutedDelta:  0.5,
		ExpiredDelta:   -1,
	}
}

func newTestScorer(t *testing.T) (*Scorer, *store.MemoryStore, *clock.ManualClock) {
	t.Helper()
	mem := store.NewMemoryStore()
	clk := clock.NewManualClock(time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))
	s := New(mem, testScoringConfig(), locking.NewKeyedMutex(), clk, stream.NewHub(), zerolog.Nop())
	return s, mem, clk
}

func TestProfileLazyDefault(t *testing.T) {
	s, mem, _ := newTestScorer(t)
	ctx := context.Background()

	profile, err := s.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if profile.Score != models.MaxScore {
		t.Errorf("Default score must be %v, got %v", models.MaxScore, profile.Score)
	}
	if profile.ViolationCount != 0 {
		t.Errorf("Default violation count must be 0, got %d", profile.ViolationCount)
	}

	// The default is not persisted until the first adjustment.
	stored, err := mem.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if stored != nil {
		t.Error("Lazy default must not be persisted on read")
	}
}

func TestAdjustScoreClampsAndPersists(t *testing.T) {
	s, mem, clk := newTestScorer(t)
	ctx := context.Background()

	// Reward at the ceiling stays clamped.
	profile, err := s.AdjustScore(ctx, "u1", 10, models.ReasonCooldownCompleted)
	if err != nil {
		t.Fatalf("AdjustScore failed: %v", err)
	}
	if profile.Score != models.MaxScore {
		t.Errorf("Score must clamp at %v, got %v", models.MaxScore, profile.Score)
	}
	if !profile.LastUpdated.Equal(clk.Now()) {
		t.Errorf("LastUpdated not set from the clock: %v", profile.LastUpdated)
	}

	stored, err := mem.GetProfile(ctx, "u1")
	if err != nil || stored == nil {
		t.Fatalf("Profile not persisted after adjustment: %v, %v", stored, err)
	}

	// Large penalty clamps at the floor.
	profile, err = s.AdjustScore(ctx, "u1", -500, models.ReasonCooldownSkipped)
	if err != nil {
		t.Fatalf("AdjustScore failed: %v", err)
	}
	if profile.Score != models.MinScore {
		t.Errorf("Score must clamp at %v, got %v", models.MinScore, profile.Score)
	}
}

func TestSkipIncrementsViolationCount(t *testing.T) {
	s, _, _ := newTestScorer(t)
	ctx := context.Background()

	if err := s.SessionSkipped(ctx, "u1"); err != nil {
		t.Fatalf("SessionSkipped failed: %v", err)
	}
	if err := s.SessionCompleted(ctx, "u1"); err != nil {
		t.Fatalf("SessionCompleted failed: %v", err)
	}

	profile, err := s.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	// 100 - 5 + 2 = 97, one violation from the skip only.
	if profile.Score != 97 {
		t.Errorf("Expected score 97, got %v", profile.Score)
	}
	if profile.ViolationCount != 1 {
		t.Errorf("Expected 1 violation, got %d", profile.ViolationCount)
	}
}

func TestScoreEventsRecorded(t *testing.T) {
	s, mem, _ := newTestScorer(t)
	ctx := context.Background()

	if err := s.ApprovalExecuted(ctx, "u1"); err != nil {
		t.Fatalf("ApprovalExecuted failed: %v", err)
	}
	if err := s.ApprovalExpired(ctx, "u1"); err != nil {
		t.Fatalf("ApprovalExpired failed: %v", err)
	}

	events := mem.ScoreEvents("u1")
	if len(events) != 2 {
		t.Fatalf("Expected 2 score events, got %d", len(events))
	}
	if events[0].Reason != models.ReasonApprovalExecuted || events[0].Delta != 0.5 {
		t.Errorf("Unexpected first event: %+v", events[0])
	}
	if events[1].Reason != models.ReasonApprovalExpired || events[1].Delta != -1 {
		t.Errorf("Unexpected second event: %+v", events[1])
	}
}
