package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	apperrors "tradegate/internal/errors"
	"tradegate/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tradegate.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSession(id, userID string, created time.Time) *models.CooldownSession {
	return &models.CooldownSession{
		ID:     id,
		UserID: userID,
		TriggerReason: models.Trigger{
			Kind:       models.TriggerLossStreak,
			Severity:   models.SeverityMedium,
			Detail:     "2 consecutive losing trades",
			DetectedAt: created,
		},
		RequiredExercises: []models.ExerciseID{models.ExerciseBreathing, models.ExerciseJournal},
		CreatedAt:         created,
		ExpiresAt:         created.Add(20 * time.Minute),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	session := sampleSession("s1", "u1", created)
	if err := s.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.UserID != "u1" || got.TriggerReason.Kind != models.TriggerLossStreak {
		t.Errorf("Round trip mangled session: %+v", got)
	}
	if len(got.RequiredExercises) != 2 {
		t.Errorf("Required exercises not preserved: %v", got.RequiredExercises)
	}
	if !got.ExpiresAt.Equal(session.ExpiresAt) {
		t.Errorf("ExpiresAt drifted: %v != %v", got.ExpiresAt, session.ExpiresAt)
	}

	// Mutation round trip including completions.
	got.ExercisesCompleted = append(got.ExercisesCompleted, models.ExerciseCompletion{
		ExerciseID:  models.ExerciseBreathing,
		CompletedAt: created.Add(5 * time.Minute),
	})
	got.IsCompleted = true
	if err := s.UpdateSession(ctx, got); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	updated, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession after update failed: %v", err)
	}
	if !updated.IsCompleted || len(updated.ExercisesCompleted) != 1 {
		t.Errorf("Update not persisted: %+v", updated)
	}
}

func TestGetActiveSessionFiltersResolved(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	if active, err := s.GetActiveSession(ctx, "u1"); err != nil || active != nil {
		t.Fatalf("Expected no active session, got %v, %v", active, err)
	}

	resolved := sampleSession("s1", "u1", created)
	resolved.IsSkipped = true
	if err := s.CreateSession(ctx, resolved); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	current := sampleSession("s2", "u1", created.Add(time.Hour))
	if err := s.CreateSession(ctx, current); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	active, err := s.GetActiveSession(ctx, "u1")
	if err != nil {
		t.Fatalf("GetActiveSession failed: %v", err)
	}
	if active == nil || active.ID != "s2" {
		t.Errorf("Expected s2 active, got %+v", active)
	}

	// Other users never leak in.
	if other, _ := s.GetActiveSession(ctx, "u2"); other != nil {
		t.Errorf("Cross-user leak: %+v", other)
	}
}

func TestApprovalRoundTripAndNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	if _, err := s.GetApproval(ctx, "missing"); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	approval := &models.TradeApproval{
		ID:        "a1",
		UserID:    "u1",
		Symbol:    "MSFT",
		Direction: models.DirectionLong,
		Status:    models.ApprovalApproved,
		CreatedAt: created,
		ExpiresAt: created.Add(3 * time.Minute),
	}
	if err := s.CreateApproval(ctx, approval); err != nil {
		t.Fatalf("CreateApproval failed: %v", err)
	}

	got, err := s.GetApproval(ctx, "a1")
	if err != nil {
		t.Fatalf("GetApproval failed: %v", err)
	}
	if got.Status != models.ApprovalApproved || got.Symbol != "MSFT" {
		t.Errorf("Round trip mangled approval: %+v", got)
	}

	got.Status = models.ApprovalExecuted
	if err := s.UpdateApproval(ctx, got); err != nil {
		t.Fatalf("UpdateApproval failed: %v", err)
	}
	updated, _ := s.GetApproval(ctx, "a1")
	if updated.Status != models.ApprovalExecuted {
		t.Errorf("Status update not persisted: %s", updated.Status)
	}

	// Updating a missing row reports not found.
	missing := *approval
	missing.ID = "nope"
	if err := s.UpdateApproval(ctx, &missing); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGetApprovalsExpiredFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	stale := &models.TradeApproval{
		ID: "a1", UserID: "u1", Symbol: "MSFT", Direction: models.DirectionLong,
		Status: models.ApprovalApproved, CreatedAt: created, ExpiresAt: created.Add(3 * time.Minute),
	}
	fresh := &models.TradeApproval{
		ID: "a2", UserID: "u1", Symbol: "MSFT", Direction: models.DirectionLong,
		Status: models.ApprovalApproved, CreatedAt: created, ExpiresAt: created.Add(time.Hour),
	}
	for _, a := range []*models.TradeApproval{stale, fresh} {
		if err := s.CreateApproval(ctx, a); err != nil {
			t.Fatalf("CreateApproval failed: %v", err)
		}
	}

	got, err := s.GetApprovals(ctx, ApprovalFilter{
		Status:        models.ApprovalApproved,
		ExpiredBefore: created.Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("GetApprovals failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("Expected only the stale approval, got %+v", got)
	}
}

func TestProfileUpsertAndScoreEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if profile, err := s.GetProfile(ctx, "u1"); err != nil || profile != nil {
		t.Fatalf("Expected nil profile for unknown user, got %v, %v", profile, err)
	}

	p := &models.DisciplineProfile{
		UserID:      "u1",
		Score:       95,
		LastUpdated: time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
	}
	if err := s.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	p.Score = 90
	p.ViolationCount = 1
	if err := s.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile upsert failed: %v", err)
	}

	got, err := s.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got.Score != 90 || got.ViolationCount != 1 {
		t.Errorf("Upsert not applied: %+v", got)
	}

	if err := s.RecordScoreEvent(ctx, &models.ScoreEvent{
		UserID:    "u1",
		Delta:     -5,
		Reason:    models.ReasonCooldownSkipped,
		Timestamp: p.LastUpdated,
	}); err != nil {
		t.Fatalf("RecordScoreEvent failed: %v", err)
	}
}

func TestRecentClosedTradesOrderingAndWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	for i, offset := range []time.Duration{-time.Minute, -2 * time.Hour, -30 * time.Minute} {
		if err := s.InsertClosedTrade(ctx, &models.ClosedTrade{
			ID:           "t" + string(rune('1'+i)),
			UserID:       "u1",
			Symbol:       "AAPL",
			Direction:    models.DirectionLong,
			ExitTime:     base.Add(offset),
			ProfitOrLoss: -10,
		}); err != nil {
			t.Fatalf("InsertClosedTrade failed: %v", err)
		}
	}

	trades, err := s.RecentClosedTrades(ctx, "u1", base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("RecentClosedTrades failed: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("Expected 2 trades inside the window, got %d", len(trades))
	}
	if !trades[0].ExitTime.After(trades[1].ExitTime) {
		t.Error("Trades must be ordered most recent first")
	}
}
