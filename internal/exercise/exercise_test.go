package exercise

import (
	"strings"
	"testing"

	"tradegate/internal/errors"
	"tradegate/internal/models"
)

func TestDefaultRegistryCatalog(t *testing.T) {
	reg := DefaultRegistry()

	want := []models.ExerciseID{
		models.ExerciseBreathing,
		models.ExerciseJournal,
		models.ExercisePastMistakes,
		models.ExerciseRiskVisualization,
	}
	ids := reg.IDs()
	if len(ids) != len(want) {
		t.Fatalf("Expected %d exercises, got %d", len(want), len(ids))
	}

	for _, id := range want {
		if _, err := reg.Lookup(id); err != nil {
			t.Errorf("Lookup(%s) failed: %v", id, err)
		}
	}

	if _, err := reg.Lookup("meditation"); !errors.Is(err, errors.ErrUnknownExercise) {
		t.Errorf("Expected ErrUnknownExercise, got %v", err)
	}
}

func TestBreathingRequiresMinimumDuration(t *testing.T) {
	b := NewBreathing(60)

	if err := b.IsSatisfiedBy(models.ExerciseSubmission{DurationSeconds: 59}); !errors.Is(err, errors.ErrExerciseNotSatisfied) {
		t.Errorf("Expected ErrExerciseNotSatisfied for short duration, got %v", err)
	}
	if err := b.IsSatisfiedBy(models.ExerciseSubmission{DurationSeconds: 60}); err != nil {
		t.Errorf("Exact minimum must satisfy, got %v", err)
	}
}

func TestJournalRequiresMinimumLength(t *testing.T) {
	j := NewJournal(80)

	if err := j.IsSatisfiedBy(models.ExerciseSubmission{Text: "too short"}); !errors.Is(err, errors.ErrExerciseNotSatisfied) {
		t.Errorf("Expected ErrExerciseNotSatisfied for short text, got %v", err)
	}
	if err := j.IsSatisfiedBy(models.ExerciseSubmission{Text: strings.Repeat("x", 80)}); err != nil {
		t.Errorf("Minimum length must satisfy, got %v", err)
	}
}

func TestAcknowledgementExercises(t *testing.T) {
	p := NewPastMistakes()
	if err := p.IsSatisfiedBy(models.ExerciseSubmission{}); !errors.Is(err, errors.ErrExerciseNotSatisfied) {
		t.Errorf("Expected ErrExerciseNotSatisfied without acknowledgement, got %v", err)
	}
	if err := p.IsSatisfiedBy(models.ExerciseSubmission{Acknowledged: true}); err != nil {
		t.Errorf("Acknowledged review must satisfy, got %v", err)
	}

	r := NewRiskVisualization()
	if err := r.IsSatisfiedBy(models.ExerciseSubmission{Acknowledged: true}); !errors.Is(err, errors.ErrExerciseNotSatisfied) {
		t.Errorf("Risk visualization needs a position size, got %v", err)
	}
	if err := r.IsSatisfiedBy(models.ExerciseSubmission{Acknowledged: true, PositionSize: 100}); err != nil {
		t.Errorf("Acknowledged with position size must satisfy, got %v", err)
	}
}
