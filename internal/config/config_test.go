package config

import (
	"testing"
	"time"

	"tradegate/internal/models"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config must validate: %v", err)
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"loss streak high below medium", func(c *Config) { c.Detector.LossStreakHigh = 1 }},
		{"zero overtrading window", func(c *Config) { c.Detector.OvertradingWindow = 0 }},
		{"overtrading high below medium", func(c *Config) { c.Detector.OvertradingHigh = 1 }},
		{"non-positive cooldown", func(c *Config) { c.Cooldown.Duration = 0 }},
		{"empty exercise mapping", func(c *Config) { c.Cooldown.Exercises["loss_streak"] = nil }},
		{"non-positive approval window", func(c *Config) { c.Approval.Window = 0 }},
		{"positive skip delta", func(c *Config) { c.Scoring.SkippedDelta = 5 }},
		{"negative completed delta", func(c *Config) { c.Scoring.CompletedDelta = -1 }},
		{"zero history timeout", func(c *Config) { c.History.ReadTimeout = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected a validation error")
			}
		})
	}
}

func TestRequiredExercisesFallback(t *testing.T) {
	cfg := CooldownConfig{
		Duration: 20 * time.Minute,
		Exercises: map[string][]string{
			string(models.TriggerLossStreak): {string(models.ExerciseJournal)},
		},
	}

	// Configured kinds use the configured list.
	got := cfg.RequiredExercises(models.TriggerLossStreak)
	if len(got) != 1 || got[0] != models.ExerciseJournal {
		t.Errorf("Configured mapping not honored: %v", got)
	}

	// Unconfigured kinds fall back to the default mapping.
	got = cfg.RequiredExercises(models.TriggerRevengeTrade)
	want := DefaultExerciseMapping()[string(models.TriggerRevengeTrade)]
	if len(got) != len(want) {
		t.Errorf("Expected default mapping %v, got %v", want, got)
	}

	// A kind nobody knows still yields at least one exercise.
	got = cfg.RequiredExercises(models.TriggerKind("brand_new_kind"))
	if len(got) == 0 {
		t.Error("Unknown kinds must still require an exercise")
	}
}
