package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradegate/internal/models"
)

// addStatsCommands adds discipline stats commands.
func addStatsCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "stats <user-id>",
		Short: "Show a user's discipline standing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, app, args[0])
		},
	}
	rootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, app *App, userID string) error {
	output := NewOutput(cmd)
	ctx := cmd.Context()

	profile, err := app.Scorer.Profile(ctx, userID)
	if err != nil {
		output.Error("Failed to load profile: %v", err)
		return err
	}

	active, err := app.Cooldown.GetActiveSession(ctx, userID)
	if err != nil {
		output.Error("Failed to load active session: %v", err)
		return err
	}

	if output.IsJSON() {
		return output.JSON(map[string]interface{}{
			"user_id":         profile.UserID,
			"score":           profile.Score,
			"violation_count": profile.ViolationCount,
			"active_session":  active,
		})
	}

	color.Cyan("Discipline Stats - %s", userID)
	output.Println()

	scoreLine := FormatScore(profile.Score)
	switch {
	case profile.Score >= 70:
		color.Green("  Score: %s", scoreLine)
	case profile.Score >= 40:
		color.Yellow("  Score: %s", scoreLine)
	default:
		color.Red("  Score: %s", scoreLine)
	}
	output.Printf("  Violations: %d\n", profile.ViolationCount)
	if !profile.LastUpdated.IsZero() {
		output.Dim("  Last updated: %s", profile.LastUpdated.Format("2006-01-02 15:04:05"))
	}

	output.Println()
	if active == nil {
		color.Green("  No active cooldown session")
		return nil
	}

	now := app.Clock.Now()
	color.Yellow("  Cooldown session %s (%s)", active.ID, FormatSessionState(active.State(now)))
	output.Printf("  Trigger: %s (%s)\n", active.TriggerReason.Kind, active.TriggerReason.Severity)
	output.Printf("  Required: %s\n", FormatExerciseList(active.RequiredExercises))
	output.Printf("  Completed: %s\n", FormatExerciseList(completedIDs(active)))
	if remaining := active.ExpiresAt.Sub(now); remaining > 0 {
		output.Dim("  Minimum wait remaining: %s", FormatDuration(remaining))
	}
	return nil
}

func completedIDs(s *models.CooldownSession) []models.ExerciseID {
	ids := make([]models.ExerciseID, 0, len(s.ExercisesCompleted))
	for _, c := range s.ExercisesCompleted {
		ids = append(ids, c.ExerciseID)
	}
	return ids
}
