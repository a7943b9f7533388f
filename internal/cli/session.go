package cli

import (
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradegate/internal/models"
)

// addSessionCommands adds cooldown session commands.
func addSessionCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Cooldown session management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a cooldown session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionShow(cmd, app, args[0])
		},
	})

	completeCmd := &cobra.Command{
		Use:   "complete <session-id> <exercise-id>",
		Short: "Complete a remediation exercise",
		Long: `Submits an exercise completion against an active cooldown session.

Exercise input depends on the kind: breathing takes --duration seconds,
journal takes --text, past mistakes takes --ack, risk visualization takes
--position-size.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionComplete(cmd, app, args[0], args[1])
		},
	}
	completeCmd.Flags().Int("duration", 0, "seconds spent on the exercise")
	completeCmd.Flags().String("text", "", "journal text")
	completeCmd.Flags().Bool("ack", false, "acknowledge the review")
	completeCmd.Flags().String("position-size", "", "intended position size")
	cmd.AddCommand(completeCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "skip <session-id>",
		Short: "Skip a cooldown session and accept the penalty",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionSkip(cmd, app, args[0])
		},
	})

	rootCmd.AddCommand(cmd)
}

func runSessionShow(cmd *cobra.Command, app *App, sessionID string) error {
	output := NewOutput(cmd)

	session, err := app.Cooldown.GetSession(cmd.Context(), sessionID)
	if err != nil {
		output.Error("Failed to load session: %v", err)
		return err
	}

	if output.IsJSON() {
		return output.JSON(session)
	}

	printSession(output, app, session)
	return nil
}

func runSessionComplete(cmd *cobra.Command, app *App, sessionID, exerciseID string) error {
	output := NewOutput(cmd)

	duration, _ := cmd.Flags().GetInt("duration")
	text, _ := cmd.Flags().GetString("text")
	ack, _ := cmd.Flags().GetBool("ack")
	posStr, _ := cmd.Flags().GetString("position-size")

	var posSize float64
	if posStr != "" {
		var err error
		posSize, err = strconv.ParseFloat(posStr, 64)
		if err != nil {
			output.Error("Invalid position size: %v", err)
			return err
		}
	}

	sub := models.ExerciseSubmission{
		DurationSeconds: duration,
		Text:            text,
		Acknowledged:    ack,
		PositionSize:    posSize,
	}

	session, err := app.Cooldown.CompleteExercise(cmd.Context(), sessionID, models.ExerciseID(exerciseID), sub)
	if err != nil {
		output.Error("Exercise not accepted: %v", err)
		return err
	}

	if output.IsJSON() {
		return output.JSON(session)
	}

	if session.IsCompleted {
		color.Green("Cooldown completed, trading unlocked")
	} else {
		color.Green("Exercise %s recorded", exerciseID)
		output.Printf("Remaining: %s\n", FormatExerciseList(remainingIDs(session)))
	}
	return nil
}

func runSessionSkip(cmd *cobra.Command, app *App, sessionID string) error {
	output := NewOutput(cmd)

	session, err := app.Cooldown.SkipSession(cmd.Context(), sessionID)
	if err != nil {
		output.Error("Skip failed: %v", err)
		return err
	}

	if output.IsJSON() {
		return output.JSON(session)
	}

	color.Yellow("Session skipped; discipline penalty applied")
	return nil
}

func printSession(output *Output, app *App, s *models.CooldownSession) {
	now := app.Clock.Now()
	color.Cyan("Cooldown Session %s", s.ID)
	output.Printf("  User: %s\n", s.UserID)
	output.Printf("  State: %s\n", FormatSessionState(s.State(now)))
	output.Printf("  Trigger: %s (%s) %s\n", s.TriggerReason.Kind, s.TriggerReason.Severity, s.TriggerReason.Detail)
	output.Printf("  Required: %s\n", FormatExerciseList(s.RequiredExercises))
	output.Printf("  Completed: %s\n", FormatExerciseList(completedIDs(s)))
	if s.IsActive() {
		if remaining := s.ExpiresAt.Sub(now); remaining > 0 {
			output.Dim("  Minimum wait remaining: %s", FormatDuration(remaining))
		}
	}
}

func remainingIDs(s *models.CooldownSession) []models.ExerciseID {
	var ids []models.ExerciseID
	for _, r := range s.RequiredExercises {
		if !s.HasCompleted(r) {
			ids = append(ids, r)
		}
	}
	return ids
}
