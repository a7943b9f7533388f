package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradegate/internal/detector"
	"tradegate/internal/models"
)

// addCheckCommand adds the dry-run trigger check command.
func addCheckCommand(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "check <user-id>",
		Short: "Dry-run trigger detection against recent trading",
		Long: `Runs the behavioral trigger detector over the user's recent closed
trades without issuing an approval or starting a cooldown session.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, app, args[0])
		},
	}
	cmd.Flags().String("symbol", "", "optional order symbol to include in detection")
	cmd.Flags().String("direction", "", "optional order direction (LONG or SHORT)")
	rootCmd.AddCommand(cmd)
}

func runCheck(cmd *cobra.Command, app *App, userID string) error {
	output := NewOutput(cmd)
	ctx := cmd.Context()

	trades, err := app.History.RecentClosedTrades(ctx, userID, app.Config.History.Window)
	if err != nil {
		output.Error("Failed to read trade history: %v", err)
		return err
	}

	var intent *models.OrderIntent
	symbol, _ := cmd.Flags().GetString("symbol")
	direction, _ := cmd.Flags().GetString("direction")
	if symbol != "" {
		intent = &models.OrderIntent{
			Symbol:    symbol,
			Direction: models.Direction(direction),
		}
	}

	triggers := app.Detector.Detect(trades, intent, app.Clock.Now())

	if output.IsJSON() {
		return output.JSON(map[string]interface{}{
			"user_id":      userID,
			"trades_read":  len(trades),
			"triggers":     triggers,
			"would_reject": len(triggers) > 0,
		})
	}

	color.Cyan("Trigger Check - %s", userID)
	output.Dim("  Trades in window: %d", len(trades))
	output.Println()

	if len(triggers) == 0 {
		color.Green("  No triggers fired; an approval request would succeed")
		return nil
	}

	primary := detector.Primary(triggers)
	for i := range triggers {
		t := triggers[i]
		marker := " "
		if primary != nil && t == *primary {
			marker = "*"
		}
		switch t.Severity {
		case models.SeverityHigh:
			color.Red("  %s %s (%s): %s", marker, t.Kind, t.Severity, t.Detail)
		case models.SeverityMedium:
			color.Yellow("  %s %s (%s): %s", marker, t.Kind, t.Severity, t.Detail)
		default:
			output.Printf("  %s %s (%s): %s\n", marker, t.Kind, t.Severity, t.Detail)
		}
	}
	output.Println()
	color.Yellow("  An approval request would be rejected (* marks the session trigger)")
	return nil
}
