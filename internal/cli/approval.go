package cli

import (
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradegate/internal/models"
	"tradegate/internal/security"
)

// addApprovalCommands adds trade approval commands.
func addApprovalCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Trade approval workflow",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "request <user-id> <symbol> <direction>",
		Short: "Request approval for an order",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApprovalRequest(cmd, app, args[0], args[1], args[2])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "consume <approval-id>",
		Short: "Consume an approval before placing the order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApprovalConsume(cmd, app, args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <approval-id>",
		Short: "Show an approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApprovalShow(cmd, app, args[0])
		},
	})

	rootCmd.AddCommand(cmd)
}

func runApprovalRequest(cmd *cobra.Command, app *App, userID, symbol, direction string) error {
	output := NewOutput(cmd)

	dir := models.Direction(strings.ToUpper(direction))
	if dir != models.DirectionLong && dir != models.DirectionShort {
		output.Error("Direction must be LONG or SHORT")
		return nil
	}

	sym := security.NormalizeSymbol(symbol)
	if err := security.ValidateSymbol(sym); err != nil {
		output.Error("Invalid symbol: %v", err)
		return err
	}

	intent := models.OrderIntent{Symbol: sym, Direction: dir}
	approval, rejection, err := app.Gate.RequestApproval(cmd.Context(), userID, intent)
	if err != nil {
		output.Error("Approval request failed: %v", err)
		return err
	}

	if output.IsJSON() {
		return output.JSON(map[string]interface{}{
			"approval":  approval,
			"rejection": rejection,
		})
	}

	if rejection != nil {
		color.Red("Rejected: %s (%s)", rejection.Trigger.Kind, rejection.Trigger.Severity)
		output.Printf("  %s\n", rejection.Trigger.Detail)
		if rejection.Trigger.SuggestedAction != "" {
			output.Dim("  Suggested: %s", rejection.Trigger.SuggestedAction)
		}
		output.Println()
		printSession(output, app, rejection.Session)
		return nil
	}

	color.Green("Approved: %s", approval.ID)
	output.Printf("  %s %s\n", approval.Symbol, approval.Direction)
	output.Dim("  Valid for %s", FormatDuration(approval.ExpiresAt.Sub(app.Clock.Now())))
	return nil
}

func runApprovalConsume(cmd *cobra.Command, app *App, approvalID string) error {
	output := NewOutput(cmd)

	approval, err := app.Gate.ConsumeApproval(cmd.Context(), approvalID)
	if err != nil {
		output.Error("Consume failed: %v", err)
		return err
	}

	if output.IsJSON() {
		return output.JSON(approval)
	}

	color.Green("Approval %s executed", approval.ID)
	return nil
}

func runApprovalShow(cmd *cobra.Command, app *App, approvalID string) error {
	output := NewOutput(cmd)

	approval, err := app.Gate.GetApproval(cmd.Context(), approvalID)
	if err != nil {
		output.Error("Failed to load approval: %v", err)
		return err
	}

	if output.IsJSON() {
		return output.JSON(approval)
	}

	color.Cyan("Trade Approval %s", approval.ID)
	output.Printf("  User: %s\n", approval.UserID)
	output.Printf("  Order: %s %s\n", approval.Symbol, approval.Direction)
	output.Printf("  Status: %s\n", approval.Status)
	output.Printf("  Expires: %s\n", approval.ExpiresAt.Format("2006-01-02 15:04:05"))
	return nil
}
