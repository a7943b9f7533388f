package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tradegate/internal/api"
	"tradegate/internal/clock"
	"tradegate/internal/metrics"
	"tradegate/internal/notify"
)

// addServeCommand adds the serve command.
func addServeCommand(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the discipline gate HTTP server",
		Long: `Starts the local HTTP server exposing the approval gate, cooldown
sessions, discipline stats and Prometheus metrics. The server binds to
localhost only; it is meant to sit behind the trading platform, not on
the public network.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, app)
		},
	}
	cmd.Flags().Duration("sweep-interval", time.Minute, "interval for the expired-approval sweep (0 disables)")
	rootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, app *App) error {
	output := NewOutput(cmd)

	handlers := api.NewHandlers(app.Cooldown, app.Gate, app.Scorer, app.Clock, app.Logger)
	server, err := api.NewServer(app.Config.Server, handlers, app.Logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Metrics and notifications consume hub events on their own goroutines.
	metricsEvents := app.Hub.Subscribe("metrics")
	go metrics.Collector(metricsEvents)

	dispatcher := notify.NewDispatcher(app.Config.Notifications, app.Logger)
	notifyEvents := app.Hub.Subscribe("notify")
	go dispatcher.Run(notifyEvents)

	// Optional reporting sweep; lazy expiry at consume time stays the
	// correctness path.
	sweepInterval, _ := cmd.Flags().GetDuration("sweep-interval")
	var sweeper *clock.Sweeper
	if sweepInterval > 0 {
		sweeper = clock.NewSweeper(sweepInterval, app.Gate.SweepExpired)
		sweeper.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	output.Info("TradeGate listening on %s", server.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-sigCh:
		app.Logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server shutdown failed")
	}

	if sweeper != nil {
		sweeper.Stop()
	}
	cancel()
	app.Hub.Close()
	if err := app.Store.Close(); err != nil {
		app.Logger.Warn().Err(err).Msg("Store close failed")
	}

	output.Success("Shutdown complete")
	return nil
}
