// Package cli provides the command-line interface for the discipline core.
package cli

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tradegate/internal/approval"
	"tradegate/internal/clock"
	"tradegate/internal/config"
	"tradegate/internal/cooldown"
	"tradegate/internal/detector"
	"tradegate/internal/exercise"
	"tradegate/internal/history"
	"tradegate/internal/locking"
	"tradegate/internal/logging"
	"tradegate/internal/scoring"
	"tradegate/internal/store"
	"tradegate/internal/stream"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Store     store.DataStore
	Clock     clock.Clock
	Hub       *stream.Hub
	Exercises *exercise.Registry
	Detector  *detector.Detector
	History   *history.ResilientReader
	Scorer    *scoring.Scorer
	Cooldown  *cooldown.Manager
	Gate      *approval.Gate
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
		Clock:  clock.System(),
		Hub:    stream.NewHub(),
	}

	dbPath := filepath.Join(config.DefaultConfigDir(), "tradegate.db")
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, falling back to in-memory state")
		app.Store = store.NewMemoryStore()
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", dbPath).Msg("SQLite store initialized")
	}

	app.wire()

	rootCmd := &cobra.Command{
		Use:   "tradegate",
		Short: "TradeGate - behavioral discipline gate for retail trading",
		Long: `TradeGate is a behavioral discipline core for a retail trading platform.

Every order must pass the approval gate before execution. The gate detects
risky behavioral patterns in recent trading, enforces cooldown sessions with
remediation exercises, and tracks a per-user discipline score.

Use 'tradegate help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/tradegate)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addServeCommand(rootCmd, app)
	addStatsCommands(rootCmd, app)
	addCheckCommand(rootCmd, app)
	addSessionCommands(rootCmd, app)
	addApprovalCommands(rootCmd, app)

	return rootCmd
}

// wire builds the component graph on top of the configured store.
// The cooldown manager and the gate share one keyed mutex so per-user
// check-then-act sequences never interleave; the scorer gets its own
// instance because managers call into it while holding the user's lock.
func (a *App) wire() {
	gateLocks := locking.NewKeyedMutex()
	scoreLocks := locking.NewKeyedMutex()

	a.Exercises = exercise.DefaultRegistry()
	a.Detector = detector.New(a.Config.Detector)
	a.History = history.NewResilientReader(
		history.NewStoreReader(a.Store, a.Clock),
		a.Config.History.ReadTimeout,
	)

	a.Scorer = scoring.New(a.Store, a.Config.Scoring, scoreLocks, a.Clock, a.Hub, a.Logger)
	a.Cooldown = cooldown.NewManager(a.Store, a.Config.Cooldown, a.Exercises, gateLocks, a.Clock, a.Scorer, a.Hub, a.Logger)
	a.Gate = approval.NewGate(a.Store, a.Config.Approval, a.Config.History, a.History, a.Detector, a.Cooldown, a.Scorer, gateLocks, a.Clock, a.Hub, a.Logger)
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("TradeGate v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			return output.JSON(app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}
