package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"treasury-agent/internal/config"
	"treasury-agent/internal/controller"
	"treasury-agent/internal/ledger"
	"treasury-agent/internal/logging"
	"treasury-agent/internal/models"
	"treasury-agent/internal/money"
	"treasury-agent/internal/notify"
	"treasury-agent/internal/oracle"
	"treasury-agent/internal/rail"
	"treasury-agent/internal/store"
	"treasury-agent/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies. Backends are selected once at
// startup: simulated in sim mode, live clients when credentials exist.
type App struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Oracle       oracle.Oracle
	Ledger       ledger.Ledger
	Rail         rail.Rail
	Store        store.DataStore
	Queue        *controller.PaymentQueue
	ActionLog    *controller.ActionLog
	Telemetry    *controller.Telemetry
	Orchestrator *controller.Orchestrator
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}
	initBackends(app)
	initPipeline(app)

	rootCmd := &cobra.Command{
		Use:   "treasurer",
		Short: "Treasury Agent - autonomous on-chain treasury controller",
		Long: `Treasury Agent is an autonomous treasury controller for a collateralized
credit line.

On a fixed cadence it reads the on-chain collateral position, the price
oracle and the custodial cash buckets, plans borrow/repay/rebalance and
payment actions, validates them against the risk policy, and executes
the survivors over the payment rail.

Use 'treasurer help <command>' for more information about a command.`,
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
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/treasurer)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newTickCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))
	rootCmd.AddCommand(newLogCmd(app))
	rootCmd.AddCommand(newPayCmd(app))

	return rootCmd
}

// initBackends selects sim or live collaborators. Sim mode never touches
// the network.
func initBackends(app *App) {
	cfg := app.Config
	logger := app.Logger

	if cfg.IsSimMode() {
		app.Oracle = oracle.NewSimOracle(cfg.Sim.OraclePrice)
		app.Ledger = ledger.NewSimLedger(ledger.SimLedgerConfig{
			Borrowers:  cfg.Controller.Borrowers,
			Collateral: money.TokensToWei(cfg.Sim.CollateralTokens),
			Debt:       money.FromDollars(cfg.Sim.InitialDebt),
		})
		app.Rail = rail.NewSimRail(rail.SimRailConfig{
			Liquidity:      money.FromDollars(cfg.Sim.Liquidity),
			Reserve:        money.FromDollars(cfg.Sim.Reserve),
			Yield:          money.FromDollars(cfg.Sim.Yield),
			CreditFacility: money.FromDollars(cfg.Sim.CreditFacility),
		})
		logger.Debug().Msg("Simulated backends initialized")
	} else {
		o, err := oracle.NewHTTPOracle(oracle.HTTPOracleConfig{
			URL:    cfg.Credentials.Oracle.URL,
			Source: cfg.Credentials.Oracle.Source,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Oracle unavailable, falling back to sim oracle")
			app.Oracle = oracle.NewSimOracle(cfg.Sim.OraclePrice)
		} else {
			app.Oracle = o
		}

		l, err := ledger.NewLiveLedger(ledger.LiveLedgerConfig{
			RPCURL:          cfg.Credentials.Ledger.RPCURL,
			ContractAddress: cfg.Credentials.Ledger.ContractAddress,
			SignerKey:       cfg.Credentials.Ledger.SignerKey,
		})
		if err == nil {
			app.Ledger = l
			logger.Debug().Msg("Live ledger initialized")
		}

		r, err := rail.NewLiveRail(rail.LiveRailConfig{
			BaseURL:   cfg.Credentials.Rail.BaseURL,
			APIKey:    cfg.Credentials.Rail.APIKey,
			APISecret: cfg.Credentials.Rail.APISecret,
			AccountID: cfg.Credentials.Rail.AccountID,
		})
		if err == nil {
			app.Rail = r
			logger.Debug().Msg("Live rail initialized")
		}
	}

	dataStore, err := store.NewSQLiteStore(cfg.Controller.DatabasePath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, history will not persist")
		app.Store = store.NewMemoryStore()
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Controller.DatabasePath).Msg("SQLite store initialized")
	}
}

// initPipeline wires the tick pipeline on top of the selected backends.
func initPipeline(app *App) {
	if app.Ledger == nil || app.Rail == nil {
		app.Logger.Warn().Msg("Ledger or rail unavailable, tick pipeline disabled")
		return
	}

	app.Queue = controller.NewPaymentQueue()
	app.ActionLog = controller.NewActionLog()
	app.Telemetry = controller.NewTelemetry()

	builder := controller.NewBuilder(app.Config, app.Oracle, app.Ledger, app.Rail, app.Queue, app.Logger)
	planner := controller.NewPlanner()
	safety := controller.NewSafety(app.Logger)
	executor := controller.NewExecutor(app.Config, app.Ledger, app.Rail, app.Queue, app.ActionLog, app.Store, app.Logger)
	notifier := notify.NewDispatcher(app.Config.Notifications, app.Logger)

	app.Orchestrator = controller.NewOrchestrator(
		app.Config, builder, planner, safety, executor,
		app.Telemetry, app.ActionLog, app.Store, notifier, app.Logger)
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
				output.Printf("Treasury Agent v%s\n", Version)
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
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
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
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "policy",
		Short: "Show the effective risk policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			policy := app.Config.MergePolicy(models.Policy{})
			if output.IsJSON() {
				return output.JSON(policy)
			}
			showPolicy(output, policy)
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Controller Configuration")
	output.Printf("  Mode:           %s\n", cfg.Controller.Mode)
	output.Printf("  Tick Interval:  %ds\n", cfg.Controller.TickIntervalSeconds)
	output.Printf("  Borrowers:      %v\n", cfg.Controller.Borrowers)
	output.Printf("  Gas Reserve:    %s per bucket\n", utils.FormatUSD(cfg.GasReserveMoney()))
	output.Printf("  Database:       %s\n", cfg.Controller.DatabasePath)
	output.Println()

	showPolicy(output, cfg.MergePolicy(models.Policy{}))
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:        %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:          %s\n", cfg.Notifications.Level)
	output.Printf("  Webhook:        %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram:       %v\n", cfg.Notifications.Telegram.Enabled)
	return nil
}

func showPolicy(output *Output, p models.Policy) {
	output.Bold("Risk Policy")
	output.Printf("  LTV:              %.0f%%\n", float64(p.LTVBps)/100)
	output.Printf("  Min Health:       %.2f\n", money.HealthRatio(p.MinHealthBps))
	output.Printf("  Emergency Health: %.2f\n", money.HealthRatio(p.EmergencyHealthBps))
	output.Printf("  Target Health:    %.2f\n", money.HealthRatio(p.TargetHealthBps))
	output.Printf("  Liquidity Floor:  %s\n", utils.FormatUSD(p.LiquidityMin))
	output.Printf("  Max Per Tx:       %s\n", utils.FormatUSD(p.MaxPerTx))
	output.Printf("  Max Daily:        %s\n", utils.FormatUSD(p.MaxDaily))
	output.Printf("  Volatility Limit: %.1f%%\n", p.VolatilityThresholdPct)
}
