package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	apperrors "treasury-agent/internal/errors"
)

// newRunCmd starts the tick loop in the foreground.
func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the treasury controller tick loop",
		Long: `Start the autonomous tick loop in the foreground.

Every tick reads the on-chain position, oracle price and bucket
balances, plans actions, validates them against the risk policy, and
executes the survivors. Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Orchestrator == nil {
				output.Error("Tick pipeline unavailable; check ledger and rail configuration")
				return apperrors.ErrLedgerUnavailable
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			output.Bold("Treasury Agent v%s", Version)
			output.Printf("Mode:      %s\n", app.Config.Controller.Mode)
			output.Printf("Interval:  %ds\n", app.Config.Controller.TickIntervalSeconds)
			output.Printf("Borrowers: %v\n", app.Config.Controller.Borrowers)
			output.Println()

			app.Orchestrator.Start(ctx)
			defer app.Orchestrator.Stop()

			// One immediate tick so the operator sees activity before
			// the first scheduled firing.
			if err := app.Orchestrator.Tick(ctx); err != nil && !apperrors.Is(err, apperrors.ErrTickInFlight) {
				output.Warning("Initial tick failed: %v", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			statusTicker := time.NewTicker(time.Duration(app.Config.Controller.TickIntervalSeconds) * time.Second)
			defer statusTicker.Stop()

			for {
				select {
				case <-sigCh:
					output.Println()
					output.Info("Shutting down...")
					return nil
				case <-ctx.Done():
					return nil
				case <-statusTicker.C:
					view := app.Telemetry.View()
					output.Printf("%s  %s\n", output.StatusText(view.Status), output.DimText(view.LastSnapshot))
				}
			}
		},
	}
}
