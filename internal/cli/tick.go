package cli

import (
	"github.com/spf13/cobra"

	apperrors "treasury-agent/internal/errors"
	"treasury-agent/pkg/utils"
)

// newTickCmd runs exactly one tick and shows the outcome.
func newTickCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run a single tick now",
		Long:  "Run one full tick cycle over all configured borrowers and print the results.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Orchestrator == nil {
				output.Error("Tick pipeline unavailable; check ledger and rail configuration")
				return apperrors.ErrLedgerUnavailable
			}

			if err := app.Orchestrator.Tick(cmd.Context()); err != nil {
				if apperrors.Is(err, apperrors.ErrTickInFlight) {
					output.Warning("A tick is already in flight")
					return nil
				}
				return err
			}

			view := app.Telemetry.View()
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"status":   view.Status,
					"reason":   view.LastReason,
					"snapshot": view.LastSnapshot,
					"actions":  app.ActionLog.Recent(10),
				})
			}

			output.Printf("Status:   %s\n", output.StatusText(view.Status))
			if view.LastReason != "" {
				output.Printf("Reason:   %s\n", view.LastReason)
			}
			if view.LastSnapshot != "" {
				output.Dim("Snapshot: %s", view.LastSnapshot)
			}

			recent := app.ActionLog.Recent(10)
			if len(recent) == 0 {
				output.Println()
				output.Info("No actions this tick")
				return nil
			}

			output.Println()
			table := NewTable(output, "TIME", "KIND", "STATUS", "AMOUNT", "HEALTH", "RULE")
			for _, e := range recent {
				table.AddRow(
					e.Timestamp.Format("15:04:05"),
					string(e.Kind),
					output.ActionStatusText(e.Status),
					utils.FormatUSD(e.Amount),
					utils.FormatHealth(e.HealthBefore)+" → "+utils.FormatHealth(e.HealthAfter),
					e.Rule,
				)
			}
			table.Render()
			return nil
		},
	}
}

// newStatusCmd shows the controller's current observable state.
func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show controller status and position",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Telemetry == nil {
				output.Error("Tick pipeline unavailable; check ledger and rail configuration")
				return apperrors.ErrLedgerUnavailable
			}

			view := app.Telemetry.View()
			if output.IsJSON() {
				payload := map[string]interface{}{
					"telemetry": view,
				}
				for _, borrowerID := range app.Config.Controller.Borrowers {
					if last, err := app.Store.LastTick(borrowerID); err == nil && last != nil {
						payload["last_tick_"+borrowerID] = last
					}
				}
				return output.JSON(payload)
			}

			output.Bold("Treasury Agent")
			output.Printf("  Enabled:  %v\n", view.AgentEnabled)
			output.Printf("  Status:   %s\n", output.StatusText(view.Status))
			if view.LastReason != "" {
				output.Printf("  Reason:   %s\n", view.LastReason)
			}
			if view.LastSnapshot != "" {
				output.Printf("  Position: %s\n", view.LastSnapshot)
			}
			output.Println()

			for _, borrowerID := range app.Config.Controller.Borrowers {
				last, err := app.Store.LastTick(borrowerID)
				if err != nil || last == nil {
					output.Dim("  %s: no ticks recorded", borrowerID)
					continue
				}
				output.Bold("Borrower %s", borrowerID)
				output.Printf("  Last Tick:  %s\n", last.FinishedAt.Format("2006-01-02 15:04:05"))
				output.Printf("  Status:     %s\n", output.StatusText(last.Status))
				output.Printf("  Health:     %s\n", utils.FormatHealth(last.HealthBps))
				output.Printf("  Price:      $%.2f\n", last.Price)
				output.Printf("  Volatility: %s\n", utils.FormatPct(last.VolatilityPct))
				output.Printf("  Actions:    %d\n", last.ActionsRun)
				output.Println()
			}
			return nil
		},
	}
}
