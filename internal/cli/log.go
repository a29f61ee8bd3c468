package cli

import (
	"github.com/spf13/cobra"

	apperrors "treasury-agent/internal/errors"
	"treasury-agent/internal/models"
	"treasury-agent/pkg/utils"
)

// newLogCmd shows the persisted action history.
func newLogCmd(app *App) *cobra.Command {
	var limit int
	var borrower string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent treasury actions",
		Long:  "Show the action history: executed, blocked and failed actions with before/after state.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return apperrors.ErrStoreUnavailable
			}

			borrowers := app.Config.Controller.Borrowers
			if borrower != "" {
				borrowers = []string{borrower}
			}

			var entries []models.ActionLogEntry
			for _, id := range borrowers {
				rows, err := app.Store.RecentActions(id, limit)
				if err != nil {
					return err
				}
				entries = append(entries, rows...)
			}

			if output.IsJSON() {
				return output.JSON(entries)
			}

			if len(entries) == 0 {
				output.Info("No actions recorded")
				return nil
			}

			table := NewTable(output, "TIME", "BORROWER", "KIND", "STATUS", "AMOUNT", "HEALTH", "RULE", "REFS")
			for _, e := range entries {
				refs := e.RailRef
				if e.LedgerRef != "" {
					if refs != "" {
						refs += " / "
					}
					refs += e.LedgerRef
				}
				table.AddRow(
					e.Timestamp.Format("01-02 15:04:05"),
					e.BorrowerID,
					string(e.Kind),
					output.ActionStatusText(e.Status),
					utils.FormatUSD(e.Amount),
					utils.FormatHealth(e.HealthBefore)+" → "+utils.FormatHealth(e.HealthAfter),
					e.Rule,
					output.DimText(refs),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries per borrower")
	cmd.Flags().StringVarP(&borrower, "borrower", "b", "", "filter by borrower")
	return cmd
}
