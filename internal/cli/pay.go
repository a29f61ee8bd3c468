package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	apperrors "treasury-agent/internal/errors"
	"treasury-agent/internal/money"
	"treasury-agent/pkg/utils"
)

// newPayCmd queues an external payment for the next tick.
func newPayCmd(app *App) *cobra.Command {
	var borrower string

	cmd := &cobra.Command{
		Use:   "pay <recipient> <amount>",
		Short: "Queue an external payment",
		Long: `Queue a payment to an external recipient.

The payment is released on the next tick: the planner funds any
liquidity shortfall (borrowing or pulling from reserve), then the
payment goes out over the rail. A borrower can hold one pending
payment at a time.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Queue == nil {
				output.Error("Tick pipeline unavailable; check ledger and rail configuration")
				return apperrors.ErrLedgerUnavailable
			}

			recipient := args[0]
			amountDollars, err := strconv.ParseFloat(args[1], 64)
			if err != nil || amountDollars <= 0 {
				return apperrors.NewValidationError("amount", args[1], "must be a positive dollar amount")
			}
			amount := money.FromDollars(amountDollars)

			if borrower == "" {
				borrower = app.Config.Controller.Borrowers[0]
			}

			if err := app.Queue.Enqueue(borrower, recipient, amount); err != nil {
				output.Error("Failed to queue payment: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"borrower":  borrower,
					"recipient": recipient,
					"amount":    amount.Dollars(),
					"queued":    true,
				})
			}
			output.Success("✓ Queued payment of %s to %s", utils.FormatUSD(amount), recipient)
			output.Dim("Releases on the next tick for borrower %s", borrower)
			return nil
		},
	}

	cmd.Flags().StringVarP(&borrower, "borrower", "b", "", "borrower to pay from (default: first configured)")

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel",
		Short: "Cancel the pending payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Queue == nil {
				return apperrors.ErrLedgerUnavailable
			}
			id := borrower
			if id == "" {
				id = app.Config.Controller.Borrowers[0]
			}
			if app.Queue.Peek(id) == nil {
				output.Info("No pending payment for %s", id)
				return nil
			}
			app.Queue.Clear(id)
			output.Success("✓ Pending payment cancelled for %s", id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the pending payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Queue == nil {
				return apperrors.ErrLedgerUnavailable
			}
			id := borrower
			if id == "" {
				id = app.Config.Controller.Borrowers[0]
			}
			pending := app.Queue.Peek(id)
			if pending == nil {
				output.Info("No pending payment for %s", id)
				return nil
			}
			if output.IsJSON() {
				return output.JSON(pending)
			}
			output.Printf("Recipient: %s\n", pending.Recipient)
			output.Printf("Amount:    %s\n", utils.FormatUSD(pending.Amount))
			output.Printf("Queued:    %s\n", pending.QueuedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	})

	return cmd
}
