package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var markOverdueCmd = &cobra.Command{
	Use:   "mark-overdue",
	Short: "Move unpaid invoices past their due date to Overdue",
	Long: `Re-derive the status of every Draft or Sent invoice with an outstanding balance.
Invoices whose due date has passed become Overdue. Run it from cron to keep
stored statuses current between edits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.billing.MarkOverdue(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d invoice(s) marked overdue\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(markOverdueCmd)
}
