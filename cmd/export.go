package cmd

import (
	"fmt"

	"github.com/satheeshds/invoicing/export"
	"github.com/satheeshds/invoicing/store"
	"github.com/spf13/cobra"
)

var exportOut string

var exportDuckDBCmd = &cobra.Command{
	Use:   "export-duckdb",
	Short: "Snapshot clients, invoices, items and payments into a DuckDB file",
	Example: `  # Write a snapshot for offline analysis
  invoicing export-duckdb --out invoices.duckdb`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		clients, err := a.billing.ListClients(ctx, store.ClientFilter{})
		if err != nil {
			return err
		}
		invoices, err := a.billing.FindInvoices(ctx, store.InvoiceFilter{})
		if err != nil {
			return err
		}
		if err := export.WriteDuckDB(ctx, exportOut, clients, invoices); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d client(s) and %d invoice(s) to %s\n", len(clients), len(invoices), exportOut)
		return nil
	},
}

func init() {
	exportDuckDBCmd.Flags().StringVarP(&exportOut, "out", "o", "invoices.duckdb", "DuckDB file to write")
	rootCmd.AddCommand(exportDuckDBCmd)
}
