package export

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/satheeshds/invoicing/models"
)

var duckSchema = []string{
	`CREATE OR REPLACE TABLE clients (
		id VARCHAR PRIMARY KEY,
		name VARCHAR NOT NULL,
		email VARCHAR NOT NULL,
		phone VARCHAR,
		address VARCHAR,
		tax_id VARCHAR,
		payment_terms INTEGER,
		created_at TIMESTAMP
	)`,
	`CREATE OR REPLACE TABLE invoices (
		id VARCHAR PRIMARY KEY,
		invoice_number VARCHAR NOT NULL,
		client_id VARCHAR NOT NULL,
		issue_date TIMESTAMP NOT NULL,
		due_date TIMESTAMP NOT NULL,
		status VARCHAR NOT NULL,
		subtotal DECIMAL(18,2) NOT NULL,
		tax_rate DECIMAL(9,4) NOT NULL,
		tax_amount DECIMAL(18,2) NOT NULL,
		total DECIMAL(18,2) NOT NULL,
		amount_paid DECIMAL(18,2) NOT NULL,
		balance DECIMAL(18,2) NOT NULL
	)`,
	`CREATE OR REPLACE TABLE invoice_items (
		invoice_id VARCHAR NOT NULL,
		line INTEGER NOT NULL,
		description VARCHAR,
		quantity DECIMAL(18,4) NOT NULL,
		price DECIMAL(18,2) NOT NULL,
		total DECIMAL(18,2) NOT NULL
	)`,
	`CREATE OR REPLACE TABLE payments (
		invoice_id VARCHAR NOT NULL,
		amount DECIMAL(18,2) NOT NULL,
		paid_at TIMESTAMP NOT NULL,
		method VARCHAR NOT NULL,
		reference VARCHAR
	)`,
}

const insertClient = `INSERT INTO clients VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const insertInvoice = `INSERT INTO invoices VALUES (?, ?, ?, ?, ?, ?,
	CAST(? AS DECIMAL(18,2)), CAST(? AS DECIMAL(9,4)), CAST(? AS DECIMAL(18,2)),
	CAST(? AS DECIMAL(18,2)), CAST(? AS DECIMAL(18,2)), CAST(? AS DECIMAL(18,2)))`

const insertItem = `INSERT INTO invoice_items VALUES (?, ?, ?,
	CAST(? AS DECIMAL(18,4)), CAST(? AS DECIMAL(18,2)), CAST(? AS DECIMAL(18,2)))`

const insertPayment = `INSERT INTO payments VALUES (?, CAST(? AS DECIMAL(18,2)), ?, ?, ?)`

func openDuckDB(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	return db, nil
}

// WriteDuckDB snapshots clients and invoices into the DuckDB database at
// path, replacing any tables from an earlier snapshot.
func WriteDuckDB(ctx context.Context, path string, clients []models.Client, invoices []models.Invoice) error {
	db, err := openDuckDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range duckSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating snapshot schema: %w\nstatement: %s", err, stmt)
		}
	}

	for _, c := range clients {
		if _, err := tx.ExecContext(ctx, insertClient,
			c.ID, c.Name, c.Email, c.Phone, c.Address, c.TaxID, c.PaymentTerms, c.CreatedAt); err != nil {
			return fmt.Errorf("inserting client %s: %w", c.ID, err)
		}
	}

	for _, inv := range invoices {
		if _, err := tx.ExecContext(ctx, insertInvoice,
			inv.ID, inv.InvoiceNumber, inv.ClientID, inv.IssueDate, inv.DueDate, string(inv.Status),
			inv.Subtotal.String(), inv.TaxRate.String(), inv.TaxAmount.String(),
			inv.Total.String(), inv.AmountPaid.String(), inv.Balance.String()); err != nil {
			return fmt.Errorf("inserting invoice %s: %w", inv.InvoiceNumber, err)
		}
		for i, item := range inv.Items {
			if _, err := tx.ExecContext(ctx, insertItem,
				inv.ID, i+1, item.Description, item.Quantity.String(), item.Price.String(), item.Total.String()); err != nil {
				return fmt.Errorf("inserting item %d of %s: %w", i+1, inv.InvoiceNumber, err)
			}
		}
		for _, p := range inv.Payments {
			if _, err := tx.ExecContext(ctx, insertPayment,
				inv.ID, p.Amount.String(), p.Date, string(p.Method), p.Reference); err != nil {
				return fmt.Errorf("inserting payment of %s: %w", inv.InvoiceNumber, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	slog.Info("duckdb snapshot written", "path", path, "clients", len(clients), "invoices", len(invoices))
	return nil
}
