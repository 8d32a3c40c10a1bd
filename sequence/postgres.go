package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const invoiceSequenceName = "invoices"

// Postgres keeps the counter in a single row of invoice_sequences. The
// upsert increments and returns in one statement, so the row lock
// serializes concurrent callers.
type Postgres struct {
	pool *pgxpool.Pool
	name string
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, name: invoiceSequenceName}
}

func (p *Postgres) Next(ctx context.Context) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx, `INSERT INTO invoice_sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = invoice_sequences.value + 1
		RETURNING value`, p.name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("advancing invoice sequence: %w", err)
	}
	return n, nil
}

func (p *Postgres) Observe(ctx context.Context, n int64) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO invoice_sequences (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = GREATEST(invoice_sequences.value, EXCLUDED.value)`, p.name, n)
	if err != nil {
		return fmt.Errorf("raising invoice sequence: %w", err)
	}
	return nil
}
