package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/satheeshds/invoicing/models"
)

// Postgres is a Repository backed by a pgx connection pool. Line items and
// payments live as JSONB documents on the invoice row.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	clientsEmailKey      = "clients_email_key"
	invoicesNumberKey    = "invoices_invoice_number_key"
	invoicesClientIDFKey = "invoices_client_id_fkey"
)

const clientSelectQuery = `SELECT id, name, email, phone, address, tax_id, payment_terms, created_at, updated_at FROM clients`

const invoiceSelectQuery = `SELECT i.id, i.invoice_number, i.client_id, i.items, i.subtotal, i.tax_rate, i.tax_amount,
		i.total, i.amount_paid, i.balance, i.issue_date, i.due_date, i.status, i.payments, i.notes, i.terms,
		i.sent_at, i.version, i.created_at, i.updated_at,
		c.name, c.email
		FROM invoices i
		JOIN clients c ON i.client_id = c.id`

// mapError translates constraint violations into the store's sentinel errors.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == clientsEmailKey:
		return ErrDuplicateEmail
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == invoicesNumberKey:
		return ErrDuplicateNumber
	case pgErr.Code == pgForeignKeyViolation && pgErr.ConstraintName == invoicesClientIDFKey:
		// inserting an invoice for a missing client, or deleting a referenced one
		if strings.Contains(pgErr.Message, "update or delete") {
			return ErrReferenced
		}
		return ErrNotFound
	}
	return err
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func scanClient(scanner interface{ Scan(...any) error }) (models.Client, error) {
	var c models.Client
	err := scanner.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.TaxID, &c.PaymentTerms,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (p *Postgres) CreateClient(ctx context.Context, c models.Client) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO clients (id, name, email, phone, address, tax_id, payment_terms, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.TaxID, c.PaymentTerms, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting client: %w", mapError(err))
	}
	return nil
}

func (p *Postgres) GetClient(ctx context.Context, id string) (models.Client, error) {
	if !validID(id) {
		return models.Client{}, ErrNotFound
	}
	c, err := scanClient(p.pool.QueryRow(ctx, clientSelectQuery+" WHERE id = $1", id))
	if err != nil {
		return c, mapError(err)
	}
	return c, nil
}

func (p *Postgres) FindClientByEmail(ctx context.Context, email string) (models.Client, error) {
	c, err := scanClient(p.pool.QueryRow(ctx, clientSelectQuery+" WHERE lower(email) = lower($1)", email))
	if err != nil {
		return c, mapError(err)
	}
	return c, nil
}

func (p *Postgres) ListClients(ctx context.Context, f ClientFilter) ([]models.Client, error) {
	query := clientSelectQuery
	var args []any
	if f.Search != "" {
		query += " WHERE (name ILIKE $1 OR email ILIKE $1 OR address ILIKE $1)"
		args = append(args, "%"+f.Search+"%")
	}
	query += " ORDER BY created_at DESC, name"

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (p *Postgres) UpdateClient(ctx context.Context, c models.Client) error {
	if !validID(c.ID) {
		return ErrNotFound
	}
	tag, err := p.pool.Exec(ctx, `UPDATE clients SET name = $2, email = $3, phone = $4, address = $5, tax_id = $6,
		payment_terms = $7, updated_at = now() WHERE id = $1`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.TaxID, c.PaymentTerms)
	if err != nil {
		return fmt.Errorf("updating client: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteClient(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := p.pool.Exec(ctx, "DELETE FROM clients WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting client: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ClientHasInvoices(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var exists bool
	err := p.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM invoices WHERE client_id = $1)", id).Scan(&exists)
	return exists, err
}

func scanInvoice(scanner interface{ Scan(...any) error }) (models.Invoice, error) {
	var inv models.Invoice
	err := scanner.Scan(&inv.ID, &inv.InvoiceNumber, &inv.ClientID, &inv.Items, &inv.Subtotal, &inv.TaxRate,
		&inv.TaxAmount, &inv.Total, &inv.AmountPaid, &inv.Balance, &inv.IssueDate, &inv.DueDate, &inv.Status,
		&inv.Payments, &inv.Notes, &inv.Terms, &inv.SentAt, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt,
		&inv.ClientName, &inv.ClientEmail)
	if inv.Items == nil {
		inv.Items = []models.LineItem{}
	}
	if inv.Payments == nil {
		inv.Payments = []models.Payment{}
	}
	return inv, err
}

func (p *Postgres) CreateInvoice(ctx context.Context, inv models.Invoice) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO invoices (id, invoice_number, client_id, items, subtotal, tax_rate, tax_amount,
		total, amount_paid, balance, issue_date, due_date, status, payments, notes, terms, sent_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		inv.ID, inv.InvoiceNumber, inv.ClientID, inv.Items, inv.Subtotal, inv.TaxRate, inv.TaxAmount,
		inv.Total, inv.AmountPaid, inv.Balance, inv.IssueDate, inv.DueDate, inv.Status, inv.Payments,
		inv.Notes, inv.Terms, inv.SentAt, inv.Version, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting invoice: %w", mapError(err))
	}
	return nil
}

func (p *Postgres) GetInvoice(ctx context.Context, id string) (models.Invoice, error) {
	if !validID(id) {
		return models.Invoice{}, ErrNotFound
	}
	inv, err := scanInvoice(p.pool.QueryRow(ctx, invoiceSelectQuery+" WHERE i.id = $1", id))
	if err != nil {
		return inv, mapError(err)
	}
	return inv, nil
}

func (p *Postgres) FindInvoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	query := invoiceSelectQuery
	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		conditions = append(conditions, "i.status = "+arg(f.Status))
	}
	if f.ClientID != "" {
		if !validID(f.ClientID) {
			return []models.Invoice{}, nil
		}
		conditions = append(conditions, "i.client_id = "+arg(f.ClientID))
	}
	if f.From != nil {
		conditions = append(conditions, "i.issue_date >= "+arg(*f.From))
	}
	if f.To != nil {
		conditions = append(conditions, "i.issue_date <= "+arg(*f.To))
	}
	if f.Search != "" {
		s := arg("%" + f.Search + "%")
		conditions = append(conditions, fmt.Sprintf(`(i.invoice_number ILIKE %[1]s OR c.name ILIKE %[1]s
			OR EXISTS (SELECT 1 FROM jsonb_array_elements(i.items) it WHERE it->>'description' ILIKE %[1]s))`, s))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY i.issue_date DESC, i.created_at DESC, i.invoice_number DESC"

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	invoices := []models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (p *Postgres) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	if !validID(inv.ID) {
		return ErrNotFound
	}
	err := p.pool.QueryRow(ctx, `UPDATE invoices SET client_id = $3, items = $4, subtotal = $5, tax_rate = $6,
		tax_amount = $7, total = $8, amount_paid = $9, balance = $10, issue_date = $11, due_date = $12,
		status = $13, payments = $14, notes = $15, terms = $16, sent_at = $17,
		version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`,
		inv.ID, inv.Version, inv.ClientID, inv.Items, inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total,
		inv.AmountPaid, inv.Balance, inv.IssueDate, inv.DueDate, inv.Status, inv.Payments, inv.Notes,
		inv.Terms, inv.SentAt).Scan(&inv.Version, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return p.missingOrStale(ctx, inv.ID)
	}
	if err != nil {
		return fmt.Errorf("updating invoice: %w", mapError(err))
	}
	return nil
}

func (p *Postgres) DeleteInvoice(ctx context.Context, id string, version int) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := p.pool.Exec(ctx, "DELETE FROM invoices WHERE id = $1 AND version = $2", id, version)
	if err != nil {
		return fmt.Errorf("deleting invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return p.missingOrStale(ctx, id)
	}
	return nil
}

// missingOrStale explains why a version-guarded write matched no row.
func (p *Postgres) missingOrStale(ctx context.Context, id string) error {
	var exists bool
	if err := p.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM invoices WHERE id = $1)", id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrNotFound
}

func (p *Postgres) MaxInvoiceNumber(ctx context.Context) (int64, error) {
	var max int64
	err := p.pool.QueryRow(ctx, `SELECT COALESCE(MAX(substring(invoice_number FROM '([0-9]+)$')::bigint), 0) FROM invoices`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("reading highest invoice number: %w", err)
	}
	return max, nil
}
