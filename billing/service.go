package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/satheeshds/invoicing/lock"
	"github.com/satheeshds/invoicing/models"
	"github.com/satheeshds/invoicing/sequence"
	"github.com/satheeshds/invoicing/stats"
	"github.com/satheeshds/invoicing/store"
)

// maxAttempts bounds the reload-and-reapply loop on version conflicts.
const maxAttempts = 3

// Service runs every mutating operation through the engine before
// persisting it.
type Service struct {
	Store   store.Repository
	Numbers sequence.Sequencer
	Locks   lock.Locker
	Now     func() time.Time
	Log     *slog.Logger
}

// NewService wires a service with the real clock and the default logger.
func NewService(repo store.Repository, numbers sequence.Sequencer, locks lock.Locker) *Service {
	return &Service{
		Store:   repo,
		Numbers: numbers,
		Locks:   locks,
		Now:     func() time.Time { return time.Now().UTC() },
		Log:     slog.Default(),
	}
}

// SeedSequence raises the invoice counter above every stored number.
func (s *Service) SeedSequence(ctx context.Context) error {
	max, err := s.Store.MaxInvoiceNumber(ctx)
	if err != nil {
		return err
	}
	return s.Numbers.Observe(ctx, max)
}

// Clients

func (s *Service) CreateClient(ctx context.Context, in models.ClientInput) (models.Client, error) {
	if err := validation(in.Validate()); err != nil {
		return models.Client{}, err
	}
	if _, err := s.Store.FindClientByEmail(ctx, in.Email); err == nil {
		return models.Client{}, conflictf("client with this email already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.Client{}, err
	}

	c := models.NewClient(uuid.NewString(), in, s.Now())
	if err := s.Store.CreateClient(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return models.Client{}, conflictf("client with this email already exists")
		}
		return models.Client{}, err
	}
	s.Log.Info("client created", "client_id", c.ID)
	return c, nil
}

func (s *Service) GetClient(ctx context.Context, id string) (models.Client, error) {
	c, err := s.Store.GetClient(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c, notFound("client")
	}
	return c, err
}

func (s *Service) ListClients(ctx context.Context, f store.ClientFilter) ([]models.Client, error) {
	return s.Store.ListClients(ctx, f)
}

// UpdateClient applies a partial update. Email uniqueness is only checked
// when the email actually changes.
func (s *Service) UpdateClient(ctx context.Context, id string, p models.ClientPatch) (models.Client, error) {
	if err := validation(p.Validate()); err != nil {
		return models.Client{}, err
	}
	c, err := s.GetClient(ctx, id)
	if err != nil {
		return c, err
	}
	if p.Email != nil && *p.Email != c.Email {
		if other, err := s.Store.FindClientByEmail(ctx, *p.Email); err == nil && other.ID != c.ID {
			return models.Client{}, conflictf("email already in use")
		} else if err != nil && !errors.Is(err, store.ErrNotFound) {
			return models.Client{}, err
		}
	}
	p.Apply(&c)
	if err := s.Store.UpdateClient(ctx, c); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			return models.Client{}, conflictf("email already in use")
		case errors.Is(err, store.ErrNotFound):
			return models.Client{}, notFound("client")
		}
		return models.Client{}, err
	}
	return s.GetClient(ctx, id)
}

// DeleteClient removes a client no invoice refers to.
func (s *Service) DeleteClient(ctx context.Context, id string) error {
	if _, err := s.GetClient(ctx, id); err != nil {
		return err
	}
	has, err := s.Store.ClientHasInvoices(ctx, id)
	if err != nil {
		return err
	}
	if err := ClientDeleteGuard(has); err != nil {
		return err
	}
	switch err := s.Store.DeleteClient(ctx, id); {
	case errors.Is(err, store.ErrReferenced):
		return ClientDeleteGuard(true)
	case errors.Is(err, store.ErrNotFound):
		return notFound("client")
	case err != nil:
		return err
	}
	s.Log.Info("client deleted", "client_id", id)
	return nil
}

// Invoices

// resolveClient checks a client reference. An unknown id is a caller error
// on the referencing field, not a missing resource.
func (s *Service) resolveClient(ctx context.Context, id string) (models.Client, error) {
	c, err := s.Store.GetClient(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c, Invalid("client_id", "client not found")
	}
	return c, err
}

// CreateInvoice builds a Draft invoice, derives its totals and status and
// assigns the next invoice number unless the caller supplied one.
func (s *Service) CreateInvoice(ctx context.Context, in models.InvoiceInput) (models.Invoice, error) {
	if err := validation(in.Validate()); err != nil {
		return models.Invoice{}, err
	}
	client, err := s.resolveClient(ctx, in.ClientID)
	if err != nil {
		return models.Invoice{}, err
	}

	now := s.Now()
	inv := models.Invoice{
		ID:        uuid.NewString(),
		ClientID:  client.ID,
		Items:     BuildItems(in.Items),
		TaxRate:   in.TaxRate,
		IssueDate: now,
		Status:    models.StatusDraft,
		Payments:  []models.Payment{},
		Notes:     strings.TrimSpace(in.Notes),
		Terms:     strings.TrimSpace(in.Terms),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// dates were checked by Validate
	inv.DueDate, _ = models.ParseDate(in.DueDate)
	if in.IssueDate != nil && *in.IssueDate != "" {
		inv.IssueDate, _ = models.ParseDate(*in.IssueDate)
	}
	if err := Recalculate(&inv, now); err != nil {
		return models.Invoice{}, err
	}

	if err := s.insertNumbered(ctx, &inv, in.InvoiceNumber); err != nil {
		return models.Invoice{}, err
	}
	s.Log.Info("invoice created", "invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber, "total", inv.Total.String())
	return s.GetInvoice(ctx, inv.ID)
}

// insertNumbered persists inv under explicit, or under the next sequence
// number. A unique violation on a generated number means the counter fell
// behind the table; it is raised and the insert retried once.
func (s *Service) insertNumbered(ctx context.Context, inv *models.Invoice, explicit string) error {
	if explicit != "" {
		inv.InvoiceNumber = explicit
		if n, ok := ParseInvoiceNumber(explicit); ok {
			if err := s.Numbers.Observe(ctx, n); err != nil {
				return err
			}
		}
		err := s.Store.CreateInvoice(ctx, *inv)
		if errors.Is(err, store.ErrDuplicateNumber) {
			return conflictf("invoice number %s already exists", explicit)
		}
		return s.mapClientRef(err)
	}

	for attempt := 0; ; attempt++ {
		n, err := s.Numbers.Next(ctx)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = FormatInvoiceNumber(n)
		err = s.Store.CreateInvoice(ctx, *inv)
		if !errors.Is(err, store.ErrDuplicateNumber) {
			return s.mapClientRef(err)
		}
		if attempt > 0 {
			return conflictf("invoice number %s already exists", inv.InvoiceNumber)
		}
		s.Log.Warn("invoice number taken, reseeding sequence", "invoice_number", inv.InvoiceNumber)
		if err := s.SeedSequence(ctx); err != nil {
			return err
		}
	}
}

func (s *Service) mapClientRef(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return Invalid("client_id", "client not found")
	}
	return err
}

func (s *Service) GetInvoice(ctx context.Context, id string) (models.Invoice, error) {
	inv, err := s.Store.GetInvoice(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return inv, notFound("invoice")
	}
	return inv, err
}

func (s *Service) FindInvoices(ctx context.Context, f store.InvoiceFilter) ([]models.Invoice, error) {
	return s.Store.FindInvoices(ctx, f)
}

// mutate runs fn against the current version of an invoice and saves the
// result. A concurrent writer makes the save fail its version check; the
// invoice is then reloaded and fn applied again, so no payment is lost.
func (s *Service) mutate(ctx context.Context, id string, fn func(inv *models.Invoice, now time.Time) error) (models.Invoice, error) {
	release, err := s.Locks.Lock(ctx, "invoice:"+id)
	if err != nil {
		return models.Invoice{}, err
	}
	defer release()

	for attempt := 1; ; attempt++ {
		inv, err := s.GetInvoice(ctx, id)
		if err != nil {
			return inv, err
		}
		if err := fn(&inv, s.Now()); err != nil {
			return models.Invoice{}, err
		}
		err = s.Store.UpdateInvoice(ctx, &inv)
		switch {
		case err == nil:
			return s.GetInvoice(ctx, id)
		case errors.Is(err, store.ErrVersionConflict):
			if attempt >= maxAttempts {
				return models.Invoice{}, fmt.Errorf("invoice %s: %w", id, ErrConcurrentUpdate)
			}
			s.Log.Debug("invoice changed concurrently, retrying", "invoice_id", id, "attempt", attempt)
		case errors.Is(err, store.ErrNotFound):
			// the invoice exists (we just read it), so the client went away
			if _, gerr := s.Store.GetInvoice(ctx, id); errors.Is(gerr, store.ErrNotFound) {
				return models.Invoice{}, notFound("invoice")
			}
			return models.Invoice{}, Invalid("client_id", "client not found")
		default:
			return models.Invoice{}, err
		}
	}
}

// UpdateInvoice applies a partial update and re-derives totals and status.
func (s *Service) UpdateInvoice(ctx context.Context, id string, p models.InvoicePatch) (models.Invoice, error) {
	if err := validation(p.Validate()); err != nil {
		return models.Invoice{}, err
	}
	var clientID string
	if p.ClientID != nil {
		c, err := s.resolveClient(ctx, strings.TrimSpace(*p.ClientID))
		if err != nil {
			return models.Invoice{}, err
		}
		clientID = c.ID
	}

	return s.mutate(ctx, id, func(inv *models.Invoice, now time.Time) error {
		next := inv.Clone()
		if clientID != "" {
			next.ClientID = clientID
		}
		if p.Items != nil {
			next.Items = BuildItems(p.Items)
		}
		if p.TaxRate != nil {
			next.TaxRate = *p.TaxRate
		}
		if p.IssueDate != nil {
			next.IssueDate, _ = models.ParseDate(*p.IssueDate)
		}
		if p.DueDate != nil {
			next.DueDate, _ = models.ParseDate(*p.DueDate)
		}
		if p.Notes != nil {
			next.Notes = strings.TrimSpace(*p.Notes)
		}
		if p.Terms != nil {
			next.Terms = strings.TrimSpace(*p.Terms)
		}
		if p.Status != nil && *p.Status != next.Status {
			if next.Status == models.StatusCancelled {
				return conflictf("invoice is cancelled and cannot change status")
			}
			if *p.Status == models.StatusCancelled && (next.Status == models.StatusPaid || next.AmountPaid > 0) {
				return conflictf("invoice has payments and cannot be cancelled")
			}
			next.Status = *p.Status
		}
		if err := Recalculate(&next, now); err != nil {
			return err
		}
		*inv = next
		return nil
	})
}

// RecordPayment appends a payment to the invoice.
func (s *Service) RecordPayment(ctx context.Context, id string, in models.PaymentInput) (models.Invoice, error) {
	// reject bad amounts before touching storage
	if err := validation(in.Validate()); err != nil {
		return models.Invoice{}, err
	}
	inv, err := s.mutate(ctx, id, func(inv *models.Invoice, now time.Time) error {
		return RecordPayment(inv, in, now)
	})
	if err != nil {
		return inv, err
	}
	s.Log.Info("payment recorded", "invoice_id", id, "amount", in.Amount.String(), "balance", inv.Balance.String(), "status", inv.Status)
	return inv, nil
}

// SendInvoice marks a Draft invoice as Sent and returns the envelope that
// would be mailed. No mail is delivered.
func (s *Service) SendInvoice(ctx context.Context, id string, in models.SendInput) (models.SendResult, error) {
	if err := validation(in.Validate()); err != nil {
		return models.SendResult{}, err
	}
	inv, err := s.mutate(ctx, id, func(inv *models.Invoice, now time.Time) error {
		next := inv.Clone()
		if next.Status == models.StatusDraft {
			next.Status = models.StatusSent
		}
		if next.SentAt == nil {
			next.SentAt = &now
		}
		if err := Recalculate(&next, now); err != nil {
			return err
		}
		*inv = next
		return nil
	})
	if err != nil {
		return models.SendResult{}, err
	}

	res := models.SendResult{
		To:      in.Email,
		Subject: in.Subject,
		Message: in.Message,
	}
	if res.To == "" {
		res.To = inv.ClientEmail
	}
	if res.Subject == "" {
		res.Subject = "Invoice #" + inv.InvoiceNumber
	}
	if res.Message == "" {
		res.Message = "Please find attached your invoice #" + inv.InvoiceNumber
	}
	s.Log.Info("invoice send requested", "invoice_id", id, "to", res.To, "status", inv.Status)
	return res, nil
}

// DeleteInvoice removes an invoice unless it is paid.
func (s *Service) DeleteInvoice(ctx context.Context, id string) error {
	release, err := s.Locks.Lock(ctx, "invoice:"+id)
	if err != nil {
		return err
	}
	defer release()

	inv, err := s.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if err := DeleteGuard(inv); err != nil {
		return err
	}
	switch err := s.Store.DeleteInvoice(ctx, id, inv.Version); {
	case errors.Is(err, store.ErrNotFound):
		return notFound("invoice")
	case errors.Is(err, store.ErrVersionConflict):
		return fmt.Errorf("invoice %s: %w", id, ErrConcurrentUpdate)
	case err != nil:
		return err
	}
	s.Log.Info("invoice deleted", "invoice_id", id, "invoice_number", inv.InvoiceNumber)
	return nil
}

// MarkOverdue re-derives the status of every open invoice and saves those
// that changed. It returns how many invoices became overdue.
func (s *Service) MarkOverdue(ctx context.Context) (int, error) {
	invoices, err := s.Store.FindInvoices(ctx, store.InvoiceFilter{})
	if err != nil {
		return 0, err
	}
	now := s.Now()
	marked := 0
	for _, inv := range invoices {
		if inv.Status != models.StatusDraft && inv.Status != models.StatusSent {
			continue
		}
		if DeriveStatus(inv.Status, inv.Balance, inv.DueDate, inv.AmountPaid, now) != models.StatusOverdue {
			continue
		}
		updated, err := s.mutate(ctx, inv.ID, func(inv *models.Invoice, now time.Time) error {
			return Recalculate(inv, now)
		})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return marked, fmt.Errorf("invoice %s: %w", inv.InvoiceNumber, err)
		}
		if updated.Status == models.StatusOverdue {
			marked++
		}
	}
	s.Log.Info("overdue sweep complete", "checked", len(invoices), "marked", marked)
	return marked, nil
}

// Stats

// InvoiceStats summarizes every invoice matching f.
func (s *Service) InvoiceStats(ctx context.Context, f store.InvoiceFilter) (stats.Summary, error) {
	invoices, err := s.Store.FindInvoices(ctx, f)
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.InvoiceSummary(invoices), nil
}

// ClientStats rolls invoices up per client, largest outstanding first.
func (s *Service) ClientStats(ctx context.Context) ([]stats.ClientTotals, error) {
	clients, err := s.Store.ListClients(ctx, store.ClientFilter{})
	if err != nil {
		return nil, err
	}
	invoices, err := s.Store.FindInvoices(ctx, store.InvoiceFilter{})
	if err != nil {
		return nil, err
	}
	return stats.ClientSummary(clients, invoices), nil
}
