package billing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/satheeshds/invoicing/lock"
	"github.com/satheeshds/invoicing/models"
	"github.com/satheeshds/invoicing/sequence"
	"github.com/satheeshds/invoicing/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestService(t *testing.T) (*Service, *clock) {
	t.Helper()
	clk := &clock{t: now}
	svc := NewService(store.NewMemory(), sequence.NewMemory(), lock.NewLocal())
	svc.Now = clk.Now
	svc.Log = slog.New(slog.DiscardHandler)
	return svc, clk
}

func createClient(t *testing.T, svc *Service, email string) models.Client {
	t.Helper()
	c, err := svc.CreateClient(context.Background(), models.ClientInput{Name: "Client " + email, Email: email})
	require.NoError(t, err)
	return c
}

func lineInput(desc string, qty int64, price models.Money) models.LineItemInput {
	q := decimal.NewFromInt(qty)
	return models.LineItemInput{Description: desc, Quantity: &q, Price: &price}
}

func invoiceInput(clientID string) models.InvoiceInput {
	return models.InvoiceInput{
		ClientID: clientID,
		Items: []models.LineItemInput{
			lineInput("Design", 2, 5000),
			lineInput("Hosting", 1, 2500),
		},
		TaxRate: decimal.NewFromInt(10),
		DueDate: "2024-04-14",
	}
}

func TestCreateInvoice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")

	inv, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", inv.InvoiceNumber)
	assert.Equal(t, models.StatusDraft, inv.Status)
	assert.Equal(t, "125.00", inv.Subtotal.String())
	assert.Equal(t, "12.50", inv.TaxAmount.String())
	assert.Equal(t, "137.50", inv.Total.String())
	assert.Equal(t, inv.Total, inv.Balance)
	assert.Equal(t, now, inv.IssueDate)
	assert.Equal(t, c.Name, inv.ClientName)
	assert.Equal(t, 1, inv.Version)
}

func TestCreateInvoiceNumbersAreSequential(t *testing.T) {
	svc, _ := newTestService(t)
	c := createClient(t, svc, "acme@example.com")

	for i := 1; i <= 3; i++ {
		inv, err := svc.CreateInvoice(context.Background(), invoiceInput(c.ID))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("INV-%04d", i), inv.InvoiceNumber)
	}
}

func TestCreateInvoiceExplicitNumberRaisesSequence(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")

	in := invoiceInput(c.ID)
	in.InvoiceNumber = "INV-0100"
	inv, err := svc.CreateInvoice(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "INV-0100", inv.InvoiceNumber)

	next, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	assert.Equal(t, "INV-0101", next.InvoiceNumber)

	_, err = svc.CreateInvoice(ctx, in)
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Msg, "INV-0100")
}

func TestCreateInvoiceReseedsStaleSequence(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")

	// written behind the sequence's back
	require.NoError(t, svc.Store.CreateInvoice(ctx, models.Invoice{
		ID:            uuid.NewString(),
		InvoiceNumber: "INV-0001",
		ClientID:      c.ID,
		Status:        models.StatusDraft,
		Version:       1,
	}))

	inv, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	assert.Equal(t, "INV-0002", inv.InvoiceNumber)
}

func TestSeedSequence(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")
	require.NoError(t, svc.Store.CreateInvoice(ctx, models.Invoice{
		ID: uuid.NewString(), InvoiceNumber: "INV-0009", ClientID: c.ID, Version: 1,
	}))

	require.NoError(t, svc.SeedSequence(ctx))
	inv, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	assert.Equal(t, "INV-0010", inv.InvoiceNumber)
}

func TestConcurrentCreatesGetDistinctNumbers(t *testing.T) {
	svc, _ := newTestService(t)
	c := createClient(t, svc, "acme@example.com")

	const n = 50
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv, err := svc.CreateInvoice(context.Background(), invoiceInput(c.ID))
			if assert.NoError(t, err) {
				numbers <- inv.InvoiceNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for num := range numbers {
		assert.False(t, seen[num], "duplicate %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen[FormatInvoiceNumber(n)])
}

func TestCreateInvoiceUnknownClient(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateInvoice(context.Background(), invoiceInput(uuid.NewString()))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "client not found", verr.Fields["client_id"])
}

func TestCreateInvoiceValidation(t *testing.T) {
	svc, _ := newTestService(t)
	c := createClient(t, svc, "acme@example.com")

	in := invoiceInput(c.ID)
	in.TaxRate = decimal.NewFromInt(150)
	in.Items[1] = lineInput("Hosting", -1, 2500)
	_, err := svc.CreateInvoice(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "tax_rate")
	assert.Contains(t, verr.Fields, "items[1].quantity")

	invoices, err := svc.FindInvoices(context.Background(), store.InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestRecordPaymentSettlesInvoice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")
	inv, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)

	paid, err := svc.RecordPayment(ctx, inv.ID, models.PaymentInput{Amount: 13750})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, paid.Status)
	assert.Equal(t, models.Money(0), paid.Balance)
	assert.Equal(t, 2, paid.Version)

	_, err = svc.RecordPayment(ctx, inv.ID, models.PaymentInput{Amount: 0})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.RecordPayment(ctx, uuid.NewString(), models.PaymentInput{Amount: 100})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentPaymentsAreNotLost(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")
	in := invoiceInput(c.ID)
	in.Items = []models.LineItemInput{lineInput("Retainer", 1, 100000)}
	in.TaxRate = decimal.Zero
	inv, err := svc.CreateInvoice(ctx, in)
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordPayment(ctx, inv.ID, models.PaymentInput{Amount: 1000})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, got.Payments, n)
	assert.Equal(t, models.Money(n*1000), got.AmountPaid)
	assert.Equal(t, models.Money(100000-n*1000), got.Balance)
	assert.Equal(t, n+1, got.Version)
}

func TestUpdateInvoice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")
	other := createClient(t, svc, "globex@example.com")
	inv, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)

	rate := decimal.Zero
	notes := "  net 30  "
	updated, err := svc.UpdateInvoice(ctx, inv.ID, models.InvoicePatch{
		ClientID: &other.ID,
		Items:    []models.LineItemInput{lineInput("Audit", 3, 10000)},
		TaxRate:  &rate,
		Notes:    &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, other.ID, updated.ClientID)
	assert.Equal(t, other.Name, updated.ClientName)
	assert.Equal(t, "300.00", updated.Total.String())
	assert.Equal(t, "net 30", updated.Notes)
	assert.Equal(t, inv.InvoiceNumber, updated.InvoiceNumber)

	missing := uuid.NewString()
	_, err = svc.UpdateInvoice(ctx, inv.ID, models.InvoicePatch{ClientID: &missing})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "client_id")

	_, err = svc.UpdateInvoice(ctx, uuid.NewString(), models.InvoicePatch{Notes: &notes})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateInvoiceStatusRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")
	inv, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)

	paid := models.StatusPaid
	_, err = svc.UpdateInvoice(ctx, inv.ID, models.InvoicePatch{Status: &paid})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	cancelled := models.StatusCancelled
	got, err := svc.UpdateInvoice(ctx, inv.ID, models.InvoicePatch{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	sent := models.StatusSent
	_, err = svc.UpdateInvoice(ctx, inv.ID, models.InvoicePatch{Status: &sent})
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)

	// the cancelled invoice can still be edited
	notes := "void"
	got, err = svc.UpdateInvoice(ctx, inv.ID, models.InvoicePatch{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestPaidInvoiceCannotBeCancelledOrDeleted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")
	cancelled := models.StatusCancelled

	paid, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	paid, err = svc.RecordPayment(ctx, paid.ID, models.PaymentInput{Amount: paid.Total})
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, paid.Status)

	_, err = svc.UpdateInvoice(ctx, paid.ID, models.InvoicePatch{Status: &cancelled})
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "invoice has payments and cannot be cancelled", cerr.Msg)
	require.ErrorAs(t, svc.DeleteInvoice(ctx, paid.ID), &cerr)

	partial, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, partial.ID, models.PaymentInput{Amount: 1000})
	require.NoError(t, err)
	_, err = svc.UpdateInvoice(ctx, partial.ID, models.InvoicePatch{Status: &cancelled})
	require.ErrorAs(t, err, &cerr)

	// a payment taken after cancelling still blocks the delete
	void, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	_, err = svc.UpdateInvoice(ctx, void.ID, models.InvoicePatch{Status: &cancelled})
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, void.ID, models.PaymentInput{Amount: 1000})
	require.NoError(t, err)
	require.ErrorAs(t, svc.DeleteInvoice(ctx, void.ID), &cerr)
	assert.Equal(t, "cannot delete a cancelled invoice with payments", cerr.Msg)

	got, err := svc.GetInvoice(ctx, void.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestUpdateInvoicePastDueBecomesOverdue(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")
	inv, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)

	due := "2024-03-01"
	got, err := svc.UpdateInvoice(ctx, inv.ID, models.InvoicePatch{DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOverdue, got.Status)
}

func TestSendInvoice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")
	inv, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)

	res, err := svc.SendInvoice(ctx, inv.ID, models.SendInput{})
	require.NoError(t, err)
	assert.Equal(t, "acme@example.com", res.To)
	assert.Equal(t, "Invoice #INV-0001", res.Subject)

	got, err := svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	assert.Equal(t, now, *got.SentAt)

	res, err = svc.SendInvoice(ctx, inv.ID, models.SendInput{Email: "ap@acme.com", Subject: "Reminder"})
	require.NoError(t, err)
	assert.Equal(t, "ap@acme.com", res.To)
	assert.Equal(t, "Reminder", res.Subject)
}

func TestDeleteInvoice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")
	draft, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	settled, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, settled.ID, models.PaymentInput{Amount: settled.Total})
	require.NoError(t, err)

	var cerr *ConflictError
	require.ErrorAs(t, svc.DeleteInvoice(ctx, settled.ID), &cerr)
	assert.Equal(t, "cannot delete a paid invoice", cerr.Msg)

	require.NoError(t, svc.DeleteInvoice(ctx, draft.ID))
	_, err = svc.GetInvoice(ctx, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteInvoice(ctx, draft.ID), ErrNotFound)
}

func TestMarkOverdue(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")
	open, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	settled, err := svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, settled.ID, models.PaymentInput{Amount: settled.Total})
	require.NoError(t, err)

	n, err := svc.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clk.Advance(60 * 24 * time.Hour)
	n, err = svc.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.GetInvoice(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOverdue, got.Status)
	got, err = svc.GetInvoice(ctx, settled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)
}

func TestClientLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := createClient(t, svc, "acme@example.com")

	_, err := svc.CreateClient(ctx, models.ClientInput{Name: "Copycat", Email: "ACME@example.com"})
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "client with this email already exists", cerr.Msg)

	other := createClient(t, svc, "globex@example.com")
	_, err = svc.UpdateClient(ctx, other.ID, models.ClientPatch{Email: &c.Email})
	require.ErrorAs(t, err, &cerr)

	// unchanged email is not a conflict with itself
	name := "Acme Corp"
	updated, err := svc.UpdateClient(ctx, c.ID, models.ClientPatch{Name: &name, Email: &c.Email})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.Name)

	_, err = svc.CreateInvoice(ctx, invoiceInput(c.ID))
	require.NoError(t, err)
	require.ErrorAs(t, svc.DeleteClient(ctx, c.ID), &cerr)
	assert.Equal(t, "cannot delete client with existing invoices", cerr.Msg)

	require.NoError(t, svc.DeleteClient(ctx, other.ID))
	_, err = svc.GetClient(ctx, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteClient(ctx, other.ID), ErrNotFound)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := createClient(t, svc, "a@example.com")
	b := createClient(t, svc, "b@example.com")
	createClient(t, svc, "idle@example.com")

	inv, err := svc.CreateInvoice(ctx, invoiceInput(a.ID))
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, inv.ID, models.PaymentInput{Amount: 5000})
	require.NoError(t, err)
	_, err = svc.CreateInvoice(ctx, invoiceInput(b.ID))
	require.NoError(t, err)

	s, err := svc.InvoiceStats(ctx, store.InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalInvoices)
	assert.Equal(t, "275.00", s.TotalAmount.String())
	assert.Equal(t, "50.00", s.TotalPaid.String())
	assert.Equal(t, "225.00", s.TotalOutstanding.String())

	totals, err := svc.ClientStats(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Equal(t, b.ID, totals[0].ClientID)
	assert.Equal(t, a.ID, totals[1].ClientID)
	assert.Equal(t, 0, totals[2].TotalInvoices)
}
