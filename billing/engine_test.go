package billing

import (
	"testing"
	"time"

	"github.com/satheeshds/invoicing/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now      = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	tomorrow = now.AddDate(0, 0, 1)
	lastWeek = now.AddDate(0, 0, -7)
)

func item(qty string, price models.Money) models.LineItem {
	return models.LineItem{Description: "work", Quantity: decimal.RequireFromString(qty), Price: price}
}

func TestRecomputeTotals(t *testing.T) {
	items := []models.LineItem{item("2", 5000), item("1", 2500)}
	got, err := RecomputeTotals(items, decimal.NewFromInt(10), nil)
	require.NoError(t, err)
	assert.Equal(t, Totals{
		Subtotal:  12500,
		TaxAmount: 1250,
		Total:     13750,
		Balance:   13750,
	}, got)

	got, err = RecomputeTotals(items, decimal.NewFromInt(10), []models.Payment{{Amount: 13750}})
	require.NoError(t, err)
	assert.Equal(t, models.Money(13750), got.AmountPaid)
	assert.Equal(t, models.Money(0), got.Balance)
}

func TestRecomputeTotalsIsIdempotent(t *testing.T) {
	items := []models.LineItem{item("1.5", 333), item("3", 199)}
	a, err := RecomputeTotals(items, decimal.RequireFromString("8.25"), nil)
	require.NoError(t, err)
	b, err := RecomputeTotals(items, decimal.RequireFromString("8.25"), nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	// 1.5 * 3.33 = 4.995 rounds to 5.00
	assert.Equal(t, models.Money(500), LineTotal(items[0]))
}

func TestRecomputeTotalsRejectsBadInput(t *testing.T) {
	_, err := RecomputeTotals([]models.LineItem{item("-1", 100), item("1", -5)}, decimal.NewFromInt(101), []models.Payment{{Amount: 0}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "tax_rate")
	assert.Contains(t, verr.Fields, "items[0].quantity")
	assert.Contains(t, verr.Fields, "items[1].price")
	assert.Contains(t, verr.Fields, "payments[0].amount")
}

func TestRecomputeTotalsRejectsAmountsAboveMax(t *testing.T) {
	tests := []struct {
		name     string
		items    []models.LineItem
		taxRate  string
		payments []models.Payment
		field    string
	}{
		{"unit price", []models.LineItem{item("3", 5000000000000000000)}, "0", nil, "items[0].price"},
		{"line total", []models.LineItem{item("1000000000000000", 10000)}, "0", nil, "items[0].quantity"},
		{"subtotal", []models.LineItem{item("1", 60000000000000), item("1", 60000000000000)}, "0", nil, "items"},
		{"total with tax", []models.LineItem{item("1", 90000000000000)}, "20", nil, "items"},
		{"amount paid", []models.LineItem{item("1", 100)}, "0",
			[]models.Payment{{Amount: 60000000000000}, {Amount: 60000000000000}}, "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecomputeTotals(tt.items, decimal.RequireFromString(tt.taxRate), tt.payments)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestRecalculateNeverWrapsToPaid(t *testing.T) {
	q := decimal.NewFromInt(3)
	price := models.Money(5000000000000000000)
	inv := newInvoice(models.StatusDraft, tomorrow)
	inv.Items = BuildItems([]models.LineItemInput{{Description: "work", Quantity: &q, Price: &price}})

	err := Recalculate(&inv, now)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, models.StatusDraft, inv.Status)
	assert.Equal(t, models.Money(0), inv.Total)
}

func TestRecomputeTotalsEmptyInvoice(t *testing.T) {
	got, err := RecomputeTotals(nil, decimal.Zero, nil)
	require.NoError(t, err)
	assert.Equal(t, Totals{}, got)
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name    string
		current models.Status
		balance models.Money
		due     time.Time
		paid    models.Money
		want    models.Status
	}{
		{"cancelled is sticky", models.StatusCancelled, 0, lastWeek, 500, models.StatusCancelled},
		{"settled is paid", models.StatusSent, 0, tomorrow, 500, models.StatusPaid},
		{"overpaid is paid", models.StatusSent, -100, tomorrow, 600, models.StatusPaid},
		{"paid beats overdue", models.StatusOverdue, 0, lastWeek, 500, models.StatusPaid},
		{"past due is overdue", models.StatusSent, 100, lastWeek, 0, models.StatusOverdue},
		{"draft past due is overdue", models.StatusDraft, 100, lastWeek, 0, models.StatusOverdue},
		{"partial payment sends draft", models.StatusDraft, 100, tomorrow, 50, models.StatusSent},
		{"draft stays draft", models.StatusDraft, 100, tomorrow, 0, models.StatusDraft},
		{"sent stays sent", models.StatusSent, 100, tomorrow, 50, models.StatusSent},
		{"due now is not overdue", models.StatusSent, 100, now, 0, models.StatusSent},
		{"overdue with new due date keeps status", models.StatusOverdue, 100, tomorrow, 0, models.StatusOverdue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.current, tt.balance, tt.due, tt.paid, now))
		})
	}
}

func newInvoice(status models.Status, due time.Time, items ...models.LineItem) models.Invoice {
	return models.Invoice{
		InvoiceNumber: "INV-0001",
		Items:         items,
		TaxRate:       decimal.NewFromInt(10),
		IssueDate:     lastWeek,
		DueDate:       due,
		Status:        status,
	}
}

func TestRecalculate(t *testing.T) {
	inv := newInvoice(models.StatusDraft, tomorrow, item("2", 5000), item("1", 2500))
	require.NoError(t, Recalculate(&inv, now))
	assert.Equal(t, models.Money(10000), inv.Items[0].Total)
	assert.Equal(t, models.Money(13750), inv.Total)
	assert.Equal(t, models.Money(13750), inv.Balance)
	assert.Equal(t, models.StatusDraft, inv.Status)
}

func TestRecalculateLeavesInvoiceOnError(t *testing.T) {
	inv := newInvoice(models.StatusDraft, tomorrow, item("1", 1000))
	require.NoError(t, Recalculate(&inv, now))
	before := inv.Clone()

	inv.TaxRate = decimal.NewFromInt(-1)
	require.Error(t, Recalculate(&inv, now))
	assert.Equal(t, before.Total, inv.Total)
	assert.Equal(t, before.Status, inv.Status)
}

func TestRecordPayment(t *testing.T) {
	inv := newInvoice(models.StatusSent, tomorrow, item("2", 5000), item("1", 2500))
	require.NoError(t, Recalculate(&inv, now))

	require.NoError(t, RecordPayment(&inv, models.PaymentInput{Amount: 5000}, now))
	assert.Equal(t, models.Money(5000), inv.AmountPaid)
	assert.Equal(t, models.Money(8750), inv.Balance)
	assert.Equal(t, models.StatusSent, inv.Status)
	require.Len(t, inv.Payments, 1)
	assert.Equal(t, models.MethodBankTransfer, inv.Payments[0].Method)
	assert.Equal(t, now, inv.Payments[0].Date)

	date := "2024-03-14"
	require.NoError(t, RecordPayment(&inv, models.PaymentInput{Amount: 8750, Date: &date, Method: models.MethodCheck}, now))
	assert.Equal(t, models.StatusPaid, inv.Status)
	assert.Equal(t, models.Money(0), inv.Balance)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), inv.Payments[1].Date)
}

func TestRecordPaymentPromotesDraft(t *testing.T) {
	inv := newInvoice(models.StatusDraft, tomorrow, item("1", 10000))
	require.NoError(t, Recalculate(&inv, now))
	require.NoError(t, RecordPayment(&inv, models.PaymentInput{Amount: 100}, now))
	assert.Equal(t, models.StatusSent, inv.Status)
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	inv := newInvoice(models.StatusSent, tomorrow, item("1", 10000))
	require.NoError(t, Recalculate(&inv, now))

	for _, amount := range []models.Money{0, -100} {
		err := RecordPayment(&inv, models.PaymentInput{Amount: amount}, now)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "amount")
	}
	assert.Empty(t, inv.Payments)
}

func TestRecordPaymentOnCancelledInvoice(t *testing.T) {
	inv := newInvoice(models.StatusCancelled, lastWeek, item("1", 10000))
	require.NoError(t, Recalculate(&inv, now))
	require.NoError(t, RecordPayment(&inv, models.PaymentInput{Amount: 11000}, now))
	assert.Equal(t, models.StatusCancelled, inv.Status)
	assert.Equal(t, models.Money(0), inv.Balance)
}

func TestDeleteGuard(t *testing.T) {
	var cerr *ConflictError
	require.ErrorAs(t, DeleteGuard(models.Invoice{Status: models.StatusPaid}), &cerr)
	assert.Equal(t, "cannot delete a paid invoice", cerr.Msg)

	for _, st := range []models.Status{models.StatusDraft, models.StatusSent, models.StatusOverdue, models.StatusCancelled} {
		assert.NoError(t, DeleteGuard(models.Invoice{Status: st}), st)
	}

	require.ErrorAs(t, DeleteGuard(models.Invoice{Status: models.StatusCancelled, AmountPaid: 500}), &cerr)
	assert.Equal(t, "cannot delete a cancelled invoice with payments", cerr.Msg)
	assert.NoError(t, DeleteGuard(models.Invoice{Status: models.StatusSent, AmountPaid: 500}))
}

func TestClientDeleteGuard(t *testing.T) {
	assert.NoError(t, ClientDeleteGuard(false))
	var cerr *ConflictError
	require.ErrorAs(t, ClientDeleteGuard(true), &cerr)
	assert.Equal(t, "cannot delete client with existing invoices", cerr.Msg)
}
