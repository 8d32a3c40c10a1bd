package stats

import (
	"testing"
	"time"

	"github.com/satheeshds/invoicing/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func inv(client string, status models.Status, issued time.Time, total, paid models.Money) models.Invoice {
	return models.Invoice{
		ClientID:   client,
		Status:     status,
		IssueDate:  issued,
		Total:      total,
		AmountPaid: paid,
		Balance:    total - paid,
	}
}

func TestInvoiceSummary(t *testing.T) {
	invoices := []models.Invoice{
		inv("a", models.StatusPaid, date(2024, 1, 10), 50000, 50000),
		inv("a", models.StatusSent, date(2024, 1, 20), 30000, 10000),
		inv("b", models.StatusOverdue, date(2024, 2, 5), 20000, 0),
		inv("b", models.StatusSent, date(2023, 2, 5), 10000, 0),
	}
	s := InvoiceSummary(invoices)

	assert.Equal(t, 4, s.TotalInvoices)
	assert.Equal(t, models.Money(110000), s.TotalAmount)
	assert.Equal(t, models.Money(60000), s.TotalPaid)
	assert.Equal(t, models.Money(50000), s.TotalOutstanding)

	require.Len(t, s.ByStatus, 3)
	assert.Equal(t, StatusTotals{Count: 2, Amount: 40000, Paid: 10000, Outstanding: 30000}, s.ByStatus[models.StatusSent])
	assert.Equal(t, StatusTotals{Count: 1, Amount: 50000, Paid: 50000}, s.ByStatus[models.StatusPaid])

	// the same month in different years stays separate
	require.Len(t, s.ByMonth, 3)
	assert.Equal(t, PeriodTotals{Year: 2024, Month: 1, Count: 2, Amount: 80000}, s.ByMonth["2024-01"])
	assert.Equal(t, PeriodTotals{Year: 2024, Month: 2, Count: 1, Amount: 20000}, s.ByMonth["2024-02"])
	assert.Equal(t, PeriodTotals{Year: 2023, Month: 2, Count: 1, Amount: 10000}, s.ByMonth["2023-02"])
}

func TestInvoiceSummaryPartitionsTotals(t *testing.T) {
	invoices := []models.Invoice{
		inv("a", models.StatusDraft, date(2024, 3, 1), 1234, 0),
		inv("a", models.StatusCancelled, date(2024, 4, 1), 999, 0),
		inv("b", models.StatusPaid, date(2024, 5, 1), 5000, 6000),
	}
	s := InvoiceSummary(invoices)

	var count int
	var amount, paid, outstanding models.Money
	for _, st := range s.ByStatus {
		count += st.Count
		amount += st.Amount
		paid += st.Paid
		outstanding += st.Outstanding
	}
	assert.Equal(t, s.TotalInvoices, count)
	assert.Equal(t, s.TotalAmount, amount)
	assert.Equal(t, s.TotalPaid, paid)
	assert.Equal(t, s.TotalOutstanding, outstanding)
	assert.Equal(t, s.TotalAmount, s.TotalPaid+s.TotalOutstanding)
}

func TestInvoiceSummaryEmpty(t *testing.T) {
	s := InvoiceSummary(nil)
	assert.Zero(t, s.TotalInvoices)
	assert.NotNil(t, s.ByStatus)
	assert.NotNil(t, s.ByMonth)
}

func TestPeriodKey(t *testing.T) {
	assert.Equal(t, "2024-03", PeriodKey(2024, 3))
	assert.Equal(t, "2024-12", PeriodKey(2024, 12))
}
