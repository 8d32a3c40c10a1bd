// Package stats aggregates invoices into summaries.
package stats

import (
	"fmt"

	"github.com/satheeshds/invoicing/models"
)

// StatusTotals aggregates the invoices in one status.
type StatusTotals struct {
	Count       int          `json:"count"`
	Amount      models.Money `json:"amount"`
	Paid        models.Money `json:"paid"`
	Outstanding models.Money `json:"outstanding"`
}

// PeriodTotals aggregates the invoices issued in one calendar month.
type PeriodTotals struct {
	Year   int          `json:"year"`
	Month  int          `json:"month"`
	Count  int          `json:"count"`
	Amount models.Money `json:"amount"`
}

// Summary is the result of InvoiceSummary.
type Summary struct {
	TotalInvoices    int                            `json:"total_invoices"`
	TotalAmount      models.Money                   `json:"total_amount"`
	TotalPaid        models.Money                   `json:"total_paid"`
	TotalOutstanding models.Money                   `json:"total_outstanding"`
	ByStatus         map[models.Status]StatusTotals `json:"by_status"`
	ByMonth          map[string]PeriodTotals        `json:"by_month"`
}

// PeriodKey formats a by_month key, e.g. "2024-03".
func PeriodKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// InvoiceSummary totals invoices and groups them by status and by month of
// issue. Each status and period appears once.
func InvoiceSummary(invoices []models.Invoice) Summary {
	s := Summary{
		ByStatus: map[models.Status]StatusTotals{},
		ByMonth:  map[string]PeriodTotals{},
	}
	for _, inv := range invoices {
		s.TotalInvoices++
		s.TotalAmount += inv.Total
		s.TotalPaid += inv.AmountPaid
		s.TotalOutstanding += inv.Balance

		st := s.ByStatus[inv.Status]
		st.Count++
		st.Amount += inv.Total
		st.Paid += inv.AmountPaid
		st.Outstanding += inv.Balance
		s.ByStatus[inv.Status] = st

		y, m, _ := inv.IssueDate.Date()
		key := PeriodKey(y, int(m))
		p := s.ByMonth[key]
		p.Year, p.Month = y, int(m)
		p.Count++
		p.Amount += inv.Total
		s.ByMonth[key] = p
	}
	return s
}
