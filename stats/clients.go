package stats

import (
	"cmp"
	"slices"
	"time"

	"github.com/satheeshds/invoicing/models"
)

// ClientTotals is the invoice rollup of one client.
type ClientTotals struct {
	ClientID         string       `json:"client_id"`
	Name             string       `json:"name"`
	Email            string       `json:"email"`
	TotalInvoices    int          `json:"total_invoices"`
	TotalBilled      models.Money `json:"total_billed"`
	TotalPaid        models.Money `json:"total_paid"`
	TotalOutstanding models.Money `json:"total_outstanding"`
	LastInvoiceDate  *time.Time   `json:"last_invoice_date"`
}

// ClientSummary joins invoices to clients by reference. Every client is
// present, including those without invoices, ordered by outstanding amount
// descending.
func ClientSummary(clients []models.Client, invoices []models.Invoice) []ClientTotals {
	byClient := make(map[string]*ClientTotals, len(clients))
	out := make([]ClientTotals, len(clients))
	for i, c := range clients {
		out[i] = ClientTotals{ClientID: c.ID, Name: c.Name, Email: c.Email}
		byClient[c.ID] = &out[i]
	}
	for _, inv := range invoices {
		t, ok := byClient[inv.ClientID]
		if !ok {
			continue
		}
		t.TotalInvoices++
		t.TotalBilled += inv.Total
		t.TotalPaid += inv.AmountPaid
		t.TotalOutstanding += inv.Balance
		if t.LastInvoiceDate == nil || inv.IssueDate.After(*t.LastInvoiceDate) {
			d := inv.IssueDate
			t.LastInvoiceDate = &d
		}
	}
	slices.SortStableFunc(out, func(a, b ClientTotals) int {
		if c := cmp.Compare(b.TotalOutstanding, a.TotalOutstanding); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ClientID, b.ClientID)
	})
	return out
}
