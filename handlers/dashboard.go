package handlers

import (
	"net/http"

	"github.com/satheeshds/invoicing/models"
	"github.com/satheeshds/invoicing/stats"
	"github.com/satheeshds/invoicing/store"
)

const (
	recentInvoices = 5
	topClients     = 5
)

type dashboardData struct {
	TotalClients  int `json:"total_clients"`
	TotalInvoices int `json:"total_invoices"`

	Receivable      models.Money `json:"receivable"`
	OverdueInvoices int          `json:"overdue_invoices"`
	OverdueAmount   models.Money `json:"overdue_amount"`
	DraftInvoices   int          `json:"draft_invoices"`

	RecentInvoices []models.Invoice     `json:"recent_invoices"`
	TopClients     []stats.ClientTotals `json:"top_clients"`
}

// GetDashboard retrieves dashboard summary statistics
// @Summary      Get dashboard
// @Description  Get receivables, overdue totals, recent invoices and the clients owing the most.
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  Response{data=dashboardData}
// @Router       /dashboard [get]
// @Security     BasicAuth
func GetDashboard(w http.ResponseWriter, r *http.Request) {
	invoices, err := Billing.FindInvoices(r.Context(), store.InvoiceFilter{})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	clients, err := Billing.ClientStats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	s := stats.InvoiceSummary(invoices)
	d := dashboardData{
		TotalClients:    len(clients),
		TotalInvoices:   s.TotalInvoices,
		Receivable:      s.TotalOutstanding - s.ByStatus[models.StatusCancelled].Outstanding,
		OverdueInvoices: s.ByStatus[models.StatusOverdue].Count,
		OverdueAmount:   s.ByStatus[models.StatusOverdue].Outstanding,
		DraftInvoices:   s.ByStatus[models.StatusDraft].Count,
		RecentInvoices:  invoices[:min(recentInvoices, len(invoices))],
		TopClients:      clients[:min(topClients, len(clients))],
	}
	writeJSON(w, http.StatusOK, d)
}
