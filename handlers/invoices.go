package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/satheeshds/invoicing/export"
	"github.com/satheeshds/invoicing/models"
	"github.com/satheeshds/invoicing/stats"
	"github.com/satheeshds/invoicing/store"
)

// invoiceFilter reads the list filters shared by list, stats and export.
func invoiceFilter(r *http.Request) (store.InvoiceFilter, string) {
	q := r.URL.Query()
	f := store.InvoiceFilter{
		ClientID: q.Get("clientId"),
		Search:   q.Get("search"),
	}
	if s := q.Get("status"); s != "" {
		f.Status = models.Status(s)
		if !f.Status.Valid() {
			return f, "status must be one of: Draft, Sent, Paid, Overdue, Cancelled"
		}
	}
	if s := q.Get("startDate"); s != "" {
		t, err := models.ParseDate(s)
		if err != nil {
			return f, "startDate must be a date (YYYY-MM-DD)"
		}
		f.From = &t
	}
	if s := q.Get("endDate"); s != "" {
		t, err := models.ParseDate(s)
		if err != nil {
			return f, "endDate must be a date (YYYY-MM-DD)"
		}
		end := models.EndOfDay(t)
		f.To = &end
	}
	return f, ""
}

// invoiceList is a page of invoices with a summary over the whole filter.
type invoiceList struct {
	Page[models.Invoice]
	Summary stats.Summary `json:"summary"`
}

// ListInvoices lists invoices
// @Summary      List invoices
// @Description  Get a filtered, paginated list of invoices with a summary over every matching invoice.
// @Tags         invoices
// @Produce      json
// @Param        status     query     string  false  "Filter by status (Draft, Sent, Paid, Overdue, Cancelled)"
// @Param        clientId   query     string  false  "Filter by client"
// @Param        startDate  query     string  false  "Issued on or after (YYYY-MM-DD)"
// @Param        endDate    query     string  false  "Issued on or before (YYYY-MM-DD)"
// @Param        search     query     string  false  "Search by invoice number, client name, or item description"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Page size (default 10)"
// @Success      200        {object}  Response{data=invoiceList}
// @Failure      400        {object}  Response{error=string}
// @Router       /invoices [get]
// @Security     BasicAuth
func ListInvoices(w http.ResponseWriter, r *http.Request) {
	f, msg := invoiceFilter(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	invoices, err := Billing.FindInvoices(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	p, limit := page(r)
	writeJSON(w, http.StatusOK, invoiceList{
		Page:    paginate(invoices, p, limit),
		Summary: stats.InvoiceSummary(invoices),
	})
}

// GetInvoice retrieves a single invoice by ID
// @Summary      Get invoice
// @Description  Get a specific invoice with its items and payments.
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  Response{data=models.Invoice}
// @Failure      404  {object}  Response{error=string}
// @Router       /invoices/{id} [get]
// @Security     BasicAuth
func GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := Billing.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// CreateInvoice creates a new invoice
// @Summary      Create invoice
// @Description  Create a Draft invoice. Totals and status are derived; an invoice number is assigned when none is given.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        invoice  body      models.InvoiceInput  true  "Invoice contents"
// @Success      201      {object}  Response{data=models.Invoice}
// @Failure      400      {object}  Response{error=string}
// @Router       /invoices [post]
// @Security     BasicAuth
func CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var input models.InvoiceInput
	if !decode(w, r, &input) {
		return
	}
	inv, err := Billing.CreateInvoice(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// UpdateInvoice updates an existing invoice
// @Summary      Update invoice
// @Description  Partially update an invoice. Totals and status are re-derived.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Invoice ID"
// @Param        invoice  body      models.InvoicePatch  true  "Fields to change"
// @Success      200      {object}  Response{data=models.Invoice}
// @Failure      400      {object}  Response{error=string}
// @Failure      404      {object}  Response{error=string}
// @Router       /invoices/{id} [put]
// @Security     BasicAuth
func UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var input models.InvoicePatch
	if !decode(w, r, &input) {
		return
	}
	inv, err := Billing.UpdateInvoice(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// DeleteInvoice deletes an invoice
// @Summary      Delete invoice
// @Description  Remove an invoice. Paid invoices cannot be deleted.
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      400  {object}  Response{error=string}
// @Failure      404  {object}  Response{error=string}
// @Router       /invoices/{id} [delete]
// @Security     BasicAuth
func DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := Billing.DeleteInvoice(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// RecordPayment records a payment against an invoice
// @Summary      Record payment
// @Description  Append a payment; amount paid, balance and status are re-derived.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Invoice ID"
// @Param        payment  body      models.PaymentInput  true  "Payment"
// @Success      201      {object}  Response{data=models.Invoice}
// @Failure      400      {object}  Response{error=string}
// @Failure      404      {object}  Response{error=string}
// @Router       /invoices/{id}/payments [post]
// @Security     BasicAuth
func RecordPayment(w http.ResponseWriter, r *http.Request) {
	var input models.PaymentInput
	if !decode(w, r, &input) {
		return
	}
	inv, err := Billing.RecordPayment(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// SendInvoice marks an invoice as sent
// @Summary      Send invoice
// @Description  Mark a Draft invoice as Sent and return the e-mail envelope. No e-mail is delivered.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path      string            true   "Invoice ID"
// @Param        send  body      models.SendInput  false  "Envelope overrides"
// @Success      200   {object}  Response{data=models.SendResult}
// @Failure      404   {object}  Response{error=string}
// @Router       /invoices/{id}/send [post]
// @Security     BasicAuth
func SendInvoice(w http.ResponseWriter, r *http.Request) {
	var input models.SendInput
	if r.ContentLength != 0 && !decode(w, r, &input) {
		return
	}
	res, err := Billing.SendInvoice(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetInvoiceStats summarizes invoices
// @Summary      Invoice statistics
// @Description  Totals, breakdown by status and by month of issue.
// @Tags         invoices
// @Produce      json
// @Param        startDate  query     string  false  "Issued on or after (YYYY-MM-DD)"
// @Param        endDate    query     string  false  "Issued on or before (YYYY-MM-DD)"
// @Success      200        {object}  Response{data=stats.Summary}
// @Router       /invoices/stats [get]
// @Security     BasicAuth
func GetInvoiceStats(w http.ResponseWriter, r *http.Request) {
	f, msg := invoiceFilter(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	s, err := Billing.InvoiceStats(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ExportInvoices downloads invoices as a spreadsheet
// @Summary      Export invoices
// @Description  Download the invoices matching the list filters as an XLSX workbook.
// @Tags         invoices
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        status     query     string  false  "Filter by status"
// @Param        clientId   query     string  false  "Filter by client"
// @Param        startDate  query     string  false  "Issued on or after (YYYY-MM-DD)"
// @Param        endDate    query     string  false  "Issued on or before (YYYY-MM-DD)"
// @Param        search     query     string  false  "Search text"
// @Success      200        {file}    file
// @Router       /invoices/export [get]
// @Security     BasicAuth
func ExportInvoices(w http.ResponseWriter, r *http.Request) {
	f, msg := invoiceFilter(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	invoices, err := Billing.FindInvoices(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	name := fmt.Sprintf("invoices-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", export.XLSXContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	if err := export.WriteXLSX(w, invoices, stats.InvoiceSummary(invoices)); err != nil {
		writeServiceError(w, r, err)
	}
}
