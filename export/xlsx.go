// Package export writes invoices to spreadsheet and analytics formats.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/satheeshds/invoicing/models"
	"github.com/satheeshds/invoicing/stats"
	"github.com/xuri/excelize/v2"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	InvoiceSheet = "Invoices"
	SummarySheet = "Summary"
	dateLayout   = "2006-01-02"
)

var invoiceHeadings = []any{
	"Invoice Number", "Client", "Issue Date", "Due Date", "Status",
	"Subtotal", "Tax Rate", "Tax", "Total", "Paid", "Balance",
}

// WriteXLSX writes an invoice register sheet and a summary sheet to w.
func WriteXLSX(w io.Writer, invoices []models.Invoice, s stats.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", InvoiceSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if err := writeRegister(f, invoices); err != nil {
		return err
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}
	if err := writeSummary(f, s); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRegister(f *excelize.File, invoices []models.Invoice) error {
	if err := f.SetSheetRow(InvoiceSheet, "A1", &invoiceHeadings); err != nil {
		return err
	}
	for i, inv := range invoices {
		row := []any{
			inv.InvoiceNumber,
			inv.ClientName,
			inv.IssueDate.Format(dateLayout),
			inv.DueDate.Format(dateLayout),
			string(inv.Status),
			amount(inv.Subtotal),
			inv.TaxRate.InexactFloat64(),
			amount(inv.TaxAmount),
			amount(inv.Total),
			amount(inv.AmountPaid),
			amount(inv.Balance),
		}
		if err := f.SetSheetRow(InvoiceSheet, "A"+fmt.Sprint(i+2), &row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, s stats.Summary) error {
	rows := [][]any{
		{"Total Invoices", s.TotalInvoices},
		{"Total Amount", amount(s.TotalAmount)},
		{"Total Paid", amount(s.TotalPaid)},
		{"Total Outstanding", amount(s.TotalOutstanding)},
		{},
		{"Status", "Count", "Amount", "Paid", "Outstanding"},
	}
	for _, st := range models.Statuses {
		t, ok := s.ByStatus[st]
		if !ok {
			continue
		}
		rows = append(rows, []any{string(st), t.Count, amount(t.Amount), amount(t.Paid), amount(t.Outstanding)})
	}

	months := make([]string, 0, len(s.ByMonth))
	for k := range s.ByMonth {
		months = append(months, k)
	}
	sort.Strings(months)
	rows = append(rows, []any{}, []any{"Month", "Count", "Amount"})
	for _, k := range months {
		p := s.ByMonth[k]
		rows = append(rows, []any{k, p.Count, amount(p.Amount)})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(SummarySheet, "A"+fmt.Sprint(i+1), &row); err != nil {
			return err
		}
	}
	return nil
}

func amount(m models.Money) float64 {
	return m.Decimal().InexactFloat64()
}
