package billing

import (
	"fmt"
	"time"

	"github.com/satheeshds/invoicing/models"
	"github.com/shopspring/decimal"
)

var (
	maxTaxRate = decimal.NewFromInt(100)
	hundred    = decimal.NewFromInt(100)
)

// Totals are the derived monetary fields of an invoice.
type Totals struct {
	Subtotal   models.Money
	TaxAmount  models.Money
	Total      models.Money
	AmountPaid models.Money
	Balance    models.Money
}

// LineTotal is quantity × price rounded to the cent.
func LineTotal(item models.LineItem) models.Money {
	return models.NewMoney(item.Quantity.Mul(item.Price.Decimal()))
}

// RecomputeTotals derives subtotal, tax, total, amount paid and balance.
// It is a pure function of its inputs; running it twice gives the same
// result. Sums are checked against models.MaxAmount in decimal before they
// are converted to cents.
func RecomputeTotals(items []models.LineItem, taxRate decimal.Decimal, payments []models.Payment) (Totals, error) {
	var errs models.FieldErrors
	if taxRate.IsNegative() || taxRate.GreaterThan(maxTaxRate) {
		errs = errs.Add("tax_rate", "must be between 0 and 100")
	}
	subtotal := decimal.Zero
	for i, item := range items {
		if item.Quantity.IsNegative() {
			errs = errs.Add(fmt.Sprintf("items[%d].quantity", i), "cannot be negative")
		}
		if item.Price < 0 {
			errs = errs.Add(fmt.Sprintf("items[%d].price", i), "cannot be negative")
		} else if err := models.CheckAmount(item.Price.Decimal()); err != nil {
			errs = errs.Add(fmt.Sprintf("items[%d].price", i), err.Error())
			continue
		}
		line := item.Quantity.Mul(item.Price.Decimal()).Round(2)
		if err := models.CheckAmount(line); err != nil {
			errs = errs.Add(fmt.Sprintf("items[%d].quantity", i), "line total "+err.Error())
			continue
		}
		subtotal = subtotal.Add(line)
	}
	paid := decimal.Zero
	for i, p := range payments {
		if p.Amount <= 0 {
			errs = errs.Add(fmt.Sprintf("payments[%d].amount", i), "must be greater than zero")
		} else if err := models.CheckAmount(p.Amount.Decimal()); err != nil {
			errs = errs.Add(fmt.Sprintf("payments[%d].amount", i), err.Error())
			continue
		}
		paid = paid.Add(p.Amount.Decimal())
	}
	if len(errs) == 0 {
		tax := subtotal.Mul(taxRate).Div(hundred).Round(2)
		if err := models.CheckAmount(subtotal.Add(tax)); err != nil {
			errs = errs.Add("items", "invoice total "+err.Error())
		}
		if err := models.CheckAmount(paid); err != nil {
			errs = errs.Add("amount", "total paid "+err.Error())
		}
	}
	if err := validation(errs); err != nil {
		return Totals{}, err
	}

	var t Totals
	t.Subtotal = models.NewMoney(subtotal)
	t.TaxAmount = t.Subtotal.Percent(taxRate)
	t.Total = t.Subtotal + t.TaxAmount
	t.AmountPaid = models.NewMoney(paid)
	t.Balance = t.Total - t.AmountPaid
	return t, nil
}

// DeriveStatus applies the lifecycle rules in order; the first match wins.
// A fully paid invoice is therefore never overdue.
func DeriveStatus(current models.Status, balance models.Money, dueDate time.Time, amountPaid models.Money, now time.Time) models.Status {
	switch {
	case current == models.StatusCancelled:
		return current
	case balance <= 0:
		return models.StatusPaid
	case dueDate.Before(now):
		return models.StatusOverdue
	case current == models.StatusDraft && amountPaid > 0:
		return models.StatusSent
	}
	return current
}

// Recalculate refreshes line totals, derived amounts and status of inv.
// inv is left untouched when the input is invalid.
func Recalculate(inv *models.Invoice, now time.Time) error {
	t, err := RecomputeTotals(inv.Items, inv.TaxRate, inv.Payments)
	if err != nil {
		return err
	}
	for i := range inv.Items {
		inv.Items[i].Total = LineTotal(inv.Items[i])
	}
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.Total = t.Total
	inv.AmountPaid = t.AmountPaid
	inv.Balance = t.Balance
	inv.Status = DeriveStatus(inv.Status, t.Balance, inv.DueDate, t.AmountPaid, now)
	return nil
}

// RecordPayment appends a payment and recalculates. Date defaults to now
// and method to Bank Transfer.
func RecordPayment(inv *models.Invoice, in models.PaymentInput, now time.Time) error {
	if errs := in.Validate(); len(errs) > 0 {
		return validation(errs)
	}
	p := models.Payment{
		Amount:    in.Amount,
		Date:      now,
		Method:    in.Method,
		Reference: in.Reference,
	}
	if in.Date != nil && *in.Date != "" {
		d, err := models.ParseDate(*in.Date)
		if err != nil {
			return Invalid("date", err.Error())
		}
		p.Date = d
	}
	if p.Method == "" {
		p.Method = models.MethodBankTransfer
	}

	next := inv.Clone()
	next.Payments = append(next.Payments, p)
	if err := Recalculate(&next, now); err != nil {
		return err
	}
	*inv = next
	return nil
}

// DeleteGuard refuses to destroy settled financial records: paid invoices
// and cancelled invoices that still hold payments.
func DeleteGuard(inv models.Invoice) error {
	if inv.Status == models.StatusPaid {
		return conflictf("cannot delete a paid invoice")
	}
	if inv.Status == models.StatusCancelled && inv.AmountPaid > 0 {
		return conflictf("cannot delete a cancelled invoice with payments")
	}
	return nil
}

// ClientDeleteGuard refuses to delete a client that invoices reference.
func ClientDeleteGuard(hasInvoices bool) error {
	if hasInvoices {
		return conflictf("cannot delete client with existing invoices")
	}
	return nil
}

// BuildItems converts validated caller input to line items with computed
// totals.
func BuildItems(in []models.LineItemInput) []models.LineItem {
	items := make([]models.LineItem, len(in))
	for i, it := range in {
		items[i] = models.LineItem{
			Description: it.Description,
			Quantity:    *it.Quantity,
			Price:       *it.Price,
		}
		items[i].Total = LineTotal(items[i])
	}
	return items
}
