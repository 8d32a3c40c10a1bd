package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one billable entry on an invoice. Total is always
// recomputed from Quantity and Price.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       Money           `json:"price"`
	Total       Money           `json:"total"`
}

// Payment is a settlement recorded against an invoice.
type Payment struct {
	Amount    Money         `json:"amount"`
	Date      time.Time     `json:"date"`
	Method    PaymentMethod `json:"method"`
	Reference string        `json:"reference,omitempty"`
}

// Invoice represents a receivable invoice to a client.
type Invoice struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      string          `json:"client_id"`
	Items         []LineItem      `json:"items"`
	Subtotal      Money           `json:"subtotal"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxAmount     Money           `json:"tax_amount"`
	Total         Money           `json:"total"`
	AmountPaid    Money           `json:"amount_paid"`
	Balance       Money           `json:"balance"`
	IssueDate     time.Time       `json:"issue_date"`
	DueDate       time.Time       `json:"due_date"`
	Status        Status          `json:"status"`
	Payments      []Payment       `json:"payments"`
	Notes         string          `json:"notes"`
	Terms         string          `json:"terms"`
	SentAt        *time.Time      `json:"sent_at,omitempty"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	// Computed fields
	ClientName  string `json:"client_name,omitempty"`
	ClientEmail string `json:"client_email,omitempty"`
}

// Clone returns a copy of inv that shares no slices with it.
func (inv Invoice) Clone() Invoice {
	inv.Items = append([]LineItem(nil), inv.Items...)
	inv.Payments = append([]Payment(nil), inv.Payments...)
	if inv.SentAt != nil {
		t := *inv.SentAt
		inv.SentAt = &t
	}
	return inv
}

// LineItemInput is a line item as supplied by a caller. Quantity and price
// must both be present; zero is a valid value for either.
type LineItemInput struct {
	Description string           `json:"description" validate:"required,max=500"`
	Quantity    *decimal.Decimal `json:"quantity" validate:"required"`
	Price       *Money           `json:"price" validate:"required"`
}

// InvoiceInput is used for creating invoices.
type InvoiceInput struct {
	InvoiceNumber string          `json:"invoice_number" validate:"max=50"`
	ClientID      string          `json:"client_id" validate:"required"`
	Items         []LineItemInput `json:"items" validate:"required,min=1,dive"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	IssueDate     *string         `json:"issue_date" validate:"omitempty,date"`
	DueDate       string          `json:"due_date" validate:"required,date"`
	Notes         string          `json:"notes"`
	Terms         string          `json:"terms"`
}

func (i *InvoiceInput) Validate() FieldErrors {
	i.InvoiceNumber = strings.TrimSpace(i.InvoiceNumber)
	i.ClientID = strings.TrimSpace(i.ClientID)
	errs := validateStruct(i)
	if !taxRateScaleOK(i.TaxRate) {
		errs = errs.Add("tax_rate", taxRateScaleMsg)
	}
	return errs
}

// taxRateScale matches the NUMERIC(7,4) tax_rate column.
const taxRateScale = 4

const taxRateScaleMsg = "must have at most 4 decimal places"

func taxRateScaleOK(d decimal.Decimal) bool {
	return d.Equal(d.Round(taxRateScale))
}

// InvoicePatch is a partial invoice update; nil fields are left unchanged.
type InvoicePatch struct {
	ClientID  *string          `json:"client_id"`
	Items     []LineItemInput  `json:"items" validate:"omitempty,min=1,dive"`
	TaxRate   *decimal.Decimal `json:"tax_rate"`
	IssueDate *string          `json:"issue_date" validate:"omitempty,date"`
	DueDate   *string          `json:"due_date" validate:"omitempty,date"`
	Status    *Status          `json:"status" validate:"omitempty,invoice_status"`
	Notes     *string          `json:"notes"`
	Terms     *string          `json:"terms"`
}

func (p *InvoicePatch) Validate() FieldErrors {
	errs := validateStruct(p)
	if p.ClientID != nil && strings.TrimSpace(*p.ClientID) == "" {
		errs = errs.Add("client_id", "cannot be empty")
	}
	if p.TaxRate != nil && !taxRateScaleOK(*p.TaxRate) {
		errs = errs.Add("tax_rate", taxRateScaleMsg)
	}
	if p.Status != nil && p.Status.Valid() && !p.Status.Settable() {
		errs = errs.Add("status", "is derived from payments and due date and cannot be set")
	}
	return errs
}

// PaymentInput is used for recording a payment.
type PaymentInput struct {
	Amount    Money         `json:"amount"`
	Date      *string       `json:"date" validate:"omitempty,date"`
	Method    PaymentMethod `json:"method" validate:"omitempty,payment_method"`
	Reference string        `json:"reference" validate:"max=200"`
}

func (p *PaymentInput) Validate() FieldErrors {
	p.Reference = strings.TrimSpace(p.Reference)
	errs := validateStruct(p)
	if p.Amount <= 0 {
		errs = errs.Add("amount", "must be greater than zero")
	} else if err := CheckAmount(p.Amount.Decimal()); err != nil {
		errs = errs.Add("amount", err.Error())
	}
	return errs
}

// SendInput overrides the defaults of the invoice e-mail envelope.
type SendInput struct {
	Email   string `json:"email" validate:"omitempty,email"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message"`
}

func (s *SendInput) Validate() FieldErrors {
	return validateStruct(s)
}

// SendResult is the envelope that would be delivered to the client.
type SendResult struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
