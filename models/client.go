package models

import (
	"strings"
	"time"
)

// DefaultPaymentTerms is the number of days a client has to pay when no
// terms were agreed.
const DefaultPaymentTerms = 30

// Client represents a customer that invoices are issued to.
type Client struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	TaxID        string    `json:"tax_id"`
	PaymentTerms int       `json:"payment_terms"` // days
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ClientInput is used for creating clients.
type ClientInput struct {
	Name         string `json:"name" validate:"required,max=200"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
	Address      string `json:"address" validate:"max=500"`
	TaxID        string `json:"tax_id" validate:"max=50"`
	PaymentTerms *int   `json:"payment_terms" validate:"omitempty,min=0,max=365"`
}

func (c *ClientInput) Validate() FieldErrors {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = NormalizeEmail(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	return validateStruct(c)
}

// ClientPatch is a partial client update; nil fields are left unchanged.
type ClientPatch struct {
	Name         *string `json:"name" validate:"omitempty,max=200"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone" validate:"omitempty,phone"`
	Address      *string `json:"address" validate:"omitempty,max=500"`
	TaxID        *string `json:"tax_id" validate:"omitempty,max=50"`
	PaymentTerms *int    `json:"payment_terms" validate:"omitempty,min=0,max=365"`
}

func (p *ClientPatch) Validate() FieldErrors {
	if p.Email != nil {
		e := NormalizeEmail(*p.Email)
		p.Email = &e
	}
	errs := validateStruct(p)
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		errs = errs.Add("name", "cannot be empty")
	}
	if p.Email != nil && *p.Email == "" {
		errs = errs.Add("email", "cannot be empty")
	}
	return errs
}

// NewClient builds a client from validated input.
func NewClient(id string, in ClientInput, now time.Time) Client {
	c := Client{
		ID:           id,
		Name:         in.Name,
		Email:        in.Email,
		Phone:        NormalizePhone(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		TaxID:        strings.TrimSpace(in.TaxID),
		PaymentTerms: DefaultPaymentTerms,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.PaymentTerms != nil {
		c.PaymentTerms = *in.PaymentTerms
	}
	return c
}

// Apply copies the non-nil fields of p onto c.
func (p ClientPatch) Apply(c *Client) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = NormalizePhone(*p.Phone)
	}
	if p.Address != nil {
		c.Address = strings.TrimSpace(*p.Address)
	}
	if p.TaxID != nil {
		c.TaxID = strings.TrimSpace(*p.TaxID)
	}
	if p.PaymentTerms != nil {
		c.PaymentTerms = *p.PaymentTerms
	}
}

// NormalizeEmail lower-cases and trims an address so uniqueness is
// case-insensitive.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
