// Package store persists clients and invoices.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/satheeshds/invoicing/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateEmail  = errors.New("email already in use")
	ErrDuplicateNumber = errors.New("invoice number already exists")
	ErrReferenced      = errors.New("record is referenced by invoices")
	ErrVersionConflict = errors.New("version conflict")
)

// ClientFilter narrows ListClients. Search matches name, email and address.
type ClientFilter struct {
	Search string
}

// InvoiceFilter narrows FindInvoices. From and To bound the issue date and
// are both inclusive. Search matches the invoice number, the client name
// and item descriptions, case-insensitively.
type InvoiceFilter struct {
	Status   models.Status
	ClientID string
	From     *time.Time
	To       *time.Time
	Search   string
}

// Repository is the persistence boundary used by the billing service.
//
// UpdateInvoice and DeleteInvoice are conditional on the version the caller
// read; a mismatch yields ErrVersionConflict. On success UpdateInvoice
// bumps inv.Version.
type Repository interface {
	CreateClient(ctx context.Context, c models.Client) error
	GetClient(ctx context.Context, id string) (models.Client, error)
	FindClientByEmail(ctx context.Context, email string) (models.Client, error)
	ListClients(ctx context.Context, f ClientFilter) ([]models.Client, error)
	UpdateClient(ctx context.Context, c models.Client) error
	DeleteClient(ctx context.Context, id string) error
	ClientHasInvoices(ctx context.Context, id string) (bool, error)

	CreateInvoice(ctx context.Context, inv models.Invoice) error
	GetInvoice(ctx context.Context, id string) (models.Invoice, error)
	FindInvoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *models.Invoice) error
	DeleteInvoice(ctx context.Context, id string, version int) error
	MaxInvoiceNumber(ctx context.Context) (int64, error)
}
