package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/satheeshds/invoicing/models"
)

// Memory is a Repository held in process memory. It enforces the same
// uniqueness, reference and version rules as the Postgres store.
type Memory struct {
	mu       sync.RWMutex
	clients  map[string]models.Client
	invoices map[string]models.Invoice
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		clients:  map[string]models.Client{},
		invoices: map[string]models.Invoice{},
		now:      time.Now,
	}
}

func (m *Memory) CreateClient(_ context.Context, c models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(c.Email, c.ID) {
		return ErrDuplicateEmail
	}
	m.clients[c.ID] = c
	return nil
}

func (m *Memory) emailTaken(email, exceptID string) bool {
	for id, c := range m.clients {
		if id != exceptID && strings.EqualFold(c.Email, email) {
			return true
		}
	}
	return false
}

func (m *Memory) GetClient(_ context.Context, id string) (models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return models.Client{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) FindClientByEmail(_ context.Context, email string) (models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return models.Client{}, ErrNotFound
}

func (m *Memory) ListClients(_ context.Context, f ClientFilter) ([]models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	search := strings.ToLower(f.Search)
	out := []models.Client{}
	for _, c := range m.clients {
		if search != "" && !containsAny(search, c.Name, c.Email, c.Address) {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b models.Client) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (m *Memory) UpdateClient(_ context.Context, c models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c.ID]; !ok {
		return ErrNotFound
	}
	if m.emailTaken(c.Email, c.ID) {
		return ErrDuplicateEmail
	}
	c.UpdatedAt = m.now()
	m.clients[c.ID] = c
	return nil
}

func (m *Memory) DeleteClient(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return ErrNotFound
	}
	if m.referenced(id) {
		return ErrReferenced
	}
	delete(m.clients, id)
	return nil
}

func (m *Memory) referenced(clientID string) bool {
	for _, inv := range m.invoices {
		if inv.ClientID == clientID {
			return true
		}
	}
	return false
}

func (m *Memory) ClientHasInvoices(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.referenced(id), nil
}

func (m *Memory) CreateInvoice(_ context.Context, inv models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[inv.ClientID]; !ok {
		return ErrNotFound
	}
	for _, other := range m.invoices {
		if other.InvoiceNumber == inv.InvoiceNumber {
			return ErrDuplicateNumber
		}
	}
	m.invoices[inv.ID] = stripComputed(inv.Clone())
	return nil
}

func (m *Memory) GetInvoice(_ context.Context, id string) (models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invoices[id]
	if !ok {
		return models.Invoice{}, ErrNotFound
	}
	return m.withClient(inv.Clone()), nil
}

func (m *Memory) withClient(inv models.Invoice) models.Invoice {
	if c, ok := m.clients[inv.ClientID]; ok {
		inv.ClientName = c.Name
		inv.ClientEmail = c.Email
	}
	return inv
}

func (m *Memory) FindInvoices(_ context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	search := strings.ToLower(f.Search)
	out := []models.Invoice{}
	for _, stored := range m.invoices {
		inv := m.withClient(stored.Clone())
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		if f.ClientID != "" && inv.ClientID != f.ClientID {
			continue
		}
		if f.From != nil && inv.IssueDate.Before(*f.From) {
			continue
		}
		if f.To != nil && inv.IssueDate.After(*f.To) {
			continue
		}
		if search != "" && !matchesInvoice(search, inv) {
			continue
		}
		out = append(out, inv)
	}
	slices.SortFunc(out, func(a, b models.Invoice) int {
		if c := b.IssueDate.Compare(a.IssueDate); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.InvoiceNumber, a.InvoiceNumber)
	})
	return out, nil
}

func matchesInvoice(search string, inv models.Invoice) bool {
	if containsAny(search, inv.InvoiceNumber, inv.ClientName) {
		return true
	}
	for _, it := range inv.Items {
		if containsAny(search, it.Description) {
			return true
		}
	}
	return false
}

func containsAny(lowerNeedle string, haystack ...string) bool {
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), lowerNeedle) {
			return true
		}
	}
	return false
}

func (m *Memory) UpdateInvoice(_ context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.invoices[inv.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != inv.Version {
		return ErrVersionConflict
	}
	if _, ok := m.clients[inv.ClientID]; !ok {
		return ErrNotFound
	}
	inv.Version++
	inv.UpdatedAt = m.now()
	// the number is immutable once assigned
	inv.InvoiceNumber = cur.InvoiceNumber
	m.invoices[inv.ID] = stripComputed(inv.Clone())
	return nil
}

func (m *Memory) DeleteInvoice(_ context.Context, id string, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != version {
		return ErrVersionConflict
	}
	delete(m.invoices, id)
	return nil
}

func (m *Memory) MaxInvoiceNumber(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var max int64
	for _, inv := range m.invoices {
		if n, ok := models.InvoiceNumberSuffix(inv.InvoiceNumber); ok && n > max {
			max = n
		}
	}
	return max, nil
}

func stripComputed(inv models.Invoice) models.Invoice {
	inv.ClientName = ""
	inv.ClientEmail = ""
	return inv
}
