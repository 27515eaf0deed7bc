package invoice

import (
	"context"
	"sort"
	"sync"

	"recoup/pkg/domain"
	"recoup/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	invoices map[domain.InvoiceID]Invoice
	byNumber map[string]domain.InvoiceID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		invoices: make(map[domain.InvoiceID]Invoice),
		byNumber: make(map[string]domain.InvoiceID),
	}
}

func (s *InMemoryStore) CreateIfNumberAvailable(_ context.Context, inv Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byNumber[inv.Number]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.invoices[inv.ID] = inv
	s.byNumber[inv.Number] = inv.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.InvoiceID) (Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inv, ok := s.invoices[id]; ok {
		return inv, nil
	}
	return Invoice{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByNumber(_ context.Context, number string) (Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byNumber[number]; ok {
		return s.invoices[id], nil
	}
	return Invoice{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *InMemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = make(map[domain.InvoiceID]Invoice)
	s.byNumber = make(map[string]domain.InvoiceID)
	return nil
}
