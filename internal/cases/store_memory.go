package cases

import (
	"context"
	"sort"
	"sync"

	"recoup/pkg/domain"
	"recoup/pkg/platform/sentinel"
)

// InMemoryStore favors clarity over performance. The mutex is the per-case
// serialization point: compare-and-apply happens under it, so concurrent
// transitions against the same case cannot both succeed from a stale state.
type InMemoryStore struct {
	mu        sync.RWMutex
	cases     map[domain.CaseID]Case
	byInvoice map[domain.InvoiceID]domain.CaseID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		cases:     make(map[domain.CaseID]Case),
		byInvoice: make(map[domain.InvoiceID]domain.CaseID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, c Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byInvoice[c.InvoiceID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.cases[c.ID] = c
	s.byInvoice[c.InvoiceID] = c.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.CaseID) (Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.cases[id]; ok {
		return c, nil
	}
	return Case{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByInvoice(_ context.Context, invoiceID domain.InvoiceID) (Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byInvoice[invoiceID]; ok {
		return s.cases[id], nil
	}
	return Case{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Case, 0, len(s.cases))
	for _, c := range s.cases {
		out = append(out, c)
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) ListScannable(_ context.Context) ([]Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Case
	for _, c := range s.cases {
		if !c.Status.Terminal() && c.SLAStatus != SLAPaused {
			out = append(out, c)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) ApplyTransition(_ context.Context, updated Case, expectStatus Status, expectSLA SLAStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.cases[updated.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != expectStatus || current.SLAStatus != expectSLA {
		return sentinel.ErrConflict
	}
	s.cases[updated.ID] = updated
	return nil
}

func (s *InMemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases = make(map[domain.CaseID]Case)
	s.byInvoice = make(map[domain.InvoiceID]domain.CaseID)
	return nil
}

func sortByCreation(out []Case) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
}
