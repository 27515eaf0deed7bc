package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"recoup/pkg/domain"
	"recoup/pkg/platform/sentinel"
)

// InMemoryStore keeps the audit trail in an append slice. Entries arrive in
// commit order, so listing preserves time order without sorting.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) ListByCase(_ context.Context, caseID domain.CaseID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries...), nil
}

func (s *InMemoryStore) LastByCaseAction(_ context.Context, caseID domain.CaseID, action string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].CaseID == caseID && s.entries[i].Action == action {
			return s.entries[i], nil
		}
	}
	return Entry{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}
