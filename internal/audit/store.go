package audit

import (
	"context"

	"recoup/pkg/domain"
)

// Store persists audit entries. Append-only by contract: implementations never
// update or delete individual entries. Reset exists solely for the
// administrative wipe and carries no invariants.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByCase(ctx context.Context, caseID domain.CaseID) ([]Entry, error)
	ListAll(ctx context.Context) ([]Entry, error)
	// LastByCaseAction returns the most recent entry for the case with the
	// given action, or sentinel.ErrNotFound. The SLA monitor uses this to
	// deduplicate reminders.
	LastByCaseAction(ctx context.Context, caseID domain.CaseID, action string) (Entry, error)
	Reset(ctx context.Context) error
}
