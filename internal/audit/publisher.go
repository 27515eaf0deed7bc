package audit

import (
	"context"

	"recoup/pkg/domain"
	"recoup/pkg/requestcontext"
)

// Publisher captures structured audit entries. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	return p.store.Append(ctx, entry)
}

func (p *Publisher) ListByCase(ctx context.Context, caseID domain.CaseID) ([]Entry, error) {
	return p.store.ListByCase(ctx, caseID)
}

func (p *Publisher) ListAll(ctx context.Context) ([]Entry, error) {
	return p.store.ListAll(ctx)
}

func (p *Publisher) LastByCaseAction(ctx context.Context, caseID domain.CaseID, action string) (Entry, error) {
	return p.store.LastByCaseAction(ctx, caseID, action)
}

func (p *Publisher) Reset(ctx context.Context) error {
	return p.store.Reset(ctx)
}
