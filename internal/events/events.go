// Package events dispatches domain events to downstream collaborators. The
// state machine's commit never blocks on reallocation or ERP availability:
// events are fired after commit and delivery is best-effort asynchronous.
package events

import (
	"context"
	"sync"
	"time"

	"recoup/pkg/domain"
)

type Kind string

const (
	// KindCaseRejected feeds the external reallocation process.
	KindCaseRejected Kind = "case.rejected"
	// KindCasePaid feeds the external ERP update.
	KindCasePaid Kind = "case.paid"
	// KindCaseEscalated notifies the higher-attention queue.
	KindCaseEscalated Kind = "case.escalated"
)

// CaseEvent is the wire payload for downstream systems.
type CaseEvent struct {
	Kind      Kind             `json:"kind"`
	CaseID    domain.CaseID    `json:"case_id"`
	InvoiceID domain.InvoiceID `json:"invoice_id"`
	ActorID   string           `json:"actor_id,omitempty"`
	Detail    string           `json:"detail,omitempty"`
	At        time.Time        `json:"at"`
}

// Publisher fans events out. Implementations must not block the caller beyond
// local enqueueing.
type Publisher interface {
	Publish(ctx context.Context, event CaseEvent) error
	Close()
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, CaseEvent) error { return nil }
func (NopPublisher) Close()                                   {}

// Recorder collects events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []CaseEvent
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(_ context.Context, event CaseEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() {}

func (r *Recorder) Events() []CaseEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CaseEvent{}, r.events...)
}
