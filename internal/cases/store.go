package cases

import (
	"context"

	"recoup/pkg/domain"
)

// Store persists cases. Implementations must make ApplyTransition a
// compare-and-apply: the write succeeds only while the case still holds the
// expected status pair, so two racing transitions cannot both land on a stale
// view. Losers get sentinel.ErrConflict.
type Store interface {
	Create(ctx context.Context, c Case) error
	FindByID(ctx context.Context, id domain.CaseID) (Case, error)
	FindByInvoice(ctx context.Context, invoiceID domain.InvoiceID) (Case, error)
	List(ctx context.Context) ([]Case, error)
	// ListScannable returns cases the SLA monitor examines: status not
	// terminal and SLA status not PAUSED.
	ListScannable(ctx context.Context) ([]Case, error)
	ApplyTransition(ctx context.Context, updated Case, expectStatus Status, expectSLA SLAStatus) error
	Reset(ctx context.Context) error
}
