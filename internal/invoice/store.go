package invoice

import (
	"context"

	"recoup/pkg/domain"
)

// Store persists invoices. CreateIfNumberAvailable is the idempotency gate:
// a duplicate invoice number returns sentinel.ErrAlreadyUsed and writes
// nothing, so re-ingesting a feed is safe.
type Store interface {
	CreateIfNumberAvailable(ctx context.Context, inv Invoice) error
	FindByID(ctx context.Context, id domain.InvoiceID) (Invoice, error)
	FindByNumber(ctx context.Context, number string) (Invoice, error)
	List(ctx context.Context) ([]Invoice, error)
	Reset(ctx context.Context) error
}
