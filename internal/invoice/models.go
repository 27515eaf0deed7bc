// Package invoice holds the immutable financial facts cases are derived
// from. Lifecycle status is mirrored by the external ingestion collaborator
// off the case-event stream; this core only reads it.
package invoice

import (
	"time"

	"recoup/pkg/domain"
)

const StatusOpen = "OPEN"

// Invoice is immutable once ingested.
type Invoice struct {
	ID           domain.InvoiceID `json:"id"`
	Number       string           `json:"invoice_number"`
	Amount       float64          `json:"amount"`
	DueDate      time.Time        `json:"due_date"`
	CustomerID   string           `json:"customer_id"`
	CustomerName string           `json:"customer_name"`
	Region       domain.Region    `json:"region"`
	Status       string           `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
}
