// Package intake turns cleansed invoice tuples from the ingestion
// collaborator into invoices and initial cases. Bulk file parsing and raw
// cleansing stay upstream; this service only normalizes, dedupes, and opens.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"recoup/internal/cases"
	"recoup/internal/invoice"
	"recoup/internal/scoring"
	"recoup/pkg/domain"
	dErrors "recoup/pkg/domain-errors"
	"recoup/pkg/platform/sentinel"
	txcontext "recoup/pkg/platform/tx"
	"recoup/pkg/requestcontext"
)

// Row is one cleansed tuple from the ingestion collaborator.
type Row struct {
	InvoiceNumber string
	Amount        float64
	DueDate       time.Time
	CustomerID    string
	CustomerName  string
	Region        string
}

// Report summarizes a batch: duplicates are skips, not errors.
type Report struct {
	Ingested int      `json:"ingested"`
	Skipped  int      `json:"skipped"`
	Errors   int      `json:"errors"`
	Details  []string `json:"details,omitempty"`
}

// CaseOpener is the slice of the case service intake needs.
type CaseOpener interface {
	Open(ctx context.Context, invoiceID domain.InvoiceID, score scoring.Result) (cases.Case, error)
}

type Service struct {
	invoices invoice.Store
	opener   CaseOpener
	engine   *scoring.Engine
	logger   *slog.Logger
	runner   txcontext.Runner
}

type Option func(*Service)

// WithTxRunner makes each row's invoice create and case open atomic. Without
// it a failed open would leave an orphaned invoice that blocks re-ingest.
func WithTxRunner(runner txcontext.Runner) Option {
	return func(s *Service) { s.runner = runner }
}

func NewService(invoices invoice.Store, opener CaseOpener, engine *scoring.Engine, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		invoices: invoices,
		opener:   opener,
		engine:   engine,
		logger:   logger,
		runner:   txcontext.NewNopRunner(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest processes a batch. Each row creates exactly one invoice and one case
// or is skipped; a bad row never aborts the batch.
func (s *Service) Ingest(ctx context.Context, rows []Row) (Report, error) {
	now := requestcontext.Now(ctx)
	var report Report
	for _, row := range rows {
		clean, err := normalize(row)
		if err != nil {
			report.Errors++
			report.Details = append(report.Details, fmt.Sprintf("rejected %q: %v", row.InvoiceNumber, err))
			continue
		}

		inv := invoice.Invoice{
			ID:           domain.NewInvoiceID(),
			Number:       clean.InvoiceNumber,
			Amount:       clean.Amount,
			DueDate:      clean.DueDate,
			CustomerID:   clean.CustomerID,
			CustomerName: clean.CustomerName,
			Region:       domain.NormalizeRegion(clean.Region),
			Status:       invoice.StatusOpen,
			CreatedAt:    now,
		}
		score := s.engine.Score(scoring.Features{
			Amount:      inv.Amount,
			DaysOverdue: daysOverdue(inv.DueDate, now),
			Region:      inv.Region,
		})

		// One transaction per row: a failed case open must roll the invoice
		// back, or the duplicate check would swallow every re-ingest.
		err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.invoices.CreateIfNumberAvailable(ctx, inv); err != nil {
				return err
			}
			_, err := s.opener.Open(ctx, inv.ID, score)
			return err
		})
		switch {
		case err == nil:
			report.Ingested++
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			report.Skipped++
			report.Details = append(report.Details, fmt.Sprintf("skipped duplicate: %s", inv.Number))
		default:
			report.Errors++
			report.Details = append(report.Details, fmt.Sprintf("failed %s: %v", inv.Number, err))
			s.logger.ErrorContext(ctx, "invoice ingest failed",
				"invoice_number", inv.Number,
				"error", err.Error(),
			)
		}
	}
	return report, nil
}

func normalize(row Row) (Row, error) {
	row.InvoiceNumber = strings.TrimSpace(row.InvoiceNumber)
	if row.InvoiceNumber == "" {
		return Row{}, dErrors.New(dErrors.CodeBadRequest, "invoice number is required")
	}
	if math.IsNaN(row.Amount) || math.IsInf(row.Amount, 0) {
		return Row{}, dErrors.New(dErrors.CodeBadRequest, "amount is not a finite number")
	}
	if row.DueDate.IsZero() {
		return Row{}, dErrors.New(dErrors.CodeBadRequest, "due date is required")
	}
	row.Amount = math.Abs(row.Amount)
	row.CustomerID = strings.TrimSpace(row.CustomerID)
	row.CustomerName = strings.TrimSpace(row.CustomerName)
	return row, nil
}

// daysOverdue clamps at zero: not-yet-due invoices score as current.
func daysOverdue(dueDate, now time.Time) int {
	days := int(now.Sub(dueDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
