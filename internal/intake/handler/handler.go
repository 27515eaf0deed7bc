package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"recoup/internal/intake"
	"recoup/internal/invoice"
	"recoup/internal/platform/middleware"
	dErrors "recoup/pkg/domain-errors"
	"recoup/pkg/platform/httputil"
)

// dueDateLayout is the feed's date-only format.
const dueDateLayout = "2006-01-02"

// Service defines the ingestion operations the transport needs.
type Service interface {
	Ingest(ctx context.Context, rows []intake.Row) (intake.Report, error)
}

// InvoiceReader serves the read side of the invoice surface.
type InvoiceReader interface {
	FindByNumber(ctx context.Context, number string) (invoice.Invoice, error)
	List(ctx context.Context) ([]invoice.Invoice, error)
}

type Handler struct {
	logger   *slog.Logger
	svc      Service
	invoices InvoiceReader
}

func New(svc Service, invoices InvoiceReader, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc, invoices: invoices}
}

// Register mounts intake and invoice read routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/intake/invoices", h.handleIngest)
	r.Get("/invoices", h.handleListInvoices)
	r.Get("/invoices/{number}", h.handleGetInvoice)
}

type ingestRow struct {
	InvoiceNumber string  `json:"invoice_number"`
	Amount        float64 `json:"amount"`
	DueDate       string  `json:"due_date"`
	CustomerID    string  `json:"customer_id"`
	CustomerName  string  `json:"customer_name"`
	Region        string  `json:"region"`
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload []ingestRow
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.WarnContext(ctx, "invalid intake payload",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(payload) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "at least one invoice row is required"))
		return
	}

	rows := make([]intake.Row, 0, len(payload))
	for _, p := range payload {
		row := intake.Row{
			InvoiceNumber: p.InvoiceNumber,
			Amount:        p.Amount,
			CustomerID:    p.CustomerID,
			CustomerName:  p.CustomerName,
			Region:        p.Region,
		}
		if p.DueDate != "" {
			due, err := time.Parse(dueDateLayout, p.DueDate)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
					"due_date must use YYYY-MM-DD"))
				return
			}
			row.DueDate = due
		}
		rows = append(rows, row)
	}

	report, err := h.svc.Ingest(ctx, rows)
	if err != nil {
		h.logger.ErrorContext(ctx, "intake batch failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "intake failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	list, err := h.invoices.List(r.Context())
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list invoices"))
		return
	}
	if list == nil {
		list = []invoice.Invoice{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	inv, err := h.invoices.FindByNumber(r.Context(), number)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "invoice not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, inv)
}
