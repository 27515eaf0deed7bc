package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recoup/internal/platform/middleware"
	"recoup/internal/sla"
	dErrors "recoup/pkg/domain-errors"
	"recoup/pkg/platform/httputil"
)

// Scanner triggers an on-demand breach-detection pass.
type Scanner interface {
	Scan(ctx context.Context) (sla.Report, error)
}

type Handler struct {
	logger  *slog.Logger
	scanner Scanner
}

func New(scanner Scanner, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, scanner: scanner}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/sla/scan", h.handleScan)
}

// handleScan runs one scan synchronously. Operators use it to force a pass
// between ticks; the background loop stays authoritative.
func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.scanner.Scan(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "on-demand sla scan failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "scan failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
