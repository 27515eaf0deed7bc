package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recoup/internal/audit"
	"recoup/internal/platform/middleware"
	dErrors "recoup/pkg/domain-errors"
	"recoup/pkg/platform/httputil"
)

// Reader serves the global audit trail.
type Reader interface {
	ListAll(ctx context.Context) ([]audit.Entry, error)
}

type Handler struct {
	logger *slog.Logger
	trail  Reader
}

func New(trail Reader, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, trail: trail}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.handleListAll)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.trail.ListAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit trail",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list audit trail"))
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}
