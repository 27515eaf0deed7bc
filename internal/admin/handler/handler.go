// Package handler exposes destructive administrative operations. These routes
// exist for demo and test environments and wipe state without confirmation.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recoup/internal/platform/middleware"
	dErrors "recoup/pkg/domain-errors"
	"recoup/pkg/platform/httputil"
)

// Resettable is any store-backed component that can drop its state.
type Resettable interface {
	Reset(ctx context.Context) error
}

type Handler struct {
	logger *slog.Logger
	stores []Resettable
}

func New(logger *slog.Logger, stores ...Resettable) *Handler {
	return &Handler{logger: logger, stores: stores}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/reset", h.handleReset)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	for _, store := range h.stores {
		if err := store.Reset(ctx); err != nil {
			h.logger.ErrorContext(ctx, "reset failed",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "reset failed"))
			return
		}
	}
	h.logger.WarnContext(ctx, "all demo state wiped",
		"request_id", middleware.GetRequestID(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}
