// Package httptransport assembles the public HTTP surface. Handlers live with
// their domains; this package only owns the middleware chain and mounting.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"recoup/internal/platform/middleware"
)

const requestTimeout = 30 * time.Second

// Registrar is implemented by every domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the full router: operational endpoints outside the API
// middleware chain, domain routes inside it.
func NewRouter(logger *slog.Logger, handlers ...Registrar) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Recovery(logger))
	root.Use(middleware.RequestID)

	root.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	root.Method(http.MethodGet, "/metrics", promhttp.Handler())

	api := chi.NewRouter()
	api.Use(middleware.RequestTime)
	api.Use(middleware.Actor)
	api.Use(middleware.Logger(logger))
	api.Use(middleware.Timeout(requestTimeout))
	api.Use(middleware.ContentTypeJSON)
	for _, h := range handlers {
		h.Register(api)
	}
	root.Mount("/", api)

	return root
}
