package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new HTTP router with configured routes, middleware, and
// handlers. It sets up the batch and run routes, health check, and Prometheus
// metrics endpoint.
func NewRouter(service UploadServiceI, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	uploadHandler := NewUploadHandler(service, logger)

	r.Route("/batch", func(r chi.Router) {
		r.Get("/", uploadHandler.GetBatch)
		r.Delete("/", uploadHandler.ClearBatch)
		r.Post("/files", uploadHandler.AddFiles)
		r.Delete("/files/{taskID}", uploadHandler.RemoveFile)
	})

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", uploadHandler.StartRun)
		r.Get("/current", uploadHandler.GetRun)
		r.Delete("/current", uploadHandler.CancelRun)
	})

	r.Put("/settings/parallelism", uploadHandler.SetParallelism)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
