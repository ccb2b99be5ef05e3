package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/V4T54L/logsink/internal/adapter/api/handler"
	"github.com/V4T54L/logsink/internal/adapter/api/middleware"
	"github.com/V4T54L/logsink/internal/pkg/config"
)

// NewRouter creates and configures the HTTP router for the ingest front-end.
func NewRouter(cfg config.IngestConfig, logger *slog.Logger, ingester handler.LogIngester) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.APIKey, logger))
		r.Method(http.MethodPost, "/ingest", handler.NewIngestHandler(ingester, logger, cfg.MaxEventSize))
	})

	return r
}
