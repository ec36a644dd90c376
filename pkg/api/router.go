package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/fsbroker/internal/logger"
	"github.com/marmos91/fsbroker/pkg/api/handlers"
	"github.com/marmos91/fsbroker/pkg/backend"
	"github.com/marmos91/fsbroker/pkg/metrics"
	"github.com/marmos91/fsbroker/pkg/openfile"
)

// Deps are the broker components the API reads from.
type Deps struct {
	FS     backend.FileSystem
	Table  *openfile.Table
	Broker handlers.BrokerStatus
}

// NewRouter creates the chi router.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe (backend health check)
//   - GET /api/v1/handles - Open handles, optional ?owner= filter
//   - GET /api/v1/handles/{id} - One open handle
//   - GET /metrics - Prometheus scrape endpoint (404 when metrics are off)
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(deps.FS, deps.Broker)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	if deps.Table != nil {
		handlesHandler := handlers.NewHandlesHandler(deps.Table)
		r.Route("/api/v1/handles", func(r chi.Router) {
			r.Get("/", handlesHandler.List)
			r.Get("/{id}", handlesHandler.Get)
		})
	}

	// Resolved per request so a registry created after the router is used.
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.Handler().ServeHTTP(w, r)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs each request start at DEBUG and completion at INFO.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
