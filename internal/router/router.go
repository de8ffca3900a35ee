package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"chartgpt-backend/internal/handlers"
	"chartgpt-backend/internal/middleware"
	"chartgpt-backend/internal/websocket"
)

func New(
	chartHandler *handlers.ChartHandler,
	wsHub *websocket.Hub,
	defaultKeyLimiter *middleware.RateLimiter,
	logger *zap.Logger,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.CORS(frontendURL))

	r.NotFound(handlers.NotFound)

	r.Get("/health", handlers.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// ──── Outbound calls (model-backed) ────
		r.Group(func(r chi.Router) {
			r.Use(defaultKeyLimiter.Middleware)
			r.Post("/get-type", chartHandler.GetType)
			r.Post("/parse-graph", chartHandler.ParseGraph)
		})

		r.Route("/v1", func(r chi.Router) {
			// ──── Chart Routes ────
			r.Route("/charts", func(r chi.Router) {
				r.With(defaultKeyLimiter.Middleware).Post("/", chartHandler.Submit)
				r.Get("/{sessionID}", chartHandler.GetState)
				r.Get("/{sessionID}/export.png", chartHandler.Export)
			})

			// ──── WebSocket ────
			r.Get("/ws", wsHub.HandleWebSocket)
		})
	})

	return r
}
