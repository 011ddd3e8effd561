// Package rest assembles the chi router.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"carelink-backend/interfaces/http/rest/handlers"
	"carelink-backend/interfaces/http/rest/middleware"
	"carelink-backend/internal/observability"
	"carelink-backend/pkg/auth"
)

// RouterConfig bundles everything the router needs.
type RouterConfig struct {
	Assistant *handlers.AssistantHandler
	Health    *handlers.HealthHandler
	Metrics   *observability.Collector
	Validator *auth.Validator
	// HeaderPassthrough trusts the gateway-resolved identity header
	// instead of validating tokens locally (Lambda deployments).
	HeaderPassthrough bool
	EnableCORS        bool
	Logger            *zap.Logger
}

// NewRouter builds the HTTP surface: public probes and metrics, then the
// authenticated /api/v1 routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}
	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", cfg.Health.Check)
	r.Get("/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticator(cfg.Validator, cfg.HeaderPassthrough, cfg.Logger))

		r.Post("/assistant/query", cfg.Assistant.Query)
		r.Get("/caregiver/recipients", cfg.Assistant.Recipients)
	})

	return r
}
