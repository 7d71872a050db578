package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/middleware"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Health    *HealthHandler
	Analyses  *AnalysisHandler
	Stages    *StageHandler
	Cache     *CacheHandler
	RateLimit *middleware.RateLimiter
	Logger    *zap.Logger
}

// NewRouter assembles the chi router with middleware and all routes.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID"},
		MaxAge:         300,
	}))
	if deps.RateLimit != nil {
		r.Use(deps.RateLimit.Middleware)
	}

	r.Get("/health", deps.Health.Health)
	r.Get("/ping", deps.Health.Ping)
	r.Get("/api/cache/stats", deps.Cache.Stats)

	deps.Analyses.RegisterRoutes(r)
	deps.Stages.RegisterRoutes(r)

	return r
}
