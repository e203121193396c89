package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/yusufkecer/health-data-client/internal/middleware"
)

type RouterConfig struct {
	Health         *HealthHandler
	Probe          *ProbeHandler
	Metrics        http.Handler
	Instrument     func(http.Handler) http.Handler
	RateLimiter    *middleware.RateLimiter
	APIKey         string
	JWTSecret      string
	AllowedOrigins string
}

// NewRouter wires the gateway routes. Middleware order: request ID → metrics
// → CORS → security headers, then API key, rate limit and JWT on the data
// routes.
func NewRouter(cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.RequestID)
	if cfg.Instrument != nil {
		r.Use(cfg.Instrument)
	}
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.SecurityHeaders)

	r.HandleFunc("/api/v1/health", cfg.Probe.Live).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/v1/ready", cfg.Probe.Ready).Methods(http.MethodGet, http.MethodOptions)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.APIKeyMiddleware(cfg.APIKey))
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware)
	}
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	api.HandleFunc("/users/{id}/realtime/{metric}", cfg.Health.GetRealtime).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/users/{id}/summary", cfg.Health.GetSummary).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/users/{id}/history", cfg.Health.GetHistory).Methods(http.MethodGet, http.MethodOptions)

	return r
}
