package handler

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the HTTP surface of the bot.
func NewRouter(health *HealthHandler, sessions *SessionHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Method("GET", "/health", health)
	r.Handle("/metrics", promhttp.Handler())
	sessions.RegisterRoutes(r)
	return r
}
