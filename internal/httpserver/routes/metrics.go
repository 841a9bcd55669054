package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/subwatch/subwatch/internal/httpserver/deps"
)

func init() { Register(registerMetrics) }

func registerMetrics(r chi.Router, _ deps.Deps) {
	r.Handle("/metrics", promhttp.Handler())
}
