package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/subwatch/subwatch/internal/httpserver/deps"
	"github.com/subwatch/subwatch/internal/httpserver/handlers"
)

func init() { Register(registerStatus) }

func registerStatus(r chi.Router, d deps.Deps) {
	r.Get("/api/status", handlers.Status(d))
}
