package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/subwatch/subwatch/internal/httpserver/deps"
	"github.com/subwatch/subwatch/internal/httpserver/handlers"
)

func init() { Register(registerInterval) }

func registerInterval(r chi.Router, d deps.Deps) {
	r.Put("/api/interval", handlers.SetInterval(d))
}
