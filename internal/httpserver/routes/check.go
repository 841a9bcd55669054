package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/subwatch/subwatch/internal/httpserver/deps"
	"github.com/subwatch/subwatch/internal/httpserver/handlers"
)

func init() { Register(registerCheck) }

func registerCheck(r chi.Router, d deps.Deps) {
	r.Post("/api/check", handlers.Check(d))
}
