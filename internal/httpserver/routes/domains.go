package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/subwatch/subwatch/internal/httpserver/deps"
	"github.com/subwatch/subwatch/internal/httpserver/handlers"
)

func init() { Register(registerDomains) }

func registerDomains(r chi.Router, d deps.Deps) {
	r.Get("/api/domains", handlers.ListDomains(d))
	r.Post("/api/domains", handlers.AddDomain(d))
	r.Delete("/api/domains/{domain}", handlers.RemoveDomain(d))
	r.Get("/api/domains/{domain}/hostnames", handlers.ListHostnames(d))
}
