package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/subwatch/subwatch/internal/httpserver/deps"
	"github.com/subwatch/subwatch/internal/logger"
	"github.com/subwatch/subwatch/internal/monitor"
)

type domainInfo struct {
	Domain    string `json:"domain"`
	Hostnames int    `json:"hostnames"`
	Active    *bool  `json:"active,omitempty"`
}

// ListDomains lists the monitored domains with their stored hostname count
// and, when liveness checking is enabled, whether the domain currently
// resolves and answers HTTP.
func ListDomains(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domains := d.Scheduler.Domains()
		out := make([]domainInfo, 0, len(domains))
		for _, name := range domains {
			info := domainInfo{Domain: name}

			n, err := d.Records.CountForDomain(r.Context(), name)
			if err != nil {
				d.Logger.Warn("failed to count hostnames",
					logger.String("domain", name),
					logger.Error(err))
			} else {
				info.Hostnames = n
			}

			if d.Liveness != nil {
				active := d.Liveness.IsActive(r.Context(), name)
				info.Active = &active
			}
			out = append(out, info)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type addDomainRequest struct {
	Domain string `json:"domain"`
	Force  bool   `json:"force"`
}

type addDomainResponse struct {
	Domain string `json:"domain"`
	Active *bool  `json:"active,omitempty"`
}

// AddDomain adds a domain to the monitored list. When liveness checking is
// enabled, a domain that neither resolves nor answers HTTP is rejected
// unless the request sets force, so a typo does not silently monitor
// nothing forever.
func AddDomain(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addDomainRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		var active *bool
		if d.Liveness != nil && !req.Force {
			a := d.Liveness.IsActive(r.Context(), req.Domain)
			active = &a
			if !a {
				writeError(w, http.StatusUnprocessableEntity,
					"domain does not resolve or answer HTTP; set force to add anyway")
				return
			}
		}

		name, err := d.Scheduler.AddDomain(req.Domain)
		switch {
		case errors.Is(err, monitor.ErrInvalidDomain):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, monitor.ErrDomainExists):
			writeError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, addDomainResponse{Domain: name, Active: active})
	}
}

// RemoveDomain drops a domain from the monitored list. Stored hostnames are
// kept so a later re-add does not re-alert the whole history.
func RemoveDomain(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "domain")

		err := d.Scheduler.RemoveDomain(name)
		switch {
		case errors.Is(err, monitor.ErrDomainNotFound):
			writeError(w, http.StatusNotFound, err.Error())
			return
		case errors.Is(err, monitor.ErrLastDomain):
			writeError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
