package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/subwatch/subwatch/internal/domain"
	"github.com/subwatch/subwatch/internal/httpserver/deps"
	"github.com/subwatch/subwatch/internal/logger"
)

type hostnameInfo struct {
	Hostname        string     `json:"hostname"`
	FirstSeen       time.Time  `json:"first_seen"`
	LastSeen        time.Time  `json:"last_seen"`
	EarliestLogDate *time.Time `json:"earliest_log_date,omitempty"`
}

// ListHostnames lists every recorded hostname for one monitored domain in
// chronological log order.
func ListHostnames(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := domain.NormalizeDomain(chi.URLParam(r, "domain"))
		if !d.Scheduler.Monitors(name) {
			writeError(w, http.StatusNotFound, "domain is not monitored")
			return
		}

		records, err := d.Records.AllForDomain(r.Context(), name)
		if err != nil {
			d.Logger.Error("failed to list hostnames",
				logger.String("domain", name),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list hostnames")
			return
		}

		out := make([]hostnameInfo, 0, len(records))
		for _, rec := range records {
			out = append(out, hostnameInfo{
				Hostname:        rec.Hostname,
				FirstSeen:       rec.FirstSeen,
				LastSeen:        rec.LastSeen,
				EarliestLogDate: rec.EarliestLogDate,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
