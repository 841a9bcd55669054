package handlers

import (
	"net/http"
	"time"

	"github.com/subwatch/subwatch/internal/httpserver/deps"
	"github.com/subwatch/subwatch/internal/logger"
)

type statusResponse struct {
	Running         bool           `json:"running"`
	Domains         []string       `json:"domains"`
	IntervalSeconds int            `json:"interval_seconds"`
	UptimeSeconds   float64        `json:"uptime_seconds"`
	HostnameCounts  map[string]int `json:"hostname_counts"`
}

// Status reports the scheduler state and per-domain hostname counts.
func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domains := d.Scheduler.Domains()

		counts := make(map[string]int, len(domains))
		for _, name := range domains {
			n, err := d.Records.CountForDomain(r.Context(), name)
			if err != nil {
				d.Logger.Warn("failed to count hostnames",
					logger.String("domain", name),
					logger.Error(err))
				continue
			}
			counts[name] = n
		}

		writeJSON(w, http.StatusOK, statusResponse{
			Running:         d.Scheduler.Running(),
			Domains:         domains,
			IntervalSeconds: int(d.Scheduler.Interval() / time.Second),
			UptimeSeconds:   time.Since(d.StartTime).Seconds(),
			HostnameCounts:  counts,
		})
	}
}
