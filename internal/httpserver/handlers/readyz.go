package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/subwatch/subwatch/internal/httpserver/deps"
)

type readyzResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Readyz reports readiness: the database must answer a ping, the scheduler
// must be running. The redis cache is optional and only annotated.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		components := make(map[string]string)
		ready := true

		if d.DB != nil {
			if err := d.DB.PingContext(ctx); err != nil {
				components["postgres"] = "down"
				ready = false
			} else {
				components["postgres"] = "ok"
			}
		}

		if d.Scheduler != nil && d.Scheduler.Running() {
			components["scheduler"] = "ok"
		} else {
			components["scheduler"] = "stopped"
			ready = false
		}

		if d.RedisClient != nil {
			if err := d.RedisClient.Ping(ctx).Err(); err != nil {
				components["redis"] = "down"
			} else {
				components["redis"] = "ok"
			}
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		writeJSON(w, status, readyzResponse{Status: state, Components: components})
	}
}
