package handlers

import (
	"net/http"

	"github.com/subwatch/subwatch/internal/httpserver/deps"
	"github.com/subwatch/subwatch/internal/logger"
)

// Check triggers an immediate monitoring round, cutting the current sleep
// short. The round runs asynchronously; the response only acknowledges the
// trigger.
func Check(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Scheduler.TriggerNow()
		d.Logger.Info("manual check triggered via endpoint",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
	}
}
