package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/subwatch/subwatch/internal/httpserver/deps"
	"github.com/subwatch/subwatch/internal/monitor"
)

type intervalRequest struct {
	IntervalSeconds int `json:"interval_seconds"`
}

type intervalResponse struct {
	IntervalSeconds int `json:"interval_seconds"`
}

// SetInterval changes the shared polling interval. The change applies to the
// sleep already in progress.
func SetInterval(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req intervalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		err := d.Scheduler.SetInterval(time.Duration(req.IntervalSeconds) * time.Second)
		if errors.Is(err, monitor.ErrInvalidInterval) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, intervalResponse{
			IntervalSeconds: int(d.Scheduler.Interval() / time.Second),
		})
	}
}
