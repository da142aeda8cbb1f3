package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// Status is the /healthz body.
type Status struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Handler returns an http.Handler for GET /healthz.
// The addon is stateless, so it is healthy as soon as it serves: no upstream is contacted.
func Handler(started time.Time, version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		_ = json.NewEncoder(w).Encode(Status{
			Status:        "ok",
			Version:       version,
			UptimeSeconds: int64(time.Since(started).Seconds()),
		})
	})
}
