package handlers

import (
	"net/http"
	"time"
)

var startedAt = time.Now()

// Health reports liveness. No dependencies are probed; a healthy process
// with an unreachable portal still serves cached state and clear errors.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(startedAt).Round(time.Second).String(),
	})
}
