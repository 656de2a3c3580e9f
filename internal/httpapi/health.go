package httpapi

import (
	"net/http"
	"time"
)

var startedAt = time.Now()

// handleHealth reports liveness. Grounded on internal/server/handlers.go's
// handleHealthCheck payload shape, narrowed to the fields this server can
// report without a notification/agents-connected subsystem.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int(time.Since(startedAt).Seconds()),
	})
}
