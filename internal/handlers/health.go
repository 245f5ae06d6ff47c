package handlers

import (
	"net/http"
	"time"
)

// HealthCheck reports receiver liveness and the state of its outbound
// dependencies. The receiver keeps acknowledging webhooks while mail is
// down, so a degraded mail path does not change the status code.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
	}

	if h.fetcher != nil && h.fetcher.Configured() {
		status["audio_fetch"] = "configured"
	} else {
		status["audio_fetch"] = "not_configured"
	}

	if h.monitor != nil {
		s := h.monitor.Status()
		switch {
		case s.LastCheck.IsZero():
			status["mail_status"] = "pending"
		case s.Healthy:
			status["mail_status"] = "healthy"
			status["mail_last_check"] = s.LastCheck
		default:
			status["mail_status"] = "unhealthy"
			status["mail_error"] = s.LastError.Error()
			status["mail_last_check"] = s.LastCheck
			status["status"] = "degraded"
		}
	} else {
		status["mail_status"] = "not_monitored"
	}

	writeJSON(w, http.StatusOK, status)
}
