package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/soyeahso/twitchbot/internal/version"
)

// Health is returned by /healthz.
type Health struct {
	Status    string   `json:"status"`
	Version   string   `json:"version"`
	Uptime    string   `json:"uptime"`
	Connected bool     `json:"connected"`
	Pending   int      `json:"pending"`
	Overlays  int      `json:"overlays"`
	Features  []string `json:"features,omitempty"`
}

// StatusFunc fills the bot-specific fields of Health.
type StatusFunc func(h *Health)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := Health{
		Status:  "ok",
		Version: version.Version,
		Uptime:  time.Since(s.startedAt).Round(time.Second).String(),
	}
	if s.status != nil {
		s.status(&h)
	}
	writeJSON(w, http.StatusOK, h)
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
