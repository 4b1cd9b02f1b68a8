package server

import (
	"encoding/json"
	"net/http"

	"github.com/zeusync/grab/internal/core/observability/log"
)

// ServeHTTP routes the event feed, the topic listing and the health check.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case s.cfg.Path:
		s.hub.handleWebSocket(w, r)
	case "/topics":
		s.writeJSON(w, s.bus.GetTopics())
	case "/stats":
		s.writeJSON(w, s.GetStats())
	case "/healthz":
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("cannot write response", log.Error(err))
	}
}
