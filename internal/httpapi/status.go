package httpapi

import (
	"net/http"
	"time"
)

const serviceName = "voicegate"

type statusResponse struct {
	Service        string `json:"service"`
	Version        string `json:"version"`
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	ActiveSessions int    `json:"active_sessions"`
}

// handleStatus reports coarse runtime state for operators. Unlike the health
// probes this endpoint sits behind authentication.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	version := s.cfg.Version
	if version == "" {
		version = "dev"
	}
	respondJSON(w, http.StatusOK, statusResponse{
		Service:        serviceName,
		Version:        version,
		Status:         "ok",
		Uptime:         time.Since(s.started).Round(time.Second).String(),
		ActiveSessions: s.sessions.Len(),
	})
}
