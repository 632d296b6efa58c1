package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type turnResponse struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type sessionResponse struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	Turns     []turnResponse `json:"turns"`
}

// handleGetSession returns a session's metadata and full turn history.
// Expired sessions are indistinguishable from unknown ones.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := s.sessions.Get(id)
	if err != nil {
		respondMappedError(w, err)
		return
	}
	turns, err := s.sessions.History(id)
	if err != nil {
		respondMappedError(w, err)
		return
	}

	resp := sessionResponse{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
		Turns:     make([]turnResponse, 0, len(turns)),
	}
	for _, t := range turns {
		resp.Turns = append(resp.Turns, turnResponse{Role: t.Role, Content: t.Content, At: t.At})
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleDeleteSession drops a session immediately. Deleting an unknown
// session still returns 204; the end state is the same.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
