package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// voiceChatResponse is the JSON body returned when a turn completed without
// audio. Degraded marks a committed text exchange whose synthesis failed;
// SynthesisError then says why.
type voiceChatResponse struct {
	SessionID      string `json:"session_id"`
	Transcript     string `json:"transcript"`
	Reply          string `json:"reply"`
	Degraded       bool   `json:"degraded"`
	SynthesisError string `json:"synthesis_error,omitempty"`
}

// handleVoiceChat runs one conversational turn. The request is multipart
// form data with an "audio" file part (WAV) and an optional "session_id"
// field; omitting the session ID starts a new conversation.
//
// On full success the response body is the synthesized reply audio, with the
// session ID in the X-Session-Id header. When synthesis failed but the
// exchange was committed, a 200 JSON body with "degraded": true carries the
// transcript and reply instead.
func (s *Server) handleVoiceChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxVoiceChatBody)
	if err := r.ParseMultipartForm(s.cfg.MaxVoiceChatBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds the configured limit")
			return
		}
		respondError(w, http.StatusBadRequest, "bad_multipart", "expected multipart form data")
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_audio", `multipart field "audio" is required`)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "read_failed", "failed to read audio part")
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID != "" {
		if _, err := uuid.Parse(sessionID); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_session_id", "session_id must be a UUID")
			return
		}
	}

	res, err := s.orch.VoiceTurn(r.Context(), sessionID, data)
	if err != nil {
		respondMappedError(w, err)
		return
	}

	w.Header().Set("X-Session-Id", res.SessionID)

	if res.Degraded {
		respondJSON(w, http.StatusOK, voiceChatResponse{
			SessionID:      res.SessionID,
			Transcript:     res.Transcript,
			Reply:          res.Reply,
			Degraded:       true,
			SynthesisError: res.SynthesisError,
		})
		return
	}

	w.Header().Set("Content-Type", res.MIMEType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Audio)
}
