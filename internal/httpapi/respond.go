package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrWong99/voicegate/internal/gateway"
	"github.com/MrWong99/voicegate/internal/session"
	"github.com/MrWong99/voicegate/internal/transcribe"
)

// errorResponse is the JSON body for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondMappedError translates pipeline errors into the outward status/code
// pair. Unrecognized errors become an opaque 500 so internals never leak.
func respondMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transcribe.ErrInvalidAudio):
		respondError(w, http.StatusBadRequest, "invalid_audio", err.Error())
	case errors.Is(err, transcribe.ErrNoSpeech):
		respondError(w, http.StatusUnprocessableEntity, "no_speech", err.Error())
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, gateway.ErrTranscription), errors.Is(err, transcribe.ErrDecode):
		respondError(w, http.StatusInternalServerError, "transcription_failed", err.Error())
	case errors.Is(err, gateway.ErrGeneration):
		respondError(w, http.StatusBadGateway, "generation_failed", err.Error())
	case errors.Is(err, gateway.ErrSession):
		respondError(w, http.StatusInternalServerError, "session_failure", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
