package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/voicegate/internal/transcribe"
	"github.com/MrWong99/voicegate/pkg/audio"
	"github.com/MrWong99/voicegate/pkg/provider/stt"
)

// transcriptionResponse is the JSON body for a successful batch
// transcription.
type transcriptionResponse struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// handleTranscription accepts a complete WAV payload as the request body and
// returns its transcript in one shot.
func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxTranscriptionBody)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds the configured limit")
			return
		}
		respondError(w, http.StatusBadRequest, "read_failed", "failed to read request body")
		return
	}

	res, err := transcribe.TranscribeWAV(r.Context(), s.stt, data, stt.StreamConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		respondMappedError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, transcriptionResponse{
		ID:         uuid.NewString(),
		Text:       res.Text,
		DurationMs: res.AudioDuration.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	})
}
