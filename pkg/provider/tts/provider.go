// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs or a
// local Piper instance) and exposes a single-shot synthesis call: full reply
// text in, encoded audio bytes out. The orchestrator treats synthesis as the
// last, non-fatal stage of a voice turn, so providers should fail fast rather
// than retry internally.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// VoiceProfile identifies a synthesis voice offered by a provider.
type VoiceProfile struct {
	// ID is the provider-assigned voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider names the backend that owns this voice (e.g., "elevenlabs").
	Provider string

	// Metadata carries provider-specific labels (accent, gender, category...).
	Metadata map[string]string
}

// Result is the outcome of a successful synthesis call.
type Result struct {
	// Audio is the encoded audio payload.
	Audio []byte

	// MIMEType describes the encoding of Audio (e.g., "audio/mpeg").
	MIMEType string
}

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use. Multiple synthesis
// requests may run in parallel.
type Provider interface {
	// Synthesize renders text with the given voice and returns the encoded
	// audio. The full text is synthesised in one request; callers that need
	// lower latency should keep replies short rather than stream.
	//
	// Returns an error if the provider cannot be reached, rejects the request,
	// or ctx is cancelled before the audio arrives.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) (*Result, error)

	// ListVoices returns all voice profiles available from this provider. The
	// list reflects the provider's current catalogue and may change between
	// calls if the underlying service adds or removes voices.
	ListVoices(ctx context.Context) ([]VoiceProfile, error)
}
