package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/voicegate/pkg/audio"
	"github.com/MrWong99/voicegate/pkg/provider/stt"
)

// chunkSamples is how many PCM samples are handed to the decoder per Accept
// call during batch transcription.
const chunkSamples = 2000

// BatchResult carries the outcome of a one-shot transcription.
type BatchResult struct {
	// Text is the committed transcript.
	Text string

	// AudioDuration is the playback length of the validated payload.
	AudioDuration time.Duration
}

// TranscribeWAV validates data as a 16 kHz mono 16-bit PCM WAV container and
// decodes it to a transcript in one shot. The whole payload is validated
// before any decoding starts; invalid audio never reaches the decoder.
//
// Error classes:
//   - ErrInvalidAudio: the payload is not a WAV container or has the wrong format
//   - ErrDecode: the decoder failed on valid audio
//   - ErrNoSpeech: decoding succeeded but recognized nothing
func TranscribeWAV(ctx context.Context, provider stt.Provider, data []byte, cfg stt.StreamConfig) (*BatchResult, error) {
	pcm, info, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAudio, err)
	}

	dec, err := provider.NewDecoder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create decoder: %w", ErrDecode, err)
	}
	defer dec.Close()

	chunkBytes := chunkSamples * 2
	for off := 0; off < len(pcm); off += chunkBytes {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		end := off + chunkBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		// Partials are irrelevant in batch mode; only the flush matters.
		if _, _, err := dec.Accept(pcm[off:end]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	}

	text, err := dec.Flush()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if text == "" {
		return nil, ErrNoSpeech
	}

	return &BatchResult{Text: text, AudioDuration: info.Duration}, nil
}
