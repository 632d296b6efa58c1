// Package stt defines the Provider and Decoder interfaces for Speech-to-Text
// backends.
//
// An STT provider wraps a transcription engine (e.g., a local whisper.cpp
// model) and hands out Decoder instances. A Decoder is an incremental
// recognizer: it accepts raw PCM audio chunk by chunk, may surface revisable
// partial hypotheses along the way, and commits exactly one final transcript
// when flushed. The same primitive serves both the batch endpoint (feed
// everything, then flush) and the streaming endpoint (feed as frames arrive).
//
// Providers must be safe for concurrent use; a single Decoder is owned by one
// goroutine and is not.
package stt

import (
	"context"
	"errors"
)

// ErrDecoderClosed is returned by Decoder methods after Close.
var ErrDecoderClosed = errors.New("stt: decoder is closed")

// ErrNotSupported is returned by providers for configuration they cannot honor.
var ErrNotSupported = errors.New("stt: not supported")

// StreamConfig describes the audio format and recognition hints for a new
// Decoder. All fields must be compatible with what the underlying provider
// supports; see each provider's documentation for valid ranges.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. The gateway delivers
	// 16000 Hz audio on all its surfaces.
	SampleRate int

	// Channels is the number of audio channels. 1 = mono. Implementors may
	// downmix multi-channel input internally.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "en", "de").
	// An empty string uses the provider default.
	Language string
}

// Decoder is an incremental speech recognizer over a single utterance.
//
// The caller feeds 16-bit little-endian signed PCM via Accept, then calls
// Flush exactly once to obtain the final transcript. Accept may return an
// updated partial hypothesis; partials are revisable and later partials
// supersede earlier ones. Close releases decoder resources and must always
// be called, including after Flush.
//
// A Decoder is single-owner: methods must not be called concurrently.
type Decoder interface {
	// Accept ingests a chunk of raw PCM bytes. When the decoder has produced
	// a new hypothesis for the audio seen so far it returns it with
	// updated=true; otherwise partial is empty and updated is false.
	// Accepting after Close returns ErrDecoderClosed.
	Accept(pcm []byte) (partial string, updated bool, err error)

	// Flush finalizes recognition over all accepted audio and returns the
	// committed transcript. The result may be empty when no speech was
	// recognized; callers decide how to treat that. Flush may be called at
	// most once; calling it after Close returns ErrDecoderClosed.
	Flush() (string, error)

	// Close releases all decoder resources. Calling Close more than once is
	// safe and returns nil.
	Close() error
}

// Provider is the abstraction over any STT backend.
//
// Implementations must be safe for concurrent use. Multiple decoders may be
// open simultaneously (one per active stream or batch request).
type Provider interface {
	// NewDecoder creates a fresh Decoder for a single utterance with the
	// given audio format and recognition configuration.
	//
	// Returns an error if the provider cannot create the decoder (e.g.,
	// unsupported configuration or ctx already cancelled). The caller owns
	// the Decoder and must call Close when done.
	NewDecoder(ctx context.Context, cfg StreamConfig) (Decoder, error)
}
