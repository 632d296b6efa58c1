// Package whisper provides an stt.Provider backed by the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The model is loaded once at startup and shared across all decoders; each
// decoder creates its own whisper.cpp context, so multiple utterances can be
// decoded concurrently.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/voicegate/pkg/provider/stt"
)

const (
	defaultLanguage   = "en"
	defaultSampleRate = 16000

	// defaultPartialIntervalMs is the amount of newly accepted audio that
	// triggers a re-decode of the accumulated buffer to produce a fresh
	// partial hypothesis.
	defaultPartialIntervalMs = 1500

	// minDecodeMs is the minimum buffered audio before inference is
	// attempted at all. whisper.cpp produces noise on very short inputs.
	minDecodeMs = 400
)

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider using whisper.cpp Go bindings (CGO),
// eliminating HTTP overhead entirely. The model is loaded once and shared
// across all decoders.
type Provider struct {
	model    whisperlib.Model
	language string

	sampleRate        int
	partialIntervalMs int
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithSampleRate sets the audio sample rate in Hz. This must match the actual
// sample rate of PCM data delivered via Accept. Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(p *Provider) { p.sampleRate = rate }
}

// WithPartialIntervalMs sets how much newly buffered audio (ms) accumulates
// before a partial re-decode is issued. Defaults to 1500 ms.
func WithPartialIntervalMs(ms int) Option {
	return func(p *Provider) { p.partialIntervalMs = ms }
}

// New creates a Provider that loads the whisper.cpp model from the given file
// path. The caller must call Close when the provider is no longer needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{
		model:             model,
		language:          defaultLanguage,
		sampleRate:        defaultSampleRate,
		partialIntervalMs: defaultPartialIntervalMs,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *Provider) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// NewDecoder creates a fresh incremental decoder from the shared model. Each
// decoder holds its own whisper.cpp context; contexts are NOT thread-safe,
// which matches the single-owner Decoder contract.
func (p *Provider) NewDecoder(ctx context.Context, cfg stt.StreamConfig) (stt.Decoder, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}
	sr := cfg.SampleRate
	if sr <= 0 {
		sr = p.sampleRate
	}
	ch := cfg.Channels
	if ch <= 0 {
		ch = 1
	}

	wctx, err := p.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("whisper: set language %q: %w", lang, err)
	}

	bytesPerMs := sr * ch * 2 / 1000
	if bytesPerMs <= 0 {
		bytesPerMs = 32
	}

	return &decoder{
		wctx:             wctx,
		channels:         ch,
		partialStepBytes: p.partialIntervalMs * bytesPerMs,
		minDecodeBytes:   minDecodeMs * bytesPerMs,
	}, nil
}

// decoder is an incremental whisper.cpp recognizer over one utterance. It
// buffers all accepted PCM and re-decodes the full buffer whenever enough new
// audio has arrived, so later partials supersede earlier ones.
type decoder struct {
	wctx     whisperlib.Context
	channels int

	partialStepBytes int
	minDecodeBytes   int

	buf             []byte
	sinceLastDecode int
	lastPartial     string
	closed          bool
	flushed         bool
}

var _ stt.Decoder = (*decoder)(nil)

// Accept buffers pcm and, when enough new audio has accumulated, re-decodes
// the whole buffer to produce a revised partial hypothesis.
func (d *decoder) Accept(pcm []byte) (string, bool, error) {
	if d.closed {
		return "", false, stt.ErrDecoderClosed
	}
	if d.flushed {
		return "", false, errors.New("whisper: accept after flush")
	}
	d.buf = append(d.buf, pcm...)
	d.sinceLastDecode += len(pcm)

	if len(d.buf) < d.minDecodeBytes || d.sinceLastDecode < d.partialStepBytes {
		return "", false, nil
	}
	d.sinceLastDecode = 0

	text, err := d.infer()
	if err != nil {
		return "", false, err
	}
	if text == d.lastPartial {
		return "", false, nil
	}
	d.lastPartial = text
	return text, true, nil
}

// Flush runs a final inference over the whole buffered utterance and returns
// the committed transcript. An empty result means no speech was recognized.
func (d *decoder) Flush() (string, error) {
	if d.closed {
		return "", stt.ErrDecoderClosed
	}
	if d.flushed {
		return "", errors.New("whisper: flush called twice")
	}
	d.flushed = true

	if len(d.buf) < d.minDecodeBytes {
		return "", nil
	}
	return d.infer()
}

// Close releases the buffered audio. The whisper context is owned by the Go
// binding's finalizer once released from the model; there is nothing further
// to free per decoder.
func (d *decoder) Close() error {
	d.closed = true
	d.buf = nil
	return nil
}

// infer converts the buffered PCM to float32 mono, runs whisper.cpp inference
// on the decoder's context, and returns the concatenated segment text.
func (d *decoder) infer() (string, error) {
	samples := pcmToFloat32Mono(d.buf, d.channels)

	if err := d.wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := d.wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
