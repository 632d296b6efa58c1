// Package mock provides test doubles for the stt package interfaces.
//
// Use Provider to verify that the caller creates decoders with the expected
// StreamConfig. Use Decoder to script partial hypotheses and the final
// transcript, and to inspect which audio chunks were delivered.
//
// Example:
//
//	dec := &mock.Decoder{
//	    Partials:   []string{"hel", "hello wor"},
//	    FinalText:  "hello world",
//	}
//	p := &mock.Provider{Decoder: dec}
//	d, _ := p.NewDecoder(ctx, cfg)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voicegate/pkg/provider/stt"
)

// NewDecoderCall records a single invocation of Provider.NewDecoder.
type NewDecoderCall struct {
	// Ctx is the context passed to NewDecoder.
	Ctx context.Context
	// Cfg is the StreamConfig passed to NewDecoder.
	Cfg stt.StreamConfig
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Decoder is returned by NewDecoder. If nil, NewDecoder returns a new
	// zero-value Decoder.
	Decoder stt.Decoder

	// NewDecoderErr, if non-nil, is returned as the error from NewDecoder.
	NewDecoderErr error

	// NewDecoderCalls records every call to NewDecoder.
	NewDecoderCalls []NewDecoderCall
}

// NewDecoder records the call and returns Decoder, NewDecoderErr.
func (p *Provider) NewDecoder(ctx context.Context, cfg stt.StreamConfig) (stt.Decoder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NewDecoderCalls = append(p.NewDecoderCalls, NewDecoderCall{Ctx: ctx, Cfg: cfg})
	if p.NewDecoderErr != nil {
		return nil, p.NewDecoderErr
	}
	if p.Decoder != nil {
		return p.Decoder, nil
	}
	return &Decoder{}, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NewDecoderCalls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)

// AcceptCall records a single invocation of Decoder.Accept.
type AcceptCall struct {
	// Chunk is a copy of the audio bytes that were passed to Accept.
	Chunk []byte
}

// Decoder is a mock implementation of stt.Decoder.
//
// Each Accept call emits the next entry of Partials (with updated=true) until
// the slice is exhausted, after which Accept reports no update. Flush returns
// FinalText, FlushErr.
type Decoder struct {
	mu sync.Mutex

	// Partials are the scripted hypotheses handed out one per Accept call.
	Partials []string

	// FinalText is the transcript returned by Flush.
	FinalText string

	// AcceptErr, if non-nil, is returned by every Accept call.
	AcceptErr error

	// FlushErr, if non-nil, is returned by Flush.
	FlushErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// AcceptCalls records every call to Accept in order.
	AcceptCalls []AcceptCall

	// FlushCallCount is the number of times Flush was called.
	FlushCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Accept records the call and returns the next scripted partial, if any.
func (d *Decoder) Accept(pcm []byte) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(pcm))
	copy(cp, pcm)
	d.AcceptCalls = append(d.AcceptCalls, AcceptCall{Chunk: cp})
	if d.AcceptErr != nil {
		return "", false, d.AcceptErr
	}
	idx := len(d.AcceptCalls) - 1
	if idx < len(d.Partials) {
		return d.Partials[idx], true, nil
	}
	return "", false, nil
}

// Flush records the call and returns FinalText, FlushErr.
func (d *Decoder) Flush() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.FlushCallCount++
	if d.FlushErr != nil {
		return "", d.FlushErr
	}
	return d.FinalText, nil
}

// Close records the call and returns CloseErr.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCallCount++
	return d.CloseErr
}

// AcceptCallCount returns the number of Accept calls. Thread-safe.
func (d *Decoder) AcceptCallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.AcceptCalls)
}

// ResetCalls clears all recorded calls. Thread-safe.
func (d *Decoder) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.AcceptCalls = nil
	d.FlushCallCount = 0
	d.CloseCallCount = 0
}

// Ensure Decoder implements stt.Decoder at compile time.
var _ stt.Decoder = (*Decoder)(nil)
