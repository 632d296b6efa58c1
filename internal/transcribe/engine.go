// Package transcribe turns raw audio into transcripts using a pluggable
// speech decoder. It offers two entry points over the same decoder primitive:
// [Engine] for live streams where partial hypotheses matter, and
// [TranscribeWAV] for one-shot batch payloads.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/voicegate/pkg/provider/stt"
)

// defaultQueueDepth bounds how many audio chunks may be in flight between
// Feed and the decoding goroutine. When the queue is full, Feed blocks,
// propagating backpressure to the network reader.
const defaultQueueDepth = 32

// maxFrameBytes caps a single audio chunk. Anything larger is a protocol
// violation, not audio.
const maxFrameBytes = 1 << 20

// EventType discriminates the events emitted by an Engine.
type EventType string

const (
	// EventPartial carries a revisable interim hypothesis. Later partials
	// supersede earlier ones.
	EventPartial EventType = "partial"

	// EventFinal carries the committed transcript. Emitted exactly once,
	// always last, unless the stream errors instead.
	EventFinal EventType = "final"

	// EventError carries a terminal error. No further events follow.
	EventError EventType = "error"
)

// Event is a single ordered output of a streaming transcription.
type Event struct {
	// Seq is a per-stream sequence number, starting at 1 and strictly
	// increasing in emission order.
	Seq uint64

	// Type is the event kind.
	Type EventType

	// Text is the hypothesis (partial) or committed transcript (final).
	Text string

	// Err is set only on EventError.
	Err error
}

// engine states. Transitions are one-way:
// open → accumulating → finalizing → closed.
type state int

const (
	stateOpen state = iota
	stateAccumulating
	stateFinalizing
	stateClosed
)

// Engine drives a single streaming transcription over one decoder. Audio
// chunks enter through Feed, ordered events leave through Events, and Finish
// commits the final transcript. The caller must consume Events promptly;
// the bounded internal queue otherwise stalls Feed.
//
// An Engine is used by exactly one producer goroutine; Events may be drained
// from another.
type Engine struct {
	decoder stt.Decoder

	queue  chan []byte
	events chan Event

	mu      sync.Mutex
	state   state
	failErr error

	closeOnce  sync.Once
	finishOnce sync.Once
	cancel     context.CancelFunc
	loopDone   chan struct{}

	seq uint64
}

// EngineOption is a functional option for configuring an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	queueDepth int
}

// WithQueueDepth overrides the bounded audio queue depth.
func WithQueueDepth(n int) EngineOption {
	return func(c *engineConfig) {
		if n > 0 {
			c.queueDepth = n
		}
	}
}

// NewEngine creates an Engine that feeds decoder and starts its decoding
// goroutine immediately. The engine owns decoder and closes it when the
// stream ends. ctx cancellation aborts the stream with an error event.
func NewEngine(ctx context.Context, decoder stt.Decoder, opts ...EngineOption) *Engine {
	cfg := engineConfig{queueDepth: defaultQueueDepth}
	for _, o := range opts {
		o(&cfg)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e := &Engine{
		decoder:  decoder,
		queue:    make(chan []byte, cfg.queueDepth),
		events:   make(chan Event, cfg.queueDepth),
		cancel:   cancel,
		loopDone: make(chan struct{}),
	}
	go e.loop(loopCtx)
	return e
}

// Events returns the ordered event stream. The channel is closed after the
// terminal event (final or error) has been delivered.
func (e *Engine) Events() <-chan Event { return e.events }

// validateFrame rejects chunks that cannot be 16-bit PCM audio.
func validateFrame(pcm []byte) error {
	switch {
	case len(pcm) == 0:
		return fmt.Errorf("%w: empty frame", ErrInvalidAudio)
	case len(pcm)%2 != 0:
		return fmt.Errorf("%w: odd byte count %d", ErrInvalidAudio, len(pcm))
	case len(pcm) > maxFrameBytes:
		return fmt.Errorf("%w: frame of %d bytes exceeds limit", ErrInvalidAudio, len(pcm))
	}
	return nil
}

// Feed queues a chunk of raw 16-bit little-endian PCM for decoding. Feed
// blocks while the internal queue is full. A malformed frame kills the
// stream: one error event is emitted and the engine closes. Calling Feed
// after Finish or Close returns ErrClosed.
func (e *Engine) Feed(pcm []byte) error {
	e.mu.Lock()
	switch e.state {
	case stateFinalizing, stateClosed:
		e.mu.Unlock()
		return ErrClosed
	case stateOpen:
		e.state = stateAccumulating
	}
	e.mu.Unlock()

	if err := validateFrame(pcm); err != nil {
		e.fail(err)
		return err
	}

	// Copy: the caller may reuse its read buffer for the next frame.
	chunk := make([]byte, len(pcm))
	copy(chunk, pcm)

	select {
	case e.queue <- chunk:
		return nil
	case <-e.loopDone:
		return ErrClosed
	}
}

// fail records a terminal stream error and aborts the decoding loop, which
// emits the recorded error as the terminal event.
func (e *Engine) fail(err error) {
	e.mu.Lock()
	if e.failErr == nil {
		e.failErr = err
	}
	e.state = stateClosed
	e.mu.Unlock()
	e.cancel()
}

// terminalErr picks the error for an aborted stream: a recorded failure if
// one exists, otherwise plain closure.
func (e *Engine) terminalErr(ctx context.Context) error {
	e.mu.Lock()
	err := e.failErr
	e.mu.Unlock()
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrClosed, ctx.Err())
}

// failed reports whether a terminal failure has been recorded.
func (e *Engine) failed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failErr != nil
}

// Finish signals that no more audio will arrive and requests the final
// transcript. The final (or error) event is delivered on Events. Finish is
// idempotent; calling it after Close is a no-op.
func (e *Engine) Finish() {
	e.finishOnce.Do(func() {
		e.mu.Lock()
		if e.state == stateClosed {
			e.mu.Unlock()
			return
		}
		e.state = stateFinalizing
		e.mu.Unlock()
		close(e.queue)
	})
}

// Close aborts the stream. Pending audio is discarded and the decoding
// goroutine is stopped; if no terminal event has been emitted yet the event
// channel closes without one. Close is idempotent.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.state = stateClosed
		e.mu.Unlock()

		// Cancelling the loop context unblocks both the loop's queue
		// receive and any Feed stuck on a full queue (via loopDone).
		// The queue channel itself is only ever closed by Finish, on the
		// producer goroutine, so Feed can never race a close.
		e.cancel()
		<-e.loopDone
	})
}

// loop is the single goroutine that owns the decoder. It drains the queue,
// emits partials, and commits the final transcript when the queue closes.
func (e *Engine) loop(ctx context.Context) {
	defer close(e.loopDone)
	defer close(e.events)
	defer func() {
		if err := e.decoder.Close(); err != nil {
			slog.Warn("transcribe: decoder close failed", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			e.emit(ctx, Event{Type: EventError, Err: e.terminalErr(ctx)})
			e.markClosed()
			return

		case chunk, ok := <-e.queue:
			if !ok {
				e.finalize(ctx)
				return
			}
			// A recorded failure outranks queued audio: the select between
			// the cancelled context and a non-empty queue is nondeterministic,
			// so drop the chunk undecoded instead of racing out more partials.
			if e.failed() {
				e.emit(ctx, Event{Type: EventError, Err: e.terminalErr(ctx)})
				e.markClosed()
				return
			}
			partial, updated, err := e.decoder.Accept(chunk)
			if err != nil {
				e.emit(ctx, Event{Type: EventError, Err: fmt.Errorf("%w: %w", ErrDecode, err)})
				e.markClosed()
				return
			}
			if updated && !e.failed() {
				e.emit(ctx, Event{Type: EventPartial, Text: partial})
			}
		}
	}
}

// finalize flushes the decoder and emits exactly one final event, or an
// error event when decoding failed or nothing was recognized.
func (e *Engine) finalize(ctx context.Context) {
	defer e.markClosed()

	if ctx.Err() != nil {
		e.emit(ctx, Event{Type: EventError, Err: e.terminalErr(ctx)})
		return
	}

	text, err := e.decoder.Flush()
	switch {
	case err != nil:
		e.emit(ctx, Event{Type: EventError, Err: fmt.Errorf("%w: %w", ErrDecode, err)})
	case text == "":
		e.emit(ctx, Event{Type: EventError, Err: ErrNoSpeech})
	default:
		e.emit(ctx, Event{Type: EventFinal, Text: text})
	}
}

// emit assigns the next sequence number and delivers ev. Delivery blocks
// while the event buffer is full unless the stream context has been
// cancelled, in which case the event is dropped (the consumer is gone).
func (e *Engine) emit(ctx context.Context, ev Event) {
	e.seq++
	ev.Seq = e.seq
	select {
	case e.events <- ev:
	default:
		select {
		case e.events <- ev:
		case <-ctx.Done():
		}
	}
}

func (e *Engine) markClosed() {
	e.mu.Lock()
	e.state = stateClosed
	e.mu.Unlock()
}
