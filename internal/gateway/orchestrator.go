// Package gateway sequences a single voice turn: transcript from the batch
// transcription adapter, best-effort snippet retrieval, a mandatory LLM
// reply, and text-to-speech synthesis as a degraded-success stage. Session
// state is read and written exclusively through the session store.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/voicegate/internal/observe"
	"github.com/MrWong99/voicegate/internal/session"
	"github.com/MrWong99/voicegate/internal/transcribe"
	"github.com/MrWong99/voicegate/pkg/audio"
	"github.com/MrWong99/voicegate/pkg/memory"
	"github.com/MrWong99/voicegate/pkg/provider/llm"
	"github.com/MrWong99/voicegate/pkg/provider/stt"
	"github.com/MrWong99/voicegate/pkg/provider/tts"
)

// Default per-stage time budgets. Every external call runs under its own
// independent timeout; no stage outlives its caller.
const (
	DefaultTranscribeTimeout = 60 * time.Second
	DefaultRetrieveTimeout   = 2 * time.Second
	DefaultGenerateTimeout   = 30 * time.Second
	DefaultSynthesizeTimeout = 30 * time.Second
)

// Timeouts holds the per-stage time budgets. Zero values fall back to the
// package defaults.
type Timeouts struct {
	Transcribe time.Duration
	Retrieve   time.Duration
	Generate   time.Duration
	Synthesize time.Duration
}

// ProviderLabels names the configured backends for metric attribution.
type ProviderLabels struct {
	STT       string
	LLM       string
	TTS       string
	Retrieval string
}

// Config tunes the turn pipeline. The zero value is usable; every field has
// a sensible default.
type Config struct {
	// Persona is the system prompt prefix. Defaults to the built-in voice
	// assistant persona.
	Persona string

	// Voice selects the synthesis voice.
	Voice tts.VoiceProfile

	// Temperature and MaxTokens are passed through to the LLM. Zero values
	// default to DefaultTemperature and DefaultMaxTokens.
	Temperature float64
	MaxTokens   int

	// RetrievalTopK bounds how many snippets are fetched per turn. Zero
	// defaults to DefaultRetrievalTopK.
	RetrievalTopK int

	// Timeouts are the per-stage time budgets.
	Timeouts Timeouts

	// Labels attribute provider metrics to the configured backends.
	Labels ProviderLabels
}

// Deps are the orchestrator's collaborators. Sessions, STT, LLM, and TTS are
// required; Snippets is optional (nil disables the retrieval stage) and
// Metrics defaults to the package-level instance.
type Deps struct {
	Sessions *session.Store
	STT      stt.Provider
	LLM      llm.Provider
	TTS      tts.Provider
	Snippets memory.SnippetIndex
	Metrics  *observe.Metrics
}

// Result is the outcome of one completed voice turn. Degraded marks a turn
// whose reply was generated and committed but whose audio synthesis failed;
// SynthesisError then carries the reason.
type Result struct {
	SessionID      string
	SessionCreated bool
	Transcript     string
	Reply          string
	Audio          []byte
	MIMEType       string
	Degraded       bool
	SynthesisError string
}

// Orchestrator runs the per-turn pipeline. Safe for concurrent use;
// conversation state lives in the session store and the tuning config is
// guarded for hot reload.
type Orchestrator struct {
	sessions *session.Store
	stt      stt.Provider
	llm      llm.Provider
	tts      tts.Provider
	snippets memory.SnippetIndex
	metrics  *observe.Metrics

	mu  sync.RWMutex
	cfg Config
}

// config returns a snapshot of the tuning config for one turn.
func (o *Orchestrator) config() Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg
}

// UpdatePipeline applies hot-reloadable tuning to subsequent turns. Empty or
// zero values fall back to the same defaults New applies; timeouts, top-K,
// and labels are not reloadable.
func (o *Orchestrator) UpdatePipeline(persona string, voice tts.VoiceProfile, temperature float64, maxTokens int) {
	if persona == "" {
		persona = defaultPersona
	}
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cfg.Persona = persona
	o.cfg.Voice = voice
	o.cfg.Temperature = temperature
	o.cfg.MaxTokens = maxTokens
}

// New validates deps, applies config defaults, and returns an Orchestrator.
func New(deps Deps, cfg Config) (*Orchestrator, error) {
	switch {
	case deps.Sessions == nil:
		return nil, errors.New("gateway: session store is required")
	case deps.STT == nil:
		return nil, errors.New("gateway: STT provider is required")
	case deps.LLM == nil:
		return nil, errors.New("gateway: LLM provider is required")
	case deps.TTS == nil:
		return nil, errors.New("gateway: TTS provider is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}

	if cfg.Persona == "" {
		cfg.Persona = defaultPersona
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = DefaultRetrievalTopK
	}
	if cfg.Timeouts.Transcribe <= 0 {
		cfg.Timeouts.Transcribe = DefaultTranscribeTimeout
	}
	if cfg.Timeouts.Retrieve <= 0 {
		cfg.Timeouts.Retrieve = DefaultRetrieveTimeout
	}
	if cfg.Timeouts.Generate <= 0 {
		cfg.Timeouts.Generate = DefaultGenerateTimeout
	}
	if cfg.Timeouts.Synthesize <= 0 {
		cfg.Timeouts.Synthesize = DefaultSynthesizeTimeout
	}
	if cfg.Labels.STT == "" {
		cfg.Labels.STT = "stt"
	}
	if cfg.Labels.LLM == "" {
		cfg.Labels.LLM = "llm"
	}
	if cfg.Labels.TTS == "" {
		cfg.Labels.TTS = "tts"
	}
	if cfg.Labels.Retrieval == "" {
		cfg.Labels.Retrieval = "retrieval"
	}

	return &Orchestrator{
		sessions: deps.Sessions,
		stt:      deps.STT,
		llm:      deps.LLM,
		tts:      deps.TTS,
		snippets: deps.Snippets,
		metrics:  deps.Metrics,
		cfg:      cfg,
	}, nil
}

// VoiceTurn runs one full turn for the given session and WAV payload.
//
// Stage policies:
//   - transcription and generation are mandatory: failure aborts the turn and
//     nothing is committed to the session
//   - retrieval is best-effort: failure or timeout is suppressed and the
//     reply is generated without grounding
//   - synthesis is degraded-success: the user and assistant turns are
//     committed before synthesis is checked, so a failed synthesis returns a
//     text-only Result with Degraded set instead of an error
func (o *Orchestrator) VoiceTurn(ctx context.Context, sessionID string, wavData []byte) (*Result, error) {
	start := time.Now()
	log := observe.Logger(ctx)
	cfg := o.config()

	sess, created := o.sessions.GetOrCreate(sessionID)

	// History is captured before this turn is appended; it is the generation
	// context for the new transcript.
	history, err := o.sessions.History(sess.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSession, err)
	}

	// --- Transcription (mandatory) ---
	var batch *transcribe.BatchResult
	out, err := o.runStage(ctx, stage{
		kind:     "stt",
		provider: cfg.Labels.STT,
		timeout:  cfg.Timeouts.Transcribe,
		policy:   mandatory,
		hist:     o.metrics.STTDuration,
		run: func(ctx context.Context) error {
			var err error
			batch, err = transcribe.TranscribeWAV(ctx, o.stt, wavData, stt.StreamConfig{
				SampleRate: audio.SampleRate,
				Channels:   audio.Channels,
			})
			return err
		},
	})
	if out == outcomeFatal {
		o.metrics.RecordTurn(ctx, "error")
		return nil, fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	transcript := batch.Text

	// --- Retrieval (best-effort) ---
	var snippets []memory.SnippetResult
	if o.snippets != nil {
		out, err = o.runStage(ctx, stage{
			kind:     "retrieval",
			provider: cfg.Labels.Retrieval,
			timeout:  cfg.Timeouts.Retrieve,
			policy:   bestEffort,
			hist:     o.metrics.RetrievalDuration,
			run: func(ctx context.Context) error {
				var err error
				snippets, err = o.snippets.Search(ctx, transcript, cfg.RetrievalTopK)
				return err
			},
		})
		if out == outcomeSuppressed {
			o.metrics.RetrievalSuppressed.Add(ctx, 1)
			log.Warn("snippet retrieval failed, generating without grounding",
				"session_id", sess.ID, "err", err)
			snippets = nil
		}
	}

	// --- Generation (mandatory) ---
	req := llm.CompletionRequest{
		Messages:     buildMessages(history, transcript),
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		SystemPrompt: buildSystemPrompt(cfg.Persona, snippets),
	}
	var completion *llm.CompletionResponse
	out, err = o.runStage(ctx, stage{
		kind:     "llm",
		provider: cfg.Labels.LLM,
		timeout:  cfg.Timeouts.Generate,
		policy:   mandatory,
		hist:     o.metrics.LLMDuration,
		run: func(ctx context.Context) error {
			var err error
			completion, err = o.llm.Complete(ctx, req)
			return err
		},
	})
	if out == outcomeFatal {
		o.metrics.RecordTurn(ctx, "error")
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	reply := completion.Content
	log.Debug("reply generated",
		"session_id", sess.ID,
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
	)

	// Commit the exchange before synthesis: the turn is conversationally
	// complete even when no audio comes back.
	if err := o.sessions.AppendTurn(sess.ID, llm.RoleUser, transcript); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSession, err)
	}
	if err := o.sessions.AppendTurn(sess.ID, llm.RoleAssistant, reply); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSession, err)
	}

	result := &Result{
		SessionID:      sess.ID,
		SessionCreated: created,
		Transcript:     transcript,
		Reply:          reply,
	}

	// --- Synthesis (degraded-success) ---
	var synth *tts.Result
	out, err = o.runStage(ctx, stage{
		kind:     "tts",
		provider: cfg.Labels.TTS,
		timeout:  cfg.Timeouts.Synthesize,
		policy:   degradedSuccess,
		hist:     o.metrics.TTSDuration,
		run: func(ctx context.Context) error {
			var err error
			synth, err = o.tts.Synthesize(ctx, reply, cfg.Voice)
			return err
		},
	})
	if out == outcomeDegraded {
		log.Warn("speech synthesis failed, returning text-only turn",
			"session_id", sess.ID, "err", err)
		result.Degraded = true
		result.SynthesisError = err.Error()
		o.metrics.RecordTurn(ctx, "degraded")
	} else {
		result.Audio = synth.Audio
		result.MIMEType = synth.MIMEType
		o.metrics.RecordTurn(ctx, "ok")
	}

	o.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
	return result, nil
}

// buildMessages converts the session history into LLM messages and appends
// the new transcript as the driving user message. Session roles match the
// LLM role constants, so turns map one to one.
func buildMessages(history []session.Turn, transcript string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	for _, t := range history {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: transcript})
}
