// Package app wires all Voicegate subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithSessionStore, WithSnippetIndex). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/voicegate/internal/config"
	"github.com/MrWong99/voicegate/internal/gateway"
	"github.com/MrWong99/voicegate/internal/health"
	"github.com/MrWong99/voicegate/internal/httpapi"
	"github.com/MrWong99/voicegate/internal/observe"
	"github.com/MrWong99/voicegate/internal/session"
	"github.com/MrWong99/voicegate/pkg/memory"
	"github.com/MrWong99/voicegate/pkg/memory/postgres"
	"github.com/MrWong99/voicegate/pkg/provider/embeddings"
	"github.com/MrWong99/voicegate/pkg/provider/llm"
	"github.com/MrWong99/voicegate/pkg/provider/stt"
	"github.com/MrWong99/voicegate/pkg/provider/tts"
)

// readHeaderTimeout bounds how long a client may take to send request
// headers.
const readHeaderTimeout = 10 * time.Second

// Providers holds one interface value per provider slot. LLM, STT, and TTS
// are required; Embeddings is only needed when retrieval is configured.
// Populated by main.go via the config registry.
type Providers struct {
	LLM        llm.Provider
	STT        stt.Provider
	TTS        tts.Provider
	Embeddings embeddings.Provider
}

// App owns all subsystem lifetimes: the session store and its reaper, the
// optional snippet index, the turn orchestrator, and the HTTP server.
type App struct {
	cfg       *config.Config
	providers *Providers
	version   string

	sessions *session.Store
	snippets memory.SnippetIndex
	orch     *gateway.Orchestrator
	server   *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSessionStore injects a session store instead of creating one from config.
func WithSessionStore(s *session.Store) Option {
	return func(a *App) { a.sessions = s }
}

// WithSnippetIndex injects a snippet index instead of connecting to Postgres.
func WithSnippetIndex(ix memory.SnippetIndex) Option {
	return func(a *App) { a.snippets = ix }
}

// WithVersion sets the build version reported on the status endpoint.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		return nil, errors.New("app: providers must not be nil")
	}
	switch {
	case providers.LLM == nil:
		return nil, errors.New("app: LLM provider is required")
	case providers.STT == nil:
		return nil, errors.New("app: STT provider is required")
	case providers.TTS == nil:
		return nil, errors.New("app: TTS provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	if a.sessions == nil {
		a.sessions = session.NewStore(cfg.Session.TTL())
	}

	// The session gauge reads the store on every scrape, so expiry and
	// sweeps are reflected without bookkeeping in the turn path.
	if _, err := observe.DefaultMetrics().ObserveActiveSessions(func() int64 {
		return int64(a.sessions.Len())
	}); err != nil {
		return nil, fmt.Errorf("app: register session gauge: %w", err)
	}

	if err := a.initSnippets(ctx); err != nil {
		return nil, fmt.Errorf("app: init snippet index: %w", err)
	}

	if err := a.initOrchestrator(); err != nil {
		return nil, fmt.Errorf("app: init orchestrator: %w", err)
	}

	if err := a.initServer(); err != nil {
		return nil, fmt.Errorf("app: init http server: %w", err)
	}

	return a, nil
}

// initSnippets connects the pgvector snippet index when retrieval is
// configured. An empty DSN leaves retrieval disabled; the orchestrator then
// skips the stage entirely.
func (a *App) initSnippets(ctx context.Context) error {
	if a.snippets != nil {
		return nil // injected
	}

	dsn := a.cfg.Retrieval.PostgresDSN
	if dsn == "" {
		slog.Info("retrieval disabled, no postgres_dsn configured")
		return nil
	}
	if a.providers.Embeddings == nil {
		return errors.New("retrieval.postgres_dsn is set but no embeddings provider is configured")
	}
	if want := a.cfg.Retrieval.EmbeddingDimensions; want > 0 {
		if got := a.providers.Embeddings.Dimensions(); got != want {
			return fmt.Errorf("retrieval.embedding_dimensions is %d but the embeddings provider produces %d-dimensional vectors", want, got)
		}
	}

	ix, err := postgres.NewIndex(ctx, dsn, a.providers.Embeddings)
	if err != nil {
		return err
	}
	a.snippets = ix
	a.closers = append(a.closers, func() error {
		ix.Close()
		return nil
	})
	slog.Info("snippet index connected")
	return nil
}

// initOrchestrator assembles the per-turn pipeline from config and providers.
func (a *App) initOrchestrator() error {
	pl := a.cfg.Pipeline
	orch, err := gateway.New(gateway.Deps{
		Sessions: a.sessions,
		STT:      a.providers.STT,
		LLM:      a.providers.LLM,
		TTS:      a.providers.TTS,
		Snippets: a.snippets,
	}, gateway.Config{
		Persona:       pl.Persona,
		Voice:         tts.VoiceProfile{ID: pl.VoiceID},
		Temperature:   pl.Temperature,
		MaxTokens:     pl.MaxTokens,
		RetrievalTopK: a.cfg.Retrieval.TopK,
		Timeouts: gateway.Timeouts{
			Transcribe: time.Duration(pl.TranscribeTimeoutMs) * time.Millisecond,
			Retrieve:   time.Duration(pl.RetrieveTimeoutMs) * time.Millisecond,
			Generate:   time.Duration(pl.GenerateTimeoutMs) * time.Millisecond,
			Synthesize: time.Duration(pl.SynthesizeTimeoutMs) * time.Millisecond,
		},
		Labels: gateway.ProviderLabels{
			STT: a.cfg.Providers.STT.Name,
			LLM: a.cfg.Providers.LLM.Name,
			TTS: a.cfg.Providers.TTS.Name,
		},
	})
	if err != nil {
		return err
	}
	a.orch = orch
	return nil
}

// initServer builds the HTTP surface around the orchestrator.
func (a *App) initServer() error {
	var checkers []health.Checker
	if p, ok := a.snippets.(health.Pinger); ok {
		checkers = append(checkers, health.PingChecker("snippet-index", p))
	}

	srv, err := httpapi.NewServer(httpapi.Deps{
		Orchestrator: a.orch,
		STT:          a.providers.STT,
		Sessions:     a.sessions,
		Health:       health.New(checkers...),
	}, httpapi.Config{
		APIToken:             a.cfg.Server.APIToken,
		Version:              a.version,
		MaxTranscriptionBody: a.cfg.Server.MaxTranscriptionBodyBytes,
		MaxVoiceChatBody:     a.cfg.Server.MaxVoiceChatBodyBytes,
	})
	if err != nil {
		return err
	}

	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return nil
}

// shutdownGrace bounds how long in-flight requests may drain after the run
// context is cancelled.
const shutdownGrace = 10 * time.Second

// ApplyPipeline pushes hot-reloadable pipeline settings to the orchestrator.
// Called by main when the config watcher reports a pipeline change.
func (a *App) ApplyPipeline(pl config.PipelineConfig) {
	a.orch.UpdatePipeline(pl.Persona, tts.VoiceProfile{ID: pl.VoiceID}, pl.Temperature, pl.MaxTokens)
}

// Run starts the session reaper and serves HTTP until ctx is cancelled or
// the listener fails. On cancellation the server drains in-flight requests
// (bounded by shutdownGrace) and Run returns ctx.Err().
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.sessions.Run(gctx, a.cfg.Session.SweepInterval())
		return nil
	})

	g.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http server shutdown error", "err", err)
		}
		return gctx.Err()
	})

	slog.Info("voicegate listening",
		"addr", a.cfg.Server.ListenAddr,
		"tls", a.cfg.Server.TLS != nil,
		"retrieval", a.snippets != nil,
	)

	return g.Wait()
}

// Shutdown drains the HTTP server and tears down all subsystems in order. It
// respects the context deadline: if ctx expires before all closers finish,
// remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("http server shutdown error", "err", err)
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
