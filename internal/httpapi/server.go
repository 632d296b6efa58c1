// Package httpapi exposes the voice gateway over HTTP: batch and streaming
// transcription, the per-turn voice-chat endpoint, session inspection, and
// the operational surface (health probes, status, Prometheus metrics). All
// routes except the liveness and readiness probes require bearer
// authentication.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/voicegate/internal/gateway"
	"github.com/MrWong99/voicegate/internal/health"
	"github.com/MrWong99/voicegate/internal/observe"
	"github.com/MrWong99/voicegate/internal/session"
	"github.com/MrWong99/voicegate/pkg/provider/stt"
)

// Default request body caps. Batch transcription accepts long recordings;
// voice-chat turns are short utterances.
const (
	DefaultMaxTranscriptionBody = 100 << 20
	DefaultMaxVoiceChatBody     = 10 << 20
)

// VoiceTurner runs one conversational turn. Satisfied by
// [gateway.Orchestrator].
type VoiceTurner interface {
	VoiceTurn(ctx context.Context, sessionID string, wavData []byte) (*gateway.Result, error)
}

// Config tunes the HTTP surface.
type Config struct {
	// APIToken is the bearer token required on authenticated routes. Empty
	// disables authentication entirely.
	APIToken string

	// Version is reported on /status. Empty reads as "dev".
	Version string

	// MaxTranscriptionBody and MaxVoiceChatBody cap request body sizes in
	// bytes. Zero values fall back to the package defaults.
	MaxTranscriptionBody int64
	MaxVoiceChatBody     int64
}

// Deps are the server's collaborators. Orchestrator, STT, and Sessions are
// required; Health defaults to a checker-less handler and Metrics to the
// package-level instance.
type Deps struct {
	Orchestrator VoiceTurner
	STT          stt.Provider
	Sessions     *session.Store
	Health       *health.Handler
	Metrics      *observe.Metrics
}

// Server holds the handler state behind the router returned by
// [Server.Router].
type Server struct {
	cfg      Config
	orch     VoiceTurner
	stt      stt.Provider
	sessions *session.Store
	health   *health.Handler
	metrics  *observe.Metrics
	started  time.Time
}

// NewServer validates deps, applies config defaults, and returns a Server.
func NewServer(deps Deps, cfg Config) (*Server, error) {
	switch {
	case deps.Orchestrator == nil:
		return nil, errors.New("httpapi: orchestrator is required")
	case deps.STT == nil:
		return nil, errors.New("httpapi: STT provider is required")
	case deps.Sessions == nil:
		return nil, errors.New("httpapi: session store is required")
	}
	if deps.Health == nil {
		deps.Health = health.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	if cfg.MaxTranscriptionBody <= 0 {
		cfg.MaxTranscriptionBody = DefaultMaxTranscriptionBody
	}
	if cfg.MaxVoiceChatBody <= 0 {
		cfg.MaxVoiceChatBody = DefaultMaxVoiceChatBody
	}

	return &Server{
		cfg:      cfg,
		orch:     deps.Orchestrator,
		stt:      deps.STT,
		sessions: deps.Sessions,
		health:   deps.Health,
		metrics:  deps.Metrics,
		started:  time.Now(),
	}, nil
}

// Router assembles the route tree. The health probes sit outside the auth
// group so orchestration platforms can reach them without credentials;
// everything else goes through the bearer check.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(observe.Middleware(s.metrics))

	s.health.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)

		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
		r.Get("/status", s.handleStatus)

		r.Post("/v1/transcriptions", s.handleTranscription)
		r.Get("/v1/transcriptions/stream", s.handleStream)
		r.Post("/v1/voice-chat", s.handleVoiceChat)

		r.Get("/v1/sessions/{id}", s.handleGetSession)
		r.Delete("/v1/sessions/{id}", s.handleDeleteSession)
	})

	return r
}
