package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "openrouter", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt":        {"whisper"},
	"tts":        {"elevenlabs"},
	"embeddings": {"openai", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// $VAR and ${VAR} references anywhere in the document are replaced with the
// value of the environment variable VAR before decoding, so secrets like API
// keys and the bearer token stay out of the file itself.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(raw))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.APIToken == "" {
		slog.Warn("server.api_token is empty; all protected endpoints will reject requests")
	}
	if cfg.Server.MaxTranscriptionBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_transcription_body_bytes %d is negative", cfg.Server.MaxTranscriptionBodyBytes))
	}
	if cfg.Server.MaxVoiceChatBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_voice_chat_body_bytes %d is negative", cfg.Server.MaxVoiceChatBodyBytes))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	// The turn pipeline cannot run without its mandatory stages.
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt is required"))
	}
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm is required"))
	}
	if cfg.Providers.TTS.Name == "" {
		errs = append(errs, errors.New("providers.tts is required"))
	}

	// Retrieval ↔ embeddings cross-checks.
	if cfg.Retrieval.PostgresDSN != "" && cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("retrieval.postgres_dsn is set but providers.embeddings is not configured"))
	}
	if cfg.Retrieval.PostgresDSN == "" && cfg.Providers.Embeddings.Name != "" {
		slog.Warn("providers.embeddings is configured but retrieval.postgres_dsn is empty; replies will not be grounded")
	}
	if cfg.Retrieval.EmbeddingDimensions < 0 {
		errs = append(errs, fmt.Errorf("retrieval.embedding_dimensions %d is negative", cfg.Retrieval.EmbeddingDimensions))
	}
	if cfg.Retrieval.TopK < 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k %d is negative", cfg.Retrieval.TopK))
	}

	// Session
	if cfg.Session.TTLMinutes < 0 {
		errs = append(errs, fmt.Errorf("session.ttl_minutes %d is negative", cfg.Session.TTLMinutes))
	}
	if cfg.Session.SweepIntervalMinutes < 0 {
		errs = append(errs, fmt.Errorf("session.sweep_interval_minutes %d is negative", cfg.Session.SweepIntervalMinutes))
	}

	// Pipeline
	if cfg.Pipeline.Temperature < 0 || cfg.Pipeline.Temperature > 2.0 {
		errs = append(errs, fmt.Errorf("pipeline.temperature %.2f is out of range [0.0, 2.0]", cfg.Pipeline.Temperature))
	}
	if cfg.Pipeline.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_tokens %d is negative", cfg.Pipeline.MaxTokens))
	}
	for name, v := range map[string]int{
		"pipeline.transcribe_timeout_ms": cfg.Pipeline.TranscribeTimeoutMs,
		"pipeline.retrieve_timeout_ms":   cfg.Pipeline.RetrieveTimeoutMs,
		"pipeline.generate_timeout_ms":   cfg.Pipeline.GenerateTimeoutMs,
		"pipeline.synthesize_timeout_ms": cfg.Pipeline.SynthesizeTimeoutMs,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s %d is negative", name, v))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
