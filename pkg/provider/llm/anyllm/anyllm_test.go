package anyllm

import (
	"testing"

	"github.com/MrWong99/voicegate/pkg/provider/llm"
)

// TestNew_Validation checks constructor argument validation.
func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Fatal("expected error for empty provider name")
	}
	if _, err := New("openai", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
	if _, err := New("not-a-provider", "gpt-4o"); err == nil {
		t.Fatal("expected error for unsupported provider name")
	}
}

// TestBuildParams checks request conversion into anyllm CompletionParams.
func TestBuildParams(t *testing.T) {
	p := &Provider{model: "gpt-4o"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You are helpful.",
		Messages: []llm.Message{
			{Role: "user", Content: "Hello!"},
			{Role: "assistant", Content: "Hi there!"},
		},
		Temperature: 0.7,
		MaxTokens:   150,
	})

	if params.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", params.Model)
	}
	if len(params.Messages) != 3 {
		t.Fatalf("expected 3 messages (system + 2), got %d", len(params.Messages))
	}
	if params.Messages[0].Role != "system" {
		t.Errorf("expected first message role system, got %q", params.Messages[0].Role)
	}
	if params.Temperature == nil || *params.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 150 {
		t.Errorf("expected max tokens 150, got %v", params.MaxTokens)
	}
}

// TestBuildParams_ZeroDefaults checks that zero temperature and max tokens are omitted.
func TestBuildParams_ZeroDefaults(t *testing.T) {
	p := &Provider{model: "gpt-4o"}
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "Hello!"}},
	})
	if params.Temperature != nil {
		t.Errorf("expected nil temperature, got %v", *params.Temperature)
	}
	if params.MaxTokens != nil {
		t.Errorf("expected nil max tokens, got %v", *params.MaxTokens)
	}
}

// TestModelCapabilities checks capability lookup for known model families.
func TestModelCapabilities(t *testing.T) {
	caps := modelCapabilities("claude-3-5-sonnet-latest")
	if caps.ContextWindow != 200_000 {
		t.Errorf("claude: expected context window 200000, got %d", caps.ContextWindow)
	}
	caps = modelCapabilities("anthropic/claude-3-5-haiku")
	if caps.ContextWindow != 200_000 {
		t.Errorf("vendor-prefixed claude: expected context window 200000, got %d", caps.ContextWindow)
	}
	caps = modelCapabilities("something-else")
	if caps.ContextWindow <= 0 || caps.MaxOutputTokens <= 0 {
		t.Errorf("unknown model: expected positive defaults, got %+v", caps)
	}
}
