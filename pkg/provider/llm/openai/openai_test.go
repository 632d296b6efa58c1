package openai

import (
	"testing"

	"github.com/MrWong99/voicegate/pkg/provider/llm"
)

func TestConvertMessage(t *testing.T) {
	t.Run("system", func(t *testing.T) {
		param, err := convertMessage(llm.Message{Role: "system", Content: "You are helpful."})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if param.OfSystem == nil {
			t.Fatal("expected OfSystem to be set")
		}
	})

	t.Run("user", func(t *testing.T) {
		param, err := convertMessage(llm.Message{Role: "user", Content: "Hello!"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if param.OfUser == nil {
			t.Fatal("expected OfUser to be set")
		}
	})

	t.Run("assistant", func(t *testing.T) {
		param, err := convertMessage(llm.Message{Role: "assistant", Content: "Hi there!"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if param.OfAssistant == nil {
			t.Fatal("expected OfAssistant to be set")
		}
	})

	t.Run("unknown role", func(t *testing.T) {
		if _, err := convertMessage(llm.Message{Role: "tool", Content: "x"}); err == nil {
			t.Fatal("expected error for unsupported role, got nil")
		}
	})
}

func TestModelCapabilities(t *testing.T) {
	caps := modelCapabilities("gpt-4o-mini")
	if caps.ContextWindow != 128_000 {
		t.Errorf("gpt-4o-mini: expected context window 128000, got %d", caps.ContextWindow)
	}
	if !caps.SupportsVision {
		t.Error("gpt-4o-mini: expected SupportsVision=true")
	}

	caps = modelCapabilities("gpt-3.5-turbo")
	if caps.ContextWindow != 16_385 {
		t.Errorf("gpt-3.5-turbo: expected context window 16385, got %d", caps.ContextWindow)
	}
	if caps.SupportsVision {
		t.Error("gpt-3.5-turbo: expected SupportsVision=false")
	}
}

func TestModelCapabilities_OpenRouterPrefix(t *testing.T) {
	caps := modelCapabilities("openai/gpt-4o")
	if caps.ContextWindow != 128_000 || caps.MaxOutputTokens != 16_384 {
		t.Errorf("openai/gpt-4o: got %+v, want gpt-4o capabilities", caps)
	}
}

func TestModelCapabilities_UnknownModel(t *testing.T) {
	caps := modelCapabilities("my-custom-model")
	if caps.ContextWindow <= 0 {
		t.Error("unknown model: expected positive ContextWindow")
	}
	if caps.MaxOutputTokens <= 0 {
		t.Error("unknown model: expected positive MaxOutputTokens")
	}
}

func TestCountTokens_Estimation(t *testing.T) {
	p := &Provider{model: "gpt-4o"}
	count, err := p.CountTokens([]llm.Message{{Role: "user", Content: "Hello world"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count <= 0 {
		t.Errorf("expected positive token count, got %d", count)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o"); err == nil {
		t.Fatal("expected error for empty API key")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
	if _, err := New("sk-test", "gpt-4o", WithBaseURL(OpenRouterBaseURL), WithOrganization("org-123")); err != nil {
		t.Fatalf("unexpected error with valid options: %v", err)
	}
}
