package elevenlabs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/MrWong99/voicegate/pkg/provider/tts"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
	p, err := New("xi-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != defaultModel {
		t.Errorf("expected default model %q, got %q", defaultModel, p.model)
	}
	if p.stability != defaultStability || p.similarityBoost != defaultSimilarityBoost {
		t.Errorf("expected default voice settings %v/%v, got %v/%v",
			defaultStability, defaultSimilarityBoost, p.stability, p.similarityBoost)
	}
}

func TestNew_Options(t *testing.T) {
	p, err := New("xi-test",
		WithModel("eleven_flash_v2_5"),
		WithOutputFormat("pcm_16000"),
		WithVoiceSettings(0.3, 0.9),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != "eleven_flash_v2_5" {
		t.Errorf("expected model override, got %q", p.model)
	}
	if p.outputFormat != "pcm_16000" {
		t.Errorf("expected output format override, got %q", p.outputFormat)
	}
	if p.stability != 0.3 || p.similarityBoost != 0.9 {
		t.Errorf("expected voice settings 0.3/0.9, got %v/%v", p.stability, p.similarityBoost)
	}
}

func TestSynthesize_Validation(t *testing.T) {
	p, _ := New("xi-test")
	if _, err := p.Synthesize(context.Background(), "hello", tts.VoiceProfile{}); err == nil {
		t.Fatal("expected error for empty voice ID")
	}
	if _, err := p.Synthesize(context.Background(), "", tts.VoiceProfile{ID: "v1"}); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestSynthesizeRequestShape(t *testing.T) {
	body, err := json.Marshal(synthesizeRequest{
		Text:    "Hello there.",
		ModelID: defaultModel,
		VoiceSettings: voiceSettings{
			Stability:       defaultStability,
			SimilarityBoost: defaultSimilarityBoost,
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["text"] != "Hello there." {
		t.Errorf("text = %v", decoded["text"])
	}
	if decoded["model_id"] != defaultModel {
		t.Errorf("model_id = %v", decoded["model_id"])
	}
	vs, ok := decoded["voice_settings"].(map[string]any)
	if !ok {
		t.Fatal("voice_settings missing")
	}
	if vs["stability"] != 0.5 || vs["similarity_boost"] != 0.75 {
		t.Errorf("voice_settings = %v", vs)
	}
}

func TestParseVoicesResponse(t *testing.T) {
	data := []byte(`{
		"voices": [
			{"voice_id": "v1", "name": "Rachel", "category": "premade", "labels": {"accent": "american"}},
			{"voice_id": "v2", "name": "Callum"}
		]
	}`)
	profiles, err := parseVoicesResponse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(profiles))
	}
	if profiles[0].ID != "v1" || profiles[0].Name != "Rachel" {
		t.Errorf("unexpected first profile: %+v", profiles[0])
	}
	if profiles[0].Metadata["accent"] != "american" || profiles[0].Metadata["category"] != "premade" {
		t.Errorf("unexpected metadata: %v", profiles[0].Metadata)
	}
	if profiles[1].Provider != "elevenlabs" {
		t.Errorf("expected provider elevenlabs, got %q", profiles[1].Provider)
	}
}

func TestMimeForOutputFormat(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"mp3_44100_128", "audio/mpeg"},
		{"pcm_16000", "audio/L16"},
		{"ulaw_8000", "audio/basic"},
		{"", "audio/mpeg"},
		{"opus_48000", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := mimeForOutputFormat(tt.format); got != tt.want {
			t.Errorf("mimeForOutputFormat(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}
