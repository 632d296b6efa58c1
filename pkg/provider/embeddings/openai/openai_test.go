package openai

import "testing"

func TestModelDimensions(t *testing.T) {
	cases := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
	}
	for _, tc := range cases {
		if got := modelDimensions(tc.model); got != tc.want {
			t.Errorf("modelDimensions(%q) = %d, want %d", tc.model, got, tc.want)
		}
	}

	// Unknown models still need a usable vector width.
	if got := modelDimensions("some-future-model"); got <= 0 {
		t.Errorf("modelDimensions(unknown) = %d, want > 0", got)
	}
}

func TestProvider_DimensionsMatchesModel(t *testing.T) {
	for _, model := range []string{
		"text-embedding-3-small",
		"text-embedding-3-large",
		"text-embedding-ada-002",
	} {
		p := &Provider{model: model}
		if got := p.Dimensions(); got != modelDimensions(model) {
			t.Errorf("model %s: Dimensions() = %d, want %d", model, got, modelDimensions(model))
		}
		if got := p.ModelID(); got != model {
			t.Errorf("ModelID() = %q, want %q", got, model)
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("default model", func(t *testing.T) {
		p, err := New("sk-test", "")
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		if p.ModelID() != DefaultModel {
			t.Errorf("model = %s, want default %s", p.ModelID(), DefaultModel)
		}
	})

	t.Run("missing api key", func(t *testing.T) {
		if _, err := New("", "text-embedding-3-small"); err == nil {
			t.Fatal("New() accepted an empty API key")
		}
	})

	t.Run("options", func(t *testing.T) {
		_, err := New("sk-test", "text-embedding-3-small",
			WithBaseURL("https://custom.example.com"),
			WithOrganization("org-123"),
		)
		if err != nil {
			t.Fatalf("New() with options error: %v", err)
		}
	})
}

func TestFloat64ToFloat32(t *testing.T) {
	in := []float64{1.0, 2.5, -0.5}
	out := float64ToFloat32(in)
	if len(out) != len(in) {
		t.Fatalf("got %d elements, want %d", len(out), len(in))
	}
	for i, v := range out {
		if v != float32(in[i]) {
			t.Errorf("index %d: got %v, want %v", i, v, float32(in[i]))
		}
	}
}
