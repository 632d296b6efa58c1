package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/MrWong99/voicegate/pkg/memory"
	"github.com/MrWong99/voicegate/pkg/memory/postgres"
)

const testEmbeddingDim = 4

// fakeEmbedder produces deterministic unit vectors so cosine distances in the
// tests are predictable without a live embedding service.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, testEmbeddingDim)
	// Bucket by first byte so distinct prefixes land on distinct axes.
	if len(text) > 0 {
		vec[int(text[0])%testEmbeddingDim] = 1
	} else {
		vec[0] = 1
	}
	return vec, nil
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (fakeEmbedder) Dimensions() int { return testEmbeddingDim }
func (fakeEmbedder) ModelID() string { return "fake-embedder" }

// testDSN returns the test database DSN from the environment, or skips the
// test if VOICEGATE_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("VOICEGATE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VOICEGATE_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestIndex creates a fresh [postgres.Index] against the test database.
// It calls t.Cleanup to close the index when the test finishes.
func newTestIndex(t *testing.T) *postgres.Index {
	t.Helper()
	ctx := context.Background()

	idx, err := postgres.NewIndex(ctx, testDSN(t), fakeEmbedder{})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	t.Cleanup(idx.Close)
	return idx
}

func TestIndexAndSearchRoundTrip(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	emb := fakeEmbedder{}
	for i, content := range []string{"alpha doc", "beta doc", "gamma doc"} {
		vec, _ := emb.Embed(ctx, content)
		err := idx.Index(ctx, memory.Snippet{
			ID:        fmt.Sprintf("test-snippet-%d", i),
			Content:   content,
			Source:    "unit-test",
			Embedding: vec,
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("Index: %v", err)
		}
	}

	results, err := idx.Search(ctx, "alpha query", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Snippet.Content != "alpha doc" {
		t.Errorf("expected closest snippet 'alpha doc', got %q", results[0].Snippet.Content)
	}
	if results[0].Distance > results[1].Distance {
		t.Errorf("results not ordered by ascending distance: %v > %v",
			results[0].Distance, results[1].Distance)
	}
}

func TestIndexUpsertReplaces(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	emb := fakeEmbedder{}
	vec, _ := emb.Embed(ctx, "original")
	snippet := memory.Snippet{ID: "test-upsert", Content: "original", Embedding: vec}
	if err := idx.Index(ctx, snippet); err != nil {
		t.Fatalf("Index: %v", err)
	}

	snippet.Content = "replaced"
	if err := idx.Index(ctx, snippet); err != nil {
		t.Fatalf("Index (upsert): %v", err)
	}

	results, err := idx.Search(ctx, "original", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Snippet.ID == "test-upsert" && r.Snippet.Content != "replaced" {
			t.Errorf("upsert did not replace content: got %q", r.Snippet.Content)
		}
	}
}

func TestPing(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
