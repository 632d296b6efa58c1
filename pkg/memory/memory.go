// Package memory defines the retrieval layer used to ground voice replies.
//
// A SnippetIndex stores short knowledge snippets together with their embedding
// vectors and answers nearest-neighbour queries for a spoken transcript. The
// orchestrator treats retrieval as best-effort: when the index is slow or
// unavailable the voice turn proceeds ungrounded, so implementations should
// honor ctx deadlines strictly rather than block.
//
// Implementations must be safe for concurrent use.
package memory

import (
	"context"
	"time"
)

// Snippet is a single indexed knowledge fragment.
type Snippet struct {
	// ID uniquely identifies the snippet in the index.
	ID string

	// Content is the snippet text handed to the LLM as grounding context.
	Content string

	// Source names where the snippet came from (document, URL, import batch).
	Source string

	// Topic is an optional coarse grouping label.
	Topic string

	// Embedding is the vector for Content. Populated by the caller before
	// indexing; Search results carry the stored vector back.
	Embedding []float32

	// CreatedAt is when the snippet was indexed.
	CreatedAt time.Time
}

// SnippetResult pairs a snippet with its distance to the query.
type SnippetResult struct {
	Snippet Snippet

	// Distance is the cosine distance to the query text. Smaller is more
	// similar; results are ordered by ascending distance.
	Distance float64
}

// SnippetIndex is the abstraction over a vector-searchable snippet store.
//
// Implementations must be safe for concurrent use.
type SnippetIndex interface {
	// Index upserts a snippet. A snippet with an existing ID is completely
	// replaced. The snippet's Embedding must be populated and match the
	// dimensionality the index was created with.
	Index(ctx context.Context, snippet Snippet) error

	// Search returns the topK snippets closest to the query text, ordered by
	// ascending distance. Implementations embed the query themselves. An
	// empty result slice (not nil) is returned when the index has no
	// candidates.
	Search(ctx context.Context, query string, topK int) ([]SnippetResult, error)

	// Ping reports whether the index backend is reachable. Used by readiness
	// checks; must respect ctx deadlines.
	Ping(ctx context.Context) error
}
