// Package mock provides a test double for the memory.SnippetIndex interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voicegate/pkg/memory"
)

// SearchCall records a single invocation of SnippetIndex.Search.
type SearchCall struct {
	// Ctx is the context passed to Search.
	Ctx context.Context
	// Query is the query text passed to Search.
	Query string
	// TopK is the result limit passed to Search.
	TopK int
}

// SnippetIndex is a mock implementation of memory.SnippetIndex.
type SnippetIndex struct {
	mu sync.Mutex

	// Results is returned by Search when SearchErr is nil.
	Results []memory.SnippetResult

	// SearchFn, if non-nil, overrides the canned Results/SearchErr pair.
	// Useful for simulating slow retrieval with ctx-sensitive behavior.
	SearchFn func(ctx context.Context, query string, topK int) ([]memory.SnippetResult, error)

	// SearchErr, if non-nil, is returned as the error from Search.
	SearchErr error

	// IndexErr, if non-nil, is returned by Index.
	IndexErr error

	// PingErr, if non-nil, is returned by Ping.
	PingErr error

	// SearchCalls records every call to Search.
	SearchCalls []SearchCall

	// Indexed records every snippet passed to Index.
	Indexed []memory.Snippet
}

// Index records the snippet and returns IndexErr.
func (m *SnippetIndex) Index(_ context.Context, snippet memory.Snippet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Indexed = append(m.Indexed, snippet)
	return m.IndexErr
}

// Search records the call and returns the configured results.
func (m *SnippetIndex) Search(ctx context.Context, query string, topK int) ([]memory.SnippetResult, error) {
	m.mu.Lock()
	m.SearchCalls = append(m.SearchCalls, SearchCall{Ctx: ctx, Query: query, TopK: topK})
	fn := m.SearchFn
	results := m.Results
	err := m.SearchErr
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, query, topK)
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Ping returns PingErr.
func (m *SnippetIndex) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingErr
}

// SearchCallCount returns the number of Search calls. Thread-safe.
func (m *SnippetIndex) SearchCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SearchCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (m *SnippetIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchCalls = nil
	m.Indexed = nil
}

// Ensure SnippetIndex implements memory.SnippetIndex at compile time.
var _ memory.SnippetIndex = (*SnippetIndex)(nil)
