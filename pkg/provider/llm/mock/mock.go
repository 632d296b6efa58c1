// Package mock provides a test double for the llm.Provider interface.
//
// Pre-populate the response fields, then inspect the recorded calls:
//
//	p := &mock.Provider{Response: &llm.CompletionResponse{Content: "hi"}}
//	resp, _ := p.Complete(ctx, req)
//	if p.CompleteCalls[0].Req.SystemPrompt != "..." { ... }
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voicegate/pkg/provider/llm"
)

// CompleteCall records a single invocation of Provider.Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
type Provider struct {
	mu sync.Mutex

	// Response is returned by Complete when CompleteErr is nil. If both are
	// nil, Complete returns an empty response.
	Response *llm.CompletionResponse

	// CompleteFn, if non-nil, overrides the canned Response/CompleteErr pair.
	CompleteFn func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// CompleteErr, if non-nil, is returned as the error from Complete.
	CompleteErr error

	// Caps is returned by Capabilities.
	Caps llm.ModelCapabilities

	// CountTokensErr, if non-nil, is returned by CountTokens.
	CountTokensErr error

	// CompleteCalls records every call to Complete.
	CompleteCalls []CompleteCall
}

// Complete records the call and returns the configured response.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	fn := p.CompleteFn
	resp := p.Response
	err := p.CompleteErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if resp != nil {
		return resp, nil
	}
	return &llm.CompletionResponse{}, nil
}

// CountTokens approximates tokens the same way the real providers do.
func (p *Provider) CountTokens(messages []llm.Message) (int, error) {
	if p.CountTokensErr != nil {
		return 0, p.CountTokensErr
	}
	total := 0
	for _, m := range messages {
		total += (len(m.Content)+3)/4 + 4
	}
	return total, nil
}

// Capabilities returns Caps.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return p.Caps
}

// CompleteCallCount returns the number of Complete calls. Thread-safe.
func (p *Provider) CompleteCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CompleteCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
