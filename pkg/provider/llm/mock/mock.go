// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the conversation session sends
// correct CompletionRequests and to feed controlled responses without a live
// LLM backend. Responses are consumed from the Responses queue in order; when
// the queue is exhausted the last response is repeated.
//
// Example:
//
//	p := &mock.Provider{
//	    Responses: []*llm.CompletionResponse{{Content: "Hello!"}},
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/frontdesk/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
// Zero values for response fields cause Complete to return an empty response.
// Set Err to inject errors.
type Provider struct {
	mu sync.Mutex

	// Responses is the queue of responses returned by successive Complete calls.
	// When fewer responses than calls are configured, the last one is repeated.
	Responses []*llm.CompletionResponse

	// Err, if non-nil, is returned as the error from Complete.
	Err error

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall

	next int
}

// Complete records the call and returns the next queued response.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})

	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Responses) == 0 {
		return &llm.CompletionResponse{}, nil
	}

	idx := p.next
	if idx >= len(p.Responses) {
		idx = len(p.Responses) - 1
	}
	p.next++
	return p.Responses[idx], nil
}
