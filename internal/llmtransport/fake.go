package llmtransport

import "context"

// Fake is an in-memory Client for tests: it returns queued responses in
// order and records every request it saw, following the same hand-rolled
// fake-backend pattern internal/llm's own tests use for its Backend
// interface.
type Fake struct {
	Responses []*Response
	Err       error
	Requests  []Request
	next      int
}

var _ Client = (*Fake)(nil)

// Complete returns the next queued response, recording req.
func (f *Fake) Complete(ctx context.Context, req Request) (*Response, error) {
	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.next >= len(f.Responses) {
		return &Response{}, nil
	}
	resp := f.Responses[f.next]
	f.next++
	return resp, nil
}
