package llm

import (
	"context"
	"fmt"
	"sync"
)

// FakeProvider is a scripted Provider for tests. Responses are returned in
// order; when the script runs out the last response repeats.
type FakeProvider struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Calls     []*ChatRequest
}

// NewFakeProvider scripts a sequence of responses.
func NewFakeProvider(responses ...string) *FakeProvider {
	return &FakeProvider{Responses: responses}
}

// Chat returns the next scripted response.
func (f *FakeProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, req)
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.Responses) == 0 {
		return nil, fmt.Errorf("fake provider has no scripted responses")
	}
	idx := len(f.Calls) - 1
	if idx >= len(f.Responses) {
		idx = len(f.Responses) - 1
	}
	return &ChatResponse{Content: f.Responses[idx], Model: req.Model}, nil
}

// Name returns the provider identifier.
func (f *FakeProvider) Name() string { return "fake" }

// Available always reports true.
func (f *FakeProvider) Available() bool { return true }

// CallCount reports how many chat calls were made.
func (f *FakeProvider) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
