package policy

import (
	"context"
	"sync"

	"github.com/justapithecus/contribuart/types"
)

// Publisher makes a chain head visible by moving its branch ref.
// chain.RefPublisher is the production implementation.
type Publisher interface {
	Publish(ctx context.Context, state types.ChainState) error
}

// StubPublisher is a test publisher that records publishes without a remote.
type StubPublisher struct {
	mu sync.Mutex

	// Published stores every published state in call order.
	Published []types.ChainState

	// ErrorOnPublish, if non-nil, is returned by Publish.
	ErrorOnPublish error
}

// NewStubPublisher creates a new stub publisher for testing.
func NewStubPublisher() *StubPublisher {
	return &StubPublisher{Published: make([]types.ChainState, 0)}
}

// Publish records the state.
func (s *StubPublisher) Publish(_ context.Context, state types.ChainState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnPublish != nil {
		return s.ErrorOnPublish
	}
	s.Published = append(s.Published, state)
	return nil
}

// Count returns the number of successful publishes.
func (s *StubPublisher) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Published)
}

// Heads returns the published commit SHAs in order.
func (s *StubPublisher) Heads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Published))
	for i, st := range s.Published {
		out[i] = st.HeadCommitSHA
	}
	return out
}
