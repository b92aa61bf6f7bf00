// Package mock provides a test double for the llm.Responder interface.
//
// Use Responder in unit tests to verify the conversation context passed to
// the backend and to feed controlled replies without a live LLM. All fields
// are safe to set before calling any method; mutating them during a
// concurrent call is the caller's responsibility.
package mock

import (
	"context"
	"sync"

	"github.com/vocata-ai/vocata/pkg/provider/llm"
)

// RespondCall records a single invocation of Respond.
type RespondCall struct {
	// Input is the user input passed to Respond.
	Input string
	// Context is the conversation context passed to Respond.
	Context llm.Context
}

// Responder is a mock implementation of llm.Responder.
//
// Replies is consumed one element per call; when exhausted the last element
// is repeated. An empty Replies slice yields "". Set Err to inject an error
// on every call, or ErrOnce to fail exactly one call and then recover.
type Responder struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Replies is the sequence of replies returned, in order.
	Replies []string

	// Err, if non-nil, is returned from every Respond call.
	Err error

	// ErrOnce, if non-nil, is returned from the next Respond call only.
	ErrOnce error

	// --- Call records (read after test) ---

	// Calls records every invocation of Respond in order.
	Calls []RespondCall

	next int
}

// Respond records the call and returns the next configured reply.
func (m *Responder) Respond(_ context.Context, input string, conv llm.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, RespondCall{Input: input, Context: conv})

	if m.ErrOnce != nil {
		err := m.ErrOnce
		m.ErrOnce = nil
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Replies) == 0 {
		return "", nil
	}

	i := m.next
	if i >= len(m.Replies) {
		i = len(m.Replies) - 1
	}
	m.next++
	return m.Replies[i], nil
}

// CallCount returns the number of recorded Respond calls. Thread-safe.
func (m *Responder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears all recorded calls and the consumption cursor. Thread-safe.
func (m *Responder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.next = 0
}

// Ensure Responder implements llm.Responder at compile time.
var _ llm.Responder = (*Responder)(nil)
