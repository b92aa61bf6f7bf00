// Package llm defines the response-generation provider contract.
//
// A [Responder] produces one assistant reply per user input, given the
// current conversation context. Implementations live in subpackages (openai,
// anyllm) and are registered with the config registry under a provider name.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vocata-ai/vocata/pkg/memory"
)

// Sentinel errors for the backend failure classes callers distinguish.
// Implementations wrap provider-specific errors so errors.Is works on these.
var (
	// ErrRateLimited marks a backend rate-limit rejection.
	ErrRateLimited = errors.New("llm: rate limited")

	// ErrTimeout marks a backend request that exceeded its deadline.
	ErrTimeout = errors.New("llm: request timed out")
)

// BackendError wraps any other failure from the response backend (API
// errors, network faults, malformed responses).
type BackendError struct {
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("llm: %s: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Context carries the situational state a Responder may fold into its
// prompt alongside the conversation history.
type Context struct {
	// Time is the wall-clock time of the request.
	Time time.Time

	// AssistantName is the persona name the reply should speak as.
	AssistantName string

	// ConversationActive reports whether a spoken conversation turn is in
	// progress (as opposed to wake-word listening or text input).
	ConversationActive bool

	// History is the recent conversation window, oldest first. The user
	// input being responded to is NOT included; implementations append it
	// themselves.
	History []memory.Turn
}

// Responder generates one assistant reply for the given user input.
//
// Errors are classified: rate limiting and timeouts match [ErrRateLimited]
// and [ErrTimeout] via errors.Is, everything else from the backend is a
// [*BackendError]. Callers translate these into spoken apologies rather than
// propagating them.
type Responder interface {
	Respond(ctx context.Context, input string, conv Context) (string, error)
}
