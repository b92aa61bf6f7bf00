// Package mock provides a test double for the stt.Transcriber interface.
//
// Use Transcriber in unit tests to feed controlled transcriptions without a
// live speech backend. All fields are safe to set before calling any method;
// mutating them during a concurrent call is the caller's responsibility.
package mock

import (
	"context"
	"sync"

	"github.com/vocata-ai/vocata/pkg/audio"
	"github.com/vocata-ai/vocata/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Utterance is the audio passed to Transcribe.
	Utterance audio.Utterance
}

// Transcriber is a mock implementation of stt.Transcriber.
//
// Texts is consumed one element per call; when exhausted the last element is
// repeated. An empty Texts slice yields "". Set Err to inject an error on
// every call, or ErrOnce to fail exactly one call and then recover.
type Transcriber struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Texts is the sequence of transcriptions returned, in order.
	Texts []string

	// Err, if non-nil, is returned from every Transcribe call.
	Err error

	// ErrOnce, if non-nil, is returned from the next Transcribe call only.
	ErrOnce error

	// --- Call records (read after test) ---

	// Calls records every invocation of Transcribe in order.
	Calls []TranscribeCall

	next int
}

// Transcribe records the call and returns the next configured text.
func (m *Transcriber) Transcribe(_ context.Context, u audio.Utterance) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, TranscribeCall{Utterance: u})

	if m.ErrOnce != nil {
		err := m.ErrOnce
		m.ErrOnce = nil
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Texts) == 0 {
		return "", nil
	}

	i := m.next
	if i >= len(m.Texts) {
		i = len(m.Texts) - 1
	}
	m.next++
	return m.Texts[i], nil
}

// CallCount returns the number of recorded Transcribe calls. Thread-safe.
func (m *Transcriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears all recorded calls and the consumption cursor. Thread-safe.
func (m *Transcriber) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.next = 0
}

// Ensure Transcriber implements stt.Transcriber at compile time.
var _ stt.Transcriber = (*Transcriber)(nil)
