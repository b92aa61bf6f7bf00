// Package mock provides test doubles for the tts.Speaker and
// tts.Synthesizer interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/vocata-ai/vocata/pkg/provider/tts"
)

// Speaker is a mock implementation of tts.Speaker. It records every spoken
// phrase. Set Err to inject a failure, or ErrOnce to fail exactly one call.
type Speaker struct {
	mu sync.Mutex

	// Err, if non-nil, is returned from every Speak call.
	Err error

	// ErrOnce, if non-nil, is returned from the next Speak call only.
	ErrOnce error

	// Spoken records every phrase passed to Speak, in order.
	Spoken []string
}

// Speak records the phrase and returns the configured error.
func (m *Speaker) Speak(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Spoken = append(m.Spoken, text)

	if m.ErrOnce != nil {
		err := m.ErrOnce
		m.ErrOnce = nil
		return err
	}
	return m.Err
}

// Phrases returns a copy of everything spoken so far. Thread-safe.
func (m *Speaker) Phrases() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Spoken))
	copy(out, m.Spoken)
	return out
}

// Reset clears all recorded phrases. Thread-safe.
func (m *Speaker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Spoken = nil
}

// Synthesizer is a mock implementation of tts.Synthesizer returning a
// configured PCM buffer for every call.
type Synthesizer struct {
	mu sync.Mutex

	// Samples and SampleRate are returned from every Synthesize call.
	Samples    []float32
	SampleRate int

	// Err, if non-nil, is returned instead.
	Err error

	// Texts records every phrase passed to Synthesize, in order.
	Texts []string
}

// Synthesize records the text and returns the configured PCM.
func (m *Synthesizer) Synthesize(_ context.Context, text string) ([]float32, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Texts = append(m.Texts, text)
	if m.Err != nil {
		return nil, 0, m.Err
	}
	return m.Samples, m.SampleRate, nil
}

// Compile-time interface assertions.
var (
	_ tts.Speaker     = (*Speaker)(nil)
	_ tts.Synthesizer = (*Synthesizer)(nil)
)
