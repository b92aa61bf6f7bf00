// Package mock provides test doubles for the audio package interfaces.
//
// Source delivers a scripted sequence of frames, Player records everything it
// is asked to speak, and both are safe for use from a single test goroutine
// plus the loop under test.
package mock

import (
	"context"
	"sync"

	"github.com/vocata-ai/vocata/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Source   = (*Source)(nil)
	_ audio.Player   = (*Player)(nil)
	_ audio.Notifier = (*Player)(nil)
)

// Source is a mock audio.Source fed from a scripted frame slice or an
// externally driven channel.
type Source struct {
	mu      sync.Mutex
	ch      chan audio.Frame
	started bool
	stopped bool

	// Script is the sequence of frames delivered (in order) once Start is
	// called. Leave empty and use Push to drive the source manually.
	Script []audio.Frame

	// StartErr, if non-nil, is returned by Start.
	StartErr error
}

// NewSource returns a Source with a generously buffered frame channel.
func NewSource(script ...audio.Frame) *Source {
	return &Source{
		ch:     make(chan audio.Frame, 1024),
		Script: script,
	}
}

// Start implements audio.Source. The scripted frames are enqueued
// immediately; the channel stays open for Push until Stop.
func (s *Source) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StartErr != nil {
		return s.StartErr
	}
	if s.started {
		return nil
	}
	s.started = true
	for _, f := range s.Script {
		s.ch <- f
	}
	return nil
}

// Push enqueues an extra frame after Start. Panics if the source is stopped.
func (s *Source) Push(f audio.Frame) {
	s.ch <- f
}

// Frames implements audio.Source.
func (s *Source) Frames() <-chan audio.Frame { return s.ch }

// Stop implements audio.Source. Idempotent.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.ch)
	return nil
}

// Player is a mock audio.Player / audio.Notifier that records calls.
type Player struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned by Play.
	PlayErr error

	// Played records the sample slices passed to Play, in order.
	Played [][]float32

	// Tones counts PlayNotificationTone invocations.
	Tones int

	// Stops counts Stop invocations.
	Stops int
}

// Play implements audio.Player.
func (p *Player) Play(_ context.Context, samples []float32, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PlayErr != nil {
		return p.PlayErr
	}
	p.Played = append(p.Played, append([]float32(nil), samples...))
	return nil
}

// Stop implements audio.Player.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Stops++
}

// PlayNotificationTone implements audio.Notifier.
func (p *Player) PlayNotificationTone(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Tones++
	return nil
}

// ToneCount returns the number of notification tones played.
func (p *Player) ToneCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Tones
}
