package audio

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// Compile-time assertions.
var (
	_ Player   = (*PortAudioPlayer)(nil)
	_ Notifier = (*PortAudioPlayer)(nil)
)

// notification tone parameters: a short two-beep acknowledgment.
const (
	toneFrequency = 880.0 // Hz
	toneBeep      = 120   // ms per beep
	toneGap       = 60    // ms between beeps
	toneAmplitude = 0.25
)

// PortAudioPlayer plays PCM through the default output device. Playback
// blocks the calling goroutine until complete; Stop aborts an in-progress
// Play from another goroutine and is a safe no-op when idle.
type PortAudioPlayer struct {
	mu      sync.Mutex
	playing bool
	abort   chan struct{}
}

// NewPlayer returns a ready PortAudioPlayer. PortAudio must already be
// initialised (the [Capturer] constructor does this for the process).
func NewPlayer() *PortAudioPlayer {
	return &PortAudioPlayer{}
}

// Play implements [Player]. It writes samples to the default output stream
// in chunks, returning early if ctx is cancelled or Stop is called.
func (p *PortAudioPlayer) Play(ctx context.Context, samples []float32, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}
	if sampleRate <= 0 {
		return fmt.Errorf("audio: invalid sample rate %d", sampleRate)
	}

	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return fmt.Errorf("audio: playback already in progress")
	}
	abort := make(chan struct{})
	p.playing = true
	p.abort = abort
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.playing = false
		p.abort = nil
		p.mu.Unlock()
	}()

	return playStream(ctx, abort, samples, sampleRate)
}

// Stop implements [Player]. Safe to call concurrently and when idle.
func (p *PortAudioPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing && p.abort != nil {
		close(p.abort)
		p.abort = nil
	}
}

// PlayNotificationTone implements [Notifier]: a brief two-beep sine tone to
// acknowledge wake-word detection.
func (p *PortAudioPlayer) PlayNotificationTone(ctx context.Context) error {
	const rate = 16000
	return p.Play(ctx, NotificationTone(rate), rate)
}

// NotificationTone synthesises the acknowledgment beep at the given sample
// rate. Exposed so tests and alternative players can reuse the same sound.
func NotificationTone(sampleRate int) []float32 {
	beepSamples := sampleRate * toneBeep / 1000
	gapSamples := sampleRate * toneGap / 1000

	out := make([]float32, 0, 2*beepSamples+gapSamples)
	appendBeep := func() {
		for i := 0; i < beepSamples; i++ {
			// Linear fade in/out over the first and last 10% avoids clicks.
			env := 1.0
			fade := beepSamples / 10
			if i < fade {
				env = float64(i) / float64(fade)
			} else if i > beepSamples-fade {
				env = float64(beepSamples-i) / float64(fade)
			}
			v := toneAmplitude * env * math.Sin(2*math.Pi*toneFrequency*float64(i)/float64(sampleRate))
			out = append(out, float32(v))
		}
	}

	appendBeep()
	out = append(out, make([]float32, gapSamples)...)
	appendBeep()
	return out
}
