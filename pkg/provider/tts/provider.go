// Package tts defines the text-to-speech provider contract.
//
// A [Synthesizer] renders one reply into PCM audio in a single batch call;
// a [Speaker] renders and plays it. The assistant loop only depends on
// Speaker, so deployments without an audio output device can substitute a
// logging or network sink.
package tts

import (
	"context"
	"fmt"
)

// Synthesizer renders text into mono float32 PCM.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (samples []float32, sampleRate int, err error)
}

// Speaker renders text into audio and plays it to completion. Speak blocks
// until playback finishes or ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// SynthesisError wraps a provider failure with the provider's name so
// loop-level error handling can report which backend failed.
type SynthesisError struct {
	Provider string
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("tts: %s: %v", e.Provider, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
