// Package stt defines the speech-to-text provider contract.
//
// A [Transcriber] converts one finalized utterance into text in a single
// batch call. Implementations live in subpackages (e.g. whisper) and are
// registered with the config registry under a provider name.
package stt

import (
	"context"
	"fmt"

	"github.com/vocata-ai/vocata/pkg/audio"
)

// Transcriber converts a finalized utterance into text.
//
// An empty string with a nil error is a valid result and means no speech was
// recognized; callers must not treat it as a failure. A non-nil error marks a
// transient transcription problem the caller may retry after.
type Transcriber interface {
	Transcribe(ctx context.Context, u audio.Utterance) (string, error)
}

// TranscriptionError wraps a provider failure with the provider's name so
// loop-level error handling can report which backend failed.
type TranscriptionError struct {
	Provider string
	Err      error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("stt: %s: %v", e.Provider, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }
