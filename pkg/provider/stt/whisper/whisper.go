// Package whisper implements stt.Transcriber using the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/vocata-ai/vocata/pkg/audio"
	"github.com/vocata-ai/vocata/pkg/provider/stt"
)

const defaultLanguage = "en"

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber runs whisper.cpp inference on finalized utterances. The model
// is loaded once at construction and shared across all calls; each Transcribe
// call creates its own whisper context, so concurrent calls do not interfere.
type Transcriber struct {
	model    whisperlib.Model
	language string

	// Inference contexts are cheap relative to model load but not free;
	// serialize calls so a slow transcription cannot pile up contexts.
	mu sync.Mutex
}

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithLanguage sets the BCP-47 language code for transcription (e.g. "en",
// "de", "fr"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

// New creates a Transcriber that loads the whisper.cpp model from the given
// file path. The caller must call Close when the transcriber is no longer
// needed.
func New(modelPath string, opts ...Option) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &Transcriber{model: model, language: defaultLanguage}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model.
func (t *Transcriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Transcribe implements [stt.Transcriber]. It runs whisper.cpp inference on
// the utterance samples and returns the concatenated segment text. An
// utterance with no recognizable speech yields "" with a nil error.
func (t *Transcriber) Transcribe(ctx context.Context, u audio.Utterance) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &stt.TranscriptionError{Provider: "whisper", Err: err}
	}
	if u.Empty() {
		return "", nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", &stt.TranscriptionError{Provider: "whisper", Err: fmt.Errorf("create context: %w", err)}
	}

	if err := wctx.SetLanguage(t.language); err != nil {
		slog.Warn("whisper: failed to set language, using default",
			"language", t.language, "error", err)
	}

	if err := wctx.Process(u.Samples, nil, nil, nil); err != nil {
		return "", &stt.TranscriptionError{Provider: "whisper", Err: fmt.Errorf("process audio: %w", err)}
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", &stt.TranscriptionError{Provider: "whisper", Err: fmt.Errorf("read segment: %w", err)}
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}
