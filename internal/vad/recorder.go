package vad

import (
	"context"
	"errors"
	"time"

	"github.com/vocata-ai/vocata/pkg/audio"
)

// ErrSourceClosed is returned by [Recorder.Record] when the frame channel
// closes mid-recording. The source will not produce again; callers should
// treat it as terminal rather than retry.
var ErrSourceClosed = errors.New("vad: audio source closed")

// pollInterval is how often the recording loop re-checks its deadline and
// cancellation. The recorded duration may exceed the cap by at most this
// much.
const pollInterval = 100 * time.Millisecond

// Recorder drives a [Segmenter] against a live frame source. Safe for reuse
// across sequential Record calls; not for concurrent ones.
type Recorder struct {
	cfg Config

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewRecorder creates a Recorder with the given segmentation tunables.
func NewRecorder(cfg Config) *Recorder {
	return &Recorder{cfg: cfg, now: time.Now}
}

// Record consumes frames from source until the segmenter finalizes an
// utterance, maxDuration elapses, or ctx is cancelled. On timeout the
// utterance holds whatever was captured, which may contain no speech at
// all; the caller decides whether that counts. On cancellation the partial
// utterance is returned together with ctx.Err(); if the source's channel
// closes, with [ErrSourceClosed].
//
// Cancellation is observed within one poll interval even when no frames are
// arriving.
func (r *Recorder) Record(ctx context.Context, source audio.Source, maxDuration time.Duration) (audio.Utterance, error) {
	seg := NewSegmenter(r.cfg)
	deadline := r.now().Add(maxDuration)

	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return seg.Flush(), ctx.Err()

		case f, ok := <-source.Frames():
			if !ok {
				return seg.Flush(), ErrSourceClosed
			}
			if u, done := seg.Feed(f); done {
				return u, nil
			}
			if !r.now().Before(deadline) {
				return seg.Flush(), nil
			}

		case <-tick.C:
			if !r.now().Before(deadline) {
				return seg.Flush(), nil
			}
		}
	}
}
