package vad

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vocata-ai/vocata/pkg/audio"
	audiomock "github.com/vocata-ai/vocata/pkg/audio/mock"
)

const (
	testRate      = 16000
	testFrameSize = 1600 // 100 ms per frame
)

// frames builds count consecutive frames of constant amplitude starting at t.
func frames(t time.Time, amplitude float32, count int) []audio.Frame {
	out := make([]audio.Frame, count)
	for i := range out {
		samples := make([]float32, testFrameSize)
		for j := range samples {
			samples[j] = amplitude
		}
		out[i] = audio.Frame{
			Samples:    samples,
			SampleRate: testRate,
			Time:       t.Add(time.Duration(i) * 100 * time.Millisecond),
		}
	}
	return out
}

func testConfig() Config {
	return Config{
		SilenceThreshold:     0.01,
		SilenceDuration:      2 * time.Second,
		MinRecordingDuration: time.Second,
	}
}

func TestSegmenterSilenceOnlyNeverFinalizes(t *testing.T) {
	t.Parallel()

	var onsets int
	cfg := testConfig()
	cfg.OnSpeechOnset = func() { onsets++ }
	seg := NewSegmenter(cfg)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, f := range frames(start, 0.001, 100) { // 10 s of near-silence
		if _, done := seg.Feed(f); done {
			t.Fatal("silence-only input finalized an utterance")
		}
	}
	if onsets != 0 {
		t.Errorf("onset fired %d times on silence-only input", onsets)
	}

	// The hard-timeout path still yields the captured audio.
	u := seg.Flush()
	if len(u.Samples) != 100*testFrameSize {
		t.Errorf("flushed %d samples, want %d", len(u.Samples), 100*testFrameSize)
	}
}

func TestSegmenterSpeechThenSilence(t *testing.T) {
	t.Parallel()

	var onsets, silences int
	cfg := testConfig()
	cfg.OnSpeechOnset = func() { onsets++ }
	cfg.OnSilence = func() { silences++ }
	seg := NewSegmenter(cfg)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	speech := frames(start, 0.5, 15)                           // 1.5 s of speech
	silence := frames(start.Add(1500*time.Millisecond), 0, 25) // 2.5 s of silence

	var got audio.Utterance
	finalized := false
	for _, f := range append(speech, silence...) {
		if u, done := seg.Feed(f); done {
			got = u
			finalized = true
			break
		}
	}

	if !finalized {
		t.Fatal("utterance was not finalized")
	}
	if onsets != 1 {
		t.Errorf("onset fired %d times, want 1", onsets)
	}
	if silences != 1 {
		t.Errorf("silence fired %d times, want 1", silences)
	}
	// The boundary excludes the trailing silence: only the 15 speech frames
	// remain.
	if len(got.Samples) != 15*testFrameSize {
		t.Errorf("finalized utterance has %d samples, want %d", len(got.Samples), 15*testFrameSize)
	}
	if !got.Start.Equal(start) {
		t.Errorf("utterance start = %v, want %v", got.Start, start)
	}
}

func TestSegmenterHonorsMinRecordingDuration(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SilenceDuration = 200 * time.Millisecond
	cfg.MinRecordingDuration = 5 * time.Second
	seg := NewSegmenter(cfg)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	speech := frames(start, 0.5, 3)
	silence := frames(start.Add(300*time.Millisecond), 0, 10)

	for _, f := range append(speech, silence...) {
		if _, done := seg.Feed(f); done {
			t.Fatal("utterance finalized before min recording duration elapsed")
		}
	}
}

func TestSegmenterResetsAfterFinalize(t *testing.T) {
	t.Parallel()

	seg := NewSegmenter(testConfig())

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	feed := func(base time.Time) (audio.Utterance, bool) {
		var u audio.Utterance
		var done bool
		speech := frames(base, 0.5, 15)
		silence := frames(base.Add(1500*time.Millisecond), 0, 25)
		for _, f := range append(speech, silence...) {
			if got, ok := seg.Feed(f); ok {
				u, done = got, true
				break
			}
		}
		return u, done
	}

	first, ok := feed(start)
	if !ok {
		t.Fatal("first utterance not finalized")
	}
	second, ok := feed(start.Add(time.Minute))
	if !ok {
		t.Fatal("second utterance not finalized")
	}
	if !second.Start.Equal(start.Add(time.Minute)) {
		t.Errorf("second utterance start = %v, want %v", second.Start, start.Add(time.Minute))
	}
	if len(first.Samples) != len(second.Samples) {
		t.Errorf("utterance lengths differ: %d vs %d", len(first.Samples), len(second.Samples))
	}
}

func TestRecorderFinalizesOnSilence(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	src := audiomock.NewSource()
	for _, f := range frames(start, 0.5, 15) {
		src.Push(f)
	}
	for _, f := range frames(start.Add(1500*time.Millisecond), 0, 25) {
		src.Push(f)
	}

	rec := NewRecorder(testConfig())
	u, err := rec.Record(context.Background(), src, time.Minute)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(u.Samples) != 15*testFrameSize {
		t.Errorf("recorded %d samples, want %d", len(u.Samples), 15*testFrameSize)
	}
}

func TestRecorderTimeout(t *testing.T) {
	t.Parallel()

	src := audiomock.NewSource() // never produces frames

	rec := NewRecorder(testConfig())
	done := make(chan struct{})
	var u audio.Utterance
	var err error
	go func() {
		defer close(done)
		u, err = rec.Record(context.Background(), src, 50*time.Millisecond)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record did not observe the deadline")
	}
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !u.Empty() {
		t.Errorf("timeout with no frames returned %d samples", len(u.Samples))
	}
}

func TestRecorderCancellation(t *testing.T) {
	t.Parallel()

	src := audiomock.NewSource()
	rec := NewRecorder(testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := rec.Record(ctx, src, time.Hour)
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Record error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Record did not observe cancellation within the poll interval")
	}
}

func TestRecorderSourceClosed(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	src := audiomock.NewSource()
	for _, f := range frames(start, 0.5, 5) {
		src.Push(f)
	}
	src.Stop()

	rec := NewRecorder(testConfig())
	u, err := rec.Record(context.Background(), src, time.Minute)
	if !errors.Is(err, ErrSourceClosed) {
		t.Fatalf("Record error = %v, want ErrSourceClosed", err)
	}
	if len(u.Samples) != 5*testFrameSize {
		t.Errorf("flushed %d samples, want %d", len(u.Samples), 5*testFrameSize)
	}
}
