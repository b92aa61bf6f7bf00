// Package vad implements energy-based voice activity detection and
// utterance segmentation.
//
// A [Segmenter] consumes capture frames one at a time and finalizes an
// utterance once sustained silence follows detected speech. A [Recorder]
// drives a segmenter against a live frame source with a wall-clock duration
// cap and cooperative cancellation.
package vad

import (
	"time"

	"github.com/vocata-ai/vocata/pkg/audio"
)

// Config holds the segmentation tunables.
type Config struct {
	// SilenceThreshold is the mean-squared-amplitude energy below which a
	// frame counts as silence.
	SilenceThreshold float64

	// SilenceDuration is how long continuous silence must last after speech
	// before the utterance is finalized.
	SilenceDuration time.Duration

	// MinRecordingDuration is the minimum elapsed recording time before a
	// silence-triggered end may fire.
	MinRecordingDuration time.Duration

	// OnSpeechOnset, if non-nil, is invoked once when speech is first
	// detected in the current utterance.
	OnSpeechOnset func()

	// OnSilence, if non-nil, is invoked when a silence-triggered end
	// finalizes the utterance.
	OnSilence func()
}

// Segmenter accumulates frames into an utterance and detects its end.
// Time is taken from the frames themselves, so segmentation is deterministic
// for a given frame sequence. Not safe for concurrent use; a segmenter
// belongs to a single recording loop.
type Segmenter struct {
	cfg Config

	u              audio.Utterance
	speechDetected bool
	start          time.Time
	lastSpeech     time.Time
	speechSamples  int // samples up to and including the last speech frame
}

// NewSegmenter creates a Segmenter with the given tunables.
func NewSegmenter(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg}
}

// SpeechDetected reports whether speech has been observed in the current
// utterance.
func (s *Segmenter) SpeechDetected() bool { return s.speechDetected }

// Feed consumes one frame. When sustained silence after speech ends the
// utterance, Feed returns it with done=true and resets for the next one.
// The returned utterance is truncated at the last frame that contained
// speech, so the trailing silence tail is excluded.
func (s *Segmenter) Feed(f audio.Frame) (u audio.Utterance, done bool) {
	if s.u.Empty() {
		s.start = f.Time
	}
	s.u.Append(f)

	if f.Energy() > s.cfg.SilenceThreshold {
		if !s.speechDetected {
			s.speechDetected = true
			if s.cfg.OnSpeechOnset != nil {
				s.cfg.OnSpeechOnset()
			}
		}
		s.lastSpeech = f.Time
		s.speechSamples = len(s.u.Samples)
		return audio.Utterance{}, false
	}

	if !s.speechDetected {
		return audio.Utterance{}, false
	}

	frameEnd := f.Time.Add(f.Duration())
	if frameEnd.Sub(s.lastSpeech) > s.cfg.SilenceDuration &&
		frameEnd.Sub(s.start) > s.cfg.MinRecordingDuration {
		if s.cfg.OnSilence != nil {
			s.cfg.OnSilence()
		}
		out := s.u
		out.Samples = out.Samples[:s.speechSamples]
		s.reset()
		return out, true
	}
	return audio.Utterance{}, false
}

// Flush returns whatever has been accumulated, including any trailing
// silence, and resets the segmenter. Used on hard timeout, where the caller
// decides whether the content counts as speech.
func (s *Segmenter) Flush() audio.Utterance {
	out := s.u
	s.reset()
	return out
}

func (s *Segmenter) reset() {
	s.u = audio.Utterance{}
	s.speechDetected = false
	s.start = time.Time{}
	s.lastSpeech = time.Time{}
	s.speechSamples = 0
}
