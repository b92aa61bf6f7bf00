package audio

import "time"

// Frame is a fixed-size block of audio samples pulled from an input device.
// Frames are the atomic unit of audio transport — produced by a [Capturer],
// consumed by the VAD segmenter, and assembled into utterances. A Frame is
// immutable once captured.
type Frame struct {
	// Samples holds normalised mono PCM in the range [-1.0, 1.0].
	Samples []float32

	// SampleRate in Hz (e.g., 16000 for STT input).
	SampleRate int

	// Time marks when this frame was captured.
	Time time.Time
}

// Duration returns the wall-clock length of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// Energy returns the mean squared amplitude of the frame's samples.
// This is the quantity the energy-based VAD compares against its silence
// threshold. An empty frame has zero energy.
func (f Frame) Energy() float64 {
	if len(f.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range f.Samples {
		sum += float64(s) * float64(s)
	}
	return sum / float64(len(f.Samples))
}

// Utterance is the ordered concatenation of captured frames from detected
// speech-start to detected speech-end. Utterances are handed to the STT
// provider once and discarded after the transcription attempt.
type Utterance struct {
	// Samples is the concatenated mono PCM of all accumulated frames.
	Samples []float32

	// SampleRate in Hz, inherited from the source frames.
	SampleRate int

	// Start marks when the first frame of this utterance was captured.
	Start time.Time
}

// Duration returns the total length of the utterance.
func (u Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(u.Samples)) * time.Second / time.Duration(u.SampleRate)
}

// Energy returns the mean squared amplitude over the whole utterance.
func (u Utterance) Energy() float64 {
	if len(u.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range u.Samples {
		sum += float64(s) * float64(s)
	}
	return sum / float64(len(u.Samples))
}

// Empty reports whether the utterance contains no audio at all.
func (u Utterance) Empty() bool { return len(u.Samples) == 0 }

// Append accumulates a frame's samples. The first appended frame fixes the
// utterance's sample rate and start time.
func (u *Utterance) Append(f Frame) {
	if len(u.Samples) == 0 {
		u.SampleRate = f.SampleRate
		u.Start = f.Time
	}
	u.Samples = append(u.Samples, f.Samples...)
}
