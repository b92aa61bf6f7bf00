// Package audio provides microphone capture, speaker playback, and the frame
// and utterance types flowing through the voice pipeline.
//
// Capture and playback are backed by PortAudio. A [Capturer] owns a background
// stream that pushes fixed-size [Frame] values into a buffered channel; the
// consumer side (the VAD segmenter) polls that channel, so capture and
// consumption are a decoupled producer/consumer pair. A [Player] performs
// blocking playback and doubles as the notification-tone [Notifier].
//
// Playback and capture are mutually exclusive for a single device pair:
// callers must not run Player.Play while a Capturer stream is open on the
// same device. Stopping playback when nothing is playing is a safe no-op.
package audio

import "context"

// Source is the consumer-side view of an audio producer. The portaudio
// [Capturer] is the production implementation; tests use the mock package.
type Source interface {
	// Start opens the input stream and begins producing frames. Calling
	// Start on a running source is a no-op.
	Start(ctx context.Context) error

	// Frames returns the channel on which captured frames are delivered.
	// The channel is closed when the source stops.
	Frames() <-chan Frame

	// Stop closes the input stream and the frame channel. Idempotent.
	Stop() error
}

// Player performs audio output.
type Player interface {
	// Play writes the given mono samples to the output device and blocks
	// until playback completes or ctx is cancelled.
	Play(ctx context.Context, samples []float32, sampleRate int) error

	// Stop aborts any in-progress playback. Calling Stop when nothing is
	// playing is a safe no-op.
	Stop()
}

// Notifier plays a short fire-and-forget acknowledgment sound, used when the
// wake word is detected.
type Notifier interface {
	PlayNotificationTone(ctx context.Context) error
}
