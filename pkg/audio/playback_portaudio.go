package audio

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// playChunk is the output buffer size per write. Small enough that Stop and
// ctx cancellation are observed with low latency.
const playChunk = 1024

// playStream opens the default output stream and writes samples chunk by
// chunk until finished, aborted, or cancelled.
func playStream(ctx context.Context, abort <-chan struct{}, samples []float32, sampleRate int) error {
	buf := make([]float32, playChunk)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), playChunk, buf)
	if err != nil {
		return fmt.Errorf("audio: open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("audio: start output stream: %w", err)
	}
	defer stream.Stop()

	for off := 0; off < len(samples); off += playChunk {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-abort:
			return nil
		default:
		}

		n := copy(buf, samples[off:])
		for i := n; i < playChunk; i++ {
			buf[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("audio: write output stream: %w", err)
		}
	}
	return nil
}
