package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Compile-time assertion that Capturer satisfies Source.
var _ Source = (*Capturer)(nil)

// Capturer pulls fixed-size frames from the default PortAudio input device
// into a buffered channel. It has no VAD semantics; it is just a producer.
//
// All exported methods are safe for concurrent use. Start and Stop are
// idempotent; once stopped, a Capturer cannot be started again.
type Capturer struct {
	sampleRate   int
	framesPerBuf int

	frames chan Frame

	mu      sync.Mutex
	stream  *portaudio.Stream
	cancel  context.CancelFunc
	running bool
	stopped bool
	done    chan struct{}
}

// CapturerConfig holds the audio format for a [Capturer].
type CapturerConfig struct {
	// SampleRate in Hz. Defaults to 16000 when zero.
	SampleRate int

	// FrameSize is the number of samples per frame. Defaults to 1024.
	FrameSize int

	// QueueDepth is the frame channel buffer capacity. Defaults to 32.
	QueueDepth int
}

// NewCapturer initialises PortAudio and returns a Capturer ready to start.
// The caller must call Terminate when the capturer is no longer needed.
func NewCapturer(cfg CapturerConfig) (*Capturer, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = 1024
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 32
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: initialise portaudio: %w", err)
	}
	return &Capturer{
		sampleRate:   cfg.SampleRate,
		framesPerBuf: cfg.FrameSize,
		frames:       make(chan Frame, cfg.QueueDepth),
	}, nil
}

// Start opens the default input stream and launches the capture goroutine.
// Calling Start on a running capturer is a no-op.
func (c *Capturer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	if c.stopped {
		return fmt.Errorf("audio: capturer already stopped")
	}

	buf := make([]float32, c.framesPerBuf)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.sampleRate), c.framesPerBuf, buf)
	if err != nil {
		return fmt.Errorf("audio: open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("audio: start input stream: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.stream = stream
	c.cancel = cancel
	c.running = true
	c.done = make(chan struct{})

	go c.captureLoop(runCtx, stream, buf)

	slog.Info("audio capture started", "sample_rate", c.sampleRate, "frame_size", c.framesPerBuf)
	return nil
}

// captureLoop reads the stream into buf and forwards copies on the frame
// channel until the context is cancelled or the stream errors.
func (c *Capturer) captureLoop(ctx context.Context, stream *portaudio.Stream, buf []float32) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			slog.Debug("audio read error", "err", err)
			return
		}

		frame := Frame{
			Samples:    append([]float32(nil), buf...),
			SampleRate: c.sampleRate,
			Time:       time.Now(),
		}

		select {
		case c.frames <- frame:
		default:
			// Consumer is behind; dropping is preferable to blocking the
			// device callback path.
			slog.Debug("frame queue full, dropping frame")
		}
	}
}

// Frames implements [Source].
func (c *Capturer) Frames() <-chan Frame { return c.frames }

// Stop halts capture, closes the input stream, and closes the frame
// channel so consumers observe the end of the stream. Idempotent; the
// capturer cannot be restarted afterwards.
func (c *Capturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}
	c.stopped = true

	if !c.running {
		close(c.frames)
		return nil
	}
	c.running = false
	c.cancel()
	<-c.done
	close(c.frames)

	var err error
	if e := c.stream.Stop(); e != nil {
		err = fmt.Errorf("audio: stop input stream: %w", e)
	}
	if e := c.stream.Close(); e != nil && err == nil {
		err = fmt.Errorf("audio: close input stream: %w", e)
	}
	c.stream = nil
	return err
}

// Terminate releases the PortAudio runtime. Call once at shutdown, after Stop.
func (c *Capturer) Terminate() error {
	return portaudio.Terminate()
}
