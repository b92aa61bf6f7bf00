package assistant

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/vocata-ai/vocata/internal/vad"
	"github.com/vocata-ai/vocata/pkg/audio"
	audiomock "github.com/vocata-ai/vocata/pkg/audio/mock"
	"github.com/vocata-ai/vocata/pkg/memory"
	"github.com/vocata-ai/vocata/pkg/provider/llm"
	llmmock "github.com/vocata-ai/vocata/pkg/provider/llm/mock"
	sttmock "github.com/vocata-ai/vocata/pkg/provider/stt/mock"
	ttsmock "github.com/vocata-ai/vocata/pkg/provider/tts/mock"
)

const (
	testRate      = 16000
	testFrameSize = 1600 // 100ms per frame
)

// utteranceFrames builds n speech frames followed by enough silence frames
// for the segmenter to finalize, starting at base.
func utteranceFrames(base time.Time, n int) []audio.Frame {
	var out []audio.Frame
	t := base
	step := 100 * time.Millisecond
	for i := 0; i < n; i++ {
		out = append(out, constFrame(t, 0.5))
		t = t.Add(step)
	}
	for i := 0; i < 4; i++ {
		out = append(out, constFrame(t, 0.0))
		t = t.Add(step)
	}
	return out
}

func constFrame(at time.Time, amplitude float32) audio.Frame {
	samples := make([]float32, testFrameSize)
	for i := range samples {
		samples[i] = amplitude
	}
	return audio.Frame{Samples: samples, SampleRate: testRate, Time: at}
}

// recorder captures event callbacks for assertions.
type recorder struct {
	mu     sync.Mutex
	wakes  int
	heard  []string
	said   []string
	errors []error
}

func (r *recorder) events() EventFuncs {
	return EventFuncs{
		OnWakeWordDetected: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.wakes++
		},
		OnSpeechRecognized: func(text string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.heard = append(r.heard, text)
		},
		OnResponseGenerated: func(text string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.said = append(r.said, text)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors = append(r.errors, err)
		},
	}
}

func (r *recorder) wakeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wakes
}

func (r *recorder) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

type fixture struct {
	assistant *Assistant
	source    *audiomock.Source
	notifier  *audiomock.Player
	stt       *sttmock.Transcriber
	llm       *llmmock.Responder
	speaker   *ttsmock.Speaker
	memory    *memory.Conversation
	events    *recorder
}

func defaultConfig() Config {
	return Config{
		Name:                    "Assistant",
		WakeWord:                "hey assistant",
		WakeMaxDuration:         2 * time.Second,
		ConversationMaxDuration: 2 * time.Second,
		VAD: vad.Config{
			SilenceThreshold:     0.01,
			SilenceDuration:      250 * time.Millisecond,
			MinRecordingDuration: 100 * time.Millisecond,
		},
	}
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	cfg := defaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	f := &fixture{
		source:   audiomock.NewSource(),
		notifier: &audiomock.Player{},
		stt:      &sttmock.Transcriber{},
		llm:      &llmmock.Responder{},
		speaker:  &ttsmock.Speaker{},
		memory:   memory.New(10),
		events:   &recorder{},
	}

	a, err := New(cfg, Params{
		Source:      f.source,
		Notifier:    f.notifier,
		Transcriber: f.stt,
		Responder:   f.llm,
		Speaker:     f.speaker,
		Memory:      f.memory,
		Events:      f.events.events(),
	}, WithErrorBackoff(10*time.Millisecond), WithTurnPause(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.assistant = a
	return f
}

// run starts the assistant loop and returns a channel that closes when it
// exits.
func (f *fixture) run(t *testing.T, ctx context.Context) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := f.assistant.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	return done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("assistant did not stop")
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	base := Params{
		Source:      audiomock.NewSource(),
		Transcriber: &sttmock.Transcriber{},
		Responder:   &llmmock.Responder{},
		Speaker:     &ttsmock.Speaker{},
		Memory:      memory.New(0),
	}

	if _, err := New(Config{WakeWord: "hey"}, base); err != nil {
		t.Errorf("valid params rejected: %v", err)
	}

	missing := base
	missing.Transcriber = nil
	if _, err := New(Config{WakeWord: "hey"}, missing); err == nil {
		t.Error("expected error for missing transcriber")
	}

	if _, err := New(Config{}, base); err == nil {
		t.Error("expected error for missing wake word")
	}
	if _, err := New(Config{Continuous: true}, base); err != nil {
		t.Errorf("continuous mode should not require a wake word: %v", err)
	}
}

func TestDetectWakeWord(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	tests := []struct {
		text string
		want bool
	}{
		{"Hey Assistant, what's the weather?", true},
		{"HEY ASSISTANT", true},
		{"hey assistant", true},
		{"well hey assistant there", true},
		{"assistant hey", false},
		{"hey", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := f.assistant.DetectWakeWord(tt.text); got != tt.want {
			t.Errorf("DetectWakeWord(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestProcessTextCommands(t *testing.T) {
	t.Parallel()

	t.Run("clear", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		f.memory.Append(memory.RoleUser, "earlier question")
		f.memory.Append(memory.RoleAssistant, "earlier answer")

		reply, err := f.assistant.ProcessText(context.Background(), "please forget everything now")
		if err != nil {
			t.Fatalf("ProcessText: %v", err)
		}
		if reply != clearResponse {
			t.Errorf("reply = %q, want %q", reply, clearResponse)
		}
		turns := f.memory.All()
		if len(turns) != 2 {
			t.Fatalf("memory holds %d turns after clear, want 2", len(turns))
		}
		if turns[0].Content == "earlier question" {
			t.Error("history survived the clear command")
		}
	})

	t.Run("exit", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)

		reply, err := f.assistant.ProcessText(context.Background(), "Goodbye")
		if err != nil {
			t.Fatalf("ProcessText: %v", err)
		}
		if reply != exitResponse {
			t.Errorf("reply = %q, want %q", reply, exitResponse)
		}
		if f.llm.CallCount() != 0 {
			t.Error("exit phrase reached the responder")
		}
	})

	t.Run("help", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)

		reply, err := f.assistant.ProcessText(context.Background(), "what can you do?")
		if err != nil {
			t.Fatalf("ProcessText: %v", err)
		}
		if reply != helpResponse {
			t.Errorf("reply = %q, want %q", reply, helpResponse)
		}
	})

	t.Run("exit beats clear", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)

		reply, err := f.assistant.ProcessText(context.Background(), "stop listening and start over")
		if err != nil {
			t.Fatalf("ProcessText: %v", err)
		}
		if reply != exitResponse {
			t.Errorf("reply = %q, want %q", reply, exitResponse)
		}
	})
}

func TestProcessTextResponder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.memory.Append(memory.RoleUser, "first question")
	f.memory.Append(memory.RoleAssistant, "first answer")
	f.llm.Replies = []string{"It is sunny today."}

	reply, err := f.assistant.ProcessText(context.Background(), "what's the weather?")
	if err != nil {
		t.Fatalf("ProcessText: %v", err)
	}
	if reply != "It is sunny today." {
		t.Errorf("reply = %q", reply)
	}

	if f.llm.CallCount() != 1 {
		t.Fatalf("responder called %d times, want 1", f.llm.CallCount())
	}
	call := f.llm.Calls[0]
	if call.Input != "what's the weather?" {
		t.Errorf("responder input = %q", call.Input)
	}
	// History carries prior turns but never the current input.
	if len(call.Context.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(call.Context.History))
	}
	if call.Context.History[1].Content != "first answer" {
		t.Errorf("history[1] = %q", call.Context.History[1].Content)
	}
	if call.Context.AssistantName != "Assistant" {
		t.Errorf("assistant name = %q", call.Context.AssistantName)
	}

	turns := f.memory.Recent(2)
	if turns[0].Role != memory.RoleUser || turns[0].Content != "what's the weather?" {
		t.Errorf("user turn not recorded: %+v", turns[0])
	}
	if turns[1].Role != memory.RoleAssistant || turns[1].Content != "It is sunny today." {
		t.Errorf("assistant turn not recorded: %+v", turns[1])
	}
}

func TestProcessTextResponderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limited", llm.ErrRateLimited, apologyRateLimited},
		{"timeout", llm.ErrTimeout, apologyTimeout},
		{"backend", &llm.BackendError{Provider: "openai", Err: errors.New("boom")}, apologyBackend},
		{"generic", errors.New("unexpected"), apologyGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, nil)
			f.llm.Err = tt.err

			reply, err := f.assistant.ProcessText(context.Background(), "tell me a story")
			if err != nil {
				t.Fatalf("ProcessText: %v", err)
			}
			if reply != tt.want {
				t.Errorf("reply = %q, want %q", reply, tt.want)
			}

			// The failed exchange is still remembered, apology included.
			turns := f.memory.Recent(2)
			if len(turns) != 2 {
				t.Fatalf("memory holds %d turns, want 2", len(turns))
			}
			if turns[1].Content != tt.want {
				t.Errorf("remembered apology = %q, want %q", turns[1].Content, tt.want)
			}
			if f.events.errorCount() != 1 {
				t.Errorf("error events = %d, want 1", f.events.errorCount())
			}
		})
	}
}

func TestRunWakeWordFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.stt.Texts = []string{"hey assistant", "goodbye"}
	f.llm.Replies = []string{"should not be used"}

	base := time.Now()
	var script []audio.Frame
	script = append(script, utteranceFrames(base, 3)...)
	script = append(script, utteranceFrames(base.Add(time.Second), 3)...)
	f.source.Script = script
	if err := f.source.Start(context.Background()); err != nil {
		t.Fatalf("source start: %v", err)
	}

	done := f.run(t, context.Background())
	waitDone(t, done)

	if f.notifier.ToneCount() != 1 {
		t.Errorf("notification tones = %d, want 1", f.notifier.ToneCount())
	}
	if f.events.wakeCount() != 1 {
		t.Errorf("wake events = %d, want 1", f.events.wakeCount())
	}

	phrases := f.speaker.Phrases()
	if !slices.Contains(phrases, ackResponse) {
		t.Errorf("acknowledged phrase missing from %q", phrases)
	}
	if !slices.Contains(phrases, exitResponse) {
		t.Errorf("farewell missing from %q", phrases)
	}
	if f.llm.CallCount() != 0 {
		t.Errorf("responder called %d times for a command-only session", f.llm.CallCount())
	}

	status := f.assistant.Status()
	if status.Running {
		t.Error("still reported running after exit")
	}
	if status.ConversationActive {
		t.Error("conversation still reported active after exit")
	}
}

func TestRunIgnoresNonWakeSpeech(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.stt.Texts = []string{"just people talking"}

	base := time.Now()
	f.source.Script = utteranceFrames(base, 3)
	if err := f.source.Start(context.Background()); err != nil {
		t.Fatalf("source start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := f.run(t, ctx)

	waitFor(t, "transcription", func() bool { return f.stt.CallCount() >= 1 })

	if f.notifier.ToneCount() != 0 {
		t.Errorf("tone played for non-wake speech")
	}
	if f.events.wakeCount() != 0 {
		t.Errorf("wake event fired for non-wake speech")
	}
	if len(f.speaker.Phrases()) != 0 {
		t.Errorf("spoke %q without being addressed", f.speaker.Phrases())
	}

	cancel()
	waitDone(t, done)
}

func TestRunStopDuringConversation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.stt.Texts = []string{"hey assistant"}
	f.memory.Append(memory.RoleUser, "kept across restarts")

	if err := f.source.Start(context.Background()); err != nil {
		t.Fatalf("source start: %v", err)
	}
	base := time.Now()
	for _, fr := range utteranceFrames(base, 3) {
		f.source.Push(fr)
	}

	done := f.run(t, context.Background())

	// The wake utterance finalizes, then the conversation recording blocks
	// with no further frames.
	waitFor(t, "active conversation", func() bool {
		return f.assistant.Status().ConversationActive
	})
	waitFor(t, "open recording window", func() bool {
		return f.assistant.Status().Listening
	})

	f.assistant.Stop()
	waitDone(t, done)

	status := f.assistant.Status()
	if status.Running {
		t.Error("running flag not reset by stop")
	}
	if status.Listening {
		t.Error("listening flag not reset by stop")
	}
	if status.ConversationActive {
		t.Error("conversation flag not reset by stop")
	}
	if f.memory.Len() != 1 {
		t.Errorf("memory length = %d after stop, want 1", f.memory.Len())
	}

	// A stopped assistant restarts cleanly in wake-word mode.
	done = f.run(t, context.Background())
	waitFor(t, "restart", func() bool { return f.assistant.Status().Running })
	if f.assistant.Status().ConversationActive {
		t.Error("fresh run began with an active conversation")
	}
	f.assistant.Stop()
	waitDone(t, done)

	if f.memory.Len() != 1 {
		t.Errorf("memory length = %d after restart, want 1", f.memory.Len())
	}
}

func TestRunContinuousMode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *Config) {
		cfg.Continuous = true
		cfg.WakeWord = ""
	})
	f.stt.Texts = []string{"what time is it"}
	f.llm.Replies = []string{"It is noon."}

	if err := f.source.Start(context.Background()); err != nil {
		t.Fatalf("source start: %v", err)
	}
	for _, fr := range utteranceFrames(time.Now(), 3) {
		f.source.Push(fr)
	}

	done := f.run(t, context.Background())

	waitFor(t, "reply", func() bool {
		return slices.Contains(f.speaker.Phrases(), "It is noon.")
	})

	// No wake gate: no tone, no acknowledgement.
	if f.notifier.ToneCount() != 0 {
		t.Errorf("tone played in continuous mode")
	}
	if slices.Contains(f.speaker.Phrases(), ackResponse) {
		t.Errorf("acknowledgement spoken in continuous mode")
	}

	f.assistant.Stop()
	waitDone(t, done)
}

func TestRunTransientErrorBacksOffAndRecovers(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.stt.ErrOnce = errors.New("decoder hiccup")
	f.stt.Texts = []string{"hey assistant"}

	if err := f.source.Start(context.Background()); err != nil {
		t.Fatalf("source start: %v", err)
	}
	base := time.Now()
	for _, fr := range utteranceFrames(base, 3) {
		f.source.Push(fr)
	}
	for _, fr := range utteranceFrames(base.Add(time.Second), 3) {
		f.source.Push(fr)
	}

	done := f.run(t, context.Background())

	waitFor(t, "recovery after transient error", func() bool {
		return f.notifier.ToneCount() >= 1
	})
	if f.events.errorCount() != 1 {
		t.Errorf("error events = %d, want 1", f.events.errorCount())
	}

	f.assistant.Stop()
	waitDone(t, done)
}

// wakeThenFailTranscriber recognizes the wake phrase once and fails every
// call after that.
type wakeThenFailTranscriber struct {
	mu    sync.Mutex
	calls int
}

func (s *wakeThenFailTranscriber) Transcribe(_ context.Context, _ audio.Utterance) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls == 1 {
		return "hey assistant", nil
	}
	return "", errors.New("decoder crashed")
}

func TestRunConversationErrorSpeaksApology(t *testing.T) {
	t.Parallel()

	src := audiomock.NewSource()
	speaker := &ttsmock.Speaker{}
	events := &recorder{}

	a, err := New(defaultConfig(), Params{
		Source:      src,
		Notifier:    &audiomock.Player{},
		Transcriber: &wakeThenFailTranscriber{},
		Responder:   &llmmock.Responder{},
		Speaker:     speaker,
		Memory:      memory.New(10),
		Events:      events.events(),
	}, WithErrorBackoff(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("source start: %v", err)
	}
	base := time.Now()
	for _, fr := range utteranceFrames(base, 3) {
		src.Push(fr)
	}
	for _, fr := range utteranceFrames(base.Add(time.Second), 3) {
		src.Push(fr)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := a.Run(context.Background()); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()

	// The failed conversation turn must be answered out loud, not dropped.
	waitFor(t, "spoken error apology", func() bool {
		return slices.Contains(speaker.Phrases(), errorResponse)
	})
	if events.errorCount() != 1 {
		t.Errorf("error events = %d, want 1", events.errorCount())
	}

	a.Stop()
	waitDone(t, done)
}

func TestRunStopsWhenSourceCloses(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	if err := f.source.Start(context.Background()); err != nil {
		t.Fatalf("source start: %v", err)
	}

	done := f.run(t, context.Background())

	waitFor(t, "running", func() bool { return f.assistant.Status().Running })
	if err := f.source.Stop(); err != nil {
		t.Fatalf("source stop: %v", err)
	}

	// A dead microphone is terminal; the loop must shut down rather than
	// spin on the closed channel.
	waitDone(t, done)
	if f.events.errorCount() == 0 {
		t.Error("no error event for the closed source")
	}
	if f.assistant.Status().Running {
		t.Error("still reported running after the source closed")
	}
}

func TestRunEmptyTranscriptionSkipsResponder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(cfg *Config) {
		cfg.Continuous = true
		cfg.WakeWord = ""
	})
	f.stt.Texts = []string{""}

	if err := f.source.Start(context.Background()); err != nil {
		t.Fatalf("source start: %v", err)
	}
	for _, fr := range utteranceFrames(time.Now(), 3) {
		f.source.Push(fr)
	}

	done := f.run(t, context.Background())

	waitFor(t, "empty prompt", func() bool {
		return slices.Contains(f.speaker.Phrases(), emptyResponse)
	})
	if f.llm.CallCount() != 0 {
		t.Errorf("responder called on empty transcription")
	}

	f.assistant.Stop()
	waitDone(t, done)
}
