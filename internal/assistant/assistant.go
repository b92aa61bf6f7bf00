// Package assistant implements the voice interaction loop: wake-word
// gating, conversation turns, command handling, and dispatch to the
// transcription, response, and speech collaborators.
//
// The loop owns all interaction state. External callers may only request
// transitions via [Assistant.Stop]; state fields are mutated exclusively by
// the loop goroutine (or, before Run starts, by the constructor).
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vocata-ai/vocata/internal/observe"
	"github.com/vocata-ai/vocata/internal/vad"
	"github.com/vocata-ai/vocata/pkg/audio"
	"github.com/vocata-ai/vocata/pkg/memory"
	"github.com/vocata-ai/vocata/pkg/provider/llm"
	"github.com/vocata-ai/vocata/pkg/provider/stt"
	"github.com/vocata-ai/vocata/pkg/provider/tts"
)

const (
	// errorBackoff is the pause after a transient capture or transcription
	// failure before the loop retries.
	defaultErrorBackoff = time.Second

	// turnPause separates turns in continuous mode.
	defaultTurnPause = 500 * time.Millisecond
)

// Config holds the assistant's interaction settings.
type Config struct {
	// Name is the persona name used in replies.
	Name string

	// WakeWord activates a conversation turn when contained,
	// case-insensitively, in a finalized transcription.
	WakeWord string

	// Continuous skips wake-word gating entirely; every finalized utterance
	// is treated as user input.
	Continuous bool

	// WakeMaxDuration caps a single wake-word listening window.
	WakeMaxDuration time.Duration

	// ConversationMaxDuration caps a single conversation recording.
	ConversationMaxDuration time.Duration

	// VAD holds the segmentation tunables.
	VAD vad.Config
}

// Params collects the collaborators an Assistant is built from. Source,
// Transcriber, Responder, Speaker, and Memory are required; Notifier,
// Events, and Metrics are optional.
type Params struct {
	Source      audio.Source
	Notifier    audio.Notifier
	Transcriber stt.Transcriber
	Responder   llm.Responder
	Speaker     tts.Speaker
	Memory      *memory.Conversation
	Events      Events
	Metrics     *observe.Metrics
}

// Option configures an [Assistant] during construction.
type Option func(*Assistant)

// WithErrorBackoff overrides the pause after a transient failure.
// Intended for tests.
func WithErrorBackoff(d time.Duration) Option {
	return func(a *Assistant) { a.errorBackoff = d }
}

// WithTurnPause overrides the pause between continuous-mode turns.
// Intended for tests.
func WithTurnPause(d time.Duration) Option {
	return func(a *Assistant) { a.turnPause = d }
}

// Assistant is the interaction state machine. Create one with [New], drive
// it with [Assistant.Run], and halt it with [Assistant.Stop].
type Assistant struct {
	cfg      Config
	source   audio.Source
	notifier audio.Notifier
	stt      stt.Transcriber
	llm      llm.Responder
	speaker  tts.Speaker
	memory   *memory.Conversation
	recorder *vad.Recorder
	events   Events
	metrics  *observe.Metrics

	errorBackoff time.Duration
	turnPause    time.Duration

	mu                 sync.Mutex
	running            bool
	listening          bool
	conversationActive bool
	cancel             context.CancelFunc
}

// New creates an Assistant from cfg and its collaborators.
func New(cfg Config, p Params, opts ...Option) (*Assistant, error) {
	switch {
	case p.Source == nil:
		return nil, errors.New("assistant: Source is required")
	case p.Transcriber == nil:
		return nil, errors.New("assistant: Transcriber is required")
	case p.Responder == nil:
		return nil, errors.New("assistant: Responder is required")
	case p.Speaker == nil:
		return nil, errors.New("assistant: Speaker is required")
	case p.Memory == nil:
		return nil, errors.New("assistant: Memory is required")
	}
	if !cfg.Continuous && cfg.WakeWord == "" {
		return nil, errors.New("assistant: WakeWord is required unless Continuous is set")
	}

	events := p.Events
	if events == nil {
		events = EventFuncs{}
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	a := &Assistant{
		cfg:          cfg,
		source:       p.Source,
		notifier:     p.Notifier,
		stt:          p.Transcriber,
		llm:          p.Responder,
		speaker:      p.Speaker,
		memory:       p.Memory,
		recorder:     vad.NewRecorder(cfg.VAD),
		events:       events,
		metrics:      metrics,
		errorBackoff: defaultErrorBackoff,
		turnPause:    defaultTurnPause,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// DetectWakeWord reports whether text contains the configured wake word.
// Matching is case-insensitive and purely substring-based.
func (a *Assistant) DetectWakeWord(text string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(a.cfg.WakeWord))
}

// Status is a point-in-time snapshot of the assistant's state. Listening
// is true while a recording window is open on the audio source.
type Status struct {
	Running            bool         `json:"running"`
	Listening          bool         `json:"listening"`
	ConversationActive bool         `json:"conversation_active"`
	WakeWordMode       bool         `json:"wake_word_mode"`
	AssistantName      string       `json:"assistant_name"`
	WakeWord           string       `json:"wake_word,omitempty"`
	Memory             memory.Stats `json:"memory"`
}

// Status reports the current state. Safe to call from any goroutine.
func (a *Assistant) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := Status{
		Running:            a.running,
		Listening:          a.listening,
		ConversationActive: a.conversationActive,
		WakeWordMode:       !a.cfg.Continuous,
		AssistantName:      a.cfg.Name,
		Memory:             a.memory.Stats(),
	}
	if !a.cfg.Continuous {
		s.WakeWord = a.cfg.WakeWord
	}
	return s
}

// Run executes the interaction loop until ctx is cancelled or [Assistant.Stop]
// is called. Calling Run on an already-running assistant returns an error.
// After the loop exits the assistant may be started again with a fresh Run;
// memory is left untouched.
func (a *Assistant) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("assistant: already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	a.running = true
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		cancel()
		a.mu.Lock()
		a.running = false
		a.listening = false
		a.conversationActive = false
		a.cancel = nil
		a.mu.Unlock()
	}()

	log := observe.Logger(ctx)
	log.Info("assistant started",
		"name", a.cfg.Name,
		"wake_word_mode", !a.cfg.Continuous,
	)

	for ctx.Err() == nil {
		if a.cfg.Continuous {
			a.conversationTurn(ctx)
			a.wait(ctx, a.turnPause)
			continue
		}
		a.wakeListen(ctx)
	}

	log.Info("assistant stopped")
	return nil
}

// Stop requests loop termination. Safe to call concurrently and idempotent;
// the loop observes it within one poll interval, aborting any in-progress
// recording.
func (a *Assistant) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// wakeListen runs one wake-word listening window: record, transcribe, check
// for the wake word, and on a match run a full conversation turn.
func (a *Assistant) wakeListen(ctx context.Context) {
	log := observe.Logger(ctx)

	text, ok := a.listen(ctx, a.cfg.WakeMaxDuration)
	if !ok || text == "" {
		return
	}

	if !a.DetectWakeWord(text) {
		log.Debug("speech heard but ignored", "text", text)
		return
	}

	a.metrics.WakeDetections.Add(ctx, 1)
	log.Info("wake word detected", "text", text)

	if a.notifier != nil {
		if err := a.notifier.PlayNotificationTone(ctx); err != nil {
			log.Warn("notification tone failed", "error", err)
		}
	}
	a.speak(ctx, ackResponse)
	a.events.WakeWordDetected()

	a.conversationTurn(ctx)
}

// listen records one utterance and transcribes it. A false result means a
// transient failure was absorbed (already reported and backed off) or the
// context was cancelled.
func (a *Assistant) listen(ctx context.Context, maxDuration time.Duration) (string, bool) {
	a.setListening(true)
	u, err := a.recorder.Record(ctx, a.source, maxDuration)
	a.setListening(false)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, vad.ErrSourceClosed) {
			a.reportError(ctx, "audio", err)
			a.Stop()
		}
		return "", false
	}
	if u.Empty() || u.Energy() <= a.cfg.VAD.SilenceThreshold {
		return "", true
	}

	start := time.Now()
	text, err := a.stt.Transcribe(ctx, u)
	a.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		a.reportError(ctx, "stt", err)
		a.wait(ctx, a.errorBackoff)
		return "", false
	}
	return strings.TrimSpace(text), true
}

// conversationTurn runs a single conversation turn: record, transcribe,
// dispatch, reply. The conversation flag is always reset when the turn
// ends, success or failure.
func (a *Assistant) conversationTurn(ctx context.Context) {
	a.mu.Lock()
	a.conversationActive = true
	a.mu.Unlock()
	a.metrics.ActiveConversations.Add(ctx, 1)

	defer func() {
		a.mu.Lock()
		a.conversationActive = false
		a.mu.Unlock()
		a.metrics.ActiveConversations.Add(ctx, -1)
	}()

	text, ok := a.listen(ctx, a.cfg.ConversationMaxDuration)
	if !ok {
		// The user was mid-conversation; answer the failure out loud
		// instead of going quiet.
		if ctx.Err() == nil {
			a.speak(ctx, errorResponse)
			a.metrics.RecordTurn(ctx, "error")
		}
		return
	}
	if text == "" {
		a.speak(ctx, emptyResponse)
		a.metrics.RecordTurn(ctx, "empty")
		return
	}

	a.events.SpeechRecognized(text)

	reply, exit, outcome := a.dispatch(ctx, text)
	a.speak(ctx, reply)
	a.events.ResponseGenerated(reply)
	a.metrics.RecordTurn(ctx, outcome)

	if exit {
		a.Stop()
	}
}

// dispatch routes user input to a built-in command or the responder and
// returns the reply, whether the assistant should stop afterwards, and the
// turn outcome label for metrics.
func (a *Assistant) dispatch(ctx context.Context, input string) (reply string, exit bool, outcome string) {
	switch matchCommand(input) {
	case cmdExit:
		a.memory.Append(memory.RoleUser, input)
		a.memory.Append(memory.RoleAssistant, exitResponse)
		return exitResponse, true, "command"
	case cmdClear:
		a.memory.Clear()
		a.memory.Append(memory.RoleUser, input)
		a.memory.Append(memory.RoleAssistant, clearResponse)
		return clearResponse, false, "command"
	case cmdStatus:
		a.memory.Append(memory.RoleUser, input)
		a.memory.Append(memory.RoleAssistant, statusResponse)
		return statusResponse, false, "command"
	case cmdHelp:
		a.memory.Append(memory.RoleUser, input)
		a.memory.Append(memory.RoleAssistant, helpResponse)
		return helpResponse, false, "command"
	}

	a.mu.Lock()
	active := a.conversationActive
	a.mu.Unlock()

	convCtx := llm.Context{
		Time:               time.Now(),
		AssistantName:      a.cfg.Name,
		ConversationActive: active,
		History:            a.memory.Recent(0),
	}

	start := time.Now()
	reply, err := a.llm.Respond(ctx, input, convCtx)
	a.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())

	a.memory.Append(memory.RoleUser, input)
	if err != nil {
		a.reportError(ctx, "llm", err)
		reply = apologyFor(err)
		a.memory.Append(memory.RoleAssistant, reply)
		return reply, false, "apology"
	}

	a.memory.Append(memory.RoleAssistant, reply)
	return reply, false, "reply"
}

// ProcessText handles typed input through the same command/responder path
// as a spoken turn, without audio capture or playback. The reply is
// returned rather than spoken; the stop request from an exit phrase still
// applies.
func (a *Assistant) ProcessText(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("assistant: empty input")
	}

	a.events.SpeechRecognized(input)
	reply, exit, _ := a.dispatch(ctx, input)
	a.events.ResponseGenerated(reply)
	if exit {
		a.Stop()
	}
	return reply, nil
}

// speak plays a reply, absorbing playback failures as transient errors.
func (a *Assistant) speak(ctx context.Context, text string) {
	start := time.Now()
	err := a.speaker.Speak(ctx, text)
	a.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil && ctx.Err() == nil {
		a.reportError(ctx, "tts", err)
	}
}

// reportError logs the failure, counts it, and notifies the embedder.
func (a *Assistant) reportError(ctx context.Context, kind string, err error) {
	observe.Logger(ctx).Error("provider error", "kind", kind, "error", err)
	a.metrics.RecordProviderError(ctx, kind, kind)
	a.events.Error(fmt.Errorf("%s: %w", kind, err))
}

// apologyFor maps a responder error to its fixed spoken apology.
func apologyFor(err error) string {
	var backendErr *llm.BackendError
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		return apologyRateLimited
	case errors.Is(err, llm.ErrTimeout):
		return apologyTimeout
	case errors.As(err, &backendErr):
		return apologyBackend
	default:
		return apologyGeneric
	}
}

func (a *Assistant) setListening(v bool) {
	a.mu.Lock()
	a.listening = v
	a.mu.Unlock()
}

// wait sleeps for d or until ctx is cancelled, whichever comes first.
func (a *Assistant) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
