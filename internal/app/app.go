// Package app wires all Vocata subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the interaction loop alongside the diagnostics
// HTTP server, and Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithSource, WithSpeaker, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/vocata-ai/vocata/internal/assistant"
	"github.com/vocata-ai/vocata/internal/config"
	"github.com/vocata-ai/vocata/internal/health"
	"github.com/vocata-ai/vocata/internal/vad"
	"github.com/vocata-ai/vocata/pkg/audio"
	"github.com/vocata-ai/vocata/pkg/memory"
	"github.com/vocata-ai/vocata/pkg/memory/postgres"
	"github.com/vocata-ai/vocata/pkg/provider/llm"
	"github.com/vocata-ai/vocata/pkg/provider/stt"
	"github.com/vocata-ai/vocata/pkg/provider/tts"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	STT stt.Transcriber
	LLM llm.Responder
	TTS tts.Synthesizer
}

// PlayerNotifier combines playback with the wake acknowledgement tone. The
// default PortAudio player satisfies it; tests inject a mock.
type PlayerNotifier interface {
	audio.Player
	audio.Notifier
}

// App owns all subsystem lifetimes and runs the Vocata voice assistant.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	source       audio.Source
	player       PlayerNotifier
	speaker      tts.Speaker
	conversation *memory.Conversation
	archive      *postgres.Archive
	assistant    *assistant.Assistant
	events       assistant.Events

	// fs backs the conversation export file. Defaults to the OS filesystem.
	fs afero.Fs

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSource injects an audio source instead of opening a PortAudio capture
// stream.
func WithSource(s audio.Source) Option {
	return func(a *App) { a.source = s }
}

// WithPlayer injects a playback device instead of the PortAudio player.
func WithPlayer(p PlayerNotifier) Option {
	return func(a *App) { a.player = p }
}

// WithSpeaker injects a speaker instead of building one from the TTS
// provider and the player.
func WithSpeaker(s tts.Speaker) Option {
	return func(a *App) { a.speaker = s }
}

// WithEvents installs interaction event callbacks on the assistant.
func WithEvents(ev assistant.Events) Option {
	return func(a *App) { a.events = ev }
}

// WithFs replaces the filesystem used for the conversation export file.
func WithFs(fs afero.Fs) Option {
	return func(a *App) { a.fs = fs }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
//
// New performs all initialisation synchronously: audio device setup,
// conversation restore from the archive, and assistant assembly.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		fs:        afero.NewOsFs(),
	}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Audio devices ─────────────────────────────────────────────────
	if err := a.initAudio(); err != nil {
		return nil, fmt.Errorf("app: init audio: %w", err)
	}

	// ── 2. Conversation memory + archive ─────────────────────────────────
	if err := a.initMemory(ctx); err != nil {
		return nil, fmt.Errorf("app: init memory: %w", err)
	}

	// ── 3. Speaker ───────────────────────────────────────────────────────
	a.initSpeaker()

	// ── 4. Assistant ─────────────────────────────────────────────────────
	if err := a.initAssistant(); err != nil {
		return nil, fmt.Errorf("app: init assistant: %w", err)
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initAudio opens the capture and playback devices unless injected.
func (a *App) initAudio() error {
	if a.source == nil {
		capturer, err := audio.NewCapturer(audio.CapturerConfig{
			SampleRate: a.cfg.Audio.SampleRate,
			FrameSize:  a.cfg.Audio.FrameSize,
		})
		if err != nil {
			return err
		}
		a.source = capturer
		a.closers = append(a.closers, capturer.Stop, capturer.Terminate)
	}

	if a.player == nil {
		a.player = audio.NewPlayer()
	}
	return nil
}

// initMemory creates the bounded conversation and, when a DSN is
// configured, connects the PostgreSQL archive and restores the previous
// session snapshot.
func (a *App) initMemory(ctx context.Context) error {
	a.conversation = memory.New(a.cfg.Assistant.MaxMessages)

	dsn := a.cfg.Memory.PostgresDSN
	if dsn == "" {
		return nil
	}

	archive, err := postgres.NewArchive(ctx, dsn)
	if err != nil {
		return err
	}
	a.archive = archive
	a.closers = append(a.closers, func() error {
		archive.Close()
		return nil
	})

	snap, err := archive.Load(ctx, a.sessionID())
	switch {
	case errors.Is(err, postgres.ErrNotFound):
		slog.Info("no archived session, starting fresh", "session", a.sessionID())
	case err != nil:
		return err
	default:
		a.conversation.Restore(snap)
		slog.Info("restored archived session",
			"session", a.sessionID(),
			"messages", a.conversation.Len(),
		)
	}
	return nil
}

// initSpeaker builds the speaker from the TTS provider, falling back to a
// silent speaker when no synthesizer is configured.
func (a *App) initSpeaker() {
	if a.speaker != nil {
		return
	}
	if a.providers.TTS == nil {
		slog.Warn("no tts provider configured, replies will not be spoken")
		a.speaker = silentSpeaker{}
		return
	}
	a.speaker = tts.NewPlayerSpeaker(a.providers.TTS, a.player)
}

// initAssistant assembles the interaction loop from config and providers.
func (a *App) initAssistant() error {
	asst, err := assistant.New(assistant.Config{
		Name:                    a.cfg.Assistant.Name,
		WakeWord:                a.cfg.Assistant.WakeWord,
		Continuous:              a.cfg.Assistant.Continuous,
		WakeMaxDuration:         a.cfg.VAD.WakeMaxDuration.Std(),
		ConversationMaxDuration: a.cfg.VAD.ConversationMaxDuration.Std(),
		VAD: vad.Config{
			SilenceThreshold:     a.cfg.VAD.SilenceThreshold,
			SilenceDuration:      a.cfg.VAD.SilenceDuration.Std(),
			MinRecordingDuration: a.cfg.VAD.MinRecordingDuration.Std(),
		},
	}, assistant.Params{
		Source:      a.source,
		Notifier:    a.player,
		Transcriber: a.providers.STT,
		Responder:   a.providers.LLM,
		Speaker:     a.speaker,
		Memory:      a.conversation,
		Events:      a.events,
	})
	if err != nil {
		return err
	}
	a.assistant = asst
	return nil
}

// sessionID returns the configured archive key, defaulting to "default".
func (a *App) sessionID() string {
	if a.cfg.Memory.SessionID != "" {
		return a.cfg.Memory.SessionID
	}
	return "default"
}

// Assistant exposes the interaction loop, mainly for text-mode frontends.
func (a *App) Assistant() *assistant.Assistant { return a.assistant }

// Conversation exposes the bounded conversation memory.
func (a *App) Conversation() *memory.Conversation { return a.conversation }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts audio capture, the assistant loop, and the diagnostics HTTP
// server, then blocks until ctx is cancelled or the assistant stops. The
// HTTP server serves /metrics, /healthz, /readyz, and /statusz.
func (a *App) Run(ctx context.Context) error {
	if err := a.source.Start(ctx); err != nil {
		return fmt.Errorf("app: start audio capture: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.assistant.Run(ctx)
	})

	if addr := a.cfg.Server.ListenAddr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: a.diagnosticsMux()}

		g.Go(func() error {
			slog.Info("diagnostics server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: diagnostics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// diagnosticsMux builds the HTTP mux for the diagnostics endpoint.
func (a *App) diagnosticsMux() *http.ServeMux {
	var checkers []health.Checker
	if a.archive != nil {
		checkers = append(checkers, health.Checker{
			Name: "archive",
			Check: func(ctx context.Context) error {
				_, err := a.archive.Sessions(ctx)
				return err
			},
		})
	}

	h := health.New(checkers...)
	h.SetStatus(func() any { return a.assistant.Status() })

	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops the assistant, persists the conversation, and tears down
// all subsystems in reverse-init order. It respects the context deadline:
// if ctx expires before all closers finish, remaining closers are skipped
// and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.assistant.Stop()

		if err := a.persistConversation(ctx); err != nil {
			slog.Warn("conversation persist error", "err", err)
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// persistConversation saves the final snapshot to the archive and the
// export file, whichever are configured.
func (a *App) persistConversation(ctx context.Context) error {
	var errs []error

	if a.archive != nil {
		if err := a.archive.Save(ctx, a.sessionID(), a.conversation.Snapshot()); err != nil {
			errs = append(errs, fmt.Errorf("archive save: %w", err))
		}
	}
	if path := a.cfg.Memory.ExportPath; path != "" {
		if err := a.conversation.SaveFile(a.fs, path); err != nil {
			errs = append(errs, fmt.Errorf("export file: %w", err))
		}
	}

	return errors.Join(errs...)
}

// silentSpeaker discards all replies. Used when no TTS provider is
// configured so the assistant can still run in text/logging mode.
type silentSpeaker struct{}

func (silentSpeaker) Speak(_ context.Context, text string) error {
	slog.Debug("reply (unspoken)", "text", text)
	return nil
}
