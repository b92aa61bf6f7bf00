package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/vocata-ai/vocata/internal/app"
	"github.com/vocata-ai/vocata/internal/config"
	audiomock "github.com/vocata-ai/vocata/pkg/audio/mock"
	"github.com/vocata-ai/vocata/pkg/memory"
	llmmock "github.com/vocata-ai/vocata/pkg/provider/llm/mock"
	sttmock "github.com/vocata-ai/vocata/pkg/provider/stt/mock"
	ttsmock "github.com/vocata-ai/vocata/pkg/provider/tts/mock"
)

// testConfig returns a minimal wake-word config without a diagnostics
// listener or a database.
func testConfig() *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{
			LogLevel: config.LogInfo,
		},
		Assistant: config.AssistantConfig{
			Name:     "Assistant",
			WakeWord: "hey assistant",
		},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

// testProviders returns mock STT/LLM providers; TTS stays nil so the app
// falls back to the silent speaker unless a mock speaker is injected.
func testProviders() *app.Providers {
	return &app.Providers{
		STT: &sttmock.Transcriber{},
		LLM: &llmmock.Responder{},
	}
}

func TestNew_WithMocks(t *testing.T) {
	t.Parallel()

	application, err := app.New(
		context.Background(),
		testConfig(),
		testProviders(),
		app.WithSource(audiomock.NewSource()),
		app.WithPlayer(&audiomock.Player{}),
		app.WithSpeaker(&ttsmock.Speaker{}),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if application.Assistant() == nil {
		t.Fatal("New() built no assistant")
	}
	if application.Conversation() == nil {
		t.Fatal("New() built no conversation memory")
	}
}

func TestNew_SilentSpeakerWithoutTTS(t *testing.T) {
	t.Parallel()

	application, err := app.New(
		context.Background(),
		testConfig(),
		testProviders(),
		app.WithSource(audiomock.NewSource()),
		app.WithPlayer(&audiomock.Player{}),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	// The silent speaker must still let text turns complete.
	reply, err := application.Assistant().ProcessText(context.Background(), "what can you do")
	if err != nil {
		t.Fatalf("ProcessText: %v", err)
	}
	if reply == "" {
		t.Error("empty reply from help command")
	}
}

func TestApp_Shutdown(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	cfg := testConfig()
	cfg.Memory.ExportPath = "/state/conversation.json"

	application, err := app.New(
		context.Background(),
		cfg,
		testProviders(),
		app.WithSource(audiomock.NewSource()),
		app.WithPlayer(&audiomock.Player{}),
		app.WithSpeaker(&ttsmock.Speaker{}),
		app.WithFs(fs),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	application.Conversation().Append(memory.RoleUser, "remember me")

	if err := application.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() returned error: %v", err)
	}
	// Idempotent.
	if err := application.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown() returned error: %v", err)
	}

	data, err := afero.ReadFile(fs, "/state/conversation.json")
	if err != nil {
		t.Fatalf("export file not written: %v", err)
	}

	restored := memory.New(10)
	if err := restored.Import(data); err != nil {
		t.Fatalf("export file does not round-trip: %v", err)
	}
	if restored.Len() != 1 {
		t.Errorf("restored %d turns, want 1", restored.Len())
	}
}

func TestApp_RunAndShutdown(t *testing.T) {
	t.Parallel()

	application, err := app.New(
		context.Background(),
		testConfig(),
		testProviders(),
		app.WithSource(audiomock.NewSource()),
		app.WithPlayer(&audiomock.Player{}),
		app.WithSpeaker(&ttsmock.Speaker{}),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- application.Run(ctx) }()

	// Give the loop a moment to start, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	if err := application.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() returned error: %v", err)
	}
}
