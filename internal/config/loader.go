package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"whisper"},
	"llm": {"openai", "anyllm", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"tts": {"coqui"},
}

// Defaults applied by [ApplyDefaults] where the YAML leaves fields unset.
const (
	DefaultAssistantName = "Assistant"
	DefaultWakeWord      = "hey assistant"
	DefaultMaxMessages   = 10
	DefaultSampleRate    = 16000
	DefaultFrameSize     = 1024

	DefaultSilenceThreshold        = 0.01
	DefaultSilenceDuration         = 2 * time.Second
	DefaultMinRecordingDuration    = 1 * time.Second
	DefaultWakeMaxDuration         = 10 * time.Second
	DefaultConversationMaxDuration = 30 * time.Second
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in unset fields with their default values.
func ApplyDefaults(cfg *Config) {
	if cfg.Assistant.Name == "" {
		cfg.Assistant.Name = DefaultAssistantName
	}
	if cfg.Assistant.WakeWord == "" {
		cfg.Assistant.WakeWord = DefaultWakeWord
	}
	if cfg.Assistant.MaxMessages <= 0 {
		cfg.Assistant.MaxMessages = DefaultMaxMessages
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}
	if cfg.Audio.FrameSize <= 0 {
		cfg.Audio.FrameSize = DefaultFrameSize
	}
	if cfg.VAD.SilenceThreshold <= 0 {
		cfg.VAD.SilenceThreshold = DefaultSilenceThreshold
	}
	if cfg.VAD.SilenceDuration <= 0 {
		cfg.VAD.SilenceDuration = Duration(DefaultSilenceDuration)
	}
	if cfg.VAD.MinRecordingDuration <= 0 {
		cfg.VAD.MinRecordingDuration = Duration(DefaultMinRecordingDuration)
	}
	if cfg.VAD.WakeMaxDuration <= 0 {
		cfg.VAD.WakeMaxDuration = Duration(DefaultWakeMaxDuration)
	}
	if cfg.VAD.ConversationMaxDuration <= 0 {
		cfg.VAD.ConversationMaxDuration = Duration(DefaultConversationMaxDuration)
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if !cfg.Assistant.Continuous && cfg.Assistant.WakeWord == "" {
		errs = append(errs, errors.New("assistant.wake_word is required unless assistant.continuous is true"))
	}

	if cfg.VAD.SilenceThreshold >= 1 {
		errs = append(errs, fmt.Errorf("vad.silence_threshold %.3f is out of range (0, 1)", cfg.VAD.SilenceThreshold))
	}
	if cfg.VAD.MinRecordingDuration.Std() > cfg.VAD.ConversationMaxDuration.Std() {
		errs = append(errs, fmt.Errorf("vad.min_recording_duration %s exceeds vad.conversation_max_duration %s",
			cfg.VAD.MinRecordingDuration.Std(), cfg.VAD.ConversationMaxDuration.Std()))
	}

	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("providers.tts is not configured; replies will not be spoken")
	}

	if cfg.Memory.PostgresDSN == "" && cfg.Memory.SessionID != "" {
		slog.Warn("memory.session_id is set but memory.postgres_dsn is empty; the conversation will not be archived")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
