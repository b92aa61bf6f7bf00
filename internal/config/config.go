// Package config provides the configuration schema, loader, and provider
// registry for the Vocata voice assistant.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the assistant.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Duration wraps time.Duration for YAML decoding of values like "2s" or
// "1.5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration structure for Vocata.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Assistant AssistantConfig `yaml:"assistant"`
	Audio     AudioConfig     `yaml:"audio"`
	VAD       VADConfig       `yaml:"vad"`
	Providers ProvidersConfig `yaml:"providers"`
	Memory    MemoryConfig    `yaml:"memory"`
}

// ServerConfig holds network and logging settings for the metrics/health
// endpoint.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on (e.g., ":8080").
	// Empty disables the server entirely.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AssistantConfig holds the persona and interaction settings.
type AssistantConfig struct {
	// Name is the persona name used in replies (e.g., "Vocata").
	Name string `yaml:"name"`

	// WakeWord is the phrase that activates a conversation turn. Detection
	// is a case-insensitive substring match on finalized transcriptions.
	WakeWord string `yaml:"wake_word"`

	// Continuous skips wake-word detection entirely: every finalized
	// utterance is treated as user input.
	Continuous bool `yaml:"continuous"`

	// MaxMessages bounds the conversation window passed to the responder.
	// The memory retains up to twice this many turns.
	MaxMessages int `yaml:"max_messages"`
}

// AudioConfig holds microphone capture settings.
type AudioConfig struct {
	// SampleRate is the capture rate in Hz. Whisper models expect 16000.
	SampleRate int `yaml:"sample_rate"`

	// FrameSize is the number of samples per capture frame.
	FrameSize int `yaml:"frame_size"`
}

// VADConfig holds the energy-based voice activity detection parameters.
type VADConfig struct {
	// SilenceThreshold is the mean-squared-amplitude energy below which a
	// frame counts as silence.
	SilenceThreshold float64 `yaml:"silence_threshold"`

	// SilenceDuration is how long continuous silence must last after speech
	// before the utterance is finalized.
	SilenceDuration Duration `yaml:"silence_duration"`

	// MinRecordingDuration is the minimum utterance length before silence
	// tracking can finalize it.
	MinRecordingDuration Duration `yaml:"min_recording_duration"`

	// WakeMaxDuration caps a single wake-word listening window.
	WakeMaxDuration Duration `yaml:"wake_max_duration"`

	// ConversationMaxDuration caps a single conversation recording.
	ConversationMaxDuration Duration `yaml:"conversation_max_duration"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt"`
	LLM ProviderEntry `yaml:"llm"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "whisper",
	// "openai", "coqui").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a model within the provider (e.g., "gpt-4o-mini") or,
	// for whisper, the path to the model file.
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// MemoryConfig holds conversation persistence settings.
type MemoryConfig struct {
	// PostgresDSN is the connection string for the conversation archive.
	// Empty disables archiving.
	PostgresDSN string `yaml:"postgres_dsn"`

	// SessionID keys the archived conversation. Empty uses "default".
	SessionID string `yaml:"session_id"`

	// ExportPath, when set, receives a JSON export of the conversation on
	// shutdown.
	ExportPath string `yaml:"export_path"`
}
