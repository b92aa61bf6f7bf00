// Package anyllm provides a response backend wrapping
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more.
//
// Usage:
//
//	r, err := anyllm.New("ollama", "llama3.2")
//	r, err := anyllm.New("anthropic", "claude-3-5-haiku-latest", anyllmlib.WithAPIKey("sk-ant-..."))
package anyllm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/vocata-ai/vocata/pkg/memory"
	"github.com/vocata-ai/vocata/pkg/provider/llm"
)

// Compile-time assertion that Responder satisfies llm.Responder.
var _ llm.Responder = (*Responder)(nil)

// Responder implements llm.Responder by wrapping an any-llm-go backend.
type Responder struct {
	backend     anyllmlib.Provider
	name        string
	model       string
	temperature float64
	maxTokens   int
}

// New creates a Responder backed by the given provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile".
//
// opts are any-llm-go configuration options (e.g. anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). If no API key option is provided, the backend
// falls back to its usual environment variable (OPENAI_API_KEY,
// ANTHROPIC_API_KEY, ...).
func New(providerName string, model string, opts ...anyllmlib.Option) (*Responder, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	return &Responder{
		backend:     backend,
		name:        providerName,
		model:       model,
		temperature: 0.7,
		maxTokens:   llm.DefaultMaxTokens,
	}, nil
}

// createBackend creates the underlying any-llm-go provider for the given name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Respond implements [llm.Responder].
func (r *Responder) Respond(ctx context.Context, input string, conv llm.Context) (string, error) {
	resp, err := r.backend.Completion(ctx, r.buildParams(input, conv))
	if err != nil {
		return "", classify(r.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", &llm.BackendError{Provider: r.name, Err: errors.New("empty choices in response")}
	}
	return resp.Choices[0].Message.ContentString(), nil
}

// buildParams converts the input and conversation context into anyllm params.
func (r *Responder) buildParams(input string, conv llm.Context) anyllmlib.CompletionParams {
	messages := []anyllmlib.Message{
		{Role: anyllmlib.RoleSystem, Content: llm.SystemPrompt(conv)},
	}
	for _, t := range conv.History {
		switch t.Role {
		case memory.RoleUser:
			messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleUser, Content: t.Content})
		case memory.RoleAssistant:
			messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleAssistant, Content: t.Content})
		}
	}
	messages = append(messages, anyllmlib.Message{Role: anyllmlib.RoleUser, Content: input})

	temp := r.temperature
	maxTokens := r.maxTokens
	return anyllmlib.CompletionParams{
		Model:       r.model,
		Messages:    messages,
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	}
}

// classify maps backend errors onto the llm error taxonomy. any-llm-go does
// not expose typed API errors across providers, so classification falls back
// to message inspection for the rate-limit case.
func classify(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("anyllm: %w: %v", llm.ErrTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		return fmt.Errorf("anyllm: %w: %v", llm.ErrRateLimited, err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return fmt.Errorf("anyllm: %w: %v", llm.ErrTimeout, err)
	}

	return &llm.BackendError{Provider: provider, Err: err}
}
