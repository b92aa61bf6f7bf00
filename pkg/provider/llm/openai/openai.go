// Package openai provides a response backend using the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/vocata-ai/vocata/pkg/memory"
	"github.com/vocata-ai/vocata/pkg/provider/llm"
)

// Compile-time assertion that Responder satisfies llm.Responder.
var _ llm.Responder = (*Responder)(nil)

// Responder implements llm.Responder using OpenAI chat completions.
type Responder struct {
	client      oai.Client
	model       string
	temperature float64
	maxTokens   int
}

// config holds optional configuration for the responder.
type config struct {
	baseURL     string
	timeout     time.Duration
	temperature float64
	maxTokens   int
}

// Option is a functional option for Responder.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Useful for
// OpenAI-compatible local servers.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithTemperature sets the sampling temperature. Defaults to 0.7.
func WithTemperature(t float64) Option {
	return func(c *config) { c.temperature = t }
}

// WithMaxTokens caps the completion length. Defaults to llm.DefaultMaxTokens.
func WithMaxTokens(n int) Option {
	return func(c *config) { c.maxTokens = n }
}

// New constructs a new OpenAI Responder.
func New(apiKey string, model string, opts ...Option) (*Responder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{temperature: 0.7, maxTokens: llm.DefaultMaxTokens}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Responder{
		client:      oai.NewClient(reqOpts...),
		model:       model,
		temperature: cfg.temperature,
		maxTokens:   cfg.maxTokens,
	}, nil
}

// Respond implements [llm.Responder].
func (r *Responder) Respond(ctx context.Context, input string, conv llm.Context) (string, error) {
	resp, err := r.client.Chat.Completions.New(ctx, r.buildParams(input, conv))
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &llm.BackendError{Provider: "openai", Err: errors.New("empty choices in response")}
	}
	return resp.Choices[0].Message.Content, nil
}

// buildParams converts the input and conversation context into SDK params.
func (r *Responder) buildParams(input string, conv llm.Context) oai.ChatCompletionNewParams {
	messages := []oai.ChatCompletionMessageParamUnion{
		oai.SystemMessage(llm.SystemPrompt(conv)),
	}
	for _, t := range conv.History {
		switch t.Role {
		case memory.RoleUser:
			messages = append(messages, oai.UserMessage(t.Content))
		case memory.RoleAssistant:
			messages = append(messages, oai.AssistantMessage(t.Content))
		}
	}
	messages = append(messages, oai.UserMessage(input))

	return oai.ChatCompletionNewParams{
		Model:               shared.ChatModel(r.model),
		Messages:            messages,
		Temperature:         param.NewOpt(r.temperature),
		MaxCompletionTokens: param.NewOpt(int64(r.maxTokens)),
	}
}

// classify maps SDK errors onto the llm error taxonomy.
func classify(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("openai: %w: %v", llm.ErrRateLimited, err)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("openai: %w: %v", llm.ErrTimeout, err)
		}
		return &llm.BackendError{Provider: "openai", Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("openai: %w: %v", llm.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("openai: %w: %v", llm.ErrTimeout, err)
	}

	return &llm.BackendError{Provider: "openai", Err: err}
}
