// Package llm adapts an OpenAI-compatible chat completion endpoint for
// insight synthesis.
package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/veridex/veridex/pkg/logger"
	"github.com/veridex/veridex/pkg/metrics"
)

const defaultModel = "gpt-4o-mini"

// Client talks to a chat completion API.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	logger  logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithModel selects the completion model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout bounds one completion round trip.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a completion client. baseURL may be empty to use the
// provider default, which also allows pointing at local inference servers.
func New(apiKey, baseURL string, opts ...Option) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	c := &Client{
		model:  defaultModel,
		logger: logger.Get().Named("llm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: c.timeout}
	}
	c.api = openai.NewClientWithConfig(cfg)
	return c
}

// Complete sends one system+user exchange and returns the raw assistant
// message. Sampling is pinned near zero so repeated runs over the same
// context produce the same assessment.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		// Literal 0 is dropped by omitempty, so use the smallest
		// representable value instead.
		Temperature: math.SmallestNonzeroFloat32,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	metrics.RecordLLMLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug(ctx, "completion received",
		logger.String("model", c.model),
		logger.Int("prompt_tokens", resp.Usage.PromptTokens),
		logger.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}
