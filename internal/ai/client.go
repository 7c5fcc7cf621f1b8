// Package ai sends prompts to a hosted language model and returns its free-text answer.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/wodcoach/internal/errors"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ErrDisabled is returned by [Client.Generate] when no usable API key is configured.
var ErrDisabled = errors.NewSentinel("ai generation disabled")

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// IsPlaceholderKey reports whether key cannot be a real API key: it is empty, blank or still the
// "your_..._here" value from an example configuration.
func IsPlaceholderKey(key string) bool {
	key = strings.TrimSpace(key)
	return key == "" || strings.Contains(strings.ToLower(key), "your_")
}

// Client calls OpenAI chat completions with a single user message.
type Client struct {
	client   openai.Client
	model    string
	disabled bool
	logger   *slog.Logger
}

// NewClient creates a client for model. Extra options such as a base URL are passed to the OpenAI client.
func NewClient(apiKey, model string, logger *slog.Logger, opts ...option.RequestOption) *Client {
	if model == "" {
		model = DefaultModel
	}
	// Failures fall back to templates, so a single attempt is enough.
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &Client{
		client:   openai.NewClient(opts...),
		model:    model,
		disabled: IsPlaceholderKey(apiKey),
		logger:   logger,
	}
}

// Enabled reports whether Generate will call the model.
func (c *Client) Enabled() bool {
	return !c.disabled
}

// Generate sends prompt to the model and returns the content of the first choice.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.disabled {
		return "", ErrDisabled
	}

	start := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", errors.Wrap(err, "chat completion", slog.Int("status", apiErr.StatusCode))
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	c.logger.LogAttrs(ctx, slog.LevelDebug, "received chat completion",
		slog.String("model", c.model),
		slog.Duration("duration", time.Since(start)),
		slog.Int64("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int64("completion_tokens", completion.Usage.CompletionTokens))

	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion has no choices")
	}
	content := completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", errors.New("chat completion is empty")
	}
	return content, nil
}
