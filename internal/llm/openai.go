package llm

import (
	"context"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/yuv-man/habeat-server/internal/errors"
)

// CloudClient talks to the cloud provider through its OpenAI-compatible
// surface. It implements both Completer and ModelLister.
type CloudClient struct {
	client openai.Client
	logger *slog.Logger
}

// NewCloudClient creates a client for the given API key. baseURL points at
// the provider's OpenAI-compatible endpoint; the empty string keeps the
// library default.
func NewCloudClient(apiKey, baseURL string, logger *slog.Logger) *CloudClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &CloudClient{
		client: openai.NewClient(opts...),
		logger: logger,
	}
}

// Complete sends a single-turn chat completion to the named model and
// returns the raw response text.
func (c *CloudClient) Complete(ctx context.Context, model string, prompt string) (string, error) {
	c.logger.DebugContext(ctx, "sending chat completion request",
		slog.String("model", model),
		slog.Int("prompt_length", len(prompt)))

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion", slog.String("model", model))
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("completion contained no choices")
	}

	content := completion.Choices[0].Message.Content
	c.logger.DebugContext(ctx, "received chat completion response",
		slog.String("model", model),
		slog.Int("response_length", len(content)))
	return content, nil
}

// ListModels returns the identifiers of the models the provider currently
// offers.
func (c *CloudClient) ListModels(ctx context.Context) ([]string, error) {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list models")
	}
	ids := make([]string, 0, len(page.Data))
	for _, model := range page.Data {
		ids = append(ids, model.ID)
	}
	return ids, nil
}
