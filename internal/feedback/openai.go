package feedback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/cheongeum/cheongeum-server/internal/config"
)

const defaultRequestTimeout = 60 * time.Second

// OpenAICompleter requests JSON-object chat completions from an
// OpenAI-compatible endpoint.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter builds a completer from the feedback config.
// It returns nil when no API key is configured.
func NewOpenAICompleter(cfg *config.FeedbackConfig) *OpenAICompleter {
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithHTTPClient(&http.Client{Timeout: defaultRequestTimeout}),
	}
	if base := strings.TrimRight(cfg.OpenAIBaseURL, "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	client := openai.NewClient(opts...)
	return &OpenAICompleter{client: &client, model: model}
}

// Complete sends one system and one user message at temperature 0 and
// returns the content of the first choice.
func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Opt(0.0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai request failed (status=%d): %s", apiErr.StatusCode, strings.TrimSpace(apiErr.Message))
		}
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
