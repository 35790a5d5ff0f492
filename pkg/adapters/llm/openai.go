package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI implements ports.TextGenerator with the Chat Completions API of
// OpenAI or any compatible endpoint.
type OpenAI struct {
	client    *openai.Client
	model     string
	system    string
	maxTokens int64
}

// NewOpenAI creates a generator from an existing client.
func NewOpenAI(client *openai.Client, model, system string, maxTokens int64) *OpenAI {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAI{client: client, model: model, system: system, maxTokens: maxTokens}
}

func newOpenAIClient(apiKey, baseURL string, extra ...option.RequestOption) *openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)
	client := openai.NewClient(opts...)
	return &client
}

// GenerateText sends prompt as a single user message.
func (g *OpenAI) GenerateText(ctx context.Context, prompt string, temperature float64) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if g.system != "" {
		messages = append(messages, openai.SystemMessage(g.system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       g.model,
		Temperature: openai.Float(temperature),
	}
	if g.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(g.maxTokens)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai api error: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
