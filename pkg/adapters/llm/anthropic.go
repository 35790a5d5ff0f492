package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic implements ports.TextGenerator with the Messages API.
type Anthropic struct {
	client    *anthropic.Client
	model     anthropic.Model
	system    string
	maxTokens int64
}

// NewAnthropic creates a generator from an existing client.
func NewAnthropic(client *anthropic.Client, model, system string, maxTokens int64) *Anthropic {
	m := anthropic.Model(model)
	if m == "" {
		m = anthropic.ModelClaude3_5Sonnet20241022
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Anthropic{client: client, model: m, system: system, maxTokens: maxTokens}
}

func newAnthropicClient(apiKey, baseURL string, extra ...option.RequestOption) *anthropic.Client {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)
	client := anthropic.NewClient(opts...)
	return &client
}

// GenerateText sends prompt as a single user message and joins the text blocks of the reply.
func (g *Anthropic) GenerateText(ctx context.Context, prompt string, temperature float64) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       g.model,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		MaxTokens:   g.maxTokens,
		Temperature: anthropic.Float(temperature),
	}
	if g.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: g.system}}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("anthropic api error: no text returned")
	}
	return strings.TrimSpace(b.String()), nil
}
