package llm

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

// Provider names a chat completion backend.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderOpenRouter Provider = "openrouter"
	ProviderMistral    Provider = "mistral"
	ProviderAnthropic  Provider = "anthropic"
)

// Providers lists the supported backends.
var Providers = []Provider{ProviderOpenAI, ProviderOpenRouter, ProviderMistral, ProviderAnthropic}

type providerDefaults struct {
	baseURL string
	model   string
	keyEnv  string
}

var defaults = map[Provider]providerDefaults{
	ProviderOpenAI:     {model: openai.ChatModelGPT4oMini, keyEnv: "OPENAI_API_KEY"},
	ProviderOpenRouter: {baseURL: "https://openrouter.ai/api/v1/", model: "openrouter/auto", keyEnv: "OPENROUTER_API_KEY"},
	ProviderMistral:    {baseURL: "https://api.mistral.ai/v1/", model: "mistral-large-latest", keyEnv: "MISTRAL_API_KEY"},
	ProviderAnthropic:  {model: string(anthropic.ModelClaude3_5Sonnet20241022), keyEnv: "ANTHROPIC_API_KEY"},
}

// ParseProvider resolves a provider name; empty means ProviderOpenAI.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	if p == "" {
		return ProviderOpenAI, nil
	}
	if _, ok := defaults[p]; !ok {
		return "", fmt.Errorf("unknown llm provider %q", name)
	}
	return p, nil
}

// DefaultModel returns the model used when none is configured.
func (p Provider) DefaultModel() string {
	return defaults[p].model
}

// DefaultBaseURL returns the API endpoint used when none is configured.
// Empty means the SDK default.
func (p Provider) DefaultBaseURL() string {
	return defaults[p].baseURL
}

// KeyEnv returns the environment variable conventionally holding the API key.
func (p Provider) KeyEnv() string {
	return defaults[p].keyEnv
}
