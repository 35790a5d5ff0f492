package llm

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/ports"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"
)

const DefaultMaxTokens = 1024

// ErrMissingAPIKey is returned when no API key is configured or found in the environment.
var ErrMissingAPIKey = errors.New("llm api key not configured")

// Config selects and configures a generator.
type Config struct {
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	MaxTokens    int64
	SystemPrompt string
	Timeout      time.Duration
	// MaxRetries overrides the SDK retry count when positive.
	MaxRetries int
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// NewGenerator builds the generator for cfg.Provider. The API key falls back
// to the provider's conventional environment variable.
func NewGenerator(cfg Config) (ports.TextGenerator, error) {
	provider, err := ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}

	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(provider.KeyEnv())
	}
	if key == "" {
		return nil, fmt.Errorf("%w: set llm.api_key or %s", ErrMissingAPIKey, provider.KeyEnv())
	}

	model := cfg.Model
	if model == "" {
		model = provider.DefaultModel()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = provider.DefaultBaseURL()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	if provider == ProviderAnthropic {
		var opts []anthropicoption.RequestOption
		if cfg.Timeout > 0 {
			opts = append(opts, anthropicoption.WithRequestTimeout(cfg.Timeout))
		}
		if cfg.MaxRetries > 0 {
			opts = append(opts, anthropicoption.WithMaxRetries(cfg.MaxRetries))
		}
		if cfg.HTTPClient != nil {
			opts = append(opts, anthropicoption.WithHTTPClient(cfg.HTTPClient))
		}
		return NewAnthropic(newAnthropicClient(key, baseURL, opts...), model, cfg.SystemPrompt, maxTokens), nil
	}

	var opts []openaioption.RequestOption
	if cfg.Timeout > 0 {
		opts = append(opts, openaioption.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, openaioption.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, openaioption.WithHTTPClient(cfg.HTTPClient))
	}
	return NewOpenAI(newOpenAIClient(key, baseURL, opts...), model, cfg.SystemPrompt, maxTokens), nil
}
