// Package config loads the agent service configuration from defaults, an
// optional YAML file, an optional .env file and the environment, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/sanitize"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/adapters/llm"
)

const (
	DefaultFile    = "agent-service.yaml"
	DefaultEnvFile = ".env"
	EnvPrefix      = "AGENT_"
	// EnvConfigFile names the YAML file when no path is given.
	EnvConfigFile = "AGENT_CONFIG"
)

// Config is the complete service configuration.
type Config struct {
	ConcurrencyLimit int           `mapstructure:"concurrency_limit" yaml:"concurrency_limit"`
	SessionTTL       time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	NotifyTimeout    time.Duration `mapstructure:"notify_timeout" yaml:"notify_timeout"`
	NotifyQueueSize  int           `mapstructure:"notify_queue_size" yaml:"notify_queue_size"`
	EventLogCapacity int           `mapstructure:"event_log_capacity" yaml:"event_log_capacity"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout" yaml:"http_timeout"`
	MaxInputSize     int           `mapstructure:"max_input_size" yaml:"max_input_size"`

	WebUIURL                string `mapstructure:"web_ui_url" yaml:"web_ui_url"`
	RAGServiceURL           string `mapstructure:"rag_service_url" yaml:"rag_service_url"`
	RAGTopK                 int    `mapstructure:"rag_top_k" yaml:"rag_top_k"`
	RAGUseHyDE              bool   `mapstructure:"rag_use_hyde" yaml:"rag_use_hyde"`
	TestGeneratorServiceURL string `mapstructure:"test_generator_service_url" yaml:"test_generator_service_url"`
	PromptsDir              string `mapstructure:"prompts_dir" yaml:"prompts_dir"`
	SystemPrompt            string `mapstructure:"system_prompt" yaml:"system_prompt"`

	LLM   LLMConfig   `mapstructure:"llm" yaml:"llm"`
	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`
	HTTP  HTTPConfig  `mapstructure:"http" yaml:"http"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
}

// LLMConfig selects the language model backend.
type LLMConfig struct {
	Provider            string  `mapstructure:"provider" yaml:"provider"`
	Model               string  `mapstructure:"model" yaml:"model"`
	APIKey              string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL             string  `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens           int64   `mapstructure:"max_tokens" yaml:"max_tokens"`
	AnswerTemperature   float64 `mapstructure:"answer_temperature" yaml:"answer_temperature"`
	ClassifyTemperature float64 `mapstructure:"classify_temperature" yaml:"classify_temperature"`
}

// RedisConfig enables the Redis progress fan-out when Addr is set.
type RedisConfig struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	Password     string `mapstructure:"password" yaml:"password"`
	DB           int    `mapstructure:"db" yaml:"db"`
	Channel      string `mapstructure:"channel" yaml:"channel"`
	StreamPrefix string `mapstructure:"stream_prefix" yaml:"stream_prefix"`
	StreamMaxLen int64  `mapstructure:"stream_max_len" yaml:"stream_max_len"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ConcurrencyLimit: 2,
		SessionTTL:       600 * time.Second,
		SweepInterval:    30 * time.Second,
		NotifyTimeout:    time.Second,
		NotifyQueueSize:  256,
		EventLogCapacity: 200,
		HTTPTimeout:      60 * time.Second,
		MaxInputSize:     sanitize.DefaultMaxInputSize,
		RAGTopK:          5,
		LLM: LLMConfig{
			Provider:          string(llm.ProviderOpenAI),
			MaxTokens:         llm.DefaultMaxTokens,
			AnswerTemperature: 0.2,
		},
		Redis: RedisConfig{
			Channel:      "agent:progress",
			StreamPrefix: "agent:events:",
			StreamMaxLen: 200,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, ok bool) {
		if !ok {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	positive("concurrency_limit", c.ConcurrencyLimit > 0)
	positive("session_ttl", c.SessionTTL > 0)
	positive("sweep_interval", c.SweepInterval > 0)
	positive("notify_timeout", c.NotifyTimeout > 0)
	positive("notify_queue_size", c.NotifyQueueSize > 0)
	positive("event_log_capacity", c.EventLogCapacity > 0)
	positive("http_timeout", c.HTTPTimeout > 0)
	positive("max_input_size", c.MaxInputSize > 0)
	positive("rag_top_k", c.RAGTopK > 0)

	if _, err := llm.ParseProvider(c.LLM.Provider); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
