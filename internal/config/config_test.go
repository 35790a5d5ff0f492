package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func missing(t *testing.T) config.Options {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	dir := t.TempDir()
	return config.Options{
		File:    filepath.Join(dir, "none.yaml"),
		EnvFile: filepath.Join(dir, "none.env"),
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(missing(t))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 2, cfg.ConcurrencyLimit)
	assert.Equal(t, 600*time.Second, cfg.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 200, cfg.EventLogCapacity)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "agent.yaml", `
concurrency_limit: 4
session_ttl: 10m
sweep_interval: 15
rag_service_url: http://rag:8000
llm:
  provider: mistral
  answer_temperature: 0.5
redis:
  addr: localhost:6379
`)

	cfg, err := config.Load(config.Options{File: file, EnvFile: filepath.Join(dir, "none.env")})
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.ConcurrencyLimit)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 15*time.Second, cfg.SweepInterval)
	assert.Equal(t, "http://rag:8000", cfg.RAGServiceURL)
	assert.Equal(t, "mistral", cfg.LLM.Provider)
	assert.InDelta(t, 0.5, cfg.LLM.AnswerTemperature, 1e-9)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	// Untouched nested fields keep their defaults.
	assert.Equal(t, "agent:progress", cfg.Redis.Channel)
	assert.Equal(t, int64(1024), cfg.LLM.MaxTokens)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "agent.yaml", "concurrency_limit: 4\nlog:\n  level: debug\n")
	t.Setenv("AGENT_CONCURRENCY_LIMIT", "8")
	t.Setenv("AGENT_RAG_USE_HYDE", "true")
	t.Setenv("AGENT_NOTIFY_TIMEOUT", "1.5")
	t.Setenv("AGENT_LOG_FORMAT", "json")

	cfg, err := config.Load(config.Options{File: file, EnvFile: filepath.Join(dir, "none.env")})
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.ConcurrencyLimit)
	assert.True(t, cfg.RAGUseHyDE)
	assert.Equal(t, 1500*time.Millisecond, cfg.NotifyTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "")
	envFile := writeFile(t, dir, ".env", "AGENT_LLM_PROVIDER=anthropic\nANTHROPIC_API_KEY=from-dotenv\nAGENT_HTTP_ADDR=:9090\n")
	t.Setenv("AGENT_HTTP_ADDR", ":7070")

	cfg, err := config.Load(config.Options{File: filepath.Join(dir, "none.yaml"), EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "from-dotenv", cfg.LLM.APIKey)
	assert.Equal(t, ":7070", cfg.HTTP.Addr, "process environment wins over .env")
}

func TestLoad_ProviderKeyDoesNotOverrideExplicitKey(t *testing.T) {
	opts := missing(t)
	t.Setenv("OPENAI_API_KEY", "provider-key")
	t.Setenv("AGENT_LLM_API_KEY", "explicit-key")

	cfg, err := config.Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "explicit-key", cfg.LLM.APIKey)
}

func TestLoad_ProviderKeyFallback(t *testing.T) {
	opts := missing(t)
	t.Setenv("OPENAI_API_KEY", "provider-key")

	cfg, err := config.Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "provider-key", cfg.LLM.APIKey)
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "from-env.yaml", "rag_top_k: 9\n")
	t.Setenv(config.EnvConfigFile, file)

	cfg, err := config.Load(config.Options{EnvFile: filepath.Join(dir, "none.env")})
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.RAGTopK)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "Malformed YAML", content: "concurrency_limit: [", want: "parse"},
		{name: "Unknown Key", content: "concurency_limit: 3\n", want: "concurency_limit"},
		{name: "Bad Duration", content: "session_ttl: soon\n", want: "session_ttl"},
		{name: "Invalid Value", content: "concurrency_limit: 0\n", want: "concurrency_limit must be positive"},
		{name: "Unknown Provider", content: "llm:\n  provider: nope\n", want: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			file := writeFile(t, dir, "agent.yaml", tt.content)

			_, err := config.Load(config.Options{File: file, EnvFile: filepath.Join(dir, "none.env")})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := config.Default()
	cfg.ConcurrencyLimit = 0
	cfg.SessionTTL = 0
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency_limit")
	assert.Contains(t, err.Error(), "session_ttl")
	assert.Contains(t, err.Error(), "log.format")
}
