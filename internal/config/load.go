package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/adapters/llm"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// envKeys maps environment variables to configuration keys.
var envKeys = map[string]string{
	"AGENT_CONCURRENCY_LIMIT":          "concurrency_limit",
	"AGENT_SESSION_TTL":                "session_ttl",
	"AGENT_SWEEP_INTERVAL":             "sweep_interval",
	"AGENT_NOTIFY_TIMEOUT":             "notify_timeout",
	"AGENT_NOTIFY_QUEUE_SIZE":          "notify_queue_size",
	"AGENT_EVENT_LOG_CAPACITY":         "event_log_capacity",
	"AGENT_HTTP_TIMEOUT":               "http_timeout",
	"AGENT_MAX_INPUT_SIZE":             "max_input_size",
	"AGENT_WEB_UI_URL":                 "web_ui_url",
	"AGENT_RAG_SERVICE_URL":            "rag_service_url",
	"AGENT_RAG_TOP_K":                  "rag_top_k",
	"AGENT_RAG_USE_HYDE":               "rag_use_hyde",
	"AGENT_TEST_GENERATOR_SERVICE_URL": "test_generator_service_url",
	"AGENT_PROMPTS_DIR":                "prompts_dir",
	"AGENT_SYSTEM_PROMPT":              "system_prompt",
	"AGENT_LLM_PROVIDER":               "llm.provider",
	"AGENT_LLM_MODEL":                  "llm.model",
	"AGENT_LLM_API_KEY":                "llm.api_key",
	"AGENT_LLM_BASE_URL":               "llm.base_url",
	"AGENT_LLM_MAX_TOKENS":             "llm.max_tokens",
	"AGENT_LLM_ANSWER_TEMPERATURE":     "llm.answer_temperature",
	"AGENT_LLM_CLASSIFY_TEMPERATURE":   "llm.classify_temperature",
	"AGENT_REDIS_ADDR":                 "redis.addr",
	"AGENT_REDIS_PASSWORD":             "redis.password",
	"AGENT_REDIS_DB":                   "redis.db",
	"AGENT_REDIS_CHANNEL":              "redis.channel",
	"AGENT_REDIS_STREAM_PREFIX":        "redis.stream_prefix",
	"AGENT_REDIS_STREAM_MAX_LEN":       "redis.stream_max_len",
	"AGENT_HTTP_ADDR":                  "http.addr",
	"AGENT_LOG_LEVEL":                  "log.level",
	"AGENT_LOG_FORMAT":                 "log.format",
}

// Options selects the files Load reads.
type Options struct {
	// File is the YAML file; empty means $AGENT_CONFIG, then DefaultFile.
	File string
	// EnvFile is the dotenv file; empty means DefaultEnvFile.
	EnvFile string
}

// Load builds a validated Config. Missing files are skipped and empty
// environment variables count as unset.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	dotenv, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	lookup := func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[name]
		return v, ok
	}

	file := opts.File
	if file == "" {
		file, _ = lookup(EnvConfigFile)
	}
	if file == "" {
		file = DefaultFile
	}
	if err := loadFile(cfg, file); err != nil {
		return nil, err
	}

	if err := decode(envSettings(lookup), cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		if provider, err := llm.ParseProvider(cfg.LLM.Provider); err == nil {
			cfg.LLM.APIKey, _ = lookup(provider.KeyEnv())
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		path = DefaultEnvFile
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := decode(raw, cfg); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// envSettings nests the set variables of envKeys into a settings map.
func envSettings(lookup func(string) (string, bool)) map[string]any {
	out := map[string]any{}
	for env, key := range envKeys {
		v, ok := lookup(env)
		if !ok {
			continue
		}
		section, field, nested := strings.Cut(key, ".")
		if !nested {
			out[key] = v
			continue
		}
		m, _ := out[section].(map[string]any)
		if m == nil {
			m = map[string]any{}
			out[section] = m
		}
		m[field] = v
	}
	return out
}

func decode(input map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       durationHook,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// durationHook accepts Go duration strings ("10m") and plain numbers of seconds.
func durationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		s := strings.TrimSpace(v)
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return seconds(secs), nil
		}
		return time.ParseDuration(s)
	case int:
		return seconds(float64(v)), nil
	case int64:
		return seconds(float64(v)), nil
	case uint64:
		return seconds(float64(v)), nil
	case float64:
		return seconds(v), nil
	}
	return data, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
