package agentservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/config"
	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/logging"
	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/runtime"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/adapters/examgen"
	httpadapter "github.com/Lifelong-Learning-Assisttant/agent-service/pkg/adapters/http"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/adapters/llm"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/adapters/rag"
	redisadapter "github.com/Lifelong-Learning-Assisttant/agent-service/pkg/adapters/redis"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/adapters/webui"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/observability"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/ports"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/progress"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/prompts"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/session"
)

var _ ports.Agent = (*Service)(nil)

// Service is the high-level entry point: it owns the session registry and
// the progress dispatcher and exposes the operations the adapters drive.
type Service struct {
	registry   *session.Registry
	dispatcher *progress.Dispatcher
	streams    *httpadapter.StreamManager

	deps         runtime.Dependencies
	engineOpts   []runtime.EngineOption
	sessionOpts  []session.Option
	dispatchOpts []progress.Option
	sinks        []ports.ProgressSink
	hooks        domain.LifecycleHooks
	metrics      *observability.Metrics
	closers      []func() error
	logger       *slog.Logger
}

// New builds a Service from explicitly injected collaborators. The
// classifier, retriever, generator and quiz service are required.
func New(opts ...Option) (*Service, error) {
	s := &Service{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	hooks := observability.Chain(observability.LoggingHooks(s.logger), s.hooks)
	if s.metrics != nil {
		hooks = observability.Chain(hooks, s.metrics.Hooks())
	}

	engineOpts := append([]runtime.EngineOption{
		runtime.WithLogger(s.logger),
		runtime.WithLifecycleHooks(hooks),
	}, s.engineOpts...)
	engine, err := runtime.NewEngine(s.deps, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("agentservice: %w", err)
	}

	s.streams = httpadapter.NewStreamManager(s.logger)
	sinks := append(progress.Fanout{s.streams}, s.sinks...)
	dispatchOpts := append([]progress.Option{progress.WithLogger(s.logger)}, s.dispatchOpts...)
	s.dispatcher = progress.NewDispatcher(sinks, dispatchOpts...)

	sessionOpts := append([]session.Option{
		session.WithLogger(s.logger),
		session.WithPublisher(s.dispatcher),
		session.WithLifecycleHooks(hooks),
	}, s.sessionOpts...)
	s.registry = session.NewRegistry(engine, sessionOpts...)
	return s, nil
}

// NewFromConfig builds a Service whose collaborators are the HTTP and LLM
// adapters described by cfg. opts are applied last and may replace any of
// them.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Service, error) {
	set := prompts.Default()
	if cfg.PromptsDir != "" {
		set = prompts.New(cfg.PromptsDir)
	}

	system := cfg.SystemPrompt
	if system == "" {
		rendered, err := set.Render(prompts.System, nil)
		if err != nil {
			return nil, fmt.Errorf("agentservice: system prompt: %w", err)
		}
		system = rendered
	}

	generator, err := llm.NewGenerator(llm.Config{
		Provider:     cfg.LLM.Provider,
		Model:        cfg.LLM.Model,
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		MaxTokens:    cfg.LLM.MaxTokens,
		SystemPrompt: system,
		Timeout:      cfg.HTTPTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("agentservice: %w", err)
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	base := []Option{
		WithLogger(logging.FromConfig(cfg.Log.Level, cfg.Log.Format)),
		WithGenerator(generator),
		WithClassifier(llm.NewClassifier(generator, set, cfg.LLM.ClassifyTemperature)),
		WithRetriever(rag.New(cfg.RAGServiceURL,
			rag.WithTopK(cfg.RAGTopK),
			rag.WithHyDE(cfg.RAGUseHyDE),
			rag.WithHTTPClient(client),
		)),
		WithQuizService(examgen.New(cfg.TestGeneratorServiceURL, examgen.WithHTTPClient(client))),
		WithPrompts(set),
		WithAnswerTemperature(cfg.LLM.AnswerTemperature),
		WithConcurrencyLimit(cfg.ConcurrencyLimit),
		WithSessionTTL(cfg.SessionTTL),
		WithSweepInterval(cfg.SweepInterval),
		WithEventLogCapacity(cfg.EventLogCapacity),
		WithNotifyTimeout(cfg.NotifyTimeout),
		WithNotifyQueueSize(cfg.NotifyQueueSize),
	}
	if cfg.WebUIURL != "" {
		base = append(base, WithSink(webui.New(cfg.WebUIURL)))
	}
	if cfg.Redis.Addr != "" {
		sink := redisadapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisadapter.WithChannel(cfg.Redis.Channel),
			redisadapter.WithStreamPrefix(cfg.Redis.StreamPrefix),
			redisadapter.WithMaxLen(cfg.Redis.StreamMaxLen),
		)
		base = append(base, WithSink(sink), withCloser(sink.Close))
	}

	return New(append(base, opts...)...)
}

// Run answers question within the session, creating it if needed.
func (s *Service) Run(ctx context.Context, question, sessionID string) (string, error) {
	return s.registry.Run(ctx, question, sessionID)
}

// CreateSession registers sessionID and returns its summary.
func (s *Service) CreateSession(sessionID string) domain.SessionInfo {
	return s.registry.CreateSession(sessionID).Info()
}

// RemoveSession cancels and forgets the session.
func (s *Service) RemoveSession(sessionID string) error {
	return s.registry.RemoveSession(sessionID)
}

// CancelSession cancels the running execution of the session, if any.
func (s *Service) CancelSession(sessionID string) error {
	return s.registry.CancelSession(sessionID)
}

// ListSessions summarizes every live session.
func (s *Service) ListSessions() []domain.SessionInfo {
	return s.registry.ListSessions()
}

// GetEvents returns the retained progress events of the session.
func (s *Service) GetEvents(sessionID string) ([]domain.ProgressEvent, error) {
	return s.registry.GetEvents(sessionID)
}

// ClearSessionHistory empties the event log of the session and resets its
// state. A live execution keeps running.
func (s *Service) ClearSessionHistory(sessionID string) error {
	return s.registry.ClearSessionHistory(sessionID)
}

// SweepExpired evicts idle sessions now and reports how many were removed.
func (s *Service) SweepExpired() int {
	return s.registry.SweepExpired()
}

// Streams is the live event stream fed by every session.
func (s *Service) Streams() *httpadapter.StreamManager {
	return s.streams
}

// Start launches the background sweeper. It stops when ctx ends or on Close.
func (s *Service) Start(ctx context.Context) {
	s.registry.StartSweeper(ctx)
}

// Close cleans up every session, flushes pending progress events and
// releases the sinks.
func (s *Service) Close(ctx context.Context) error {
	errs := []error{s.registry.Close(ctx), s.dispatcher.Close(ctx)}
	for _, closeFn := range s.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}
