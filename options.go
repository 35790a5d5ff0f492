package agentservice

import (
	"log/slog"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/runtime"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/observability"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/ports"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/progress"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/prompts"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/session"
)

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithClassifier sets the intent classifier used by the planner.
func WithClassifier(c ports.IntentClassifier) Option {
	return func(s *Service) {
		s.deps.Classifier = c
	}
}

// WithRetriever sets the document retriever.
func WithRetriever(r ports.Retriever) Option {
	return func(s *Service) {
		s.deps.Retriever = r
	}
}

// WithGenerator sets the text generator used for answers.
func WithGenerator(g ports.TextGenerator) Option {
	return func(s *Service) {
		s.deps.Generator = g
	}
}

// WithQuizService sets the quiz generation and grading service.
func WithQuizService(q ports.QuizService) Option {
	return func(s *Service) {
		s.deps.Quizzes = q
	}
}

// WithPrompts replaces the embedded prompt templates.
func WithPrompts(set *prompts.Set) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, runtime.WithPrompts(set))
	}
}

// WithAnswerTemperature sets the sampling temperature of generated answers.
func WithAnswerTemperature(t float64) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, runtime.WithAnswerTemperature(t))
	}
}

// WithSink adds progress sinks. Every event is delivered to each of them
// in addition to the live stream subscribers.
func WithSink(sinks ...ports.ProgressSink) Option {
	return func(s *Service) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithMetrics records executions, node visits and progress events into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConcurrencyLimit bounds the executions running across all sessions.
func WithConcurrencyLimit(n int) Option {
	return func(s *Service) {
		s.sessionOpts = append(s.sessionOpts, session.WithConcurrencyLimit(n))
	}
}

// WithSessionTTL sets how long a session may stay idle before eviction.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.sessionOpts = append(s.sessionOpts, session.WithTTL(ttl))
	}
}

// WithSweepInterval sets how often idle sessions are looked for.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		s.sessionOpts = append(s.sessionOpts, session.WithSweepInterval(d))
	}
}

// WithEventLogCapacity sets how many events each session keeps.
func WithEventLogCapacity(n int) Option {
	return func(s *Service) {
		s.sessionOpts = append(s.sessionOpts, session.WithEventLogCapacity(n))
	}
}

// WithClock replaces time.Now for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.sessionOpts = append(s.sessionOpts, session.WithClock(now))
	}
}

// WithNotifyTimeout bounds each delivery to the sinks.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.dispatchOpts = append(s.dispatchOpts, progress.WithTimeout(d))
	}
}

// WithNotifyQueueSize sets how many events wait for delivery before new
// ones are dropped.
func WithNotifyQueueSize(n int) Option {
	return func(s *Service) {
		s.dispatchOpts = append(s.dispatchOpts, progress.WithQueueSize(n))
	}
}

// withCloser registers a resource released by Close.
func withCloser(fn func() error) Option {
	return func(s *Service) {
		s.closers = append(s.closers, fn)
	}
}
