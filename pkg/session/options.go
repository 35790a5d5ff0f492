package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/logging"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
)

// Defaults applied when no option overrides them.
const (
	DefaultConcurrencyLimit = 2
	DefaultTTL              = 10 * time.Minute
	DefaultSweepInterval    = 30 * time.Second
)

// Publisher forwards progress events outside the process.
// Publish must not block the caller.
type Publisher interface {
	Publish(event domain.ProgressEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.ProgressEvent) {}

type settings struct {
	logger        *slog.Logger
	publisher     Publisher
	hooks         domain.LifecycleHooks
	now           func() time.Time
	eventCapacity int
	concurrency   int64
	ttl           time.Duration
	sweepInterval time.Duration
	baseCtx       context.Context
}

func defaultSettings() settings {
	return settings{
		logger:        logging.NewNop(),
		publisher:     nopPublisher{},
		now:           time.Now,
		eventCapacity: domain.DefaultEventLogCapacity,
		concurrency:   DefaultConcurrencyLimit,
		ttl:           DefaultTTL,
		sweepInterval: DefaultSweepInterval,
		baseCtx:       context.Background(),
	}
}

func newSettings(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a Registry and the sessions it creates.
type Option func(*settings)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithPublisher sets where progress events are forwarded.
func WithPublisher(p Publisher) Option {
	return func(s *settings) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = hooks
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithEventLogCapacity sets how many events each session retains.
func WithEventLogCapacity(n int) Option {
	return func(s *settings) {
		s.eventCapacity = n
	}
}

// WithConcurrencyLimit sets the size of the global permit pool.
func WithConcurrencyLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.concurrency = int64(n)
		}
	}
}

// WithTTL sets how long a session may stay idle before the Sweeper evicts it.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		s.ttl = ttl
	}
}

// WithSweepInterval sets how often the Sweeper scans for idle sessions.
func WithSweepInterval(d time.Duration) Option {
	return func(s *settings) {
		s.sweepInterval = d
	}
}

// WithBaseContext sets the parent context of every execution.
// Values are inherited; cancelling it cancels all executions.
func WithBaseContext(ctx context.Context) Option {
	return func(s *settings) {
		s.baseCtx = ctx
	}
}
