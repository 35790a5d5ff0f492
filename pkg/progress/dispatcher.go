package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/logging"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/ports"
)

const (
	DefaultTimeout   = time.Second
	DefaultQueueSize = 256
)

// Dispatcher forwards published events to a sink from a background worker.
type Dispatcher struct {
	sink      ports.ProgressSink
	logger    *slog.Logger
	timeout   time.Duration
	queueSize int

	queue   chan domain.ProgressEvent
	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
	failed  atomic.Int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for dropped and failed deliveries.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTimeout bounds every delivery.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithQueueSize sets the number of events buffered before dropping.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// NewDispatcher starts a Dispatcher delivering to sink.
func NewDispatcher(sink ports.ProgressSink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:      sink,
		logger:    logging.NewNop(),
		timeout:   DefaultTimeout,
		queueSize: DefaultQueueSize,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan domain.ProgressEvent, d.queueSize)
	go d.loop()
	return d
}

// Publish enqueues event for delivery. It never blocks: events published
// to a full queue or after Close are dropped.
func (d *Dispatcher) Publish(event domain.ProgressEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}
	select {
	case d.queue <- event:
	default:
		d.dropped.Add(1)
		d.logger.Warn("progress queue full, event dropped",
			"session_id", event.SessionID, "step", event.Step)
	}
}

// Dropped returns the number of events that never reached the queue.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Failed returns the number of deliveries the sink rejected.
func (d *Dispatcher) Failed() int64 {
	return d.failed.Load()
}

// Close stops accepting events and waits until the queued ones are
// delivered or ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for event := range d.queue {
		if err := d.deliver(event); err != nil {
			d.failed.Add(1)
			d.logger.Warn("progress delivery failed",
				"session_id", event.SessionID, "step", event.Step, "err", err)
		}
	}
}

func (d *Dispatcher) deliver(event domain.ProgressEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	return d.sink.Deliver(ctx, event)
}
